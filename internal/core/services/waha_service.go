package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rumbia-backend/internal/config"

	"go.uber.org/zap"
)

// WAHAService sends WhatsApp messages through a WAHA gateway: plain text,
// images and documents, each as a base64 payload.
type WAHAService struct {
	cfg        config.WAHAConfig
	client     *http.Client // text and image sends
	fileClient *http.Client // document sends carry larger payloads
	logger     *zap.Logger
}

// NewWAHAService creates a new WAHA service.
func NewWAHAService(cfg config.WAHAConfig, logger *zap.Logger) *WAHAService {
	return &WAHAService{
		cfg:        cfg,
		client:     &http.Client{Timeout: 30 * time.Second},
		fileClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// Enabled reports whether WhatsApp dispatch is configured.
func (s *WAHAService) Enabled() bool {
	return s.cfg.Enabled && (s.cfg.Mock || s.cfg.BaseURL != "")
}

// wahaFile is the inline file payload of image and document sends.
type wahaFile struct {
	Mimetype string `json:"mimetype"`
	Filename string `json:"filename"`
	Data     string `json:"data"`
}

type sendTextRequest struct {
	Session string  `json:"session"`
	ChatID  string  `json:"chatId"`
	Text    string  `json:"text"`
	ReplyTo *string `json:"reply_to"`
}

type sendImageRequest struct {
	Session string   `json:"session"`
	ChatID  string   `json:"chatId"`
	File    wahaFile `json:"file"`
	Caption string   `json:"caption,omitempty"`
}

type sendFileRequest struct {
	Session string   `json:"session"`
	ChatID  string   `json:"chatId"`
	Caption string   `json:"caption,omitempty"`
	File    wahaFile `json:"file"`
}

// NormalizeNumber strips formatting glyphs from a phone number and prefixes
// the configured country code when absent.
func (s *WAHAService) NormalizeNumber(phone string) string {
	replacer := strings.NewReplacer("+", "", "-", "", " ", "", "(", "", ")", "")
	normalized := replacer.Replace(phone)
	if normalized == "" {
		return normalized
	}
	if s.cfg.CountryCode != "" && !strings.HasPrefix(normalized, s.cfg.CountryCode) {
		normalized = s.cfg.CountryCode + normalized
	}
	return normalized
}

// destination resolves the outgoing chat id, honoring the dev override.
func (s *WAHAService) destination(phone string) string {
	number := s.NormalizeNumber(phone)
	if s.cfg.OverrideNumber != "" {
		number = s.cfg.OverrideNumber
	}
	return number + "@c.us"
}

// SendText sends a plain text message.
func (s *WAHAService) SendText(ctx context.Context, phone, text string) error {
	if s.cfg.Mock {
		s.logger.Info("[MOCK] whatsapp text", zap.String("destino", s.destination(phone)))
		return nil
	}
	payload := sendTextRequest{
		Session: s.cfg.Session,
		ChatID:  s.destination(phone),
		Text:    text,
	}
	return s.post(ctx, s.client, "/api/sendText", payload)
}

// SendImage sends an image file with an optional caption. Only common image
// formats are accepted.
func (s *WAHAService) SendImage(ctx context.Context, phone, imagePath, caption string) error {
	mimetype, ok := imageMimetype(imagePath)
	if !ok {
		return fmt.Errorf("unsupported image format: %s", filepath.Ext(imagePath))
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	if s.cfg.Mock {
		s.logger.Info("[MOCK] whatsapp image",
			zap.String("destino", s.destination(phone)),
			zap.String("archivo", filepath.Base(imagePath)),
			zap.Int("bytes", len(data)))
		return nil
	}

	payload := sendImageRequest{
		Session: s.cfg.Session,
		ChatID:  s.destination(phone),
		Caption: caption,
		File: wahaFile{
			Mimetype: mimetype,
			Filename: filepath.Base(imagePath),
			Data:     base64.StdEncoding.EncodeToString(data),
		},
	}
	return s.post(ctx, s.client, "/api/sendImage", payload)
}

// SendFile sends a document (PDF, Word, plain text) with an optional caption.
func (s *WAHAService) SendFile(ctx context.Context, phone, filePath, caption string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	if s.cfg.Mock {
		s.logger.Info("[MOCK] whatsapp document",
			zap.String("destino", s.destination(phone)),
			zap.String("archivo", filepath.Base(filePath)),
			zap.Int("bytes", len(data)))
		return nil
	}

	payload := sendFileRequest{
		Session: s.cfg.Session,
		ChatID:  s.destination(phone),
		Caption: caption,
		File: wahaFile{
			Mimetype: documentMimetype(filePath),
			Filename: filepath.Base(filePath),
			Data:     base64.StdEncoding.EncodeToString(data),
		},
	}
	return s.post(ctx, s.fileClient, "/api/sendFile", payload)
}

// WelcomePackageResult summarizes the per-item outcome of a welcome send.
type WelcomePackageResult struct {
	ImageSent bool
	FileSent  bool
	Errors    []string
}

// Success reports whether at least one requested item was delivered.
func (r *WelcomePackageResult) Success() bool {
	return r.ImageSent || r.FileSent
}

// SendWelcomePackage sends the policy welcome package: the rendered mail
// screenshot with the welcome caption, then the contract PDF. Each item is
// optional and fails independently.
func (s *WAHAService) SendWelcomePackage(ctx context.Context, phone, clientName, imagePath, pdfPath string) *WelcomePackageResult {
	result := &WelcomePackageResult{}

	if imagePath != "" {
		caption := fmt.Sprintf(`*En hora buena %s, aseguraste tu futuro ✨*

Gracias por comprar tu seguro Rumbo 🤩

Revisa tu bandeja de entrada, te enviaremos tu póliza contratada 📩

Si tienes dudas o consultas, escríbenos por aquí o entra a interseguro.pe 💙`, clientName)
		if err := s.SendImage(ctx, phone, imagePath, caption); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("imagen: %v", err))
		} else {
			result.ImageSent = true
		}
	}

	if pdfPath != "" {
		if err := s.SendFile(ctx, phone, pdfPath, "Te adjuntamos tu póliza contratada 💸💯"); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("documento: %v", err))
		} else {
			result.FileSent = true
		}
	}

	return result
}

// post sends one JSON request to the WAHA gateway and errors on non-200.
func (s *WAHAService) post(ctx context.Context, client *http.Client, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", s.cfg.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("waha %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("waha %s: status %d: %s", path, resp.StatusCode, string(detail))
	}
	return nil
}

func imageMimetype(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png", true
	case ".gif":
		return "image/gif", true
	case ".jpg", ".jpeg":
		return "image/jpeg", true
	case ".webp":
		return "image/webp", true
	default:
		return "", false
	}
}

func documentMimetype(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	case ".txt":
		return "text/plain"
	default:
		return "application/pdf"
	}
}
