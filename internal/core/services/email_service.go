package services

import (
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rumbia-backend/internal/config"
	"rumbia-backend/internal/core/domain"

	"go.uber.org/zap"
)

// EmailService sends the welcome mail: a static HTML template with a small
// fixed set of #!Id_x!# markers, plus the policy PDF as attachment.
type EmailService struct {
	cfg          config.SMTPConfig
	templatePath string
	logger       *zap.Logger
}

// NewEmailService creates a new email service.
func NewEmailService(cfg config.SMTPConfig, templatePath string, logger *zap.Logger) *EmailService {
	return &EmailService{cfg: cfg, templatePath: templatePath, logger: logger}
}

// Enabled reports whether outbound mail is configured.
func (s *EmailService) Enabled() bool {
	return s.cfg.Enabled && s.cfg.Host != "" && s.cfg.From != ""
}

// buildMarkers prepares the template marker values for a policy.
func (s *EmailService) buildMarkers(p *domain.Policy) map[string]string {
	periodo := p.Cotizacion.PlazoAnios()
	if periodo == 0 {
		periodo = 7
	}
	primaMensual := p.Cotizacion.PrimaAnual / 10
	fechaFin := endOfCoverage(p.FechaEmision, periodo)

	return map[string]string{
		"#!Id_nombrecliente!#":    p.Cliente.Nombre,
		"#!Id_numeropoliza!#":     domain.SequentialNumber(p.IDPoliza),
		"#!Id_periodo!#":          strconv.Itoa(periodo) + " años",
		"#!Id_Monto_devolucion!#": soles(p.Cotizacion.Devolucion),
		"#!Id_montoprima!#":       soles(primaMensual),
		"#!Id_fechaemision!#":     formatFecha(p.FechaEmision),
		"#!Id_fechafin!#":         formatFecha(fechaFin),
	}
}

// RenderHTML fills the welcome template for a policy.
func (s *EmailService) RenderHTML(p *domain.Policy) (string, error) {
	raw, err := os.ReadFile(s.templatePath)
	if err != nil {
		return "", fmt.Errorf("read mail template: %w", err)
	}

	html := string(raw)
	for marker, value := range s.buildMarkers(p) {
		html = strings.ReplaceAll(html, marker, value)
	}
	return html, nil
}

// SendWelcome renders and sends the welcome mail to the policyholder,
// attaching the contract PDF when available.
func (s *EmailService) SendWelcome(p *domain.Policy, attachmentPath string) error {
	html, err := s.RenderHTML(p)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("¡Bienvenido a Rumbo! - Póliza %s", domain.SequentialNumber(p.IDPoliza))
	return s.send(p.Cliente.Correo, subject, html, attachmentPath)
}

// send delivers one HTML mail over SMTP, as multipart/mixed when an
// attachment is given. The whole conversation runs under one deadline so a
// stalled server fails the channel instead of blocking the issuance.
func (s *EmailService) send(to, subject, html, attachmentPath string) error {
	msg, err := s.buildMessage(to, subject, html, attachmentPath)
	if err != nil {
		return err
	}

	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		conn.Close()
		return fmt.Errorf("smtp deadline %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake %s: %w", addr, err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("smtp starttls %s: %w", addr, err)
		}
	}
	if s.cfg.User != "" {
		auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth %s: %w", addr, err)
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp sender %s: %w", s.cfg.From, err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp recipient %s: %w", to, err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("smtp quit %s: %w", addr, err)
	}

	s.logger.Info("welcome mail sent", zap.String("destinatario", to))
	return nil
}

func (s *EmailService) buildMessage(to, subject, html, attachmentPath string) ([]byte, error) {
	var buf bytes.Buffer
	from := s.cfg.From
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.From)
	}

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")

	if attachmentPath == "" {
		buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
		buf.WriteString(html)
		return buf.Bytes(), nil
	}

	attachment, err := os.ReadFile(attachmentPath)
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}

	writer := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	htmlHeader := textproto.MIMEHeader{}
	htmlHeader.Set("Content-Type", "text/html; charset=\"UTF-8\"")
	htmlPart, err := writer.CreatePart(htmlHeader)
	if err != nil {
		return nil, err
	}
	if _, err := htmlPart.Write([]byte(html)); err != nil {
		return nil, err
	}

	name := filepath.Base(attachmentPath)
	fileHeader := textproto.MIMEHeader{}
	fileHeader.Set("Content-Type", "application/octet-stream")
	fileHeader.Set("Content-Transfer-Encoding", "base64")
	fileHeader.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	filePart, err := writer.CreatePart(fileHeader)
	if err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(attachment)
	if _, err := filePart.Write([]byte(encoded)); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
