package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rumbia-backend/internal/adapters/persistence/store"
	"rumbia-backend/internal/config"
	"rumbia-backend/internal/core/domain"
	"rumbia-backend/internal/pkg/imagecrop"
	"rumbia-backend/internal/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PolicyService orchestrates policy issuance: id allocation, record
// persistence, document generation and delivery-channel dispatch.
//
// Allocation and persistence are fatal stages; everything after them is
// best-effort and degrades into result flags without unwinding the record.
type PolicyService struct {
	store  *store.PolicyStore
	docs   *DocumentService
	email  *EmailService
	waha   *WAHAService
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time
}

// NewPolicyService creates a new policy service.
func NewPolicyService(
	st *store.PolicyStore,
	docs *DocumentService,
	email *EmailService,
	waha *WAHAService,
	cfg *config.Config,
	logger *zap.Logger,
) *PolicyService {
	return &PolicyService{
		store:  st,
		docs:   docs,
		email:  email,
		waha:   waha,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// IssuePolicyInput is the validated issuance request.
type IssuePolicyInput struct {
	Cliente    domain.Cliente
	Cotizacion domain.Cotizacion
}

// IssuePolicyResult reports everything an issuance produced. The record
// fields are always set; delivery fields reflect best-effort outcomes.
type IssuePolicyResult struct {
	IDPoliza          int               `json:"id_poliza"`
	NumeroPoliza      string            `json:"numero_poliza"`
	NombreArchivo     string            `json:"archivo_poliza"`
	FechaEmision      time.Time         `json:"fecha_emision"`
	RutaArchivo       string            `json:"ruta_archivo"`
	DocumentoGenerado bool              `json:"documento_generado"`
	RutaDocumentoWord *string           `json:"ruta_documento_word"`
	RutaDocumentoPDF  *string           `json:"ruta_documento_pdf"`
	CorreoEnviado     bool              `json:"correo_enviado"`
	WhatsAppImagen    bool              `json:"whatsapp_imagen_enviada"`
	WhatsAppDocumento bool              `json:"whatsapp_documento_enviado"`
	Unresolved        []string          `json:"marcadores_sin_resolver,omitempty"`
	Cliente           domain.Cliente    `json:"cliente"`
	Cotizacion        domain.Cotizacion `json:"cotizacion"`
}

// channelResult is the outcome of one independent delivery task.
type channelResult struct {
	channel   string
	imageSent bool
	fileSent  bool
	err       error
}

// Issue runs the full issuance: Allocating → Persisting → Rendering →
// Converting → Cleanup → delivery. Only allocation and persistence abort.
func (s *PolicyService) Issue(ctx context.Context, input *IssuePolicyInput) (*IssuePolicyResult, error) {
	if err := input.Cliente.Validate(); err != nil {
		return nil, err
	}
	if err := input.Cotizacion.Validate(); err != nil {
		return nil, err
	}

	traceID := uuid.NewString()
	log := s.logger.With(zap.String("trace_id", traceID))

	// Allocating (fatal)
	id, err := s.store.AllocateID()
	if err != nil {
		return nil, fmt.Errorf("allocate policy id: %w", err)
	}
	defer s.store.Release(id)

	emision := s.now()
	policy := &domain.Policy{
		IDPoliza:     id,
		NumeroPoliza: domain.FormatPolicyNumber(s.cfg.Policy.NumberFormat, id, emision),
		FechaEmision: emision,
		Cliente:      input.Cliente,
		Cotizacion:   input.Cotizacion,
		Status:       domain.StatusActiva,
	}

	// Persisting (fatal)
	ruta, err := s.store.Save(policy)
	if err != nil {
		return nil, fmt.Errorf("persist policy %d: %w", id, err)
	}
	metrics.PoliciesIssued.Inc()
	log.Info("policy persisted",
		zap.Int("id_poliza", id),
		zap.String("numero_poliza", policy.NumeroPoliza),
		zap.String("ruta", ruta))

	result := &IssuePolicyResult{
		IDPoliza:      id,
		NumeroPoliza:  policy.NumeroPoliza,
		NombreArchivo: s.store.FileName(id),
		FechaEmision:  emision,
		RutaArchivo:   ruta,
		Cliente:       policy.Cliente,
		Cotizacion:    policy.Cotizacion,
	}

	// Rendering, Converting, Cleanup (degraded)
	var pdfPath string
	if s.cfg.Policy.GenerateDocument {
		gen, err := s.docs.Generate(ctx, policy)
		if err != nil {
			metrics.DocumentRenders.WithLabelValues("error").Inc()
			log.Warn("document generation failed, issuance continues",
				zap.Int("id_poliza", id), zap.Error(err))
		} else {
			metrics.DocumentRenders.WithLabelValues("ok").Inc()
			result.DocumentoGenerado = true
			result.Unresolved = gen.Unresolved
			if gen.WordPath != "" {
				word := gen.WordPath
				result.RutaDocumentoWord = &word
			}
			if gen.PDFPath != "" {
				pdfPath = gen.PDFPath
				result.RutaDocumentoPDF = &pdfPath
			}
		}
	}

	s.dispatchChannels(ctx, log, policy, pdfPath, result)
	return result, nil
}

// dispatchChannels runs each configured delivery channel as an independent
// task and merges the outcomes into the result. A channel failure is data,
// not control flow: nothing here can abort the issuance.
func (s *PolicyService) dispatchChannels(ctx context.Context, log *zap.Logger, policy *domain.Policy, pdfPath string, result *IssuePolicyResult) {
	results := make(chan channelResult, 2)
	launched := 0

	if s.email != nil && s.email.Enabled() {
		launched++
		go func() {
			err := s.email.SendWelcome(policy, pdfPath)
			results <- channelResult{channel: "correo", err: err}
		}()
	}

	if s.waha != nil && s.waha.Enabled() {
		launched++
		go func() {
			image := s.welcomeImage(log)
			pkg := s.waha.SendWelcomePackage(ctx, policy.Cliente.Telefono, policy.Cliente.Nombre, image, pdfPath)
			var err error
			if len(pkg.Errors) > 0 {
				err = fmt.Errorf("whatsapp: %v", pkg.Errors)
			}
			results <- channelResult{
				channel:   "whatsapp",
				imageSent: pkg.ImageSent,
				fileSent:  pkg.FileSent,
				err:       err,
			}
		}()
	}

	for i := 0; i < launched; i++ {
		r := <-results
		status := "ok"
		if r.err != nil {
			status = "error"
			log.Warn("delivery channel failed",
				zap.String("canal", r.channel), zap.Error(r.err))
		}
		metrics.ChannelDispatches.WithLabelValues(r.channel, status).Inc()

		switch r.channel {
		case "correo":
			result.CorreoEnviado = r.err == nil
		case "whatsapp":
			result.WhatsAppImagen = r.imageSent
			result.WhatsAppDocumento = r.fileSent
		}
	}
}

// welcomeImage returns the path of the image sent over WhatsApp, cropped to
// its content box when possible. Crop failure keeps the original image.
func (s *PolicyService) welcomeImage(log *zap.Logger) string {
	src := s.cfg.Policy.WelcomeImagePath
	if src == "" {
		return ""
	}

	cropped := filepath.Join(os.TempDir(), "rumbia_bienvenida.jpg")
	if err := imagecrop.CropToContent(src, cropped); err != nil {
		log.Warn("welcome image crop failed, sending original",
			zap.String("ruta", src), zap.Error(err))
		return src
	}
	return cropped
}

// Get returns one stored policy.
func (s *PolicyService) Get(id int) (*domain.Policy, error) {
	return s.store.Load(id)
}

// List returns every stored policy ordered by id.
func (s *PolicyService) List() ([]*domain.Policy, error) {
	return s.store.LoadAll()
}

// RegenerateDocument re-runs the document pipeline for a stored policy.
func (s *PolicyService) RegenerateDocument(ctx context.Context, id int) (*GeneratedDocument, error) {
	policy, err := s.store.Load(id)
	if err != nil {
		return nil, err
	}
	gen, err := s.docs.Generate(ctx, policy)
	if err != nil {
		metrics.DocumentRenders.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.DocumentRenders.WithLabelValues("ok").Inc()
	return gen, nil
}
