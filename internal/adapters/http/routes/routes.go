package routes

import (
	"rumbia-backend/internal/adapters/http/handlers"
	"rumbia-backend/internal/adapters/http/middleware"
	"rumbia-backend/internal/adapters/persistence/store"
	"rumbia-backend/internal/config"
	"rumbia-backend/internal/core/services"
	"rumbia-backend/internal/pkg/metrics"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

// Setup configures all routes for the application
func Setup(app *fiber.App, cfg *config.Config, logger *zap.Logger) {
	// Record store
	policyStore := store.NewPolicyStore(cfg.Policy.DataDir)

	// PDF conversion (optional; issuance degrades without it)
	var converter services.Converter
	if cfg.Converter.Enabled {
		converter = services.NewLibreOfficeConverter(cfg.Converter.Binary, cfg.Converter.Timeout)
	}

	// Initialize services
	documentService := services.NewDocumentService(cfg.Policy, converter, logger)
	emailService := services.NewEmailService(cfg.SMTP, cfg.Policy.EmailTemplatePath, logger)
	wahaService := services.NewWAHAService(cfg.WAHA, logger)
	policyService := services.NewPolicyService(policyStore, documentService, emailService, wahaService, cfg, logger)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(policyStore)
	policyHandler := handlers.NewPolicyHandler(policyService)
	rumbiaHandler := handlers.NewRumbiaHandler()

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Prometheus metrics
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API v1 group
	apiV1 := app.Group("/api/v1")
	setupAPIV1Routes(apiV1, healthHandler, policyHandler, rumbiaHandler, cfg)
}

// setupAPIV1Routes configures API v1 routes
func setupAPIV1Routes(
	router fiber.Router,
	healthHandler *handlers.HealthHandler,
	policyHandler *handlers.PolicyHandler,
	rumbiaHandler *handlers.RumbiaHandler,
	cfg *config.Config,
) {
	// API Info
	router.Get("/", healthHandler.APIInfo)

	// RumbIA agent routes
	rumbiaRoutes := router.Group("/rumbia")
	setupRumbiaRoutes(rumbiaRoutes, rumbiaHandler, policyHandler, cfg)

	// Policy routes (API key protected)
	policyRoutes := router.Group("/polizas")
	policyRoutes.Use(middleware.APIKey(cfg))
	setupPolicyRoutes(policyRoutes, policyHandler)
}

// setupRumbiaRoutes configures RumbIA agent routes
func setupRumbiaRoutes(
	router fiber.Router,
	handler *handlers.RumbiaHandler,
	policyHandler *handlers.PolicyHandler,
	cfg *config.Config,
) {
	router.Get("/", handler.Root)
	router.Get("/saludo", handler.Saludo)
	router.Get("/health", handler.Health)
	router.Get("/info", handler.Info)

	// Issuance shares the policy pipeline, same guard and limiter
	router.Post("/emision-poliza",
		middleware.APIKey(cfg), middleware.IssueRateLimiter(), policyHandler.EmisionPoliza)
}

// setupPolicyRoutes configures policy issuance routes
func setupPolicyRoutes(router fiber.Router, handler *handlers.PolicyHandler) {
	// Issuance runs the full pipeline, keep it behind the stricter limiter
	router.Post("/emision", middleware.IssueRateLimiter(), handler.EmisionPoliza)

	router.Get("/", handler.List)
	router.Get("/:id", handler.GetByID)
	router.Post("/:id/documento", handler.RegenerateDocument)
}
