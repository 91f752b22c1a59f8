package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"rumbia-backend/internal/adapters/http/middleware"
	"rumbia-backend/internal/adapters/http/routes"
	"rumbia-backend/internal/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	_ "rumbia-backend/docs" // Swagger docs
)

// @title RumbIA API
// @version 1.0
// @description API de emisión de pólizas RumbIA: registro, generación de condicionado particular y envío de bienvenida.

// @contact.name API Support
// @contact.email soporte@rumboseguros.pe

// @host localhost:8000
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-Api-Key

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Structured logger
	var logger *zap.Logger
	if cfg.IsDev() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("❌ Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "RumbIA API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes (wires store, services and handlers)
	routes.Setup(app, cfg, logger)

	// Graceful shutdown
	go gracefulShutdown(app, logger)

	// Start server
	logger.Info("🚀 Server starting",
		zap.String("port", cfg.Port),
		zap.String("mode", cfg.AppMode))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("❌ Failed to start server", zap.Error(err))
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		logger.Error("❌ Error during shutdown", zap.Error(err))
	}
	logger.Info("✅ Server stopped gracefully")
}
