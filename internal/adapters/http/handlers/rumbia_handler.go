package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// RumbiaHandler handles the RumbIA agent endpoints
type RumbiaHandler struct{}

// NewRumbiaHandler creates a new RumbIA agent handler
func NewRumbiaHandler() *RumbiaHandler {
	return &RumbiaHandler{}
}

// Root presents the agent
// @Summary RumbIA root
// @Description Presents the RumbIA intelligent agent
// @Tags RumbIA
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /rumbia [get]
func (h *RumbiaHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":    "Soy RumbIA, tu agente inteligente. ¿En qué puedo ayudarte hoy?",
		"agent_name": "RumbIA",
		"timestamp":  time.Now(),
		"status":     "ready",
	})
}

// Saludo returns the agent greeting
// @Summary RumbIA greeting
// @Description Returns a personalized greeting from the RumbIA agent
// @Tags RumbIA
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /rumbia/saludo [get]
func (h *RumbiaHandler) Saludo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":    "¡Hola! Soy tu agente inteligente RumbIA 🤖",
		"agent_name": "RumbIA",
		"timestamp":  time.Now(),
		"status":     "active",
	})
}

// Health reports the agent health
// @Summary RumbIA health
// @Description Reports the health and availability of the RumbIA agent
// @Tags RumbIA
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /rumbia/health [get]
func (h *RumbiaHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"message":   "RumbIA está funcionando correctamente",
		"timestamp": time.Now(),
		"version":   "1.0.0",
	})
}

// Info describes the agent capabilities
// @Summary RumbIA info
// @Description Returns detailed information about the RumbIA agent capabilities
// @Tags RumbIA
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /rumbia/info [get]
func (h *RumbiaHandler) Info(c *fiber.Ctx) error {
	now := time.Now()
	return c.JSON(fiber.Map{
		"agent_name":  "RumbIA",
		"version":     "1.0.0",
		"type":        "Agente Inteligente Orquestador",
		"description": "Agente inteligente diseñado para orquestar servicios y asistir a los usuarios",
		"capabilities": []string{
			"Orquestación de servicios",
			"Procesamiento de lenguaje natural",
			"Asistencia inteligente",
			"Integración de APIs",
		},
		"status":      "active",
		"created_at":  now,
		"last_update": now,
	})
}
