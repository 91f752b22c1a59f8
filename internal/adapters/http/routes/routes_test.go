package routes

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"rumbia-backend/internal/config"
	"rumbia-backend/internal/core/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *fiber.App {
	t.Helper()

	cfg := &config.Config{
		AppMode: "dev",
		Policy: config.PolicyConfig{
			DataDir:          t.TempDir(),
			NumberFormat:     domain.NumberFormatSequential,
			GenerateDocument: false,
		},
	}
	if mutate != nil {
		mutate(cfg)
	}

	app := fiber.New()
	Setup(app, cfg, zap.NewNop())
	return app
}

func getJSON(t *testing.T, app *fiber.App, path string) (int, map[string]interface{}) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestRumbiaRoot(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := getJSON(t, app, "/api/v1/rumbia/")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Soy RumbIA, tu agente inteligente. ¿En qué puedo ayudarte hoy?", body["message"])
	assert.Equal(t, "RumbIA", body["agent_name"])
	assert.Equal(t, "ready", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestRumbiaSaludo(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := getJSON(t, app, "/api/v1/rumbia/saludo")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "¡Hola! Soy tu agente inteligente RumbIA 🤖", body["message"])
	assert.Equal(t, "RumbIA", body["agent_name"])
	assert.Equal(t, "active", body["status"])
}

func TestRumbiaHealth(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := getJSON(t, app, "/api/v1/rumbia/health")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "RumbIA está funcionando correctamente", body["message"])
	assert.Equal(t, "1.0.0", body["version"])
}

func TestRumbiaInfo(t *testing.T) {
	app := newTestApp(t, nil)

	status, body := getJSON(t, app, "/api/v1/rumbia/info")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "RumbIA", body["agent_name"])
	assert.Equal(t, "Agente Inteligente Orquestador", body["type"])

	capabilities, ok := body["capabilities"].([]interface{})
	require.True(t, ok)
	assert.Len(t, capabilities, 4)
	assert.Contains(t, capabilities, "Orquestación de servicios")
}

const emisionBody = `{
	"cliente": {
		"dni": "45781236",
		"nombre": "María Quispe",
		"fechaNacimiento": "1990-05-12",
		"genero": "F",
		"telefono": "987654321",
		"correo": "maria.quispe@example.com"
	},
	"cotizacion": {
		"producto": "Rumbo Devolución",
		"parametros": {"edad_actuarial": 34, "sexo": "F", "prima": 100},
		"id": 15,
		"fecha_creacion": "2024-03-15T10:00:00Z",
		"porcentaje_devolucion": 100,
		"tasa_implicita": 3.2,
		"suma_asegurada": 50000,
		"devolucion": 12000,
		"prima_anual": 1200,
		"tabla_devolucion": [3.5, 4.0]
	}
}`

func TestRumbiaEmisionPoliza(t *testing.T) {
	app := newTestApp(t, nil)

	req := httptest.NewRequest("POST", "/api/v1/rumbia/emision-poliza", strings.NewReader(emisionBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.True(t, envelope.Success)
	assert.Equal(t, "RumbIA001", envelope.Data["numero_poliza"])
	assert.Equal(t, "RumbIA001.json", envelope.Data["archivo_poliza"])
}

func TestRumbiaEmisionPolizaInvalidBody(t *testing.T) {
	app := newTestApp(t, nil)

	req := httptest.NewRequest("POST", "/api/v1/rumbia/emision-poliza", strings.NewReader(`{"cliente": {}}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRumbiaEmisionPolizaRequiresAPIKey(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.APIKey = "clave-secreta"
	})

	req := httptest.NewRequest("POST", "/api/v1/rumbia/emision-poliza", strings.NewReader(emisionBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
