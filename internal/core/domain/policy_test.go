package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCliente() Cliente {
	return Cliente{
		DNI:             "45678912",
		Nombre:          "José Pérez",
		FechaNacimiento: "01/01/1985",
		Genero:          GeneroMasculino,
		Telefono:        "999888777",
		Correo:          "jose@example.com",
	}
}

func validCotizacion() Cotizacion {
	return Cotizacion{
		Producto:        "Rumbo Devolución",
		TablaDevolucion: TablaDevolucion{10, 20, 40, 60, 80, 90, 100},
	}
}

func TestTablaDevolucionUnmarshalArray(t *testing.T) {
	var tabla TablaDevolucion
	require.NoError(t, json.Unmarshal([]byte(`[3.5, 4.0, 100]`), &tabla))
	assert.Equal(t, TablaDevolucion{3.5, 4.0, 100}, tabla)
}

func TestTablaDevolucionUnmarshalStringEncoded(t *testing.T) {
	var tabla TablaDevolucion
	require.NoError(t, json.Unmarshal([]byte(`"[3.5, 4.0, 100]"`), &tabla))
	assert.Equal(t, TablaDevolucion{3.5, 4.0, 100}, tabla)
}

func TestTablaDevolucionUnmarshalInvalid(t *testing.T) {
	var tabla TablaDevolucion
	assert.Error(t, json.Unmarshal([]byte(`"not an array"`), &tabla))
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &tabla))
}

func TestTablaDevolucionReencodesAsArray(t *testing.T) {
	var c Cotizacion
	require.NoError(t, json.Unmarshal([]byte(`{"producto":"x","tabla_devolucion":"[1, 2]"}`), &c))

	out, err := json.Marshal(&c)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"tabla_devolucion":[1,2]`)
}

func TestClienteValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Cliente)
		valid  bool
	}{
		{"complete", func(c *Cliente) {}, true},
		{"missing dni", func(c *Cliente) { c.DNI = "" }, false},
		{"missing nombre", func(c *Cliente) { c.Nombre = "" }, false},
		{"missing fecha nacimiento", func(c *Cliente) { c.FechaNacimiento = "" }, false},
		{"invalid genero", func(c *Cliente) { c.Genero = "X" }, false},
		{"genero femenino", func(c *Cliente) { c.Genero = GeneroFemenino }, true},
		{"missing telefono", func(c *Cliente) { c.Telefono = "" }, false},
		{"missing correo", func(c *Cliente) { c.Correo = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCliente()
			tt.mutate(&c)
			err := c.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidInput)
			}
		})
	}
}

func TestCotizacionValidate(t *testing.T) {
	c := validCotizacion()
	assert.NoError(t, c.Validate())

	c.Producto = ""
	assert.ErrorIs(t, c.Validate(), ErrInvalidInput)

	c = validCotizacion()
	c.TablaDevolucion = nil
	assert.ErrorIs(t, c.Validate(), ErrInvalidInput)

	c = validCotizacion()
	c.TablaDevolucion = make(TablaDevolucion, MaxPlazoAnios+1)
	assert.ErrorIs(t, c.Validate(), ErrInvalidInput)
}

func TestPlazoAnios(t *testing.T) {
	c := validCotizacion()
	assert.Equal(t, 7, c.PlazoAnios())
}

func TestSequentialNumber(t *testing.T) {
	assert.Equal(t, "RumbIA001", SequentialNumber(1))
	assert.Equal(t, "RumbIA099", SequentialNumber(99))
	assert.Equal(t, "RumbIA1234", SequentialNumber(1234))
}

func TestTimestampedNumber(t *testing.T) {
	at := time.Date(2025, 3, 15, 10, 30, 45, 0, time.UTC)
	assert.Equal(t, "POL-20250315-103045-007", TimestampedNumber(7, at))
}

func TestFormatPolicyNumber(t *testing.T) {
	at := time.Date(2025, 3, 15, 10, 30, 45, 0, time.UTC)

	assert.Equal(t, "RumbIA007", FormatPolicyNumber(NumberFormatSequential, 7, at))
	assert.Equal(t, "POL-20250315-103045-007", FormatPolicyNumber(NumberFormatTimestamped, 7, at))
	assert.Equal(t, "RumbIA007", FormatPolicyNumber("unknown", 7, at), "unknown formats fall back to sequential")
}
