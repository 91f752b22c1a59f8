package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Policy statuses
const (
	StatusActiva = "activa"
)

// Genders accepted on a client record
const (
	GeneroMasculino = "M"
	GeneroFemenino  = "F"
)

// MaxPlazoAnios is the number of yearly refund slots the contract template
// carries. A refund table longer than this cannot be rendered.
const MaxPlazoAnios = 52

// Cliente holds the policyholder data captured at issuance.
type Cliente struct {
	DNI             string `json:"dni"`
	Nombre          string `json:"nombre"`
	FechaNacimiento string `json:"fechaNacimiento"`
	Genero          string `json:"genero"`
	Telefono        string `json:"telefono"`
	Correo          string `json:"correo"`
}

// ParametrosCotizacion holds the actuarial inputs of a quotation.
type ParametrosCotizacion struct {
	EdadActuarial int     `json:"edad_actuarial"`
	Sexo          string  `json:"sexo"`
	Prima         float64 `json:"prima"`
}

// TablaDevolucion is the ordered list of per-year refund percentages. Its
// length is the contract term in years.
//
// Older record files persisted the table as a JSON array encoded inside a
// string; the decoder accepts both forms so existing directories stay
// readable. It always re-encodes as a plain array.
type TablaDevolucion []float64

// UnmarshalJSON accepts both `[3.5, 4.0]` and `"[3.5, 4.0]"`.
func (t *TablaDevolucion) UnmarshalJSON(data []byte) error {
	var direct []float64
	if err := json.Unmarshal(data, &direct); err == nil {
		*t = direct
		return nil
	}

	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return fmt.Errorf("tabla_devolucion: expected array or string-encoded array: %w", err)
	}
	var nested []float64
	if err := json.Unmarshal([]byte(encoded), &nested); err != nil {
		return fmt.Errorf("tabla_devolucion: invalid string-encoded array: %w", err)
	}
	*t = nested
	return nil
}

// Cotizacion holds the quotation a policy was issued from.
type Cotizacion struct {
	Producto             string               `json:"producto"`
	Parametros           ParametrosCotizacion `json:"parametros"`
	ID                   int                  `json:"id"`
	FechaCreacion        time.Time            `json:"fecha_creacion"`
	PorcentajeDevolucion float64              `json:"porcentaje_devolucion"`
	TasaImplicita        float64              `json:"tasa_implicita"`
	SumaAsegurada        float64              `json:"suma_asegurada"`
	Devolucion           float64              `json:"devolucion"`
	PrimaAnual           float64              `json:"prima_anual"`
	TablaDevolucion      TablaDevolucion      `json:"tabla_devolucion"`
}

// PlazoAnios returns the contract term in years.
func (c *Cotizacion) PlazoAnios() int {
	return len(c.TablaDevolucion)
}

// Policy is the unit of truth for one issued policy. It is self-contained:
// no references to other records.
type Policy struct {
	IDPoliza     int        `json:"id_poliza"`
	NumeroPoliza string     `json:"numero_poliza"`
	FechaEmision time.Time  `json:"fecha_emision"`
	Cliente      Cliente    `json:"cliente"`
	Cotizacion   Cotizacion `json:"cotizacion"`
	Status       string     `json:"status"`
}

// Validate checks the required-field invariants of a policy record.
func (p *Policy) Validate() error {
	if p.IDPoliza <= 0 {
		return fmt.Errorf("%w: id_poliza must be positive", ErrInvalidInput)
	}
	if err := p.Cliente.Validate(); err != nil {
		return err
	}
	if err := p.Cotizacion.Validate(); err != nil {
		return err
	}
	return nil
}

// Validate checks required client fields.
func (c *Cliente) Validate() error {
	switch {
	case c.DNI == "":
		return fmt.Errorf("%w: cliente.dni is required", ErrInvalidInput)
	case c.Nombre == "":
		return fmt.Errorf("%w: cliente.nombre is required", ErrInvalidInput)
	case c.FechaNacimiento == "":
		return fmt.Errorf("%w: cliente.fechaNacimiento is required", ErrInvalidInput)
	case c.Genero != GeneroMasculino && c.Genero != GeneroFemenino:
		return fmt.Errorf("%w: cliente.genero must be M or F", ErrInvalidInput)
	case c.Telefono == "":
		return fmt.Errorf("%w: cliente.telefono is required", ErrInvalidInput)
	case c.Correo == "":
		return fmt.Errorf("%w: cliente.correo is required", ErrInvalidInput)
	}
	return nil
}

// Validate checks required quotation fields.
func (c *Cotizacion) Validate() error {
	switch {
	case c.Producto == "":
		return fmt.Errorf("%w: cotizacion.producto is required", ErrInvalidInput)
	case len(c.TablaDevolucion) == 0:
		return fmt.Errorf("%w: cotizacion.tabla_devolucion is required", ErrInvalidInput)
	case len(c.TablaDevolucion) > MaxPlazoAnios:
		return fmt.Errorf("%w: cotizacion.tabla_devolucion exceeds %d years", ErrInvalidInput, MaxPlazoAnios)
	}
	return nil
}
