package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"rumbia-backend/internal/config"
	"rumbia-backend/internal/core/domain"
	"rumbia-backend/internal/pkg/docx"

	"go.uber.org/zap"
)

// documentSuffix is the contract document name stem appended to the
// sequential policy number.
const documentSuffix = "_Condicionado_Particular"

// mesesEspanol is the fixed lowercase month list used by the signature
// placeholder triple.
var mesesEspanol = [12]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// numerosEnLetras covers the contract terms sold in practice. Any other
// term renders as its decimal digits.
var numerosEnLetras = map[int]string{
	1: "uno", 2: "dos", 3: "tres", 4: "cuatro", 5: "cinco",
	6: "seis", 7: "siete", 8: "ocho", 9: "nueve", 10: "diez",
	11: "once", 12: "doce", 13: "trece", 14: "catorce", 15: "quince",
	16: "dieciséis", 17: "diecisiete", 18: "dieciocho", 19: "diecinueve", 20: "veinte",
	30: "treinta", 40: "cuarenta", 50: "cincuenta", 60: "sesenta",
}

// GeneratedDocument reports the outcome of one document pipeline run.
type GeneratedDocument struct {
	WordPath   string // empty when the .docx was removed or withheld by policy
	PDFPath    string // empty when conversion failed or was disabled
	Unresolved []string
}

// DocumentService renders the contract document for a policy: placeholder
// resolution, template substitution, PDF conversion and artifact cleanup.
type DocumentService struct {
	cfg       config.PolicyConfig
	converter Converter
	delims    docx.Delimiters
	logger    *zap.Logger
}

// NewDocumentService creates a new document service.
func NewDocumentService(cfg config.PolicyConfig, converter Converter, logger *zap.Logger) *DocumentService {
	return &DocumentService{
		cfg:       cfg,
		converter: converter,
		delims:    docx.DefaultDelimiters,
		logger:    logger,
	}
}

// BuildPlaceholders maps a policy record to the template's marker values.
// Pure: every value is a function of the record alone.
func (s *DocumentService) BuildPlaceholders(p *domain.Policy) map[string]string {
	emision := p.FechaEmision
	numeroSecuencial := domain.SequentialNumber(p.IDPoliza)

	inicioVigencia := time.Date(emision.Year(), emision.Month(), emision.Day(), 0, 0, 0, 0, emision.Location())
	finVigencia := endOfCoverage(emision, p.Cotizacion.PlazoAnios())

	genero := "Femenino"
	if p.Cliente.Genero == domain.GeneroMasculino {
		genero = "Masculino"
	}

	primaAnual := p.Cotizacion.PrimaAnual
	// Ten payments per year is the fixed business assumption; insurance is
	// IGV-exempt, so the with-tax amount equals the per-payment amount.
	primaXFrecuencia := primaAnual / 10
	primaConIGV := primaXFrecuencia

	plazo := p.Cotizacion.PlazoAnios()
	plazoLetras, ok := numerosEnLetras[plazo]
	if !ok {
		plazoLetras = strconv.Itoa(plazo)
	}

	m := map[string]string{
		"numeroPoliza": numeroSecuencial,

		"clienteNumeroDocumento": p.Cliente.DNI,
		"clienteNombre":          p.Cliente.Nombre,
		"clienteNombreUpper":     strings.ToUpper(p.Cliente.Nombre),
		"clienteFechaNacimiento": p.Cliente.FechaNacimiento,
		"clienteGenero":          genero,
		"clienteTelefono":        p.Cliente.Telefono,
		"clienteEmail":           p.Cliente.Correo,

		"clienteEdadActuarial": strconv.Itoa(p.Cotizacion.Parametros.EdadActuarial),
		"periodoPagoPrimas":    "Mensual",

		"fechaEmisionPoliza":     formatFecha(emision),
		"fechaHoraEmisionPoliza": formatFechaHora(emision),

		"fechaHoraInicioVigencia": formatFechaHora(inicioVigencia),
		"fechaHoraFinVigencia":    formatFechaHora(finVigencia),

		"diaEmisionPolizaFirma":  strconv.Itoa(emision.Day()),
		"mesEmisionPolizaFirma":  mesesEspanol[emision.Month()-1],
		"anioEmisionPolizaFirma": strconv.Itoa(emision.Year()),

		"sumaAsegurada":        soles(p.Cotizacion.SumaAsegurada),
		"primaAnual":           soles(primaAnual),
		"primaMensual":         soles(p.Cotizacion.Parametros.Prima),
		"devolucion":           soles(p.Cotizacion.Devolucion),
		"producto":             p.Cotizacion.Producto,
		"tasaImplicita":        porcentaje(p.Cotizacion.TasaImplicita, 4),
		"porcentajeDevolucion": porcentaje(p.Cotizacion.PorcentajeDevolucion, 2),

		"tasaAnualCobPrincipal":         porcentaje(p.Cotizacion.TasaImplicita, 4),
		"primaComercialAnualPrincipal":  soles(primaAnual),
		"primaComercialAnualTotal":      soles(primaAnual),
		"primaComercialAnual":           soles(primaAnual),
		"primaComercialXFrecuenciaPago": soles(primaXFrecuencia),
		"primaComercialConIGV":          soles(primaConIGV),

		"plazoVigencia":                   strconv.Itoa(plazo),
		"plazoDevolucionAnticipada":       strconv.Itoa(plazo),
		"plazoDevolucionAnticipadaLetras": plazoLetras,
	}

	// The template carries a fixed grid of 52 yearly slots. Every slot gets
	// a defined value: real year/percentage pairs up to the contract term,
	// explicit empty strings after it.
	for i := 1; i <= domain.MaxPlazoAnios; i++ {
		anio := "devolucionAnio" + strconv.Itoa(i)
		pje := "devolucionPriPje" + strconv.Itoa(i)
		if i <= len(p.Cotizacion.TablaDevolucion) {
			m[anio] = strconv.Itoa(i)
			m[pje] = fmt.Sprintf("%.2f%%", p.Cotizacion.TablaDevolucion[i-1])
		} else {
			m[anio] = ""
			m[pje] = ""
		}
	}

	return m
}

// Generate runs the full document pipeline for a policy: resolve markers,
// render the template, persist the .docx, convert to PDF and apply the
// configured deletion policy. Conversion failure degrades the result and
// never aborts the render.
func (s *DocumentService) Generate(ctx context.Context, p *domain.Policy) (*GeneratedDocument, error) {
	markers := s.BuildPlaceholders(p)

	doc, err := docx.Open(s.cfg.TemplatePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, s.cfg.TemplatePath)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrRenderFailed, err)
	}

	replaced := doc.Replace(markers, s.delims)
	if len(replaced.Unresolved) > 0 {
		s.logger.Warn("template markers left unresolved",
			zap.Int("id_poliza", p.IDPoliza),
			zap.Strings("marcadores", replaced.Unresolved))
	}

	if err := os.MkdirAll(s.cfg.DocumentsDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRenderFailed, err)
	}
	wordPath := filepath.Join(s.cfg.DocumentsDir, s.DocumentBaseName(p.IDPoliza)+".docx")
	if err := doc.SaveAs(wordPath); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRenderFailed, err)
	}

	result := &GeneratedDocument{WordPath: wordPath, Unresolved: replaced.Unresolved}
	if s.converter == nil {
		return result, nil
	}

	pdfPath, err := s.converter.Convert(ctx, wordPath)
	if err != nil {
		s.logger.Warn("pdf conversion failed, keeping word artifact",
			zap.Int("id_poliza", p.IDPoliza), zap.Error(err))
		if s.cfg.DeletePolicy == config.DeletePolicyPDFOnly {
			// The .docx stays on disk for operators but is not a deliverable.
			result.WordPath = ""
		}
		return result, nil
	}

	result.PDFPath = pdfPath
	if err := os.Remove(wordPath); err != nil {
		s.logger.Warn("could not remove intermediate word artifact",
			zap.String("ruta", wordPath), zap.Error(err))
	} else {
		result.WordPath = ""
	}
	return result, nil
}

// DocumentBaseName returns the document file stem for a policy id
// (RumbIA007_Condicionado_Particular).
func (s *DocumentService) DocumentBaseName(id int) string {
	return domain.SequentialNumber(id) + documentSuffix
}

// endOfCoverage is the last calendar day of the month `years` after the
// issuance date, at 23:59:59.
func endOfCoverage(emision time.Time, years int) time.Time {
	// Day 0 of the following month normalizes to that month's last day.
	return time.Date(emision.Year()+years, emision.Month()+1, 0, 23, 59, 59, 0, emision.Location())
}

func formatFecha(t time.Time) string {
	return t.Format("02/01/2006")
}

func formatFechaHora(t time.Time) string {
	return t.Format("02/01/2006 15:04:05")
}

// soles renders a currency amount as `S/ 1,234.56`.
func soles(v float64) string {
	return "S/ " + agrupar(v)
}

// porcentaje renders a fraction as a percentage with fixed decimals.
func porcentaje(v float64, decimals int) string {
	return strconv.FormatFloat(v*100, 'f', decimals, 64) + "%"
}

// agrupar formats v with two decimals and thousands separators.
func agrupar(v float64) string {
	neg := math.Signbit(v)
	fixed := strconv.FormatFloat(math.Abs(v), 'f', 2, 64)

	intPart := fixed[:len(fixed)-3]
	frac := fixed[len(fixed)-3:]

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	lead := len(intPart) % 3
	if lead > 0 {
		sb.WriteString(intPart[:lead])
		if len(intPart) > lead {
			sb.WriteByte(',')
		}
	}
	for i := lead; i < len(intPart); i += 3 {
		sb.WriteString(intPart[i : i+3])
		if i+3 < len(intPart) {
			sb.WriteByte(',')
		}
	}
	sb.WriteString(frac)
	return sb.String()
}
