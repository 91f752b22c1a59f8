package services

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"rumbia-backend/internal/config"
	"rumbia-backend/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testPolicy() *domain.Policy {
	return &domain.Policy{
		IDPoliza:     7,
		NumeroPoliza: "RumbIA007",
		FechaEmision: time.Date(2019, 3, 15, 10, 30, 0, 0, time.UTC),
		Cliente: domain.Cliente{
			DNI:             "45678912",
			Nombre:          "María Quispe",
			FechaNacimiento: "12/05/1990",
			Genero:          domain.GeneroFemenino,
			Telefono:        "987654321",
			Correo:          "maria@example.com",
		},
		Cotizacion: domain.Cotizacion{
			Producto:             "Rumbo Devolución",
			Parametros:           domain.ParametrosCotizacion{EdadActuarial: 35, Sexo: "F", Prima: 120},
			PrimaAnual:           1200,
			SumaAsegurada:        50000,
			Devolucion:           8400,
			TasaImplicita:        0.045678,
			PorcentajeDevolucion: 0.85,
			TablaDevolucion:      domain.TablaDevolucion{10, 25, 45, 60, 75, 90, 100},
		},
		Status: domain.StatusActiva,
	}
}

func newTestDocumentService(cfg config.PolicyConfig, conv Converter) *DocumentService {
	return NewDocumentService(cfg, conv, zap.NewNop())
}

func TestBuildPlaceholdersValues(t *testing.T) {
	s := newTestDocumentService(config.PolicyConfig{}, nil)
	m := s.BuildPlaceholders(testPolicy())

	assert.Equal(t, "RumbIA007", m["numeroPoliza"])
	assert.Equal(t, "45678912", m["clienteNumeroDocumento"])
	assert.Equal(t, "María Quispe", m["clienteNombre"])
	assert.Equal(t, "MARÍA QUISPE", m["clienteNombreUpper"])
	assert.Equal(t, "Femenino", m["clienteGenero"])
	assert.Equal(t, "35", m["clienteEdadActuarial"])
	assert.Equal(t, "Mensual", m["periodoPagoPrimas"])

	assert.Equal(t, "15/03/2019", m["fechaEmisionPoliza"])
	assert.Equal(t, "15/03/2019 10:30:00", m["fechaHoraEmisionPoliza"])
	assert.Equal(t, "15/03/2019 00:00:00", m["fechaHoraInicioVigencia"])
	assert.Equal(t, "31/03/2026 23:59:59", m["fechaHoraFinVigencia"],
		"coverage ends on the last day of the issuance month, seven years later")

	assert.Equal(t, "15", m["diaEmisionPolizaFirma"])
	assert.Equal(t, "marzo", m["mesEmisionPolizaFirma"])
	assert.Equal(t, "2019", m["anioEmisionPolizaFirma"])

	assert.Equal(t, "S/ 50,000.00", m["sumaAsegurada"])
	assert.Equal(t, "S/ 1,200.00", m["primaAnual"])
	assert.Equal(t, "S/ 120.00", m["primaMensual"])
	assert.Equal(t, "S/ 8,400.00", m["devolucion"])
	assert.Equal(t, "4.5678%", m["tasaImplicita"])
	assert.Equal(t, "85.00%", m["porcentajeDevolucion"])

	assert.Equal(t, "4.5678%", m["tasaAnualCobPrincipal"])
	assert.Equal(t, "S/ 1,200.00", m["primaComercialAnual"])
	assert.Equal(t, "S/ 120.00", m["primaComercialXFrecuenciaPago"])
	assert.Equal(t, "S/ 120.00", m["primaComercialConIGV"])

	assert.Equal(t, "7", m["plazoVigencia"])
	assert.Equal(t, "7", m["plazoDevolucionAnticipada"])
	assert.Equal(t, "siete", m["plazoDevolucionAnticipadaLetras"])
}

func TestBuildPlaceholdersRefundSlotsAreTotal(t *testing.T) {
	s := newTestDocumentService(config.PolicyConfig{}, nil)
	p := testPolicy()
	m := s.BuildPlaceholders(p)

	term := len(p.Cotizacion.TablaDevolucion)
	for i := 1; i <= domain.MaxPlazoAnios; i++ {
		anio, okAnio := m["devolucionAnio"+strconv.Itoa(i)]
		pje, okPje := m["devolucionPriPje"+strconv.Itoa(i)]
		require.True(t, okAnio, "slot %d year missing", i)
		require.True(t, okPje, "slot %d percentage missing", i)

		if i <= term {
			assert.Equal(t, strconv.Itoa(i), anio)
			assert.Equal(t, fmt.Sprintf("%.2f%%", p.Cotizacion.TablaDevolucion[i-1]), pje)
		} else {
			assert.Empty(t, anio)
			assert.Empty(t, pje)
		}
	}

	assert.Equal(t, "10.00%", m["devolucionPriPje1"])
	assert.Equal(t, "100.00%", m["devolucionPriPje7"])
}

func TestBuildPlaceholdersTwoYearTerm(t *testing.T) {
	s := newTestDocumentService(config.PolicyConfig{}, nil)
	p := &domain.Policy{
		IDPoliza:     1,
		FechaEmision: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
		Cliente:      testPolicy().Cliente,
		Cotizacion: domain.Cotizacion{
			Producto:        "Rumbo Devolución",
			PrimaAnual:      1200,
			TablaDevolucion: domain.TablaDevolucion{3.5, 4.0},
		},
	}

	m := s.BuildPlaceholders(p)
	assert.Equal(t, "S/ 120.00", m["primaComercialXFrecuenciaPago"])
	assert.Equal(t, "1", m["devolucionAnio1"])
	assert.Equal(t, "3.50%", m["devolucionPriPje1"])
	assert.Equal(t, "2", m["devolucionAnio2"])
	assert.Equal(t, "4.00%", m["devolucionPriPje2"])
	assert.Empty(t, m["devolucionAnio3"])
	assert.Empty(t, m["devolucionPriPje3"])
	assert.Equal(t, "31/03/2026 23:59:59", m["fechaHoraFinVigencia"])
	assert.Equal(t, "dos", m["plazoDevolucionAnticipadaLetras"])
}

func TestBuildPlaceholdersUncommonTermInDigits(t *testing.T) {
	s := newTestDocumentService(config.PolicyConfig{}, nil)
	p := testPolicy()
	p.Cotizacion.TablaDevolucion = make(domain.TablaDevolucion, 25)

	m := s.BuildPlaceholders(p)
	assert.Equal(t, "25", m["plazoDevolucionAnticipadaLetras"],
		"terms with no word form render as digits")
}

func TestEndOfCoverage(t *testing.T) {
	tests := []struct {
		emision time.Time
		years   int
		want    string
	}{
		{time.Date(2019, 3, 15, 10, 30, 0, 0, time.UTC), 7, "31/03/2026 23:59:59"},
		{time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), 1, "28/02/2025 23:59:59"},
		{time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), 1, "29/02/2024 23:59:59"},
		{time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC), 10, "31/12/2035 23:59:59"},
		{time.Date(2025, 4, 30, 12, 0, 0, 0, time.UTC), 1, "30/04/2026 23:59:59"},
	}

	for _, tt := range tests {
		got := endOfCoverage(tt.emision, tt.years)
		assert.Equal(t, tt.want, formatFechaHora(got))
	}
}

func TestSoles(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "S/ 0.00"},
		{0.5, "S/ 0.50"},
		{120, "S/ 120.00"},
		{1234.56, "S/ 1,234.56"},
		{50000, "S/ 50,000.00"},
		{1000000, "S/ 1,000,000.00"},
		{999.999, "S/ 1,000.00"},
		{-1234.5, "S/ -1,234.50"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, soles(tt.in), "soles(%v)", tt.in)
	}
}

func TestPorcentaje(t *testing.T) {
	assert.Equal(t, "4.5678%", porcentaje(0.045678, 4))
	assert.Equal(t, "85.00%", porcentaje(0.85, 2))
	assert.Equal(t, "100.00%", porcentaje(1.0, 2))
	assert.Equal(t, "0.0000%", porcentaje(0, 4))
}

func TestDocumentBaseName(t *testing.T) {
	s := newTestDocumentService(config.PolicyConfig{}, nil)
	assert.Equal(t, "RumbIA007_Condicionado_Particular", s.DocumentBaseName(7))
}

// writeTemplate builds a minimal .docx with the given body paragraphs.
func writeTemplate(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "plantilla.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `</w:body></w:document>`,
	}
	for name, content := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}

// fakeConverter satisfies Converter for pipeline tests.
type fakeConverter struct {
	fail bool
}

func (c *fakeConverter) Convert(ctx context.Context, wordPath string) (string, error) {
	if c.fail {
		return "", domain.ErrConversionFailed
	}
	pdfPath := wordPath[:len(wordPath)-len(".docx")] + ".pdf"
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4"), 0o644); err != nil {
		return "", err
	}
	return pdfPath, nil
}

func pipelineConfig(t *testing.T, deletePolicy string) config.PolicyConfig {
	return config.PolicyConfig{
		TemplatePath: writeTemplate(t,
			`<w:p><w:r><w:t>Póliza «numeroPoliza» de «clienteNombre»</w:t></w:r></w:p>`),
		DocumentsDir: filepath.Join(t.TempDir(), "documentos"),
		DeletePolicy: deletePolicy,
	}
}

func TestGenerateConversionSuccessRemovesWord(t *testing.T) {
	cfg := pipelineConfig(t, config.DeletePolicyPDFOnly)
	s := newTestDocumentService(cfg, &fakeConverter{})

	got, err := s.Generate(context.Background(), testPolicy())
	require.NoError(t, err)

	assert.Empty(t, got.WordPath)
	require.NotEmpty(t, got.PDFPath)
	assert.Equal(t, "RumbIA007_Condicionado_Particular.pdf", filepath.Base(got.PDFPath))

	_, err = os.Stat(filepath.Join(cfg.DocumentsDir, "RumbIA007_Condicionado_Particular.docx"))
	assert.True(t, os.IsNotExist(err), "intermediate .docx is removed after conversion")
}

func TestGenerateConversionFailurePDFOnly(t *testing.T) {
	cfg := pipelineConfig(t, config.DeletePolicyPDFOnly)
	s := newTestDocumentService(cfg, &fakeConverter{fail: true})

	got, err := s.Generate(context.Background(), testPolicy())
	require.NoError(t, err, "conversion failure degrades, it does not abort")

	assert.Empty(t, got.PDFPath)
	assert.Empty(t, got.WordPath, "pdf-only never exposes the .docx as deliverable")

	_, statErr := os.Stat(filepath.Join(cfg.DocumentsDir, "RumbIA007_Condicionado_Particular.docx"))
	assert.NoError(t, statErr, "the .docx stays on disk for operators")
}

func TestGenerateConversionFailureKeepOnFailure(t *testing.T) {
	cfg := pipelineConfig(t, config.DeletePolicyKeepOnFailure)
	s := newTestDocumentService(cfg, &fakeConverter{fail: true})

	got, err := s.Generate(context.Background(), testPolicy())
	require.NoError(t, err)

	assert.Empty(t, got.PDFPath)
	require.NotEmpty(t, got.WordPath, "keep-on-failure hands out the .docx instead")
	_, statErr := os.Stat(got.WordPath)
	assert.NoError(t, statErr)
}

func TestGenerateWithoutConverterKeepsWord(t *testing.T) {
	cfg := pipelineConfig(t, config.DeletePolicyPDFOnly)
	s := newTestDocumentService(cfg, nil)

	got, err := s.Generate(context.Background(), testPolicy())
	require.NoError(t, err)

	assert.Empty(t, got.PDFPath)
	assert.NotEmpty(t, got.WordPath)
}

func TestGenerateReportsUnresolvedMarkers(t *testing.T) {
	cfg := config.PolicyConfig{
		TemplatePath: writeTemplate(t,
			`<w:p><w:r><w:t>«numeroPoliza» «marcadorHuerfano»</w:t></w:r></w:p>`),
		DocumentsDir: filepath.Join(t.TempDir(), "documentos"),
		DeletePolicy: config.DeletePolicyPDFOnly,
	}
	s := newTestDocumentService(cfg, nil)

	got, err := s.Generate(context.Background(), testPolicy())
	require.NoError(t, err)
	assert.Equal(t, []string{"marcadorHuerfano"}, got.Unresolved)
}

func TestGenerateTemplateNotFound(t *testing.T) {
	cfg := config.PolicyConfig{
		TemplatePath: filepath.Join(t.TempDir(), "no_existe.docx"),
		DocumentsDir: t.TempDir(),
	}
	s := newTestDocumentService(cfg, nil)

	_, err := s.Generate(context.Background(), testPolicy())
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}
