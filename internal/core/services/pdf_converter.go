package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"rumbia-backend/internal/core/domain"
)

// Converter turns a rendered .docx into a PDF. Implementations are external
// collaborators: failures are expected and degrade the issuance result.
type Converter interface {
	Convert(ctx context.Context, wordPath string) (string, error)
}

// LibreOfficeConverter shells out to a headless LibreOffice. The PDF lands
// next to the source document with the same stem.
type LibreOfficeConverter struct {
	binary  string
	timeout time.Duration
}

// NewLibreOfficeConverter creates a converter using the given soffice binary.
func NewLibreOfficeConverter(binary string, timeout time.Duration) *LibreOfficeConverter {
	if binary == "" {
		binary = "soffice"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &LibreOfficeConverter{binary: binary, timeout: timeout}
}

// Convert runs the conversion with an explicit timeout.
func (c *LibreOfficeConverter) Convert(ctx context.Context, wordPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binary,
		"--headless",
		"--convert-to", "pdf",
		"--outdir", filepath.Dir(wordPath),
		wordPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v (%s)", domain.ErrConversionFailed, c.binary, err, strings.TrimSpace(string(out)))
	}

	pdfPath := strings.TrimSuffix(wordPath, filepath.Ext(wordPath)) + ".pdf"
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("%w: converter produced no output at %s", domain.ErrConversionFailed, pdfPath)
	}
	return pdfPath, nil
}
