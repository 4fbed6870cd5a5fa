package payslip

import (
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// TextLayerReader returns the embedded text of a digitally generated PDF
type TextLayerReader interface {
	Read(path string) (string, error)
}

// PDFTextLayer reads the text layer with ledongthuc/pdf
type PDFTextLayer struct{}

// Read returns the plain text of all pages. Scanned documents yield an empty string.
func (PDFTextLayer) Read(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract text layer: %w", err)
	}

	text, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("failed to read text layer: %w", err)
	}
	return string(text), nil
}
