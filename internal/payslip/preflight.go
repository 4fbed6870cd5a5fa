package payslip

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Preflight checks a PDF before any page is rendered and reports its page count
type Preflight interface {
	Check(path string) (int, error)
}

// PDFCPUPreflight validates the PDF structure with pdfcpu in relaxed mode
type PDFCPUPreflight struct{}

// Check validates the file and counts its pages
func (PDFCPUPreflight) Check(path string) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.ValidateFile(path, conf); err != nil {
		return 0, fmt.Errorf("invalid PDF: %w", err)
	}

	pages, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	if pages == 0 {
		return 0, ErrNoPages
	}
	return pages, nil
}
