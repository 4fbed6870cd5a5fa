package payslip

import (
	"errors"
	"fmt"
)

// Pipeline stages reported by ExtractionError
const (
	StagePreflight = "preflight"
	StageRasterize = "rasterize"
	StageOCR       = "ocr"
	StageParse     = "parse"
)

var (
	// ErrNoPages is returned when the PDF yields no page images.
	ErrNoPages = errors.New("document has no pages")

	// ErrNoText is returned when no text could be recognized on any page.
	ErrNoText = errors.New("no text recognized")
)

// ExtractionError identifies the pipeline stage that failed for a document.
// The extractor never returns a partial payslip together with it.
type ExtractionError struct {
	Stage string
	Path  string
	Err   error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("payslip extraction failed at %s stage for %s: %v", e.Stage, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func stageError(stage, path string, err error) *ExtractionError {
	return &ExtractionError{Stage: stage, Path: path, Err: err}
}
