// Package ocr recognizes text on rasterized document pages.
//
// Two engines are available:
//   - tesseract: local recognition through gosseract, Italian language pack
//   - google_vision: Google Cloud Vision DOCUMENT_TEXT_DETECTION with an Italian language hint
//
// Engines are safe for concurrent use; the payslip extractor runs one Recognize call per page.
package ocr

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Engine names accepted in configuration
const (
	EngineTesseract    = "tesseract"
	EngineGoogleVision = "google_vision"
)

var (
	// ErrUnknownEngine is returned when the configured engine name is not recognized.
	ErrUnknownEngine = errors.New("unknown OCR engine")

	// ErrEmptyImage is returned when Recognize is called without image bytes.
	ErrEmptyImage = errors.New("empty page image")
)

// Engine recognizes the text of a single page image (PNG or JPEG bytes)
type Engine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
	Close() error
}

// Config selects and tunes the OCR engine
type Config struct {
	Engine                string `mapstructure:"engine"`
	Language              string `mapstructure:"language"` // tesseract language pack, e.g. "ita"
	TessdataPrefix        string `mapstructure:"tessdata_prefix"`
	GoogleCredentialsFile string `mapstructure:"google_credentials_file"`
}

// Error wraps an engine failure with the engine name
type Error struct {
	Engine string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ocr (%s): %v", e.Engine, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds the engine named in cfg
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Engine, error) {
	switch cfg.Engine {
	case EngineTesseract, "":
		return NewTesseractEngine(cfg, logger), nil
	case EngineGoogleVision:
		return NewVisionEngine(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.Engine)
	}
}
