package ocr

import (
	"context"
	"fmt"

	"github.com/garyjia/tax-document-analyzer/pkg/utils"
	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

// TesseractEngine runs Tesseract through gosseract.
//
// Pages are recognized as a single uniform block of text. gosseract has no engine-mode
// setter; LSTM-only recognition is obtained by pointing TessdataPrefix at the tessdata_best
// models, which carry no legacy engine data.
type TesseractEngine struct {
	language       string
	tessdataPrefix string
	logger         *zap.Logger
}

// NewTesseractEngine creates a Tesseract engine. Language defaults to "ita".
func NewTesseractEngine(cfg Config, logger *zap.Logger) *TesseractEngine {
	language := cfg.Language
	if language == "" {
		language = "ita"
	}
	return &TesseractEngine{
		language:       language,
		tessdataPrefix: cfg.TessdataPrefix,
		logger:         utils.WithComponent(logger, "ocr-tesseract"),
	}
}

// Recognize runs OCR on one page image.
// A client is created per call; gosseract clients must not be shared between goroutines.
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", &Error{Engine: EngineTesseract, Err: ErrEmptyImage}
	}
	if err := ctx.Err(); err != nil {
		return "", &Error{Engine: EngineTesseract, Err: err}
	}

	client := gosseract.NewClient()
	defer client.Close()

	if e.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(e.tessdataPrefix); err != nil {
			return "", &Error{Engine: EngineTesseract, Err: fmt.Errorf("failed to set tessdata prefix: %w", err)}
		}
	}
	if err := client.SetLanguage(e.language); err != nil {
		return "", &Error{Engine: EngineTesseract, Err: fmt.Errorf("failed to set language: %w", err)}
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", &Error{Engine: EngineTesseract, Err: fmt.Errorf("failed to set page segmentation mode: %w", err)}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", &Error{Engine: EngineTesseract, Err: fmt.Errorf("failed to set image: %w", err)}
	}

	text, err := client.Text()
	if err != nil {
		return "", &Error{Engine: EngineTesseract, Err: fmt.Errorf("failed to extract text: %w", err)}
	}

	e.logger.Debug("Page recognized", zap.Int("image_bytes", len(image)), zap.Int("text_length", len(text)))
	return text, nil
}

// Close is a no-op; clients are released after each page.
func (e *TesseractEngine) Close() error {
	return nil
}
