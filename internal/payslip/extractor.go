// Package payslip extracts and checks payroll figures from scanned PDF payslips.
package payslip

import (
	"context"
	"strings"
	"time"

	"github.com/garyjia/tax-document-analyzer/internal/models"
	"github.com/garyjia/tax-document-analyzer/internal/ocr"
	"github.com/garyjia/tax-document-analyzer/internal/validation"
	"github.com/garyjia/tax-document-analyzer/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Text sources recorded on the extracted document
const (
	SourceOCR       = "ocr"
	SourceTextLayer = "text_layer"
)

// Extractor runs preflight, rasterization, OCR, field parsing and validation for one PDF.
// It keeps no per-document state and may be shared between goroutines.
type Extractor struct {
	preflight  Preflight
	rasterizer Rasterizer
	engine     ocr.Engine
	textLayer  TextLayerReader
	policy     validation.Policy
	workers    int
	logger     *zap.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithPreflight replaces the pdfcpu preflight
func WithPreflight(p Preflight) Option {
	return func(e *Extractor) { e.preflight = p }
}

// WithRasterizer replaces the go-fitz rasterizer
func WithRasterizer(r Rasterizer) Option {
	return func(e *Extractor) { e.rasterizer = r }
}

// WithTextLayer enables reading the embedded text layer before falling back to OCR
func WithTextLayer(r TextLayerReader) Option {
	return func(e *Extractor) { e.textLayer = r }
}

// WithWorkers bounds the number of pages recognized concurrently
func WithWorkers(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewExtractor creates a payslip extractor around an OCR engine
func NewExtractor(engine ocr.Engine, policy validation.Policy, logger *zap.Logger, opts ...Option) *Extractor {
	logger = utils.WithComponent(logger, "payslip-extractor")
	e := &Extractor{
		preflight:  PDFCPUPreflight{},
		rasterizer: NewFitzRasterizer(DefaultDPI, DefaultMaxDimension, logger),
		engine:     engine,
		policy:     policy,
		workers:    2,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract processes the PDF at path. Any stage failure returns an *ExtractionError and no document.
func (e *Extractor) Extract(ctx context.Context, path string) (*models.PayslipDocument, error) {
	start := time.Now()

	pageCount, err := e.preflight.Check(path)
	if err != nil {
		return nil, stageError(StagePreflight, path, err)
	}

	text, source, err := e.readText(ctx, path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, stageError(StageParse, path, ErrNoText)
	}

	data := ParseFields(text)
	report := Validate(&data, e.policy)

	e.logger.Info("Payslip extracted",
		zap.String("path", path),
		zap.Int("pages", pageCount),
		zap.String("text_source", source),
		zap.Int("warnings", len(report.Warnings)),
		zap.Duration("duration", time.Since(start)))

	return &models.PayslipDocument{
		RawText:    text,
		Parsed:     data,
		Validation: report,
		PageCount:  pageCount,
		TextSource: source,
	}, nil
}

// readText prefers a non-empty embedded text layer when enabled, otherwise runs OCR
func (e *Extractor) readText(ctx context.Context, path string) (string, string, error) {
	if e.textLayer != nil {
		text, err := e.textLayer.Read(path)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, SourceTextLayer, nil
		}
		if err != nil {
			e.logger.Warn("Text layer unreadable, falling back to OCR", zap.String("path", path), zap.Error(err))
		}
	}

	images, err := e.rasterizer.Rasterize(ctx, path)
	if err != nil {
		return "", "", stageError(StageRasterize, path, err)
	}
	if len(images) == 0 {
		return "", "", stageError(StageRasterize, path, ErrNoPages)
	}

	text, err := e.recognizePages(ctx, images)
	if err != nil {
		return "", "", stageError(StageOCR, path, err)
	}
	return text, SourceOCR, nil
}

// recognizePages runs OCR concurrently and joins page texts in page order
func (e *Extractor) recognizePages(ctx context.Context, images [][]byte) (string, error) {
	texts := make([]string, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, img := range images {
		g.Go(func() error {
			text, err := e.engine.Recognize(gctx, img)
			if err != nil {
				e.logger.Warn("OCR failed", zap.Int("page", i+1), zap.Error(err))
				return err
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	return strings.Join(texts, "\n"), nil
}
