package payslip

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

// Default raster settings
const (
	DefaultDPI          = 300
	DefaultMaxDimension = 2000
)

// Rasterizer renders every page of a PDF to an encoded image, in page order
type Rasterizer interface {
	Rasterize(ctx context.Context, path string) ([][]byte, error)
}

// FitzRasterizer renders pages with MuPDF through go-fitz
type FitzRasterizer struct {
	dpi          float64
	maxDimension int
	logger       *zap.Logger
}

// NewFitzRasterizer creates a rasterizer. Zero values fall back to 300 DPI and 2000px.
func NewFitzRasterizer(dpi float64, maxDimension int, logger *zap.Logger) *FitzRasterizer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FitzRasterizer{dpi: dpi, maxDimension: maxDimension, logger: logger}
}

// Rasterize renders all pages as PNG. Any page failure fails the document.
func (r *FitzRasterizer) Rasterize(ctx context.Context, path string) ([][]byte, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	r.logger.Debug("Rasterizing PDF",
		zap.String("path", path),
		zap.Int("total_pages", pageCount),
		zap.Float64("dpi", r.dpi))

	images := make([][]byte, 0, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := doc.ImageDPI(pageNum, r.dpi)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", pageNum+1, err)
		}

		encoded, err := encodePNG(fitWithin(img, r.maxDimension))
		if err != nil {
			return nil, fmt.Errorf("failed to encode page %d: %w", pageNum+1, err)
		}
		images = append(images, encoded)
	}

	return images, nil
}

// fitWithin downscales img so that neither side exceeds maxDim. Smaller images are returned as is.
func fitWithin(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(max(w, h))
	dstW := max(1, int(float64(w)*scale))
	dstH := max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
