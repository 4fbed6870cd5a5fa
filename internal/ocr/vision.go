package ocr

import (
	"context"
	"errors"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/garyjia/tax-document-analyzer/pkg/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// visionLanguageHint steers Cloud Vision towards Italian
const visionLanguageHint = "it"

// ErrNoText is returned when Cloud Vision finds no text on a page
var ErrNoText = errors.New("no text detected")

// imageAnnotator is the subset of the Vision client used here
type imageAnnotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

// visionClient adapts the generated client, whose methods take variadic call options
type visionClient struct {
	client *vision.ImageAnnotatorClient
}

func (c *visionClient) BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
	return c.client.BatchAnnotateImages(ctx, req)
}

func (c *visionClient) Close() error {
	return c.client.Close()
}

// VisionEngine runs Google Cloud Vision document text detection on page images
type VisionEngine struct {
	annotator imageAnnotator
	logger    *zap.Logger
}

// NewVisionEngine creates a Cloud Vision client. Without a credentials file the
// application default credentials are used.
func NewVisionEngine(ctx context.Context, cfg Config, logger *zap.Logger) (*VisionEngine, error) {
	var opts []option.ClientOption
	if cfg.GoogleCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, &Error{Engine: EngineGoogleVision, Err: fmt.Errorf("failed to create client: %w", err)}
	}

	return newVisionEngine(&visionClient{client: client}, logger), nil
}

func newVisionEngine(annotator imageAnnotator, logger *zap.Logger) *VisionEngine {
	return &VisionEngine{
		annotator: annotator,
		logger:    utils.WithComponent(logger, "ocr-vision"),
	}
}

// Recognize sends one page image to Cloud Vision
func (e *VisionEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", &Error{Engine: EngineGoogleVision, Err: ErrEmptyImage}
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: image},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{
					LanguageHints: []string{visionLanguageHint},
				},
			},
		},
	}

	resp, err := e.annotator.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", &Error{Engine: EngineGoogleVision, Err: fmt.Errorf("vision API call failed: %w", err)}
	}
	if len(resp.GetResponses()) == 0 {
		return "", &Error{Engine: EngineGoogleVision, Err: errors.New("no response from vision API")}
	}

	page := resp.GetResponses()[0]
	if page.GetError() != nil {
		return "", &Error{Engine: EngineGoogleVision, Err: fmt.Errorf("vision API error: %s", page.GetError().GetMessage())}
	}
	if page.GetFullTextAnnotation() == nil {
		return "", &Error{Engine: EngineGoogleVision, Err: ErrNoText}
	}

	text := page.GetFullTextAnnotation().GetText()
	e.logger.Debug("Page recognized", zap.Int("text_length", len(text)))
	return text, nil
}

// Close releases the Vision client
func (e *VisionEngine) Close() error {
	if e.annotator != nil {
		return e.annotator.Close()
	}
	return nil
}
