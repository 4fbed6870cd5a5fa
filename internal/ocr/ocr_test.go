package ocr

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/status"
)

type mockAnnotator struct {
	mock.Mock
}

func (m *mockAnnotator) BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest) (*visionpb.BatchAnnotateImagesResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*visionpb.BatchAnnotateImagesResponse)
	return resp, args.Error(1)
}

func (m *mockAnnotator) Close() error {
	return m.Called().Error(0)
}

func TestVisionEngine_Recognize(t *testing.T) {
	annotator := new(mockAnnotator)
	annotator.On("BatchAnnotateImages", mock.Anything, mock.MatchedBy(func(req *visionpb.BatchAnnotateImagesRequest) bool {
		r := req.GetRequests()[0]
		return r.GetFeatures()[0].GetType() == visionpb.Feature_DOCUMENT_TEXT_DETECTION &&
			r.GetImageContext().GetLanguageHints()[0] == "it" &&
			string(r.GetImage().GetContent()) == "png-bytes"
	})).Return(&visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{
			{FullTextAnnotation: &visionpb.TextAnnotation{Text: "Retribuzione: 2.000,00"}},
		},
	}, nil)

	engine := newVisionEngine(annotator, zap.NewNop())
	text, err := engine.Recognize(context.Background(), []byte("png-bytes"))

	require.NoError(t, err)
	assert.Equal(t, "Retribuzione: 2.000,00", text)
	annotator.AssertExpectations(t)
}

func TestVisionEngine_RecognizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		resp    *visionpb.BatchAnnotateImagesResponse
		callErr error
	}{
		{"call failure", nil, errors.New("deadline exceeded")},
		{"empty response", &visionpb.BatchAnnotateImagesResponse{}, nil},
		{"page error", &visionpb.BatchAnnotateImagesResponse{
			Responses: []*visionpb.AnnotateImageResponse{{Error: &status.Status{Message: "bad image"}}},
		}, nil},
		{"no text", &visionpb.BatchAnnotateImagesResponse{
			Responses: []*visionpb.AnnotateImageResponse{{}},
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			annotator := new(mockAnnotator)
			annotator.On("BatchAnnotateImages", mock.Anything, mock.Anything).Return(tt.resp, tt.callErr)

			_, err := newVisionEngine(annotator, zap.NewNop()).Recognize(context.Background(), []byte("x"))

			var ocrErr *Error
			require.ErrorAs(t, err, &ocrErr)
			assert.Equal(t, EngineGoogleVision, ocrErr.Engine)
		})
	}
}

func TestEngines_RejectEmptyImage(t *testing.T) {
	engines := []Engine{
		NewTesseractEngine(Config{}, nil),
		newVisionEngine(new(mockAnnotator), nil),
	}
	for _, e := range engines {
		_, err := e.Recognize(context.Background(), nil)
		assert.ErrorIs(t, err, ErrEmptyImage)
	}
}

func TestNew_UnknownEngine(t *testing.T) {
	_, err := New(context.Background(), Config{Engine: "abbyy"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrUnknownEngine)
}

func TestNewTesseractEngine_DefaultLanguage(t *testing.T) {
	engine := NewTesseractEngine(Config{TessdataPrefix: "/usr/share/tessdata_best"}, zap.NewNop())
	assert.Equal(t, "ita", engine.language)
	assert.NoError(t, engine.Close())
}
