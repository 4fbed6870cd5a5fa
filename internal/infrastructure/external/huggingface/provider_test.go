package huggingface

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/garyjia/tax-document-analyzer/internal/analysis"
	"github.com/garyjia/tax-document-analyzer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProvider(serverURL string) *Provider {
	return NewProviderWithEndpoint(&config.ProviderConfig{
		Kind:        "huggingface",
		APIKey:      "hf-test",
		Model:       "mistralai/Mistral-7B-Instruct-v0.3",
		Temperature: 0.1,
		MaxTokens:   512,
	}, serverURL, zap.NewNop())
}

func TestProvider_SendPrompt_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mistralai/Mistral-7B-Instruct-v0.3", r.URL.Path)
		assert.Equal(t, "Bearer hf-test", r.Header.Get("Authorization"))

		var body generationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "analizza", body.Inputs)
		assert.Equal(t, 512, body.Parameters.MaxNewTokens)
		assert.False(t, body.Parameters.ReturnFullText)

		_, _ = w.Write([]byte(`[{"generated_text": "{\"summary\": \"ok\"}"}]`))
	}))
	defer server.Close()

	text, err := newTestProvider(server.URL).SendPrompt(context.Background(), "analizza")
	require.NoError(t, err)
	assert.Equal(t, `{"summary": "ok"}`, text)
}

func TestProvider_SendPrompt_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "15")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestProvider(server.URL).SendPrompt(context.Background(), "x")

	var rlErr *analysis.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	assert.Equal(t, 15*time.Second, rlErr.RetryAfter)
}

func TestProvider_SendPrompt_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"model loading", http.StatusServiceUnavailable, `{"error":"Model is currently loading"}`, "status 503"},
		{"not a list", http.StatusOK, `{"generated_text": "x"}`, "unmarshaling response"},
		{"empty list", http.StatusOK, `[]`, "no generations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestProvider(server.URL).SendPrompt(context.Background(), "x")
			var provErr *analysis.ProviderError
			require.True(t, errors.As(err, &provErr))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestProvider_SendPrompt_HonoursContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestProvider(server.URL).SendPrompt(ctx, "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
