// Package huggingface implements the analysis provider for the Hugging Face inference API.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/garyjia/tax-document-analyzer/internal/analysis"
	"github.com/garyjia/tax-document-analyzer/internal/config"
	"github.com/garyjia/tax-document-analyzer/pkg/utils"
	"go.uber.org/zap"
)

// Defaults for an empty provider config
const (
	DefaultEndpoint = "https://api-inference.huggingface.co/models"
	DefaultModel    = "mistralai/Mistral-7B-Instruct-v0.3"
)

// Provider calls a text-generation model hosted on Hugging Face
type Provider struct {
	apiKey      string
	model       string
	endpoint    string
	temperature float32
	maxTokens   int
	client      *http.Client
	logger      *zap.Logger
}

// NewProvider creates a provider from config
func NewProvider(cfg *config.ProviderConfig, logger *zap.Logger) *Provider {
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return newProvider(cfg, endpoint, logger)
}

// NewProviderWithEndpoint creates a provider pointing at a custom API endpoint (for testing)
func NewProviderWithEndpoint(cfg *config.ProviderConfig, endpoint string, logger *zap.Logger) *Provider {
	return newProvider(cfg, endpoint, logger)
}

func newProvider(cfg *config.ProviderConfig, endpoint string, logger *zap.Logger) *Provider {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Provider{
		apiKey:      cfg.APIKey,
		model:       model,
		endpoint:    strings.TrimRight(endpoint, "/"),
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		// deadlines come from the caller's context
		client: &http.Client{},
		logger: utils.WithComponent(logger, "provider-huggingface"),
	}
}

// Name implements analysis.Provider
func (p *Provider) Name() string { return "huggingface" }

// Model implements analysis.Provider
func (p *Provider) Model() string { return p.model }

type generationRequest struct {
	Inputs     string               `json:"inputs"`
	Parameters generationParameters `json:"parameters"`
}

type generationParameters struct {
	Temperature    float32 `json:"temperature"`
	MaxNewTokens   int     `json:"max_new_tokens"`
	ReturnFullText bool    `json:"return_full_text"`
}

type generation struct {
	GeneratedText string `json:"generated_text"`
}

// SendPrompt implements analysis.Provider
func (p *Provider) SendPrompt(ctx context.Context, prompt string) (string, error) {
	bodyBytes, err := json.Marshal(generationRequest{
		Inputs: prompt,
		Parameters: generationParameters{
			Temperature:    p.temperature,
			MaxNewTokens:   p.maxTokens,
			ReturnFullText: false,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/"+p.model, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &analysis.ProviderError{Provider: p.Name(), Err: fmt.Errorf("calling huggingface API: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("huggingface API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 300))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := analysis.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return "", analysis.NewRateLimitError(p.Name(), baseErr, retryAfter)
		}
		return "", &analysis.ProviderError{Provider: p.Name(), StatusCode: resp.StatusCode, Err: baseErr}
	}

	var generations []generation
	if err := json.Unmarshal(respBody, &generations); err != nil {
		return "", &analysis.ProviderError{Provider: p.Name(), Err: fmt.Errorf("unmarshaling response: %w", err)}
	}
	if len(generations) == 0 {
		return "", &analysis.ProviderError{Provider: p.Name(), Err: errors.New("empty response: no generations")}
	}

	p.logger.Debug("Generation received",
		zap.String("model", p.model),
		zap.Int("chars", len(generations[0].GeneratedText)))

	return generations[0].GeneratedText, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
