// Package openai implements the analysis provider for OpenAI-compatible chat completion APIs.
// Groq is the default endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/garyjia/tax-document-analyzer/internal/analysis"
	"github.com/garyjia/tax-document-analyzer/internal/config"
	"github.com/garyjia/tax-document-analyzer/pkg/utils"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Defaults for an empty provider config
const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
)

const systemMessage = "Sei un consulente fiscale italiano esperto. Rispondi sempre con un oggetto JSON valido racchiuso tra ```json e ```."

// Provider sends prompts to a chat completion endpoint
type Provider struct {
	name        string
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	jsonMode    bool
	logger      *zap.Logger
}

// NewProvider creates a provider from config. name is reported in analysis metadata.
func NewProvider(name string, cfg *config.ProviderConfig, logger *zap.Logger) *Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return newProvider(name, cfg, baseURL, http.DefaultClient, logger)
}

// NewProviderWithEndpoint creates a provider pointing at a custom base URL (for testing)
func NewProviderWithEndpoint(name string, cfg *config.ProviderConfig, baseURL string, logger *zap.Logger) *Provider {
	return newProvider(name, cfg, baseURL, http.DefaultClient, logger)
}

func newProvider(name string, cfg *config.ProviderConfig, baseURL string, httpClient *http.Client, logger *zap.Logger) *Provider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(baseURL, "/")
	clientCfg.HTTPClient = httpClient

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Provider{
		name:        name,
		client:      openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		jsonMode:    cfg.JSONMode,
		logger:      utils.WithComponent(logger, "provider-"+name),
	}
}

// Name implements analysis.Provider
func (p *Provider) Name() string { return p.name }

// Model implements analysis.Provider
func (p *Provider) Model() string { return p.model }

// SendPrompt implements analysis.Provider
func (p *Provider) SendPrompt(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemMessage,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}
	// Not every OpenAI-compatible backend accepts response_format
	if p.jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", p.classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", &analysis.ProviderError{Provider: p.name, Err: errors.New("no choices in response")}
	}

	p.logger.Debug("Chat completion received",
		zap.String("model", p.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)))

	return resp.Choices[0].Message.Content, nil
}

// classify maps client errors to provider errors, 429 to a rate limit
func (p *Provider) classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	if status == http.StatusTooManyRequests {
		return analysis.NewRateLimitError(p.name, err, 0)
	}
	return &analysis.ProviderError{
		Provider:   p.name,
		StatusCode: status,
		Err:        fmt.Errorf("chat completion failed: %w", err),
	}
}
