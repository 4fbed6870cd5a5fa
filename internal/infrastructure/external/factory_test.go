package external

import (
	"context"
	"testing"

	"github.com/garyjia/tax-document-analyzer/internal/analysis"
	"github.com/garyjia/tax-document-analyzer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProviders(t *testing.T) {
	providers, err := NewProviders(config.ProvidersConfig{
		Primary:   config.ProviderConfig{Kind: "groq", APIKey: "gsk", Model: "llama-3.3-70b-versatile"},
		Secondary: config.ProviderConfig{Kind: "huggingface", APIKey: "hf"},
	}, zap.NewNop())

	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "groq", providers[0].Name())
	assert.Equal(t, "huggingface", providers[1].Name())
}

func TestNewProviders_SkipsMissingKeys(t *testing.T) {
	providers, err := NewProviders(config.ProvidersConfig{
		Primary:   config.ProviderConfig{Kind: "groq"},
		Secondary: config.ProviderConfig{Kind: "huggingface", APIKey: "hf"},
	}, nil)

	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, "huggingface", providers[0].Name())
}

func TestNewProvider_UnknownKind(t *testing.T) {
	_, err := NewProvider(&config.ProviderConfig{Kind: "bard", APIKey: "x"}, nil)
	assert.ErrorContains(t, err, "unknown provider kind")
}

func TestNewProvider_OpenAIKeepsCallerConfig(t *testing.T) {
	cfg := &config.ProviderConfig{Kind: "openai", APIKey: "sk", Model: "gpt-4o-mini"}
	p, err := NewProvider(cfg, nil)

	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, "gpt-4o-mini", p.Model())
	assert.Empty(t, cfg.BaseURL)
}

type echoProvider struct{ model string }

func (p *echoProvider) Name() string  { return "echo" }
func (p *echoProvider) Model() string { return p.model }
func (p *echoProvider) SendPrompt(_ context.Context, prompt string) (string, error) {
	return prompt, nil
}

func TestRegisterProvider(t *testing.T) {
	RegisterProvider("echo", func(cfg *config.ProviderConfig, _ *zap.Logger) (analysis.Provider, error) {
		return &echoProvider{model: cfg.Model}, nil
	})
	t.Cleanup(func() { delete(factories, "echo") })

	providers, err := NewProviders(config.ProvidersConfig{
		Primary:   config.ProviderConfig{Kind: "echo", APIKey: "k", Model: "local"},
		Secondary: config.ProviderConfig{Kind: "groq", APIKey: "gsk"},
	}, nil)

	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "echo", providers[0].Name())
	assert.Equal(t, "local", providers[0].Model())

	reply, err := providers[0].SendPrompt(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "ping", reply)
}
