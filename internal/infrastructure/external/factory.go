// Package external builds the language model providers named in configuration.
package external

import (
	"fmt"

	"github.com/garyjia/tax-document-analyzer/internal/analysis"
	"github.com/garyjia/tax-document-analyzer/internal/config"
	"github.com/garyjia/tax-document-analyzer/internal/infrastructure/external/huggingface"
	"github.com/garyjia/tax-document-analyzer/internal/infrastructure/external/openai"
	"go.uber.org/zap"
)

// ProviderFactory creates an analysis provider from its config
type ProviderFactory func(cfg *config.ProviderConfig, logger *zap.Logger) (analysis.Provider, error)

var factories = map[string]ProviderFactory{
	"groq": func(cfg *config.ProviderConfig, logger *zap.Logger) (analysis.Provider, error) {
		return openai.NewProvider("groq", cfg, logger), nil
	},
	"openai": func(cfg *config.ProviderConfig, logger *zap.Logger) (analysis.Provider, error) {
		c := *cfg
		if c.BaseURL == "" {
			c.BaseURL = "https://api.openai.com/v1"
		}
		return openai.NewProvider("openai", &c, logger), nil
	},
	"huggingface": func(cfg *config.ProviderConfig, logger *zap.Logger) (analysis.Provider, error) {
		return huggingface.NewProvider(cfg, logger), nil
	},
}

// RegisterProvider registers a provider factory by kind
func RegisterProvider(kind string, factory ProviderFactory) {
	factories[kind] = factory
}

// NewProvider creates a provider using the factory registered for cfg.Kind
func NewProvider(cfg *config.ProviderConfig, logger *zap.Logger) (analysis.Provider, error) {
	factory, ok := factories[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown provider kind: %q", cfg.Kind)
	}
	return factory(cfg, logger)
}

// NewProviders builds the failover chain, primary first.
// Providers without an API key are skipped.
func NewProviders(cfg config.ProvidersConfig, logger *zap.Logger) ([]analysis.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var providers []analysis.Provider
	for _, slot := range []struct {
		name string
		cfg  config.ProviderConfig
	}{
		{"primary", cfg.Primary},
		{"secondary", cfg.Secondary},
	} {
		if slot.cfg.Kind == "" {
			continue
		}
		if slot.cfg.APIKey == "" {
			logger.Warn("Provider has no API key, skipping",
				zap.String("slot", slot.name),
				zap.String("kind", slot.cfg.Kind))
			continue
		}
		p, err := NewProvider(&slot.cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("%s provider: %w", slot.name, err)
		}
		providers = append(providers, p)
	}
	return providers, nil
}
