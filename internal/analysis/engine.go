// Package analysis produces advisory tax assessments of parsed documents using
// hosted language models, with provider failover, a response cache and an
// offline rule-based fallback.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/garyjia/tax-document-analyzer/internal/models"
	"github.com/garyjia/tax-document-analyzer/internal/validation"
	"github.com/garyjia/tax-document-analyzer/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Defaults applied when Config leaves a value unset
const (
	DefaultCacheTTL = time.Hour
	DefaultTimeout  = 30 * time.Second
)

// Config holds engine settings
type Config struct {
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	Timeout     time.Duration `mapstructure:"timeout"` // per provider call
	PromptsPath string        `mapstructure:"prompts_path"`
}

// Stats are process-local counters since the engine was created
type Stats struct {
	Requests  int64   `json:"requests"`
	Errors    int64   `json:"errors"`
	CacheHits int64   `json:"cache_hits"`
	ErrorRate float64 `json:"error_rate"`
}

// Engine analyzes invoices and payslips. It is safe for concurrent use.
type Engine struct {
	providers []Provider
	circuits  []*circuit
	prompts   *PromptConfig
	policy    validation.Policy
	timeout   time.Duration
	cache     *resultCache
	flights   singleflight.Group
	logger    *zap.Logger

	requests  atomic.Int64
	errors    atomic.Int64
	cacheHits atomic.Int64
}

// NewEngine creates an engine. Providers are tried in order; the first is the primary.
// A nil prompt config uses the built-in prompts.
func NewEngine(providers []Provider, prompts *PromptConfig, policy validation.Policy, cfg Config, logger *zap.Logger) *Engine {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	circuits := make([]*circuit, len(providers))
	for i := range circuits {
		circuits[i] = &circuit{}
	}

	logger = utils.WithComponent(logger, "analysis-engine")
	if len(providers) == 0 {
		logger.Warn("No language model providers configured, analyses will use offline rules")
	}

	return &Engine{
		providers: providers,
		circuits:  circuits,
		prompts:   prompts,
		policy:    policy,
		timeout:   cfg.Timeout,
		cache:     newResultCache(cfg.CacheTTL),
		logger:    logger,
	}
}

// Analyze returns an assessment of doc. Errors are returned only for invalid input;
// provider and parsing failures degrade to a lower-confidence result.
func (e *Engine) Analyze(ctx context.Context, docType models.DocumentType, doc models.Document) (*models.AnalysisResult, error) {
	if err := checkInput(docType, doc); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}

	start := time.Now()
	requestID := uuid.New().String()
	e.requests.Add(1)

	key := cacheKey(docType, payload)
	if cached, ok := e.cache.get(key, payload); ok {
		e.cacheHits.Add(1)
		cached.Metadata.FromCache = true
		e.stamp(cached, requestID, start)
		e.logger.Debug("Analysis served from cache", zap.String("request_id", requestID), zap.String("key", key))
		return cached, nil
	}

	// Identical in-flight analyses share one provider round. The shared call is detached
	// from any single caller's cancellation; per-provider timeouts bound it instead.
	shared := context.WithoutCancel(ctx)
	v, _, _ := e.flights.Do(key, func() (interface{}, error) {
		return e.run(shared, docType, doc, payload, key), nil
	})

	result := v.(*models.AnalysisResult).Clone()
	e.stamp(result, requestID, start)

	e.logger.Info("Analysis completed",
		zap.String("request_id", requestID),
		zap.String("document_type", string(docType)),
		zap.String("provider", result.Metadata.Provider),
		zap.Bool("fallback", result.Metadata.Fallback),
		zap.Float64("confidence", result.Confidence),
		zap.Int64("processing_time_ms", result.Metadata.ProcessingTimeMs))

	return result, nil
}

// Stats returns a snapshot of the engine counters
func (e *Engine) Stats() Stats {
	s := Stats{
		Requests:  e.requests.Load(),
		Errors:    e.errors.Load(),
		CacheHits: e.cacheHits.Load(),
	}
	if s.Requests > 0 {
		s.ErrorRate = float64(s.Errors) / float64(s.Requests)
	}
	return s
}

func checkInput(docType models.DocumentType, doc models.Document) error {
	if !docType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDocumentType, docType)
	}

	switch d := doc.(type) {
	case nil:
		return ErrNilDocument
	case *models.InvoiceBody:
		if d == nil {
			return ErrNilDocument
		}
	case *models.PayslipData:
		if d == nil {
			return ErrNilDocument
		}
	}

	if doc.DocumentType() != docType {
		return fmt.Errorf("%w: tagged %s, got %s", ErrDocumentTypeMismatch, docType, doc.DocumentType())
	}
	return nil
}

// run tries each provider in order and falls back to offline rules when all fail
func (e *Engine) run(ctx context.Context, docType models.DocumentType, doc models.Document, payload []byte, key string) *models.AnalysisResult {
	// a concurrent flight may have completed between the cache check and this call
	if cached, ok := e.cache.get(key, payload); ok {
		e.cacheHits.Add(1)
		cached.Metadata.FromCache = true
		return cached
	}

	prompt, err := e.prompts.Build(docType, payload)
	if err != nil {
		e.errors.Add(1)
		e.logger.Error("Failed to build prompt", zap.Error(err))
		return offlineAnalysis(doc, e.policy)
	}

	var lastErr error
	for i, p := range e.providers {
		if resetAt, open := e.circuits[i].openUntil(time.Now()); open {
			e.logger.Info("Skipping rate limited provider",
				zap.String("provider", p.Name()),
				zap.Time("retry_at", resetAt))
			continue
		}

		text, err := e.send(ctx, p, prompt)
		if err != nil {
			lastErr = err
			var rlErr *RateLimitError
			if errors.As(err, &rlErr) {
				e.circuits[i].trip(time.Now().Add(rlErr.RetryAfter))
			}
			e.logger.Warn("Provider failed",
				zap.String("provider", p.Name()),
				zap.Int("attempt", i+1),
				zap.Error(err))
			continue
		}

		result, perr := parseResponse(text)
		if perr != nil {
			e.logger.Warn("Provider response not in expected format",
				zap.String("provider", p.Name()),
				zap.Error(perr))
			result = degradedResult(perr)
		}
		result.Metadata.Provider = p.Name()
		result.Metadata.Model = p.Model()
		result.Metadata.UsedFallbackProvider = i > 0

		e.cache.put(key, payload, result)
		return result
	}

	if lastErr == nil {
		lastErr = ErrNoProviders
	}
	e.errors.Add(1)
	e.logger.Error("All providers failed, using offline analysis",
		zap.String("document_type", string(docType)),
		zap.Error(lastErr))

	return offlineAnalysis(doc, e.policy)
}

// send calls one provider with its own timeout budget
func (e *Engine) send(ctx context.Context, p Provider, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return p.SendPrompt(ctx, prompt)
}

func (e *Engine) stamp(result *models.AnalysisResult, requestID string, start time.Time) {
	result.Metadata.RequestID = requestID
	result.Metadata.Timestamp = time.Now().UTC()
	result.Metadata.ProcessingTimeMs = time.Since(start).Milliseconds()
}
