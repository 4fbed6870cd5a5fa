package analysis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garyjia/tax-document-analyzer/internal/models"
	"github.com/garyjia/tax-document-analyzer/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubProvider returns a fixed answer or error and counts calls
type stubProvider struct {
	name     string
	response string
	err      error
	delay    time.Duration
	calls    atomic.Int32
	deadline atomic.Bool
}

func (s *stubProvider) Name() string  { return s.name }
func (s *stubProvider) Model() string { return s.name + "-model" }

func (s *stubProvider) SendPrompt(ctx context.Context, prompt string) (string, error) {
	s.calls.Add(1)
	if _, ok := ctx.Deadline(); ok {
		s.deadline.Store(true)
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.response, s.err
}

const validAnswer = "```json\n" + `{"summary": "Fattura corretta", "confidence": 0.9, "recommendations": ["Conservare la fattura"], "risks": [], "optimizations": ["Valutare il regime forfettario"]}` + "\n```"

func newTestEngine(providers ...Provider) *Engine {
	return NewEngine(providers, nil, validation.DefaultPolicy(), Config{Timeout: time.Second}, zap.NewNop())
}

func sampleInvoice() *models.InvoiceBody {
	return &models.InvoiceBody{
		Document: models.GeneralData{TypeCode: "TD01", Number: "42"},
		VATSummary: []models.VATSummaryEntry{
			{Rate: 22, TaxableAmount: 1000, TaxAmount: 220},
		},
	}
}

func samplePayslip() *models.PayslipData {
	return &models.PayslipData{
		Earnings:      models.Earnings{BaseSalary: 2000},
		Contributions: models.Contributions{INPS: 150},
	}
}

func TestEngine_Analyze_PrimarySuccess(t *testing.T) {
	primary := &stubProvider{name: "groq", response: validAnswer}
	secondary := &stubProvider{name: "huggingface", response: validAnswer}
	engine := newTestEngine(primary, secondary)

	result, err := engine.Analyze(context.Background(), models.DocumentTypeInvoice, sampleInvoice())
	require.NoError(t, err)

	assert.Equal(t, "Fattura corretta", result.Summary)
	assert.Equal(t, 0.9, result.Confidence)
	assert.Equal(t, []string{"Conservare la fattura"}, result.Recommendations)
	assert.Equal(t, "groq", result.Metadata.Provider)
	assert.Equal(t, "groq-model", result.Metadata.Model)
	assert.False(t, result.Metadata.UsedFallbackProvider)
	assert.False(t, result.Metadata.FromCache)
	assert.NotEmpty(t, result.Metadata.RequestID)
	assert.False(t, result.Metadata.Timestamp.IsZero())
	assert.Zero(t, secondary.calls.Load())
	assert.True(t, primary.deadline.Load(), "each provider call carries a timeout")
}

func TestEngine_Analyze_ConfidenceClamping(t *testing.T) {
	tests := []struct {
		name       string
		answer     string
		confidence float64
	}{
		{"above one", `{"summary": "ok", "confidence": 1.5, "recommendations": []}`, 1.0},
		{"below zero", `{"summary": "ok", "confidence": -0.2, "recommendations": []}`, 0.0},
		{"numeric string", `{"summary": "ok", "confidence": "0.75", "recommendations": []}`, 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(&stubProvider{name: "groq", response: tt.answer})
			result, err := engine.Analyze(context.Background(), models.DocumentTypePayslip, samplePayslip())
			require.NoError(t, err)
			assert.Equal(t, tt.confidence, result.Confidence)
		})
	}
}

func TestEngine_Analyze_CacheIdempotence(t *testing.T) {
	primary := &stubProvider{name: "groq", response: validAnswer}
	engine := newTestEngine(primary)

	first, err := engine.Analyze(context.Background(), models.DocumentTypeInvoice, sampleInvoice())
	require.NoError(t, err)
	second, err := engine.Analyze(context.Background(), models.DocumentTypeInvoice, sampleInvoice())
	require.NoError(t, err)

	assert.False(t, first.Metadata.FromCache)
	assert.True(t, second.Metadata.FromCache)
	assert.Equal(t, first.Summary, second.Summary)
	assert.NotEqual(t, first.Metadata.RequestID, second.Metadata.RequestID)
	assert.Equal(t, int32(1), primary.calls.Load())

	stats := engine.Stats()
	assert.Equal(t, int64(2), stats.Requests)
	assert.Equal(t, int64(1), stats.CacheHits)

	// mutating a returned result must not leak into the cache
	second.Recommendations[0] = "modificato"
	third, _ := engine.Analyze(context.Background(), models.DocumentTypeInvoice, sampleInvoice())
	assert.Equal(t, "Conservare la fattura", third.Recommendations[0])
}

func TestEngine_Analyze_CacheExpiry(t *testing.T) {
	primary := &stubProvider{name: "groq", response: validAnswer}
	engine := newTestEngine(primary)

	now := time.Now()
	engine.cache.now = func() time.Time { return now }

	_, err := engine.Analyze(context.Background(), models.DocumentTypeInvoice, sampleInvoice())
	require.NoError(t, err)

	now = now.Add(DefaultCacheTTL + time.Second)
	result, err := engine.Analyze(context.Background(), models.DocumentTypeInvoice, sampleInvoice())
	require.NoError(t, err)

	assert.False(t, result.Metadata.FromCache)
	assert.Equal(t, int32(2), primary.calls.Load())
	assert.Equal(t, 1, engine.cache.size(), "expired entry is overwritten in place")
}

func TestEngine_Analyze_DifferentTypesDoNotShareCache(t *testing.T) {
	primary := &stubProvider{name: "groq", response: validAnswer}
	engine := newTestEngine(primary)

	_, _ = engine.Analyze(context.Background(), models.DocumentTypeInvoice, sampleInvoice())
	result, _ := engine.Analyze(context.Background(), models.DocumentTypePayslip, samplePayslip())

	assert.False(t, result.Metadata.FromCache)
	assert.Equal(t, int32(2), primary.calls.Load())
}

func TestEngine_Analyze_FailoverToSecondary(t *testing.T) {
	primary := &stubProvider{name: "groq", err: errors.New("401 unauthorized")}
	secondary := &stubProvider{name: "huggingface", response: validAnswer}
	engine := newTestEngine(primary, secondary)

	result, err := engine.Analyze(context.Background(), models.DocumentTypeInvoice, sampleInvoice())
	require.NoError(t, err)

	assert.Equal(t, "huggingface", result.Metadata.Provider)
	assert.True(t, result.Metadata.UsedFallbackProvider)
	assert.False(t, result.Metadata.Fallback)
	assert.Equal(t, int32(1), primary.calls.Load())
}

func TestEngine_Analyze_PrimaryTimeoutDoesNotConsumeSecondaryBudget(t *testing.T) {
	primary := &stubProvider{name: "groq", delay: time.Hour}
	secondary := &stubProvider{name: "huggingface", response: validAnswer, delay: 50 * time.Millisecond}
	engine := NewEngine([]Provider{primary, secondary}, nil, validation.DefaultPolicy(),
		Config{Timeout: 100 * time.Millisecond}, zap.NewNop())

	result, err := engine.Analyze(context.Background(), models.DocumentTypeInvoice, sampleInvoice())
	require.NoError(t, err)
	assert.Equal(t, "huggingface", result.Metadata.Provider)
}

func TestEngine_Analyze_FallbackNeverFails(t *testing.T) {
	docs := []struct {
		docType models.DocumentType
		doc     models.Document
	}{
		{models.DocumentTypeInvoice, sampleInvoice()},
		{models.DocumentTypePayslip, samplePayslip()},
		{models.DocumentTypeInvoice, &models.InvoiceBody{}},
		{models.DocumentTypePayslip, &models.PayslipData{}},
	}

	for _, d := range docs {
		primary := &stubProvider{name: "groq", err: errors.New("invalid api key")}
		secondary := &stubProvider{name: "huggingface", err: errors.New("invalid api key")}
		engine := newTestEngine(primary, secondary)

		result, err := engine.Analyze(context.Background(), d.docType, d.doc)
		require.NoError(t, err)
		assert.True(t, result.Metadata.Fallback)
		assert.Equal(t, 0.4, result.Confidence)
		assert.Equal(t, "offline", result.Metadata.Provider)
		assert.NotNil(t, result.Risks)
		assert.NotNil(t, result.Optimizations)
		assert.Equal(t, int64(1), engine.Stats().Errors)
		assert.Equal(t, 1.0, engine.Stats().ErrorRate)
	}
}

func TestEngine_Analyze_FallbackNotCached(t *testing.T) {
	primary := &stubProvider{name: "groq", err: errors.New("down")}
	engine := newTestEngine(primary)

	_, _ = engine.Analyze(context.Background(), models.DocumentTypeInvoice, sampleInvoice())
	result, _ := engine.Analyze(context.Background(), models.DocumentTypeInvoice, sampleInvoice())

	assert.False(t, result.Metadata.FromCache)
	assert.Equal(t, int32(2), primary.calls.Load())
}

func TestEngine_Analyze_NoProviders(t *testing.T) {
	result, err := newTestEngine().Analyze(context.Background(), models.DocumentTypePayslip, samplePayslip())
	require.NoError(t, err)
	assert.True(t, result.Metadata.Fallback)
}

func TestEngine_Analyze_DegradedResponse(t *testing.T) {
	tests := []struct {
		name   string
		answer string
	}{
		{"plain text", "La fattura sembra corretta."},
		{"missing confidence", `{"summary": "ok", "recommendations": []}`},
		{"broken json", `{"summary": "ok", "confidence": 0.8, "recommendations": [}`},
		{"confidence not numeric", `{"summary": "ok", "confidence": "alta", "recommendations": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(&stubProvider{name: "groq", response: tt.answer})
			result, err := engine.Analyze(context.Background(), models.DocumentTypeInvoice, sampleInvoice())
			require.NoError(t, err)

			assert.Equal(t, degradedSummary, result.Summary)
			assert.Equal(t, 0.5, result.Confidence)
			assert.Equal(t, []string{degradedRecommendation}, result.Recommendations)
			assert.NotEmpty(t, result.Metadata.ParseError)
			assert.False(t, result.Metadata.Fallback)
			assert.Equal(t, "groq", result.Metadata.Provider)
		})
	}
}

func TestEngine_Analyze_RateLimitOpensCircuit(t *testing.T) {
	primary := &stubProvider{name: "groq", err: NewRateLimitError("groq", errors.New("429"), 120)}
	secondary := &stubProvider{name: "huggingface", response: validAnswer}
	engine := newTestEngine(primary, secondary)

	_, err := engine.Analyze(context.Background(), models.DocumentTypeInvoice, sampleInvoice())
	require.NoError(t, err)
	_, err = engine.Analyze(context.Background(), models.DocumentTypePayslip, samplePayslip())
	require.NoError(t, err)

	assert.Equal(t, int32(1), primary.calls.Load(), "rate limited provider is skipped until retry-after")
	assert.Equal(t, int32(2), secondary.calls.Load())
}

func TestEngine_Analyze_InvalidInput(t *testing.T) {
	primary := &stubProvider{name: "groq", response: validAnswer}
	engine := newTestEngine(primary)

	var nilInvoice *models.InvoiceBody

	tests := []struct {
		name    string
		docType models.DocumentType
		doc     models.Document
		want    error
	}{
		{"unknown type", "receipt", sampleInvoice(), ErrInvalidDocumentType},
		{"nil document", models.DocumentTypeInvoice, nil, ErrNilDocument},
		{"typed nil document", models.DocumentTypeInvoice, nilInvoice, ErrNilDocument},
		{"type mismatch", models.DocumentTypePayslip, sampleInvoice(), ErrDocumentTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Analyze(context.Background(), tt.docType, tt.doc)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, primary.calls.Load())
	assert.Zero(t, engine.Stats().Requests)
}

func TestEngine_Analyze_ConcurrentIdenticalRequestsCoalesce(t *testing.T) {
	primary := &stubProvider{name: "groq", response: validAnswer, delay: 50 * time.Millisecond}
	engine := newTestEngine(primary)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := engine.Analyze(context.Background(), models.DocumentTypeInvoice, sampleInvoice())
			assert.NoError(t, err)
			assert.Equal(t, "Fattura corretta", result.Summary)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), primary.calls.Load())
}
