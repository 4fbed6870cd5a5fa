package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	t.Run("fenced block preferred over surrounding text", func(t *testing.T) {
		raw := "Ecco l'analisi {nota}:\n```json\n{\"summary\": \"ok\", \"confidence\": 0.8, \"recommendations\": \"Controllare IVA\"}\n```\nFine."
		result, err := parseResponse(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"Controllare IVA"}, result.Recommendations)
		assert.Equal(t, []string{}, result.Risks)
		assert.Equal(t, []string{}, result.Optimizations)
	})

	t.Run("first object among trailing commentary", func(t *testing.T) {
		raw := `Risposta: {"summary": "ok", "confidence": 1, "recommendations": ["a"], "risks": ["usa {graffe}"]} spero sia utile`
		result, err := parseResponse(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"usa {graffe}"}, result.Risks)
	})

	t.Run("greedy span when balanced object is not valid", func(t *testing.T) {
		raw := `{"summary": "ok", "confidence": 0.3, "recommendations": ["a"]}`
		result, err := parseResponse(raw)
		require.NoError(t, err)
		assert.Equal(t, 0.3, result.Confidence)
	})

	t.Run("no object", func(t *testing.T) {
		_, err := parseResponse("nessun JSON")
		assert.ErrorIs(t, err, errNoJSON)
	})

	t.Run("wrong recommendations type", func(t *testing.T) {
		_, err := parseResponse(`{"summary": "ok", "confidence": 0.3, "recommendations": 5}`)
		assert.Error(t, err)
	})
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a": "}"}`, extractJSON(`x {"a": "}"} y {"b": 1}`))
	assert.Equal(t, `{"a": {"b": "\"}"}}`, extractJSON(`{"a": {"b": "\"}"}}`))
	assert.Empty(t, extractJSON(`{"a": 1`))
	assert.Empty(t, extractJSON(`none`))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 1.0, clamp01(1.5))
	assert.Equal(t, 0.0, clamp01(-0.2))
	assert.Equal(t, 0.42, clamp01(0.42))
}
