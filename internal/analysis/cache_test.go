package analysis

import (
	"testing"
	"time"

	"github.com/garyjia/tax-document-analyzer/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCacheKey(t *testing.T) {
	a := cacheKey(models.DocumentTypeInvoice, []byte(`{"n":1}`))
	b := cacheKey(models.DocumentTypeInvoice, []byte(`{"n":1}`))
	c := cacheKey(models.DocumentTypeInvoice, []byte(`{"n":2}`))
	d := cacheKey(models.DocumentTypePayslip, []byte(`{"n":1}`))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Contains(t, a, "invoice_")
}

func TestResultCache_CollisionIsMiss(t *testing.T) {
	cache := newResultCache(time.Hour)
	cache.put("invoice_same", []byte("doc-a"), &models.AnalysisResult{Summary: "a"})

	_, ok := cache.get("invoice_same", []byte("doc-b"))
	assert.False(t, ok)

	got, ok := cache.get("invoice_same", []byte("doc-a"))
	assert.True(t, ok)
	assert.Equal(t, "a", got.Summary)
}
