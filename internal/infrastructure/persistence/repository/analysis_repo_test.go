package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/garyjia/tax-document-analyzer/internal/models"
	"github.com/garyjia/tax-document-analyzer/migrations"
	"github.com/garyjia/tax-document-analyzer/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *AnalysisRepository {
	t.Helper()
	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "history.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, nil).RunMigrationsFS(context.Background(), migrations.FS))
	return NewAnalysisRepository(db.DB, nil).(*AnalysisRepository)
}

func float(v float64) *float64 { return &v }

func TestAnalysisRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	record := &models.AnalysisRecord{
		RequestID:    "req-1",
		DocumentType: models.DocumentTypeInvoice,
		SourceName:   "IT01234567890_00001.xml",
		Validation: models.ValidationReport{
			IsValid: false,
			Errors:  []models.Issue{{Type: models.IssueIVACalculation, Message: "imposta errata", Severity: models.SeverityHigh}},
			Totals:  models.Totals{Imponibile: float(1000), IVA: float(200), Totale: float(1200)},
		},
		Analysis: &models.AnalysisResult{
			Summary:         "Imposta non coerente",
			Confidence:      0.8,
			Recommendations: []string{"Correggere il riepilogo"},
			Risks:           []string{},
			Optimizations:   []string{},
			Metadata:        models.AnalysisMetadata{Provider: "groq"},
		},
	}

	require.NoError(t, repo.Create(ctx, record))
	require.NotZero(t, record.ID)

	got, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, models.DocumentTypeInvoice, got.DocumentType)
	assert.False(t, got.Validation.IsValid)
	require.Len(t, got.Validation.Errors, 1)
	assert.Empty(t, got.Validation.Warnings)
	assert.Equal(t, 1200.0, *got.Validation.Totals.Totale)
	assert.Nil(t, got.Validation.Totals.Gross)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, "groq", got.Analysis.Metadata.Provider)
}

func TestAnalysisRepository_GetMissing(t *testing.T) {
	got, err := newTestRepo(t).GetByID(context.Background(), 999)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestAnalysisRepository_ListNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		require.NoError(t, repo.Create(ctx, &models.AnalysisRecord{
			RequestID:    name,
			DocumentType: models.DocumentTypePayslip,
			SourceName:   name,
			Validation:   models.ValidationReport{IsValid: true},
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
		}))
	}

	records, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c.pdf", records[0].SourceName)
	assert.Equal(t, "b.pdf", records[1].SourceName)
	assert.Nil(t, records[0].Analysis)

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
