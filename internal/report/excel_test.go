package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/garyjia/tax-document-analyzer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRecord() *models.AnalysisRecord {
	gross, net := 2000.0, 1315.40
	return &models.AnalysisRecord{
		ID:           7,
		RequestID:    "req-7",
		DocumentType: models.DocumentTypePayslip,
		SourceName:   "cedolino_marzo.pdf",
		CreatedAt:    time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC),
		Validation: models.ValidationReport{
			IsValid: true,
			Warnings: []models.Issue{
				{Type: models.IssueINPSCalculation, Message: "INPS dichiarato 150.00, atteso 183.80", Severity: models.SeverityMedium},
			},
			Totals: models.Totals{Gross: &gross, Net: &net},
		},
		Analysis: &models.AnalysisResult{
			Summary:         "Contributi inferiori al previsto",
			Confidence:      0.7,
			Recommendations: []string{"Verificare l'imponibile previdenziale"},
			Risks:           []string{"Possibile errore nei contributi"},
			Optimizations:   []string{},
			Metadata:        models.AnalysisMetadata{Provider: "groq"},
		},
	}
}

func TestExcelExporter_Export(t *testing.T) {
	f, err := NewExcelExporter(nil).Export(sampleRecord())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetIssues, SheetAnalysis}, f.GetSheetList())

	doc, err := f.GetCellValue(SheetSummary, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Busta paga", doc)

	rows, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	var labels []string
	for _, r := range rows {
		labels = append(labels, r[0])
	}
	assert.Contains(t, labels, "Retribuzione lorda")
	assert.Contains(t, labels, "Netto")
	assert.NotContains(t, labels, "Imponibile")
	assert.Contains(t, labels, "Sintesi analisi")

	issues, err := f.GetRows(SheetIssues)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "Avviso", issues[1][0])

	analysis, err := f.GetRows(SheetAnalysis)
	require.NoError(t, err)
	require.Len(t, analysis, 3)
	assert.Equal(t, "Rischio", analysis[2][0])
}

func TestExcelExporter_WithoutAnalysis(t *testing.T) {
	record := sampleRecord()
	record.Analysis = nil

	var buf bytes.Buffer
	require.NoError(t, NewExcelExporter(nil).WriteTo(&buf, record))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetAnalysis)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestExcelExporter_NilRecord(t *testing.T) {
	_, err := NewExcelExporter(nil).Export(nil)
	assert.Error(t, err)
}
