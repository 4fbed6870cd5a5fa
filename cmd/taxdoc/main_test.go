package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/tax-document-analyzer/internal/application/service"
	"github.com/garyjia/tax-document-analyzer/internal/models"
)

const invoiceFixture = "../../internal/fattura/testdata/company_invoice.xml"

func writeConfig(t *testing.T) string {
	t.Helper()
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("HUGGINGFACE_API_KEY", "")

	dir := t.TempDir()
	cfg := `
logger:
  level: error
database:
  path: ` + filepath.Join(dir, "history.db") + `
  migrations_dir: ""
storage:
  base_dir: ` + dir + `
  s3:
    region: ""
report:
  output_dir: ` + filepath.Join(dir, "reports") + `
providers:
  primary:
    kind: ""
  secondary:
    kind: ""
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	if tErr := teardown(); err == nil {
		err = tErr
	}
	return out.String(), err
}

func TestInvoiceCommand_OfflineAnalysisAndHistory(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "invoice", invoiceFixture, "--config", cfg, "--json=true", "--no-analyze=false")
	require.NoError(t, err)

	var result service.ProcessResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, models.DocumentTypeInvoice, result.DocumentType)
	assert.Equal(t, "company_invoice.xml", result.SourceName)
	assert.True(t, result.Validation.IsValid)
	require.NotNil(t, result.Analysis)
	assert.Equal(t, "offline", result.Analysis.Metadata.Provider)
	assert.InDelta(t, 0.4, result.Analysis.Confidence, 1e-9)
	assert.NotZero(t, result.RecordID)

	out, err = run(t, "history", "--config", cfg, "--json=true")
	require.NoError(t, err)

	var records []*models.AnalysisRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, result.RecordID, records[0].ID)
}

func TestInvoiceCommand_TextOutputAndReport(t *testing.T) {
	cfg := writeConfig(t)
	xlsx := filepath.Join(t.TempDir(), "fattura.xlsx")

	out, err := run(t, "invoice", invoiceFixture, "--config", cfg, "--json=false", "--no-analyze=true", "--xlsx", xlsx)
	require.NoError(t, err)

	assert.Contains(t, out, "Studio Rossi S.r.l.")
	assert.Contains(t, out, "Esito: valido")
	assert.NotContains(t, out, "Analisi")

	info, err := os.Stat(xlsx)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestProcessCommand_RejectsUnknownExtension(t *testing.T) {
	cfg := writeConfig(t)
	doc := filepath.Join(t.TempDir(), "ricevuta.txt")
	require.NoError(t, os.WriteFile(doc, []byte("x"), 0644))

	_, err := run(t, "process", doc, "--config", cfg, "--xlsx", "")
	assert.ErrorIs(t, err, service.ErrUnsupportedDocument)
}

func TestAnalyzeCommand(t *testing.T) {
	cfg := writeConfig(t)
	doc := filepath.Join(t.TempDir(), "payslip.json")
	require.NoError(t, os.WriteFile(doc, []byte(`{
		"earnings": {"base_salary": 2000},
		"contributions": {"inps": 183.8},
		"taxes": {"irpef": 460},
		"net_pay": 1356.2
	}`), 0644))

	out, err := run(t, "analyze", doc, "--type", "payslip", "--config", cfg, "--json=true")
	require.NoError(t, err)

	var result models.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "offline", result.Metadata.Provider)

	_, err = run(t, "analyze", doc, "--type", "receipt", "--config", cfg)
	assert.Error(t, err)
}

func TestProvidersCheck_NoneConfigured(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, "providers", "check", "--config", cfg, "--json=false")
	require.NoError(t, err)
	assert.Contains(t, out, "No providers configured")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "ok", truncate("ok", 80))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
	assert.Equal(t, "àè...", truncate("àèìòù", 2))
}
