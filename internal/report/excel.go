// Package report exports processed documents as xlsx workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/garyjia/tax-document-analyzer/internal/models"
	"github.com/garyjia/tax-document-analyzer/pkg/utils"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Sheet names
const (
	SheetSummary  = "Riepilogo"
	SheetIssues   = "Anomalie"
	SheetAnalysis = "Analisi"
)

// ExcelExporter renders an analysis record into a three-sheet workbook
type ExcelExporter struct {
	logger *zap.Logger
}

// NewExcelExporter creates a new exporter
func NewExcelExporter(logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{logger: utils.WithComponent(logger, "excel-exporter")}
}

// Export builds the workbook. The caller closes the returned file.
func (e *ExcelExporter) Export(record *models.AnalysisRecord) (*excelize.File, error) {
	if record == nil {
		return nil, fmt.Errorf("record is nil")
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetIssues, SheetAnalysis} {
		if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	e.fillSummary(f, record, bold)
	e.fillIssues(f, record, bold)
	e.fillAnalysis(f, record, bold)

	e.logger.Debug("Workbook exported",
		zap.Int64("record_id", record.ID),
		zap.String("document_type", string(record.DocumentType)))

	return f, nil
}

// WriteTo writes the workbook for record to w
func (e *ExcelExporter) WriteTo(w io.Writer, record *models.AnalysisRecord) error {
	f, err := e.Export(record)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (e *ExcelExporter) fillSummary(f *excelize.File, record *models.AnalysisRecord, bold int) {
	validity := "Valido"
	if !record.Validation.IsValid {
		validity = "Non valido"
	}

	rows := [][]interface{}{
		{"Campo", "Valore"},
		{"Documento", documentLabel(record.DocumentType)},
		{"File", record.SourceName},
		{"Richiesta", record.RequestID},
		{"Data elaborazione", record.CreatedAt.Format("2006-01-02 15:04:05")},
		{"Esito validazione", validity},
		{"Errori", len(record.Validation.Errors)},
		{"Avvisi", len(record.Validation.Warnings)},
	}

	t := record.Validation.Totals
	for _, total := range []struct {
		label string
		value *float64
	}{
		{"Imponibile", t.Imponibile},
		{"IVA", t.IVA},
		{"Totale", t.Totale},
		{"Retribuzione lorda", t.Gross},
		{"Contributi", t.Contributions},
		{"Imposte", t.Taxes},
		{"Netto", t.Net},
	} {
		if total.value != nil {
			rows = append(rows, []interface{}{total.label, *total.value})
		}
	}

	if a := record.Analysis; a != nil {
		rows = append(rows,
			[]interface{}{"Sintesi analisi", a.Summary},
			[]interface{}{"Affidabilità", a.Confidence},
			[]interface{}{"Fornitore", a.Metadata.Provider},
			[]interface{}{"Analisi offline", yesNo(a.Metadata.Fallback)},
		)
	}

	e.writeRows(f, SheetSummary, rows)
	e.styleHeader(f, SheetSummary, "A1", "B1", bold)
	_ = f.SetColWidth(SheetSummary, "A", "A", 24)
	_ = f.SetColWidth(SheetSummary, "B", "B", 60)
}

func (e *ExcelExporter) fillIssues(f *excelize.File, record *models.AnalysisRecord, bold int) {
	rows := [][]interface{}{{"Livello", "Tipo", "Gravità", "Messaggio"}}
	for _, issue := range record.Validation.Errors {
		rows = append(rows, []interface{}{"Errore", issue.Type, issue.Severity, issue.Message})
	}
	for _, issue := range record.Validation.Warnings {
		rows = append(rows, []interface{}{"Avviso", issue.Type, issue.Severity, issue.Message})
	}

	e.writeRows(f, SheetIssues, rows)
	e.styleHeader(f, SheetIssues, "A1", "D1", bold)
	_ = f.SetColWidth(SheetIssues, "B", "B", 30)
	_ = f.SetColWidth(SheetIssues, "D", "D", 90)
}

func (e *ExcelExporter) fillAnalysis(f *excelize.File, record *models.AnalysisRecord, bold int) {
	rows := [][]interface{}{{"Categoria", "Voce"}}
	if a := record.Analysis; a != nil {
		for _, group := range []struct {
			label string
			items []string
		}{
			{"Raccomandazione", a.Recommendations},
			{"Rischio", a.Risks},
			{"Ottimizzazione", a.Optimizations},
		} {
			for _, item := range group.items {
				rows = append(rows, []interface{}{group.label, item})
			}
		}
	}

	e.writeRows(f, SheetAnalysis, rows)
	e.styleHeader(f, SheetAnalysis, "A1", "B1", bold)
	_ = f.SetColWidth(SheetAnalysis, "A", "A", 20)
	_ = f.SetColWidth(SheetAnalysis, "B", "B", 90)
}

func (e *ExcelExporter) writeRows(f *excelize.File, sheet string, rows [][]interface{}) {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			continue
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			if str, ok := v.(string); ok {
				v = utils.SanitizeString(str)
			}
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			e.logger.Warn("Failed to write row",
				zap.String("sheet", sheet),
				zap.Int("row", i+1),
				zap.Error(err))
		}
	}
}

func (e *ExcelExporter) styleHeader(f *excelize.File, sheet, from, to string, style int) {
	if err := f.SetCellStyle(sheet, from, to, style); err != nil {
		e.logger.Warn("Failed to style header", zap.String("sheet", sheet), zap.Error(err))
	}
}

func documentLabel(t models.DocumentType) string {
	switch t {
	case models.DocumentTypeInvoice:
		return "Fattura elettronica"
	case models.DocumentTypePayslip:
		return "Busta paga"
	default:
		return string(t)
	}
}

func yesNo(b bool) string {
	if b {
		return "Sì"
	}
	return "No"
}
