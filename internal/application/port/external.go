package port

import (
	"context"
	"io"

	"github.com/garyjia/tax-document-analyzer/internal/analysis"
	"github.com/garyjia/tax-document-analyzer/internal/models"
	"github.com/xuri/excelize/v2"
)

// InvoiceParser parses FatturaElettronica files
type InvoiceParser interface {
	ParseFile(ctx context.Context, path string) (*models.ParsedInvoice, error)
}

// PayslipExtractor extracts payslip data from scanned PDFs
type PayslipExtractor interface {
	Extract(ctx context.Context, path string) (*models.PayslipDocument, error)
}

// Analyzer produces tax assessments of structured documents
type Analyzer interface {
	Analyze(ctx context.Context, docType models.DocumentType, doc models.Document) (*models.AnalysisResult, error)
	Stats() analysis.Stats
}

// ReportExporter renders a stored record as a spreadsheet
type ReportExporter interface {
	Export(record *models.AnalysisRecord) (*excelize.File, error)
	WriteTo(w io.Writer, record *models.AnalysisRecord) error
}
