package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/garyjia/tax-document-analyzer/internal/analysis"
	"github.com/garyjia/tax-document-analyzer/internal/application/port"
	"github.com/garyjia/tax-document-analyzer/internal/models"
	"github.com/garyjia/tax-document-analyzer/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrUnsupportedDocument is returned when the document kind cannot be determined
	ErrUnsupportedDocument = errors.New("unsupported document: expected a FatturaElettronica .xml or a payslip .pdf")

	// ErrHistoryDisabled is returned by history operations when no repository is configured
	ErrHistoryDisabled = errors.New("analysis history is not enabled")

	// ErrRecordNotFound is returned when a stored record does not exist
	ErrRecordNotFound = errors.New("analysis record not found")
)

// ProcessResult is the outcome of processing one document
type ProcessResult struct {
	RecordID     int64                   `json:"record_id,omitempty"`
	RequestID    string                  `json:"request_id"`
	DocumentType models.DocumentType     `json:"document_type"`
	SourceName   string                  `json:"source_name"`
	Invoice      *models.ParsedInvoice   `json:"invoice,omitempty"`
	Payslip      *models.PayslipDocument `json:"payslip,omitempty"`
	Validation   models.ValidationReport `json:"validation"`
	Analysis     *models.AnalysisResult  `json:"analysis,omitempty"`
}

// DocumentService selects the extractor for a document, validates it, optionally
// analyzes it and records the outcome
type DocumentService interface {
	Process(ctx context.Context, ref string, kind models.DocumentType, analyze bool) (*ProcessResult, error)
	// ProcessUpload is Process for a stored upload, recorded under its original file name
	ProcessUpload(ctx context.Context, path, originalName string, kind models.DocumentType, analyze bool) (*ProcessResult, error)
	ProcessInvoice(ctx context.Context, ref string, analyze bool) (*ProcessResult, error)
	ProcessPayslip(ctx context.Context, ref string, analyze bool) (*ProcessResult, error)
	Analyze(ctx context.Context, docType models.DocumentType, document json.RawMessage) (*models.AnalysisResult, error)
	History(ctx context.Context, limit int) ([]*models.AnalysisRecord, error)
	Get(ctx context.Context, id int64) (*models.AnalysisRecord, error)
	Export(ctx context.Context, id int64, w io.Writer) error
	Stats() analysis.Stats
}

type documentServiceImpl struct {
	source   port.DocumentSource
	invoices port.InvoiceParser
	payslips port.PayslipExtractor
	analyzer port.Analyzer
	repo     port.AnalysisRepository
	exporter port.ReportExporter
	logger   *zap.Logger
}

// NewDocumentService creates a new DocumentService. repo and exporter may be nil.
func NewDocumentService(
	source port.DocumentSource,
	invoices port.InvoiceParser,
	payslips port.PayslipExtractor,
	analyzer port.Analyzer,
	repo port.AnalysisRepository,
	exporter port.ReportExporter,
	logger *zap.Logger,
) DocumentService {
	return &documentServiceImpl{
		source:   source,
		invoices: invoices,
		payslips: payslips,
		analyzer: analyzer,
		repo:     repo,
		exporter: exporter,
		logger:   utils.WithComponent(logger, "document-service"),
	}
}

// Record converts the result to its stored form
func (r *ProcessResult) Record() *models.AnalysisRecord {
	return &models.AnalysisRecord{
		ID:           r.RecordID,
		RequestID:    r.RequestID,
		DocumentType: r.DocumentType,
		SourceName:   r.SourceName,
		Validation:   r.Validation,
		Analysis:     r.Analysis,
	}
}

// DetectType infers the document kind from the file extension
func DetectType(name string) (models.DocumentType, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xml":
		return models.DocumentTypeInvoice, nil
	case ".pdf":
		return models.DocumentTypePayslip, nil
	default:
		return "", ErrUnsupportedDocument
	}
}

// Process handles ref as kind, or infers the kind from the extension when kind is empty
func (s *documentServiceImpl) Process(ctx context.Context, ref string, kind models.DocumentType, analyze bool) (*ProcessResult, error) {
	return s.process(ctx, ref, sourceName(ref), kind, analyze)
}

// ProcessUpload processes a stored upload
func (s *documentServiceImpl) ProcessUpload(ctx context.Context, path, originalName string, kind models.DocumentType, analyze bool) (*ProcessResult, error) {
	return s.process(ctx, path, filepath.Base(originalName), kind, analyze)
}

func (s *documentServiceImpl) process(ctx context.Context, ref, name string, kind models.DocumentType, analyze bool) (*ProcessResult, error) {
	if kind == "" {
		detected, err := DetectType(name)
		if err != nil {
			return nil, err
		}
		kind = detected
	}

	switch kind {
	case models.DocumentTypeInvoice:
		return s.processInvoice(ctx, ref, name, analyze)
	case models.DocumentTypePayslip:
		return s.processPayslip(ctx, ref, name, analyze)
	default:
		return nil, fmt.Errorf("%w: %q", analysis.ErrInvalidDocumentType, kind)
	}
}

// ProcessInvoice parses and validates a FatturaElettronica
func (s *documentServiceImpl) ProcessInvoice(ctx context.Context, ref string, analyze bool) (*ProcessResult, error) {
	return s.processInvoice(ctx, ref, sourceName(ref), analyze)
}

// ProcessPayslip extracts and validates a scanned payslip
func (s *documentServiceImpl) ProcessPayslip(ctx context.Context, ref string, analyze bool) (*ProcessResult, error) {
	return s.processPayslip(ctx, ref, sourceName(ref), analyze)
}

func (s *documentServiceImpl) processInvoice(ctx context.Context, ref, name string, analyze bool) (*ProcessResult, error) {
	path, release, err := s.source.Resolve(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", name, err)
	}
	defer release()

	parsed, err := s.invoices.ParseFile(ctx, path)
	if err != nil {
		s.logger.Warn("Invoice parsing failed", zap.String("source", name), zap.Error(err))
		return nil, err
	}

	result := &ProcessResult{
		DocumentType: models.DocumentTypeInvoice,
		SourceName:   name,
		Invoice:      parsed,
		Validation:   parsed.Validation,
	}
	return s.finish(ctx, result, &parsed.Document.Body, analyze)
}

func (s *documentServiceImpl) processPayslip(ctx context.Context, ref, name string, analyze bool) (*ProcessResult, error) {
	path, release, err := s.source.Resolve(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", name, err)
	}
	defer release()

	doc, err := s.payslips.Extract(ctx, path)
	if err != nil {
		s.logger.Warn("Payslip extraction failed", zap.String("source", name), zap.Error(err))
		return nil, err
	}

	result := &ProcessResult{
		DocumentType: models.DocumentTypePayslip,
		SourceName:   name,
		Payslip:      doc,
		Validation:   doc.Validation,
	}
	return s.finish(ctx, result, &doc.Parsed, analyze)
}

// finish runs the optional analysis and records the outcome
func (s *documentServiceImpl) finish(ctx context.Context, result *ProcessResult, doc models.Document, analyze bool) (*ProcessResult, error) {
	if analyze && s.analyzer != nil {
		a, err := s.analyzer.Analyze(ctx, result.DocumentType, doc)
		if err != nil {
			return nil, fmt.Errorf("analyze: %w", err)
		}
		result.Analysis = a
		result.RequestID = a.Metadata.RequestID
	} else {
		result.RequestID = uuid.New().String()
	}

	s.record(ctx, result)

	s.logger.Info("Document processed",
		zap.String("request_id", result.RequestID),
		zap.String("document_type", string(result.DocumentType)),
		zap.String("source", result.SourceName),
		zap.Bool("valid", result.Validation.IsValid),
		zap.Bool("analyzed", result.Analysis != nil))

	return result, nil
}

// record stores the result when history is enabled. Failures are logged, not returned.
func (s *documentServiceImpl) record(ctx context.Context, result *ProcessResult) {
	if s.repo == nil {
		return
	}

	rec := result.Record()
	if err := s.repo.Create(ctx, rec); err != nil {
		s.logger.Error("Failed to record analysis", zap.String("request_id", result.RequestID), zap.Error(err))
		return
	}
	result.RecordID = rec.ID
}

// Analyze decodes a structured document of docType and analyzes it
func (s *documentServiceImpl) Analyze(ctx context.Context, docType models.DocumentType, document json.RawMessage) (*models.AnalysisResult, error) {
	if s.analyzer == nil {
		return nil, fmt.Errorf("analysis engine not configured")
	}

	var doc models.Document
	switch docType {
	case models.DocumentTypeInvoice:
		doc = &models.InvoiceBody{}
	case models.DocumentTypePayslip:
		doc = &models.PayslipData{}
	default:
		return nil, fmt.Errorf("%w: %q", analysis.ErrInvalidDocumentType, docType)
	}

	if len(document) == 0 || string(document) == "null" {
		return nil, analysis.ErrNilDocument
	}
	if err := json.Unmarshal(document, doc); err != nil {
		return nil, fmt.Errorf("invalid %s document: %w", docType, err)
	}

	return s.analyzer.Analyze(ctx, docType, doc)
}

// History lists recent records
func (s *documentServiceImpl) History(ctx context.Context, limit int) ([]*models.AnalysisRecord, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.repo.List(ctx, limit)
}

// Get returns one record
func (s *documentServiceImpl) Get(ctx context.Context, id int64) (*models.AnalysisRecord, error) {
	if s.repo == nil {
		return nil, ErrHistoryDisabled
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRecordNotFound
	}
	return rec, nil
}

// Export writes the xlsx report of a stored record to w
func (s *documentServiceImpl) Export(ctx context.Context, id int64, w io.Writer) error {
	if s.exporter == nil {
		return fmt.Errorf("report exporter not configured")
	}
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.exporter.WriteTo(w, rec)
}

// Stats returns the analysis engine counters
func (s *documentServiceImpl) Stats() analysis.Stats {
	if s.analyzer == nil {
		return analysis.Stats{}
	}
	return s.analyzer.Stats()
}

func sourceName(ref string) string {
	return filepath.Base(strings.TrimPrefix(ref, "s3://"))
}
