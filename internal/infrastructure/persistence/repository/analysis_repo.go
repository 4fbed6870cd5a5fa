package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/tax-document-analyzer/internal/application/port"
	"github.com/garyjia/tax-document-analyzer/internal/models"
	"go.uber.org/zap"
)

// DefaultListLimit applies when List is called with a non-positive limit
const DefaultListLimit = 50

// AnalysisRepository implements port.AnalysisRepository on sqlite
type AnalysisRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *sql.DB, logger *zap.Logger) port.AnalysisRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisRepository{db: db, logger: logger}
}

// Create inserts a record and sets its ID
func (r *AnalysisRepository) Create(ctx context.Context, record *models.AnalysisRecord) error {
	query := `
		INSERT INTO document_analyses (
			request_id, document_type, source_name, is_valid, errors_json, warnings_json,
			totals_json, analysis_json, provider, confidence, from_cache, fallback, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	errorsJSON, err := marshalIssues(record.Validation.Errors)
	if err != nil {
		return err
	}
	warningsJSON, err := marshalIssues(record.Validation.Warnings)
	if err != nil {
		return err
	}
	totalsJSON, err := json.Marshal(record.Validation.Totals)
	if err != nil {
		return fmt.Errorf("failed to marshal totals: %w", err)
	}

	var (
		analysisJSON sql.NullString
		provider     sql.NullString
		confidence   sql.NullFloat64
		fromCache    bool
		fallback     bool
	)
	if a := record.Analysis; a != nil {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to marshal analysis: %w", err)
		}
		analysisJSON = sql.NullString{String: string(data), Valid: true}
		provider = sql.NullString{String: a.Metadata.Provider, Valid: true}
		confidence = sql.NullFloat64{Float64: a.Confidence, Valid: true}
		fromCache = a.Metadata.FromCache
		fallback = a.Metadata.Fallback
	}

	result, err := r.db.ExecContext(ctx, query,
		record.RequestID,
		string(record.DocumentType),
		record.SourceName,
		record.Validation.IsValid,
		errorsJSON,
		warningsJSON,
		string(totalsJSON),
		analysisJSON,
		provider,
		confidence,
		fromCache,
		fallback,
		record.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create analysis record", zap.Error(err))
		return fmt.Errorf("failed to create analysis record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	record.ID = id
	return nil
}

const selectColumns = `
	SELECT id, request_id, document_type, source_name, is_valid, errors_json, warnings_json,
		totals_json, analysis_json, created_at
	FROM document_analyses
`

// GetByID retrieves a record by ID
func (r *AnalysisRepository) GetByID(ctx context.Context, id int64) (*models.AnalysisRecord, error) {
	record, err := scanRecord(r.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get analysis record", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get analysis record: %w", err)
	}
	return record, nil
}

// List returns up to limit records, newest first
func (r *AnalysisRepository) List(ctx context.Context, limit int) ([]*models.AnalysisRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, selectColumns+" ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		r.logger.Error("Failed to list analysis records", zap.Error(err))
		return nil, fmt.Errorf("failed to list analysis records: %w", err)
	}
	defer rows.Close()

	records := make([]*models.AnalysisRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*models.AnalysisRecord, error) {
	var (
		record       models.AnalysisRecord
		docType      string
		errorsJSON   string
		warningsJSON string
		totalsJSON   string
		analysisJSON sql.NullString
	)

	if err := row.Scan(
		&record.ID,
		&record.RequestID,
		&docType,
		&record.SourceName,
		&record.Validation.IsValid,
		&errorsJSON,
		&warningsJSON,
		&totalsJSON,
		&analysisJSON,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}

	record.DocumentType = models.DocumentType(docType)
	if err := json.Unmarshal([]byte(errorsJSON), &record.Validation.Errors); err != nil {
		return nil, fmt.Errorf("corrupt errors_json: %w", err)
	}
	if err := json.Unmarshal([]byte(warningsJSON), &record.Validation.Warnings); err != nil {
		return nil, fmt.Errorf("corrupt warnings_json: %w", err)
	}
	if err := json.Unmarshal([]byte(totalsJSON), &record.Validation.Totals); err != nil {
		return nil, fmt.Errorf("corrupt totals_json: %w", err)
	}
	if analysisJSON.Valid {
		var a models.AnalysisResult
		if err := json.Unmarshal([]byte(analysisJSON.String), &a); err != nil {
			return nil, fmt.Errorf("corrupt analysis_json: %w", err)
		}
		record.Analysis = &a
	}

	return &record, nil
}

func marshalIssues(issues []models.Issue) (string, error) {
	if issues == nil {
		issues = []models.Issue{}
	}
	data, err := json.Marshal(issues)
	if err != nil {
		return "", fmt.Errorf("failed to marshal issues: %w", err)
	}
	return string(data), nil
}
