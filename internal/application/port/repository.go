package port

import (
	"context"

	"github.com/garyjia/tax-document-analyzer/internal/models"
)

// AnalysisRepository stores processed documents for later listing and export
type AnalysisRepository interface {
	Create(ctx context.Context, record *models.AnalysisRecord) error
	// GetByID returns nil, nil when no record has the id
	GetByID(ctx context.Context, id int64) (*models.AnalysisRecord, error)
	// List returns the most recent records first
	List(ctx context.Context, limit int) ([]*models.AnalysisRecord, error)
}
