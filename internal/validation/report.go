package validation

import (
	"fmt"

	"github.com/garyjia/tax-document-analyzer/internal/models"
)

// Builder accumulates issues for a ValidationReport
type Builder struct {
	errors   []models.Issue
	warnings []models.Issue
}

// NewBuilder creates an empty report builder
func NewBuilder() *Builder {
	return &Builder{
		errors:   []models.Issue{},
		warnings: []models.Issue{},
	}
}

// AddError records a high severity issue
func (b *Builder) AddError(issueType, format string, args ...interface{}) {
	b.errors = append(b.errors, models.Issue{
		Type:     issueType,
		Message:  fmt.Sprintf(format, args...),
		Severity: models.SeverityHigh,
	})
}

// AddWarning records a medium severity issue
func (b *Builder) AddWarning(issueType, format string, args ...interface{}) {
	b.warnings = append(b.warnings, models.Issue{
		Type:     issueType,
		Message:  fmt.Sprintf(format, args...),
		Severity: models.SeverityMedium,
	})
}

// Build returns the report. Validity depends on errors only.
func (b *Builder) Build(totals models.Totals) models.ValidationReport {
	return models.ValidationReport{
		IsValid:  len(b.errors) == 0,
		Errors:   b.errors,
		Warnings: b.warnings,
		Totals:   totals,
	}
}
