// Package container provides dependency wiring and lifecycle management
// for the document pipeline shared by the HTTP server and the CLI.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/tax-document-analyzer/internal/analysis"
	"github.com/garyjia/tax-document-analyzer/internal/application/port"
	"github.com/garyjia/tax-document-analyzer/internal/config"
	"github.com/garyjia/tax-document-analyzer/internal/infrastructure/external"
	"github.com/garyjia/tax-document-analyzer/internal/infrastructure/persistence/repository"
	"github.com/garyjia/tax-document-analyzer/internal/infrastructure/storage"
	"github.com/garyjia/tax-document-analyzer/internal/ocr"
	"github.com/garyjia/tax-document-analyzer/internal/payslip"
	"github.com/garyjia/tax-document-analyzer/internal/validation"
	"github.com/garyjia/tax-document-analyzer/migrations"
	"github.com/garyjia/tax-document-analyzer/pkg/database"
	"go.uber.org/zap"
)

// uploads still present after this long belong to requests that never finished
const staleUploadAge = time.Hour

// StorageBundle holds storage-related components.
type StorageBundle struct {
	Files  port.FileStorage
	Source port.DocumentSource
	S3     *storage.S3Source
}

// ProvideDatabase opens the history database and applies pending migrations.
// It returns nil when no database path is configured.
func ProvideDatabase(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*database.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if cfg.Path == "" {
		logger.Info("Database path empty, analysis history disabled")
		return nil, nil
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if cfg.MigrationsDir != "" {
		err = migrator.RunMigrations(ctx, cfg.MigrationsDir)
	} else {
		err = migrator.RunMigrationsFS(ctx, migrations.FS)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// ProvideRepository returns the analysis repository, or nil without a database.
func ProvideRepository(db *database.DB, logger *zap.Logger) port.AnalysisRepository {
	if db == nil {
		return nil
	}
	return repository.NewAnalysisRepository(db.DB, logger)
}

// ProvideOCR builds the configured OCR engine.
func ProvideOCR(ctx context.Context, cfg *config.OCRConfig, logger *zap.Logger) (ocr.Engine, error) {
	engine, err := ocr.New(ctx, cfg.Config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR engine: %w", err)
	}
	return engine, nil
}

// ProvideExtractor builds the payslip extractor around engine.
func ProvideExtractor(engine ocr.Engine, cfg *config.OCRConfig, policy validation.Policy, logger *zap.Logger) *payslip.Extractor {
	dpi := cfg.DPI
	if dpi <= 0 {
		dpi = payslip.DefaultDPI
	}
	maxDim := cfg.MaxDimension
	if maxDim <= 0 {
		maxDim = payslip.DefaultMaxDimension
	}

	opts := []payslip.Option{
		payslip.WithWorkers(cfg.Workers),
		payslip.WithRasterizer(payslip.NewFitzRasterizer(dpi, maxDim, logger)),
	}
	if cfg.PreferTextLayer {
		opts = append(opts, payslip.WithTextLayer(payslip.PDFTextLayer{}))
	}
	return payslip.NewExtractor(engine, policy, logger, opts...)
}

// ProvideAnalyzer builds the analysis engine with the configured providers and prompts.
func ProvideAnalyzer(cfg *config.Config, logger *zap.Logger) (*analysis.Engine, []analysis.Provider, error) {
	prompts := analysis.DefaultPrompts()
	if cfg.Analysis.PromptsPath != "" {
		loaded, err := analysis.LoadPrompts(cfg.Analysis.PromptsPath)
		if err != nil {
			return nil, nil, err
		}
		prompts = loaded
	}

	providers, err := external.NewProviders(cfg.Providers, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create providers: %w", err)
	}

	return analysis.NewEngine(providers, prompts, cfg.Policy, cfg.Analysis, logger), providers, nil
}

// ProvideStorage creates upload storage and the document resolver.
// The S3 source is created only when a region or endpoint is configured.
func ProvideStorage(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (*StorageBundle, error) {
	files := storage.NewLocalFileStorage(cfg.BaseDir, logger)
	if _, err := files.PruneUploads(ctx, staleUploadAge); err != nil {
		logger.Warn("Failed to prune stale uploads", zap.Error(err))
	}

	var s3 *storage.S3Source
	if cfg.S3.Region != "" || cfg.S3.Endpoint != "" {
		src, err := storage.NewS3Source(ctx, cfg.S3, files, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 source: %w", err)
		}
		s3 = src
	}

	return &StorageBundle{
		Files:  files,
		Source: storage.NewDocumentResolver(s3),
		S3:     s3,
	}, nil
}
