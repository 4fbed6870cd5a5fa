package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/tax-document-analyzer/internal/analysis"
	"github.com/garyjia/tax-document-analyzer/internal/application/port"
	"github.com/garyjia/tax-document-analyzer/internal/application/service"
	"github.com/garyjia/tax-document-analyzer/internal/config"
	"github.com/garyjia/tax-document-analyzer/internal/fattura"
	"github.com/garyjia/tax-document-analyzer/internal/ocr"
	"github.com/garyjia/tax-document-analyzer/internal/payslip"
	"github.com/garyjia/tax-document-analyzer/internal/report"
	"github.com/garyjia/tax-document-analyzer/pkg/database"
	"go.uber.org/zap"
)

// Container owns every pipeline component. Components are initialized in
// dependency order by Start and released in reverse order by Close.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure
	db      *database.DB
	repo    port.AnalysisRepository
	storage *StorageBundle
	ocr     ocr.Engine

	// Pipeline
	invoices  *fattura.Parser
	payslips  *payslip.Extractor
	analyzer  *analysis.Engine
	providers []analysis.Provider
	exporter  *report.ExcelExporter
	documents service.DocumentService

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components.
// 1. Database and repository
// 2. Storage and document sources
// 3. OCR engine and document readers
// 4. Analysis engine and report exporter
// 5. Document service
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	db, err := ProvideDatabase(ctx, &c.config.Database, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.db = db
	c.repo = ProvideRepository(db, c.logger)

	c.storage, err = ProvideStorage(ctx, &c.config.Storage, c.logger)
	if err != nil {
		c.release()
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	c.ocr, err = ProvideOCR(ctx, &c.config.OCR, c.logger)
	if err != nil {
		c.release()
		return err
	}
	c.invoices = fattura.NewParser(c.config.Policy, c.logger)
	c.payslips = ProvideExtractor(c.ocr, &c.config.OCR, c.config.Policy, c.logger)

	c.analyzer, c.providers, err = ProvideAnalyzer(c.config, c.logger)
	if err != nil {
		c.release()
		return fmt.Errorf("failed to initialize analysis engine: %w", err)
	}
	c.exporter = report.NewExcelExporter(c.logger)

	c.documents = service.NewDocumentService(
		c.storage.Source,
		c.invoices,
		c.payslips,
		c.analyzer,
		c.repo,
		c.exporter,
		c.logger,
	)

	c.ready.Store(true)
	c.logger.Info("Container started successfully",
		zap.Bool("history", c.db != nil),
		zap.Bool("s3", c.storage.S3 != nil),
		zap.String("ocr_engine", c.config.OCR.Engine))

	return nil
}

// Close releases all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	errs := c.release()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

func (c *Container) release() []error {
	var errs []error

	if c.ocr != nil {
		if err := c.ocr.Close(); err != nil {
			c.logger.Error("Failed to close OCR engine", zap.Error(err))
			errs = append(errs, fmt.Errorf("close ocr: %w", err))
		}
		c.ocr = nil
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
		c.db = nil
	}

	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    c.ready.Load(),
		Components: make(map[string]ComponentHealth),
	}

	switch {
	case c.db == nil:
		status.Components["database"] = ComponentHealth{Healthy: true, Message: "history disabled"}
	default:
		if err := c.db.PingContext(ctx); err != nil {
			status.Components["database"] = ComponentHealth{Message: fmt.Sprintf("ping failed: %v", err)}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	}

	if c.ocr != nil {
		status.Components["ocr"] = ComponentHealth{Healthy: true, Message: c.config.OCR.Engine}
	} else {
		status.Components["ocr"] = ComponentHealth{Message: "not initialized"}
		status.Overall = false
	}

	if c.analyzer != nil {
		configured := len(c.Providers())
		msg := fmt.Sprintf("providers: %d", configured)
		if configured == 0 {
			msg = "offline rules only"
		}
		status.Components["analysis"] = ComponentHealth{Healthy: true, Message: msg}
	} else {
		status.Components["analysis"] = ComponentHealth{Message: "not initialized"}
		status.Overall = false
	}

	return status
}

// Documents returns the document service.
func (c *Container) Documents() service.DocumentService {
	return c.documents
}

// Analyzer returns the analysis engine.
func (c *Container) Analyzer() *analysis.Engine {
	return c.analyzer
}

// Providers returns the language model providers in failover order.
func (c *Container) Providers() []analysis.Provider {
	return c.providers
}

// FileStorage returns the upload storage.
func (c *Container) FileStorage() port.FileStorage {
	if c.storage == nil {
		return nil
	}
	return c.storage.Files
}

// Exporter returns the Excel report exporter.
func (c *Container) Exporter() *report.ExcelExporter {
	return c.exporter
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}
