package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/garyjia/tax-document-analyzer/internal/config"
	"github.com/garyjia/tax-document-analyzer/internal/container"
	httpapi "github.com/garyjia/tax-document-analyzer/internal/interfaces/http"
	"github.com/garyjia/tax-document-analyzer/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting tax document analyzer",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}
	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container shutdown error", zap.Error(err))
		}
	}()

	health := c.Health(ctx)
	for name, h := range health.Components {
		logger.Info("Component status",
			zap.String("component", name),
			zap.Bool("healthy", h.Healthy),
			zap.String("message", h.Message))
	}

	httpapi.Version = version
	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		MaxUploadSize: cfg.Server.MaxUploadSize,
	}, c.Documents(), c.FileStorage(), logger)

	// Blocks until SIGINT/SIGTERM
	if err := server.Start(ctx); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		return
	}

	stats := c.Analyzer().Stats()
	logger.Info("Server exited successfully",
		zap.Int64("analyses", stats.Requests),
		zap.Int64("cache_hits", stats.CacheHits),
		zap.Float64("error_rate", stats.ErrorRate))
}
