package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/garyjia/tax-document-analyzer/internal/config"
	"github.com/garyjia/tax-document-analyzer/internal/container"
	"github.com/garyjia/tax-document-analyzer/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "configs/config.yaml"

// session holds what every subcommand needs once the pipeline is up
type session struct {
	container *container.Container
	logger    *zap.Logger
	jsonOut   bool
	out       io.Writer
	stop      context.CancelFunc
}

var current *session

var rootCmd = &cobra.Command{
	Use:   "taxdoc",
	Short: "Parse, validate and analyze Italian tax documents",
	Long: `taxdoc reads FatturaElettronica XML invoices and scanned PDF payslips,
checks VAT, INPS and IRPEF figures, and asks a language model for an advisory
assessment. Without provider API keys the assessment uses offline rules.

Documents may be local paths or s3://bucket/key references.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default: "+defaultConfigPath+" when present)")
	rootCmd.PersistentFlags().Bool("json", false, "Print results as JSON")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level")
}

// Execute runs the root command
func Execute() {
	err := rootCmd.Execute()
	if tErr := teardown(); err == nil {
		err = tErr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			configPath = defaultConfigPath
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logger.Level = level
	}

	// stdout is reserved for command output
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	cmd.SetContext(ctx)

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		stop()
		return err
	}
	if err := c.Start(ctx); err != nil {
		stop()
		return err
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	current = &session{
		container: c,
		logger:    utils.WithComponent(logger, "cli"),
		jsonOut:   jsonOut,
		out:       cmd.OutOrStdout(),
		stop:      stop,
	}
	return nil
}

// teardown is idempotent; Execute calls it again when a command fails before the post-run hook
func teardown() error {
	if current == nil {
		return nil
	}
	s := current
	current = nil

	defer s.stop()
	defer s.logger.Sync()

	if err := s.container.Close(); err != nil {
		return err
	}
	return nil
}

func active() (*session, error) {
	if current == nil {
		return nil, errors.New("pipeline not initialized")
	}
	return current, nil
}
