package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"costalert/internal/amqp"
	"costalert/internal/backend"
	"costalert/internal/config"
	"costalert/internal/log"
	"costalert/internal/services"
	"costalert/internal/sheets"
	gsheet "costalert/internal/sheets/google"
	"costalert/internal/storage"
)

const flushTimeout = 2 * time.Second

// loadConfig reads configuration and applies command-line overrides.
// Flags win over environment and YAML.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadFrom(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("reports-dir") {
		cfg.ReportsDir = c.String("reports-dir")
	}
	if c.IsSet("backend") {
		cfg.LedgerBackend = c.String("backend")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	lc := log.DefaultConfig()
	lc.Format = cfg.LogFormat
	if err == nil {
		lc.Level = level
	}
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

func openLedger(cfg *config.Config, files *storage.FileStore, logger *log.Logger) (*backend.BackendResult, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("Opening ledger backend", log.FieldBackend, bc.Type, log.FieldPath, bc.SQLiteDBPath)
	res, err := backend.NewFactory(files, logger.WithComponent(log.ComponentLedger).Logger).Open(bc)
	if err != nil {
		return nil, fmt.Errorf("open ledger store: %w", err)
	}
	return res, nil
}

// runRecorder returns the audit recorder, nil when the backend keeps no run history.
func runRecorder(b *backend.BackendResult) services.RunRecorder {
	if b.Repository == nil {
		return nil
	}
	return b.Repository
}

// openPublisher connects to the broker when configured. A broker that cannot
// be reached disables publishing for this run.
func openPublisher(ctx context.Context, cfg *config.Config, logger *log.Logger) *amqp.Client {
	if !cfg.AMQPEnabled() {
		logger.Debug("AMQP disabled - no AMQP_URL provided")
		return nil
	}
	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.WithComponent(log.ComponentAMQP).Warn("Failed to initialize AMQP client, ledger updates will not be published", log.FieldError, err)
		return nil
	}
	return client
}

// openMirror builds the Sheets mirror when configured. Failures disable it.
func openMirror(ctx context.Context, cfg *config.Config, logger *log.Logger) sheets.LedgerMirror {
	if !cfg.SheetsEnabled() {
		logger.Debug("Google Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
		return nil
	}
	client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		logger.WithComponent(log.ComponentSheets).Warn("Failed to initialize Google Sheets client, ledger will not be mirrored", log.FieldError, err)
		return nil
	}
	return client
}

// exitError turns a failure into the stderr line and exit code 1.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	var runErr *services.RunError
	if errors.As(err, &runErr) {
		return cli.Exit(runErr.Error(), 1)
	}
	return cli.Exit(fmt.Sprintf("%s: %v", services.Classify(err), err), 1)
}
