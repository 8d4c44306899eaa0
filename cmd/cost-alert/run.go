package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"costalert/internal/billing/digitalocean"
	"costalert/internal/config"
	"costalert/internal/core"
	"costalert/internal/log"
	"costalert/internal/report"
	"costalert/internal/services"
	"costalert/internal/storage"
	"costalert/internal/telemetry"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Fetch billing history, write today's report and update the monthly ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "date",
				Usage: "Reference day (YYYY-MM-DD) instead of today",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	ctx := contextOf(c)

	cfg, cfgErr := loadConfig(c)
	if cfgErr != nil {
		cfg = fallbackConfig(c)
	}
	logger := newLogger(cfg)
	clock := core.SystemClock{Location: cfg.Location()}
	files := storage.NewFileStore(cfg.ReportsDir)
	reports := report.NewWriter(files)

	reporter, err := telemetry.New(telemetry.Options{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     version,
	})
	if err != nil {
		logger.WithComponent(log.ComponentSentry).Warn("Sentry disabled", log.FieldError, err)
	}
	defer reporter.Flush(flushTimeout)

	startedAt := clock.Now()
	date := core.DateOf(startedAt)
	if s := c.String("date"); s != "" {
		d, err := parseRunDate(s)
		if err != nil && cfgErr == nil {
			cfgErr = err
		} else if err == nil {
			date = d
		}
	}
	if cfgErr == nil {
		cfgErr = cfg.Validate()
	}
	if cfgErr != nil {
		failures := services.NewFailureHandler(reports, clock, nil, reporterOrNil(reporter), logger)
		return exitError(failures.Handle(ctx, uuid.NewString(), date, startedAt, cfgErr))
	}

	source, err := digitalocean.NewClient(&digitalocean.Options{
		BaseURL: cfg.DOAPIURL,
		Token:   cfg.DOToken,
		Timeout: cfg.BillingTimeout,
		RetryConfig: &digitalocean.RetryConfig{
			MaxRetries: cfg.BillingMaxRetries,
		},
		Logger: logger.WithComponent(log.ComponentBilling).Logger,
	})
	if err != nil {
		failures := services.NewFailureHandler(reports, clock, nil, reporterOrNil(reporter), logger)
		return exitError(failures.Handle(ctx, uuid.NewString(), date, startedAt, err))
	}

	store, err := openLedger(cfg, files, logger)
	if err != nil {
		failures := services.NewFailureHandler(reports, clock, nil, reporterOrNil(reporter), logger)
		return exitError(failures.Handle(ctx, uuid.NewString(), date, startedAt, err))
	}
	defer store.Close()

	deps := services.Deps{
		Source:     source,
		Reconciler: store.Reconciler,
		Reports:    reports,
		Clock:      clock,
		Mirror:     openMirror(ctx, cfg, logger),
		Runs:       runRecorder(store),
		Reporter:   reporterOrNil(reporter),
		Logger:     logger,
	}
	if publisher := openPublisher(ctx, cfg, logger); publisher != nil {
		defer publisher.Close()
		deps.Publisher = publisher
	}

	svc := services.NewCostReportService(deps)
	if _, err := svc.Run(ctx, services.RunOptions{Date: date}); err != nil {
		return exitError(err)
	}

	fmt.Fprintln(c.App.Writer, "Cost report generated successfully!")
	return nil
}

func parseRunDate(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: --date: %v", core.ErrConfiguration, err)
	}
	return d, nil
}

// fallbackConfig is used when the configuration cannot be loaded at all, so
// the error block still lands in the requested reports directory.
func fallbackConfig(c *cli.Context) *config.Config {
	cfg := config.Defaults()
	if c.IsSet("reports-dir") {
		cfg.ReportsDir = c.String("reports-dir")
	}
	return &cfg
}

// reporterOrNil keeps a nil *telemetry.Reporter from becoming a non-nil
// interface value.
func reporterOrNil(r *telemetry.Reporter) services.ErrorReporter {
	if r == nil {
		return nil
	}
	return r
}
