package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"costalert/internal/backend"
	"costalert/internal/core"
	"costalert/internal/ledger"
	"costalert/internal/log"
	"costalert/internal/markdown"
	"costalert/internal/storage"
)

func ledgerCommand() *cli.Command {
	monthFlag := &cli.StringFlag{
		Name:  "month",
		Usage: "Month to operate on (YYYY-MM), defaults to the current month",
	}

	return &cli.Command{
		Name:  "ledger",
		Usage: "Inspect or regenerate the monthly cost ledger",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the monthly ledger table",
				Flags:  []cli.Flag{monthFlag},
				Action: ledgerShowAction,
			},
			{
				Name:   "rebuild",
				Usage:  "Regenerate monthly_summary.md from the ledger store",
				Flags:  []cli.Flag{monthFlag},
				Action: ledgerRebuildAction,
			},
			{
				Name:  "runs",
				Usage: "List recorded report runs for a day (sqlite backend)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "date",
						Usage: "Report date (YYYY-MM-DD), defaults to today",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to list",
						Value: 10,
					},
				},
				Action: ledgerRunsAction,
			},
		},
	}
}

// ledgerEnv is what the ledger subcommands need.
type ledgerEnv struct {
	store  *backend.BackendResult
	clock  core.Clock
	month  core.MonthKey
	logger *log.Logger
}

func openLedgerEnv(c *cli.Context) (*ledgerEnv, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateLedger(); err != nil {
		return nil, err
	}

	logger := newLogger(cfg).WithComponent(log.ComponentLedger)
	clock := core.SystemClock{Location: cfg.Location()}

	month := core.MonthOf(core.DateOf(clock.Now()))
	if s := c.String("month"); s != "" {
		month, err = core.ParseMonth(s)
		if err != nil {
			return nil, fmt.Errorf("%w: --month: %v", core.ErrConfiguration, err)
		}
	}

	store, err := openLedger(cfg, storage.NewFileStore(cfg.ReportsDir), logger)
	if err != nil {
		return nil, err
	}
	return &ledgerEnv{store: store, clock: clock, month: month, logger: logger}, nil
}

func ledgerShowAction(c *cli.Context) error {
	env, err := openLedgerEnv(c)
	if err != nil {
		return exitError(err)
	}
	defer env.store.Close()

	l, err := env.store.Reconciler.Load(contextOf(c), env.month)
	if err != nil {
		return exitError(err)
	}

	fmt.Fprint(c.App.Writer, string(ledger.Render(l, env.clock.Now())))
	return nil
}

func ledgerRebuildAction(c *cli.Context) error {
	env, err := openLedgerEnv(c)
	if err != nil {
		return exitError(err)
	}
	defer env.store.Close()

	ctx := contextOf(c)
	if _, err := env.store.Reconciler.Rebuild(ctx, env.month, env.clock.Now()); err != nil {
		return exitError(err)
	}

	env.logger.InfoContext(ctx, "Ledger view rebuilt",
		log.FieldOperation, log.OpRebuild,
		log.FieldMonth, env.month.String(),
		log.FieldPath, core.SummaryPath(env.month))
	return nil
}

func ledgerRunsAction(c *cli.Context) error {
	env, err := openLedgerEnv(c)
	if err != nil {
		return exitError(err)
	}
	defer env.store.Close()

	if env.store.Repository == nil {
		return exitError(fmt.Errorf("%w: run history requires the %s ledger backend", core.ErrConfiguration, backend.SQLiteBackend))
	}
	limit := c.Int("limit")
	if limit < 1 {
		return exitError(fmt.Errorf("%w: --limit must be at least 1", core.ErrConfiguration))
	}
	date := core.DateOf(env.clock.Now())
	if s := c.String("date"); s != "" {
		if date, err = parseRunDate(s); err != nil {
			return exitError(err)
		}
	}

	runs, err := env.store.Repository.LastRuns(contextOf(c), date, limit)
	if err != nil {
		return exitError(err)
	}
	if len(runs) == 0 {
		fmt.Fprintf(c.App.Writer, "No runs recorded for %s.\n", date)
		return nil
	}
	fmt.Fprintln(c.App.Writer, runsTable(runs).Render())
	return nil
}

func runsTable(runs []storage.RunRecord) markdown.Table {
	t := markdown.Table{
		Headers: []string{"Finished", "Status", "Total ($)", "Items", "Skipped", "Error", "Run"},
		Align: []markdown.Align{
			markdown.AlignLeft, markdown.AlignLeft, markdown.AlignRight, markdown.AlignRight,
			markdown.AlignRight, markdown.AlignLeft, markdown.AlignLeft,
		},
	}
	for _, r := range runs {
		t.Rows = append(t.Rows, []string{
			r.FinishedAt.Format("2006-01-02 15:04:05"),
			r.Status,
			r.Total.String(),
			strconv.Itoa(r.ItemCount),
			strconv.Itoa(r.Skipped),
			r.ErrorType,
			r.ID,
		})
	}
	return t
}

func contextOf(c *cli.Context) context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}
