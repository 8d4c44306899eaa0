package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"costalert/internal/amqp"
	"costalert/internal/billing"
	"costalert/internal/core"
	"costalert/internal/ledger"
	"costalert/internal/log"
	"costalert/internal/report"
	"costalert/internal/sheets"
	"costalert/internal/storage"
)

// Deps are the collaborators of a CostReportService. Source, Reconciler,
// Reports and Clock are required; the rest are optional.
type Deps struct {
	Source     billing.Source
	Reconciler *ledger.Reconciler
	Reports    *report.Writer
	Clock      core.Clock

	Publisher LedgerPublisher
	Mirror    sheets.LedgerMirror
	Runs      RunRecorder
	Reporter  ErrorReporter
	Logger    *log.Logger
}

// CostReportService runs one daily cost report: fetch, aggregate, write the
// daily report, reconcile the monthly ledger, then notify.
type CostReportService struct {
	source     billing.Source
	reconciler *ledger.Reconciler
	reports    *report.Writer
	clock      core.Clock
	publisher  LedgerPublisher
	mirror     sheets.LedgerMirror
	runs       RunRecorder
	failures   *FailureHandler
	logger     *log.Logger
}

// RunOptions tunes a single run
type RunOptions struct {
	// Date overrides the reference day; zero means today per the clock
	Date core.Date
}

// RunResult describes a successful run
type RunResult struct {
	RunID      string
	Date       core.Date
	Daily      core.DailyCosts
	ReportPath string
	Ledger     *ledger.Result
}

func NewCostReportService(d Deps) *CostReportService {
	logger := d.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	clock := d.Clock
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &CostReportService{
		source:     d.Source,
		reconciler: d.Reconciler,
		reports:    d.Reports,
		clock:      clock,
		publisher:  d.Publisher,
		mirror:     d.Mirror,
		runs:       d.Runs,
		failures:   NewFailureHandler(d.Reports, clock, d.Runs, d.Reporter, logger),
		logger:     logger,
	}
}

// Run executes one report. On failure the error is recorded through the
// FailureHandler and returned as a *RunError. Nothing is written to the
// ledger unless fetching and the daily report succeeded.
func (s *CostReportService) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	runID := uuid.NewString()
	startedAt := s.clock.Now()
	date := opts.Date
	if date.IsZero() {
		date = core.DateOf(startedAt)
	}

	logger := s.logger.WithRun(runID)

	res, err := s.run(ctx, logger, runID, date)
	if err != nil {
		return nil, s.failures.Handle(ctx, runID, date, startedAt, err)
	}

	s.recordSuccess(ctx, logger, res, startedAt)
	return res, nil
}

func (s *CostReportService) run(ctx context.Context, logger *log.Logger, runID string, date core.Date) (*RunResult, error) {
	if s.source == nil || s.reconciler == nil || s.reports == nil {
		return nil, errors.New("cost report service is not fully configured")
	}

	items, err := s.source.FetchBillingItems(ctx)
	if err != nil {
		return nil, err
	}

	dc := core.Aggregate(items, date)
	fields := log.NewFields().
		WithOperation(log.OpAggregate).
		WithDay(date.Year(), date.Month(), date.Day()).
		WithCosts(dc.Total.String(), len(dc.Items), dc.Skipped)
	if dc.Skipped > 0 {
		logger.WarnContext(ctx, "Skipped billing items with unusable date or amount", fields.ToSlice()...)
	} else {
		logger.InfoContext(ctx, "Aggregated daily costs", fields.ToSlice()...)
	}

	path, err := s.reports.WriteDaily(dc, s.clock.Now())
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Daily report written", log.FieldPath, path)

	result, err := s.reconciler.Reconcile(ctx, date, dc.Total, s.clock.Now())
	if err != nil {
		return nil, err
	}

	res := &RunResult{
		RunID:      runID,
		Date:       date,
		Daily:      dc,
		ReportPath: path,
		Ledger:     result,
	}

	s.publish(ctx, logger, res)
	s.mirrorLedger(ctx, logger, res)
	return res, nil
}

// publish announces the reconciled day. Failures are logged only.
func (s *CostReportService) publish(ctx context.Context, logger *log.Logger, res *RunResult) {
	if s.publisher == nil {
		logger.DebugContext(ctx, "AMQP client not available, skipping ledger update message")
		return
	}
	msg := amqp.NewLedgerUpdatedMessage(res.RunID, res.Date, res.Daily.Total,
		res.Ledger.Ledger.Total(), res.Ledger.Ledger.Len(), s.clock.Now())
	if err := s.publisher.PublishLedgerUpdated(ctx, msg); err != nil {
		logger.WithComponent(log.ComponentAMQP).ErrorContext(ctx, "Failed to publish ledger update",
			log.FieldOperation, log.OpPublish,
			log.FieldError, err)
	}
}

// mirrorLedger copies the month to the spreadsheet. Failures are logged only.
func (s *CostReportService) mirrorLedger(ctx context.Context, logger *log.Logger, res *RunResult) {
	if s.mirror == nil {
		return
	}
	month := core.MonthOf(res.Date)
	if err := s.mirror.MirrorLedger(ctx, month, res.Ledger.Rows); err != nil {
		logger.WithComponent(log.ComponentSheets).ErrorContext(ctx, "Failed to mirror ledger",
			log.FieldOperation, log.OpMirror,
			log.FieldMonth, month.String(),
			log.FieldError, err)
	}
}

func (s *CostReportService) recordSuccess(ctx context.Context, logger *log.Logger, res *RunResult, startedAt time.Time) {
	finishedAt := s.clock.Now()
	logger.InfoContext(ctx, "Cost report generated",
		log.FieldDate, res.Date.String(),
		log.FieldTotalCost, res.Daily.Total.String(),
		log.FieldMonthTotal, res.Ledger.Ledger.Total().String(),
		log.FieldDuration, finishedAt.Sub(startedAt).Milliseconds())

	if s.runs == nil {
		return
	}
	rec := storage.RunRecord{
		ID:         res.RunID,
		ReportDate: res.Date,
		Status:     storage.RunStatusSuccess,
		Total:      res.Daily.Total,
		ItemCount:  len(res.Daily.Items),
		Skipped:    res.Daily.Skipped,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
	if err := s.runs.RecordRun(ctx, rec); err != nil {
		logger.WarnContext(ctx, "Failed to record run", log.FieldError, err)
	}
}
