package services

import (
	"context"
	"time"

	"costalert/internal/core"
	"costalert/internal/log"
	"costalert/internal/report"
	"costalert/internal/storage"
)

// FailureHandler is the single place a failed run is classified and
// recorded: an error block appended to the day's report, an optional Sentry
// event and an optional audit row.
type FailureHandler struct {
	reports  *report.Writer
	clock    core.Clock
	runs     RunRecorder
	reporter ErrorReporter
	logger   *log.Logger
}

func NewFailureHandler(reports *report.Writer, clock core.Clock, runs RunRecorder, reporter ErrorReporter, logger *log.Logger) *FailureHandler {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &FailureHandler{
		reports:  reports,
		clock:    clock,
		runs:     runs,
		reporter: reporter,
		logger:   logger,
	}
}

// Handle records err for date and returns it classified. Recording is best
// effort; a failure to write the error block is logged, not returned.
func (h *FailureHandler) Handle(ctx context.Context, runID string, date core.Date, startedAt time.Time, err error) *RunError {
	kind := Classify(err)
	now := h.clock.Now()

	fields := log.NewFields().
		WithErrorType(string(kind)).
		WithError(err).
		WithDay(date.Year(), date.Month(), date.Day())
	h.logger.ErrorContext(ctx, "Cost report run failed", fields.ToSlice()...)

	if h.reports != nil {
		if path, werr := h.reports.AppendError(date, string(kind), err, now); werr != nil {
			h.logger.ErrorContext(ctx, "Failed to record error block", log.FieldError, werr)
		} else {
			h.logger.InfoContext(ctx, "Error block recorded", log.FieldPath, path)
		}
	}

	if h.reporter != nil {
		h.reporter.CaptureRunFailure(err, string(kind), runID, date.String())
	}

	if h.runs != nil {
		rec := storage.RunRecord{
			ID:         runID,
			ReportDate: date,
			Status:     storage.RunStatusFailed,
			ErrorType:  string(kind),
			ErrorMsg:   err.Error(),
			StartedAt:  startedAt,
			FinishedAt: now,
		}
		if rerr := h.runs.RecordRun(ctx, rec); rerr != nil {
			h.logger.WarnContext(ctx, "Failed to record run", log.FieldError, rerr)
		}
	}

	return &RunError{Kind: kind, RunID: runID, Err: err}
}
