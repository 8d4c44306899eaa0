// Package telemetry reports failed runs to Sentry when a DSN is configured.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Options configures the reporter
type Options struct {
	DSN         string
	Environment string
	Release     string

	// BeforeSend can inspect or drop events before they are sent
	BeforeSend func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event
}

// Reporter captures run failures. A nil *Reporter is valid and does nothing,
// which is what New returns when no DSN is set.
type Reporter struct {
	hub *sentry.Hub
}

// New builds a reporter with its own client and hub.
func New(opts Options) (*Reporter, error) {
	if opts.DSN == "" {
		return nil, nil
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		AttachStacktrace: true,
		BeforeSend:       opts.BeforeSend,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}

	return &Reporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Enabled reports whether events are being sent
func (r *Reporter) Enabled() bool {
	return r != nil && r.hub != nil
}

// CaptureRunFailure sends err tagged with its category, the run and the
// reference day.
func (r *Reporter) CaptureRunFailure(err error, errorType, runID, date string) {
	if !r.Enabled() || err == nil {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_type", errorType)
		scope.SetTag("run_id", runID)
		scope.SetTag("report_date", date)
		scope.SetLevel(sentry.LevelError)
		r.hub.CaptureException(err)
	})
}

// AddBreadcrumb records a step of the run for context on later failures
func (r *Reporter) AddBreadcrumb(category, message string) {
	if !r.Enabled() {
		return
	}
	r.hub.AddBreadcrumb(&sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}, nil)
}

// Flush waits for queued events
func (r *Reporter) Flush(timeout time.Duration) bool {
	if !r.Enabled() {
		return true
	}
	return r.hub.Flush(timeout)
}
