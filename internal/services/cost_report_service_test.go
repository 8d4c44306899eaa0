package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costalert/internal/amqp"
	"costalert/internal/billing"
	billingmem "costalert/internal/billing/memory"
	"costalert/internal/core"
	"costalert/internal/ledger"
	"costalert/internal/log"
	"costalert/internal/report"
	sheetsmem "costalert/internal/sheets/memory"
	"costalert/internal/storage"
)

var testNow = time.Date(2026, 10, 16, 22, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.LedgerUpdatedMessage
	err  error
}

func (p *recordingPublisher) PublishLedgerUpdated(_ context.Context, msg *amqp.LedgerUpdatedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

type recordingRuns struct {
	records []storage.RunRecord
}

func (r *recordingRuns) RecordRun(_ context.Context, rec storage.RunRecord) error {
	r.records = append(r.records, rec)
	return nil
}

type recordingReporter struct {
	kinds []string
}

func (r *recordingReporter) CaptureRunFailure(_ error, errorType, _, _ string) {
	r.kinds = append(r.kinds, errorType)
}

type fixture struct {
	files     *storage.FileStore
	publisher *recordingPublisher
	mirror    *sheetsmem.Mirror
	runs      *recordingRuns
	reporter  *recordingReporter
	logs      *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		files:     storage.NewFileStore(t.TempDir()),
		publisher: &recordingPublisher{},
		mirror:    sheetsmem.New(),
		runs:      &recordingRuns{},
		reporter:  &recordingReporter{},
		logs:      &bytes.Buffer{},
	}
}

// service wires the markdown backend: the summary file is the store.
func (f *fixture) service(source billing.Source, now time.Time) *CostReportService {
	clock := core.FixedClock(now)
	return NewCostReportService(Deps{
		Source:     source,
		Reconciler: ledger.NewReconciler(ledger.NewMarkdownStore(f.files), nil),
		Reports:    report.NewWriter(f.files),
		Clock:      clock,
		Publisher:  f.publisher,
		Mirror:     f.mirror,
		Runs:       f.runs,
		Reporter:   f.reporter,
		Logger:     log.New(log.Config{Output: f.logs, Format: "text"}),
	})
}

func (f *fixture) read(t *testing.T, name string) string {
	t.Helper()
	data, err := f.files.Read(name)
	require.NoError(t, err)
	return string(data)
}

func scenarioItems() []core.BillingItem {
	return []core.BillingItem{
		{Date: "2026-10-16", Description: "Droplet", Amount: "3.00"},
		{Date: "2026-10-16T00:00:00Z", Description: "Volume", Amount: "4.50", Duration: "24h"},
		{Date: "2026-10-15", Description: "Droplet", Amount: "99.00"},
	}
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t)
	svc := f.service(billingmem.New(scenarioItems()...), testNow)

	res, err := svc.Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, "2026-10-16", res.Date.String())
	assert.Equal(t, "7.50", res.Daily.Total.String())
	assert.Len(t, res.Daily.Items, 2)
	assert.Equal(t, "2026/10/16.md", res.ReportPath)
	assert.NotEmpty(t, res.RunID)

	require.Len(t, res.Ledger.Rows, 1)
	assert.Equal(t, 16, res.Ledger.Rows[0].Day)
	assert.Equal(t, "7.50", res.Ledger.Rows[0].Cost.String())
	assert.Equal(t, "7.50", res.Ledger.Rows[0].RunningTotal.String())

	daily := f.read(t, "2026/10/16.md")
	assert.True(t, strings.HasPrefix(daily, "# DigitalOcean Cost Report - 2026-10-16\n"))
	assert.Contains(t, daily, "**7.50**")
	assert.NotContains(t, daily, "99.00")

	summary := f.read(t, "2026/10/monthly_summary.md")
	parsed, stats := ledger.Parse([]byte(summary), core.MonthKey{Year: 2026, Month: 10})
	assert.Equal(t, 0, stats.Dropped)
	assert.Equal(t, map[int]core.Money{16: {Cents: 750}}, parsed.Entries())

	require.Len(t, f.publisher.msgs, 1)
	assert.Equal(t, res.RunID, f.publisher.msgs[0].RunID)
	assert.Equal(t, "7.50", f.publisher.msgs[0].MonthTotal)

	grid, ok := f.mirror.Sheet(core.MonthKey{Year: 2026, Month: 10})
	require.True(t, ok)
	assert.Len(t, grid, 2)

	require.Len(t, f.runs.records, 1)
	assert.Equal(t, storage.RunStatusSuccess, f.runs.records[0].Status)
	assert.Equal(t, int64(750), f.runs.records[0].Total.Cents)
	assert.Contains(t, f.logs.String(), "run_id="+res.RunID)
}

func TestRun_RerunSameDayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	svc := f.service(billingmem.New(scenarioItems()...), testNow)

	_, err := svc.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	first := f.read(t, "2026/10/monthly_summary.md")

	res, err := svc.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, first, f.read(t, "2026/10/monthly_summary.md"))
	assert.Equal(t, "7.50", res.Ledger.Ledger.Total().String())
}

func TestRun_AccumulatesAcrossDays(t *testing.T) {
	f := newFixture(t)
	items := append(scenarioItems(), core.BillingItem{Date: "2026-10-17", Description: "Droplet", Amount: "2.00"})

	_, err := f.service(billingmem.New(items...), testNow).Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	res, err := f.service(billingmem.New(items...), testNow.Add(24*time.Hour)).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	require.Len(t, res.Ledger.Rows, 2)
	assert.Equal(t, "9.50", res.Ledger.Rows[1].RunningTotal.String())
}

func TestRun_DateOverride(t *testing.T) {
	f := newFixture(t)
	svc := f.service(billingmem.New(scenarioItems()...), testNow)

	res, err := svc.Run(context.Background(), RunOptions{Date: core.NewDate(2026, 10, 15)})
	require.NoError(t, err)
	assert.Equal(t, "99.00", res.Daily.Total.String())
	assert.Equal(t, "2026/10/15.md", res.ReportPath)
}

func TestRun_EmptyDay(t *testing.T) {
	f := newFixture(t)
	svc := f.service(billingmem.New(), testNow)

	res, err := svc.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.True(t, res.Daily.IsEmpty())
	assert.Contains(t, f.read(t, "2026/10/16.md"), report.EmptyMessage)
	require.Len(t, res.Ledger.Rows, 1)
	assert.Equal(t, "0.00", res.Ledger.Rows[0].Cost.String())
}

func TestRun_SkippedItemsAreLogged(t *testing.T) {
	f := newFixture(t)
	items := append(scenarioItems(),
		core.BillingItem{Date: "16/10/2026", Amount: "1.00"},
		core.BillingItem{Date: "2026-10-16", Amount: "-5.00", Description: "Payment"},
	)
	res, err := f.service(billingmem.New(items...), testNow).Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Daily.Skipped)
	assert.Equal(t, "7.50", res.Daily.Total.String())
	assert.Contains(t, f.logs.String(), "skipped_items=2")
}

func TestRun_AuthFailureRecordsErrorAndSkipsLedger(t *testing.T) {
	f := newFixture(t)
	authErr := &billing.APIError{StatusCode: http.StatusUnauthorized, Message: "Unable to authenticate you", Err: billing.ErrUnauthorized}
	svc := f.service(billingmem.Failing(authErr), testNow)

	res, err := svc.Run(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.Nil(t, res)

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, KindAuthentication, runErr.Kind)
	assert.True(t, errors.Is(err, billing.ErrUnauthorized))

	daily := f.read(t, "2026/10/16.md")
	assert.True(t, strings.HasPrefix(daily, "# DigitalOcean Error Report - 2026-10-16 22:00:00\n"))
	assert.Contains(t, daily, "Error Type: AuthenticationError\n")
	assert.Contains(t, daily, "Unable to authenticate you")

	exists, err := f.files.Exists("2026/10/monthly_summary.md")
	require.NoError(t, err)
	assert.False(t, exists, "no ledger write on a failed fetch")

	assert.Empty(t, f.publisher.msgs)
	assert.Equal(t, 0, f.mirror.Calls())
	assert.Equal(t, []string{"AuthenticationError"}, f.reporter.kinds)
	require.Len(t, f.runs.records, 1)
	assert.Equal(t, storage.RunStatusFailed, f.runs.records[0].Status)
	assert.Equal(t, "AuthenticationError", f.runs.records[0].ErrorType)
}

func TestRun_FailureAppendsToExistingReport(t *testing.T) {
	f := newFixture(t)
	_, err := f.service(billingmem.New(scenarioItems()...), testNow).Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	before := f.read(t, "2026/10/16.md")
	summary := f.read(t, "2026/10/monthly_summary.md")

	later := testNow.Add(30 * time.Minute)
	_, err = f.service(billingmem.Failing(billing.ErrRateLimited), later).Run(context.Background(), RunOptions{})
	require.Error(t, err)

	after := f.read(t, "2026/10/16.md")
	require.True(t, strings.HasPrefix(after, before), "prior content preserved")
	rest := strings.TrimPrefix(after, before)
	assert.True(t, strings.HasPrefix(rest, "\n\n---\n\n# DigitalOcean Error Report - 2026-10-16 22:30:00\n"))
	assert.Contains(t, rest, "Error Type: APIError\n")
	assert.Equal(t, summary, f.read(t, "2026/10/monthly_summary.md"))
}

func TestRun_SideEffectFailuresDoNotFailRun(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")
	f.mirror = sheetsmem.Failing(errors.New("quota exceeded"))

	res, err := f.service(billingmem.New(scenarioItems()...), testNow).Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "7.50", res.Daily.Total.String())
	assert.Contains(t, f.logs.String(), "Failed to publish ledger update")
	assert.Contains(t, f.logs.String(), "Failed to mirror ledger")
}

func TestRun_ReconcileFailureIsRecorded(t *testing.T) {
	f := newFixture(t)
	// A directory where the summary file should be makes the ledger write fail.
	require.NoError(t, f.files.Write("2026/10/monthly_summary.md/blocker", []byte("x")))

	_, err := f.service(billingmem.New(scenarioItems()...), testNow).Run(context.Background(), RunOptions{})
	require.Error(t, err)

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, KindUnexpected, runErr.Kind)

	daily := f.read(t, "2026/10/16.md")
	assert.Contains(t, daily, "**7.50**", "daily report kept")
	assert.Contains(t, daily, "Error Type: UnexpectedError")
}

func TestRun_SQLiteBackendImportsLegacySummary(t *testing.T) {
	f := newFixture(t)
	legacy := "# DigitalOcean Cost Summary - October 2026\n\n" +
		"| Day | Cost ($) | Running Total ($) |\n" +
		"|-----|----------|-------------------|\n" +
		"| 1 | 5.00 | 5.00 |\n" +
		"| 3 | 2.50 | 7.50 |\n\n" +
		"*Last Updated: 2026-10-03 23:00:00*\n"
	require.NoError(t, f.files.Write("2026/10/monthly_summary.md", []byte(legacy)))

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	clock := core.FixedClock(testNow)
	svc := NewCostReportService(Deps{
		Source:     billingmem.New(scenarioItems()...),
		Reconciler: ledger.NewReconciler(repo, f.files),
		Reports:    report.NewWriter(f.files),
		Clock:      clock,
		Runs:       repo,
		Logger:     log.New(log.Config{Output: f.logs}),
	})

	res, err := svc.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.True(t, res.Ledger.Imported)
	require.Len(t, res.Ledger.Rows, 3)
	assert.Equal(t, "15.00", res.Ledger.Rows[2].RunningTotal.String())

	stored, err := repo.LoadMonth(context.Background(), core.MonthKey{Year: 2026, Month: 10})
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Len())

	runs, err := repo.LastRuns(context.Background(), core.NewDate(2026, 10, 16), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ""},
		{fmt.Errorf("%w: DO_TOKEN missing", core.ErrConfiguration), KindConfiguration},
		{&billing.APIError{StatusCode: 403, Err: billing.ErrUnauthorized}, KindAuthentication},
		{fmt.Errorf("fetch: %w", billing.ErrRateLimited), KindAPI},
		{billing.ErrConnection, KindAPI},
		{&billing.APIError{StatusCode: 404, Message: "Not Found"}, KindAPI},
		{errors.New("disk full"), KindUnexpected},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "%v", tt.err)
	}
}

func TestFailureHandler_WithoutOptionalCollaborators(t *testing.T) {
	files := storage.NewFileStore(t.TempDir())
	h := NewFailureHandler(report.NewWriter(files), core.FixedClock(testNow), nil, nil, log.New(log.Config{Output: &bytes.Buffer{}}))

	runErr := h.Handle(context.Background(), "run-1", core.NewDate(2026, 10, 16), testNow,
		fmt.Errorf("%w: DigitalOcean API token not found, set DO_TOKEN", core.ErrConfiguration))

	assert.Equal(t, KindConfiguration, runErr.Kind)
	assert.Equal(t, "ConfigurationError: configuration error: DigitalOcean API token not found, set DO_TOKEN", runErr.Error())

	data, err := files.Read("2026/10/16.md")
	require.NoError(t, err)
	assert.Contains(t, string(data), "Error Type: ConfigurationError")
}
