package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"costalert/internal/core"
	"costalert/internal/ledger"
)

var savedAt = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_LoadEmptyMonth(t *testing.T) {
	repo := newTestRepo(t)

	l, err := repo.LoadMonth(context.Background(), core.MonthKey{Year: 2026, Month: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestSQLiteRepository_SaveReplacesMonth(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	oct := core.MonthKey{Year: 2026, Month: 10}
	nov := core.MonthKey{Year: 2026, Month: 11}

	first := ledger.New(oct)
	require.NoError(t, first.Set(1, core.Money{Cents: 500}))
	require.NoError(t, first.Set(2, core.Money{Cents: 300}))
	require.NoError(t, repo.SaveMonth(ctx, first, savedAt))

	other := ledger.New(nov)
	require.NoError(t, other.Set(1, core.Money{Cents: 42}))
	require.NoError(t, repo.SaveMonth(ctx, other, savedAt))

	second := ledger.New(oct)
	require.NoError(t, second.Set(2, core.Money{Cents: 1200}))
	require.NoError(t, repo.SaveMonth(ctx, second, savedAt))

	loaded, err := repo.LoadMonth(ctx, oct)
	require.NoError(t, err)
	assert.True(t, second.Equal(loaded))

	loadedNov, err := repo.LoadMonth(ctx, nov)
	require.NoError(t, err)
	assert.True(t, other.Equal(loadedNov), "saving one month must not touch another")
}

func TestSQLiteRepository_ReconcilerRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	files := NewFileStore(t.TempDir())
	r := ledger.NewReconciler(repo, files)
	ctx := context.Background()
	at := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	_, err := r.Reconcile(ctx, core.NewDate(2026, 10, 15), core.Money{Cents: 500}, at)
	require.NoError(t, err)
	res, err := r.Reconcile(ctx, core.NewDate(2026, 10, 16), core.Money{Cents: 750}, at)
	require.NoError(t, err)

	assert.Equal(t, core.Money{Cents: 1250}, res.Ledger.Total())

	view, err := files.Read(core.SummaryPath(core.MonthKey{Year: 2026, Month: 10}))
	require.NoError(t, err)
	assert.Equal(t, string(res.View), string(view))
}

func TestSQLiteRepository_RecordRun(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	day := core.NewDate(2026, 10, 16)
	start := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.RecordRun(ctx, RunRecord{
		ID: "run-1", ReportDate: day, Status: RunStatusFailed,
		ErrorType: "APIError", ErrorMsg: "rate limited",
		StartedAt: start, FinishedAt: start.Add(time.Second),
	}))
	require.NoError(t, repo.RecordRun(ctx, RunRecord{
		ID: "run-2", ReportDate: day, Status: RunStatusSuccess,
		Total: core.Money{Cents: 750}, ItemCount: 2,
		StartedAt: start.Add(time.Hour), FinishedAt: start.Add(time.Hour + time.Second),
	}))

	runs, err := repo.LastRuns(ctx, day, 5)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, int64(750), runs[0].Total.Cents)
	assert.Equal(t, "APIError", runs[1].ErrorType)
}

func TestMigrateLedgerSchema_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	version, err := MigrateLedgerSchema(path)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}
