package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"costalert/internal/core"
	"costalert/internal/ledger"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the structured ledger store. Each recorded day is one
// row keyed by (year, month, day); the markdown summary is derived from it.
type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := MigrateLedgerSchema(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadMonth implements ledger.Store
func (r *SQLiteRepository) LoadMonth(ctx context.Context, month core.MonthKey) (*ledger.Ledger, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT day, cost_cents FROM ledger_days WHERE year = ? AND month = ? ORDER BY day`,
		month.Year, month.Month)
	if err != nil {
		return nil, fmt.Errorf("query ledger days: %w", err)
	}
	defer rows.Close()

	l := ledger.New(month)
	for rows.Next() {
		var day int
		var cents int64
		if err := rows.Scan(&day, &cents); err != nil {
			return nil, fmt.Errorf("scan ledger day: %w", err)
		}
		if err := l.Set(day, core.Money{Cents: cents}); err != nil {
			return nil, fmt.Errorf("stored ledger %s: %w", month, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger days: %w", err)
	}

	return l, nil
}

// SaveMonth implements ledger.Store. The month is replaced in one transaction
// so a failed save leaves the previous state intact.
func (r *SQLiteRepository) SaveMonth(ctx context.Context, l *ledger.Ledger, updatedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM ledger_days WHERE year = ? AND month = ?`,
		l.Month.Year, l.Month.Month); err != nil {
		return fmt.Errorf("clear ledger month: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ledger_days (year, month, day, cost_cents, updated_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, day := range l.Days() {
		cost, _ := l.Cost(day)
		if _, err := stmt.ExecContext(ctx, l.Month.Year, l.Month.Month, day, cost.Cents, updatedAt.UTC()); err != nil {
			return fmt.Errorf("insert ledger day %d: %w", day, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger month: %w", err)
	}

	slog.DebugContext(ctx, "Ledger month saved to SQLite",
		"month", l.Month.String(),
		"recorded_days", l.Len())

	return nil
}

// RunRecord is the audit entry written for every report run.
type RunRecord struct {
	ID         string
	ReportDate core.Date
	Status     string // "success" or "failed"
	Total      core.Money
	ItemCount  int
	Skipped    int
	ErrorType  string
	ErrorMsg   string
	StartedAt  time.Time
	FinishedAt time.Time
}

const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// RecordRun stores the outcome of a report run.
func (r *SQLiteRepository) RecordRun(ctx context.Context, rec RunRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO report_runs
			(id, report_date, status, total_cents, item_count, skipped, error_type, error_msg, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ReportDate.String(), rec.Status, rec.Total.Cents, rec.ItemCount, rec.Skipped,
		rec.ErrorType, rec.ErrorMsg, rec.StartedAt.UTC(), rec.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert report run: %w", err)
	}
	return nil
}

// LastRuns returns the most recent runs for a report date, newest first.
func (r *SQLiteRepository) LastRuns(ctx context.Context, date core.Date, limit int) ([]RunRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, status, total_cents, item_count, skipped, error_type, error_msg, started_at, finished_at
		 FROM report_runs WHERE report_date = ? ORDER BY started_at DESC LIMIT ?`,
		date.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("query report runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec := RunRecord{ReportDate: date}
		if err := rows.Scan(&rec.ID, &rec.Status, &rec.Total.Cents, &rec.ItemCount, &rec.Skipped,
			&rec.ErrorType, &rec.ErrorMsg, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan report run: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
