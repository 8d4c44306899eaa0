package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"costalert/internal/core"
)

// Reconciler merges a day's total into the month's ledger. The Store is the
// source of truth; when a view Files is configured the summary table is
// regenerated from the stored ledger after every change.
type Reconciler struct {
	store Store
	view  Files
}

// Result is the outcome of one reconciliation.
type Result struct {
	Ledger   *Ledger
	Rows     []Row
	View     []byte
	Imported bool // the month was seeded from a pre-existing summary file
}

// NewReconciler builds a reconciler. view may be nil when the store itself
// writes the summary file.
func NewReconciler(store Store, view Files) *Reconciler {
	return &Reconciler{store: store, view: view}
}

// Reconcile sets the ledger entry for date to cost, unconditionally replacing
// any earlier value for that day, persists the full month and rewrites the
// summary view.
func (r *Reconciler) Reconcile(ctx context.Context, date core.Date, cost core.Money, now time.Time) (*Result, error) {
	month := core.MonthOf(date)

	l, imported, err := r.load(ctx, month)
	if err != nil {
		return nil, err
	}
	if err := l.Set(date.Day(), cost); err != nil {
		return nil, fmt.Errorf("merge %s: %w", date, err)
	}
	if err := r.store.SaveMonth(ctx, l, now); err != nil {
		return nil, fmt.Errorf("save ledger %s: %w", month, err)
	}

	view := Render(l, now)
	if r.view != nil {
		if err := r.view.Write(core.SummaryPath(month), view); err != nil {
			return nil, fmt.Errorf("write summary %s: %w", month, err)
		}
	}

	slog.InfoContext(ctx, "Ledger reconciled",
		"month", month.String(),
		"day", date.Day(),
		"cost", cost.String(),
		"recorded_days", l.Len(),
		"month_total", l.Total().String(),
		"imported", imported)

	return &Result{Ledger: l, Rows: l.Rows(), View: view, Imported: imported}, nil
}

// Load returns the ledger for month without modifying anything. A month
// only present as a legacy summary file is returned as imported.
func (r *Reconciler) Load(ctx context.Context, month core.MonthKey) (*Ledger, error) {
	l, _, err := r.load(ctx, month)
	return l, err
}

// Rebuild regenerates the summary view of month from the store. A legacy
// summary is imported into the store first. Without a separate view the store
// is saved back, which rewrites the summary file in canonical form and drops
// rows that no longer parse. A month with no recorded days writes nothing.
func (r *Reconciler) Rebuild(ctx context.Context, month core.MonthKey, now time.Time) ([]byte, error) {
	l, imported, err := r.load(ctx, month)
	if err != nil {
		return nil, err
	}
	view := Render(l, now)
	if l.Len() == 0 {
		return view, nil
	}
	if imported || r.view == nil {
		if err := r.store.SaveMonth(ctx, l, now); err != nil {
			return nil, fmt.Errorf("save ledger %s: %w", month, err)
		}
	}
	if r.view != nil {
		if err := r.view.Write(core.SummaryPath(month), view); err != nil {
			return nil, fmt.Errorf("write summary %s: %w", month, err)
		}
	}
	if imported {
		slog.InfoContext(ctx, "Imported legacy ledger summary",
			"month", month.String(),
			"recorded_days", l.Len())
	}
	return view, nil
}

func (r *Reconciler) loadStored(ctx context.Context, month core.MonthKey) (*Ledger, error) {
	l, err := r.store.LoadMonth(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("load ledger %s: %w", month, err)
	}
	return l, nil
}

// load reads the month from the store. A month the store has never seen is
// seeded from an existing summary file, so ledgers written before the store
// existed keep their history.
func (r *Reconciler) load(ctx context.Context, month core.MonthKey) (*Ledger, bool, error) {
	l, err := r.loadStored(ctx, month)
	if err != nil {
		return nil, false, err
	}
	if l.Len() > 0 || r.view == nil {
		return l, false, nil
	}

	data, err := r.view.Read(core.SummaryPath(month))
	if errors.Is(err, fs.ErrNotExist) {
		return l, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read summary %s: %w", month, err)
	}

	legacy, stats := Parse(data, month)
	if stats.Dropped > 0 {
		slog.WarnContext(ctx, "Dropped unparsable ledger rows",
			"month", month.String(),
			"rows", stats.Rows,
			"dropped_rows", stats.Dropped)
	}
	return legacy, legacy.Len() > 0, nil
}
