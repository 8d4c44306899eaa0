package sheets

import (
	"context"

	"costalert/internal/core"
	"costalert/internal/ledger"
)

// Ports for outbound adapters.
type (
	// LedgerMirror copies a month's ledger rows to an external spreadsheet.
	// The mirror is a view: it is fully rewritten on every call.
	LedgerMirror interface {
		MirrorLedger(ctx context.Context, month core.MonthKey, rows []ledger.Row) error
	}
)

// Header is the first row written to every mirrored month.
var Header = []string{"Date", "Daily Cost ($)", "Running Total ($)"}

// Values converts ledger rows into the cell grid written to the sheet,
// header first.
func Values(month core.MonthKey, rows []ledger.Row) [][]interface{} {
	out := make([][]interface{}, 0, len(rows)+1)
	header := make([]interface{}, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	out = append(out, header)
	for _, r := range rows {
		out = append(out, []interface{}{
			core.NewDate(month.Year, month.Month, r.Day).String(),
			r.Cost.String(),
			r.RunningTotal.String(),
		})
	}
	return out
}
