package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"costalert/internal/core"
	"costalert/internal/markdown"
)

const timestampLayout = "2006-01-02 15:04:05"

var columns = []string{"Day", "Cost ($)", "Running Total ($)"}

// ParseStats describes how much of a persisted table was usable.
type ParseStats struct {
	Rows    int // data rows seen
	Dropped int // rows ignored because they could not be parsed
}

// Parse reads a rendered ledger back into a Ledger for month. Rows with the
// wrong shape, a non-numeric day or cost, a negative cost or a day outside the
// month are dropped and counted. A later row for the same day wins. Input
// without a table yields an empty ledger.
func Parse(data []byte, month core.MonthKey) (*Ledger, ParseStats) {
	l := New(month)
	var stats ParseStats

	_, rows := markdown.ParseTable(string(data))
	for _, cells := range rows {
		stats.Rows++
		if len(cells) < 2 {
			stats.Dropped++
			continue
		}
		day, err := strconv.Atoi(cells[0])
		if err != nil {
			stats.Dropped++
			continue
		}
		cost, err := core.ParseAmount(cells[1])
		if err != nil {
			stats.Dropped++
			continue
		}
		if err := l.Set(day, cost); err != nil {
			stats.Dropped++
			continue
		}
	}
	return l, stats
}

// Render serializes the ledger: title, table in ascending day order with
// recomputed running totals, and a last-updated footer. The same ledger and
// timestamp always produce the same bytes.
func Render(l *Ledger, updatedAt time.Time) []byte {
	tbl := markdown.Table{
		Headers: columns,
		Align:   []markdown.Align{markdown.AlignRight, markdown.AlignRight, markdown.AlignRight},
	}
	for _, r := range l.Rows() {
		tbl.Rows = append(tbl.Rows, []string{
			strconv.Itoa(r.Day),
			r.Cost.String(),
			r.RunningTotal.String(),
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s Cost Summary - %s\n\n", core.ProviderName, l.Month.Name())
	b.WriteString(tbl.Render())
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "*Last Updated: %s*\n", updatedAt.Format(timestampLayout))
	return []byte(b.String())
}

// Reconcile merges cost for day into a previously rendered ledger and returns
// the new rendering. A nil or unreadable existing ledger starts empty.
// Applying the same day and cost twice yields the same output as applying it
// once.
func Reconcile(existing []byte, day int, cost core.Money, month core.MonthKey, now time.Time) ([]byte, error) {
	l, _ := Parse(existing, month)
	if err := l.Set(day, cost); err != nil {
		return nil, fmt.Errorf("merge day %d: %w", day, err)
	}
	return Render(l, now), nil
}
