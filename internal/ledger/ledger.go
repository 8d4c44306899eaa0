// Package ledger maintains the monthly cost ledger: a day-of-month to cost
// mapping whose running totals are always recomputed, never stored.
package ledger

import (
	"fmt"
	"sort"

	"costalert/internal/core"
)

// Ledger is one month of recorded daily costs. Days without billing activity
// are absent rather than zero.
type Ledger struct {
	Month core.MonthKey
	costs map[int]core.Money
}

// Row is one rendered ledger line.
type Row struct {
	Day          int
	Cost         core.Money
	RunningTotal core.Money
}

// New returns an empty ledger for month.
func New(month core.MonthKey) *Ledger {
	return &Ledger{Month: month, costs: map[int]core.Money{}}
}

// Set records cost for day, replacing any earlier value for that day.
func (l *Ledger) Set(day int, cost core.Money) error {
	if err := core.ValidateDay(l.Month.Year, l.Month.Month, day); err != nil {
		return err
	}
	if err := cost.Validate(); err != nil {
		return fmt.Errorf("day %d: %w", day, err)
	}
	l.costs[day] = cost
	return nil
}

// Cost returns the recorded cost for day.
func (l *Ledger) Cost(day int) (core.Money, bool) {
	c, ok := l.costs[day]
	return c, ok
}

// Len returns the number of recorded days.
func (l *Ledger) Len() int {
	return len(l.costs)
}

// Days returns the recorded days in ascending order.
func (l *Ledger) Days() []int {
	days := make([]int, 0, len(l.costs))
	for d := range l.costs {
		days = append(days, d)
	}
	sort.Ints(days)
	return days
}

// Entries returns a copy of the day to cost mapping.
func (l *Ledger) Entries() map[int]core.Money {
	out := make(map[int]core.Money, len(l.costs))
	for d, c := range l.costs {
		out[d] = c
	}
	return out
}

// Rows walks the month in calendar order and emits one row per recorded day
// with the running total over all recorded days up to and including it.
func (l *Ledger) Rows() []Row {
	rows := make([]Row, 0, len(l.costs))
	var running core.Money
	for day := 1; day <= 31; day++ {
		cost, ok := l.costs[day]
		if !ok {
			continue
		}
		running = running.Add(cost)
		rows = append(rows, Row{Day: day, Cost: cost, RunningTotal: running})
	}
	return rows
}

// Total returns the month-to-date total.
func (l *Ledger) Total() core.Money {
	var total core.Money
	for _, c := range l.costs {
		total = total.Add(c)
	}
	return total
}

// Equal reports whether both ledgers describe the same month and costs.
func (l *Ledger) Equal(o *Ledger) bool {
	if l == nil || o == nil {
		return l == o
	}
	if l.Month != o.Month || len(l.costs) != len(o.costs) {
		return false
	}
	for d, c := range l.costs {
		if oc, ok := o.costs[d]; !ok || oc != c {
			return false
		}
	}
	return true
}
