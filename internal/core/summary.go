package core

import (
	"fmt"
	"time"
)

// MonthKey identifies one monthly ledger.
type MonthKey struct {
	Year  int
	Month int // 1-12
}

// MonthOf returns the ledger month a date belongs to.
func MonthOf(d Date) MonthKey {
	return MonthKey{Year: d.Year(), Month: d.Month()}
}

// ParseMonth parses "2006-01".
func ParseMonth(s string) (MonthKey, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q (want YYYY-MM)", ErrInvalidMonth, s)
	}
	return MonthKey{Year: t.Year(), Month: int(t.Month())}, nil
}

func (k MonthKey) Validate() error {
	if k.Month < 1 || k.Month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Days returns the number of days in the month.
func (k MonthKey) Days() int {
	return DaysIn(k.Year, k.Month)
}

// Name renders the month for titles, e.g. "October 2026".
func (k MonthKey) Name() string {
	return fmt.Sprintf("%s %d", time.Month(k.Month).String(), k.Year)
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}
