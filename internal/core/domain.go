package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// NotApplicable is shown for line items the provider reports without a duration.
const NotApplicable = "N/A"

const dateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// BillingItem is one charge as reported by the billing provider. Date and
	// Amount are kept verbatim; the aggregator decides whether they are usable.
	BillingItem struct {
		Date        string
		Description string
		Amount      string
		Duration    string // optional, informational only
	}

	// LineItem is a normalized billing item retained for the daily report.
	LineItem struct {
		Description string
		Amount      Money
		Duration    string
	}

	// DailyCosts holds the items billed on a single calendar day and their sum.
	DailyCosts struct {
		Date    Date
		Items   []LineItem
		Total   Money
		Skipped int // items dropped because their date or amount was unusable
	}
)

var (
	ErrInvalidDay    = errors.New("invalid day")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")

	// ErrConfiguration marks missing or invalid configuration, including the
	// provider credential.
	ErrConfiguration = errors.New("configuration error")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// SameDay reports whether both dates fall on the same calendar day.
func (d Date) SameDay(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month() && d.Day() == o.Day()
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate accepts a plain calendar date (2006-01-02) or an RFC 3339
// timestamp. For timestamps the calendar day is taken in the timestamp's own
// offset, which is how the provider reports it.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

// DaysIn returns the number of days in the given month.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ValidateDay checks that day exists in the given month.
func ValidateDay(year, month, day int) error {
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	if day < 1 || day > DaysIn(year, month) {
		return fmt.Errorf("%w: %d for %04d-%02d", ErrInvalidDay, day, year, month)
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns the sum of both amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// AmountString returns the line item amount with two decimals.
func (li LineItem) AmountString() string {
	return li.Amount.String()
}

// IsEmpty reports whether nothing was billed on the day.
func (dc DailyCosts) IsEmpty() bool {
	return len(dc.Items) == 0
}
