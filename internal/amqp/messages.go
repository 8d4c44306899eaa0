package amqp

import (
	"encoding/json"
	"time"

	"costalert/internal/core"
)

// LedgerUpdatedMessage announces that a day's cost was reconciled into the
// monthly ledger. Amounts are carried both as cents and as display strings.
type LedgerUpdatedMessage struct {
	RunID           string    `json:"run_id"`
	Provider        string    `json:"provider"`
	Date            string    `json:"date"`
	Year            int       `json:"year"`
	Month           int       `json:"month"`
	Day             int       `json:"day"`
	DailyCost       string    `json:"daily_cost"`
	DailyCostCents  int64     `json:"daily_cost_cents"`
	MonthTotal      string    `json:"month_total"`
	MonthTotalCents int64     `json:"month_total_cents"`
	DaysRecorded    int       `json:"days_recorded"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewLedgerUpdatedMessage builds the message for one reconciled day
func NewLedgerUpdatedMessage(runID string, date core.Date, daily, monthTotal core.Money, days int, at time.Time) *LedgerUpdatedMessage {
	return &LedgerUpdatedMessage{
		RunID:           runID,
		Provider:        core.ProviderName,
		Date:            date.String(),
		Year:            date.Year(),
		Month:           date.Month(),
		Day:             date.Day(),
		DailyCost:       daily.String(),
		DailyCostCents:  daily.Cents,
		MonthTotal:      monthTotal.String(),
		MonthTotalCents: monthTotal.Cents,
		DaysRecorded:    days,
		Timestamp:       at,
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerUpdatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerUpdatedMessageFromJSON creates a message from JSON bytes
func LedgerUpdatedMessageFromJSON(data []byte) (*LedgerUpdatedMessage, error) {
	var msg LedgerUpdatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
