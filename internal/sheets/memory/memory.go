package memory

import (
	"context"
	"sync"

	"costalert/internal/core"
	"costalert/internal/ledger"
	ports "costalert/internal/sheets"
)

// Mirror keeps the last mirrored grid per month in memory.
type Mirror struct {
	mu     sync.Mutex
	sheets map[core.MonthKey][][]interface{}
	calls  int
	err    error
}

var _ ports.LedgerMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{sheets: map[core.MonthKey][][]interface{}{}}
}

// Failing returns a mirror whose every call fails with err.
func Failing(err error) *Mirror {
	m := New()
	m.err = err
	return m
}

func (m *Mirror) MirrorLedger(_ context.Context, month core.MonthKey, rows []ledger.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.sheets[month] = ports.Values(month, rows)
	return nil
}

// Sheet returns the grid last written for month, header included.
func (m *Mirror) Sheet(month core.MonthKey) ([][]interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.sheets[month]
	return v, ok
}

// Calls returns how many times MirrorLedger was invoked.
func (m *Mirror) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
