// Package memory provides an in-process billing source.
package memory

import (
	"context"
	"sync"

	"costalert/internal/billing"
	"costalert/internal/core"
)

// Source returns a fixed set of items, or a fixed error.
type Source struct {
	mu    sync.Mutex
	items []core.BillingItem
	err   error
	calls int
}

var _ billing.Source = (*Source)(nil)

func New(items ...core.BillingItem) *Source {
	return &Source{items: items}
}

// Failing returns a source whose every fetch fails with err.
func Failing(err error) *Source {
	return &Source{err: err}
}

func (s *Source) FetchBillingItems(_ context.Context) ([]core.BillingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]core.BillingItem(nil), s.items...), nil
}

// Calls returns how many times the source was fetched.
func (s *Source) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
