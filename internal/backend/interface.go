// Package backend selects and opens the ledger store.
package backend

import (
	"costalert/internal/ledger"
	"costalert/internal/storage"
)

// BackendType names a ledger store implementation
type BackendType string

const (
	// SQLiteBackend keeps the ledger in sqlite and regenerates the summary file
	SQLiteBackend BackendType = "sqlite"
	// MarkdownBackend treats the summary file itself as the ledger
	MarkdownBackend BackendType = "markdown"
)

// IsValid reports whether the backend type is known
func (t BackendType) IsValid() bool {
	return t == SQLiteBackend || t == MarkdownBackend
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult is an opened ledger backend
type BackendResult struct {
	Reconciler *ledger.Reconciler

	// Repository is set for the sqlite backend; it also records run history
	Repository *storage.SQLiteRepository

	Cleanup CleanupFunc
}

// Close runs the cleanup function, if any
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}
