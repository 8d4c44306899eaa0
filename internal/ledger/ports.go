package ledger

import (
	"context"
	"time"

	"costalert/internal/core"
)

// Store persists ledgers as structured day to cost records.
type Store interface {
	// LoadMonth returns the stored ledger, or an empty one if the month has
	// never been written.
	LoadMonth(ctx context.Context, month core.MonthKey) (*Ledger, error)
	// SaveMonth replaces everything stored for the ledger's month, stamping
	// it with updatedAt.
	SaveMonth(ctx context.Context, l *Ledger, updatedAt time.Time) error
}

// Files is the byte store the rendered views live in, keyed by relative path.
// Read returns an error matching fs.ErrNotExist for missing files.
type Files interface {
	Read(name string) ([]byte, error)
	Write(name string, data []byte) error
}
