package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"costalert/internal/core"
)

// MarkdownStore keeps the rendered summary file as the source of truth. It
// parses the table on load and rewrites the whole file on save.
type MarkdownStore struct {
	files Files
}

var _ Store = (*MarkdownStore)(nil)

func NewMarkdownStore(files Files) *MarkdownStore {
	return &MarkdownStore{files: files}
}

func (s *MarkdownStore) LoadMonth(ctx context.Context, month core.MonthKey) (*Ledger, error) {
	data, err := s.files.Read(core.SummaryPath(month))
	if errors.Is(err, fs.ErrNotExist) {
		return New(month), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", month, err)
	}

	l, stats := Parse(data, month)
	if stats.Dropped > 0 {
		slog.WarnContext(ctx, "Dropped unparsable ledger rows",
			"month", month.String(),
			"rows", stats.Rows,
			"dropped_rows", stats.Dropped)
	}
	return l, nil
}

func (s *MarkdownStore) SaveMonth(_ context.Context, l *Ledger, updatedAt time.Time) error {
	if err := s.files.Write(core.SummaryPath(l.Month), Render(l, updatedAt)); err != nil {
		return fmt.Errorf("write ledger %s: %w", l.Month, err)
	}
	return nil
}
