package backend

import (
	"fmt"
	"log/slog"

	"costalert/internal/ledger"
	"costalert/internal/storage"
)

// Factory opens ledger backends. Files is where the summary view lives.
type Factory struct {
	files  ledger.Files
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(files ledger.Files, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{files: files, logger: logger}
}

// Open creates the backend described by config
func (f *Factory) Open(config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.openSQLite(config)
	case MarkdownBackend:
		return f.openMarkdown()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *Factory) openSQLite(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Debug("Initialized sqlite ledger backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Reconciler: ledger.NewReconciler(repo, f.files),
		Repository: repo,
		Cleanup:    repo.Close,
	}, nil
}

func (f *Factory) openMarkdown() (*BackendResult, error) {
	f.logger.Debug("Initialized markdown ledger backend")

	return &BackendResult{
		// The store writes the summary file itself, so there is no separate view
		Reconciler: ledger.NewReconciler(ledger.NewMarkdownStore(f.files), nil),
	}, nil
}
