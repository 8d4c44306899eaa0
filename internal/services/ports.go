package services

import (
	"context"

	"costalert/internal/amqp"
	"costalert/internal/storage"
)

// Optional collaborators of a report run. Any of them may be nil.
type (
	LedgerPublisher interface {
		PublishLedgerUpdated(ctx context.Context, msg *amqp.LedgerUpdatedMessage) error
	}

	RunRecorder interface {
		RecordRun(ctx context.Context, rec storage.RunRecord) error
	}

	ErrorReporter interface {
		CaptureRunFailure(err error, errorType, runID, date string)
	}
)
