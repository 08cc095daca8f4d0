package store

import (
	"context"

	"github.com/phrazzld/feedcore/internal/domain"
)

// FailureStore is the append-only sink for FailureRecords.
type FailureStore interface {
	// Append persists a failure record. Records are never updated.
	Append(ctx context.Context, rec *domain.FailureRecord) error

	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.FailureRecord, error)
}

// JobStore records terminal job outcomes for queues that retain their jobs.
type JobStore interface {
	// Record persists the terminal state of a job.
	Record(ctx context.Context, rec *domain.JobRecord) error

	// ListByQueue returns up to limit records of one queue, newest first.
	ListByQueue(ctx context.Context, queue string, limit int) ([]*domain.JobRecord, error)
}
