package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/platform/logger"
	"github.com/phrazzld/feedcore/internal/store"
)

// PostgresJobStore records terminal job outcomes in the job_audit table.
type PostgresJobStore struct {
	db store.DBTX
}

// NewPostgresJobStore creates a new PostgresJobStore
func NewPostgresJobStore(db store.DBTX) *PostgresJobStore {
	return &PostgresJobStore{
		db: db,
	}
}

var _ store.JobStore = (*PostgresJobStore)(nil)

// Record persists the terminal state of a job
func (s *PostgresJobStore) Record(ctx context.Context, rec *domain.JobRecord) error {
	log := logger.FromContext(ctx)

	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now().UTC()
	}
	payload := []byte(rec.Payload)
	if len(payload) == 0 {
		payload = []byte("null")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_audit (job_id, queue_name, job_type, outcome, attempts, payload, error, enqueued_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.JobID,
		rec.QueueName,
		rec.JobType,
		string(rec.Outcome),
		rec.Attempts,
		payload,
		rec.Error,
		rec.EnqueuedAt,
		rec.FinishedAt,
	)
	if err != nil {
		log.Error("failed to record job outcome",
			slog.String("job_id", rec.JobID),
			slog.String("queue", rec.QueueName),
			slog.String("outcome", string(rec.Outcome)),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// ListByQueue returns the newest audit records of a queue
func (s *PostgresJobStore) ListByQueue(ctx context.Context, queue string, limit int) ([]*domain.JobRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, queue_name, job_type, outcome, attempts, payload, error, enqueued_at, finished_at
		FROM job_audit
		WHERE queue_name = $1
		ORDER BY finished_at DESC, id DESC
		LIMIT $2`, queue, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var records []*domain.JobRecord
	for rows.Next() {
		var (
			rec     domain.JobRecord
			outcome string
			payload []byte
		)
		if err := rows.Scan(&rec.JobID, &rec.QueueName, &rec.JobType, &outcome, &rec.Attempts,
			&payload, &rec.Error, &rec.EnqueuedAt, &rec.FinishedAt); err != nil {
			return nil, MapError(err)
		}
		rec.Outcome = domain.JobOutcome(outcome)
		rec.Payload = payload
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return records, nil
}
