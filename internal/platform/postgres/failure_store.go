package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/store"
)

// PostgresFailureStore persists FailureRecords in the failed_jobs table.
type PostgresFailureStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresFailureStore creates a new PostgresFailureStore
func NewPostgresFailureStore(db store.DBTX, logger *slog.Logger) *PostgresFailureStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFailureStore{
		db:     db,
		logger: logger.With(slog.String("component", "failure_store")),
	}
}

var _ store.FailureStore = (*PostgresFailureStore)(nil)

// Append implements store.FailureStore.Append
func (s *PostgresFailureStore) Append(ctx context.Context, rec *domain.FailureRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.FailedAt.IsZero() {
		rec.FailedAt = time.Now().UTC()
	}

	var data any
	if len(rec.Data) > 0 {
		data = []byte(rec.Data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO failed_jobs (
			id, job_id, job_name, queue_name, data, error, failed_reason,
			attempts_made, enqueued_at, processed_on, failed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID,
		rec.JobID,
		rec.JobName,
		rec.QueueName,
		data,
		rec.Error,
		rec.FailedReason,
		rec.AttemptsMade,
		nullTime(rec.EnqueuedAt),
		nullTime(rec.ProcessedOn),
		rec.FailedAt,
	)
	if err != nil {
		return MapError(err)
	}
	return nil
}

// ListRecent implements store.FailureStore.ListRecent
func (s *PostgresFailureStore) ListRecent(ctx context.Context, limit int) ([]*domain.FailureRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, job_name, queue_name, data, error, failed_reason,
		       attempts_made, enqueued_at, processed_on, failed_at
		FROM failed_jobs
		ORDER BY failed_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*domain.FailureRecord, 0, limit)
	for rows.Next() {
		var (
			rec                 domain.FailureRecord
			data                []byte
			enqueued, processed sql.NullTime
		)
		if err := rows.Scan(
			&rec.ID, &rec.JobID, &rec.JobName, &rec.QueueName, &data, &rec.Error, &rec.FailedReason,
			&rec.AttemptsMade, &enqueued, &processed, &rec.FailedAt,
		); err != nil {
			return nil, MapError(err)
		}
		rec.Data = data
		rec.EnqueuedAt = timePtr(enqueued)
		rec.ProcessedOn = timePtr(processed)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return records, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
