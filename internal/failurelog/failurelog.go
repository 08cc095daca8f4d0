// Package failurelog writes FailureRecords for jobs that could not be
// completed and for faults of the worker loops themselves.
//
// Nothing in this package returns an error or lets a panic escape: a failure
// while recording a failure is logged and dropped so that the calling
// worker keeps consuming.
package failurelog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/platform/logger"
	"github.com/phrazzld/feedcore/internal/queue"
	"github.com/phrazzld/feedcore/internal/store"
)

// DefaultWriteTimeout bounds each write to the failure store.
const DefaultWriteTimeout = 5 * time.Second

// Reasons stored in FailureRecord.FailedReason
const (
	ReasonExhausted   = "attempts exhausted"
	ReasonPermanent   = "permanent failure"
	ReasonUnknownJob  = "unknown job type"
	ReasonWorkerFault = "worker fault"
	ReasonDropped     = "dropped on shutdown"
)

// Log appends FailureRecords to a FailureStore.
type Log struct {
	store        store.FailureStore
	logger       *slog.Logger
	writeTimeout time.Duration
	now          func() time.Time
}

// New creates a Log writing to s.
func New(s store.FailureStore, log *slog.Logger) *Log {
	if s == nil {
		panic("failure store cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Log{
		store:        s,
		logger:       log.With(slog.String("component", "failure_log")),
		writeTimeout: DefaultWriteTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// LogJobFailure records that job will not be attempted again. job is the
// envelope as delivered for its final attempt; processedOn is when that
// attempt started.
func (l *Log) LogJobFailure(ctx context.Context, job *queue.Job, processedOn time.Time, cause error) {
	defer l.recoverPanic(ctx, "LogJobFailure")

	if job == nil {
		l.LogWorkerFault(ctx, "", fmt.Errorf("job failure without a job: %w", errOrUnknown(cause)))
		return
	}

	cause = errOrUnknown(cause)
	enqueuedAt := job.EnqueuedAt
	rec := &domain.FailureRecord{
		ID:           uuid.New(),
		JobID:        job.ID.String(),
		JobName:      string(job.Type),
		QueueName:    job.Queue,
		Data:         job.Payload,
		Error:        cause.Error(),
		FailedReason: reason(cause),
		AttemptsMade: job.AttemptsMade + 1,
		FailedAt:     l.now(),
	}
	if !enqueuedAt.IsZero() {
		rec.EnqueuedAt = &enqueuedAt
	}
	if !processedOn.IsZero() {
		processedOn = processedOn.UTC()
		rec.ProcessedOn = &processedOn
	}

	logger.FromContextOrDefault(ctx, l.logger).Error("job failed permanently",
		"job_id", rec.JobID,
		"job_type", rec.JobName,
		"queue", rec.QueueName,
		"attempts", rec.AttemptsMade,
		"reason", rec.FailedReason,
		"error", rec.Error)

	l.append(ctx, rec)
}

// LogWorkerFault records a fault of the consumer loop of queueName that is
// not attributable to one job.
func (l *Log) LogWorkerFault(ctx context.Context, queueName string, cause error) {
	defer l.recoverPanic(ctx, "LogWorkerFault")

	cause = errOrUnknown(cause)
	rec := &domain.FailureRecord{
		ID:           uuid.New(),
		JobID:        domain.WorkerFaultJobID,
		JobName:      domain.WorkerFaultJobName,
		QueueName:    queueName,
		Error:        cause.Error(),
		FailedReason: ReasonWorkerFault,
		FailedAt:     l.now(),
	}

	logger.FromContextOrDefault(ctx, l.logger).Error("worker fault",
		"queue", queueName,
		"error", rec.Error)

	l.append(ctx, rec)
}

func (l *Log) append(ctx context.Context, rec *domain.FailureRecord) {
	if ctx == nil {
		ctx = context.Background()
	}
	// a worker shutting down still records the failure it is handling
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.writeTimeout)
	defer cancel()

	if err := l.store.Append(writeCtx, rec); err != nil {
		logger.FromContextOrDefault(ctx, l.logger).Error("failed to record failure",
			"job_id", rec.JobID,
			"queue", rec.QueueName,
			"error", err)
	}
}

func (l *Log) recoverPanic(ctx context.Context, op string) {
	if r := recover(); r != nil {
		logger.FromContextOrDefault(ctx, l.logger).Error("panic while recording failure",
			"op", op,
			"panic", fmt.Sprint(r))
	}
}

func reason(err error) string {
	switch {
	case errors.Is(err, queue.ErrUnknownJob):
		return ReasonUnknownJob
	case errors.Is(err, queue.ErrPermanent):
		return ReasonPermanent
	case errors.Is(err, queue.ErrQueueClosed):
		return ReasonDropped
	default:
		return ReasonExhausted
	}
}

func errOrUnknown(err error) error {
	if err == nil {
		return errors.New("unknown error")
	}
	return err
}
