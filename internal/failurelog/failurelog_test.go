package failurelog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/mocks"
	"github.com/phrazzld/feedcore/internal/platform/logger"
	"github.com/phrazzld/feedcore/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJob(t *testing.T) *queue.Job {
	t.Helper()
	job, err := queue.NewJob("TEST:comment", queue.AddComment{PostID: uuid.New(), UserID: uuid.New(), Text: "hi"})
	require.NoError(t, err)
	job.AttemptsMade = 2
	return job
}

func TestLogJobFailure(t *testing.T) {
	failures := mocks.NewMockFailureStore()
	log, buf := logger.NewTestLogger(t)
	fl := New(failures, log)

	job := newTestJob(t)
	processedOn := time.Now().Add(-time.Second)
	fl.LogJobFailure(context.Background(), job, processedOn, errors.New("insert failed"))

	recs := failures.Records()
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, job.ID.String(), rec.JobID)
	assert.Equal(t, "add", rec.JobName)
	assert.Equal(t, "TEST:comment", rec.QueueName)
	assert.JSONEq(t, string(job.Payload), string(rec.Data))
	assert.Equal(t, "insert failed", rec.Error)
	assert.Equal(t, ReasonExhausted, rec.FailedReason)
	assert.Equal(t, 3, rec.AttemptsMade)
	require.NotNil(t, rec.EnqueuedAt)
	assert.True(t, rec.EnqueuedAt.Equal(job.EnqueuedAt))
	require.NotNil(t, rec.ProcessedOn)
	assert.True(t, rec.ProcessedOn.Equal(processedOn))
	assert.False(t, rec.FailedAt.IsZero())
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.False(t, rec.IsWorkerFault())

	logger.AssertLogContains(t, buf, "job failed permanently")
}

func TestLogJobFailureReasons(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"exhausted", errors.New("boom"), ReasonExhausted},
		{"permanent", queue.Permanent(errors.New("bad payload")), ReasonPermanent},
		{"unknown", queue.ErrUnknownJob, ReasonUnknownJob},
		{"dropped", fmt.Errorf("retry not queued: %w", queue.ErrQueueClosed), ReasonDropped},
		{"nil", nil, ReasonExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failures := mocks.NewMockFailureStore()
			fl := New(failures, slog.Default())

			fl.LogJobFailure(context.Background(), newTestJob(t), time.Time{}, tt.err)

			recs := failures.Records()
			require.Len(t, recs, 1)
			assert.Equal(t, tt.want, recs[0].FailedReason)
			assert.NotEmpty(t, recs[0].Error)
			assert.Nil(t, recs[0].ProcessedOn)
		})
	}
}

func TestLogWorkerFault(t *testing.T) {
	failures := mocks.NewMockFailureStore()
	fl := New(failures, nil)

	fl.LogWorkerFault(context.Background(), "TEST:post", errors.New("subscription lost"))

	recs := failures.Records()
	require.Len(t, recs, 1)
	assert.True(t, recs[0].IsWorkerFault())
	assert.Equal(t, domain.WorkerFaultJobName, recs[0].JobName)
	assert.Equal(t, "TEST:post", recs[0].QueueName)
	assert.Equal(t, ReasonWorkerFault, recs[0].FailedReason)
	assert.Empty(t, recs[0].Data)
}

func TestLogJobFailureWithoutJob(t *testing.T) {
	failures := mocks.NewMockFailureStore()
	fl := New(failures, nil)

	fl.LogJobFailure(context.Background(), nil, time.Time{}, errors.New("boom"))

	recs := failures.Records()
	require.Len(t, recs, 1)
	assert.True(t, recs[0].IsWorkerFault())
}

func TestStoreErrorsAreSwallowed(t *testing.T) {
	failures := mocks.NewMockFailureStore()
	failures.AppendFn = func(context.Context, *domain.FailureRecord) error {
		return errors.New("database is down")
	}
	log, buf := logger.NewTestLogger(t)
	fl := New(failures, log)

	assert.NotPanics(t, func() {
		fl.LogJobFailure(context.Background(), newTestJob(t), time.Now(), errors.New("boom"))
		fl.LogWorkerFault(context.Background(), "TEST:like", errors.New("boom"))
	})
	logger.AssertLogContains(t, buf, "failed to record failure")
}

func TestStorePanicsAreSwallowed(t *testing.T) {
	failures := mocks.NewMockFailureStore()
	failures.AppendFn = func(context.Context, *domain.FailureRecord) error {
		panic("driver bug")
	}
	log, buf := logger.NewTestLogger(t)
	fl := New(failures, log)

	assert.NotPanics(t, func() {
		fl.LogJobFailure(context.Background(), newTestJob(t), time.Now(), errors.New("boom"))
		fl.LogWorkerFault(context.Background(), "TEST:like", errors.New("boom"))
	})
	// each call logs the failure and then the panic
	assert.Equal(t, 4, logger.CountLevel(t, buf, slog.LevelError))
}

func TestRecordsSurviveCancelledContext(t *testing.T) {
	failures := mocks.NewMockFailureStore()
	var sawCancelled bool
	failures.AppendFn = func(ctx context.Context, _ *domain.FailureRecord) error {
		sawCancelled = ctx.Err() != nil
		return nil
	}
	fl := New(failures, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fl.LogWorkerFault(ctx, "TEST:post", errors.New("shutdown"))

	assert.False(t, sawCancelled)
}

func TestNewNilStore(t *testing.T) {
	assert.Panics(t, func() { New(nil, nil) })
}
