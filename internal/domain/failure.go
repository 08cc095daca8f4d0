package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// WorkerFaultJobID and WorkerFaultJobName mark a FailureRecord that was not
// caused by a specific job but by the consumer loop itself.
const (
	WorkerFaultJobID   = "N/A"
	WorkerFaultJobName = "worker_error"
)

// FailureRecord is an immutable snapshot of a job that exhausted its
// attempts, or of a worker-level fault. It carries enough context to replay
// the job by hand.
type FailureRecord struct {
	ID           uuid.UUID       `json:"id"`
	JobID        string          `json:"job_id"`
	JobName      string          `json:"job_name"`
	QueueName    string          `json:"queue_name"`
	Data         json.RawMessage `json:"data,omitempty"`
	Error        string          `json:"error"`
	FailedReason string          `json:"failed_reason"`
	AttemptsMade int             `json:"attempts_made"`
	EnqueuedAt   *time.Time      `json:"enqueued_at,omitempty"`
	ProcessedOn  *time.Time      `json:"processed_on,omitempty"`
	FailedAt     time.Time       `json:"failed_at"`
}

// IsWorkerFault reports whether the record describes a consumer loop fault.
func (r *FailureRecord) IsWorkerFault() bool {
	return r.JobID == WorkerFaultJobID
}

// JobOutcome is the terminal state of a job.
type JobOutcome string

// Terminal job states
const (
	JobCompleted JobOutcome = "completed"
	JobDead      JobOutcome = "dead"
)

// JobRecord is an audit entry for a job that reached a terminal state on a
// queue that retains its jobs.
type JobRecord struct {
	JobID      string          `json:"job_id"`
	QueueName  string          `json:"queue_name"`
	JobType    string          `json:"job_type"`
	Outcome    JobOutcome      `json:"outcome"`
	Attempts   int             `json:"attempts"`
	Payload    json.RawMessage `json:"payload"`
	Error      string          `json:"error,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	FinishedAt time.Time       `json:"finished_at"`
}
