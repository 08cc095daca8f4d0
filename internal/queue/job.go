package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common errors returned by producers, transports, and Decode
var (
	ErrQueueClosed = errors.New("job queue is closed")
	ErrQueueFull   = errors.New("job queue is full")

	// ErrUnknownJob is returned when a job's type is not handled by its queue.
	ErrUnknownJob = errors.New("unknown job type")

	// ErrPermanent marks a processing error that retrying cannot fix.
	ErrPermanent = errors.New("permanent job failure")
)

// Permanent wraps err so that workers dead-letter the job without retrying.
func Permanent(err error) error {
	if err == nil || errors.Is(err, ErrPermanent) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsPermanent reports whether err should skip the remaining retries.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent) || errors.Is(err, ErrUnknownJob)
}

// Kind identifies one of the three job queues.
type Kind string

// Queue kinds
const (
	KindPost    Kind = "post"
	KindLike    Kind = "like"
	KindComment Kind = "comment"
)

// Kinds lists every queue kind.
var Kinds = []Kind{KindPost, KindLike, KindComment}

// Name returns the queue name of k inside namespace, e.g. "DEV:post".
func (k Kind) Name(namespace string) string {
	if namespace == "" {
		return string(k)
	}
	return namespace + ":" + string(k)
}

// JobType is the discriminator of a job within its queue.
type JobType string

// Job types
const (
	TypeCreate JobType = "create"
	TypeUpdate JobType = "update"
	TypeDelete JobType = "delete"
	TypeAdd    JobType = "add"
	TypeLike   JobType = "like"
	TypeUnlike JobType = "unlike"
)

// Job is the envelope carried by a transport. The payload stays encoded
// until a worker decodes it against the queue it was consumed from.
type Job struct {
	ID           uuid.UUID       `json:"id"`
	Queue        string          `json:"queue"`
	Type         JobType         `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	AttemptsMade int             `json:"attempts_made"`
	EnqueuedAt   time.Time       `json:"enqueued_at"`
}

// NewJob encodes p into a new job addressed to queue.
func NewJob(queue string, p Payload) (*Job, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", p.JobType(), err)
	}
	return &Job{
		ID:         uuid.New(),
		Queue:      queue,
		Type:       p.JobType(),
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// Decode returns the typed payload of the job as consumed from a queue of
// the given kind. Types foreign to that queue yield ErrUnknownJob, and
// payloads that fail to decode are permanent failures.
func (j *Job) Decode(kind Kind) (Payload, error) {
	decode, ok := decoders[kind][j.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q on %s queue", ErrUnknownJob, j.Type, kind)
	}
	p, err := decode(j.Payload)
	if err != nil {
		return nil, Permanent(fmt.Errorf("failed to decode %s payload: %w", j.Type, err))
	}
	return p, nil
}

// MarshalEnvelope encodes the whole job for transports that carry bytes.
func (j *Job) MarshalEnvelope() ([]byte, error) {
	return json.Marshal(j)
}

// UnmarshalEnvelope decodes bytes produced by MarshalEnvelope.
func UnmarshalEnvelope(data []byte) (*Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("failed to decode job envelope: %w", err)
	}
	if j.ID == uuid.Nil || j.Type == "" {
		return nil, errors.New("failed to decode job envelope: missing id or type")
	}
	return &j, nil
}

type decodeFunc func(json.RawMessage) (Payload, error)

func decodeAs[T Payload](raw json.RawMessage) (Payload, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// update and delete exist on both the post and comment queues, so the
// lookup is keyed by queue first.
var decoders = map[Kind]map[JobType]decodeFunc{
	KindPost: {
		TypeCreate: decodeAs[CreatePost],
		TypeUpdate: decodeAs[UpdatePost],
		TypeDelete: decodeAs[DeletePost],
	},
	KindLike: {
		TypeLike:   decodeAs[Like],
		TypeUnlike: decodeAs[Unlike],
	},
	KindComment: {
		TypeAdd:    decodeAs[AddComment],
		TypeUpdate: decodeAs[UpdateComment],
		TypeDelete: decodeAs[DeleteComment],
	},
}
