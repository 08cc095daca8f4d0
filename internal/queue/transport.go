package queue

import (
	"context"
	"time"
)

// Transport carries jobs from producers to workers with at-least-once
// delivery. A Publish that returns nil means the job was accepted, not
// that it ran.
type Transport interface {
	Publish(ctx context.Context, job *Job) error

	// Subscribe starts delivering the jobs of queue. The channel is closed
	// when ctx is cancelled or the transport is closed.
	Subscribe(ctx context.Context, queue string, policy Policy) (<-chan Delivery, error)

	Close() error
}

// Delivery is one job handed to a consumer. Exactly one of Ack, Nak, or
// Term must be called for each delivery.
type Delivery interface {
	Job() *Job

	// Ack settles the job as done.
	Ack(ctx context.Context) error

	// Nak redelivers the job after delay with AttemptsMade incremented.
	Nak(ctx context.Context, delay time.Duration) error

	// Term settles the job as dead; it is never redelivered.
	Term(ctx context.Context) error
}
