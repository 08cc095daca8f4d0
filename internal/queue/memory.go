package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrAlreadySettled is returned when a delivery is acked, naked, or
// terminated a second time.
var ErrAlreadySettled = errors.New("delivery already settled")

// fullRetryDelay is how long a redelivery waits when the queue is full.
const fullRetryDelay = 100 * time.Millisecond

// DropFunc is called with a job whose retry could not be queued, and why.
type DropFunc func(job *Job, err error)

// MemoryTransport is an in-process Transport backed by one buffered channel
// per queue. Jobs do not survive a restart, and retries still waiting on
// their backoff when the process exits are lost with them. A retry that
// comes due after Close is handed to the DropFunc set with OnDrop.
type MemoryTransport struct {
	mu     sync.Mutex
	queues map[string]chan *Job
	size   int
	logger *slog.Logger
	closed bool
	onDrop DropFunc
}

var _ Transport = (*MemoryTransport)(nil)

// NewMemoryTransport creates a transport whose queues buffer up to size jobs.
func NewMemoryTransport(size int, logger *slog.Logger) *MemoryTransport {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryTransport{
		queues: make(map[string]chan *Job),
		size:   size,
		logger: logger.With(slog.String("component", "memory_transport")),
	}
}

// channel must be called with mu held.
func (t *MemoryTransport) channel(queue string) chan *Job {
	ch, ok := t.queues[queue]
	if !ok {
		ch = make(chan *Job, t.size)
		t.queues[queue] = ch
	}
	return ch
}

// Publish adds a job to its queue.
// Returns an error if the queue is full or closed.
func (t *MemoryTransport) Publish(ctx context.Context, job *Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrQueueClosed
	}

	ch := t.channel(job.Queue)
	select {
	case ch <- job:
		t.logger.Debug("job enqueued",
			"job_id", job.ID,
			"job_type", job.Type,
			"queue", job.Queue,
			"queue_len", len(ch),
			"queue_cap", cap(ch))
		return nil
	default:
		return fmt.Errorf("%w: queue %s capacity %d reached", ErrQueueFull, job.Queue, cap(ch))
	}
}

// Subscribe delivers the jobs of queue until ctx is cancelled or the
// transport is closed. Several subscribers of one queue compete for jobs.
func (t *MemoryTransport) Subscribe(ctx context.Context, queue string, _ Policy) (<-chan Delivery, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrQueueClosed
	}
	ch := t.channel(queue)
	t.mu.Unlock()

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case job, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- &memoryDelivery{transport: t, job: job}:
				case <-ctx.Done():
					t.redeliver(job, 0)
					return
				}
			}
		}
	}()
	return out, nil
}

// OnDrop sets the function told about retries that can no longer be queued.
func (t *MemoryTransport) OnDrop(fn DropFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDrop = fn
}

// Len returns the number of jobs waiting in queue.
func (t *MemoryTransport) Len(queue string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch, ok := t.queues[queue]; ok {
		return len(ch)
	}
	return 0
}

// Close closes every queue, preventing further publishing. Subscribers
// drain what is buffered and then see their channel closed.
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for _, ch := range t.queues {
		close(ch)
	}
	t.logger.Info("job queues closed")
	return nil
}

func (t *MemoryTransport) redeliver(job *Job, delay time.Duration) {
	time.AfterFunc(delay, func() {
		err := t.Publish(context.Background(), job)
		switch {
		case err == nil:
		case errors.Is(err, ErrQueueFull):
			t.redeliver(job, fullRetryDelay)
		default:
			t.logger.Warn("dropping redelivery",
				"job_id", job.ID,
				"queue", job.Queue,
				"error", err)
			t.mu.Lock()
			onDrop := t.onDrop
			t.mu.Unlock()
			if onDrop != nil {
				onDrop(job, err)
			}
		}
	})
}

type memoryDelivery struct {
	transport *MemoryTransport
	job       *Job
	settled   atomic.Bool
}

func (d *memoryDelivery) Job() *Job { return d.job }

func (d *memoryDelivery) Ack(context.Context) error {
	if !d.settled.CompareAndSwap(false, true) {
		return ErrAlreadySettled
	}
	return nil
}

func (d *memoryDelivery) Nak(_ context.Context, delay time.Duration) error {
	if !d.settled.CompareAndSwap(false, true) {
		return ErrAlreadySettled
	}
	next := *d.job
	next.AttemptsMade++
	d.transport.redeliver(&next, delay)
	return nil
}

func (d *memoryDelivery) Term(context.Context) error {
	if !d.settled.CompareAndSwap(false, true) {
		return ErrAlreadySettled
	}
	return nil
}
