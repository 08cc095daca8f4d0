package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/failurelog"
	"github.com/phrazzld/feedcore/internal/platform/logger"
	"github.com/phrazzld/feedcore/internal/queue"
	"github.com/phrazzld/feedcore/internal/store"
	"github.com/sourcegraph/conc/pool"
)

// DefaultConcurrency is the number of jobs a worker runs at once.
const DefaultConcurrency = 5

// ErrAttemptLost fails a job delivered again after its last allowed
// attempt, whose outcome was never reported to the transport.
var ErrAttemptLost = errors.New("final attempt ended without an outcome")

// DefaultResubscribeDelay is the pause before a worker whose subscription
// failed subscribes again.
const DefaultResubscribeDelay = time.Second

// Handler applies the jobs of one queue to the durable store and mirrors
// their effect into the cache. A returned error fails the attempt.
type Handler interface {
	Handle(ctx context.Context, p queue.Payload) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, p queue.Payload) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, p queue.Payload) error {
	return f(ctx, p)
}

// Config holds the settings of one worker.
type Config struct {
	// Kind is the queue kind, used to decode payloads.
	Kind queue.Kind

	// Queue is the namespaced queue name, e.g. "DEV:post".
	Queue string

	// Concurrency bounds the jobs running at once.
	Concurrency int

	Policy           queue.Policy
	ResubscribeDelay time.Duration
}

// Deps holds the collaborators of a worker. Jobs and Metrics are optional.
type Deps struct {
	Transport queue.Transport
	Failures  *failurelog.Log
	Jobs      store.JobStore
	Metrics   *Metrics
	Logger    *slog.Logger
}

// Worker consumes one queue. Up to Concurrency jobs run in parallel, but
// jobs touching the same entity never overlap within one worker. Failed
// attempts are retried per the queue policy; jobs that run out of attempts
// are written to the failure log. No job failure stops the worker.
type Worker struct {
	cfg       Config
	handler   Handler
	transport queue.Transport
	failures  *failurelog.Log
	jobs      store.JobStore
	metrics   *Metrics
	locks     keyedMutex
	logger    *slog.Logger
}

// New creates a Worker.
func New(cfg Config, handler Handler, deps Deps) *Worker {
	if handler == nil || deps.Transport == nil || deps.Failures == nil {
		panic("worker needs a handler, a transport, and a failure log")
	}
	if cfg.Queue == "" {
		cfg.Queue = string(cfg.Kind)
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.ResubscribeDelay <= 0 {
		cfg.ResubscribeDelay = DefaultResubscribeDelay
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		cfg:       cfg,
		handler:   handler,
		transport: deps.Transport,
		failures:  deps.Failures,
		jobs:      deps.Jobs,
		metrics:   deps.Metrics,
		logger: log.With(
			slog.String("component", "worker"),
			slog.String("queue", cfg.Queue),
		),
	}
}

// Queue returns the name of the consumed queue.
func (w *Worker) Queue() string { return w.cfg.Queue }

// Run consumes the queue until ctx is cancelled or the transport is closed,
// then waits for running jobs to finish. Jobs that are already running are
// not interrupted by the cancellation of ctx.
func (w *Worker) Run(ctx context.Context) error {
	p := pool.New().WithMaxGoroutines(w.cfg.Concurrency)
	defer p.Wait()

	jobCtx := context.WithoutCancel(ctx)

	for {
		deliveries, err := w.transport.Subscribe(ctx, w.cfg.Queue, w.cfg.Policy)
		switch {
		case errors.Is(err, queue.ErrQueueClosed):
			w.logger.Info("queue closed, stopping worker")
			return nil
		case ctx.Err() != nil:
			return nil
		case err != nil:
			w.fault(ctx, fmt.Errorf("failed to subscribe: %w", err))
			if !sleep(ctx, w.cfg.ResubscribeDelay) {
				return nil
			}
			continue
		}

		w.logger.Info("worker started", "concurrency", w.cfg.Concurrency)
		w.consume(ctx, jobCtx, deliveries, p)
		if ctx.Err() != nil {
			w.logger.Info("stopping worker")
			return nil
		}
		w.logger.Warn("delivery channel closed, resubscribing")
	}
}

func (w *Worker) consume(ctx, jobCtx context.Context, deliveries <-chan queue.Delivery, p *pool.Pool) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.dispatch(jobCtx, d, p)
		}
	}
}

// dispatch hands one delivery to the pool. Faults here are the worker's
// own, not a job's, and are logged as such.
func (w *Worker) dispatch(ctx context.Context, d queue.Delivery, p *pool.Pool) {
	defer func() {
		if r := recover(); r != nil {
			w.fault(ctx, fmt.Errorf("panic in dispatch loop: %v", r))
		}
	}()

	if d == nil || d.Job() == nil {
		w.fault(ctx, errors.New("received a delivery without a job"))
		if d != nil {
			_ = d.Term(ctx)
		}
		return
	}

	p.Go(func() { w.process(ctx, d) })
}

// process runs one attempt of a job and settles the delivery.
func (w *Worker) process(ctx context.Context, d queue.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			w.fault(ctx, fmt.Errorf("panic while settling job: %v", r))
		}
	}()

	job := d.Job()
	attempt := job.AttemptsMade + 1
	log := w.logger.With(
		"job_id", job.ID,
		"job_type", job.Type,
		"attempt", attempt,
	)
	ctx = logger.WithLogger(ctx, log)

	start := time.Now()
	if w.cfg.Policy.Exhausted(job.AttemptsMade) {
		// the transport redelivers once past the limit so a lost last
		// attempt still ends up in the failure log
		w.deadLetter(ctx, d, job, attempt, start, ErrAttemptLost)
		return
	}

	w.metrics.inFlight(w.cfg.Queue, 1)
	err := w.handle(ctx, job)
	w.metrics.inFlight(w.cfg.Queue, -1)
	w.metrics.observe(w.cfg.Queue, time.Since(start).Seconds())

	if err == nil {
		log.Debug("job completed", "duration", time.Since(start))
		if ackErr := d.Ack(ctx); ackErr != nil {
			log.Warn("failed to ack job", "error", ackErr)
		}
		w.metrics.job(w.cfg.Queue, outcomeCompleted)
		if w.cfg.Policy.RetainCompleted() {
			w.audit(ctx, job, domain.JobCompleted, attempt, nil)
		}
		return
	}

	if queue.IsPermanent(err) || w.cfg.Policy.Exhausted(attempt) {
		w.deadLetter(ctx, d, job, attempt, start, err)
		return
	}

	delay := w.cfg.Policy.Backoff(attempt)
	log.Warn("job failed, retrying",
		"error", err,
		"retry_in", delay,
		"max_attempts", w.cfg.Policy.MaxAttempts())
	if nakErr := d.Nak(ctx, delay); nakErr != nil {
		log.Error("failed to requeue job", "error", nakErr)
	}
	w.metrics.job(w.cfg.Queue, outcomeRetried)
}

// handle decodes the payload and runs the handler under the entity lock.
// A handler panic fails the attempt like any other error.
func (w *Worker) handle(ctx context.Context, job *queue.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.metrics.recovered(w.cfg.Queue)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	payload, err := job.Decode(w.cfg.Kind)
	if err != nil {
		return err
	}

	unlock := w.locks.Lock(payload.EntityKey())
	defer unlock()

	return w.handler.Handle(ctx, payload)
}

// deadLetter records the failure of job and removes it from the queue.
func (w *Worker) deadLetter(ctx context.Context, d queue.Delivery, job *queue.Job, attempt int, start time.Time, err error) {
	w.failures.LogJobFailure(ctx, job, start, err)
	if termErr := d.Term(ctx); termErr != nil {
		logger.FromContextOrDefault(ctx, w.logger).Warn("failed to terminate job", "error", termErr)
	}
	w.metrics.job(w.cfg.Queue, outcomeDead)
	if w.cfg.Policy.RetainFailed() {
		w.audit(ctx, job, domain.JobDead, attempt, err)
	}
}

func (w *Worker) audit(ctx context.Context, job *queue.Job, outcome domain.JobOutcome, attempts int, cause error) {
	if w.jobs == nil {
		return
	}
	rec := &domain.JobRecord{
		JobID:      job.ID.String(),
		QueueName:  job.Queue,
		JobType:    string(job.Type),
		Outcome:    outcome,
		Attempts:   attempts,
		Payload:    job.Payload,
		EnqueuedAt: job.EnqueuedAt,
		FinishedAt: time.Now().UTC(),
	}
	if cause != nil {
		rec.Error = cause.Error()
	}
	if err := w.jobs.Record(ctx, rec); err != nil {
		logger.FromContextOrDefault(ctx, w.logger).Warn("failed to record job outcome",
			"job_id", rec.JobID,
			"outcome", outcome,
			"error", err)
	}
}

func (w *Worker) fault(ctx context.Context, err error) {
	w.metrics.fault(w.cfg.Queue)
	w.failures.LogWorkerFault(ctx, w.cfg.Queue, err)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
