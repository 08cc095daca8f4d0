package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/feedcore/internal/platform/logger"
)

// Producer validates payloads and publishes them to their queue. It does
// not deduplicate: enqueuing the same payload twice yields two jobs.
type Producer struct {
	transport Transport
	namespace string
	logger    *slog.Logger
}

// NewProducer creates a Producer publishing to the queues of namespace.
func NewProducer(transport Transport, namespace string, log *slog.Logger) *Producer {
	if transport == nil {
		panic("transport cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Producer{
		transport: transport,
		namespace: namespace,
		logger:    log.With(slog.String("component", "queue_producer")),
	}
}

// QueueName returns the namespaced name of the queue of kind k.
func (p *Producer) QueueName(k Kind) string {
	return k.Name(p.namespace)
}

// Enqueue validates payload and publishes it. It returns once the transport
// has accepted the job.
func (p *Producer) Enqueue(ctx context.Context, payload Payload) (*Job, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	job, err := NewJob(p.QueueName(payload.Kind()), payload)
	if err != nil {
		return nil, err
	}

	log := logger.FromContextOrDefault(ctx, p.logger)
	if err := p.transport.Publish(ctx, job); err != nil {
		log.Error("failed to enqueue job",
			"queue", job.Queue,
			"job_type", job.Type,
			"error", err)
		return nil, fmt.Errorf("failed to enqueue %s job: %w", job.Type, err)
	}

	log.Debug("job enqueued",
		"job_id", job.ID,
		"queue", job.Queue,
		"job_type", job.Type)
	return job, nil
}
