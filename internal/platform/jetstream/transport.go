// Package jetstream provides a durable queue.Transport on NATS JetStream.
package jetstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/phrazzld/feedcore/internal/queue"
)

// DefaultAckWait is how long JetStream waits for a settle before it
// redelivers a job.
const DefaultAckWait = 30 * time.Second

// Config holds the connection and stream settings.
type Config struct {
	URL     string
	Stream  string
	AckWait time.Duration
	MaxAge  time.Duration
}

// Transport publishes jobs to a JetStream stream and consumes them through
// one durable push consumer per queue.
type Transport struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	subs []*nats.Subscription
}

var _ queue.Transport = (*Transport)(nil)

// Connect dials NATS and creates or updates the stream holding every queue.
func Connect(cfg Config, logger *slog.Logger) (*Transport, error) {
	if cfg.Stream == "" {
		return nil, errors.New("stream name cannot be empty")
	}
	if cfg.AckWait <= 0 {
		cfg.AckWait = DefaultAckWait
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "jetstream_transport"))

	conn, err := nats.Connect(
		cfg.URL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	t := &Transport{conn: conn, js: js, cfg: cfg, logger: logger}
	if err := t.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}
	return t, nil
}

func (t *Transport) ensureStream() error {
	streamCfg := &nats.StreamConfig{
		Name:      t.cfg.Stream,
		Subjects:  []string{t.cfg.Stream + ".>"},
		Storage:   nats.FileStorage,
		Retention: nats.WorkQueuePolicy,
		MaxAge:    t.cfg.MaxAge,
		Replicas:  1,
	}

	_, err := t.js.StreamInfo(t.cfg.Stream)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		if _, err := t.js.AddStream(streamCfg); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", t.cfg.Stream, err)
		}
	case err != nil:
		return fmt.Errorf("failed to look up stream %s: %w", t.cfg.Stream, err)
	default:
		if _, err := t.js.UpdateStream(streamCfg); err != nil {
			return fmt.Errorf("failed to update stream %s: %w", t.cfg.Stream, err)
		}
	}
	return nil
}

// Subject returns the subject carrying the jobs of queue.
func (t *Transport) Subject(queueName string) string {
	return t.cfg.Stream + "." + queueName
}

// durableName derives a consumer name; durable names may not contain dots.
func durableName(queueName string) string {
	return "worker-" + strings.NewReplacer(".", "_", ":", "_", "*", "_", ">", "_").Replace(queueName)
}

// Publish sends the job and waits for the stream to acknowledge it.
func (t *Transport) Publish(ctx context.Context, job *queue.Job) error {
	data, err := job.MarshalEnvelope()
	if err != nil {
		return err
	}

	ack, err := t.js.Publish(t.Subject(job.Queue), data, nats.Context(ctx), nats.MsgId(job.ID.String()))
	if err != nil {
		return fmt.Errorf("failed to publish job %s: %w", job.ID, err)
	}

	t.logger.Debug("job published",
		"job_id", job.ID,
		"queue", job.Queue,
		"stream_seq", ack.Sequence)
	return nil
}

// Subscribe binds a durable consumer for queue. The consumer allows one
// delivery beyond policy.MaxAttempts: a last attempt that is never settled
// comes back once more so the worker can dead-letter it.
func (t *Transport) Subscribe(ctx context.Context, queueName string, policy queue.Policy) (<-chan queue.Delivery, error) {
	if t.conn.IsClosed() {
		return nil, queue.ErrQueueClosed
	}
	out := make(chan queue.Delivery)
	msgs := make(chan *nats.Msg, 64)

	sub, err := t.js.ChanSubscribe(
		t.Subject(queueName),
		msgs,
		nats.Durable(durableName(queueName)),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.AckWait(t.cfg.AckWait),
		nats.MaxDeliver(maxDeliver(policy)),
		nats.DeliverAll(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", queueName, err)
	}

	t.mu.Lock()
	t.subs = append(t.subs, sub)
	t.mu.Unlock()

	go func() {
		defer close(out)
		defer func() {
			if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
				t.logger.Warn("failed to drain subscription", "queue", queueName, "error", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				d, err := newDelivery(msg)
				if err != nil {
					// an undecodable envelope can never succeed
					t.logger.Error("dropping malformed job", "queue", queueName, "error", err)
					_ = msg.Term()
					continue
				}
				select {
				case out <- d:
				case <-ctx.Done():
					_ = msg.Nak()
					return
				}
			}
		}
	}()

	return out, nil
}

func maxDeliver(policy queue.Policy) int {
	return policy.MaxAttempts() + 1
}

// Close drains the consumers and the connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	subs := t.subs
	t.subs = nil
	t.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Unsubscribe()
	}
	if t.conn.IsClosed() {
		return nil
	}
	return t.conn.Drain()
}

// Ping reports whether the connection is up.
func (t *Transport) Ping(_ context.Context) error {
	if status := t.conn.Status(); status != nats.CONNECTED {
		return fmt.Errorf("nats connection is %s", status)
	}
	return nil
}

type delivery struct {
	msg *nats.Msg
	job *queue.Job
}

func newDelivery(msg *nats.Msg) (*delivery, error) {
	job, err := queue.UnmarshalEnvelope(msg.Data)
	if err != nil {
		return nil, err
	}
	if meta, err := msg.Metadata(); err == nil && meta.NumDelivered > 0 {
		job.AttemptsMade = int(meta.NumDelivered) - 1
	}
	return &delivery{msg: msg, job: job}, nil
}

func (d *delivery) Job() *queue.Job { return d.job }

func (d *delivery) Ack(ctx context.Context) error {
	return d.msg.AckSync(nats.Context(ctx))
}

func (d *delivery) Nak(_ context.Context, delay time.Duration) error {
	return d.msg.NakWithDelay(delay)
}

func (d *delivery) Term(_ context.Context) error {
	return d.msg.Term()
}
