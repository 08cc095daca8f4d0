package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/feedcore/internal/config"
	"github.com/phrazzld/feedcore/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// NoExpiry stores a string entry without a TTL.
const NoExpiry time.Duration = -1

// consecutive failures that open the breaker
const breakerTripThreshold = 5

// Options configures a Store.
type Options struct {
	// Namespace prefixes every key. Required.
	Namespace string
	// DefaultTTL applies to Set calls with a zero ttl.
	DefaultTTL time.Duration
	// OpTimeout bounds every backend round trip.
	OpTimeout time.Duration
	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration
	Logger         *slog.Logger
	// Registerer receives the cache_operations_total collector when set.
	Registerer prometheus.Registerer
}

// Store is the namespaced cache. A Store built with a nil client behaves as
// a permanently unavailable backend.
type Store struct {
	client     redis.UniversalClient
	namespace  string
	defaultTTL time.Duration
	opTimeout  time.Duration
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
	ops        *prometheus.CounterVec
}

// NewClient builds the Redis client described by cfg.
func NewClient(cfg config.CacheConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.OpTimeout * 4,
		ReadTimeout:  cfg.OpTimeout,
		WriteTimeout: cfg.OpTimeout,
	})
}

// OptionsFromConfig maps the cache configuration onto Options.
func OptionsFromConfig(cfg config.CacheConfig, log *slog.Logger, reg prometheus.Registerer) Options {
	return Options{
		Namespace:      cfg.Namespace,
		DefaultTTL:     cfg.DefaultTTL,
		OpTimeout:      cfg.OpTimeout,
		BreakerTimeout: cfg.BreakerTimeout,
		Logger:         log,
		Registerer:     reg,
	}
}

// New creates a Store over client.
func New(client redis.UniversalClient, opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DefaultTTL == 0 {
		opts.DefaultTTL = 24 * time.Hour
	}
	if opts.OpTimeout == 0 {
		opts.OpTimeout = 500 * time.Millisecond
	}
	if opts.BreakerTimeout == 0 {
		opts.BreakerTimeout = 30 * time.Second
	}

	log := opts.Logger.With(slog.String("component", "cache"))
	s := &Store{
		client:     client,
		namespace:  opts.Namespace,
		defaultTTL: opts.DefaultTTL,
		opTimeout:  opts.OpTimeout,
		logger:     log,
	}

	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cache:" + opts.Namespace,
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("cache circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled)
		},
	})

	if opts.Registerer != nil {
		s.ops = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Cache operations by command and outcome.",
		}, []string{"op", "status"})
		if err := opts.Registerer.Register(s.ops); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				s.ops = are.ExistingCollector.(*prometheus.CounterVec)
			} else {
				log.Warn("failed to register cache metrics", slog.String("error", err.Error()))
				s.ops = nil
			}
		}
	}

	return s
}

// Namespace returns the key prefix of the store.
func (s *Store) Namespace() string { return s.namespace }

// Key joins logical key segments with ':'.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

func (s *Store) key(k string) string {
	return s.namespace + ":" + k
}

func (s *Store) logical(full string) string {
	return strings.TrimPrefix(full, s.namespace+":")
}

// Ping checks the backend directly, bypassing the breaker. It is the
// liveness probe used at startup and by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return errors.New("cache disabled")
	}
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// Available reports whether the breaker currently lets calls through.
func (s *Store) Available() bool {
	return s.client != nil && s.breaker.State() != gobreaker.StateOpen
}

// exec runs fn against the backend and classifies the outcome. redis.Nil is
// a miss; any other failure is logged and reported as unavailable.
func (s *Store) exec(ctx context.Context, op, key string, fn func(ctx context.Context, c redis.UniversalClient) error) Status {
	st := s.run(ctx, op, key, fn)
	if s.ops != nil {
		s.ops.WithLabelValues(op, st.String()).Inc()
	}
	return st
}

func (s *Store) run(ctx context.Context, op, key string, fn func(ctx context.Context, c redis.UniversalClient) error) Status {
	if s.client == nil {
		return StatusUnavailable
	}

	_, err := s.breaker.Execute(func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
		defer cancel()
		return nil, fn(ctx, s.client)
	})

	switch {
	case err == nil:
		return StatusHit
	case errors.Is(err, redis.Nil):
		return StatusMiss
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		logger.FromContextOrDefault(ctx, s.logger).Debug("cache skipped, breaker open",
			slog.String("op", op), slog.String("key", key))
		return StatusUnavailable
	default:
		logger.FromContextOrDefault(ctx, s.logger).Warn("cache operation failed, degrading",
			slog.String("op", op),
			slog.String("key", key),
			slog.String("error", err.Error()))
		return StatusUnavailable
	}
}

// applied maps a write outcome onto a boolean.
func applied(st Status) bool {
	return st == StatusHit
}
