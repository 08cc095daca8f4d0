package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/feedcore/internal/api"
	"github.com/phrazzld/feedcore/internal/cache"
	"github.com/phrazzld/feedcore/internal/config"
	"github.com/phrazzld/feedcore/internal/failurelog"
	"github.com/phrazzld/feedcore/internal/feed"
	"github.com/phrazzld/feedcore/internal/platform/jetstream"
	"github.com/phrazzld/feedcore/internal/platform/postgres"
	"github.com/phrazzld/feedcore/internal/queue"
	"github.com/phrazzld/feedcore/internal/service"
	"github.com/phrazzld/feedcore/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	redis     redis.UniversalClient
	cache     *cache.Store
	transport queue.Transport
	producer  *queue.Producer

	// Entry points for the upstream API layer.
	posts    service.PostService
	likes    service.LikeService
	comments service.CommentService

	workers []*worker.Worker
	admin   http.Handler
}

// setupTransport selects the queue transport named by the configuration.
func setupTransport(cfg config.QueueConfig, log *slog.Logger) (queue.Transport, error) {
	switch cfg.Transport {
	case "nats":
		t, err := jetstream.Connect(jetstream.Config{URL: cfg.NATSURL, Stream: cfg.Stream}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect queue transport: %w", err)
		}
		return t, nil
	case "memory":
		log.Warn("using the in-process queue transport; queued jobs do not survive a restart")
		return queue.NewMemoryTransport(cfg.BufferSize, log), nil
	default:
		return nil, fmt.Errorf("unknown queue transport %q", cfg.Transport)
	}
}

// newApplication wires the stores, cache projections, services, workers,
// and admin router. Nothing runs until Run is called.
func newApplication(
	cfg *config.Config,
	log *slog.Logger,
	db *sql.DB,
	redisClient redis.UniversalClient,
	transport queue.Transport,
	reg prometheus.Registerer,
	gatherer prometheus.Gatherer,
) (*application, error) {
	if db == nil || transport == nil {
		return nil, fmt.Errorf("application needs a database and a queue transport")
	}

	app := &application{
		config:    cfg,
		logger:    log,
		db:        db,
		redis:     redisClient,
		transport: transport,
	}

	postStore := postgres.NewPostgresPostStore(db, log)
	likeStore := postgres.NewPostgresLikeStore(db, log)
	commentStore := postgres.NewPostgresCommentStore(db, log)
	userStore := postgres.NewPostgresUserStore(db, log)
	failureStore := postgres.NewPostgresFailureStore(db, log)
	jobStore := postgres.NewPostgresJobStore(db)

	app.cache = cache.New(redisClient, cache.OptionsFromConfig(cfg.Cache, log, reg))
	likers := feed.NewLikers(app.cache, likeStore, userStore, log)
	recent := feed.NewRecentComments(app.cache, cfg.Cache.RecentComments, log)

	app.producer = queue.NewProducer(transport, cfg.Cache.Namespace, log)
	app.posts = service.NewPostService(app.producer, postStore, app.cache, log)
	app.likes = service.NewLikeService(app.producer, postStore, likeStore, likers, app.cache, log)
	app.comments = service.NewCommentService(app.producer, postStore, commentStore, recent, app.cache, log)

	failures := failurelog.New(failureStore, log)
	if mem, ok := transport.(*queue.MemoryTransport); ok {
		mem.OnDrop(func(job *queue.Job, err error) {
			failures.LogJobFailure(context.Background(), job, time.Time{}, fmt.Errorf("retry not queued: %w", err))
		})
	}

	deps := worker.Deps{
		Transport: transport,
		Failures:  failures,
		Jobs:      jobStore,
		Metrics:   worker.NewMetrics(reg),
		Logger:    log,
	}
	handlers := map[queue.Kind]worker.Handler{
		queue.KindPost:    worker.NewPostHandler(postStore, app.cache, log),
		queue.KindLike:    worker.NewLikeHandler(likeStore, likers, log),
		queue.KindComment: worker.NewCommentHandler(commentStore, recent, log),
	}
	policies := queue.PoliciesFromConfig(cfg.Queue)
	for _, kind := range queue.Kinds {
		app.workers = append(app.workers, worker.New(worker.Config{
			Kind:        kind,
			Queue:       app.producer.QueueName(kind),
			Concurrency: cfg.Worker.Concurrency,
			Policy:      policies[kind],
		}, handlers[kind], deps))
	}

	admin := api.NewAdminHandler(failureStore, jobStore, map[string]api.HealthCheck{
		"cache":    app.cache.Ping,
		"database": db.PingContext,
	}, log)
	app.admin = api.NewAdminRouter(admin, gatherer, log)

	log.Info("application initialized", "workers", len(app.workers))
	return app, nil
}

// probeCache reports whether the cache answers at startup. A dead cache is
// not fatal: every read falls back to the durable store.
func (app *application) probeCache(ctx context.Context) {
	if err := app.cache.Ping(ctx); err != nil {
		app.logger.Warn("cache unavailable at startup; serving from the durable store",
			"addr", app.config.Cache.Addr,
			"error", err)
		return
	}
	app.logger.Info("cache connection established", "addr", app.config.Cache.Addr)
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if err := app.transport.Close(); err != nil {
		app.logger.Error("failed to close queue transport", "error", err)
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("failed to close cache client", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}
