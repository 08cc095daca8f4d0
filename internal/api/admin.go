package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	apimw "github.com/phrazzld/feedcore/internal/api/middleware"
	"github.com/phrazzld/feedcore/internal/api/shared"
	"github.com/phrazzld/feedcore/internal/domain"
	"github.com/phrazzld/feedcore/internal/platform/logger"
	"github.com/phrazzld/feedcore/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Listing bounds for the admin endpoints
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// HealthCheckTimeout bounds a single liveness probe.
const HealthCheckTimeout = 2 * time.Second

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// AdminHandler serves the operator endpoints: liveness, the failed-job log,
// and the audit trail of retain-policy queues.
type AdminHandler struct {
	failures store.FailureStore
	jobs     store.JobStore
	checks   map[string]HealthCheck
	logger   *slog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	failures store.FailureStore,
	jobs store.JobStore,
	checks map[string]HealthCheck,
	log *slog.Logger,
) *AdminHandler {
	if failures == nil || jobs == nil {
		panic("admin handler needs a failure store and a job store")
	}
	if log == nil {
		log = slog.Default()
	}
	return &AdminHandler{
		failures: failures,
		jobs:     jobs,
		checks:   checks,
		logger:   log.With("component", "admin_handler"),
	}
}

// Health runs every registered probe and answers 200 when all pass, 503
// otherwise.
func (h *AdminHandler) Health(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}

	for name, check := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			log.Warn("health check failed", "check", name, "error", err)
			resp.Status = "unavailable"
			resp.Checks[name] = "unavailable"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	shared.RespondWithJSON(w, r, status, resp)
}

// FailedJobs lists the newest failure records, for manual replay.
func (h *AdminHandler) FailedJobs(w http.ResponseWriter, r *http.Request) {
	limit, err := getQueryLimit(r, "limit", DefaultListLimit, MaxListLimit)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	records, err := h.failures.ListRecent(r.Context(), limit)
	if err != nil {
		HandleAPIError(w, r, fmt.Errorf("failed to list failed jobs: %w", err))
		return
	}
	if records == nil {
		records = []*domain.FailureRecord{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, records)
}

// Jobs lists the newest audited outcomes of one queue.
func (h *AdminHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	queueName := r.URL.Query().Get("queue")
	if queueName == "" {
		HandleAPIError(w, r, fmt.Errorf("%w: queue is required", domain.ErrValidation))
		return
	}
	limit, err := getQueryLimit(r, "limit", DefaultListLimit, MaxListLimit)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	records, err := h.jobs.ListByQueue(r.Context(), queueName, limit)
	if err != nil {
		HandleAPIError(w, r, fmt.Errorf("failed to list jobs of %s: %w", queueName, err))
		return
	}
	if records == nil {
		records = []*domain.JobRecord{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, records)
}

// NewAdminRouter mounts the admin endpoints and the Prometheus scrape
// endpoint for gatherer.
func NewAdminRouter(h *AdminHandler, gatherer prometheus.Gatherer, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(apimw.NewTraceMiddleware(log))

	r.Get("/healthz", h.Health)
	r.Get("/failed-jobs", h.FailedJobs)
	r.Get("/jobs", h.Jobs)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return r
}
