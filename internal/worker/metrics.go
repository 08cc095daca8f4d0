package worker

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Job outcomes reported by Metrics
const (
	outcomeCompleted = "completed"
	outcomeRetried   = "retried"
	outcomeDead      = "dead"
)

// Metrics holds the Prometheus collectors shared by every worker of a
// process. A nil *Metrics records nothing.
type Metrics struct {
	Jobs     *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	InFlight *prometheus.GaugeVec
	Panics   *prometheus.CounterVec
	Faults   *prometheus.CounterVec
}

// NewMetrics creates the worker collectors and registers them with reg.
// Collectors that are already registered are reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feed",
				Name:      "worker_jobs_total",
				Help:      "Jobs handled by workers, by queue and outcome.",
			},
			[]string{"queue", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "feed",
				Name:      "worker_job_duration_seconds",
				Help:      "Time spent running one job attempt.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"queue"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "feed",
				Name:      "worker_jobs_in_flight",
				Help:      "Jobs currently running.",
			},
			[]string{"queue"},
		),
		Panics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feed",
				Name:      "worker_handler_panics_total",
				Help:      "Handler panics recovered by workers.",
			},
			[]string{"queue"},
		),
		Faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "feed",
				Name:      "worker_faults_total",
				Help:      "Faults of the worker consume loops.",
			},
			[]string{"queue"},
		),
	}

	if reg == nil {
		return m
	}
	m.Jobs = register(reg, m.Jobs)
	m.Duration = register(reg, m.Duration)
	m.InFlight = register(reg, m.InFlight)
	m.Panics = register(reg, m.Panics)
	m.Faults = register(reg, m.Faults)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func (m *Metrics) job(queue, outcome string) {
	if m != nil {
		m.Jobs.WithLabelValues(queue, outcome).Inc()
	}
}

func (m *Metrics) observe(queue string, seconds float64) {
	if m != nil {
		m.Duration.WithLabelValues(queue).Observe(seconds)
	}
}

func (m *Metrics) inFlight(queue string, delta float64) {
	if m != nil {
		m.InFlight.WithLabelValues(queue).Add(delta)
	}
}

func (m *Metrics) recovered(queue string) {
	if m != nil {
		m.Panics.WithLabelValues(queue).Inc()
	}
}

func (m *Metrics) fault(queue string) {
	if m != nil {
		m.Faults.WithLabelValues(queue).Inc()
	}
}
