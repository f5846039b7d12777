package orchestrator

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ShayCichocki/genesis/pkg/models"
)

// Generation outcomes used as the result label.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics holds the Prometheus metrics for the orchestrator.
type Metrics struct {
	GenerationsTotal   *prometheus.CounterVec
	GenerationDuration prometheus.Histogram
	ActiveWorkflows    prometheus.Gauge
	TransitionsTotal   *prometheus.CounterVec
	ArchiveErrorsTotal prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates and registers all metrics on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		GenerationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genesis_generations_total",
				Help: "Generation requests by result.",
			},
			[]string{"result"},
		),
		GenerationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "genesis_generation_duration_seconds",
				Help:    "Wall-clock time of generation requests.",
				Buckets: []float64{0.1, 1, 5, 15, 60, 300, 900, 1800},
			},
		),
		ActiveWorkflows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "genesis_active_workflows",
				Help: "Workflows currently submitted to the engine.",
			},
		),
		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "genesis_workflow_transitions_total",
				Help: "Workflow status transitions by target status.",
			},
			[]string{"status"},
		),
		ArchiveErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "genesis_archive_errors_total",
				Help: "Failed attempts to archive a finished workflow.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.GenerationsTotal)
	reg.MustRegister(m.GenerationDuration)
	reg.MustRegister(m.ActiveWorkflows)
	reg.MustRegister(m.TransitionsTotal)
	reg.MustRegister(m.ArchiveErrorsTotal)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) recordGeneration(result string, seconds float64) {
	if m == nil {
		return
	}
	m.GenerationsTotal.WithLabelValues(result).Inc()
	m.GenerationDuration.Observe(seconds)
}

func (m *Metrics) recordTransition(status models.WorkflowStatus) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) setActive(n int) {
	if m == nil {
		return
	}
	m.ActiveWorkflows.Set(float64(n))
}

func (m *Metrics) recordArchiveError() {
	if m == nil {
		return
	}
	m.ArchiveErrorsTotal.Inc()
}
