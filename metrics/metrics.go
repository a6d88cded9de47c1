// Package metrics exposes solver counters and durations to Prometheus.
package metrics

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"dhsim/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	StepsTotal    *prometheus.CounterVec // status: solved, failed
	StepFailures  *prometheus.CounterVec // kind: topology, physical_input, other
	StepDuration  prometheus.Histogram
	BatchesTotal  prometheus.Counter
	BatchDuration prometheus.Histogram
	BatchSteps    prometheus.Gauge

	WebsocketClients prometheus.Gauge

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process wide registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initSolverMetrics()
	r.initServerMetrics()
	return r
}

func (r *Registry) initSolverMetrics() {
	r.StepsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dhsim_steps_total",
			Help: "Total number of solved time steps by outcome",
		},
		[]string{"status"},
	)

	r.StepFailures = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dhsim_step_failures_total",
			Help: "Failed time steps by error kind",
		},
		[]string{"kind"},
	)

	r.StepDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dhsim_step_duration_seconds",
			Help:    "Duration of a single time step solve in seconds",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
		},
	)

	r.BatchesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "dhsim_batches_total",
			Help: "Total number of finished batch runs",
		},
	)

	r.BatchDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dhsim_batch_duration_seconds",
			Help:    "Duration of a batch run in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 60, 300},
		},
	)

	r.BatchSteps = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "dhsim_batch_steps",
			Help: "Number of time steps in the last batch run",
		},
	)
}

func (r *Registry) initServerMetrics() {
	r.WebsocketClients = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "dhsim_websocket_clients",
			Help: "Number of connected websocket clients",
		},
	)
}

func (r *Registry) StepSolved(cost time.Duration) {
	r.StepsTotal.WithLabelValues("solved").Inc()
	r.StepDuration.Observe(cost.Seconds())
}

func (r *Registry) StepFailed(cost time.Duration, err error) {
	r.StepsTotal.WithLabelValues("failed").Inc()
	r.StepFailures.WithLabelValues(errorKind(err)).Inc()
	r.StepDuration.Observe(cost.Seconds())
}

func (r *Registry) BatchFinished(cost time.Duration, steps, failed int) {
	r.BatchesTotal.Inc()
	r.BatchDuration.Observe(cost.Seconds())
	r.BatchSteps.Set(float64(steps))
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, model.ErrTopology):
		return "topology"
	case errors.Is(err, model.ErrPhysicalInput):
		return "physical_input"
	}
	return "other"
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
