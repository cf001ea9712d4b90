// Package telemetry exposes Prometheus instruments for container lifecycle
// operations.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bnema/dockmaster/internal/boundaries/out"
	"github.com/bnema/dockmaster/internal/domain"
)

const namespace = "dockmaster"

// OutcomeSuccess is the kind label recorded for operations without error.
const OutcomeSuccess = "success"

var _ out.OperationMetrics = (*Metrics)(nil)

// Metrics holds the Prometheus instruments for dockmaster.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ImagePullsTotal   *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates the instruments on a dedicated registry. Go runtime and
// process collectors are registered alongside them.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Lifecycle operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Lifecycle operation duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"operation"},
		),
		ImagePullsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_pulls_total",
				Help:      "Image pull attempts by outcome",
			},
			[]string{"outcome"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.OperationsTotal,
		m.OperationDuration,
		m.ImagePullsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveOperation implements out.OperationMetrics.
func (m *Metrics) ObserveOperation(operation string, kind domain.ErrorKind, duration time.Duration) {
	outcome := string(kind)
	if outcome == "" {
		outcome = OutcomeSuccess
	}
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveImagePull implements out.OperationMetrics.
func (m *Metrics) ObserveImagePull(outcome string) {
	m.ImagePullsTotal.WithLabelValues(outcome).Inc()
}

// Registry returns the registry backing the instruments.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
