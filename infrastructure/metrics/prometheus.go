// Package metrics implements the MetricsCollector port on Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-arena/internal/ports"
)

// Collector implements the MetricsCollector interface using Prometheus.
// It exposes the LLM traffic metrics emitted by the client middleware
// alongside generic operation metrics for the tournament itself.
type Collector struct {
	requestDuration  *prometheus.HistogramVec
	requestsTotal    *prometheus.CounterVec
	tokensTotal      *prometheus.CounterVec
	operationLatency *prometheus.HistogramVec
	operationsTotal  *prometheus.CounterVec
	stateGauges      *prometheus.GaugeVec
}

var _ ports.MetricsCollector = (*Collector)(nil)

// NewCollector creates a Collector and registers its metric vectors with reg.
// A nil reg uses the default Prometheus registry; tests pass their own
// registry so repeated construction does not trip duplicate registration.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		// LLM traffic metrics, fed by the client metrics middleware.
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_request_duration_seconds",
				Help:    "Latency of LLM provider requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "model", "status"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_requests_total",
				Help: "Total number of LLM provider requests by outcome.",
			},
			[]string{"provider", "model", "status"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_tokens_total",
				Help: "Total tokens consumed by LLM requests.",
			},
			[]string{"provider", "model", "status", "token_type"},
		),

		// Tournament execution metrics.
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tournament_operation_duration_seconds",
				Help:    "Execution time of tournament operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tournament_operations_total",
				Help: "Total number of tournament operations by outcome.",
			},
			[]string{"operation", "status"},
		),
		stateGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tournament_state",
				Help: "Current tournament state values.",
			},
			[]string{"metric"},
		),
	}
}

// label returns the value for key, or "unknown" when the key is absent
// or empty. Prometheus vectors require a value for every declared label.
func label(labels map[string]string, key string) string {
	if v, ok := labels[key]; ok && v != "" {
		return v
	}
	return "unknown"
}

// RecordLatency implements the MetricsCollector interface by recording
// operation latency in the tournament histogram.
func (c *Collector) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	c.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters. LLM traffic metrics route to their dedicated
// vectors; anything else lands in the generic operations counter.
func (c *Collector) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "llm_requests_total":
		c.requestsTotal.WithLabelValues(
			label(labels, "provider"),
			label(labels, "model"),
			label(labels, "status"),
		).Add(value)
	case "llm_tokens_total":
		c.tokensTotal.WithLabelValues(
			label(labels, "provider"),
			label(labels, "model"),
			label(labels, "status"),
			label(labels, "token_type"),
		).Add(value)
	default:
		status, ok := labels["status"]
		if !ok || status == "" {
			status = "success"
		}
		c.operationsTotal.WithLabelValues(metric, status).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (c *Collector) RecordGauge(metric string, value float64, labels map[string]string) {
	c.stateGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (c *Collector) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case "llm_request_duration_seconds":
		c.requestDuration.WithLabelValues(
			label(labels, "provider"),
			label(labels, "model"),
			label(labels, "status"),
		).Observe(value)
	default:
		c.operationLatency.WithLabelValues(metric).Observe(value)
	}
}
