package proxy

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Call outcomes recorded by the calls_total metric.
const (
	OutcomeSuccess        = "success"
	OutcomeDisabled       = "disabled"
	OutcomeCallerError    = "caller_error"
	OutcomeAuthError      = "auth_error"
	OutcomeNotImplemented = "not_implemented"
	OutcomeTransportError = "transport_error"
)

// unknownBackendLabel replaces caller-supplied backend names that match
// no adapter, keeping label cardinality bounded.
const unknownBackendLabel = "unknown"

// Metrics contains Prometheus metrics for dispatch.
type Metrics struct {
	callsTotal       *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	errorsTotal      *prometheus.CounterVec
}

// NewMetrics creates proxy metrics under namespace. Register them through
// observability.Metrics.MustRegisterCollector.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solitude"
	}

	return &Metrics{
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "calls_total",
				Help:      "Total number of proxied calls by outcome",
			},
			[]string{"backend", "outcome"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "upstream_duration_seconds",
				Help:      "Duration of upstream payment backend calls",
				Buckets: []float64{
					.005, .01, .025, .05,
					.1, .25, .5, 1,
					2.5, 5, 10, 30,
				},
			},
			[]string{"backend"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "errors_total",
				Help:      "Total number of proxy errors",
			},
			[]string{"backend", "error_type"},
		),
	}
}

// Init pre-populates label combinations for backends so the series
// appear before the first call.
func (m *Metrics) Init(backends ...string) {
	for _, b := range backends {
		for _, outcome := range []string{OutcomeSuccess, OutcomeTransportError} {
			m.callsTotal.WithLabelValues(b, outcome)
		}
		m.upstreamDuration.WithLabelValues(b)
	}
}

func (m *Metrics) recordCall(backendName, outcome string) {
	m.callsTotal.WithLabelValues(backendName, outcome).Inc()
}

func (m *Metrics) recordUpstream(backendName string, d time.Duration) {
	m.upstreamDuration.WithLabelValues(backendName).Observe(d.Seconds())
}

func (m *Metrics) recordError(backendName, errType string) {
	m.errorsTotal.WithLabelValues(backendName, errType).Inc()
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.callsTotal.Describe(ch)
	m.upstreamDuration.Describe(ch)
	m.errorsTotal.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.callsTotal.Collect(ch)
	m.upstreamDuration.Collect(ch)
	m.errorsTotal.Collect(ch)
}
