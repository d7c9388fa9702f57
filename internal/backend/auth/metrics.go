package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for header computation.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics creates auth metrics under namespace. Register them through
// observability.Metrics.MustRegisterCollector.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solitude"
	}

	return &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "backend_auth",
				Name:      "requests_total",
				Help:      "Total number of backend auth header computations",
			},
			[]string{"injector", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "backend_auth",
				Name:      "request_duration_seconds",
				Help:      "Backend auth header computation duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"injector"},
		),
	}
}

// NopMetrics returns metrics that are never registered.
func NopMetrics() *Metrics {
	return NewMetrics("")
}

// RecordRequest records one header computation.
func (m *Metrics) RecordRequest(injector, status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(injector, status).Inc()
	m.requestDuration.WithLabelValues(injector).Observe(duration.Seconds())
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.requestDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.requestDuration.Collect(ch)
}
