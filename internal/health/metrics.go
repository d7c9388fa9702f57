package health

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for health checks.
type Metrics struct {
	checksTotal *prometheus.CounterVec
	checkStatus *prometheus.GaugeVec
}

// NewMetrics creates health metrics under namespace. Register them
// through observability.Metrics.MustRegisterCollector.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solitude"
	}

	m := &Metrics{
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "checks_total",
				Help:      "Total number of health probes served",
			},
			[]string{"type"},
		),
		checkStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "check_status",
				Help:      "Current dependency check status (1=healthy, 0=unhealthy)",
			},
			[]string{"check"},
		),
	}

	for _, probe := range []string{"liveness", "readiness", "health"} {
		m.checksTotal.WithLabelValues(probe)
	}
	return m
}

func (m *Metrics) recordProbe(probe string) {
	m.checksTotal.WithLabelValues(probe).Inc()
}

func (m *Metrics) setCheckStatus(check string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	m.checkStatus.WithLabelValues(check).Set(v)
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.checksTotal.Describe(ch)
	m.checkStatus.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.checksTotal.Collect(ch)
	m.checkStatus.Collect(ch)
}
