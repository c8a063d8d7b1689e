package columnar

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of a Pipeline. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Boundary call metrics
	CallsTotal    *prometheus.CounterVec
	CallLatency   *prometheus.HistogramVec
	FailuresTotal *prometheus.CounterVec

	// Descriptor metrics
	ExportsTotal prometheus.Counter
	ImportsTotal prometheus.Counter

	// Foreign values handed out by ToForeign and not yet freed
	ForeignValuesLive prometheus.Gauge
}

// NewMetrics registers the collectors with reg under namespace. A nil reg
// creates unregistered collectors.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total boundary calls by operation and status",
		}, []string{"op", "status"}),
		CallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_latency_seconds",
			Help:      "Boundary call latency by operation",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"op"}),
		FailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed boundary calls by error kind",
		}, []string{"kind"}),

		ExportsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Total descriptor pairs populated from native arrays",
		}),
		ImportsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imports_total",
			Help:      "Total descriptor pairs imported into native arrays",
		}),

		ForeignValuesLive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "foreign_values_live",
			Help:      "Foreign values created by this process and not yet freed",
		}),
	}
}

// RecordCall records a finished boundary call.
func (m *Metrics) RecordCall(op string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		m.FailuresTotal.WithLabelValues(errorKind(err)).Inc()
	}
	m.CallsTotal.WithLabelValues(op, status).Inc()
	m.CallLatency.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *Metrics) recordExport() {
	if m != nil {
		m.ExportsTotal.Inc()
	}
}

func (m *Metrics) recordImport() {
	if m != nil {
		m.ImportsTotal.Inc()
	}
}

func (m *Metrics) foreignValueCreated() {
	if m != nil {
		m.ForeignValuesLive.Inc()
	}
}

func (m *Metrics) foreignValueFreed() {
	if m != nil {
		m.ForeignValuesLive.Dec()
	}
}
