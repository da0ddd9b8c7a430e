// Package metrics provides Prometheus metrics for the callout service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the callout service.
type Metrics struct {
	Registry *prometheus.Registry

	StreamsTotal  prometheus.Counter
	StreamsActive prometheus.Gauge
	MessagesTotal *prometheus.CounterVec
}

// New creates a Metrics instance with a custom registry and all
// collectors registered. The phase label is bounded by the six protocol
// phases plus "unknown"; outcome is "ok" or "error".
func New() *Metrics {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: reg,

		StreamsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "callout_streams_total",
			Help: "Total processing streams accepted.",
		}),

		StreamsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "callout_streams_active",
			Help: "Number of processing streams currently open.",
		}),

		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callout_messages_total",
			Help: "Total processing messages by phase and outcome.",
		}, []string{"phase", "outcome"}),
	}

	reg.MustRegister(
		m.StreamsTotal,
		m.StreamsActive,
		m.MessagesTotal,
	)

	return m
}
