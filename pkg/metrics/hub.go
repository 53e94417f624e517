package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

// HubMetrics holds the simulator's Prometheus metrics.
type HubMetrics struct {
	connections prometheus.Gauge
	commands    *prometheus.CounterVec // By command kind
	samples     prometheus.Counter
}

// NewHubMetrics creates and registers the hub metrics. A nil
// registerer disables metrics.
func NewHubMetrics(reg prometheus.Registerer) *HubMetrics {
	if reg == nil {
		return nil
	}

	m := &HubMetrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "connections",
			Help:      "Number of active client connections",
		}),

		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "commands_total",
			Help:      "Total number of commands received from clients",
		}, []string{"kind"}),

		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "samples_total",
			Help:      "Total number of sample indications emitted",
		}),
	}

	reg.MustRegister(m.connections, m.commands, m.samples)
	return m
}

// ConnOpened tracks a new client connection.
func (m *HubMetrics) ConnOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

// ConnClosed tracks a dropped client connection.
func (m *HubMetrics) ConnClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// RecordCommand counts a received command by kind.
func (m *HubMetrics) RecordCommand(kind wire.Kind) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(kind.String()).Inc()
}

// RecordSample counts an emitted sample indication.
func (m *HubMetrics) RecordSample() {
	if m == nil {
		return
	}
	m.samples.Inc()
}
