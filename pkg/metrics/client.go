package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/senshub-protocol/senshub-go/pkg/wire"
)

const namespace = "senshub"

// Indication outcome label values.
const (
	OutcomeConsumed    = "consumed"
	OutcomeForwarded   = "forwarded"
	OutcomeDropped     = "dropped"
	OutcomeDecodeError = "decode_error"
)

// Timeout stage label values.
const (
	StageAck        = "ack"
	StageIndication = "indication"
)

// ClientMetrics holds the hub client's Prometheus metrics.
type ClientMetrics struct {
	commands     *prometheus.CounterVec // By command kind
	acks         *prometheus.CounterVec // By ack status
	indications  *prometheus.CounterVec // By outcome (consumed/forwarded/dropped/decode_error)
	timeouts     *prometheus.CounterVec // By stage (ack/indication)
	registrySize prometheus.Gauge
}

// NewClientMetrics creates and registers the client metrics. A nil
// registerer disables metrics: the returned nil collector's methods
// are all no-ops.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	if reg == nil {
		return nil
	}

	m := &ClientMetrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "commands_total",
			Help:      "Total number of commands sent to the hub",
		}, []string{"kind"}),

		acks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "acks_total",
			Help:      "Total number of command acknowledgements received",
		}, []string{"status"}),

		indications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "indications_total",
			Help:      "Total number of inbound indications by dispatch outcome",
		}, []string{"outcome"}),

		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "timeouts_total",
			Help:      "Total number of synchronous operations that timed out",
		}, []string{"stage"}),

		registrySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "registry_size",
			Help:      "Number of registered (sensor, type) entries",
		}),
	}

	reg.MustRegister(m.commands, m.acks, m.indications, m.timeouts, m.registrySize)
	return m
}

// RecordCommand counts a command send by kind.
func (m *ClientMetrics) RecordCommand(kind wire.Kind) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(kind.String()).Inc()
}

// RecordAck counts a received acknowledgement by status.
func (m *ClientMetrics) RecordAck(status wire.Status) {
	if m == nil {
		return
	}
	m.acks.WithLabelValues(status.String()).Inc()
}

// RecordIndication counts an inbound indication by dispatch outcome.
func (m *ClientMetrics) RecordIndication(outcome string) {
	if m == nil {
		return
	}
	m.indications.WithLabelValues(outcome).Inc()
}

// RecordTimeout counts a timed-out wait by stage.
func (m *ClientMetrics) RecordTimeout(stage string) {
	if m == nil {
		return
	}
	m.timeouts.WithLabelValues(stage).Inc()
}

// SetRegistrySize tracks the current registry entry count.
func (m *ClientMetrics) SetRegistrySize(n int) {
	if m == nil {
		return
	}
	m.registrySize.Set(float64(n))
}
