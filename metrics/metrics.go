// Package metrics exposes Prometheus instrumentation for the grid hub.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "gridshare"

// Leave reasons
const (
	ReasonDisconnect = "disconnect"
	ReasonSendFailed = "send_failed"
	ReasonIdle       = "idle"
	ReasonShutdown   = "shutdown"
)

// Message outcomes
const (
	OutcomeApplied    = "applied"
	OutcomeIgnored    = "ignored"
	OutcomeMalformed  = "malformed"
	OutcomeUnexpected = "unexpected"
)

// HubMetrics holds the counters and gauges updated by the hub. A nil
// *HubMetrics is valid and records nothing.
type HubMetrics struct {
	ActiveConnections   prometheus.Gauge
	ConnectionsTotal    prometheus.Counter
	DisconnectsTotal    *prometheus.CounterVec
	MessagesTotal       *prometheus.CounterVec
	SendFailuresTotal   prometheus.Counter
	BroadcastRecipients prometheus.Histogram
}

// NewHubMetrics creates and registers hub metrics on the given registry.
func NewHubMetrics(reg prometheus.Registerer) *HubMetrics {
	m := &HubMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "active_connections",
			Help:      "Number of connections currently joined to the hub.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "connections_total",
			Help:      "Total number of connections that joined the hub.",
		}),
		DisconnectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "disconnects_total",
			Help:      "Connections removed from the hub by reason.",
		}, []string{"reason"}),
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "messages_total",
			Help:      "Inbound messages by kind and outcome.",
		}, []string{"kind", "outcome"}),
		SendFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "send_failures_total",
			Help:      "Outbound sends that failed and dropped the recipient.",
		}),
		BroadcastRecipients: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "broadcast_recipients",
			Help:      "Number of recipients per broadcast.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),
	}

	reg.MustRegister(
		m.ActiveConnections,
		m.ConnectionsTotal,
		m.DisconnectsTotal,
		m.MessagesTotal,
		m.SendFailuresTotal,
		m.BroadcastRecipients,
	)
	return m
}

// Joined records a new connection.
func (m *HubMetrics) Joined() {
	if m == nil {
		return
	}
	m.ConnectionsTotal.Inc()
	m.ActiveConnections.Inc()
}

// Left records a removed connection.
func (m *HubMetrics) Left(reason string) {
	if m == nil {
		return
	}
	m.DisconnectsTotal.WithLabelValues(reason).Inc()
	m.ActiveConnections.Dec()
}

// Message records the outcome of handling one inbound message.
func (m *HubMetrics) Message(kind, outcome string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(kind, outcome).Inc()
}

// SendFailed records a failed outbound send.
func (m *HubMetrics) SendFailed() {
	if m == nil {
		return
	}
	m.SendFailuresTotal.Inc()
}

// Broadcast records the fan-out width of one broadcast.
func (m *HubMetrics) Broadcast(recipients int) {
	if m == nil {
		return
	}
	m.BroadcastRecipients.Observe(float64(recipients))
}
