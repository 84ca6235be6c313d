package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes registry state to Prometheus. A nil *Metrics records nothing.
type Metrics struct {
	connections  prometheus.Gauge
	onlineUsers  prometheus.Gauge
	messagesSent *prometheus.CounterVec
	deadChannels prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notify_ws_connections",
			Help: "Open push channels currently registered",
		}),
		onlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notify_ws_online_users",
			Help: "Users with at least one open push channel",
		}),
		messagesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notify_ws_messages_sent_total",
				Help: "Messages successfully written to a push channel",
			},
			[]string{"type"},
		),
		deadChannels: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notify_ws_dead_channels_total",
			Help: "Channels removed after a failed send",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.connections, m.onlineUsers, m.messagesSent, m.deadChannels)
	}
	return m
}

func (m *Metrics) setSize(users, connections int) {
	if m == nil {
		return
	}
	m.onlineUsers.Set(float64(users))
	m.connections.Set(float64(connections))
}

func (m *Metrics) messageSent(t MessageType) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(t.String()).Inc()
}

func (m *Metrics) deadChannel() {
	if m == nil {
		return
	}
	m.deadChannels.Inc()
}
