package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebSocketMetrics holds Prometheus metrics for overlay event viewers.
type WebSocketMetrics struct {
	ActiveConnections   prometheus.Gauge
	MessagesSent        prometheus.Counter
	ConnectionsRejected *prometheus.CounterVec
}

// NewWebSocketMetrics creates and registers WebSocket metrics on the given registry.
func NewWebSocketMetrics(reg prometheus.Registerer) *WebSocketMetrics {
	m := &WebSocketMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of active WebSocket connections.",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_sent_total",
			Help:      "Total number of overlay events written to WebSocket clients.",
		}),
		ConnectionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_rejected_total",
			Help:      "Total number of refused WebSocket connections, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.ActiveConnections, m.MessagesSent, m.ConnectionsRejected)
	return m
}
