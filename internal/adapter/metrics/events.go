package metrics

import "github.com/prometheus/client_golang/prometheus"

// EventMetrics tracks overlay change fan-out.
type EventMetrics struct {
	Published       *prometheus.CounterVec
	PublishFailures *prometheus.CounterVec
	Relayed         prometheus.Counter
}

func NewEventMetrics(reg prometheus.Registerer) *EventMetrics {
	m := &EventMetrics{
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of overlay change events published, by action.",
		}, []string{"action"}),
		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "publish_failures_total",
			Help:      "Total number of failed event deliveries, by sink.",
		}, []string{"sink"}),
		Relayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "relayed_total",
			Help:      "Total number of events received from other instances and relayed to local viewers.",
		}),
	}

	reg.MustRegister(m.Published, m.PublishFailures, m.Relayed)
	return m
}
