package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "event_service"
)

// Metrics holds all application metrics
type Metrics struct {
	// Event log metrics
	EventsAppendedTotal  *prometheus.CounterVec
	EventBroadcastsTotal prometheus.Counter

	// Presence metrics
	PresenceBroadcastsTotal  *prometheus.CounterVec
	SweeperTransitionsTotal  *prometheus.CounterVec
	WebsocketConnections     prometheus.Gauge
	SessionsPurgedTotal      prometheus.Counter
	HeartbeatRejectionsTotal prometheus.Counter

	// Security metrics
	SecurityViolationsTotal prometheus.Counter
}

// New creates and registers all metrics with the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates and registers all metrics with a custom registry
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		EventsAppendedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_appended_total",
				Help:      "Total number of events appended to workspace logs",
			},
			[]string{"event_type"},
		),
		EventBroadcastsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_broadcasts_total",
				Help:      "Total number of events published to workspace channels",
			},
		),
		PresenceBroadcastsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "presence_broadcasts_total",
				Help:      "Total number of device status changes published",
			},
			[]string{"status"},
		),
		SweeperTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweeper_transitions_total",
				Help:      "Presence transitions applied by the idle sweeper",
			},
			[]string{"transition"},
		),
		WebsocketConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "websocket_connections",
				Help:      "Currently open websocket connections",
			},
		),
		SessionsPurgedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_purged_total",
				Help:      "Offline session rows removed by the retention job",
			},
		),
		HeartbeatRejectionsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "heartbeat_rejections_total",
				Help:      "Heartbeats received for unknown session ids",
			},
		),
		SecurityViolationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "security_violations_total",
				Help:      "Rejected attempts to subscribe across workspace boundaries",
			},
		),
	}
}
