package metrics

import "github.com/prometheus/client_golang/prometheus"

// Delivery outcomes used as label values.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
)

// RelayMetrics covers the connection registry, the event router and delivery.
type RelayMetrics struct {
	ConnectionsTotal    *prometheus.CounterVec
	ConnectionsRejected *prometheus.CounterVec
	ConnectionDuration  prometheus.Histogram
	ConnectionsReplaced prometheus.Counter
	EventsReceived      *prometheus.CounterVec
	MessagesDropped     *prometheus.CounterVec
	Deliveries          *prometheus.CounterVec
	Evictions           prometheus.Counter
	BroadcastFanout     prometheus.Histogram
	PingFailures        prometheus.Counter
	MessageSendDuration prometheus.Histogram
}

// NewRelayMetrics creates and registers relay metrics on the given registry.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		ConnectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_total",
			Help:      "WebSocket connection attempts by result (accepted/upgrade_failed).",
		}, []string{"result"}),
		ConnectionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_rejected_total",
			Help:      "WebSocket connections rejected before upgrade by reason.",
		}, []string{"reason"}),
		ConnectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connection_duration_seconds",
			Help:      "Lifetime of WebSocket connections in seconds.",
			Buckets:   []float64{1, 10, 60, 300, 900, 1800, 3600, 7200},
		}),
		ConnectionsReplaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "replaced_total",
			Help:      "Registrations that replaced an existing connection for the same user.",
		}),
		EventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "events_received_total",
			Help:      "Decoded inbound events by type.",
		}, []string{"type"}),
		MessagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "messages_dropped_total",
			Help:      "Inbound messages dropped by reason (malformed/unknown_type/rate_limited).",
		}, []string{"reason"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "attempts_total",
			Help:      "Per-recipient delivery attempts by outcome.",
		}, []string{"outcome"}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "evictions_total",
			Help:      "Connections deregistered after a failed delivery.",
		}),
		BroadcastFanout: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "broadcast_fanout",
			Help:      "Number of recipients per broadcast pass.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		PingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "ping_failures_total",
			Help:      "Pings that could not be written (client not responding).",
		}),
		MessageSendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "message_send_duration_seconds",
			Help:      "Time spent writing a single frame to a client.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}),
	}

	reg.MustRegister(
		m.ConnectionsTotal,
		m.ConnectionsRejected,
		m.ConnectionDuration,
		m.ConnectionsReplaced,
		m.EventsReceived,
		m.MessagesDropped,
		m.Deliveries,
		m.Evictions,
		m.BroadcastFanout,
		m.PingFailures,
		m.MessageSendDuration,
	)
	return m
}

// RegisterActiveConnections exposes the registry size as a gauge sampled at scrape time.
func RegisterActiveConnections(reg prometheus.Registerer, count func() int) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "websocket",
		Name:      "active_connections",
		Help:      "Number of registered WebSocket connections.",
	}, func() float64 { return float64(count()) }))
}
