// Package metrics provides Prometheus metrics for notification fan-out.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons recorded on NotificationsDropped.
const (
	DropOffline    = "offline"     // target user has no registered connection
	DropOverflow   = "overflow"    // queue at capacity
	DropClosed     = "closed"      // dispatcher shut down
	DropBufferFull = "buffer_full" // connection send buffer full
	DropEncode     = "encode"      // payload could not be encoded as JSON
)

// NotificationMetrics holds counters and gauges for the dispatcher and gateway.
type NotificationMetrics struct {
	NotificationsPushed    *prometheus.CounterVec // by kind
	NotificationsDelivered *prometheus.CounterVec // by kind
	NotificationsDropped   *prometheus.CounterVec // by kind, reason
	QueueDepth             prometheus.Gauge

	ConnectionsTotal  *prometheus.CounterVec // by state: identified, unidentified
	ConnectionsActive prometheus.Gauge
	RegisteredUsers   prometheus.Gauge

	registry *prometheus.Registry
}

// NewNotificationMetrics creates the metrics and registers them on registry.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{
		registry: registry,
		NotificationsPushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ugram_notifications_pushed_total",
			Help: "Notifications accepted onto the delivery queue, by kind",
		}, []string{"kind"}),
		NotificationsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ugram_notifications_delivered_total",
			Help: "Notifications handed to a live connection, by kind",
		}, []string{"kind"}),
		NotificationsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ugram_notifications_dropped_total",
			Help: "Notifications not delivered, by kind and reason",
		}, []string{"kind", "reason"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ugram_notification_queue_depth",
			Help: "Notifications waiting in the delivery queue",
		}),
		ConnectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ugram_gateway_connections_total",
			Help: "WebSocket connections accepted, by identification outcome",
		}, []string{"state"}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ugram_gateway_connections_active",
			Help: "Open WebSocket connections",
		}),
		RegisteredUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ugram_presence_registered_users",
			Help: "Users with a registered connection",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.NotificationsPushed, m.NotificationsDelivered, m.NotificationsDropped, m.QueueDepth,
		m.ConnectionsTotal, m.ConnectionsActive, m.RegisteredUsers,
	} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register notification metrics: %w", err)
		}
	}
	return m, nil
}

// Handler serves the metrics registered on m's registry.
func (m *NotificationMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// The methods below are nil-safe so components can run without metrics.

func (m *NotificationMetrics) Pushed(kind string) {
	if m != nil {
		m.NotificationsPushed.WithLabelValues(kind).Inc()
	}
}

func (m *NotificationMetrics) Delivered(kind string) {
	if m != nil {
		m.NotificationsDelivered.WithLabelValues(kind).Inc()
	}
}

func (m *NotificationMetrics) Dropped(kind, reason string) {
	if m != nil {
		m.NotificationsDropped.WithLabelValues(kind, reason).Inc()
	}
}

func (m *NotificationMetrics) SetQueueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}

func (m *NotificationMetrics) ConnectionOpened(identified bool) {
	if m == nil {
		return
	}
	state := "unidentified"
	if identified {
		state = "identified"
	}
	m.ConnectionsTotal.WithLabelValues(state).Inc()
	m.ConnectionsActive.Inc()
}

func (m *NotificationMetrics) ConnectionClosed() {
	if m != nil {
		m.ConnectionsActive.Dec()
	}
}

func (m *NotificationMetrics) SetRegisteredUsers(n int) {
	if m != nil {
		m.RegisteredUsers.Set(float64(n))
	}
}
