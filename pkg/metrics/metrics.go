package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// APIMetrics tracks order throughput and realtime delivery counters.
type APIMetrics struct {
	ordersPlaced    prometheus.Counter
	ordersFailed    *prometheus.CounterVec
	ordersCancelled prometheus.Counter

	wsConnections prometheus.Gauge
	eventsPushed  *prometheus.CounterVec
}

// NewAPIMetrics registers the marketplace metrics on the provided registerer.
func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	if reg == nil {
		return &APIMetrics{}
	}
	placed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders created successfully.",
	})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Order placements rejected, by reason.",
	}, []string{"reason"})
	cancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Orders cancelled by buyers.",
	})
	connections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_connections",
		Help: "Currently open websocket connections.",
	})
	pushed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_events_pushed_total",
		Help: "Realtime events pushed to clients, by event type.",
	}, []string{"event"})
	reg.MustRegister(placed, failed, cancelled, connections, pushed)
	return &APIMetrics{
		ordersPlaced:    placed,
		ordersFailed:    failed,
		ordersCancelled: cancelled,
		wsConnections:   connections,
		eventsPushed:    pushed,
	}
}

func (m *APIMetrics) IncOrdersPlaced() {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.Inc()
}

func (m *APIMetrics) IncOrdersFailed(reason string) {
	if m == nil || m.ordersFailed == nil {
		return
	}
	m.ordersFailed.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *APIMetrics) IncOrdersCancelled() {
	if m == nil || m.ordersCancelled == nil {
		return
	}
	m.ordersCancelled.Inc()
}

func (m *APIMetrics) ConnectionOpened() {
	if m == nil || m.wsConnections == nil {
		return
	}
	m.wsConnections.Inc()
}

func (m *APIMetrics) ConnectionClosed() {
	if m == nil || m.wsConnections == nil {
		return
	}
	m.wsConnections.Dec()
}

func (m *APIMetrics) IncEventsPushed(event string) {
	if m == nil || m.eventsPushed == nil {
		return
	}
	m.eventsPushed.WithLabelValues(normalizeLabel(event)).Inc()
}

func normalizeLabel(value string) string {
	v := strings.TrimSpace(strings.ToLower(value))
	if v == "" {
		return "unknown"
	}
	return v
}
