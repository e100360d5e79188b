package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the realtime service
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// WebSocket metrics
	websocketConnections   prometheus.Gauge
	websocketMessagesTotal *prometheus.CounterVec

	// Room metrics
	roomsActive prometheus.Gauge

	// Message metrics
	messagesPersistedTotal *prometheus.CounterVec
	messagesDeletedTotal   prometheus.Counter

	// Call metrics
	callEventsTotal       *prometheus.CounterVec
	unreachablePeersTotal prometheus.Counter

	// Reaction metrics
	reactionsTotal *prometheus.CounterVec

	// Redis metrics
	redisPublishTotal *prometheus.CounterVec
}

// NewMetrics creates all collectors on a private registry
func NewMetrics(serviceName string) *Metrics {
	labels := prometheus.Labels{"service": serviceName}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: labels,
		}, []string{"method", "endpoint", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request latency in seconds",
			ConstLabels: labels,
			Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "endpoint"}),
		httpRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "http_requests_in_flight",
			Help:        "Current number of in-flight HTTP requests",
			ConstLabels: labels,
		}),
		websocketConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "realtime_websocket_connections",
			Help:        "Current number of active WebSocket connections",
			ConstLabels: labels,
		}),
		websocketMessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "realtime_websocket_messages_total",
			Help:        "Total number of WebSocket frames",
			ConstLabels: labels,
		}, []string{"direction"}), // "in" for received, "out" for sent
		roomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "realtime_rooms_active",
			Help:        "Current number of rooms with at least one member",
			ConstLabels: labels,
		}),
		messagesPersistedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "realtime_messages_persisted_total",
			Help:        "Total number of chat message persistence attempts",
			ConstLabels: labels,
		}, []string{"status"}), // "ok", "error"
		messagesDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "realtime_messages_deleted_total",
			Help:        "Total number of message delete requests",
			ConstLabels: labels,
		}),
		callEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "realtime_call_events_total",
			Help:        "Total number of call lifecycle events",
			ConstLabels: labels,
		}, []string{"event"}), // "initiated", "accepted", "rejected", "ended", "timeout", "invalid"
		unreachablePeersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "realtime_unreachable_peers_total",
			Help:        "Total number of call attempts to users with no live session",
			ConstLabels: labels,
		}),
		reactionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "realtime_reactions_total",
			Help:        "Total number of reaction fan-outs",
			ConstLabels: labels,
		}, []string{"kind"}), // "emoji", "emotion"
		redisPublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "realtime_redis_publish_total",
			Help:        "Total number of Redis pub/sub publishes",
			ConstLabels: labels,
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsInFlight,
		m.websocketConnections,
		m.websocketMessagesTotal,
		m.roomsActive,
		m.messagesPersistedTotal,
		m.messagesDeletedTotal,
		m.callEventsTotal,
		m.unreachablePeersTotal,
		m.reactionsTotal,
		m.redisPublishTotal,
	)

	return m
}

// GetRegistry returns the private registry for the /metrics handler
func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records a completed HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// WebSocketConnected records a new WebSocket session
func (m *Metrics) WebSocketConnected() {
	m.websocketConnections.Inc()
}

// WebSocketDisconnected records a closed WebSocket session
func (m *Metrics) WebSocketDisconnected() {
	m.websocketConnections.Dec()
}

// WebSocketMessage counts a frame in the given direction ("in" or "out")
func (m *Metrics) WebSocketMessage(direction string) {
	m.websocketMessagesTotal.WithLabelValues(direction).Inc()
}

// SetActiveRooms updates the active rooms gauge
func (m *Metrics) SetActiveRooms(n int) {
	m.roomsActive.Set(float64(n))
}

// MessagePersisted records a persistence attempt outcome
func (m *Metrics) MessagePersisted(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.messagesPersistedTotal.WithLabelValues(status).Inc()
}

// MessageDeleted records a delete request
func (m *Metrics) MessageDeleted() {
	m.messagesDeletedTotal.Inc()
}

// CallEvent records a call lifecycle event
func (m *Metrics) CallEvent(event string) {
	m.callEventsTotal.WithLabelValues(event).Inc()
}

// UnreachablePeer records a silently dropped call attempt
func (m *Metrics) UnreachablePeer() {
	m.unreachablePeersTotal.Inc()
}

// Reaction records a reaction fan-out
func (m *Metrics) Reaction(kind string) {
	m.reactionsTotal.WithLabelValues(kind).Inc()
}

// RedisPublish records a pub/sub publish outcome
func (m *Metrics) RedisPublish(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.redisPublishTotal.WithLabelValues(status).Inc()
}
