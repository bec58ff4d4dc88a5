package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics records request counts and latency per route.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

// NewHTTPMetrics registers the HTTP metrics on the provided registerer.
func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		return &HTTPMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests by method, route, and status.",
	}, []string{"method", "route", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	inflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "Requests currently being served.",
	})
	reg.MustRegister(requests, duration, inflight)
	return &HTTPMetrics{
		requests: requests,
		duration: duration,
		inflight: inflight,
	}
}

// ObserveRequest records one finished request.
func (m *HTTPMetrics) ObserveRequest(method, route, status string, elapsed time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(method, normalizeRoute(route), status).Inc()
	m.duration.WithLabelValues(method, normalizeRoute(route)).Observe(elapsed.Seconds())
}

// IncInflight marks a request as started.
func (m *HTTPMetrics) IncInflight() {
	if m == nil || m.inflight == nil {
		return
	}
	m.inflight.Inc()
}

// DecInflight marks a request as finished.
func (m *HTTPMetrics) DecInflight() {
	if m == nil || m.inflight == nil {
		return
	}
	m.inflight.Dec()
}

func normalizeRoute(route string) string {
	if route == "" {
		return "unmatched"
	}
	return route
}

// WebsocketMetrics tracks active realtime connections.
type WebsocketMetrics struct {
	connections prometheus.Gauge
	published   *prometheus.CounterVec
}

// NewWebsocketMetrics registers the websocket metrics on the provided registerer.
func NewWebsocketMetrics(reg prometheus.Registerer) *WebsocketMetrics {
	if reg == nil {
		return &WebsocketMetrics{}
	}
	connections := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections",
		Help: "Active websocket connections.",
	})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_events_published_total",
		Help: "Realtime events published by type.",
	}, []string{"event"})
	reg.MustRegister(connections, published)
	return &WebsocketMetrics{
		connections: connections,
		published:   published,
	}
}

// IncConnections marks a new websocket connection.
func (m *WebsocketMetrics) IncConnections() {
	if m == nil || m.connections == nil {
		return
	}
	m.connections.Inc()
}

// DecConnections marks a websocket connection as closed.
func (m *WebsocketMetrics) DecConnections() {
	if m == nil || m.connections == nil {
		return
	}
	m.connections.Dec()
}

// IncPublished counts a published realtime event.
func (m *WebsocketMetrics) IncPublished(event string) {
	if m == nil || m.published == nil {
		return
	}
	if event == "" {
		event = "unknown"
	}
	m.published.WithLabelValues(event).Inc()
}
