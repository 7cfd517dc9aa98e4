// Package prometheus implements the dispatch registry's Metrics and HTTP
// request metrics on the Prometheus client.
package prometheus

import (
	"time"

	"ddd-users/domain/events"
	"ddd-users/domain/shared"

	"github.com/prometheus/client_golang/prometheus"
)

var defaultBuckets = []float64{
	.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5,
}

type dispatchMetrics struct {
	dispatched      *prometheus.CounterVec
	handlersInvoked *prometheus.CounterVec
	dispatchLatency *prometheus.HistogramVec
	handlerFailures *prometheus.CounterVec
	pending         prometheus.Gauge
}

// NewDispatchMetrics registers the dispatch collectors on reg.
func NewDispatchMetrics(reg prometheus.Registerer) events.Metrics {
	m := &dispatchMetrics{
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "users_domain_events_dispatched_total",
			Help: "Total number of domain events dispatched to all their handlers",
		}, []string{"kind"}),

		handlersInvoked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "users_domain_event_handlers_invoked_total",
			Help: "Total number of successful handler invocations",
		}, []string{"kind"}),

		dispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "users_domain_event_dispatch_duration_seconds",
			Help:    "Time spent running the handlers of one event",
			Buckets: defaultBuckets,
		}, []string{"kind"}),

		handlerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "users_domain_event_handler_failures_total",
			Help: "Total number of handler errors that aborted a dispatch",
		}, []string{"kind"}),

		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "users_domain_event_pending_aggregates",
			Help: "Aggregates currently marked for dispatch",
		}),
	}

	reg.MustRegister(
		m.dispatched,
		m.handlersInvoked,
		m.dispatchLatency,
		m.handlerFailures,
		m.pending,
	)
	return m
}

func (m *dispatchMetrics) EventDispatched(kind shared.EventKind, handlers int, elapsed time.Duration) {
	m.dispatched.WithLabelValues(kind.String()).Inc()
	m.handlersInvoked.WithLabelValues(kind.String()).Add(float64(handlers))
	m.dispatchLatency.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

func (m *dispatchMetrics) HandlerFailed(kind shared.EventKind) {
	m.handlerFailures.WithLabelValues(kind.String()).Inc()
}

func (m *dispatchMetrics) PendingAggregates(n int) {
	m.pending.Set(float64(n))
}

// HTTPMetrics counts and times API requests by route.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "users_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "users_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: defaultBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(m.requests, m.latency)
	return m
}

func (m *HTTPMetrics) Observe(method, route, status string, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, status).Inc()
	m.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
