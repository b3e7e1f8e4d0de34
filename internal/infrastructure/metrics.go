package infrastructure

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	eventsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "execore_events_processed_total",
		Help: "Catalog events applied by the execution engine.",
	}, []string{"event_type"})

	eventsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "execore_events_failed_total",
		Help: "Catalog events rejected by the execution engine.",
	}, []string{"event_type", "reason"})

	eventsDeadLettered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "execore_events_dead_lettered_total",
		Help: "Events forwarded to the dead letter subject.",
	})

	positionEventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "execore_position_events_published_total",
		Help: "Derived position lifecycle events published downstream.",
	}, []string{"event_type"})

	eventHandleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "execore_event_handle_seconds",
		Help:    "Inbound event handling latency in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "execore_http_request_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

func init() {
	prometheus.MustRegister(
		eventsProcessed,
		eventsFailed,
		eventsDeadLettered,
		positionEventsPublished,
		eventHandleDuration,
		httpRequestDuration,
	)
}

// MetricsHandler serves the prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

func CountEventProcessed(eventType string) {
	eventsProcessed.WithLabelValues(eventType).Inc()
}

func CountEventFailed(eventType, reason string) {
	eventsFailed.WithLabelValues(eventType, reason).Inc()
}

func CountEventDeadLettered() {
	eventsDeadLettered.Inc()
}

func CountPositionEventPublished(eventType string) {
	positionEventsPublished.WithLabelValues(eventType).Inc()
}

func ObserveEventHandle(d time.Duration) {
	eventHandleDuration.Observe(d.Seconds())
}

func ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	httpRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(d.Seconds())
}
