// Package metrics holds the Prometheus collectors for sync runs and the HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "makanmap"

// Metrics groups every collector. A nil *Metrics is valid and records nothing,
// so services can be built without instrumentation in tests.
type Metrics struct {
	registry *prometheus.Registry

	SyncRuns           *prometheus.CounterVec
	SyncDuration       prometheus.Histogram
	SyncInProgress     prometheus.Gauge
	VideosProcessed    *prometheus.CounterVec
	RestaurantsSaved   *prometheus.CounterVec
	ExtractionFailures prometheus.Counter
	FallbackUsed       prometheus.Counter
	RequestDuration    *prometheus.HistogramVec
}

// New creates collectors registered on a fresh registry, together with the
// standard Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		SyncRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_runs_total",
				Help:      "Sync runs finished, by final status.",
			},
			[]string{"status"},
		),
		SyncDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_run_duration_seconds",
				Help:      "Wall time of finished sync runs.",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		SyncInProgress: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sync_in_progress",
				Help:      "1 while a sync run is active.",
			},
		),
		VideosProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "videos_processed_total",
				Help:      "Videos scanned for map links, by source.",
			},
			[]string{"source"},
		),
		RestaurantsSaved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "restaurants_saved_total",
				Help:      "Restaurants written during sync, by outcome.",
			},
			[]string{"outcome"},
		),
		ExtractionFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extraction_failures_total",
				Help:      "Map links that could not be resolved to coordinates.",
			},
		),
		FallbackUsed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_fallback_total",
				Help:      "Channels synced through the fallback video source.",
			},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds, by route, method and status.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SyncRuns,
		m.SyncDuration,
		m.SyncInProgress,
		m.VideosProcessed,
		m.RestaurantsSaved,
		m.ExtractionFailures,
		m.FallbackUsed,
		m.RequestDuration,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RunStarted flips the in-progress gauge on.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.SyncInProgress.Set(1)
}

// RunFinished records the final status and duration of a run.
func (m *Metrics) RunFinished(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SyncInProgress.Set(0)
	m.SyncRuns.WithLabelValues(status).Inc()
	m.SyncDuration.Observe(elapsed.Seconds())
}

// VideoProcessed counts one scanned video.
func (m *Metrics) VideoProcessed(source string) {
	if m == nil {
		return
	}
	m.VideosProcessed.WithLabelValues(source).Inc()
}

// RestaurantSaved counts an upsert outcome.
func (m *Metrics) RestaurantSaved(created bool) {
	if m == nil {
		return
	}
	outcome := "updated"
	if created {
		outcome = "created"
	}
	m.RestaurantsSaved.WithLabelValues(outcome).Inc()
}

// ExtractionFailed counts a map link that produced no coordinates.
func (m *Metrics) ExtractionFailed() {
	if m == nil {
		return
	}
	m.ExtractionFailures.Inc()
}

// FallbackInvoked counts a channel handed to the fallback source.
func (m *Metrics) FallbackInvoked() {
	if m == nil {
		return
	}
	m.FallbackUsed.Inc()
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, method, statusLabel(status)).Observe(elapsed.Seconds())
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
