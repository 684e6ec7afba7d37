// Package metrics exposes prometheus collectors for the overlay service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	rendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_renders_total",
			Help: "Number of render passes by demo.",
		},
		[]string{"demo"},
	)

	layersPublished = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "overlay_layers_published",
			Help: "Layers in the most recent publish by demo.",
		},
		[]string{"demo"},
	)

	categoryFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_category_fetch_total",
			Help: "Categorical value fetches by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	categoryFetchSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "overlay_category_fetch_seconds",
			Help:    "Latency of categorical value fetches.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"source"},
	)

	staleDiscards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_stale_responses_total",
			Help: "Selector responses discarded because a newer refresh superseded them.",
		},
		[]string{"param"},
	)

	invalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_invalidations_total",
			Help: "Table change events processed by outcome.",
		},
		[]string{"outcome"},
	)

	droppedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_events_dropped_total",
			Help: "Session events not delivered to a full stream subscriber.",
		},
		[]string{"resource"},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "overlay_sessions_active",
			Help: "Open map sessions.",
		},
	)
)

func ObserveRender(demo string, layers int) {
	rendersTotal.WithLabelValues(demo).Inc()
	layersPublished.WithLabelValues(demo).Set(float64(layers))
}

func ObserveCategoryFetch(source, outcome string, seconds float64) {
	categoryFetches.WithLabelValues(source, outcome).Inc()
	categoryFetchSeconds.WithLabelValues(source).Observe(seconds)
}

func IncStaleDiscard(param string) {
	staleDiscards.WithLabelValues(param).Inc()
}

func ObserveInvalidation(outcome string) {
	invalidations.WithLabelValues(outcome).Inc()
}

func IncDroppedEvent(resource string) {
	droppedEvents.WithLabelValues(resource).Inc()
}

func SessionOpened() { activeSessions.Inc() }

func SessionClosed() { activeSessions.Dec() }

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
