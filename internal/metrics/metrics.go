// file: internal/metrics/metrics.go
// version: 2.0.0
// guid: 9f8e7d6c-5b4a-3210-9fed-cba876543210

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "book_search"

var (
	registerOnce sync.Once

	searchStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_started_total",
		Help:      "Total number of searches started by mode",
	}, []string{"mode"})
	searchFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_finished_total",
		Help:      "Total number of searches finished by mode and outcome (match, no_match)",
	}, []string{"mode", "outcome"})
	searchCancelled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_cancelled_total",
		Help:      "Total number of searches cancelled by mode",
	}, []string{"mode"})
	searchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_duration_seconds",
		Help:      "Histogram of search durations in seconds by mode",
		Buckets:   prometheus.ExponentialBuckets(0.05, 1.6, 12), // ~50ms up to ~90s
	}, []string{"mode"})

	siteFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "site_fetches_total",
		Help:      "Total number of site fetches by engine and outcome",
	}, []string{"engine", "outcome"})
	siteFetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "site_fetch_duration_seconds",
		Help:      "Histogram of site fetch durations in seconds by engine",
		Buckets:   prometheus.ExponentialBuckets(0.05, 1.6, 12),
	}, []string{"engine"})
	siteCacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "site_cache_hits_total",
		Help:      "Total number of site fetches answered from the response cache",
	}, []string{"engine"})

	sessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Current number of open search sessions",
	})
	catalogBooksGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "catalog_books_total",
		Help:      "Current number of books in the local catalogue",
	})
)

// Register initializes metrics with the global Prometheus registry (idempotent)
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(searchStarted, searchFinished, searchCancelled, searchDuration,
			siteFetches, siteFetchDuration, siteCacheHits, sessionsGauge, catalogBooksGauge)
	})
}

// Search lifecycle helpers
func IncSearchStarted(mode string)   { searchStarted.WithLabelValues(mode).Inc() }
func IncSearchCancelled(mode string) { searchCancelled.WithLabelValues(mode).Inc() }
func IncSearchFinished(mode string, matched bool) {
	outcome := "no_match"
	if matched {
		outcome = "match"
	}
	searchFinished.WithLabelValues(mode, outcome).Inc()
}
func ObserveSearchDuration(mode string, d time.Duration) {
	searchDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// Site helpers
func IncSiteFetch(engine, outcome string) { siteFetches.WithLabelValues(engine, outcome).Inc() }
func IncSiteCacheHit(engine string)       { siteCacheHits.WithLabelValues(engine).Inc() }
func ObserveSiteFetchDuration(engine string, d time.Duration) {
	siteFetchDuration.WithLabelValues(engine).Observe(d.Seconds())
}

// Gauges
func SetSessions(n int)     { sessionsGauge.Set(float64(n)) }
func SetCatalogBooks(n int) { catalogBooksGauge.Set(float64(n)) }
