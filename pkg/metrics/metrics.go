// Package metrics declares the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medmind"

// Match outcomes recorded in MatchQueriesTotal, and cache results recorded
// in CacheLookupsTotal.
const (
	OutcomeMatched    = "matched"
	OutcomeNoMatch    = "no_match"
	OutcomeEmptyQuery = "empty_query"
	OutcomeError      = "error"
	OutcomeCacheHit   = "cache_hit"
	OutcomeCacheMiss  = "cache_miss"
)

type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	MatchQueriesTotal    *prometheus.CounterVec
	MatchLatency         *prometheus.HistogramVec
	MatchResultsCount    prometheus.Histogram
	SevereAlertsTotal    prometheus.Counter
	CacheLookupsTotal    *prometheus.CounterVec
	AdviceRequestsTotal  *prometheus.CounterVec
	CatalogEntries       prometheus.Gauge
}

// New registers every collector with reg. Tests pass a fresh
// prometheus.NewRegistry; the server passes prometheus.DefaultRegisterer so
// Handler exposes them.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 15, 60},
		}, []string{"method", "path"}),
		HTTPRequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
		MatchQueriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "match", Name: "queries_total",
			Help: "Symptom queries by outcome.",
		}, []string{"outcome"}),
		MatchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "match", Name: "latency_seconds",
			Help:    "Time to rank a query, by cache status.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 7),
		}, []string{"cache_status"}),
		MatchResultsCount: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "match", Name: "results",
			Help:    "Matching diseases per query before truncation.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
		}),
		SevereAlertsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "match", Name: "severe_alerts_total",
			Help: "Queries whose matches included a severe disease.",
		}),
		CacheLookupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "lookups_total",
			Help: "Match cache lookups by result.",
		}, []string{"result"}),
		AdviceRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "advice", Name: "requests_total",
			Help: "Calls to the hosted model by outcome.",
		}, []string{"outcome"}),
		CatalogEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "catalog", Name: "entries",
			Help: "Diseases in the loaded catalog.",
		}),
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
