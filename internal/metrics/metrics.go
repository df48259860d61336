// Package metrics exposes Prometheus collectors for the aggregation service.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal           *prometheus.CounterVec
	fetchCandidatesTotal *prometheus.CounterVec
	fetchDurationSeconds *prometheus.HistogramVec
	rateLimitDelays      *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		fetchTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobradar_fetch_total",
				Help: "Total adapter fetches, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		fetchCandidatesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobradar_fetch_candidates_total",
				Help: "Total candidate postings collected, labeled by source.",
			},
			[]string{"source"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobradar_fetch_duration_seconds",
				Help:    "Histogram of adapter fetch latencies, labeled by source.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"source"},
		)

		rateLimitDelays = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobradar_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations, labeled by source.",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"source"},
		)
	})
}

// Fetch outcomes recorded by ObserveFetch.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// ObserveFetch records one adapter fetch.
func ObserveFetch(source, outcome string, candidates int, duration time.Duration) {
	if fetchTotal == nil {
		return
	}
	fetchTotal.WithLabelValues(source, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(source).Observe(duration.Seconds())
	if candidates > 0 {
		fetchCandidatesTotal.WithLabelValues(source).Add(float64(candidates))
	}
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(source string, duration time.Duration) {
	if rateLimitDelays == nil {
		return
	}
	rateLimitDelays.WithLabelValues(source).Observe(duration.Seconds())
}
