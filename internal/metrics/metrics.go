// Package metrics holds the Prometheus collectors of the LISA engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PeriodComputations counts period computations by outcome
	// (ok, insufficient_data, degenerate_input, invalid_geometry, invalid_input, internal).
	PeriodComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lisa_period_computations_total",
		Help: "Period LISA computations by geo level and outcome",
	}, []string{"level", "outcome"})

	// PeriodDuration observes wall time of a single period computation
	PeriodDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lisa_period_duration_seconds",
		Help:    "Duration of a period LISA computation including permutations",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"level"})

	// WeightsCacheLookups counts weights cache lookups by result (hit, miss)
	WeightsCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lisa_weights_cache_lookups_total",
		Help: "Spatial weights cache lookups",
	}, []string{"result"})

	// WeightsBuildDuration observes queen contiguity build time
	WeightsBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lisa_weights_build_duration_seconds",
		Help:    "Duration of queen contiguity construction",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	// IslandsRepaired counts units that needed a nearest-neighbour edge
	IslandsRepaired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lisa_islands_repaired_total",
		Help: "Units connected through nearest-neighbour island repair",
	})
)
