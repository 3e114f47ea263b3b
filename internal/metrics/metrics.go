// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fridge submission outcomes.
const (
	OutcomeAccepted      = "accepted"
	OutcomeDecodeFailure = "decode_failure"
	OutcomeInvalidData   = "invalid_data"
)

var (
	FridgeSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fridgechef_fridge_submissions_total",
			Help: "Fridge payloads received, by validation outcome",
		},
		[]string{"outcome"},
	)

	RecipesRecommended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fridgechef_recipes_recommended_total",
			Help: "Recipes returned as coverable across all requests",
		},
	)

	IngredientEncounters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fridgechef_ingredient_encounters_total",
			Help: "Ingredient counter increments since process start",
		},
		[]string{"ingredient"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fridgechef_store_cache_lookups_total",
			Help: "Memoized store reads, by key and hit/miss",
		},
		[]string{"key", "result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fridgechef_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
