package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SuggestionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "buildsafe_suggestion_duration_seconds",
			Help:    "Suggestion request processing duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	SuggestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildsafe_suggestions_total",
			Help: "Total suggestion requests processed",
		},
		[]string{"status"},
	)

	MatchConfidence = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "buildsafe_match_confidence",
			Help:    "Best match confidence per library",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"library"},
	)

	MatchResultsCount = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "buildsafe_match_results_count",
			Help:    "Number of qualifying matches per library",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		},
		[]string{"library"},
	)

	AIFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildsafe_ai_fallback_total",
			Help: "Generative fallback invocations by library and outcome",
		},
		[]string{"library", "outcome"},
	)

	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildsafe_decisions_total",
			Help: "Reviewer decisions recorded",
		},
		[]string{"decision"},
	)

	AcceptRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "buildsafe_suggestion_accept_rate",
			Help: "Fraction of decided suggestions accepted by reviewers",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildsafe_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildsafe_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(SuggestionDuration)
	prometheus.MustRegister(SuggestionsTotal)
	prometheus.MustRegister(MatchConfidence)
	prometheus.MustRegister(MatchResultsCount)
	prometheus.MustRegister(AIFallbackTotal)
	prometheus.MustRegister(DecisionsTotal)
	prometheus.MustRegister(AcceptRate)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
