// Package metrics holds the Prometheus collectors of the enrichment pipeline. All collectors are
// registered with the default registry at init and are safe for concurrent use.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "courseforge"

var (
	// GenerationAttempts counts calls to the generation service.
	// Labels: outcome (success, error, empty)
	GenerationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_attempts_total",
		Help:      "Attempts made against the generation service.",
	}, []string{"outcome"})

	// ModulesEnriched counts finished modules.
	// Labels: status (enriched, degraded)
	ModulesEnriched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "modules_enriched_total",
		Help:      "Modules produced by the enricher.",
	}, []string{"status"})

	// VideoCandidates counts search candidates by curation decision.
	// Labels: decision (kept, filtered, truncated)
	VideoCandidates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "video_candidates_total",
		Help:      "Video search candidates by curation decision.",
	}, []string{"decision"})

	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_duration_seconds",
		Help:      "Wall time of a full course enrichment run.",
		Buckets:   []float64{1, 5, 10, 20, 30, 60, 120, 300},
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
