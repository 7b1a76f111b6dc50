// Package metrics holds the Prometheus collectors the service exports.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConfessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confession_transitions_total",
		Help: "Confession lifecycle transitions by kind.",
	}, []string{"transition"})

	KarmaDelta = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "confession_karma_delta",
		Help:    "Karma change applied at confession completion.",
		Buckets: prometheus.LinearBuckets(-10, 2, 11),
	})

	AnalyzerResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analyzer_results_total",
		Help: "Score analyzer results by source (llm or fallback).",
	}, []string{"source"})

	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_requests_total",
		Help: "Upstream language model calls by provider and outcome.",
	}, []string{"provider", "outcome"})

	LLMLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_request_duration_seconds",
		Help:    "Upstream language model call latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
)

// Transition names.
const (
	DraftSaved    = "draft_saved"
	DraftDeleted  = "draft_deleted"
	Created       = "created"
	Completed     = "completed"
	Deleted       = "deleted"
	BulkDeleted   = "bulk_deleted"
	Finalized     = "finalized"
	LimitRejected = "limit_rejected"
)

// Handler serves the default registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
