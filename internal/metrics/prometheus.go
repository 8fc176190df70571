package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	// LLM gateway metrics
	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "LLM attempts by outcome",
		},
		[]string{"model", "outcome"},
	)

	llmTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Tokens metered by the LLM endpoint",
		},
		[]string{"model", "kind"},
	)

	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Duration of successful LLM calls including retries",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 40, 60, 90},
		},
		[]string{"model"},
	)

	// Business metrics
	assessmentsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessments_generated_total",
			Help: "Assessments persisted by the generation flow",
		},
		[]string{"severity"},
	)

	generationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_generation_failures_total",
			Help: "Generation requests that failed, by stage",
		},
		[]string{"stage"},
	)

	contextTruncations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assessment_context_truncations_total",
			Help: "Generation contexts truncated to the token budget",
		},
	)

	responsesSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_responses_total",
			Help: "Response submissions by outcome",
		},
		[]string{"outcome"},
	)

	reportJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_report_jobs_total",
			Help: "Report trigger and processing events",
		},
		[]string{"event"},
	)
)

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTP records one HTTP request.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordLLMAttempt counts one gateway attempt.
func RecordLLMAttempt(model, outcome string) {
	llmRequestsTotal.WithLabelValues(model, outcome).Inc()
}

// RecordLLMSuccess records usage and latency of a completed call.
func RecordLLMSuccess(model string, promptTokens, completionTokens int, d time.Duration) {
	llmTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	llmTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	llmRequestDuration.WithLabelValues(model).Observe(d.Seconds())
}

func RecordAssessmentGenerated(severity string) {
	assessmentsGenerated.WithLabelValues(severity).Inc()
}

func RecordGenerationFailure(stage string) {
	generationFailures.WithLabelValues(stage).Inc()
}

func RecordContextTruncated() {
	contextTruncations.Inc()
}

func RecordResponseSubmission(outcome string) {
	responsesSubmitted.WithLabelValues(outcome).Inc()
}

func RecordReportJob(event string) {
	reportJobs.WithLabelValues(event).Inc()
}
