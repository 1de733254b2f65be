package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	llmRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semgen_llm_requests_total",
			Help: "Total number of LLM provider calls.",
		},
		[]string{"provider", "outcome"},
	)

	llmRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "semgen_llm_request_duration_seconds",
			Help:    "LLM provider call latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	llmFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "semgen_llm_fallbacks_total",
			Help: "Number of generations served by the fallback provider.",
		},
	)

	descriptionsGeneratedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "semgen_descriptions_generated_total",
			Help: "Descriptions generated, by provider that produced them.",
		},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(
		llmRequestsTotal,
		llmRequestDurationSeconds,
		llmFallbacksTotal,
		descriptionsGeneratedTotal,
	)
}

func ObserveLLMRequest(provider string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	llmRequestsTotal.WithLabelValues(provider, outcome).Inc()
	llmRequestDurationSeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

func RecordFallback() {
	llmFallbacksTotal.Inc()
}

func RecordDescription(provider string) {
	descriptionsGeneratedTotal.WithLabelValues(provider).Inc()
}
