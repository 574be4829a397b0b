// Package metrics declares every Prometheus collector bookscout exports.
// Collectors work unregistered, so tests can read them without Register.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bookscout"

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

func histogram(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
}

// HTTP.
var (
	httpRequestDuration = histogram("http_request_duration_seconds", "HTTP request duration in seconds",
		[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		"method", "path", "status")
	httpRequestsTotal    = counter("http_requests_total", "Total number of HTTP requests", "method", "path", "status")
	httpRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "http_requests_in_flight", Help: "HTTP requests currently being served",
	})
)

// Query embedding.
var (
	EmbeddingRequestsTotal = counter("embedding_requests_total",
		"Embedding API calls by outcome", "model", "status")
	EmbeddingRequestDuration = histogram("embedding_request_duration_seconds",
		"Embedding API call latency", []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, "model")
	EmbeddingTokensTotal = counter("embedding_tokens_total",
		"Embedding tokens billed", "model")
	EmbeddingErrorsTotal = counter("embedding_errors_total",
		"Embedding failures by kind", "model", "error_type")
	// EmbeddingCacheTotal result is "hit" or "miss".
	EmbeddingCacheTotal = counter("embedding_cache_total",
		"Query embedding cache lookups", "result")
)

// Generation, retries and budgets.
var (
	// ProviderCallsTotal outcome is ok, retried_ok, exhausted, permanent or canceled.
	ProviderCallsTotal = counter("provider_calls_total",
		"Completed upstream calls by operation and outcome", "operation", "outcome")
	ProviderAttemptsTotal = counter("provider_attempts_total",
		"Upstream attempts including retries", "operation")
	ProviderCallDuration = histogram("provider_call_duration_seconds",
		"Upstream call duration including backoff", []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45}, "operation")
	GenerationTokensTotal = counter("generation_tokens_total",
		"Generative model tokens billed", "provider", "model", "type")
	BudgetTokensRemaining = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace, Name: "budget_tokens_remaining", Help: "Tokens left in a budget window",
	}, []string{"budget", "period"})
)

// Search and price pipelines.
var (
	// SearchFallbacksTotal kind is lexical, popular or empty.
	SearchFallbacksTotal = counter("search_fallbacks_total",
		"Semantic searches answered by a fallback path", "kind")
	// QueryEnhancementTotal result is enhanced, original or error.
	QueryEnhancementTotal = counter("query_enhancement_total",
		"Query rewrite outcomes", "result")
	// ExtractionStrategyTotal strategy is "none" when nothing parsed.
	ExtractionStrategyTotal = counter("price_extraction_total",
		"Price extraction outcomes by winning strategy", "strategy")
	PriceOffersFilteredTotal = counter("price_offers_filtered_total",
		"Offers dropped by the validator", "reason")
	// PriceCacheTotal result is hit, miss, read_error, write, write_error or swept.
	PriceCacheTotal = counter("price_cache_total",
		"Price cache lookups, writes and sweeps", "result")
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call twice.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestDuration, httpRequestsTotal, httpRequestsInFlight,
			EmbeddingRequestsTotal, EmbeddingRequestDuration, EmbeddingTokensTotal,
			EmbeddingErrorsTotal, EmbeddingCacheTotal,
			ProviderCallsTotal, ProviderAttemptsTotal, ProviderCallDuration,
			GenerationTokensTotal, BudgetTokensRemaining,
			SearchFallbacksTotal, QueryEnhancementTotal, ExtractionStrategyTotal,
			PriceOffersFilteredTotal, PriceCacheTotal,
		)
	})
}
