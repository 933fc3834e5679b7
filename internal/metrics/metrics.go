// Package metrics exposes Prometheus collectors for the assessment engine.
// A nil *Metrics is valid and records nothing, so tests and the CLI can skip it.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "trademark"

// LLMDurationBuckets covers fast cached answers up to slow long generations.
var LLMDurationBuckets = []float64{.5, 1, 2, 5, 10, 30, 60, 120}

// Metrics holds all application collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	GenerationAttempts  *prometheus.CounterVec
	GenerationDuration  *prometheus.HistogramVec
	BatchPairs          *prometheus.CounterVec
	ConceptualFallbacks prometheus.Counter
	CoinedShortCircuits prometheus.Counter
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		GenerationAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_generation_attempts_total",
			Help:      "Structured generation attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GenerationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_generation_duration_seconds",
			Help:      "Duration of a single structured generation attempt.",
			Buckets:   LLMDurationBuckets,
		}, []string{"provider"}),
		BatchPairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_pairs_total",
			Help:      "Goods/services pairs processed by batch, by outcome.",
		}, []string{"outcome"}),
		ConceptualFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conceptual_fallbacks_total",
			Help:      "Conceptual scores replaced by the neutral value after a model failure.",
		}),
		CoinedShortCircuits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coined_short_circuits_total",
			Help:      "Conceptual comparisons skipped because a mark is a coined term.",
		}),
	}

	reg.MustRegister(
		m.GenerationAttempts,
		m.GenerationDuration,
		m.BatchPairs,
		m.ConceptualFallbacks,
		m.CoinedShortCircuits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveGeneration records one generation attempt.
func (m *Metrics) ObserveGeneration(provider, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.GenerationAttempts.WithLabelValues(provider, outcome).Inc()
	m.GenerationDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// ObserveBatch records the outcome counts of one batch.
func (m *Metrics) ObserveBatch(succeeded, failed int) {
	if m == nil {
		return
	}
	m.BatchPairs.WithLabelValues("success").Add(float64(succeeded))
	m.BatchPairs.WithLabelValues("failure").Add(float64(failed))
}

// ConceptualFallback counts a neutral-score substitution.
func (m *Metrics) ConceptualFallback() {
	if m == nil {
		return
	}
	m.ConceptualFallbacks.Inc()
}

// CoinedShortCircuit counts a skipped conceptual model call.
func (m *Metrics) CoinedShortCircuit() {
	if m == nil {
		return
	}
	m.CoinedShortCircuits.Inc()
}
