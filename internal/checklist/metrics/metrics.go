package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the generation engine.
type Metrics struct {
	GenerationsStarted   prometheus.Counter
	GenerationsSucceeded prometheus.Counter
	GenerationsFailed    prometheus.Counter
	EnrichmentRetries    prometheus.Counter
	CacheHits            prometheus.Counter
	GenerationDuration   prometheus.Histogram
}

// New creates and registers the engine's metrics.
func New() *Metrics {
	return &Metrics{
		GenerationsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "visadesk_checklist_generations_started_total",
			Help: "Checklist generation attempts started.",
		}),
		GenerationsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "visadesk_checklist_generations_succeeded_total",
			Help: "Checklist generations that reached ready.",
		}),
		GenerationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "visadesk_checklist_generations_failed_total",
			Help: "Checklist generations that ended failed.",
		}),
		EnrichmentRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "visadesk_checklist_enrichment_retries_total",
			Help: "Strict-mode enrichment retries.",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "visadesk_checklist_cache_hits_total",
			Help: "Ready checklists served from the store without regeneration.",
		}),
		GenerationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "visadesk_checklist_generation_duration_seconds",
			Help:    "End-to-end generation duration including enrichment.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
		}),
	}
}

func (m *Metrics) IncGenerationsStarted() {
	if m != nil {
		m.GenerationsStarted.Inc()
	}
}

func (m *Metrics) IncGenerationsSucceeded() {
	if m != nil {
		m.GenerationsSucceeded.Inc()
	}
}

func (m *Metrics) IncGenerationsFailed() {
	if m != nil {
		m.GenerationsFailed.Inc()
	}
}

func (m *Metrics) IncEnrichmentRetries() {
	if m != nil {
		m.EnrichmentRetries.Inc()
	}
}

func (m *Metrics) IncCacheHits() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) ObserveGenerationDuration(seconds float64) {
	if m != nil {
		m.GenerationDuration.Observe(seconds)
	}
}
