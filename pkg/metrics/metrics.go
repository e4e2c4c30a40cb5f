// Package metrics exposes per-source ingestion and circuit breaker metrics in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/umputun/feedpipe/pkg/domain"
)

const namespace = "feedpipe"

// fetch statuses
const (
	statusSuccess = "success"
	statusFailed  = "failed"
	statusSkipped = "skipped"
)

// Metrics holds the collectors, registered on its own registry
type Metrics struct {
	registry *prometheus.Registry

	fetches         *prometheus.CounterVec
	articles        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	breakerState    *prometheus.GaugeVec
	breakerFailures *prometheus.CounterVec
}

// New makes metrics with a fresh registry, including go runtime and process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "feed_fetch_operations_total", Help: "Feed fetch operations",
		}, []string{"source", "status"}),
		articles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "articles_processed_total", Help: "Articles processed",
		}, []string{"source", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "feed_processing_seconds", Help: "Ingestion run duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"source"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "circuit_breaker_state", Help: "Circuit breaker state (0=open, 1=half_open, 2=closed)",
		}, []string{"source"}),
		breakerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "circuit_breaker_failures_total", Help: "Failures recorded by circuit breakers",
		}, []string{"source"}),
	}
	m.registry.MustRegister(m.fetches, m.articles, m.duration, m.breakerState, m.breakerFailures,
		prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return m
}

// ObserveRun records the counters of a finished ingestion run
func (m *Metrics) ObserveRun(run domain.IngestionRun) {
	if run.Outcome == domain.OutcomeSkipped {
		m.fetches.WithLabelValues(run.Source, statusSkipped).Inc()
		return
	}

	if run.FailedStage == domain.StageFetching {
		m.fetches.WithLabelValues(run.Source, statusFailed).Inc()
	} else {
		m.fetches.WithLabelValues(run.Source, statusSuccess).Inc()
	}

	m.articles.WithLabelValues(run.Source, "new").Add(float64(run.ArticlesNew))
	m.articles.WithLabelValues(run.Source, "updated").Add(float64(run.ArticlesUpdated))
	m.articles.WithLabelValues(run.Source, "unchanged").Add(float64(run.ArticlesUnchanged))
	m.articles.WithLabelValues(run.Source, "failed").Add(float64(run.ArticlesFailed))
	m.duration.WithLabelValues(run.Source).Observe(run.Duration().Seconds())
}

// BreakerStateChanged sets the breaker state gauge of the source
func (m *Metrics) BreakerStateChanged(source string, state domain.BreakerState) {
	m.breakerState.WithLabelValues(source).Set(stateValue(state))
}

// BreakerFailure counts a failure recorded by the source breaker
func (m *Metrics) BreakerFailure(source string) {
	m.breakerFailures.WithLabelValues(source).Inc()
}

// Handler returns the http handler serving the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func stateValue(state domain.BreakerState) float64 {
	switch state {
	case domain.BreakerOpen:
		return 0
	case domain.BreakerHalfOpen:
		return 1
	default:
		return 2
	}
}
