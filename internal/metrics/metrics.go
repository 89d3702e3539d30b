// Package metrics exposes Prometheus collectors for the digest pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so several instances can coexist in tests.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	feedFetches   *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	articles      *prometheus.CounterVec
	digests       prometheus.Counter
	summaries     *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		feedFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aidigest",
			Name:      "feed_fetches_total",
			Help:      "Feed fetches by feed and outcome.",
		}, []string{"feed", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aidigest",
			Name:      "feed_fetch_duration_seconds",
			Help:      "Feed fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"feed"}),
		articles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aidigest",
			Name:      "articles_total",
			Help:      "Articles seen per pipeline stage.",
		}, []string{"stage"}),
		digests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "aidigest",
			Name:      "digests_generated_total",
			Help:      "Digests assembled.",
		}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aidigest",
			Name:      "summaries_total",
			Help:      "Article summaries by mode and outcome.",
		}, []string{"mode", "outcome"}),
	}
	reg.MustRegister(
		m.feedFetches,
		m.fetchDuration,
		m.articles,
		m.digests,
		m.summaries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveFetch records one feed fetch. outcome is "ok" or an error class.
func (m *Metrics) ObserveFetch(feed, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.feedFetches.WithLabelValues(feed, outcome).Inc()
	m.fetchDuration.WithLabelValues(feed).Observe(d.Seconds())
}

// AddArticles counts n articles at a stage ("fetched", "in_window", "relevant").
func (m *Metrics) AddArticles(stage string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.articles.WithLabelValues(stage).Add(float64(n))
}

// DigestGenerated counts one assembled digest.
func (m *Metrics) DigestGenerated() {
	if m == nil {
		return
	}
	m.digests.Inc()
}

// ObserveSummary records one summarize call.
func (m *Metrics) ObserveSummary(mode, outcome string) {
	if m == nil {
		return
	}
	m.summaries.WithLabelValues(mode, outcome).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
