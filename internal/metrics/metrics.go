package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the cache and its collaborators.
type Metrics struct {
	// Cache
	CacheHits    *prometheus.CounterVec // labels: kind=series|analysis
	CacheMisses  *prometheus.CounterVec // labels: kind
	CacheErrors  *prometheus.CounterVec // labels: op
	CacheEvicted prometheus.Counter

	// Upstream provider
	FetchDur      prometheus.Histogram
	FetchFailures prometheus.Counter

	// Model collaborator
	ModelDur      prometheus.Histogram
	ModelFailures prometheus.Counter

	// Daily refresh outcomes
	RefreshTickers *prometheus.CounterVec // labels: result=ok|failed

	registry *prometheus.Registry
}

// NewMetrics builds all collectors and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketlens_cache_hits_total",
			Help: "Cache lookups served from a live entry",
		}, []string{"kind"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketlens_cache_misses_total",
			Help: "Cache lookups that found no live entry",
		}, []string{"kind"}),
		CacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketlens_cache_errors_total",
			Help: "Storage failures recovered as a cache bypass",
		}, []string{"op"}),
		CacheEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketlens_cache_evicted_total",
			Help: "Expired rows removed by the eviction sweep",
		}),
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketlens_upstream_fetch_duration_seconds",
			Help:    "Upstream daily series fetch latency",
			Buckets: prometheus.DefBuckets,
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketlens_upstream_fetch_failures_total",
			Help: "Upstream daily series fetches that failed",
		}),
		ModelDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "marketlens_model_call_duration_seconds",
			Help:    "Model completion latency",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}),
		ModelFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketlens_model_call_failures_total",
			Help: "Model calls that failed or returned an unusable response",
		}),
		RefreshTickers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketlens_refresh_tickers_total",
			Help: "Per-ticker outcomes of the daily refresh",
		}, []string{"result"}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.CacheHits,
		m.CacheMisses,
		m.CacheErrors,
		m.CacheEvicted,
		m.FetchDur,
		m.FetchFailures,
		m.ModelDur,
		m.ModelFailures,
		m.RefreshTickers,
	)
	return m
}

// Registry exposes the registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registered collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
