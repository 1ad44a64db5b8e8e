package cache

import (
	"context"
	"time"

	"MarketLens/internal/metrics"
	"MarketLens/internal/model"
)

// Instrumented counts hits, misses, errors and evictions of the wrapped Store.
type Instrumented struct {
	Store
	m *metrics.Metrics
}

// NewInstrumented wraps s. A nil m returns s unchanged.
func NewInstrumented(s Store, m *metrics.Metrics) Store {
	if m == nil {
		return s
	}
	return &Instrumented{Store: s, m: m}
}

func (i *Instrumented) GetSeries(ctx context.Context, ticker string, period model.Period) ([]model.IndicatorPoint, bool, error) {
	points, ok, err := i.Store.GetSeries(ctx, ticker, period)
	i.observeGet("series", ok, err)
	return points, ok, err
}

func (i *Instrumented) PutSeries(ctx context.Context, ticker string, period model.Period, points []model.IndicatorPoint, ttl time.Duration) error {
	err := i.Store.PutSeries(ctx, ticker, period, points, ttl)
	if err != nil {
		i.m.CacheErrors.WithLabelValues("put_series").Inc()
	}
	return err
}

func (i *Instrumented) GetAnalysis(ctx context.Context, fingerprint string) (*model.ModelResponse, bool, error) {
	resp, ok, err := i.Store.GetAnalysis(ctx, fingerprint)
	i.observeGet("analysis", ok, err)
	return resp, ok, err
}

func (i *Instrumented) PutAnalysis(ctx context.Context, rec AnalysisRecord, ttl time.Duration) error {
	err := i.Store.PutAnalysis(ctx, rec, ttl)
	if err != nil {
		i.m.CacheErrors.WithLabelValues("put_analysis").Inc()
	}
	return err
}

func (i *Instrumented) EvictExpired(ctx context.Context) (int, error) {
	n, err := i.Store.EvictExpired(ctx)
	if err != nil {
		i.m.CacheErrors.WithLabelValues("evict").Inc()
		return n, err
	}
	i.m.CacheEvicted.Add(float64(n))
	return n, nil
}

func (i *Instrumented) observeGet(kind string, ok bool, err error) {
	switch {
	case err != nil:
		i.m.CacheErrors.WithLabelValues("get_" + kind).Inc()
		i.m.CacheMisses.WithLabelValues(kind).Inc()
	case ok:
		i.m.CacheHits.WithLabelValues(kind).Inc()
	default:
		i.m.CacheMisses.WithLabelValues(kind).Inc()
	}
}
