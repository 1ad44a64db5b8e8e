package cache

import (
	"context"
	"testing"
	"time"

	"MarketLens/internal/metrics"
	"MarketLens/internal/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func assertCount(t *testing.T, name string, got, want float64) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %v, got %v", name, want, got)
	}
}

func TestInstrumented_CountsHitsMissesEvictions(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	m := metrics.NewMetrics()
	s := NewInstrumented(NewMemoryStore(WithClock(clk.Now)), m)

	if _, ok, _ := s.GetSeries(ctx, "AAPL", model.Period1Y); ok {
		t.Fatal("expected miss on empty store")
	}
	must(t, s.PutSeries(ctx, "AAPL", model.Period1Y, samplePoints(), SeriesTTL))
	if _, ok, _ := s.GetSeries(ctx, "AAPL", model.Period1Y); !ok {
		t.Fatal("expected hit after put")
	}
	s.GetAnalysis(ctx, "abc")

	clk.Advance(2 * time.Hour)
	n, err := s.EvictExpired(ctx)
	must(t, err)

	assertCount(t, "series hits", testutil.ToFloat64(m.CacheHits.WithLabelValues("series")), 1)
	assertCount(t, "series misses", testutil.ToFloat64(m.CacheMisses.WithLabelValues("series")), 1)
	assertCount(t, "analysis misses", testutil.ToFloat64(m.CacheMisses.WithLabelValues("analysis")), 1)
	assertCount(t, "evicted", testutil.ToFloat64(m.CacheEvicted), float64(n))
	if n != 1 {
		t.Errorf("expected 1 evicted row, got %d", n)
	}
}

func TestInstrumented_CountsErrors(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewMetrics()
	broken := newTestSQLite(t, newFakeClock())
	broken.Close()
	s := NewInstrumented(broken, m)

	if _, _, err := s.GetSeries(ctx, "AAPL", model.Period1Y); err == nil {
		t.Fatal("expected error from closed store")
	}
	if err := s.PutAnalysis(ctx, AnalysisRecord{Fingerprint: "abc", Ticker: "AAPL"}, AnalysisTTL); err == nil {
		t.Fatal("expected error from closed store")
	}
	if _, err := s.EvictExpired(ctx); err == nil {
		t.Fatal("expected error from closed store")
	}

	assertCount(t, "get_series errors", testutil.ToFloat64(m.CacheErrors.WithLabelValues("get_series")), 1)
	assertCount(t, "put_analysis errors", testutil.ToFloat64(m.CacheErrors.WithLabelValues("put_analysis")), 1)
	assertCount(t, "evict errors", testutil.ToFloat64(m.CacheErrors.WithLabelValues("evict")), 1)
	assertCount(t, "series misses", testutil.ToFloat64(m.CacheMisses.WithLabelValues("series")), 1)
}

func TestNewInstrumented_NilMetricsReturnsStore(t *testing.T) {
	mem := NewMemoryStore()
	if got := NewInstrumented(mem, nil); got != Store(mem) {
		t.Error("expected the wrapped store back when metrics are nil")
	}
}
