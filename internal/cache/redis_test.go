package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"MarketLens/internal/model"
)

// Redis tests need a live server; set REDIS_ADDR to run them.
func newTestRedis(t *testing.T, clk *fakeClock) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), addr, "", 15, WithClock(clk.Now))
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	s.prefix = fmt.Sprintf("marketlens-test-%d:", time.Now().UnixNano())
	t.Cleanup(func() {
		ctx := context.Background()
		if keys, err := s.client.Keys(ctx, s.prefix+"*").Result(); err == nil && len(keys) > 0 {
			s.client.Del(ctx, keys...)
		}
		s.Close()
	})
	return s
}

func TestRedisStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T, clk *fakeClock) Store {
		return newTestRedis(t, clk)
	})
}

func TestRedisStore_EvictionClearsIndexes(t *testing.T) {
	ctx := context.Background()
	clk := newFakeClock()
	s := newTestRedis(t, clk)

	must(t, s.PutSeries(ctx, "AAPL", model.Period1Y, samplePoints(), SeriesTTL))
	must(t, s.PutAnalysis(ctx, AnalysisRecord{Fingerprint: "abc", Ticker: "AAPL"}, AnalysisTTL))
	clk.Advance(2 * time.Hour)

	n, err := s.EvictExpired(ctx)
	must(t, err)
	if n != 1 {
		t.Fatalf("expected 1 evicted, got %d", n)
	}
	if c := s.client.ZCard(ctx, s.expiryKey()).Val(); c != 1 {
		t.Errorf("expected only the analysis left in the expiry index, got %d", c)
	}
	if c := s.client.SCard(ctx, s.seriesIndexKey()).Val(); c != 0 {
		t.Errorf("expected empty series index, got %d", c)
	}
	if n, _ := s.EvictExpired(ctx); n != 0 {
		t.Errorf("second sweep should remove nothing, got %d", n)
	}
}
