package cache

import (
	"context"
	"time"

	"MarketLens/internal/model"
)

// NoopStore is the disabled cache: every lookup misses and every write is dropped.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (n *NoopStore) GetSeries(context.Context, string, model.Period) ([]model.IndicatorPoint, bool, error) {
	return nil, false, nil
}
func (n *NoopStore) PutSeries(context.Context, string, model.Period, []model.IndicatorPoint, time.Duration) error {
	return nil
}
func (n *NoopStore) GetAnalysis(context.Context, string) (*model.ModelResponse, bool, error) {
	return nil, false, nil
}
func (n *NoopStore) PutAnalysis(context.Context, AnalysisRecord, time.Duration) error { return nil }
func (n *NoopStore) EvictExpired(context.Context) (int, error)                       { return 0, nil }
func (n *NoopStore) SeriesKeys(context.Context) ([]SeriesKey, error)                 { return nil, nil }
func (n *NoopStore) Close() error                                                    { return nil }
