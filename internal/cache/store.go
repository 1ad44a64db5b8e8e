package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"MarketLens/internal/model"
)

// Fixed TTLs for the two record kinds.
const (
	SeriesTTL   = time.Hour
	AnalysisTTL = 24 * time.Hour
)

// SeriesKey identifies a cached price series.
type SeriesKey struct {
	Ticker string
	Period model.Period
}

// AnalysisRecord is a model response together with the descriptor it was cached under.
type AnalysisRecord struct {
	Fingerprint     string
	Ticker          string
	GoldenCrossDate string
	IncreasePercent float64
	Sector          string
	Response        *model.ModelResponse
}

// Store is TTL-aware storage for price series and model responses.
// Get methods never return an entry whose expiry has passed; Put methods
// replace any existing entry for the same key.
type Store interface {
	GetSeries(ctx context.Context, ticker string, period model.Period) ([]model.IndicatorPoint, bool, error)
	PutSeries(ctx context.Context, ticker string, period model.Period, points []model.IndicatorPoint, ttl time.Duration) error
	GetAnalysis(ctx context.Context, fingerprint string) (*model.ModelResponse, bool, error)
	PutAnalysis(ctx context.Context, rec AnalysisRecord, ttl time.Duration) error
	// EvictExpired deletes every row of either kind with expiresAt <= now.
	EvictExpired(ctx context.Context) (int, error)
	// SeriesKeys lists every stored series key, expired or not.
	SeriesKeys(ctx context.Context) ([]SeriesKey, error)
	Close() error
}

// Option configures a Store backend.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// CacheUnavailableError wraps a storage failure. Callers treat it as a miss.
type CacheUnavailableError struct {
	Op  string
	Err error
}

func (e *CacheUnavailableError) Error() string {
	return fmt.Sprintf("cache unavailable (%s): %v", e.Op, e.Err)
}

func (e *CacheUnavailableError) Unwrap() error { return e.Err }

func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &CacheUnavailableError{Op: op, Err: err}
}

func encodeSeries(points []model.IndicatorPoint) ([]byte, error) {
	if points == nil {
		points = []model.IndicatorPoint{}
	}
	return json.Marshal(points)
}

func decodeSeries(data []byte) ([]model.IndicatorPoint, error) {
	var points []model.IndicatorPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func decodeResponse(data []byte) (*model.ModelResponse, error) {
	var resp model.ModelResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
