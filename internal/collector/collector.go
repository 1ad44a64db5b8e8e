package collector

import (
	"context"
	"fmt"
	"time"

	"MarketLens/internal/calculator"
	"MarketLens/internal/metrics"
	"MarketLens/internal/model"
	"MarketLens/internal/trace"

	"go.opentelemetry.io/otel/attribute"
)

// MockFetcher returns a deterministic synthetic series for development and testing.
type MockFetcher struct {
	Price float64
	Now   func() time.Time
}

func (m *MockFetcher) Name() string { return "mock" }

// FetchDailySeries emits one point per weekday from start through today.
func (m *MockFetcher) FetchDailySeries(_ context.Context, _ string, start time.Time) ([]model.PricePoint, error) {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	return generateMockSeries(m.Price, start, now()), nil
}

func generateMockSeries(basePrice float64, start, end time.Time) []model.PricePoint {
	var points []model.PricePoint
	i := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i)*0.0004 + 0.02*float64(i%11-5)/5)
		points = append(points, model.PricePoint{Date: d.Format(model.DateLayout), Close: p})
		i++
	}
	return points
}

// Collector fetches the full lookback window and computes indicators over it.
type Collector struct {
	Fetcher Fetcher
	Metrics *metrics.Metrics // optional
	Now     func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, m *metrics.Metrics) *Collector {
	return &Collector{Fetcher: fetcher, Metrics: m, Now: time.Now}
}

// Collect fetches LookbackYears of daily closes for ticker and enriches every point.
// The result is never trimmed; callers filter it per display period.
func (c *Collector) Collect(ctx context.Context, ticker string) ([]model.IndicatorPoint, error) {
	ctx, span := trace.StartSpan(ctx, "collector.Collect",
		attribute.String("ticker", ticker),
		attribute.String("provider", c.Fetcher.Name()),
	)
	defer span.End()

	start := model.LookbackStart(c.Now())
	began := time.Now()
	points, err := c.Fetcher.FetchDailySeries(ctx, ticker, start)
	if c.Metrics != nil {
		c.Metrics.FetchDur.Observe(time.Since(began).Seconds())
		if err != nil {
			c.Metrics.FetchFailures.Inc()
		}
	}
	if err != nil {
		trace.RecordError(span, err)
		return nil, fmt.Errorf("fetch daily series: %w", err)
	}
	span.SetAttributes(attribute.Int("points", len(points)))
	return calculator.Enrich(points), nil
}
