package calculator

import (
	"time"

	"MarketLens/internal/model"
)

// Enrich computes MA50, MA200 and RSI14 over the full series and merges them
// onto each point by index. Callers pass the complete lookback window and trim
// afterwards with TrimFrom.
func Enrich(points []model.PricePoint) []model.IndicatorPoint {
	ma50 := CalculateMA50(points)
	ma200 := CalculateMA200(points)
	rsi := CalculateRSI(points, RSIWindow)

	out := make([]model.IndicatorPoint, len(points))
	for i, p := range points {
		out[i] = model.IndicatorPoint{
			Date:  p.Date,
			Close: p.Close,
			MA50:  ma50[i],
			MA200: ma200[i],
			RSI14: rsi[i],
		}
	}
	return out
}

// TrimFrom drops every point dated before start. Indicator values are kept as computed.
func TrimFrom(points []model.IndicatorPoint, start time.Time) []model.IndicatorPoint {
	cutoff := start.Format(model.DateLayout)
	i := 0
	for i < len(points) && points[i].Date < cutoff {
		i++
	}
	out := make([]model.IndicatorPoint, len(points)-i)
	copy(out, points[i:])
	return out
}

// FindByDate returns the point dated exactly date.
func FindByDate(points []model.IndicatorPoint, date string) (model.IndicatorPoint, bool) {
	for _, p := range points {
		if p.Date == date {
			return p, true
		}
	}
	return model.IndicatorPoint{}, false
}
