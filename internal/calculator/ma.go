package calculator

import "MarketLens/internal/model"

// CalculateMA computes the simple moving average of closes at every index.
// The value at index i is nil while fewer than window closes exist (i < window-1),
// otherwise the mean of closes[i-window+1 : i+1]. Each index is computed
// independently, so the same absolute index always yields the same value.
func CalculateMA(points []model.PricePoint, window int) []*float64 {
	out := make([]*float64, len(points))
	if window <= 0 {
		return out
	}
	closes := extractCloses(points)
	for i := window - 1; i < len(closes); i++ {
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += closes[j]
		}
		avg := sum / float64(window)
		out[i] = &avg
	}
	return out
}

// CalculateMA50 returns the 50-day moving average series.
func CalculateMA50(points []model.PricePoint) []*float64 {
	return CalculateMA(points, 50)
}

// CalculateMA200 returns the 200-day moving average series.
func CalculateMA200(points []model.PricePoint) []*float64 {
	return CalculateMA(points, 200)
}

func extractCloses(points []model.PricePoint) []float64 {
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}
	return closes
}
