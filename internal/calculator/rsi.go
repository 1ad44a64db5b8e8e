package calculator

import "MarketLens/internal/model"

// RSIWindow is the default RSI lookback.
const RSIWindow = 14

// CalculateRSI computes Wilder-smoothed RSI for every index in one left-to-right pass.
// Indices before the seed index (window) are nil. At the seed the averages are the
// mean gain and loss over changes 1..window; afterwards each track follows
// avg = (avg*(window-1) + sample) / window.
func CalculateRSI(points []model.PricePoint, window int) []*float64 {
	out := make([]*float64, len(points))
	if window <= 0 || len(points) <= window {
		return out
	}

	closes := extractCloses(points)

	var avgGain, avgLoss float64
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		switch {
		case i < window:
			avgGain += gain
			avgLoss += loss
			continue
		case i == window:
			avgGain = (avgGain + gain) / float64(window)
			avgLoss = (avgLoss + loss) / float64(window)
		default:
			avgGain = (avgGain*float64(window-1) + gain) / float64(window)
			avgLoss = (avgLoss*float64(window-1) + loss) / float64(window)
		}

		rsi := rsiValue(avgGain, avgLoss)
		out[i] = &rsi
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
