package model

import "time"

// DateLayout is the calendar-day format used for every series date.
const DateLayout = "2006-01-02"

// PricePoint is a single daily close as returned by the upstream provider.
type PricePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// Day parses the point's date. A malformed date yields the zero time.
func (p PricePoint) Day() time.Time {
	t, err := time.Parse(DateLayout, p.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// IndicatorPoint is a PricePoint enriched with derived indicators.
// A nil indicator means not enough history existed at that index.
type IndicatorPoint struct {
	Date  string   `json:"date"`
	Close float64  `json:"close"`
	MA50  *float64 `json:"ma50"`
	MA200 *float64 `json:"ma200"`
	RSI14 *float64 `json:"rsi14"`
}

// Price returns the underlying price point.
func (p IndicatorPoint) Price() PricePoint {
	return PricePoint{Date: p.Date, Close: p.Close}
}
