package model

import (
	"fmt"
	"strings"
	"time"
)

// Period is a display window for chart data.
type Period string

const (
	Period1M Period = "1M"
	Period3M Period = "3M"
	Period6M Period = "6M"
	Period1Y Period = "1Y"
	Period2Y Period = "2Y"
	Period5Y Period = "5Y"
)

// DefaultPeriod is used when a request does not name one.
const DefaultPeriod = Period1Y

// LookbackYears is the history always fetched before indicators are computed.
const LookbackYears = 5

var periodOffsets = map[Period]struct{ years, months int }{
	Period1M: {0, 1},
	Period3M: {0, 3},
	Period6M: {0, 6},
	Period1Y: {1, 0},
	Period2Y: {2, 0},
	Period5Y: {5, 0},
}

// ParsePeriod normalizes a period string. An empty string maps to DefaultPeriod.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultPeriod, nil
	}
	p := Period(s)
	if _, ok := periodOffsets[p]; !ok {
		return "", fmt.Errorf("unknown period %q", s)
	}
	return p, nil
}

// Start returns the first calendar day (inclusive) visible for the period.
func (p Period) Start(now time.Time) time.Time {
	off := periodOffsets[p]
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(-off.years, -off.months, 0)
}

// LookbackStart is the start date of the full indicator window.
func LookbackStart(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(-LookbackYears, 0, 0)
}
