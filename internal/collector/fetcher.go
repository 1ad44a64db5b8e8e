package collector

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"time"

	"MarketLens/internal/model"
)

// Fetcher retrieves a raw daily close series starting at start (inclusive).
type Fetcher interface {
	FetchDailySeries(ctx context.Context, ticker string, start time.Time) ([]model.PricePoint, error)
	Name() string
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

// normalize sorts points by date and keeps the last close seen for each day.
func normalize(points []model.PricePoint) []model.PricePoint {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	out := points[:0]
	for _, p := range points {
		if n := len(out); n > 0 && out[n-1].Date == p.Date {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}
