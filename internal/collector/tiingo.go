package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"MarketLens/internal/model"
)

const defaultTiingoBaseURL = "https://api.tiingo.com"

// TiingoFetcher implements Fetcher using the Tiingo end-of-day prices API.
type TiingoFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewTiingoFetcher creates a new fetcher with optional proxy support.
func NewTiingoFetcher(baseURL, apiKey, proxyURL string) *TiingoFetcher {
	if baseURL == "" {
		baseURL = defaultTiingoBaseURL
	}
	return &TiingoFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *TiingoFetcher) Name() string { return "tiingo" }

// tiingoBar is the subset of the Tiingo daily price row we use.
type tiingoBar struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

func (f *TiingoFetcher) FetchDailySeries(ctx context.Context, ticker string, start time.Time) ([]model.PricePoint, error) {
	q := url.Values{}
	q.Set("startDate", start.Format(model.DateLayout))
	q.Set("resampleFreq", "daily")
	q.Set("format", "json")
	q.Set("token", f.APIKey)
	endpoint := fmt.Sprintf("%s/tiingo/daily/%s/prices?%s", f.BaseURL, url.PathEscape(ticker), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tiingo fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tiingo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var bars []tiingoBar
	if err := json.NewDecoder(resp.Body).Decode(&bars); err != nil {
		return nil, fmt.Errorf("tiingo decode: %w", err)
	}

	points := make([]model.PricePoint, 0, len(bars))
	for _, b := range bars {
		day, err := parseTiingoDate(b.Date)
		if err != nil {
			return nil, fmt.Errorf("tiingo date %q: %w", b.Date, err)
		}
		points = append(points, model.PricePoint{Date: day, Close: b.Close})
	}
	return normalize(points), nil
}

// parseTiingoDate accepts RFC 3339 timestamps ("2024-05-01T00:00:00.000Z") or bare dates.
func parseTiingoDate(s string) (string, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(model.DateLayout), nil
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return "", err
	}
	return t.Format(model.DateLayout), nil
}
