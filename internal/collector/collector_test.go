package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"MarketLens/internal/model"
)

func TestTiingoFetcher_FetchDailySeries(t *testing.T) {
	var gotPath, gotStart, gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotStart = r.URL.Query().Get("startDate")
		gotToken = r.URL.Query().Get("token")
		fmt.Fprint(w, `[
			{"date":"2024-01-03T00:00:00.000Z","close":184.25,"open":1},
			{"date":"2024-01-02T00:00:00.000Z","close":185.64},
			{"date":"2024-01-03T00:00:00.000Z","close":184.5}
		]`)
	}))
	defer srv.Close()

	f := NewTiingoFetcher(srv.URL, "secret", "")
	start := time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC)
	pts, err := f.FetchDailySeries(context.Background(), "AAPL", start)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotPath != "/tiingo/daily/AAPL/prices" || gotStart != "2019-01-02" || gotToken != "secret" {
		t.Errorf("unexpected request: path=%s start=%s token=%s", gotPath, gotStart, gotToken)
	}
	want := []model.PricePoint{{Date: "2024-01-02", Close: 185.64}, {Date: "2024-01-03", Close: 184.5}}
	if len(pts) != len(want) {
		t.Fatalf("expected %d points, got %+v", len(want), pts)
	}
	for i := range want {
		if pts[i] != want[i] {
			t.Errorf("point %d: expected %+v, got %+v", i, want[i], pts[i])
		}
	}
}

func TestTiingoFetcher_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Invalid token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewTiingoFetcher(srv.URL, "bad", "").FetchDailySeries(context.Background(), "AAPL", time.Now())
	if err == nil {
		t.Fatal("expected error for 401")
	}
}

func TestYahooFetcher_SkipsNullBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") != "1d" {
			t.Errorf("expected daily interval, got %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[1704205800,1704292200,1704378600],
			"indicators":{"quote":[{"close":[185.64,null,181.91]}]}}],"error":null}}`)
	}))
	defer srv.Close()

	pts, err := NewYahooFetcher(srv.URL, "").FetchDailySeries(context.Background(), "AAPL", time.Now().AddDate(-1, 0, 0))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(pts) != 2 {
		t.Fatalf("expected 2 points, got %+v", pts)
	}
	if pts[0].Date != "2024-01-02" || pts[1].Date != "2024-01-04" {
		t.Errorf("unexpected dates: %+v", pts)
	}
}

func TestYahooFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
	}))
	defer srv.Close()

	if _, err := NewYahooFetcher(srv.URL, "").FetchDailySeries(context.Background(), "NOPE", time.Now()); err == nil {
		t.Fatal("expected api error")
	}
}

type errFetcher struct{}

func (errFetcher) Name() string { return "err" }
func (errFetcher) FetchDailySeries(context.Context, string, time.Time) ([]model.PricePoint, error) {
	return nil, errors.New("boom")
}

func TestCollector_FetchesFullLookback(t *testing.T) {
	now := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	var gotStart time.Time
	f := fetchFunc(func(start time.Time) []model.PricePoint {
		gotStart = start
		return generateMockSeries(100, start, now)
	})
	c := NewCollector(f, nil)
	c.Now = func() time.Time { return now }

	pts, err := c.Collect(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if want := time.Date(2020, 6, 2, 0, 0, 0, 0, time.UTC); !gotStart.Equal(want) {
		t.Errorf("expected 5-year start %s, got %s", want, gotStart)
	}
	if len(pts) < 1200 {
		t.Fatalf("expected roughly 1300 weekday points, got %d", len(pts))
	}
	if pts[199].MA200 == nil || pts[198].MA200 != nil {
		t.Error("MA200 must first appear at index 199")
	}
}

func TestCollector_WrapsFetchError(t *testing.T) {
	_, err := NewCollector(errFetcher{}, nil).Collect(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("expected error")
	}
}

type fetchFunc func(start time.Time) []model.PricePoint

func (fetchFunc) Name() string { return "func" }
func (f fetchFunc) FetchDailySeries(_ context.Context, _ string, start time.Time) ([]model.PricePoint, error) {
	return f(start), nil
}
