package analysis

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"MarketLens/internal/cache"
	"MarketLens/internal/calculator"
	"MarketLens/internal/collector"
	"MarketLens/internal/fingerprint"
	"MarketLens/internal/llm"
	"MarketLens/internal/metrics"
	"MarketLens/internal/model"
	"MarketLens/internal/trace"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

// DefaultTicker is used when a chart request names no ticker.
const DefaultTicker = "AAPL"

// Options tunes the Service.
type Options struct {
	SystemPrompt string
	// SingleFlight collapses concurrent misses for the same key into one upstream call.
	SingleFlight bool
}

// Service serves chart data and model analyses through the cache.
type Service struct {
	store     cache.Store
	collector *collector.Collector
	model     llm.Client
	metrics   *metrics.Metrics
	opts      Options
	now       func() time.Time
	group     singleflight.Group
}

// NewService wires the orchestrator. m may be nil.
func NewService(store cache.Store, col *collector.Collector, client llm.Client, m *metrics.Metrics, opts Options) *Service {
	return &Service{
		store:     store,
		collector: col,
		model:     client,
		metrics:   m,
		opts:      opts,
		now:       time.Now,
	}
}

// SetClock replaces time.Now, mainly for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// AnalysisRequest is the input to GetAnalysis.
type AnalysisRequest struct {
	Ticker          string                 `json:"ticker"`
	GoldenCrossDate string                 `json:"goldenCrossDate"`
	IncreasePercent float64                `json:"increasePercent"`
	Sector          string                 `json:"sector"`
	Data            []model.IndicatorPoint `json:"data"`
	BypassCache     bool                   `json:"bypassCache"`
}

// GetChartData returns ticker's indicator series trimmed to period. Indicators are
// always computed over the full lookback window before trimming.
func (s *Service) GetChartData(ctx context.Context, ticker string, period model.Period) ([]model.IndicatorPoint, error) {
	ticker = normalizeTicker(ticker)
	if ticker == "" {
		ticker = DefaultTicker
	}
	period, err := model.ParsePeriod(string(period))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
	}

	ctx, span := trace.StartSpan(ctx, "analysis.GetChartData",
		attribute.String("ticker", ticker),
		attribute.String("period", string(period)),
	)
	defer span.End()

	points, ok, err := s.store.GetSeries(ctx, ticker, period)
	if err != nil {
		log.Printf("[WARN] cache get series %s/%s: %v", ticker, period, err)
	} else if ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return points, nil
	}

	v, err := s.run(ctx, "series:"+ticker+":"+string(period), func(ctx context.Context) (any, error) {
		return s.loadSeries(ctx, ticker, period)
	})
	if err != nil {
		trace.RecordError(span, err)
		return nil, err
	}
	return copyPoints(v.([]model.IndicatorPoint)), nil
}

func (s *Service) loadSeries(ctx context.Context, ticker string, period model.Period) ([]model.IndicatorPoint, error) {
	full, err := s.collector.Collect(ctx, ticker)
	if err != nil {
		log.Printf("[ERROR] fetch %s: %v", ticker, err)
		return nil, &UpstreamFetchError{Ticker: ticker, Err: err}
	}
	trimmed := calculator.TrimFrom(full, period.Start(s.now()))
	if err := s.store.PutSeries(ctx, ticker, period, trimmed, cache.SeriesTTL); err != nil {
		log.Printf("[WARN] cache put series %s/%s: %v", ticker, period, err)
	}
	return trimmed, nil
}

// RefreshTicker re-fetches ticker once and overwrites the given period rows.
func (s *Service) RefreshTicker(ctx context.Context, ticker string, periods []model.Period) error {
	full, err := s.collector.Collect(ctx, ticker)
	if err != nil {
		return &UpstreamFetchError{Ticker: ticker, Err: err}
	}
	now := s.now()
	for _, p := range periods {
		if err := s.store.PutSeries(ctx, ticker, p, calculator.TrimFrom(full, p.Start(now)), cache.SeriesTTL); err != nil {
			return fmt.Errorf("store %s/%s: %w", ticker, p, err)
		}
	}
	return nil
}

// GetAnalysis returns the model's analysis for the request, cached for 24h under
// the request fingerprint. A bypassed lookup still refreshes the cached entry.
func (s *Service) GetAnalysis(ctx context.Context, req AnalysisRequest) (*model.ModelResponse, error) {
	req.Ticker = normalizeTicker(req.Ticker)
	if req.Ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", ErrInvalidRequest)
	}
	key := fingerprint.Key(req.Ticker, req.GoldenCrossDate, req.IncreasePercent, req.Sector, len(req.Data))

	ctx, span := trace.StartSpan(ctx, "analysis.GetAnalysis",
		attribute.String("ticker", req.Ticker),
		attribute.String("fingerprint", key),
		attribute.Bool("bypass_cache", req.BypassCache),
	)
	defer span.End()

	if !req.BypassCache {
		resp, ok, err := s.store.GetAnalysis(ctx, key)
		if err != nil {
			log.Printf("[WARN] cache get analysis %s: %v", key, err)
		} else if ok {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return resp, nil
		}
	}

	v, err := s.run(ctx, "analysis:"+key, func(ctx context.Context) (any, error) {
		return s.analyze(ctx, key, req)
	})
	if err != nil {
		trace.RecordError(span, err)
		return nil, err
	}
	return v.(*model.ModelResponse), nil
}

func (s *Service) analyze(ctx context.Context, key string, req AnalysisRequest) (*model.ModelResponse, error) {
	in := llm.AnalysisInput{
		Ticker:          req.Ticker,
		Sector:          req.Sector,
		GoldenCrossDate: req.GoldenCrossDate,
		IncreasePercent: req.IncreasePercent,
		Series:          req.Data,
	}
	if p, ok := calculator.FindByDate(req.Data, req.GoldenCrossDate); ok {
		in.RSIAtCross = p.RSI14
	}
	if n := len(req.Data); n > 0 {
		in.CurrentRSI = req.Data[n-1].RSI14
	}

	prompt, err := llm.BuildAnalysisPrompt(s.opts.SystemPrompt, in)
	if err != nil {
		return nil, &ModelCallError{Ticker: req.Ticker, Err: err}
	}

	began := time.Now()
	raw, err := s.model.Complete(ctx, prompt)
	var resp *model.ModelResponse
	if err == nil {
		resp, err = llm.Normalize(raw)
	}
	s.observeModel(began, err)
	if err != nil {
		log.Printf("[ERROR] analyze %s: %v", req.Ticker, err)
		return nil, &ModelCallError{Ticker: req.Ticker, Err: err}
	}

	rec := cache.AnalysisRecord{
		Fingerprint:     key,
		Ticker:          req.Ticker,
		GoldenCrossDate: req.GoldenCrossDate,
		IncreasePercent: req.IncreasePercent,
		Sector:          req.Sector,
		Response:        resp,
	}
	if err := s.store.PutAnalysis(ctx, rec, cache.AnalysisTTL); err != nil {
		log.Printf("[WARN] cache put analysis %s: %v", key, err)
	}
	return resp, nil
}

func (s *Service) observeModel(began time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ModelDur.Observe(time.Since(began).Seconds())
	if err != nil {
		s.metrics.ModelFailures.Inc()
	}
}

// run executes fn detached from ctx cancellation so a finished upstream call
// still populates the cache after its caller went away. With SingleFlight set,
// concurrent calls sharing key wait on one execution.
func (s *Service) run(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)

	var ch <-chan singleflight.Result
	if s.opts.SingleFlight {
		ch = s.group.DoChan(key, func() (any, error) { return fn(detached) })
	} else {
		c := make(chan singleflight.Result, 1)
		go func() {
			v, err := fn(detached)
			c <- singleflight.Result{Val: v, Err: err}
		}()
		ch = c
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.Val, r.Err
	}
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// copyPoints deep-copies points so callers sharing one flight never share
// indicator values.
func copyPoints(points []model.IndicatorPoint) []model.IndicatorPoint {
	out := make([]model.IndicatorPoint, len(points))
	for i, p := range points {
		p.MA50 = clonePtr(p.MA50)
		p.MA200 = clonePtr(p.MA200)
		p.RSI14 = clonePtr(p.RSI14)
		out[i] = p
	}
	return out
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
