package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"MarketLens/internal/cache"
	"MarketLens/internal/metrics"
	"MarketLens/internal/model"

	"github.com/robfig/cron/v3"
)

const (
	DefaultEvictionCron = "0 0 * * * *"
	DefaultRefreshCron  = "0 30 5 * * *"
	DefaultRefreshDelay = 2 * time.Second
)

// Refresher re-fetches one ticker and overwrites its stored period rows.
type Refresher interface {
	RefreshTicker(ctx context.Context, ticker string, periods []model.Period) error
}

// Options configures the registered jobs.
type Options struct {
	EvictionCron   string
	RefreshCron    string
	RefreshEnabled bool
	RefreshDelay   time.Duration
}

// Scheduler manages cache maintenance cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Store     cache.Store
	Refresher Refresher
	Metrics   *metrics.Metrics // optional
	Ctx       context.Context
	opts      Options
}

// NewScheduler creates a new Scheduler. refresher may be nil when the refresh job is disabled.
func NewScheduler(ctx context.Context, store cache.Store, refresher Refresher, m *metrics.Metrics, opts Options) *Scheduler {
	if opts.EvictionCron == "" {
		opts.EvictionCron = DefaultEvictionCron
	}
	if opts.RefreshCron == "" {
		opts.RefreshCron = DefaultRefreshCron
	}
	if opts.RefreshDelay < 0 {
		opts.RefreshDelay = 0
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Store:     store,
		Refresher: refresher,
		Metrics:   m,
		Ctx:       ctx,
		opts:      opts,
	}
}

// RegisterAll registers the eviction job and, when enabled, the daily refresh.
func (s *Scheduler) RegisterAll() error {
	if _, err := s.Cron.AddFunc(s.opts.EvictionCron, s.evictionTask); err != nil {
		return fmt.Errorf("register eviction task: %w", err)
	}
	if !s.opts.RefreshEnabled {
		return nil
	}
	if s.Refresher == nil {
		return fmt.Errorf("register refresh task: no refresher configured")
	}
	if _, err := s.Cron.AddFunc(s.opts.RefreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunEvictionNow executes the eviction job immediately.
func (s *Scheduler) RunEvictionNow() (int, error) {
	return s.evict()
}

// RunRefreshNow executes the refresh job immediately and reports how many
// tickers were refreshed and how many failed.
func (s *Scheduler) RunRefreshNow() (ok, failed int, err error) {
	return s.refresh()
}

func (s *Scheduler) evictionTask() {
	if _, err := s.evict(); err != nil {
		log.Printf("[ERROR] cache eviction: %v", err)
	}
}

func (s *Scheduler) evict() (int, error) {
	n, err := s.Store.EvictExpired(s.Ctx)
	if err != nil {
		return 0, err
	}
	log.Printf("[INFO] evicted %d expired cache entries", n)
	return n, nil
}

func (s *Scheduler) refreshTask() {
	if _, _, err := s.refresh(); err != nil {
		log.Printf("[ERROR] daily refresh: %v", err)
	}
}

func (s *Scheduler) refresh() (ok, failed int, err error) {
	if s.Refresher == nil {
		return 0, 0, fmt.Errorf("no refresher configured")
	}
	keys, err := s.Store.SeriesKeys(s.Ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list cached series: %w", err)
	}
	tickers, periods := groupByTicker(keys)
	log.Printf("[INFO] running daily refresh for %d tickers", len(tickers))

	for i, ticker := range tickers {
		if i > 0 && s.opts.RefreshDelay > 0 {
			select {
			case <-s.Ctx.Done():
				return ok, failed, s.Ctx.Err()
			case <-time.After(s.opts.RefreshDelay):
			}
		}
		if err := s.Ctx.Err(); err != nil {
			return ok, failed, err
		}
		if err := s.Refresher.RefreshTicker(s.Ctx, ticker, periods[ticker]); err != nil {
			log.Printf("[WARN] refresh %s: %v", ticker, err)
			s.countRefresh("failed")
			failed++
			continue
		}
		s.countRefresh("ok")
		ok++
	}
	log.Printf("[INFO] daily refresh done: %d ok, %d failed", ok, failed)
	return ok, failed, nil
}

func (s *Scheduler) countRefresh(result string) {
	if s.Metrics != nil {
		s.Metrics.RefreshTickers.WithLabelValues(result).Inc()
	}
}

// groupByTicker returns tickers in first-seen order with their stored periods.
func groupByTicker(keys []cache.SeriesKey) ([]string, map[string][]model.Period) {
	var tickers []string
	periods := make(map[string][]model.Period)
	for _, k := range keys {
		if _, seen := periods[k.Ticker]; !seen {
			tickers = append(tickers, k.Ticker)
		}
		periods[k.Ticker] = append(periods[k.Ticker], k.Period)
	}
	return tickers, periods
}
