package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MarketLens/internal/analysis"
	"MarketLens/internal/api"
	"MarketLens/internal/cache"
	"MarketLens/internal/collector"
	"MarketLens/internal/config"
	"MarketLens/internal/llm"
	"MarketLens/internal/metrics"
	"MarketLens/internal/scheduler"
	"MarketLens/internal/trace"

	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] MarketLens starting...")

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] load .env: %v", err)
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	if err := trace.Init(cfg.Tracing.Enabled, version); err != nil {
		log.Printf("[WARN] init tracing failed, continuing without: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics()

	// Init cache store
	store := cache.NewInstrumented(openStore(ctx, cfg), m)

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "yahoo":
		fetcher = collector.NewYahooFetcher(cfg.DataSource.BaseURL, cfg.Proxy)
	case "mock":
		fetcher = &collector.MockFetcher{Price: 150}
	default:
		fetcher = collector.NewTiingoFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())
	col := collector.NewCollector(fetcher, m)

	// Init model client
	client := llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Proxy:       cfg.Proxy,
		Timeout:     cfg.LLM.Timeout,
	})

	svc := analysis.NewService(store, col, client, m, analysis.Options{
		SystemPrompt: cfg.LLM.SystemPrompt,
		SingleFlight: cfg.Cache.SingleFlight,
	})

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, store, svc, m, scheduler.Options{
		EvictionCron:   cfg.Schedule.EvictionCron,
		RefreshCron:    cfg.Schedule.RefreshCron,
		RefreshEnabled: cfg.Schedule.RefreshEnabled,
		RefreshDelay:   cfg.Schedule.RefreshDelay,
	})
	if err := sched.RegisterAll(); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()

	// Start HTTP server
	srv := api.NewServer(cfg.Server.Addr, svc, m.Handler(), cfg.Server.StaticDir)
	srvCtx, stopServer := context.WithCancel(ctx)
	srvDone := make(chan error, 1)
	go func() { srvDone <- srv.Start(srvCtx) }()

	log.Println("[INFO] MarketLens is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Println("[INFO] shutdown signal received, stopping...")
	case err := <-srvDone:
		log.Printf("[ERROR] http server: %v", err)
	}

	stopServer()
	select {
	case <-srvDone:
	case <-time.After(15 * time.Second):
		log.Println("[WARN] http server did not stop in time")
	}
	cancel()
	sched.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := trace.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] trace shutdown: %v", err)
	}
	if err := store.Close(); err != nil {
		log.Printf("[WARN] close cache store: %v", err)
	}
	log.Println("[INFO] MarketLens stopped")
}

// openStore builds the configured backend, falling back to the disabled cache
// when it cannot be opened.
func openStore(ctx context.Context, cfg *config.Config) cache.Store {
	var (
		store cache.Store
		err   error
	)
	switch cfg.Cache.Backend {
	case "memory":
		store = cache.NewMemoryStore()
	case "sqlite":
		store, err = cache.NewSQLiteStore(cfg.Cache.SQLitePath)
	case "postgres":
		store, err = cache.NewPostgresStore(cfg.Cache.PostgresDSN)
	case "redis":
		store, err = cache.NewRedisStore(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	default:
		log.Println("[INFO] cache disabled")
		return cache.NewNoopStore()
	}
	if err != nil {
		log.Printf("[WARN] init %s cache failed, using noop: %v", cfg.Cache.Backend, err)
		return cache.NewNoopStore()
	}
	log.Printf("[INFO] cache backend: %s", cfg.Cache.Backend)
	return store
}
