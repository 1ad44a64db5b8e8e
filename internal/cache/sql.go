package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"MarketLens/internal/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLStore persists cache rows in SQLite or Postgres. Every put is a single
// upsert statement committed before it returns.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	now    func() time.Time
	mu     sync.Mutex // serializes writers; SQLite allows one at a time
}

// NewSQLiteStore opens (or creates) the SQLite database and its parent
// directory, then runs migrations.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	return newSQLStore("sqlite", dsn, opts)
}

// NewPostgresStore connects to Postgres and runs migrations.
func NewPostgresStore(dsn string, opts ...Option) (*SQLStore, error) {
	return newSQLStore("postgres", dsn, opts)
}

func newSQLStore(driver, dsn string, opts []Option) (*SQLStore, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	o := buildOptions(opts)
	s := &SQLStore{db: db, driver: driver, now: o.now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] %s cache store opened", driver)
	return s, nil
}

func (s *SQLStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS stock_data (
			ticker     TEXT   NOT NULL,
			period     TEXT   NOT NULL,
			data_json  TEXT   NOT NULL,
			created_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			PRIMARY KEY (ticker, period)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_data_expires ON stock_data(expires_at)`,

		`CREATE TABLE IF NOT EXISTS llm_cache (
			request_hash      TEXT PRIMARY KEY,
			ticker            TEXT NOT NULL,
			golden_cross_date TEXT,
			increase_percent  DOUBLE PRECISION,
			sector            TEXT,
			response_json     TEXT   NOT NULL,
			created_at        BIGINT NOT NULL,
			expires_at        BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_llm_cache_expires ON llm_cache(expires_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLStore) GetSeries(ctx context.Context, ticker string, period model.Period) ([]model.IndicatorPoint, bool, error) {
	var data string
	err := s.db.GetContext(ctx, &data, s.db.Rebind(
		`SELECT data_json FROM stock_data WHERE ticker = ? AND period = ? AND expires_at > ?`),
		ticker, string(period), s.now().UnixMilli())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable("get series", err)
	}
	points, err := decodeSeries([]byte(data))
	if err != nil {
		return nil, false, unavailable("get series", err)
	}
	return points, true, nil
}

func (s *SQLStore) PutSeries(ctx context.Context, ticker string, period model.Period, points []model.IndicatorPoint, ttl time.Duration) error {
	data, err := encodeSeries(points)
	if err != nil {
		return unavailable("put series", err)
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO stock_data
		(ticker, period, data_json, created_at, expires_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT (ticker, period) DO UPDATE SET
			data_json = excluded.data_json,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`),
		ticker, string(period), string(data), now.UnixMilli(), now.Add(ttl).UnixMilli(),
	)
	return unavailable("put series", err)
}

func (s *SQLStore) GetAnalysis(ctx context.Context, fingerprint string) (*model.ModelResponse, bool, error) {
	var data string
	err := s.db.GetContext(ctx, &data, s.db.Rebind(
		`SELECT response_json FROM llm_cache WHERE request_hash = ? AND expires_at > ?`),
		fingerprint, s.now().UnixMilli())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable("get analysis", err)
	}
	resp, err := decodeResponse([]byte(data))
	if err != nil {
		return nil, false, unavailable("get analysis", err)
	}
	return resp, true, nil
}

func (s *SQLStore) PutAnalysis(ctx context.Context, rec AnalysisRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec.Response)
	if err != nil {
		return unavailable("put analysis", err)
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO llm_cache
		(request_hash, ticker, golden_cross_date, increase_percent, sector, response_json, created_at, expires_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT (request_hash) DO UPDATE SET
			ticker = excluded.ticker,
			golden_cross_date = excluded.golden_cross_date,
			increase_percent = excluded.increase_percent,
			sector = excluded.sector,
			response_json = excluded.response_json,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`),
		rec.Fingerprint, rec.Ticker, rec.GoldenCrossDate, rec.IncreasePercent, rec.Sector,
		string(data), now.UnixMilli(), now.Add(ttl).UnixMilli(),
	)
	return unavailable("put analysis", err)
}

func (s *SQLStore) EvictExpired(ctx context.Context) (int, error) {
	cutoff := s.now().UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, unavailable("evict", err)
	}
	defer tx.Rollback()

	removed := 0
	for _, table := range []string{"stock_data", "llm_cache"} {
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM `+table+` WHERE expires_at <= ?`), cutoff)
		if err != nil {
			return 0, unavailable("evict", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, unavailable("evict", err)
		}
		removed += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, unavailable("evict", err)
	}
	return removed, nil
}

func (s *SQLStore) SeriesKeys(ctx context.Context) ([]SeriesKey, error) {
	var rows []struct {
		Ticker string `db:"ticker"`
		Period string `db:"period"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT ticker, period FROM stock_data ORDER BY ticker, period`); err != nil {
		return nil, unavailable("series keys", err)
	}
	keys := make([]SeriesKey, len(rows))
	for i, r := range rows {
		keys[i] = SeriesKey{Ticker: r.Ticker, Period: model.Period(r.Period)}
	}
	return keys, nil
}

func (s *SQLStore) Close() error {
	log.Printf("[INFO] closing %s cache store", s.driver)
	return s.db.Close()
}
