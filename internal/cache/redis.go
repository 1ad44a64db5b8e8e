package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"MarketLens/internal/model"

	"github.com/go-redis/redis/v8"
)

const defaultRedisPrefix = "marketlens:"

// RedisStore keeps entries as JSON envelopes. Expiry is tracked in a sorted
// set so EvictExpired can report exactly what it removed.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

type redisEnvelope struct {
	Data            json.RawMessage `json:"data"`
	CreatedAt       int64           `json:"created_at"`
	ExpiresAt       int64           `json:"expires_at"`
	Ticker          string          `json:"ticker,omitempty"`
	GoldenCrossDate string          `json:"golden_cross_date,omitempty"`
	IncreasePercent float64         `json:"increase_percent,omitempty"`
	Sector          string          `json:"sector,omitempty"`
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int, opts ...Option) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	o := buildOptions(opts)
	log.Printf("[INFO] redis cache store connected: %s", addr)
	return &RedisStore{client: client, prefix: defaultRedisPrefix, now: o.now}, nil
}

func (r *RedisStore) seriesKey(ticker string, period model.Period) string {
	return fmt.Sprintf("%sseries:%s:%s", r.prefix, ticker, period)
}

func (r *RedisStore) analysisKey(fingerprint string) string {
	return r.prefix + "analysis:" + fingerprint
}

func (r *RedisStore) expiryKey() string      { return r.prefix + "expiry" }
func (r *RedisStore) seriesIndexKey() string { return r.prefix + "series-index" }

func (r *RedisStore) load(ctx context.Context, key string) (*redisEnvelope, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var env redisEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.ExpiresAt <= r.now().UnixMilli() {
		return nil, nil
	}
	return &env, nil
}

func (r *RedisStore) store(ctx context.Context, key string, env redisEnvelope, indexSeries bool) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, raw, 0)
	pipe.ZAdd(ctx, r.expiryKey(), &redis.Z{Score: float64(env.ExpiresAt), Member: key})
	if indexSeries {
		pipe.SAdd(ctx, r.seriesIndexKey(), key)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetSeries(ctx context.Context, ticker string, period model.Period) ([]model.IndicatorPoint, bool, error) {
	env, err := r.load(ctx, r.seriesKey(ticker, period))
	if err != nil {
		return nil, false, unavailable("get series", err)
	}
	if env == nil {
		return nil, false, nil
	}
	points, err := decodeSeries(env.Data)
	if err != nil {
		return nil, false, unavailable("get series", err)
	}
	return points, true, nil
}

func (r *RedisStore) PutSeries(ctx context.Context, ticker string, period model.Period, points []model.IndicatorPoint, ttl time.Duration) error {
	data, err := encodeSeries(points)
	if err != nil {
		return unavailable("put series", err)
	}
	now := r.now()
	env := redisEnvelope{
		Data:      data,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(ttl).UnixMilli(),
		Ticker:    ticker,
	}
	return unavailable("put series", r.store(ctx, r.seriesKey(ticker, period), env, true))
}

func (r *RedisStore) GetAnalysis(ctx context.Context, fingerprint string) (*model.ModelResponse, bool, error) {
	env, err := r.load(ctx, r.analysisKey(fingerprint))
	if err != nil {
		return nil, false, unavailable("get analysis", err)
	}
	if env == nil {
		return nil, false, nil
	}
	resp, err := decodeResponse(env.Data)
	if err != nil {
		return nil, false, unavailable("get analysis", err)
	}
	return resp, true, nil
}

func (r *RedisStore) PutAnalysis(ctx context.Context, rec AnalysisRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec.Response)
	if err != nil {
		return unavailable("put analysis", err)
	}
	now := r.now()
	env := redisEnvelope{
		Data:            data,
		CreatedAt:       now.UnixMilli(),
		ExpiresAt:       now.Add(ttl).UnixMilli(),
		Ticker:          rec.Ticker,
		GoldenCrossDate: rec.GoldenCrossDate,
		IncreasePercent: rec.IncreasePercent,
		Sector:          rec.Sector,
	}
	return unavailable("put analysis", r.store(ctx, r.analysisKey(rec.Fingerprint), env, false))
}

// EvictExpired removes every key scored at or below now in the expiry index.
// The read and the deletes run as one WATCH/MULTI transaction on the index, so
// a concurrent put of an expiring key aborts and retries the sweep. All keys
// must live in one slot (single node, or a hash-tagged prefix on a cluster).
func (r *RedisStore) EvictExpired(ctx context.Context) (int, error) {
	cutoff := strconv.FormatInt(r.now().UnixMilli(), 10)
	removed := 0
	sweep := func(tx *redis.Tx) error {
		removed = 0
		keys, err := tx.ZRangeByScore(ctx, r.expiryKey(), &redis.ZRangeBy{Min: "-inf", Max: cutoff}).Result()
		if err != nil || len(keys) == 0 {
			return err
		}
		members := make([]interface{}, len(keys))
		for i, k := range keys {
			members[i] = k
		}
		dels := make([]*redis.IntCmd, len(keys))
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, k := range keys {
				dels[i] = pipe.Del(ctx, k)
			}
			pipe.ZRem(ctx, r.expiryKey(), members...)
			pipe.SRem(ctx, r.seriesIndexKey(), members...)
			return nil
		})
		if err != nil {
			return err
		}
		for _, d := range dels {
			removed += int(d.Val())
		}
		return nil
	}

	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = r.client.Watch(ctx, sweep, r.expiryKey())
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return 0, unavailable("evict", err)
	}
	return removed, nil
}

func (r *RedisStore) SeriesKeys(ctx context.Context) ([]SeriesKey, error) {
	members, err := r.client.SMembers(ctx, r.seriesIndexKey()).Result()
	if err != nil {
		return nil, unavailable("series keys", err)
	}
	base := r.prefix + "series:"
	keys := make([]SeriesKey, 0, len(members))
	for _, m := range members {
		rest := strings.TrimPrefix(m, base)
		i := strings.LastIndex(rest, ":")
		if i <= 0 {
			continue
		}
		keys = append(keys, SeriesKey{Ticker: rest[:i], Period: model.Period(rest[i+1:])})
	}
	return keys, nil
}

func (r *RedisStore) Close() error {
	log.Println("[INFO] closing redis cache store")
	return r.client.Close()
}
