package cache

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"MarketLens/internal/model"
)

type memEntry struct {
	data      []byte
	createdAt time.Time
	expiresAt time.Time
}

// MemoryStore keeps entries in process memory. Payloads are stored encoded so
// callers can never mutate a cached value in place.
type MemoryStore struct {
	mu       sync.RWMutex
	series   map[SeriesKey]memEntry
	analyses map[string]memEntry
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		series:   make(map[SeriesKey]memEntry),
		analyses: make(map[string]memEntry),
		now:      o.now,
	}
}

func (m *MemoryStore) GetSeries(_ context.Context, ticker string, period model.Period) ([]model.IndicatorPoint, bool, error) {
	m.mu.RLock()
	e, ok := m.series[SeriesKey{Ticker: ticker, Period: period}]
	m.mu.RUnlock()
	if !ok || !e.expiresAt.After(m.now()) {
		return nil, false, nil
	}
	points, err := decodeSeries(e.data)
	if err != nil {
		return nil, false, unavailable("get series", err)
	}
	return points, true, nil
}

func (m *MemoryStore) PutSeries(_ context.Context, ticker string, period model.Period, points []model.IndicatorPoint, ttl time.Duration) error {
	data, err := encodeSeries(points)
	if err != nil {
		return unavailable("put series", err)
	}
	now := m.now()
	m.mu.Lock()
	m.series[SeriesKey{Ticker: ticker, Period: period}] = memEntry{data: data, createdAt: now, expiresAt: now.Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetAnalysis(_ context.Context, fingerprint string) (*model.ModelResponse, bool, error) {
	m.mu.RLock()
	e, ok := m.analyses[fingerprint]
	m.mu.RUnlock()
	if !ok || !e.expiresAt.After(m.now()) {
		return nil, false, nil
	}
	resp, err := decodeResponse(e.data)
	if err != nil {
		return nil, false, unavailable("get analysis", err)
	}
	return resp, true, nil
}

func (m *MemoryStore) PutAnalysis(_ context.Context, rec AnalysisRecord, ttl time.Duration) error {
	data, err := json.Marshal(rec.Response)
	if err != nil {
		return unavailable("put analysis", err)
	}
	now := m.now()
	m.mu.Lock()
	m.analyses[rec.Fingerprint] = memEntry{data: data, createdAt: now, expiresAt: now.Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) EvictExpired(_ context.Context) (int, error) {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, e := range m.series {
		if !e.expiresAt.After(now) {
			delete(m.series, k)
			removed++
		}
	}
	for k, e := range m.analyses {
		if !e.expiresAt.After(now) {
			delete(m.analyses, k)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryStore) SeriesKeys(_ context.Context) ([]SeriesKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]SeriesKey, 0, len(m.series))
	for k := range m.series {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Ticker != keys[j].Ticker {
			return keys[i].Ticker < keys[j].Ticker
		}
		return keys[i].Period < keys[j].Period
	})
	return keys, nil
}

func (m *MemoryStore) Close() error { return nil }
