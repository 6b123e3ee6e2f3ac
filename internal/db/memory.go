package db

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"postmorty/internal/candle"
	"postmorty/internal/indicator"
)

// MemoryStorage is an in-memory Storage used by tests and dry runs. It
// mirrors the Postgres upsert semantics: keys are (symbol, date).
type MemoryStorage struct {
	mu sync.RWMutex

	candles    map[string]candle.Candle
	records    map[string]indicator.Record
	valuations map[string]int64
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		candles:    make(map[string]candle.Candle),
		records:    make(map[string]indicator.Record),
		valuations: make(map[string]int64),
	}
}

// GetDB returns nil for in-memory storage (no SQL database)
func (m *MemoryStorage) GetDB() *sql.DB { return nil }

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

func barKey(symbol string, date time.Time) string {
	return symbol + "|" + date.UTC().Format("2006-01-02")
}

func (m *MemoryStorage) SaveCandles(ctx context.Context, candles []candle.Candle) error {
	for i := range candles {
		if err := candles[i].Validate(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range candles {
		c := candles[i]
		c.Date = c.Date.UTC()
		m.candles[barKey(c.Symbol, c.Date)] = c
	}
	return nil
}

func (m *MemoryStorage) GetCandles(ctx context.Context, symbol string) ([]candle.Candle, error) {
	return m.GetCandlesRange(ctx, symbol, time.Time{}, time.Time{})
}

func (m *MemoryStorage) GetCandlesRange(ctx context.Context, symbol string, start, end time.Time) ([]candle.Candle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []candle.Candle
	for _, c := range m.candles {
		if c.Symbol != symbol {
			continue
		}
		if !start.IsZero() && c.Date.Before(start) {
			continue
		}
		if !end.IsZero() && !c.Date.Before(end) {
			continue
		}
		out = append(out, c)
	}
	candle.SortByDate(out)
	return out, nil
}

func (m *MemoryStorage) GetSymbols(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, c := range m.candles {
		seen[c.Symbol] = struct{}{}
	}
	symbols := make([]string, 0, len(seen))
	for s := range seen {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (m *MemoryStorage) SaveRecords(ctx context.Context, records []indicator.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range records {
		r := records[i]
		r.Date = r.Date.UTC()
		m.records[barKey(r.Symbol, r.Date)] = r
	}
	return nil
}

func (m *MemoryStorage) GetRecords(ctx context.Context, symbol string, limit int) ([]indicator.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []indicator.Record
	for _, r := range m.records {
		if r.Symbol == symbol {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// SetValuation seeds a market cap entry; companion to GetUniverse for tests.
func (m *MemoryStorage) SetValuation(symbol string, marketCap int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.valuations[symbol] = marketCap
}

func (m *MemoryStorage) GetUniverse(ctx context.Context, minMarketCap, maxMarketCap int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type entry struct {
		symbol string
		cap    int64
	}
	var entries []entry
	for s, c := range m.valuations {
		if c >= minMarketCap && c <= maxMarketCap {
			entries = append(entries, entry{s, c})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].cap > entries[j].cap })
	symbols := make([]string, 0, len(entries))
	for _, e := range entries {
		symbols = append(symbols, e.symbol)
	}
	return symbols, nil
}
