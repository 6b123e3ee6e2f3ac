package scanner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postmorty/internal/db"
	"postmorty/internal/indicator"
	"postmorty/internal/strategy"
)

// fakeStrategy returns canned results per symbol so scanner behavior can be
// tested independently of real scoring rules.
type fakeStrategy struct {
	results map[string]strategy.Result
}

func (f *fakeStrategy) Name() string { return "fake" }
func (f *fakeStrategy) MinBars() int { return 1 }
func (f *fakeStrategy) Analyze(symbol string, records []indicator.Record) strategy.Result {
	if r, ok := f.results[symbol]; ok {
		return r
	}
	return strategy.Result{Symbol: symbol}
}

func seedRecords(t *testing.T, storage *db.MemoryStorage, symbol string, n int) {
	t.Helper()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	records := make([]indicator.Record, n)
	for i := range records {
		records[i] = indicator.Record{
			Symbol: symbol,
			Date:   start.AddDate(0, 0, i),
			Open:   100, High: 101, Low: 99, Close: 100, Volume: 1000,
		}
	}
	require.NoError(t, storage.SaveRecords(context.Background(), records))
}

func TestScanFiltersAndSorts(t *testing.T) {
	storage := db.NewMemory()
	storage.SetValuation("AAA", 5_000_000_000)
	storage.SetValuation("BBB", 8_000_000_000)
	storage.SetValuation("CCC", 12_000_000_000)
	storage.SetValuation("HUGE", 900_000_000_000) // outside the cap band

	for _, s := range []string{"AAA", "BBB", "CCC", "HUGE"} {
		seedRecords(t, storage, s, 10)
	}

	strat := &fakeStrategy{results: map[string]strategy.Result{
		"AAA":  {Symbol: "AAA", Score: 30, Signals: []string{"Coiled Spring"}},
		"BBB":  {Symbol: "BBB"}, // nothing fired, dropped
		"CCC":  {Symbol: "CCC", Score: 70, Signals: []string{"Coiled Spring", "Ignition"}},
		"HUGE": {Symbol: "HUGE", Score: 100},
	}}

	results, err := New(storage, strat).Scan(context.Background(), 1_000_000_000, 50_000_000_000)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "CCC", results[0].Symbol)
	assert.Equal(t, "AAA", results[1].Symbol)
}

func TestScanKeepsSellOnlyResults(t *testing.T) {
	storage := db.NewMemory()
	storage.SetValuation("DDD", 2_000_000_000)
	seedRecords(t, storage, "DDD", 10)

	strat := &fakeStrategy{results: map[string]strategy.Result{
		"DDD": {Symbol: "DDD", Score: 0, Signals: []string{"SELL: Supertrend Flip"}},
	}}

	results, err := New(storage, strat).Scan(context.Background(), 1_000_000_000, 50_000_000_000)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "DDD", results[0].Symbol)
}

func TestScanSkipsSymbolsWithoutRecords(t *testing.T) {
	storage := db.NewMemory()
	storage.SetValuation("EEE", 2_000_000_000)
	// market cap entry exists but no indicator history was ever computed

	strat := &fakeStrategy{results: map[string]strategy.Result{
		"EEE": {Symbol: "EEE", Score: 100},
	}}

	results, err := New(storage, strat).Scan(context.Background(), 1_000_000_000, 50_000_000_000)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestScanCanceledContext(t *testing.T) {
	storage := db.NewMemory()
	storage.SetValuation("FFF", 2_000_000_000)
	seedRecords(t, storage, "FFF", 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(storage, &fakeStrategy{}).Scan(ctx, 1_000_000_000, 50_000_000_000)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanEndToEndWithRealStrategy(t *testing.T) {
	storage := db.NewMemory()
	storage.SetValuation("GGG", 3_000_000_000)

	// A down-trending tape: close below the short EMA raises a trend
	// violation, so the symbol surfaces even with a zero score.
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	records := make([]indicator.Record, Lookback)
	for i := range records {
		records[i] = indicator.Record{
			Symbol: "GGG",
			Date:   start.AddDate(0, 0, i),
			Open:   100, High: 101, Low: 97, Close: 98, Volume: 1000,
			EMA10: 99, EMA36: 99.5, EMA100: 100, EMA200: 101,
			RSI14: 40,
		}
	}
	require.NoError(t, storage.SaveRecords(context.Background(), records))

	results, err := New(storage, strategy.NewExponentialBreakout()).Scan(context.Background(), 1_000_000_000, 50_000_000_000)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, strategy.HasSellSignal(results[0]))
}
