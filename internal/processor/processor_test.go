package processor

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postmorty/internal/candle"
	"postmorty/internal/db"
)

type fakeProvider struct {
	series map[string][]candle.Candle
	err    error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FetchDaily(ctx context.Context, symbol string, days int) ([]candle.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.series[symbol], nil
}

func testSeries(symbol string, n int) []candle.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]candle.Candle, n)
	price := 100.0
	for i := range candles {
		price += 2 * math.Sin(float64(i)*0.5)
		candles[i] = candle.Candle{
			Symbol: symbol,
			Date:   start.AddDate(0, 0, i),
			Open:   price - 0.5,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 10_000,
		}
	}
	return candles
}

func TestIngestSavesBars(t *testing.T) {
	storage := db.NewMemory()
	prov := &fakeProvider{series: map[string][]candle.Candle{
		"AAPL": testSeries("AAPL", 30),
	}}
	proc := New(storage, prov)

	n, err := proc.Ingest(context.Background(), "AAPL", 30)
	require.NoError(t, err)
	assert.Equal(t, 30, n)

	saved, err := storage.GetCandles(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Len(t, saved, 30)

	// Re-ingesting the same range upserts rather than duplicates.
	_, err = proc.Ingest(context.Background(), "AAPL", 30)
	require.NoError(t, err)
	saved, err = storage.GetCandles(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Len(t, saved, 30)
}

func TestIngestPropagatesProviderError(t *testing.T) {
	storage := db.NewMemory()
	proc := New(storage, &fakeProvider{err: errors.New("rate limited")})

	_, err := proc.Ingest(context.Background(), "AAPL", 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestIngestBatchContinuesPastFailures(t *testing.T) {
	storage := db.NewMemory()
	prov := &fakeProvider{series: map[string][]candle.Candle{
		"AAPL": testSeries("AAPL", 10),
		"MSFT": testSeries("MSFT", 10),
		// GOOG missing: provider returns no bars.
	}}
	proc := New(storage, prov)

	results := proc.IngestBatch(context.Background(), []string{"AAPL", "GOOG", "MSFT"}, 10, 0)
	require.Len(t, results, 3)
	assert.NoError(t, results["AAPL"])
	assert.Error(t, results["GOOG"])
	assert.NoError(t, results["MSFT"])
}

func TestProcessWritesOneRecordPerBar(t *testing.T) {
	storage := db.NewMemory()
	require.NoError(t, storage.SaveCandles(context.Background(), testSeries("AAPL", 40)))

	proc := New(storage, nil)
	n, err := proc.Process(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 40, n)

	records, err := storage.GetRecords(context.Background(), "AAPL", 0)
	require.NoError(t, err)
	require.Len(t, records, 40)
	for i := 1; i < len(records); i++ {
		assert.True(t, records[i-1].Date.Before(records[i].Date))
	}

	// Re-running overwrites in place.
	_, err = proc.Process(context.Background(), "AAPL")
	require.NoError(t, err)
	records, err = storage.GetRecords(context.Background(), "AAPL", 0)
	require.NoError(t, err)
	assert.Len(t, records, 40)
}

func TestProcessFailsWithoutBars(t *testing.T) {
	proc := New(db.NewMemory(), nil)
	_, err := proc.Process(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ingested bars")
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	storage := db.NewMemory()
	require.NoError(t, storage.SaveCandles(context.Background(), testSeries("AAPL", 25)))
	require.NoError(t, storage.SaveCandles(context.Background(), testSeries("MSFT", 25)))

	proc := New(storage, nil)
	results := proc.ProcessBatch(context.Background(), []string{"AAPL", "EMPTY", "MSFT"}, 2)
	require.Len(t, results, 3)
	assert.NoError(t, results["AAPL"])
	assert.Error(t, results["EMPTY"])
	assert.NoError(t, results["MSFT"])

	records, err := storage.GetRecords(context.Background(), "AAPL", 0)
	require.NoError(t, err)
	assert.Len(t, records, 25)
}

func TestProcessBatchHonorsCancellation(t *testing.T) {
	storage := db.NewMemory()
	require.NoError(t, storage.SaveCandles(context.Background(), testSeries("AAPL", 10)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	proc := New(storage, nil)
	results := proc.ProcessBatch(ctx, []string{"AAPL", "MSFT"}, 2)
	require.Len(t, results, 2)
	// With the context already canceled no symbol may report success.
	for symbol, err := range results {
		assert.Error(t, err, "symbol %s", symbol)
	}
}
