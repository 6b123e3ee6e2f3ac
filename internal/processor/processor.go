// Package processor wires the pipeline together: provider fetch into raw
// storage, and raw storage through the indicator engine into the derived
// table. Symbols are independent, so batch runs fan out one pass per symbol.
package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"postmorty/internal/db"
	"postmorty/internal/indicator"
	"postmorty/internal/provider"
	"postmorty/internal/utils"
)

type Processor struct {
	storage  db.Storage
	provider provider.Provider
	engine   *indicator.Engine
}

func New(storage db.Storage, prov provider.Provider) *Processor {
	return &Processor{
		storage:  storage,
		provider: prov,
		engine:   indicator.NewEngine(),
	}
}

// Ingest fetches daily history for one symbol and upserts it into ohlcv_daily.
func (p *Processor) Ingest(ctx context.Context, symbol string, days int) (int, error) {
	candles, err := p.provider.FetchDaily(ctx, symbol, days)
	if err != nil {
		return 0, fmt.Errorf("ingest %s: %w", symbol, err)
	}
	if len(candles) == 0 {
		return 0, fmt.Errorf("ingest %s: provider returned no bars", symbol)
	}
	if err := p.storage.SaveCandles(ctx, candles); err != nil {
		return 0, fmt.Errorf("ingest %s: %w", symbol, err)
	}
	return len(candles), nil
}

// IngestBatch ingests symbols sequentially with a fixed delay between
// requests to pace the provider. It stops early on context cancellation and
// reports per-symbol errors without aborting the rest.
func (p *Processor) IngestBatch(ctx context.Context, symbols []string, days int, delay time.Duration) map[string]error {
	results := make(map[string]error, len(symbols))
	for i, symbol := range symbols {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				results[symbol] = ctx.Err()
				return results
			case <-time.After(delay):
			}
		}

		n, err := p.Ingest(ctx, symbol, days)
		results[symbol] = err
		if err != nil {
			utils.GetLogger().Printf("Processor | Ingest failed for %s: %v", symbol, err)
			if ctx.Err() != nil {
				return results
			}
			continue
		}
		utils.GetLogger().Printf("Processor | Ingested %d bars for %s", n, symbol)
	}
	return results
}

// Process runs the full indicator pass for one symbol: load raw bars, derive
// one record per bar, upsert into candles_d1. The pass is all-or-nothing;
// a data integrity failure writes nothing.
func (p *Processor) Process(ctx context.Context, symbol string) (int, error) {
	candles, err := p.storage.GetCandles(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("process %s: %w", symbol, err)
	}
	if len(candles) == 0 {
		return 0, fmt.Errorf("process %s: no ingested bars", symbol)
	}

	records, err := p.engine.Compute(symbol, candles)
	if err != nil {
		return 0, fmt.Errorf("process %s: %w", symbol, err)
	}

	if err := p.storage.SaveRecords(ctx, records); err != nil {
		return 0, fmt.Errorf("process %s: %w", symbol, err)
	}
	return len(records), nil
}

// ProcessBatch runs Process for every symbol using at most workers concurrent
// passes. Each pass owns its own engine state; the only shared resource is
// storage. Per-symbol results are collected; cancellation stops scheduling
// of new symbols.
func (p *Processor) ProcessBatch(ctx context.Context, symbols []string, workers int) map[string]error {
	if workers <= 0 {
		workers = 1
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		sem     = make(chan struct{}, workers)
		results = make(map[string]error, len(symbols))
	)

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			mu.Lock()
			results[symbol] = err
			mu.Unlock()
			continue
		}

		select {
		case <-ctx.Done():
			mu.Lock()
			results[symbol] = ctx.Err()
			mu.Unlock()
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			defer func() { <-sem }()

			n, err := p.Process(ctx, sym)
			if err != nil {
				utils.GetLogger().Printf("Processor | Pass failed for %s: %v", sym, err)
			} else {
				utils.GetLogger().Printf("Processor | Wrote %d records for %s", n, sym)
			}

			mu.Lock()
			results[sym] = err
			mu.Unlock()
		}(symbol)
	}

	wg.Wait()
	return results
}
