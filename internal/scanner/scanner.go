// Package scanner
package scanner

import (
	"context"
	"fmt"
	"sort"

	"postmorty/internal/db"
	"postmorty/internal/strategy"
	"postmorty/internal/utils"
)

// Lookback is how many of the latest records each symbol is analyzed over.
// It covers the strategy's 50-bar minimum with margin for volume averages.
const Lookback = 60

// Scanner runs a strategy over the market-cap-filtered universe and returns
// the symbols with active setups, best score first.
type Scanner struct {
	storage  db.Storage
	strategy strategy.Strategy
}

func New(storage db.Storage, strat strategy.Strategy) *Scanner {
	return &Scanner{storage: storage, strategy: strat}
}

// Scan analyzes every symbol in the [minMarketCap, maxMarketCap] band and
// keeps results that scored or raised a SELL signal.
func (s *Scanner) Scan(ctx context.Context, minMarketCap, maxMarketCap int64) ([]strategy.Result, error) {
	symbols, err := s.storage.GetUniverse(ctx, minMarketCap, maxMarketCap)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	utils.GetLogger().Printf("Scanner | Universe has %d symbols in cap band [%d, %d]", len(symbols), minMarketCap, maxMarketCap)

	var results []strategy.Result
	for i, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scan interrupted after %d symbols: %w", i, err)
		}

		records, err := s.storage.GetRecords(ctx, symbol, Lookback)
		if err != nil {
			utils.GetLogger().Printf("Scanner | Skipping %s: %v", symbol, err)
			continue
		}
		if len(records) == 0 {
			continue
		}

		result := s.strategy.Analyze(symbol, records)
		if result.Score > 0 || strategy.HasSellSignal(result) {
			results = append(results, result)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}
