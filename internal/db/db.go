// Package db
package db

import (
	"context"
	"database/sql"
	"time"

	"postmorty/internal/candle"
	"postmorty/internal/indicator"
)

// Storage is the interface for all persistent storage.
type Storage interface {
	GetDB() *sql.DB
	Ping(ctx context.Context) error

	// Raw daily bars (ohlcv_daily). Saves upsert on (symbol, date).
	SaveCandles(ctx context.Context, candles []candle.Candle) error
	GetCandles(ctx context.Context, symbol string) ([]candle.Candle, error)
	GetCandlesRange(ctx context.Context, symbol string, start, end time.Time) ([]candle.Candle, error)
	GetSymbols(ctx context.Context) ([]string, error)

	// Derived indicator records (candles_d1). Saves upsert on (symbol, date).
	SaveRecords(ctx context.Context, records []indicator.Record) error
	GetRecords(ctx context.Context, symbol string, limit int) ([]indicator.Record, error)

	// Universe selection (company_valuations).
	GetUniverse(ctx context.Context, minMarketCap, maxMarketCap int64) ([]string, error)
}
