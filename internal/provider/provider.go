// Package provider
package provider

import (
	"context"
	"net/http"
	"time"

	"postmorty/internal/candle"
)

// Provider fetches daily OHLCV history for a symbol from a market data API.
type Provider interface {
	Name() string
	FetchDaily(ctx context.Context, symbol string, days int) ([]candle.Candle, error)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
