// Package candle
package candle

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// Candle is one daily OHLCV bar for a symbol. Date is the trading day at UTC midnight.
type Candle struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Day normalizes a timestamp to the UTC trading day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Validate checks if a candle has valid data.
func (c *Candle) Validate() error {
	if c.Symbol == "" {
		return errors.New("candle symbol cannot be empty")
	}
	if c.Date.IsZero() {
		return errors.New("candle date is zero")
	}
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("candle values must be finite")
		}
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return errors.New("candle prices must be positive")
	}
	if c.High < c.Low {
		return errors.New("candle high cannot be less than low")
	}
	if c.Volume < 0 {
		return errors.New("candle volume cannot be negative")
	}
	return nil
}

// ValidateSeries checks that candles form a clean input series for one symbol:
// every candle valid, a single symbol throughout, dates strictly ascending.
func ValidateSeries(candles []Candle) error {
	for i := range candles {
		if err := candles[i].Validate(); err != nil {
			return fmt.Errorf("invalid candle at index %d (%s): %w", i, candles[i].Date.Format("2006-01-02"), err)
		}
		if candles[i].Symbol != candles[0].Symbol {
			return fmt.Errorf("mixed symbols in series: %s and %s", candles[0].Symbol, candles[i].Symbol)
		}
		if i > 0 && !candles[i].Date.After(candles[i-1].Date) {
			return fmt.Errorf("dates not strictly ascending at index %d (%s)", i, candles[i].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// SortByDate sorts candles ascending by date in place.
func SortByDate(candles []Candle) {
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Date.Before(candles[j].Date)
	})
}
