package candle

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func validCandle() Candle {
	return Candle{
		Symbol: "AAPL",
		Date:   day("2024-01-02"),
		Open:   100,
		High:   105,
		Low:    99,
		Close:  104,
		Volume: 1_000_000,
	}
}

func TestCandleValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Candle)
		wantErr string
	}{
		{name: "valid candle", mutate: func(c *Candle) {}},
		{name: "zero volume is fine", mutate: func(c *Candle) { c.Volume = 0 }},
		{
			name:    "empty symbol",
			mutate:  func(c *Candle) { c.Symbol = "" },
			wantErr: "symbol",
		},
		{
			name:    "zero date",
			mutate:  func(c *Candle) { c.Date = time.Time{} },
			wantErr: "date",
		},
		{
			name:    "zero price",
			mutate:  func(c *Candle) { c.Open = 0 },
			wantErr: "positive",
		},
		{
			name:    "negative price",
			mutate:  func(c *Candle) { c.Close = -1 },
			wantErr: "positive",
		},
		{
			name:    "NaN price",
			mutate:  func(c *Candle) { c.High = math.NaN() },
			wantErr: "finite",
		},
		{
			name:    "infinite volume",
			mutate:  func(c *Candle) { c.Volume = math.Inf(1) },
			wantErr: "finite",
		},
		{
			name:    "high below low",
			mutate:  func(c *Candle) { c.High, c.Low = 99, 105 },
			wantErr: "high",
		},
		{
			name:    "negative volume",
			mutate:  func(c *Candle) { c.Volume = -5 },
			wantErr: "volume",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCandle()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateSeries(t *testing.T) {
	c1 := validCandle()
	c2 := validCandle()
	c2.Date = day("2024-01-03")
	c3 := validCandle()
	c3.Date = day("2024-01-04")

	t.Run("ascending series passes", func(t *testing.T) {
		assert.NoError(t, ValidateSeries([]Candle{c1, c2, c3}))
	})

	t.Run("empty series passes", func(t *testing.T) {
		assert.NoError(t, ValidateSeries(nil))
	})

	t.Run("duplicate date fails", func(t *testing.T) {
		err := ValidateSeries([]Candle{c1, c2, c2})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ascending")
	})

	t.Run("out of order fails", func(t *testing.T) {
		err := ValidateSeries([]Candle{c2, c1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ascending")
	})

	t.Run("mixed symbols fail", func(t *testing.T) {
		other := c2
		other.Symbol = "MSFT"
		err := ValidateSeries([]Candle{c1, other})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mixed symbols")
	})

	t.Run("invalid member fails with index", func(t *testing.T) {
		bad := c2
		bad.Close = 0
		err := ValidateSeries([]Candle{c1, bad})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "index 1")
	})
}

func TestSortByDate(t *testing.T) {
	c1 := validCandle()
	c2 := validCandle()
	c2.Date = day("2024-01-03")
	c3 := validCandle()
	c3.Date = day("2024-01-04")

	candles := []Candle{c3, c1, c2}
	SortByDate(candles)

	assert.Equal(t, []Candle{c1, c2, c3}, candles)
}

func TestDay(t *testing.T) {
	ts := time.Date(2024, 3, 15, 21, 30, 11, 0, time.FixedZone("EST", -5*3600))
	got := Day(ts)
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), got)

	noon := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), Day(noon))
}
