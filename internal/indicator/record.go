package indicator

import (
	"database/sql"
	"time"
)

// Indicator parameters. Column names in candles_d1 carry the same numbers.
const (
	EMAShortPeriod  = 10
	EMAMidPeriod    = 36
	EMALongPeriod   = 100
	EMATrendPeriod  = 200
	BollingerPeriod = 20
	BollingerMult   = 2.0
	RSIPeriod       = 14
	ATRPeriod       = 7
	SupertrendMult  = 3.0
	TDSeqLookback   = 4
)

// Record is one fully derived row per input bar: the original OHLCV fields
// plus every indicator. Float fields use NaN while their warm-up window has
// not elapsed; integer counters use sql.NullInt64 for the same purpose so
// warm-up nulls reach the database as NULL.
type Record struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`

	EMA10  float64 `json:"ema_10"`
	EMA36  float64 `json:"ema_36"`
	EMA100 float64 `json:"ema_100"`
	EMA200 float64 `json:"ema_200"`

	BBBasis20 float64 `json:"bb_basis_20"`
	BBUpper20 float64 `json:"bb_upper_20"`
	BBLower20 float64 `json:"bb_lower_20"`

	RSI14 float64 `json:"rsi_14"`

	Supertrend73  float64       `json:"supertrend_7_3"`
	SupertrendDir sql.NullInt64 `json:"supertrend_direction"`

	TDSeq sql.NullInt64 `json:"td_seq"`

	PctBodyRange float64 `json:"pct_body_range"`
	PctFullRange float64 `json:"pct_full_range"`

	PctFromEMA10     float64 `json:"pct_from_ema_10"`
	PctFromEMA36     float64 `json:"pct_from_ema_36"`
	PctFromEMA100    float64 `json:"pct_from_ema_100"`
	PctFromEMA200    float64 `json:"pct_from_ema_200"`
	PctFromBBBasis20 float64 `json:"pct_from_bb_basis_20"`

	StreakBBBasis20 sql.NullInt64 `json:"streak_bb_basis_20"`
	StreakEMA36     sql.NullInt64 `json:"streak_ema_36"`
	StreakEMA100    sql.NullInt64 `json:"streak_ema_100"`
	StreakEMA200    sql.NullInt64 `json:"streak_ema_200"`
}

func validInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}
