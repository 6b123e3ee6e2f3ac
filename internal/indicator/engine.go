// Package indicator derives the full technical indicator set from a daily
// bar series: EMAs, Bollinger bands, RSI, Supertrend, TD Sequential counts,
// candle range metrics, distance percentages and side streaks. One Record is
// produced per input bar, in input order, with NaN/NULL marking values whose
// warm-up window has not yet elapsed.
package indicator

import (
	"fmt"
	"math"

	"postmorty/internal/candle"
)

// Engine runs the indicator pass. It holds no state between passes; every
// call to Compute owns its own accumulators.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// pass carries the per-family running state for one symbol's forward pass.
type pass struct {
	ema10, ema36, ema100, ema200 ewmaState
	bb                           *window
	rsi                          rsiState
	st                           supertrendState
	td                           tdState
	streakBB                     streakState
	streakEMA36                  streakState
	streakEMA100                 streakState
	streakEMA200                 streakState
}

func newPass() *pass {
	return &pass{
		ema10:  newEWMA(EMAShortPeriod),
		ema36:  newEWMA(EMAMidPeriod),
		ema100: newEWMA(EMALongPeriod),
		ema200: newEWMA(EMATrendPeriod),
		bb:     newWindow(BollingerPeriod),
		rsi:    newRSI(RSIPeriod),
		st:     newSupertrend(ATRPeriod, SupertrendMult),
	}
}

// Compute runs one forward pass over a symbol's bar series and returns one
// Record per bar. The series must be valid (positive finite prices, strictly
// ascending dates); otherwise the whole pass is rejected and no records are
// returned. Short series are fine: indicators simply stay null until their
// window has elapsed.
func (e *Engine) Compute(symbol string, candles []candle.Candle) ([]Record, error) {
	if err := candle.ValidateSeries(candles); err != nil {
		return nil, fmt.Errorf("indicator pass for %s rejected: %w", symbol, err)
	}

	p := newPass()
	records := make([]Record, 0, len(candles))

	for _, c := range candles {
		rec := Record{
			Symbol: symbol,
			Date:   c.Date,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,

			BBBasis20:        math.NaN(),
			BBUpper20:        math.NaN(),
			BBLower20:        math.NaN(),
			RSI14:            math.NaN(),
			Supertrend73:     math.NaN(),
			PctFromBBBasis20: math.NaN(),
		}

		rec.EMA10 = p.ema10.Update(c.Close)
		rec.EMA36 = p.ema36.Update(c.Close)
		rec.EMA100 = p.ema100.Update(c.Close)
		rec.EMA200 = p.ema200.Update(c.Close)
		rec.PctFromEMA10 = pctFrom(c.Close, rec.EMA10)
		rec.PctFromEMA36 = pctFrom(c.Close, rec.EMA36)
		rec.PctFromEMA100 = pctFrom(c.Close, rec.EMA100)
		rec.PctFromEMA200 = pctFrom(c.Close, rec.EMA200)

		p.bb.Push(c.Close)
		if p.bb.Full() {
			basis := p.bb.Mean()
			sd := p.bb.StdDev()
			rec.BBBasis20 = basis
			rec.BBUpper20 = basis + BollingerMult*sd
			rec.BBLower20 = basis - BollingerMult*sd
			rec.PctFromBBBasis20 = pctFrom(c.Close, basis)
		}

		if v, ok := p.rsi.Update(c.Close); ok {
			rec.RSI14 = v
		}

		if v, dir, ok := p.st.Update(c.High, c.Low, c.Close); ok {
			rec.Supertrend73 = v
			rec.SupertrendDir = validInt(int64(dir))
		}

		if v, ok := p.td.Update(c.Close); ok {
			rec.TDSeq = validInt(v)
		}

		if v, ok := p.streakBB.Update(c.Close, rec.BBBasis20); ok {
			rec.StreakBBBasis20 = validInt(v)
		}
		if v, ok := p.streakEMA36.Update(c.Close, rec.EMA36); ok {
			rec.StreakEMA36 = validInt(v)
		}
		if v, ok := p.streakEMA100.Update(c.Close, rec.EMA100); ok {
			rec.StreakEMA100 = validInt(v)
		}
		if v, ok := p.streakEMA200.Update(c.Close, rec.EMA200); ok {
			rec.StreakEMA200 = validInt(v)
		}

		rec.PctBodyRange = pctBodyRange(c)
		rec.PctFullRange = pctFullRange(c)

		records = append(records, rec)
	}

	return records, nil
}

func pctFrom(close, ref float64) float64 {
	return (close - ref) / ref * 100
}

// pctBodyRange is the candle body as a percentage of its full range. A
// zero-range bar has no movement to apportion, so it floors at 0.
func pctBodyRange(c candle.Candle) float64 {
	rng := c.High - c.Low
	if rng == 0 {
		return 0
	}
	return math.Abs(c.Close-c.Open) / rng * 100
}

func pctFullRange(c candle.Candle) float64 {
	return (c.High - c.Low) / c.Open * 100
}
