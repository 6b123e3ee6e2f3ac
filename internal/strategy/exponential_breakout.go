package strategy

import (
	"fmt"
	"math"
	"strings"

	"postmorty/internal/indicator"
)

// ExponentialBreakout scores trend-continuation breakout setups from the
// latest indicator record, and flags exit conditions as SELL signals.
type ExponentialBreakout struct{}

func NewExponentialBreakout() *ExponentialBreakout { return &ExponentialBreakout{} }

func (s *ExponentialBreakout) Name() string { return "exponential-breakout" }

func (s *ExponentialBreakout) MinBars() int { return 50 }

func (s *ExponentialBreakout) Analyze(symbol string, records []indicator.Record) Result {
	if len(records) < s.MinBars() {
		return Result{Symbol: symbol}
	}

	curr := records[len(records)-1]
	var score float64
	var signals []string

	// Coiled Spring: tight bands, price above the long trend, hugging the
	// mean, RSI mid-range.
	if !math.IsNaN(curr.BBUpper20) && !math.IsNaN(curr.EMA200) && !math.IsNaN(curr.RSI14) {
		bandwidth := (curr.BBUpper20 - curr.BBLower20) / curr.BBBasis20
		if bandwidth < 0.15 &&
			curr.Close > curr.EMA200 &&
			curr.PctFromBBBasis20 >= -1.5 && curr.PctFromBBBasis20 <= 1.5 &&
			curr.RSI14 >= 45 && curr.RSI14 <= 60 {
			score += 30
			signals = append(signals, "Coiled Spring")
		}
	}

	// Power Trend: established up-trend pulling back to the mid EMA and
	// holding the line.
	if curr.SupertrendDir.Valid && curr.SupertrendDir.Int64 == indicator.TrendUp &&
		curr.StreakEMA100.Valid && curr.StreakEMA100.Int64 > 20 &&
		curr.PctFromEMA36 >= -3 && curr.PctFromEMA36 <= 1 &&
		curr.Close > curr.EMA36 {
		score += 30
		signals = append(signals, "Power Trend")
	}

	// Ignition: full-bodied candle on expanding volume with momentum behind it.
	avgVol := averageVolume(records, 20)
	if curr.PctBodyRange > 70 &&
		!math.IsNaN(curr.RSI14) && curr.RSI14 > 60 &&
		avgVol > 0 && curr.Volume > avgVol*1.2 {
		score += 40
		signals = append(signals, "Ignition")
	}

	// Exit conditions.
	if curr.Close < curr.EMA10 {
		signals = append(signals, "SELL: Trend Violation (EMA 10)")
	}
	if curr.Close < curr.EMA36 {
		signals = append(signals, "SELL: Trend Violation (EMA 36)")
	}
	if curr.SupertrendDir.Valid && curr.SupertrendDir.Int64 == indicator.TrendDown {
		signals = append(signals, "SELL: Supertrend Flip")
	}
	if curr.PctFromBBBasis20 > 25 {
		signals = append(signals, "SELL: Parabolic Climax (>25% from Mean)")
	}
	if !math.IsNaN(curr.BBUpper20) && curr.Close > curr.BBUpper20 &&
		!math.IsNaN(curr.RSI14) && curr.RSI14 > 80 {
		signals = append(signals, "SELL: Parabolic Climax (RSI 80 + Band Breach)")
	}
	if curr.TDSeq.Valid && (curr.TDSeq.Int64 == 9 || curr.TDSeq.Int64 == indicator.TDSeqExhaustion) {
		signals = append(signals, fmt.Sprintf("SELL: DeMark Exhaustion (%d)", curr.TDSeq.Int64))
	}

	return Result{
		Symbol:  symbol,
		Score:   score,
		Signals: signals,
		Metadata: map[string]any{
			"close":         curr.Close,
			"volume":        curr.Volume,
			"avg_volume":    avgVol,
			"rsi":           curr.RSI14,
			"pct_from_mean": curr.PctFromBBBasis20,
		},
	}
}

// HasSellSignal reports whether any SELL signal fired for the result.
func HasSellSignal(r Result) bool {
	for _, s := range r.Signals {
		if strings.HasPrefix(s, "SELL:") {
			return true
		}
	}
	return false
}

func averageVolume(records []indicator.Record, window int) float64 {
	if len(records) < window || window <= 0 {
		return 0
	}
	var sum float64
	for _, r := range records[len(records)-window:] {
		sum += r.Volume
	}
	return sum / float64(window)
}
