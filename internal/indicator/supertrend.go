package indicator

import "math"

// Supertrend directions.
const (
	TrendUp   = 1
	TrendDown = -1
)

// supertrendState is the Supertrend band state machine. True range needs a
// previous close, so the ATR seed completes at bar index == period; the first
// supertrend value is emitted on that bar.
type supertrendState struct {
	mult       float64
	atr        wilderState
	prevClose  float64
	primed     bool
	finalUpper float64
	finalLower float64
	dir        int
	value      float64
	seeded     bool
}

func newSupertrend(period int, mult float64) supertrendState {
	return supertrendState{mult: mult, atr: newWilder(period)}
}

// Update consumes one bar and reports (value, direction), ok=false during warm-up.
func (s *supertrendState) Update(high, low, close float64) (float64, int, bool) {
	if !s.primed {
		s.prevClose = close
		s.primed = true
		return 0, 0, false
	}

	tr := math.Max(high-low, math.Max(math.Abs(high-s.prevClose), math.Abs(low-s.prevClose)))
	s.atr.Update(tr)
	if !s.atr.Ready() {
		s.prevClose = close
		return 0, 0, false
	}

	mid := (high + low) / 2
	upperBasic := mid + s.mult*s.atr.Value()
	lowerBasic := mid - s.mult*s.atr.Value()

	if !s.seeded {
		s.finalUpper = upperBasic
		s.finalLower = lowerBasic
		if close >= s.finalUpper {
			s.dir = TrendUp
		} else {
			s.dir = TrendDown
		}
		s.seeded = true
	} else {
		prevUpper, prevLower := s.finalUpper, s.finalLower

		// Final bands ratchet: only move toward price unless the prior close
		// already broke through them.
		if upperBasic < prevUpper || s.prevClose > prevUpper {
			s.finalUpper = upperBasic
		}
		if lowerBasic > prevLower || s.prevClose < prevLower {
			s.finalLower = lowerBasic
		}

		switch {
		case s.dir == TrendDown && close > prevUpper:
			s.dir = TrendUp
		case s.dir == TrendUp && close < prevLower:
			s.dir = TrendDown
		}
	}

	if s.dir == TrendUp {
		s.value = s.finalLower
	} else {
		s.value = s.finalUpper
	}
	s.prevClose = close
	return s.value, s.dir, true
}
