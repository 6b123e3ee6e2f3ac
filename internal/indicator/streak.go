package indicator

import "math"

// streakState counts consecutive closes on the same side of a reference
// series: positive above, negative below. A close exactly on the reference
// continues the established side rather than flipping it.
type streakState struct {
	count int64
	has   bool
}

// Update consumes one (close, reference) pair; ok=false while the reference
// is still in its warm-up window (NaN).
func (s *streakState) Update(close, ref float64) (int64, bool) {
	if math.IsNaN(ref) {
		return 0, false
	}

	var side int64
	switch {
	case close > ref:
		side = 1
	case close < ref:
		side = -1
	default:
		if s.count > 0 {
			side = 1
		} else if s.count < 0 {
			side = -1
		}
	}

	switch {
	case !s.has:
		s.count = side
	case side > 0 && s.count > 0:
		s.count++
	case side < 0 && s.count < 0:
		s.count--
	default:
		s.count = side
	}
	s.has = true
	return s.count, true
}
