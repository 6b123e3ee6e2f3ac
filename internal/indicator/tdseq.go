package indicator

// TDSeqExhaustion is the classic 13-bar countdown level watched by consumers.
const TDSeqExhaustion = 13

// tdState counts TD Sequential setups: each close is compared to the close
// four bars earlier. A higher close extends (or starts) a positive run, a
// lower close a negative run, and an equal close breaks the run without
// starting the opposite one. Nothing else resets a run mid-flight.
type tdState struct {
	prior [TDSeqLookback]float64
	idx   int
	n     int
	count int64
}

// Update consumes one close and reports the signed run length, ok=false for
// the first four bars (no close four bars back yet).
func (t *tdState) Update(close float64) (int64, bool) {
	if t.n < len(t.prior) {
		t.prior[t.idx] = close
		t.idx = (t.idx + 1) % len(t.prior)
		t.n++
		return 0, false
	}

	ref := t.prior[t.idx]
	switch {
	case close > ref:
		if t.count > 0 {
			t.count++
		} else {
			t.count = 1
		}
	case close < ref:
		if t.count < 0 {
			t.count--
		} else {
			t.count = -1
		}
	default:
		t.count = 0
	}

	t.prior[t.idx] = close
	t.idx = (t.idx + 1) % len(t.prior)
	return t.count, true
}
