package indicator

// rsiState computes Wilder-smoothed RSI over per-bar close deltas. The first
// value is produced once period deltas have been seen (bar index == period).
type rsiState struct {
	gain      wilderState
	loss      wilderState
	prevClose float64
	primed    bool
}

func newRSI(period int) rsiState {
	return rsiState{gain: newWilder(period), loss: newWilder(period)}
}

// Update consumes one close and reports the RSI value, ok=false during warm-up.
func (r *rsiState) Update(close float64) (float64, bool) {
	if !r.primed {
		r.prevClose = close
		r.primed = true
		return 0, false
	}
	delta := close - r.prevClose
	r.prevClose = close

	var gain, loss float64
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}
	r.gain.Update(gain)
	r.loss.Update(loss)

	if !r.gain.Ready() {
		return 0, false
	}

	avgGain, avgLoss := r.gain.Value(), r.loss.Value()
	switch {
	case avgLoss == 0 && avgGain > 0:
		return 100, true
	case avgLoss == 0:
		// Dead-flat window: no gains, no losses. Neutral by convention.
		return 50, true
	default:
		rs := avgGain / avgLoss
		return 100 - 100/(1+rs), true
	}
}
