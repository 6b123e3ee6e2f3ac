package indicator

import "math"

// ewmaState is an exponential moving average seeded from the first value,
// with smoothing factor k = 2/(period+1).
type ewmaState struct {
	k      float64
	value  float64
	seeded bool
}

func newEWMA(period int) ewmaState {
	return ewmaState{k: 2.0 / (float64(period) + 1)}
}

func (e *ewmaState) Update(x float64) float64 {
	if !e.seeded {
		e.value = x
		e.seeded = true
		return e.value
	}
	e.value = x*e.k + e.value*(1-e.k)
	return e.value
}

func (e *ewmaState) Value() float64 { return e.value }

// window is a fixed-size ring buffer over the most recent values, exposing
// mean and population standard deviation once full.
type window struct {
	buf []float64
	n   int
	idx int
	sum float64
}

func newWindow(size int) *window {
	return &window{buf: make([]float64, size)}
}

func (w *window) Push(x float64) {
	if w.n == len(w.buf) {
		w.sum -= w.buf[w.idx]
	} else {
		w.n++
	}
	w.buf[w.idx] = x
	w.sum += x
	w.idx = (w.idx + 1) % len(w.buf)
}

func (w *window) Full() bool { return w.n == len(w.buf) }

func (w *window) Mean() float64 {
	if w.n == 0 {
		return math.NaN()
	}
	return w.sum / float64(w.n)
}

// StdDev is the population standard deviation of the current window contents.
func (w *window) StdDev() float64 {
	if w.n == 0 {
		return math.NaN()
	}
	mean := w.Mean()
	var ss float64
	for i := 0; i < w.n; i++ {
		d := w.buf[i] - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(w.n))
}

// wilderState is Wilder's smoothed average: seeded as the simple mean of the
// first period samples, then value = (prev*(period-1) + x) / period.
type wilderState struct {
	period  int
	value   float64
	seedSum float64
	n       int
}

func newWilder(period int) wilderState {
	return wilderState{period: period}
}

func (w *wilderState) Update(x float64) {
	if w.n < w.period {
		w.seedSum += x
		w.n++
		if w.n == w.period {
			w.value = w.seedSum / float64(w.period)
		}
		return
	}
	w.value = (w.value*float64(w.period-1) + x) / float64(w.period)
}

func (w *wilderState) Ready() bool    { return w.n >= w.period }
func (w *wilderState) Value() float64 { return w.value }
