// Package indicator implements rolling-window transforms over a price
// stream as incremental accumulators: each value is pushed once and every
// update costs O(1), so a full-series recomputation is never needed.
//
// All windowed indicators are undefined until their window fills; Update
// reports ok=false (and callers treat the bar as not tradeable) until then.
// EMA-based indicators follow the TA-Lib convention of seeding with the
// SMA of the first period values.
package indicator

import "math"

// ring is a fixed-size circular buffer with running sums, shared by the
// windowed indicators.
type ring struct {
	buf   []float64
	sum   float64
	sumSq float64
	next  int
	count int
}

func newRing(size int) *ring {
	return &ring{buf: make([]float64, size)}
}

func (r *ring) push(v float64) {
	if r.count == len(r.buf) {
		old := r.buf[r.next]
		r.sum -= old
		r.sumSq -= old * old
	} else {
		r.count++
	}
	r.buf[r.next] = v
	r.sum += v
	r.sumSq += v * v
	r.next = (r.next + 1) % len(r.buf)
}

func (r *ring) full() bool { return r.count == len(r.buf) }

func (r *ring) mean() float64 { return r.sum / float64(r.count) }

// stdev returns the sample standard deviation of the window contents.
func (r *ring) stdev() float64 {
	if r.count < 2 {
		return math.NaN()
	}
	n := float64(r.count)
	variance := (r.sumSq - r.sum*r.sum/n) / (n - 1)
	if variance < 0 {
		// Guard against tiny negative values from floating point cancellation.
		variance = 0
	}
	return math.Sqrt(variance)
}

// SMA is a simple moving average over the last period values.
type SMA struct {
	window *ring
}

func NewSMA(period int) *SMA {
	return &SMA{window: newRing(period)}
}

func (s *SMA) Update(v float64) (float64, bool) {
	s.window.push(v)
	if !s.window.full() {
		return math.NaN(), false
	}
	return s.window.mean(), true
}

// EMA is an exponential moving average seeded with the SMA of the first
// period values.
type EMA struct {
	period int
	k      float64
	seed   float64
	count  int
	value  float64
}

func NewEMA(period int) *EMA {
	return &EMA{
		period: period,
		k:      2.0 / float64(period+1),
	}
}

func (e *EMA) Update(v float64) (float64, bool) {
	e.count++
	if e.count < e.period {
		e.seed += v
		return math.NaN(), false
	}
	if e.count == e.period {
		e.seed += v
		e.value = e.seed / float64(e.period)
		return e.value, true
	}
	e.value += e.k * (v - e.value)
	return e.value, true
}

// RSI is the relative strength index computed from rolling simple means of
// gains and losses over the last period price changes.
type RSI struct {
	gains  *ring
	losses *ring
	prev   float64
	primed bool
}

func NewRSI(period int) *RSI {
	return &RSI{
		gains:  newRing(period),
		losses: newRing(period),
	}
}

func (r *RSI) Update(v float64) (float64, bool) {
	if !r.primed {
		r.prev = v
		r.primed = true
		return math.NaN(), false
	}
	delta := v - r.prev
	r.prev = v
	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}
	r.gains.push(gain)
	r.losses.push(loss)
	if !r.gains.full() {
		return math.NaN(), false
	}
	avgGain, avgLoss := r.gains.mean(), r.losses.mean()
	if avgLoss == 0 {
		if avgGain == 0 {
			// A perfectly flat window has no defined strength.
			return math.NaN(), false
		}
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// MACDValue bundles the MACD line, its signal line and the histogram for
// one bar.
type MACDValue struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD composes a fast and slow EMA over the price and an EMA of their
// difference. The signal line is seeded with the SMA of the first
// signalPeriod defined MACD values.
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
}

func NewMACD(fastPeriod, slowPeriod, signalPeriod int) *MACD {
	return &MACD{
		fast:   NewEMA(fastPeriod),
		slow:   NewEMA(slowPeriod),
		signal: NewEMA(signalPeriod),
	}
}

func (m *MACD) Update(v float64) (MACDValue, bool) {
	fast, _ := m.fast.Update(v)
	slow, okSlow := m.slow.Update(v)
	if !okSlow {
		return MACDValue{MACD: math.NaN(), Signal: math.NaN(), Histogram: math.NaN()}, false
	}
	line := fast - slow
	sig, okSig := m.signal.Update(line)
	if !okSig {
		return MACDValue{MACD: line, Signal: math.NaN(), Histogram: math.NaN()}, false
	}
	return MACDValue{MACD: line, Signal: sig, Histogram: line - sig}, true
}

// Bands holds one bar's Bollinger band values.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
	Width  float64
}

// Bollinger computes moving average bands at stdDev sample standard
// deviations around the middle band.
type Bollinger struct {
	window *ring
	stdDev float64
}

func NewBollinger(period int, stdDev float64) *Bollinger {
	return &Bollinger{window: newRing(period), stdDev: stdDev}
}

func (b *Bollinger) Update(v float64) (Bands, bool) {
	b.window.push(v)
	if !b.window.full() {
		nan := math.NaN()
		return Bands{Upper: nan, Middle: nan, Lower: nan, Width: nan}, false
	}
	mid := b.window.mean()
	dev := b.stdDev * b.window.stdev()
	bands := Bands{
		Upper:  mid + dev,
		Middle: mid,
		Lower:  mid - dev,
	}
	bands.Width = (bands.Upper - bands.Lower) / mid
	return bands, true
}

// ZScore reports how many sample standard deviations the current value
// sits from the rolling mean of the last period values.
type ZScore struct {
	window *ring
}

func NewZScore(period int) *ZScore {
	return &ZScore{window: newRing(period)}
}

func (z *ZScore) Update(v float64) (float64, bool) {
	z.window.push(v)
	if !z.window.full() {
		return math.NaN(), false
	}
	std := z.window.stdev()
	if std == 0 || math.IsNaN(std) {
		return math.NaN(), false
	}
	return (v - z.window.mean()) / std, true
}
