package strategy

import (
	"github.com/GuruDevCoder/trading-bot-crypto/internal/indicator"
)

// Lookback is a read-only per-evaluation snapshot for one symbol: current
// price, the computed indicator series and the signal emitted on the previous
// evaluation. The last sample of every series belongs to a possibly still
// forming bar; strategies that need closed bars must drop it themselves.
type Lookback struct {
	price      float64
	series     map[string]indicator.Series
	names      []string
	lastSignal SignalType
}

func NewLookback(price float64, series map[string]indicator.Series, lastSignal SignalType) *Lookback {
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	return &Lookback{
		price:      price,
		series:     series,
		names:      names,
		lastSignal: lastSignal,
	}
}

func (l *Lookback) Price() float64 { return l.price }

// LastSignal is the signal previously emitted for this symbol, SignalNone on
// the first evaluation.
func (l *Lookback) LastSignal() SignalType { return l.lastSignal }

// Series returns the full series for an indicator name.
func (l *Lookback) Series(name string) (indicator.Series, bool) {
	s, ok := l.series[name]
	return s, ok
}

// Latest returns the last sample of the named series.
func (l *Lookback) Latest(name string) (interface{}, bool) {
	return l.At(name, 0)
}

// At returns the sample offset bars back from the end (0 = latest).
func (l *Lookback) At(name string, offsetFromEnd int) (interface{}, bool) {
	s, ok := l.series[name]
	if !ok || offsetFromEnd < 0 || offsetFromEnd >= s.Len() {
		return nil, false
	}
	return s.At(s.Len() - 1 - offsetFromEnd), true
}

// LatestSamples maps every indicator name to its newest sample.
func (l *Lookback) LatestSamples() map[string]interface{} {
	w := l.Walker()
	if samples, ok := w.Next(); ok {
		return samples
	}
	return map[string]interface{}{}
}

// Walker starts a backward walk over all series in parallel, newest first.
func (l *Lookback) Walker() *Walker {
	return &Walker{view: l}
}

// Walker is a bounded cursor over the view's series. Each step yields the
// sample of every indicator at the same back-offset and stops as soon as the
// shortest series is exhausted.
type Walker struct {
	view   *Lookback
	offset int
}

// Next yields the name-to-sample map at the current back-offset and advances
// the cursor. ok is false once any series has run out of samples.
func (w *Walker) Next() (map[string]interface{}, bool) {
	if len(w.view.names) == 0 {
		return nil, false
	}

	samples := make(map[string]interface{}, len(w.view.names))
	for _, name := range w.view.names {
		sample, ok := w.view.At(name, w.offset)
		if !ok {
			return nil, false
		}
		samples[name] = sample
	}
	w.offset++
	return samples, true
}

// Reset rewinds the cursor to the newest samples.
func (w *Walker) Reset() {
	w.offset = 0
}
