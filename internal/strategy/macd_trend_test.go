package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/indicator"
)

// histView builds a view whose last element is a forming bar; the closed
// histogram samples end with before, last.
func histView(price, sma200, before, last float64, lastSignal SignalType) *Lookback {
	series := map[string]indicator.Series{
		"macd": indicator.MACDSeries{
			{Histogram: before},
			{Histogram: last},
			{Histogram: 999}, // forming bar, must be ignored
		},
		"sma200": indicator.ScalarSeries{sma200, sma200, -1},
	}
	return NewLookback(price, series, lastSignal)
}

func TestMACDTrend_LongEntry(t *testing.T) {
	s := NewMACDTrend()
	result := s.Evaluate(histView(105, 100, -1, 1, SignalNone))

	assert.Equal(t, SignalLong, result.Type)
	assert.Equal(t, 100.0, result.Debug["sma200"])
	assert.Equal(t, 1.0, result.Debug["histogram"])
	assert.Equal(t, SignalNone, result.Debug["last_signal"])
}

func TestMACDTrend_ShortEntry(t *testing.T) {
	s := NewMACDTrend()
	result := s.Evaluate(histView(95, 100, 1, -1, SignalNone))
	assert.Equal(t, SignalShort, result.Type)
}

func TestMACDTrend_NoEntryAgainstTrend(t *testing.T) {
	s := NewMACDTrend()
	// Histogram crossed up but price is below the SMA: stay flat.
	result := s.Evaluate(histView(95, 100, -1, 1, SignalNone))
	assert.Equal(t, SignalNone, result.Type)
	assert.NotNil(t, result.Debug)
}

func TestMACDTrend_CloseOnReversal(t *testing.T) {
	s := NewMACDTrend()

	// Long position, histogram crossed down: close regardless of the SMA.
	result := s.Evaluate(histView(105, 100, 2, -0.5, SignalLong))
	assert.Equal(t, SignalClose, result.Type)

	// Short position, histogram crossed up.
	result = s.Evaluate(histView(95, 100, -2, 0.5, SignalShort))
	assert.Equal(t, SignalClose, result.Type)
}

func TestMACDTrend_ThinHistory(t *testing.T) {
	s := NewMACDTrend()

	view := NewLookback(100, map[string]indicator.Series{
		"macd":   indicator.MACDSeries{{Histogram: 1}},
		"sma200": indicator.ScalarSeries{100, 100},
	}, SignalNone)

	result := s.Evaluate(view)
	assert.Equal(t, SignalNone, result.Type)
	assert.Nil(t, result.Debug)
}

func TestMACDTrend_MissingSeries(t *testing.T) {
	s := NewMACDTrend()
	view := NewLookback(100, map[string]indicator.Series{}, SignalNone)
	result := s.Evaluate(view)
	assert.Equal(t, SignalNone, result.Type)
	assert.Nil(t, result.Debug)
}

func TestMACDTrend_TwoSamples_NoCrossInfo(t *testing.T) {
	s := NewMACDTrend()

	// Two full samples leave a single closed bar: debug is attached but no
	// crossover can be read, so no signal fires.
	view := NewLookback(105, map[string]indicator.Series{
		"macd":   indicator.MACDSeries{{Histogram: 1}, {Histogram: 2}},
		"sma200": indicator.ScalarSeries{100, 100},
	}, SignalNone)

	result := s.Evaluate(view)
	assert.Equal(t, SignalNone, result.Type)
	assert.NotNil(t, result.Debug)
}

func TestMACDTrend_DeclareIndicators(t *testing.T) {
	s := NewMACDTrend()
	b := indicator.NewBuilder()
	s.DeclareIndicators(b, map[string]interface{}{})
	assert.NoError(t, b.Err())

	reqs := b.Requirements()
	assert.Len(t, reqs, 2)
	assert.Equal(t, "macd", reqs[0].Name)
	assert.Equal(t, indicator.TypeMACD, reqs[0].Type)
	assert.Equal(t, "sma200", reqs[1].Name)
	assert.Equal(t, 200, reqs[1].Length)
}
