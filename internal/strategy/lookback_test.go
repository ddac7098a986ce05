package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/indicator"
)

func testView(lastSignal SignalType) *Lookback {
	series := map[string]indicator.Series{
		"macd": indicator.MACDSeries{
			{Histogram: 1},
			{Histogram: 2},
			{Histogram: 3},
		},
		"sma": indicator.ScalarSeries{1, 2, 3, 4, 5},
	}
	return NewLookback(100, series, lastSignal)
}

func TestWalker_BackwardWalk(t *testing.T) {
	view := testView(SignalNone)
	w := view.Walker()

	var walked []map[string]interface{}
	for {
		samples, ok := w.Next()
		if !ok {
			break
		}
		walked = append(walked, samples)
	}

	// Stops at the shortest series: 3 steps, newest first, correctly paired.
	assert.Len(t, walked, 3)
	assert.Equal(t, indicator.MACDSample{Histogram: 3}, walked[0]["macd"])
	assert.Equal(t, 5.0, walked[0]["sma"])
	assert.Equal(t, indicator.MACDSample{Histogram: 2}, walked[1]["macd"])
	assert.Equal(t, 4.0, walked[1]["sma"])
	assert.Equal(t, indicator.MACDSample{Histogram: 1}, walked[2]["macd"])
	assert.Equal(t, 3.0, walked[2]["sma"])
}

func TestWalker_Restartable(t *testing.T) {
	view := testView(SignalNone)
	w := view.Walker()

	first, ok := w.Next()
	assert.True(t, ok)
	w.Reset()
	again, ok := w.Next()
	assert.True(t, ok)
	assert.Equal(t, first, again)
}

func TestLookback_LatestHelpers(t *testing.T) {
	view := testView(SignalLong)

	latest := view.LatestSamples()
	assert.Equal(t, indicator.MACDSample{Histogram: 3}, latest["macd"])
	assert.Equal(t, 5.0, latest["sma"])

	sma, ok := view.Latest("sma")
	assert.True(t, ok)
	assert.Equal(t, 5.0, sma)

	prev, ok := view.At("sma", 1)
	assert.True(t, ok)
	assert.Equal(t, 4.0, prev)

	_, ok = view.At("sma", 5)
	assert.False(t, ok)

	_, ok = view.Latest("missing")
	assert.False(t, ok)

	assert.Equal(t, SignalLong, view.LastSignal())
	assert.Equal(t, 100.0, view.Price())
}

func TestLookback_EmptyView(t *testing.T) {
	view := NewLookback(0, map[string]indicator.Series{}, SignalNone)
	_, ok := view.Walker().Next()
	assert.False(t, ok)
	assert.Empty(t, view.LatestSamples())
}
