package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
)

func assertSeriesEqual(t *testing.T, expected, got []float64) {
	t.Helper()
	assert.Equal(t, len(expected), len(got))
	for i := range expected {
		if math.IsNaN(expected[i]) {
			assert.True(t, math.IsNaN(got[i]), "index %d: expected NaN, got %v", i, got[i])
			continue
		}
		assert.InDelta(t, expected[i], got[i], 1e-9, "index %d", i)
	}
}

func TestSMA(t *testing.T) {
	nan := math.NaN()
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	assertSeriesEqual(t, []float64{nan, nan, 2, 3, 4}, got)
}

func TestSMA_ShortHistory(t *testing.T) {
	got := SMA([]float64{1, 2}, 3)
	assert.Len(t, got, 2)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
}

func TestEMA(t *testing.T) {
	// Seed is the SMA of the first n values, then k = 2/(n+1) = 0.5
	nan := math.NaN()
	got := EMA([]float64{1, 2, 3, 4, 5}, 3)
	assertSeriesEqual(t, []float64{nan, nan, 2, 3, 4}, got)
}

func TestRSI_Wilder(t *testing.T) {
	nan := math.NaN()
	got := RSI([]float64{1, 2, 3, 2}, 2)
	// Gains only through index 2 -> 100; then one loss:
	// avgGain = (1*1+0)/2 = 0.5, avgLoss = (0*1+1)/2 = 0.5 -> RSI 50
	assertSeriesEqual(t, []float64{nan, nan, 100, 50}, got)
}

func TestMomentum(t *testing.T) {
	nan := math.NaN()
	got := Momentum([]float64{1, 2, 4, 8}, 2)
	assertSeriesEqual(t, []float64{nan, nan, 3, 6}, got)
}

func TestCCI(t *testing.T) {
	// Flat highs/lows equal to close, typical prices 1,2,3 with n=3:
	// sma = 2, mean deviation = 2/3, cci = (3-2)/(0.015*2/3) = 100
	prices := []float64{1, 2, 3}
	got := CCI(prices, prices, prices, 3)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 100.0, got[2], 1e-9)
}

func TestCCI_ZeroDeviation(t *testing.T) {
	prices := []float64{5, 5, 5, 5}
	got := CCI(prices, prices, prices, 3)
	assert.Equal(t, 0.0, got[2])
	assert.Equal(t, 0.0, got[3])
}

func TestAO_Constant(t *testing.T) {
	highs := make([]float64, 40)
	lows := make([]float64, 40)
	for i := range highs {
		highs[i] = 11
		lows[i] = 9
	}
	got := AO(highs, lows)
	assert.True(t, math.IsNaN(got[32]))
	assert.InDelta(t, 0.0, got[33], 1e-9)
	assert.InDelta(t, 0.0, got[39], 1e-9)
}

func TestMACD_Structure(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100 + float64(i%7) + float64(i)/3
	}

	fast, slow, signal := 12, 26, 9
	got := MACD(values, fast, slow, signal)
	assert.Len(t, got, len(values))

	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)

	for i := 0; i < slow-1; i++ {
		assert.True(t, math.IsNaN(got[i].MACD), "index %d", i)
	}
	for i := slow - 1; i < len(values); i++ {
		assert.InDelta(t, emaFast[i]-emaSlow[i], got[i].MACD, 1e-9, "index %d", i)
	}

	// Signal line warms up signal-1 samples after the MACD line appears;
	// from there histogram = macd - signal.
	firstSignal := slow - 1 + signal - 1
	assert.True(t, math.IsNaN(got[firstSignal-1].Signal))
	for i := firstSignal; i < len(values); i++ {
		assert.False(t, math.IsNaN(got[i].Signal), "index %d", i)
		assert.InDelta(t, got[i].MACD-got[i].Signal, got[i].Histogram, 1e-9, "index %d", i)
	}
}

// Truncating the input to its first k candles must reproduce the first k
// output samples unchanged: no indicator may look ahead.
func TestEngine_CausalIndicators(t *testing.T) {
	engine := NewEngine()
	candles := testCandles(80)

	builder := NewBuilder()
	builder.Add("sma", TypeSMA, 10, nil)
	builder.Add("ema", TypeEMA, 10, nil)
	builder.Add("macd", TypeMACD, 0, nil)
	builder.Add("rsi", TypeRSI, 14, nil)
	builder.Add("cci", TypeCCI, 20, nil)
	builder.Add("momentum", TypeMomentum, 10, nil)
	builder.Add("ao", TypeAO, 0, nil)
	assert.NoError(t, builder.Err())

	full, err := engine.Compute(candles, builder.Requirements())
	assert.NoError(t, err)

	for _, k := range []int{1, 35, 50, 79} {
		partial, err := engine.Compute(candles[:k], builder.Requirements())
		assert.NoError(t, err)

		for name, series := range partial {
			assert.Equal(t, k, series.Len())
			for i := 0; i < k; i++ {
				assertSampleEqual(t, full[name].At(i), series.At(i), name, i)
			}
		}
	}
}

func assertSampleEqual(t *testing.T, expected, got interface{}, name string, i int) {
	t.Helper()
	switch e := expected.(type) {
	case float64:
		g := got.(float64)
		if math.IsNaN(e) {
			assert.True(t, math.IsNaN(g), "%s index %d", name, i)
		} else {
			assert.InDelta(t, e, g, 1e-9, "%s index %d", name, i)
		}
	case MACDSample:
		g := got.(MACDSample)
		assertSampleEqual(t, e.MACD, g.MACD, name+".macd", i)
		assertSampleEqual(t, e.Signal, g.Signal, name+".signal", i)
		assertSampleEqual(t, e.Histogram, g.Histogram, name+".histogram", i)
	default:
		t.Fatalf("unexpected sample type %T", expected)
	}
}

func TestBuilder_FailsFast(t *testing.T) {
	b := NewBuilder()
	b.Add("sma200", TypeSMA, 200, nil)
	b.Add("bogus", Type("fancy_wave"), 10, nil)
	assert.Error(t, b.Err())

	b = NewBuilder()
	b.Add("x", TypeSMA, 10, nil)
	b.Add("x", TypeEMA, 20, nil)
	assert.Error(t, b.Err())
}

func testCandles(n int) []model.Candle {
	candles := make([]model.Candle, n)
	now := time.Now().Truncate(time.Minute)
	for i := range candles {
		price := 100.0 + 10.0*math.Sin(float64(i)/5.0) + float64(i)/4.0
		candles[i] = model.Candle{
			Symbol:    "BTCUSDT",
			Exchange:  "binance",
			Period:    "1m",
			Open:      decimal.NewFromFloat(price - 0.5),
			High:      decimal.NewFromFloat(price + 1),
			Low:       decimal.NewFromFloat(price - 1),
			Close:     decimal.NewFromFloat(price),
			Volume:    decimal.NewFromInt(10),
			Timestamp: now.Add(time.Duration(i) * time.Minute),
		}
	}
	return candles
}
