package indicator

import (
	"fmt"
	"math"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
)

// Engine computes full indicator series over an ascending-time candle
// history. One pass serves every strategy reading the result.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Compute evaluates every requirement against the candle history and returns
// a map of series name to index-aligned series.
func (e *Engine) Compute(candles []model.Candle, reqs []Requirement) (map[string]Series, error) {
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close.InexactFloat64()
		highs[i] = c.High.InexactFloat64()
		lows[i] = c.Low.InexactFloat64()
	}

	result := make(map[string]Series, len(reqs))
	for _, req := range reqs {
		switch req.Type {
		case TypeSMA:
			result[req.Name] = ScalarSeries(SMA(closes, req.Length))
		case TypeEMA:
			result[req.Name] = ScalarSeries(EMA(closes, req.Length))
		case TypeMACD:
			fast, slow, signal := macdPeriods(req.Options)
			result[req.Name] = MACDSeries(MACD(closes, fast, slow, signal))
		case TypeRSI:
			result[req.Name] = ScalarSeries(RSI(closes, req.Length))
		case TypeCCI:
			result[req.Name] = ScalarSeries(CCI(highs, lows, closes, req.Length))
		case TypeMomentum:
			result[req.Name] = ScalarSeries(Momentum(closes, req.Length))
		case TypeAO:
			result[req.Name] = ScalarSeries(AO(highs, lows))
		default:
			return nil, fmt.Errorf("unknown indicator type: %s", req.Type)
		}
	}
	return result, nil
}

func macdPeriods(options map[string]interface{}) (fast, slow, signal int) {
	fast, slow, signal = 12, 26, 9
	if options == nil {
		return
	}
	if v, ok := options["fast_period"].(float64); ok {
		fast = int(v)
	}
	if v, ok := options["slow_period"].(float64); ok {
		slow = int(v)
	}
	if v, ok := options["signal_period"].(float64); ok {
		signal = int(v)
	}
	return
}

// SMA is the simple moving average over a rolling window of length n.
func SMA(values []float64, n int) []float64 {
	out := nanSlice(len(values))
	if n <= 0 || len(values) < n {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// EMA is the exponential moving average, seeded with the SMA of the first n
// values (standard smoothing factor 2/(n+1)).
func EMA(values []float64, n int) []float64 {
	out := nanSlice(len(values))
	if n <= 0 || len(values) < n {
		return out
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += values[i]
	}
	out[n-1] = sum / float64(n)

	k := 2.0 / float64(n+1)
	for i := n; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// MACD computes the MACD line (fast EMA - slow EMA), its signal line (EMA of
// the MACD line) and the histogram (line - signal).
func MACD(values []float64, fast, slow, signal int) []MACDSample {
	out := make([]MACDSample, len(values))
	for i := range out {
		out[i] = MACDSample{MACD: math.NaN(), Signal: math.NaN(), Histogram: math.NaN()}
	}
	if len(values) < slow {
		return out
	}

	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)

	// MACD line is defined from index slow-1 on; the signal line is an EMA
	// over that defined suffix.
	line := make([]float64, 0, len(values)-slow+1)
	for i := slow - 1; i < len(values); i++ {
		line = append(line, emaFast[i]-emaSlow[i])
	}
	signalLine := EMA(line, signal)

	for i := slow - 1; i < len(values); i++ {
		j := i - (slow - 1)
		s := MACDSample{MACD: line[j], Signal: signalLine[j], Histogram: math.NaN()}
		if !math.IsNaN(s.Signal) {
			s.Histogram = s.MACD - s.Signal
		}
		out[i] = s
	}
	return out
}

// RSI is the relative strength index using Wilder's smoothing.
func RSI(values []float64, n int) []float64 {
	out := nanSlice(len(values))
	if n <= 0 || len(values) < n+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= n; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(n)
	avgLoss /= float64(n)
	out[n] = rsiValue(avgGain, avgLoss)

	for i := n + 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		// Wilder's smoothing
		avgGain = (avgGain*float64(n-1) + gain) / float64(n)
		avgLoss = (avgLoss*float64(n-1) + loss) / float64(n)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// CCI is the commodity channel index over typical prices with Lambert's
// 0.015 constant.
func CCI(highs, lows, closes []float64, n int) []float64 {
	out := nanSlice(len(closes))
	if n <= 0 || len(closes) < n {
		return out
	}

	tp := make([]float64, len(closes))
	for i := range closes {
		tp[i] = (highs[i] + lows[i] + closes[i]) / 3.0
	}
	tpSMA := SMA(tp, n)

	for i := n - 1; i < len(tp); i++ {
		meanDev := 0.0
		for j := i - n + 1; j <= i; j++ {
			meanDev += math.Abs(tp[j] - tpSMA[i])
		}
		meanDev /= float64(n)
		if meanDev == 0 {
			out[i] = 0
			continue
		}
		out[i] = (tp[i] - tpSMA[i]) / (0.015 * meanDev)
	}
	return out
}

// Momentum is the n-period price difference.
func Momentum(values []float64, n int) []float64 {
	out := nanSlice(len(values))
	for i := n; i < len(values); i++ {
		out[i] = values[i] - values[i-n]
	}
	return out
}

// AO is the awesome oscillator: SMA(5) - SMA(34) of the bar midpoints.
func AO(highs, lows []float64) []float64 {
	mid := make([]float64, len(highs))
	for i := range highs {
		mid[i] = (highs[i] + lows[i]) / 2.0
	}
	fast := SMA(mid, 5)
	slow := SMA(mid, 34)

	out := nanSlice(len(mid))
	for i := range mid {
		if !math.IsNaN(fast[i]) && !math.IsNaN(slow[i]) {
			out[i] = fast[i] - slow[i]
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
