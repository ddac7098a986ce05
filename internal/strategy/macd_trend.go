package strategy

import (
	"math"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/indicator"
)

// MACDTrend trades MACD histogram zero-crossings filtered by a 200-period
// SMA trend: longs only above the SMA, shorts only below, and an open
// position is closed when the histogram crosses back against it.
type MACDTrend struct{}

func NewMACDTrend() *MACDTrend {
	return &MACDTrend{}
}

func (s *MACDTrend) Name() string {
	return "macd_trend"
}

func (s *MACDTrend) DeclareIndicators(b *indicator.Builder, options map[string]interface{}) {
	b.Add("macd", indicator.TypeMACD, 0, options)
	b.Add("sma200", indicator.TypeSMA, 200, nil)
}

func (s *MACDTrend) Evaluate(view *Lookback) SignalResult {
	macdFull, ok := view.Series("macd")
	smaFull, ok2 := view.Series("sma200")
	if !ok || !ok2 || macdFull.Len() < 2 || smaFull.Len() < 2 {
		return EmptySignal(nil)
	}

	// The newest sample may belong to a still-forming bar: drop it and read
	// only closed bars.
	macdLen := macdFull.Len() - 1
	smaLen := smaFull.Len() - 1

	sma200 := smaFull.At(smaLen - 1).(float64)
	last := macdFull.At(macdLen - 1).(indicator.MACDSample).Histogram
	before := math.NaN()
	if macdLen >= 2 {
		before = macdFull.At(macdLen - 2).(indicator.MACDSample).Histogram
	}

	debug := map[string]interface{}{
		"sma200":      sma200,
		"histogram":   last,
		"last_signal": view.LastSignal(),
	}

	// trend change
	lastSignal := view.LastSignal()
	if (lastSignal == SignalLong && before > 0 && last < 0) ||
		(lastSignal == SignalShort && before < 0 && last > 0) {
		return NewSignal(SignalClose, debug)
	}

	if view.Price() >= sma200 {
		if before < 0 && last > 0 {
			return NewSignal(SignalLong, debug)
		}
	} else {
		if before > 0 && last < 0 {
			return NewSignal(SignalShort, debug)
		}
	}

	return EmptySignal(debug)
}
