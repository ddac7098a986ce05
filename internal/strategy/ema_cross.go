package strategy

import (
	"github.com/GuruDevCoder/trading-bot-crypto/internal/indicator"
)

// EMACross 双均线策略: golden cross of a fast EMA over a slow EMA opens a
// long, the death cross opens a short, and a cross against a held position
// closes it first.
type EMACross struct {
	shortPeriod int
	longPeriod  int
}

func NewEMACross(shortPeriod, longPeriod int) *EMACross {
	return &EMACross{
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
	}
}

func (s *EMACross) Name() string {
	return "ema_cross"
}

func (s *EMACross) DeclareIndicators(b *indicator.Builder, options map[string]interface{}) {
	b.Add("ema_short", indicator.TypeEMA, s.shortPeriod, nil)
	b.Add("ema_long", indicator.TypeEMA, s.longPeriod, nil)
}

func (s *EMACross) Evaluate(view *Lookback) SignalResult {
	shortFull, ok := view.Series("ema_short")
	longFull, ok2 := view.Series("ema_long")
	if !ok || !ok2 || shortFull.Len() < 3 || longFull.Len() < 3 {
		return EmptySignal(nil)
	}

	// Closed bars only: skip the forming sample at the end.
	shortLast := shortFull.At(shortFull.Len() - 2).(float64)
	shortPrev := shortFull.At(shortFull.Len() - 3).(float64)
	longLast := longFull.At(longFull.Len() - 2).(float64)
	longPrev := longFull.At(longFull.Len() - 3).(float64)

	debug := map[string]interface{}{
		"ema_short":   shortLast,
		"ema_long":    longLast,
		"last_signal": view.LastSignal(),
	}

	goldenCross := shortPrev <= longPrev && shortLast > longLast
	deathCross := shortPrev >= longPrev && shortLast < longLast

	lastSignal := view.LastSignal()
	if (lastSignal == SignalLong && deathCross) || (lastSignal == SignalShort && goldenCross) {
		return NewSignal(SignalClose, debug)
	}
	if goldenCross {
		return NewSignal(SignalLong, debug)
	}
	if deathCross {
		return NewSignal(SignalShort, debug)
	}

	return EmptySignal(debug)
}
