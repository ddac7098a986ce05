package strategy

import (
	"github.com/GuruDevCoder/trading-bot-crypto/internal/indicator"
)

// Strategy is a pluggable signal generator. DeclareIndicators registers the
// series the orchestrator must compute before Evaluate runs; Evaluate is a
// pure function of the lookback view. The carried last signal is persisted by
// the orchestrator, never by the strategy itself.
type Strategy interface {
	Name() string
	DeclareIndicators(b *indicator.Builder, options map[string]interface{})
	Evaluate(view *Lookback) SignalResult
}
