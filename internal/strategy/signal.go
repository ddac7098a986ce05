package strategy

// SignalType is a strategy's directional recommendation.
type SignalType string

const (
	SignalNone  SignalType = ""
	SignalLong  SignalType = "long"
	SignalShort SignalType = "short"
	SignalClose SignalType = "close"
)

// SignalResult is the outcome of one strategy evaluation. An empty type
// triggers no order action; Debug carries a diagnostic snapshot either way.
type SignalResult struct {
	Type  SignalType             `json:"signal"`
	Debug map[string]interface{} `json:"debug,omitempty"`
}

func NewSignal(t SignalType, debug map[string]interface{}) SignalResult {
	return SignalResult{Type: t, Debug: debug}
}

func EmptySignal(debug map[string]interface{}) SignalResult {
	return SignalResult{Type: SignalNone, Debug: debug}
}
