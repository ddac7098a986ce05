// Package indicator computes technical indicator series over candle history.
//
// Every computation produces one sample per input candle, index-aligned with
// the candles. Samples before an indicator's warm-up window are NaN, never a
// fabricated value. All indicators are causal: sample i depends only on
// candles [0..i].
package indicator

import (
	"fmt"
)

// Type identifies a supported indicator computation.
type Type string

const (
	TypeSMA      Type = "sma"
	TypeEMA      Type = "ema"
	TypeMACD     Type = "macd"
	TypeRSI      Type = "rsi"
	TypeCCI      Type = "cci"
	TypeMomentum Type = "momentum"
	TypeAO       Type = "ao"
)

// MACDSample is one sample of a MACD-family series.
type MACDSample struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Series is an ordered sequence of indicator samples.
type Series interface {
	Len() int
	// At returns the sample at index i: float64 for scalar indicators,
	// MACDSample for MACD-family ones.
	At(i int) interface{}
}

// ScalarSeries holds scalar samples (moving averages, oscillators).
type ScalarSeries []float64

func (s ScalarSeries) Len() int             { return len(s) }
func (s ScalarSeries) At(i int) interface{} { return s[i] }

// MACDSeries holds MACD samples.
type MACDSeries []MACDSample

func (s MACDSeries) Len() int             { return len(s) }
func (s MACDSeries) At(i int) interface{} { return s[i] }

// Requirement declares one series a strategy needs computed.
type Requirement struct {
	Name    string
	Type    Type
	Length  int
	Options map[string]interface{}
}

// Builder collects the indicator requirements of a strategy. Unknown types
// and duplicate names fail at registration time, not deep inside an
// evaluation.
type Builder struct {
	reqs []Requirement
	seen map[string]bool
	err  error
}

func NewBuilder() *Builder {
	return &Builder{seen: make(map[string]bool)}
}

// Add registers a named series requirement. The first error sticks and is
// returned by Err.
func (b *Builder) Add(name string, typ Type, length int, options map[string]interface{}) {
	if b.err != nil {
		return
	}
	switch typ {
	case TypeSMA, TypeEMA, TypeMACD, TypeRSI, TypeCCI, TypeMomentum, TypeAO:
	default:
		b.err = fmt.Errorf("unknown indicator type: %s", typ)
		return
	}
	if b.seen[name] {
		b.err = fmt.Errorf("duplicate indicator name: %s", name)
		return
	}
	// MACD and AO take their periods from options or fixed constants.
	if length <= 0 && typ != TypeAO && typ != TypeMACD {
		b.err = fmt.Errorf("invalid length %d for indicator %s", length, name)
		return
	}
	b.seen[name] = true
	b.reqs = append(b.reqs, Requirement{Name: name, Type: typ, Length: length, Options: options})
}

// Requirements returns the declared series in registration order.
func (b *Builder) Requirements() []Requirement { return b.reqs }

func (b *Builder) Err() error { return b.err }
