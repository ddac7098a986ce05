package model

import (
	"github.com/shopspring/decimal"
)

// Side of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderIntent 下单意图: derived from a strategy signal plus the calculated size.
type OrderIntent struct {
	Exchange string          `json:"exchange"`
	Symbol   string          `json:"symbol"`
	Side     Side            `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Amount   decimal.Decimal `json:"amount"`
}

// OpenOrder is a currently open order as reported by the exchange. The engine
// never stores these; it only reads the live set at reconciliation time.
type OpenOrder struct {
	ID     string          `json:"id"`
	Symbol string          `json:"symbol"`
	Side   Side            `json:"side"`
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
}

// CapitalAllocation assigns trading capital to one (exchange, symbol).
// Exactly one of Currency or Asset is set; which one applies depends on
// whether the venue symbol is inverse.
type CapitalAllocation struct {
	Exchange string          `json:"exchange"`
	Symbol   string          `json:"symbol"`
	Currency decimal.Decimal `json:"currency"`
	Asset    decimal.Decimal `json:"asset"`
}
