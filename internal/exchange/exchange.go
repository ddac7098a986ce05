// Package exchange defines the venue contract the trading engine consumes.
// Connectivity itself lives in the concrete implementations; the engine only
// needs symbol mechanics, the live open-order set and place/amend calls.
package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
)

// Exchange is one trading venue.
type Exchange interface {
	Name() string

	// IsInverseSymbol reports whether the symbol is a contract settled in
	// the base asset rather than quote currency.
	IsInverseSymbol(symbol string) bool

	// AmountFromAsset converts an asset amount into an order quantity in
	// the venue's own units (lot rounding etc.).
	AmountFromAsset(amount decimal.Decimal, symbol string) decimal.Decimal

	// AmountFromCurrency converts a currency amount into an order quantity,
	// used for inverse contracts.
	AmountFromCurrency(amount decimal.Decimal, symbol string) decimal.Decimal

	// OpenOrders returns the currently open orders for the symbol.
	OpenOrders(ctx context.Context, symbol string) ([]model.OpenOrder, error)

	PlaceOrder(ctx context.Context, intent model.OrderIntent) (model.OpenOrder, error)
	AmendOrder(ctx context.Context, orderID string, intent model.OrderIntent) (model.OpenOrder, error)
}

// Manager holds the registered venues by name.
type Manager struct {
	exchanges map[string]Exchange
}

func NewManager() *Manager {
	return &Manager{exchanges: make(map[string]Exchange)}
}

func (m *Manager) Register(e Exchange) {
	m.exchanges[e.Name()] = e
}

// Get returns the venue, or ok=false for an unregistered name.
func (m *Manager) Get(name string) (Exchange, bool) {
	e, ok := m.exchanges[name]
	return e, ok
}
