// Package order turns strategy signals into venue orders: sizing capital
// into quantities and reconciling intents against already open orders.
package order

import (
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/exchange"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/ticker"
)

var (
	// ErrNoCapital means no capital allocation is configured for the pair.
	ErrNoCapital = errors.New("no capital configured")
	// ErrNoTicker means no usable bid is cached for the pair.
	ErrNoTicker = errors.New("no ticker")
	// ErrUnknownExchange means the venue is not registered.
	ErrUnknownExchange = errors.New("unknown exchange")
)

// CapitalSource resolves the capital allocation for one pair.
type CapitalSource interface {
	SymbolCapital(exchange, symbol string) *model.CapitalAllocation
}

// Calculator converts a pair's capital allocation into an order quantity
// using the latest cached bid.
type Calculator struct {
	tickers *ticker.Cache
	logger  *zap.Logger
	manager *exchange.Manager
	capital CapitalSource
}

func NewCalculator(tickers *ticker.Cache, manager *exchange.Manager, capital CapitalSource, logger *zap.Logger) *Calculator {
	return &Calculator{
		tickers: tickers,
		logger:  logger,
		manager: manager,
		capital: capital,
	}
}

// OrderSize resolves the configured capital for (exchangeName, symbol) and
// converts it into a quantity in venue units. Spot symbols are sized in the
// asset being bought; inverse contracts are sized in currency. Whichever
// denomination the allocation lacks is converted via the latest bid.
func (c *Calculator) OrderSize(exchangeName, symbol string) (decimal.Decimal, error) {
	capital := c.capital.SymbolCapital(exchangeName, symbol)
	if capital == nil {
		c.logger.Error("no capital configured",
			zap.String("exchange", exchangeName),
			zap.String("symbol", symbol))
		return decimal.Zero, ErrNoCapital
	}

	ex, ok := c.manager.Get(exchangeName)
	if !ok {
		return decimal.Zero, ErrUnknownExchange
	}

	// spot venues buy assets
	if !ex.IsInverseSymbol(symbol) {
		if !capital.Asset.IsZero() {
			return ex.AmountFromAsset(capital.Asset, symbol), nil
		}

		bid, err := c.latestBid(exchangeName, symbol)
		if err != nil {
			return decimal.Zero, err
		}
		return ex.AmountFromAsset(capital.Currency.Div(bid), symbol), nil
	}

	// inverse contracts settle in currency
	if !capital.Currency.IsZero() {
		return ex.AmountFromCurrency(capital.Currency, symbol), nil
	}

	bid, err := c.latestBid(exchangeName, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return ex.AmountFromCurrency(bid.Mul(capital.Asset), symbol), nil
}

func (c *Calculator) latestBid(exchangeName, symbol string) (decimal.Decimal, error) {
	t, ok := c.tickers.Get(exchangeName, symbol)
	if !ok || t.Bid.IsZero() {
		c.logger.Error("invalid ticker for capital conversion",
			zap.String("exchange", exchangeName),
			zap.String("symbol", symbol))
		return decimal.Zero, ErrNoTicker
	}
	return t.Bid, nil
}
