package exchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
)

// SymbolSpec describes venue mechanics for one symbol on the paper venue.
type SymbolSpec struct {
	Inverse bool
	LotStep decimal.Decimal // order quantity rounding step, zero = none
}

// Paper is an in-memory venue for dry runs: orders are accepted and held open
// so the full size/reconcile flow is exercisable without a live exchange.
type Paper struct {
	name    string
	logger  *zap.Logger
	specs   map[string]SymbolSpec
	mu      sync.Mutex
	orders  map[string][]model.OpenOrder // keyed by symbol
	nextID  int
}

func NewPaper(name string, specs map[string]SymbolSpec, logger *zap.Logger) *Paper {
	return &Paper{
		name:   name,
		logger: logger,
		specs:  specs,
		orders: make(map[string][]model.OpenOrder),
	}
}

func (p *Paper) Name() string { return p.name }

func (p *Paper) IsInverseSymbol(symbol string) bool {
	return p.specs[symbol].Inverse
}

func (p *Paper) AmountFromAsset(amount decimal.Decimal, symbol string) decimal.Decimal {
	return p.roundToStep(amount, symbol)
}

func (p *Paper) AmountFromCurrency(amount decimal.Decimal, symbol string) decimal.Decimal {
	return p.roundToStep(amount, symbol)
}

func (p *Paper) roundToStep(amount decimal.Decimal, symbol string) decimal.Decimal {
	step := p.specs[symbol].LotStep
	if step.IsZero() {
		return amount
	}
	return amount.Div(step).Floor().Mul(step)
}

func (p *Paper) OpenOrders(ctx context.Context, symbol string) ([]model.OpenOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	orders := make([]model.OpenOrder, len(p.orders[symbol]))
	copy(orders, p.orders[symbol])
	return orders, nil
}

func (p *Paper) PlaceOrder(ctx context.Context, intent model.OrderIntent) (model.OpenOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	order := model.OpenOrder{
		ID:     fmt.Sprintf("paper-%d", p.nextID),
		Symbol: intent.Symbol,
		Side:   intent.Side,
		Price:  intent.Price,
		Amount: intent.Amount,
	}
	p.orders[intent.Symbol] = append(p.orders[intent.Symbol], order)

	p.logger.Info("paper order placed",
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.String("price", order.Price.String()),
		zap.String("amount", order.Amount.String()))
	return order, nil
}

func (p *Paper) AmendOrder(ctx context.Context, orderID string, intent model.OrderIntent) (model.OpenOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for symbol, orders := range p.orders {
		for i, order := range orders {
			if order.ID != orderID {
				continue
			}
			order.Price = intent.Price
			order.Amount = intent.Amount
			p.orders[symbol][i] = order

			p.logger.Info("paper order amended",
				zap.String("id", order.ID),
				zap.String("price", order.Price.String()),
				zap.String("amount", order.Amount.String()))
			return order, nil
		}
	}
	return model.OpenOrder{}, fmt.Errorf("unknown order id: %s", orderID)
}
