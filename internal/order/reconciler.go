package order

import (
	"context"

	"go.uber.org/zap"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/exchange"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/infrastructure"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
)

// Outcome of a reconciliation decision.
type Outcome string

const (
	OutcomePlaced  Outcome = "placed"
	OutcomeAmended Outcome = "amended"
	OutcomeSkipped Outcome = "skipped"
)

// Decision is what the reconciler did with an intent.
type Decision struct {
	Outcome Outcome
	Order   model.OpenOrder
	Reason  string
}

// Reconciler decides whether a new order intent creates a fresh order,
// amends the current one or is withheld. It reads the venue's live open
// orders at decision time rather than a cache, and it never cancels.
type Reconciler struct {
	manager *exchange.Manager
	logger  *zap.Logger
}

func NewReconciler(manager *exchange.Manager, logger *zap.Logger) *Reconciler {
	return &Reconciler{manager: manager, logger: logger}
}

func (r *Reconciler) Reconcile(ctx context.Context, intent model.OrderIntent) (Decision, error) {
	ex, ok := r.manager.Get(intent.Exchange)
	if !ok {
		return Decision{}, ErrUnknownExchange
	}

	open, err := ex.OpenOrders(ctx, intent.Symbol)
	if err != nil {
		return Decision{}, err
	}

	if len(open) == 0 {
		placed, err := ex.PlaceOrder(ctx, intent)
		if err != nil {
			return Decision{}, err
		}
		infrastructure.OrderDecisions.WithLabelValues(intent.Exchange, string(OutcomePlaced)).Inc()
		r.logger.Info("order placed",
			zap.String("exchange", intent.Exchange),
			zap.String("symbol", intent.Symbol),
			zap.String("side", string(intent.Side)))
		return Decision{Outcome: OutcomePlaced, Order: placed}, nil
	}

	current := open[0]

	// Never flip an open order's direction by blind amendment; leave it for
	// manual or strategy-level intervention.
	if current.Side != intent.Side {
		infrastructure.OrderDecisions.WithLabelValues(intent.Exchange, string(OutcomeSkipped)).Inc()
		r.logger.Warn("order side change, skipping update",
			zap.String("exchange", intent.Exchange),
			zap.String("symbol", intent.Symbol),
			zap.String("open_side", string(current.Side)),
			zap.String("intent_side", string(intent.Side)))
		return Decision{Outcome: OutcomeSkipped, Order: current, Reason: "side mismatch"}, nil
	}

	amended, err := ex.AmendOrder(ctx, current.ID, intent)
	if err != nil {
		return Decision{}, err
	}
	infrastructure.OrderDecisions.WithLabelValues(intent.Exchange, string(OutcomeAmended)).Inc()
	r.logger.Info("order amended",
		zap.String("exchange", intent.Exchange),
		zap.String("symbol", intent.Symbol),
		zap.String("id", current.ID))
	return Decision{Outcome: OutcomeAmended, Order: amended}, nil
}
