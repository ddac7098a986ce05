// Package trader runs the decision pipeline: recent candles through the
// indicator engine, the active strategy over the lookback view, and the
// resulting signal through order sizing and reconciliation.
package trader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/config"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/indicator"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/infrastructure"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/notify"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/order"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/strategy"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/ticker"
)

const lookbackBars = 500

// CandleSource supplies recent candle history, newest first.
type CandleSource interface {
	Recent(ctx context.Context, exchange, symbol, period string, limit int) []model.Candle
}

// pairState holds one watched pair with its strategy and the indicator
// requirements declared at registration time.
type pairState struct {
	pair  config.Pair
	strat strategy.Strategy
	reqs  []indicator.Requirement
}

// PairStatus is the externally visible state of a watched pair.
type PairStatus struct {
	Exchange   string              `json:"exchange"`
	Symbol     string              `json:"symbol"`
	Period     string              `json:"period"`
	Strategy   string              `json:"strategy"`
	State      string              `json:"state"`
	LastSignal strategy.SignalType `json:"last_signal"`
}

// Trader owns the watch set and the periodic evaluation loop. Evaluations
// for different pairs run concurrently on a bounded worker pool; a pair is
// never evaluated twice at the same time.
type Trader struct {
	candles    CandleSource
	tickers    *ticker.Cache
	engine     *indicator.Engine
	calculator *order.Calculator
	reconciler *order.Reconciler
	notifier   notify.Notifier
	js         nats.JetStreamContext
	logger     *zap.Logger
	interval   time.Duration
	workers    int

	jobs chan string

	mu          sync.Mutex
	pairs       map[string]*pairState
	busy        map[string]bool
	lastSignals map[string]strategy.SignalType
}

type Options struct {
	Candles    CandleSource
	Tickers    *ticker.Cache
	Calculator *order.Calculator
	Reconciler *order.Reconciler
	Notifier   notify.Notifier
	JS         nats.JetStreamContext
	Logger     *zap.Logger
	Interval   time.Duration
	Workers    int
}

func New(opts Options) *Trader {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewLogNotifier(opts.Logger)
	}
	return &Trader{
		candles:     opts.Candles,
		tickers:     opts.Tickers,
		engine:      indicator.NewEngine(),
		calculator:  opts.Calculator,
		reconciler:  opts.Reconciler,
		notifier:    opts.Notifier,
		js:          opts.JS,
		logger:      opts.Logger,
		interval:    opts.Interval,
		workers:     opts.Workers,
		jobs:        make(chan string, opts.Workers*8),
		pairs:       make(map[string]*pairState),
		busy:        make(map[string]bool),
		lastSignals: make(map[string]strategy.SignalType),
	}
}

func pairKey(exchange, symbol string) string {
	return exchange + ":" + symbol
}

// Watch registers a pair. The strategy's indicator requirements are built
// and validated here so a bad declaration fails at startup, not mid-tick.
func (t *Trader) Watch(pair config.Pair) error {
	strat, err := strategy.NewStrategy(pair.Strategy, pair.Options)
	if err != nil {
		return err
	}

	builder := indicator.NewBuilder()
	strat.DeclareIndicators(builder, pair.Options)
	if err := builder.Err(); err != nil {
		return fmt.Errorf("invalid indicators for %s %s: %w", pair.Exchange, pair.Symbol, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.pairs[pairKey(pair.Exchange, pair.Symbol)] = &pairState{
		pair:  pair,
		strat: strat,
		reqs:  builder.Requirements(),
	}
	return nil
}

// Unwatch removes a pair between ticks. An evaluation already in flight
// finishes but its order intent is discarded.
func (t *Trader) Unwatch(exchange, symbol string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pairs, pairKey(exchange, symbol))
	delete(t.lastSignals, pairKey(exchange, symbol))
}

// Pairs reports the current watch set with each pair's last signal.
func (t *Trader) Pairs() []PairStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	statuses := make([]PairStatus, 0, len(t.pairs))
	for key, ps := range t.pairs {
		statuses = append(statuses, PairStatus{
			Exchange:   ps.pair.Exchange,
			Symbol:     ps.pair.Symbol,
			Period:     ps.pair.Period,
			Strategy:   ps.strat.Name(),
			State:      ps.pair.State,
			LastSignal: t.lastSignals[key],
		})
	}
	return statuses
}

// Run starts the worker pool and the periodic tick loop, returning once ctx
// is cancelled.
func (t *Trader) Run(ctx context.Context) {
	for i := 0; i < t.workers; i++ {
		go t.worker(ctx)
	}

	tick := time.NewTicker(t.interval)
	defer tick.Stop()

	t.logger.Info("trader started",
		zap.Duration("interval", t.interval),
		zap.Int("workers", t.workers))

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			t.Tick()
		}
	}
}

// Tick schedules one evaluation for every watched pair that is not already
// being evaluated.
func (t *Trader) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key := range t.pairs {
		if t.busy[key] {
			continue
		}
		select {
		case t.jobs <- key:
			t.busy[key] = true
		default:
			t.logger.Warn("evaluation queue full, pair skipped this tick", zap.String("pair", key))
		}
	}
}

func (t *Trader) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case key := <-t.jobs:
			t.evaluate(ctx, key)
			t.mu.Lock()
			delete(t.busy, key)
			t.mu.Unlock()
		}
	}
}

func (t *Trader) evaluate(ctx context.Context, key string) {
	t.mu.Lock()
	ps, ok := t.pairs[key]
	lastSignal := t.lastSignals[key]
	t.mu.Unlock()
	if !ok {
		return
	}

	pair := ps.pair
	infrastructure.StrategyEvaluations.WithLabelValues(pair.Exchange, pair.Symbol).Inc()

	tick, ok := t.tickers.Get(pair.Exchange, pair.Symbol)
	if !ok {
		t.logger.Warn("no ticker for pair, skipping evaluation",
			zap.String("exchange", pair.Exchange),
			zap.String("symbol", pair.Symbol))
		return
	}

	candles := t.candles.Recent(ctx, pair.Exchange, pair.Symbol, pair.Period, lookbackBars)
	if len(candles) == 0 {
		// Normal shortly after startup, before history has accumulated.
		t.logger.Debug("no candle history yet",
			zap.String("exchange", pair.Exchange),
			zap.String("symbol", pair.Symbol))
		return
	}

	// Recent returns newest first; indicators are causal and need ascending
	// time order.
	reverseCandles(candles)

	series, err := t.engine.Compute(candles, ps.reqs)
	if err != nil {
		t.logger.Error("indicator computation failed",
			zap.String("exchange", pair.Exchange),
			zap.String("symbol", pair.Symbol),
			zap.Error(err))
		return
	}

	view := strategy.NewLookback(tick.Bid.InexactFloat64(), series, lastSignal)
	result := ps.strat.Evaluate(view)

	t.publishSnapshot(pair, result)

	if result.Type == strategy.SignalNone {
		return
	}
	infrastructure.SignalsEmitted.WithLabelValues(pair.Exchange, pair.Symbol, string(result.Type)).Inc()
	t.logger.Info("signal",
		zap.String("exchange", pair.Exchange),
		zap.String("symbol", pair.Symbol),
		zap.String("signal", string(result.Type)),
		zap.Any("debug", result.Debug))

	if err := t.submit(ctx, pair, result, lastSignal); err != nil {
		return
	}

	t.mu.Lock()
	// The pair may have been unwatched while we evaluated; do not resurrect
	// its state entry.
	if _, watched := t.pairs[key]; watched {
		t.lastSignals[key] = result.Type
	}
	t.mu.Unlock()
}

// submit sizes the signal and reconciles it with the venue's open orders.
func (t *Trader) submit(ctx context.Context, pair config.Pair, result strategy.SignalResult, lastSignal strategy.SignalType) error {
	size, err := t.calculator.OrderSize(pair.Exchange, pair.Symbol)
	if err != nil {
		if errors.Is(err, order.ErrNoCapital) || errors.Is(err, order.ErrUnknownExchange) {
			t.notifier.Send(ctx, notify.LevelCritical,
				fmt.Sprintf("order flow aborted for %s %s: %v", pair.Exchange, pair.Symbol, err))
		} else {
			t.logger.Error("order sizing failed",
				zap.String("exchange", pair.Exchange),
				zap.String("symbol", pair.Symbol),
				zap.Error(err))
		}
		return err
	}

	tick, ok := t.tickers.Get(pair.Exchange, pair.Symbol)
	if !ok {
		return order.ErrNoTicker
	}

	side := sideForSignal(result.Type, lastSignal)
	price := tick.Bid
	if side == model.SideSell {
		price = tick.Ask
	}

	intent := model.OrderIntent{
		Exchange: pair.Exchange,
		Symbol:   pair.Symbol,
		Side:     side,
		Price:    price,
		Amount:   size,
	}

	// A pair removed since this evaluation started must not reach the venue.
	t.mu.Lock()
	_, watched := t.pairs[pairKey(pair.Exchange, pair.Symbol)]
	t.mu.Unlock()
	if !watched {
		t.logger.Info("pair unwatched mid-evaluation, order intent discarded",
			zap.String("exchange", pair.Exchange),
			zap.String("symbol", pair.Symbol))
		return nil
	}

	decision, err := t.reconciler.Reconcile(ctx, intent)
	if err != nil {
		if errors.Is(err, order.ErrUnknownExchange) {
			t.notifier.Send(ctx, notify.LevelCritical,
				fmt.Sprintf("signal references unknown exchange: %s", pair.Exchange))
		} else {
			t.logger.Error("order reconciliation failed",
				zap.String("exchange", pair.Exchange),
				zap.String("symbol", pair.Symbol),
				zap.Error(err))
		}
		return err
	}

	t.logger.Info("order decision",
		zap.String("exchange", pair.Exchange),
		zap.String("symbol", pair.Symbol),
		zap.String("outcome", string(decision.Outcome)),
		zap.String("reason", decision.Reason))
	return nil
}

// sideForSignal maps a directional signal to an order side; a close signal
// exits in the direction opposite to the held one.
func sideForSignal(signalType, lastSignal strategy.SignalType) model.Side {
	switch signalType {
	case strategy.SignalLong:
		return model.SideBuy
	case strategy.SignalShort:
		return model.SideSell
	case strategy.SignalClose:
		if lastSignal == strategy.SignalShort {
			return model.SideBuy
		}
		return model.SideSell
	}
	return model.SideBuy
}

func (t *Trader) publishSnapshot(pair config.Pair, result strategy.SignalResult) {
	if t.js == nil {
		return
	}
	snapshot := map[string]interface{}{
		"exchange": pair.Exchange,
		"symbol":   pair.Symbol,
		"signal":   result.Type,
		"debug":    result.Debug,
		"ts":       time.Now().UTC(),
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	subject := fmt.Sprintf("engine.signal.%s.%s", pair.Exchange, pair.Symbol)
	if _, err := t.js.Publish(subject, data); err != nil {
		t.logger.Error("failed to publish signal snapshot", zap.Error(err))
	}
}

func reverseCandles(candles []model.Candle) {
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
}
