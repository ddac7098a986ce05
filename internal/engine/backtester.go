package engine

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/indicator"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/strategy"
)

// Backtester replays historical candles through a strategy and a fresh
// indicator engine. Execution is long-only spot: a long signal buys with
// the full balance, short and close signals flatten the position.
type Backtester struct {
	strategy    strategy.Strategy
	options     map[string]interface{}
	balance     decimal.Decimal
	position    decimal.Decimal // current quantity held
	costBasis   decimal.Decimal // entry price of the open position
	feeRate     decimal.Decimal
	slippage    decimal.Decimal
	trades      []model.SimulatedTrade
	equityCurve []decimal.Decimal
	returns     []float64
	lastSignal  strategy.SignalType
}

func NewBacktester(strat strategy.Strategy, options map[string]interface{}, initialBalance decimal.Decimal) *Backtester {
	return &Backtester{
		strategy:    strat,
		options:     options,
		balance:     initialBalance,
		position:    decimal.Zero,
		feeRate:     decimal.NewFromFloat(0.001),  // 0.1% fee
		slippage:    decimal.NewFromFloat(0.0005), // 0.05% slippage
		trades:      make([]model.SimulatedTrade, 0),
		equityCurve: make([]decimal.Decimal, 0),
		returns:     make([]float64, 0),
	}
}

func (b *Backtester) Run(candles []model.Candle) (model.BacktestReport, error) {
	initialBalance := b.balance
	prevEquity := initialBalance

	builder := indicator.NewBuilder()
	b.strategy.DeclareIndicators(builder, b.options)
	if err := builder.Err(); err != nil {
		return model.BacktestReport{}, err
	}
	reqs := builder.Requirements()

	// Indicators are causal, so series computed over the full history
	// agree with what a live run would have seen at each bar. One pass
	// here, prefix slices per bar below.
	eng := indicator.NewEngine()
	full, err := eng.Compute(candles, reqs)
	if err != nil {
		return model.BacktestReport{}, err
	}

	for i, candle := range candles {
		view := strategy.NewLookback(
			closeFloat(candle),
			prefixSeries(full, i+1),
			b.lastSignal,
		)
		result := b.strategy.Evaluate(view)

		switch result.Type {
		case strategy.SignalLong:
			if b.balance.GreaterThan(decimal.Zero) {
				b.buy(candle)
			}
			b.lastSignal = strategy.SignalLong
		case strategy.SignalShort, strategy.SignalClose:
			if b.position.GreaterThan(decimal.Zero) {
				b.sell(candle)
			}
			if result.Type == strategy.SignalShort {
				b.lastSignal = strategy.SignalShort
			} else {
				b.lastSignal = strategy.SignalNone
			}
		}

		// Track equity curve and returns
		currentEquity := b.balance.Add(b.position.Mul(candle.Close))
		b.equityCurve = append(b.equityCurve, currentEquity)

		ret, _ := currentEquity.Sub(prevEquity).Div(prevEquity).Float64()
		b.returns = append(b.returns, ret)
		prevEquity = currentEquity
	}

	// Final liquidation at last price
	if b.position.GreaterThan(decimal.Zero) && len(candles) > 0 {
		b.sell(candles[len(candles)-1])
	}

	totalReturn := b.balance.Sub(initialBalance).Div(initialBalance)
	maxDD := b.calculateMaxDrawdown()
	maxDDFloat, _ := maxDD.Float64()

	winRate, totalProfit := b.calculateStats()
	sharpe := b.calculateSharpeRatio()

	return model.BacktestReport{
		StrategyName:   b.strategy.Name(),
		TotalTrades:    len(b.trades),
		WinRate:        winRate,
		TotalReturn:    totalReturn,
		TotalProfit:    totalProfit,
		MaxDrawdown:    maxDDFloat,
		SharpRatio:     sharpe,
		InitialBalance: initialBalance,
		FinalBalance:   b.balance,
		TradesLog:      b.trades,
	}, nil
}

func closeFloat(c model.Candle) float64 {
	f, _ := c.Close.Float64()
	return f
}

// prefixSeries truncates every computed series to its first n values,
// mirroring the history a live evaluation at bar n-1 would hold.
func prefixSeries(full map[string]indicator.Series, n int) map[string]indicator.Series {
	out := make(map[string]indicator.Series, len(full))
	for name, s := range full {
		switch v := s.(type) {
		case indicator.ScalarSeries:
			if n < len(v) {
				out[name] = v[:n]
			} else {
				out[name] = v
			}
		case indicator.MACDSeries:
			if n < len(v) {
				out[name] = v[:n]
			} else {
				out[name] = v
			}
		default:
			out[name] = s
		}
	}
	return out
}

func (b *Backtester) buy(candle model.Candle) {
	price := candle.Close.Mul(decimal.NewFromFloat(1).Add(b.slippage))
	qty := b.balance.Div(price.Mul(decimal.NewFromFloat(1).Add(b.feeRate)))

	if qty.LessThanOrEqual(decimal.Zero) {
		return
	}

	fee := qty.Mul(price).Mul(b.feeRate)
	b.balance = b.balance.Sub(qty.Mul(price)).Sub(fee)
	b.position = b.position.Add(qty)
	b.costBasis = price

	b.trades = append(b.trades, model.SimulatedTrade{
		Time:   candle.Timestamp,
		Symbol: candle.Symbol,
		Side:   model.SideBuy,
		Price:  price,
		Size:   qty,
		Fee:    fee,
	})
}

func (b *Backtester) sell(candle model.Candle) {
	price := candle.Close.Mul(decimal.NewFromFloat(1).Sub(b.slippage))
	saleValue := b.position.Mul(price)
	fee := saleValue.Mul(b.feeRate)

	pnl := price.Sub(b.costBasis).Mul(b.position).Sub(fee)

	b.balance = b.balance.Add(saleValue).Sub(fee)

	b.trades = append(b.trades, model.SimulatedTrade{
		Time:   candle.Timestamp,
		Symbol: candle.Symbol,
		Side:   model.SideSell,
		Price:  price,
		Size:   b.position,
		Fee:    fee,
		PnL:    pnl,
	})

	b.position = decimal.Zero
	b.costBasis = decimal.Zero
}

func (b *Backtester) calculateMaxDrawdown() decimal.Decimal {
	if len(b.equityCurve) == 0 {
		return decimal.Zero
	}
	maxEquity := b.equityCurve[0]
	maxDD := decimal.Zero
	for _, equity := range b.equityCurve {
		if equity.GreaterThan(maxEquity) {
			maxEquity = equity
		}
		dd := maxEquity.Sub(equity).Div(maxEquity)
		if dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}
	return maxDD
}

func (b *Backtester) calculateStats() (float64, decimal.Decimal) {
	wins := 0
	sellCount := 0
	totalProfit := decimal.Zero
	for _, t := range b.trades {
		if t.Side == model.SideSell {
			sellCount++
			if t.PnL.GreaterThan(decimal.Zero) {
				wins++
			}
			totalProfit = totalProfit.Add(t.PnL)
		}
	}

	if sellCount == 0 {
		return 0, decimal.Zero
	}

	return float64(wins) / float64(sellCount), totalProfit
}

func (b *Backtester) calculateSharpeRatio() float64 {
	if len(b.returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range b.returns {
		sum += r
	}
	avgReturn := sum / float64(len(b.returns))

	var sumSqDiff float64
	for _, r := range b.returns {
		diff := r - avgReturn
		sumSqDiff += diff * diff
	}
	stdDev := math.Sqrt(sumSqDiff / float64(len(b.returns)))

	if stdDev == 0 {
		return 0
	}

	return avgReturn / stdDev
}
