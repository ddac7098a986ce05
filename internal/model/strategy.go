package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BacktestReport 回测结果报告
type BacktestReport struct {
	StrategyName   string           `json:"strategy_name"`
	TotalTrades    int              `json:"total_trades"`
	WinRate        float64          `json:"win_rate"`
	TotalReturn    decimal.Decimal  `json:"total_return"`
	TotalProfit    decimal.Decimal  `json:"total_profit"`
	MaxDrawdown    float64          `json:"max_drawdown"`
	SharpRatio     float64          `json:"sharp_ratio"`
	InitialBalance decimal.Decimal  `json:"initial_balance"`
	FinalBalance   decimal.Decimal  `json:"final_balance"`
	TradesLog      []SimulatedTrade `json:"trades_log"`
}

// SimulatedTrade 回测中的单笔交易记录
type SimulatedTrade struct {
	Time   time.Time       `json:"time"`
	Symbol string          `json:"symbol"`
	Side   Side            `json:"side"`
	Price  decimal.Decimal `json:"price"`
	Size   decimal.Decimal `json:"size"`
	Fee    decimal.Decimal `json:"fee"`
	PnL    decimal.Decimal `json:"pnl"`
}
