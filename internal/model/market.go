package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade 代表一笔实时成交
type Trade struct {
	ID        string          `json:"id" db:"trade_id"`
	Symbol    string          `json:"symbol" db:"symbol"`
	Exchange  string          `json:"exchange" db:"exchange"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Side      string          `json:"side" db:"side"` // "buy" or "sell"
	Timestamp time.Time       `json:"ts" db:"time"`
}

// Candle 代表一根K线. Uniqueness key: (exchange, symbol, period, time).
// A forming bar is overwritten on every update until it closes.
type Candle struct {
	Symbol    string          `json:"symbol" db:"symbol"`
	Exchange  string          `json:"exchange" db:"exchange"`
	Period    string          `json:"period" db:"period"` // "1m", "15m"
	Open      decimal.Decimal `json:"o" db:"open"`
	High      decimal.Decimal `json:"h" db:"high"`
	Low       decimal.Decimal `json:"l" db:"low"`
	Close     decimal.Decimal `json:"c" db:"close"`
	Volume    decimal.Decimal `json:"v" db:"volume"`
	Timestamp time.Time       `json:"t" db:"time"` // bar open time
}

// CandleBatch carries one market-data delivery of candles for a single
// (exchange, symbol, period). Persisted as one atomic unit.
type CandleBatch struct {
	Exchange string   `json:"exchange"`
	Symbol   string   `json:"symbol"`
	Period   string   `json:"period"`
	Candles  []Candle `json:"candles"`
}

// Ticker 代表最新买一/卖一快照, one live instance per (exchange, symbol).
type Ticker struct {
	Exchange  string          `json:"exchange"`
	Symbol    string          `json:"symbol"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Timestamp time.Time       `json:"ts"`
}
