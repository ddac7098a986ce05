package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	TradeProcessRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trade_process_total",
		Help: "Total number of trades processed",
	}, []string{"symbol"})

	CandleUpsertRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "candle_upsert_total",
		Help: "Total number of candles upserted into the store",
	}, []string{"exchange", "symbol"})

	CandleUpsertErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "candle_upsert_errors_total",
		Help: "Total number of failed candle upserts",
	})

	StrategyEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "strategy_evaluations_total",
		Help: "Total number of strategy evaluations per pair",
	}, []string{"exchange", "symbol"})

	SignalsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signals_emitted_total",
		Help: "Total number of non-empty signals emitted",
	}, []string{"exchange", "symbol", "signal"})

	OrderDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_decisions_total",
		Help: "Order reconciliation outcomes",
	}, []string{"exchange", "outcome"})
)
