package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/engine"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/exchange"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/storage"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/strategy"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/trader"
)

type Handler struct {
	store     *storage.CandleStore
	trader    *trader.Trader
	exchanges *exchange.Manager
	logger    *zap.Logger
}

func NewHandler(store *storage.CandleStore, tr *trader.Trader, exchanges *exchange.Manager, logger *zap.Logger) *Handler {
	return &Handler{
		store:     store,
		trader:    tr,
		exchanges: exchanges,
		logger:    logger,
	}
}

type pairView struct {
	trader.PairStatus
	OpenOrders []model.OpenOrder `json:"open_orders"`
}

// GetPairs lists every watched pair with its last signal and any open orders.
func (h *Handler) GetPairs(c *gin.Context) {
	statuses := h.trader.Pairs()
	views := make([]pairView, 0, len(statuses))

	for _, st := range statuses {
		view := pairView{PairStatus: st, OpenOrders: []model.OpenOrder{}}
		if ex, ok := h.exchanges.Get(st.Exchange); ok {
			orders, err := ex.OpenOrders(c.Request.Context(), st.Symbol)
			if err != nil {
				h.logger.Error("failed to fetch open orders",
					zap.String("exchange", st.Exchange),
					zap.String("symbol", st.Symbol),
					zap.Error(err))
			} else {
				view.OpenOrders = orders
			}
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, views)
}

// GetHistoryCandles returns the most recent candles, newest first.
func (h *Handler) GetHistoryCandles(c *gin.Context) {
	symbol := normalizeSymbolParam(c.Param("symbol"))
	venue := c.DefaultQuery("exchange", "binance")
	period := c.DefaultQuery("period", "1m")

	candles := h.store.Recent(c.Request.Context(), venue, symbol, period, 100)
	c.JSON(http.StatusOK, candles)
}

func (h *Handler) RunBacktest(c *gin.Context) {
	var req struct {
		Exchange       string                 `json:"exchange"`
		Symbol         string                 `json:"symbol" binding:"required"`
		Period         string                 `json:"period"`
		StrategyType   string                 `json:"strategy_type" binding:"required"`
		Config         map[string]interface{} `json:"config"`
		InitialBalance decimal.Decimal        `json:"initial_balance"`
		StartTime      time.Time              `json:"start_time" binding:"required"`
		EndTime        time.Time              `json:"end_time" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Exchange == "" {
		req.Exchange = "binance"
	}
	if req.Period == "" {
		req.Period = "1m"
	}
	if req.InitialBalance.IsZero() {
		req.InitialBalance = decimal.NewFromInt(10000)
	}
	symbol := normalizeSymbolParam(req.Symbol)

	candles, err := h.store.Range(c.Request.Context(), req.Exchange, symbol, req.Period, req.StartTime, req.EndTime)
	if err != nil {
		h.logger.Error("failed to fetch history for backtest", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch data"})
		return
	}
	if len(candles) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no candles in range"})
		return
	}

	strat, err := strategy.NewStrategy(req.StrategyType, req.Config)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tester := engine.NewBacktester(strat, req.Config, req.InitialBalance)
	report, err := tester.Run(candles)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

func normalizeSymbolParam(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, "/", "")
}
