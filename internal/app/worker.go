package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/connector"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/exchange"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/infrastructure"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/notify"
)

// NormalizeSymbol unifies different exchange symbol formats into a standard one (e.g. BTCUSDT)
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}

type ingestionConnector interface {
	Run(ctx context.Context, trades chan<- model.Trade, tickers chan<- model.Ticker)
}

// streamSymbol resolves the venue-native stream name for a pair. Instance
// symbols are normalized (BTCUSDT); venues that need another format set
// "stream_symbol" in the pair options.
func streamSymbol(exchangeName, symbol string, options map[string]interface{}) string {
	if options != nil {
		if v, ok := options["stream_symbol"].(string); ok && v != "" {
			return v
		}
	}
	if exchangeName == "binance" {
		return strings.ToLower(symbol)
	}
	return symbol
}

func symbolSpecFromOptions(options map[string]interface{}) exchange.SymbolSpec {
	spec := exchange.SymbolSpec{LotStep: decimal.NewFromFloat(0.0001)}
	if options == nil {
		return spec
	}
	if v, ok := options["inverse"].(bool); ok {
		spec.Inverse = v
	}
	if v, ok := options["lot_step"].(float64); ok && v > 0 {
		spec.LotStep = decimal.NewFromFloat(v)
	}
	return spec
}

// startIngestionWorker starts one connector per watched (exchange, symbol)
// and fans its trades and tickers out to NATS.
func (a *App) startIngestionWorker(ctx context.Context) {
	seen := make(map[string]bool)

	for _, pair := range a.Instance.WatchedPairs() {
		key := pair.Exchange + ":" + pair.Symbol
		if seen[key] {
			continue
		}
		seen[key] = true

		symbol := streamSymbol(pair.Exchange, pair.Symbol, pair.Options)

		var c ingestionConnector
		switch pair.Exchange {
		case "binance":
			c = connector.NewBinanceConnector(a.Logger, symbol)
		case "okx":
			c = connector.NewOKXConnector(a.Logger, symbol)
		case "bybit":
			c = connector.NewBybitConnector(a.Logger, symbol)
		case "coinbase":
			c = connector.NewCoinbaseConnector(a.Logger, symbol)
		case "kraken":
			c = connector.NewKrakenConnector(a.Logger, symbol)
		default:
			a.Logger.Warn("unknown exchange", zap.String("exchange", pair.Exchange))
			continue
		}

		go func() {
			tradeChan := make(chan model.Trade, 1000)
			tickerChan := make(chan model.Ticker, 100)

			go c.Run(ctx, tradeChan, tickerChan)

			for {
				select {
				case <-ctx.Done():
					return
				case trade := <-tradeChan:
					trade.Symbol = NormalizeSymbol(trade.Symbol)
					a.publishTrade(trade)
				case tick := <-tickerChan:
					tick.Symbol = NormalizeSymbol(tick.Symbol)
					a.publishTicker(tick)
				}
			}
		}()
	}
}

func (a *App) publishTrade(trade model.Trade) {
	subject := fmt.Sprintf("market.raw.%s.%s", trade.Exchange, trade.Symbol)
	data, err := json.Marshal(trade)
	if err != nil {
		a.Logger.Error("failed to marshal trade", zap.Error(err))
		return
	}
	if _, err := a.JS.Publish(subject, data); err != nil {
		a.Logger.Error("failed to publish to NATS", zap.Error(err))
		return
	}
	infrastructure.TradeProcessRate.WithLabelValues(trade.Symbol).Inc()
}

func (a *App) publishTicker(tick model.Ticker) {
	subject := fmt.Sprintf("market.ticker.%s.%s", tick.Exchange, tick.Symbol)
	data, err := json.Marshal(tick)
	if err != nil {
		a.Logger.Error("failed to marshal ticker", zap.Error(err))
		return
	}
	if _, err := a.JS.Publish(subject, data); err != nil {
		a.Logger.Error("failed to publish ticker to NATS", zap.Error(err))
	}
}

// startPersistenceService subscribes to NATS and keeps the candle store and
// ticker cache current.
func (a *App) startPersistenceService() {
	// 1. Candle batches go to the database as one atomic unit
	_, err := a.JS.Subscribe("market.candles.*.*", func(m *nats.Msg) {
		var batch model.CandleBatch
		if err := json.Unmarshal(m.Data, &batch); err != nil {
			a.Logger.Error("failed to unmarshal candle batch", zap.Error(err))
			return
		}
		if err := a.Store.UpsertBatch(context.Background(), batch.Candles); err != nil {
			a.Logger.Error("failed to persist candle batch",
				zap.String("symbol", batch.Symbol), zap.Error(err))
			a.Notifier.Send(context.Background(), notify.LevelCritical,
				fmt.Sprintf("candle batch lost for %s %s: %v", batch.Exchange, batch.Symbol, err))
			return
		}
		m.Ack()
	}, nats.Durable("candle_saver"), nats.ManualAck())
	if err != nil {
		a.Logger.Fatal("failed to subscribe to candles", zap.Error(err))
	}

	// 2. Tickers refresh the in-memory cache, last write wins
	_, err = a.JS.Subscribe("market.ticker.*.*", func(m *nats.Msg) {
		var tick model.Ticker
		if err := json.Unmarshal(m.Data, &tick); err != nil {
			a.Logger.Error("failed to unmarshal ticker", zap.Error(err))
			return
		}
		a.Tickers.Set(tick)
		m.Ack()
	}, nats.Durable("ticker_cache"), nats.ManualAck())
	if err != nil {
		a.Logger.Fatal("failed to subscribe to tickers", zap.Error(err))
	}
}
