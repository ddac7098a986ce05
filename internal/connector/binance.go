package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/infrastructure"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
)

type BinanceConnector struct {
	logger *zap.Logger
	symbol string
}

func NewBinanceConnector(logger *zap.Logger, symbol string) *BinanceConnector {
	return &BinanceConnector{
		logger: logger,
		symbol: symbol,
	}
}

// BinanceStreamEvent wraps combined-stream payloads.
type BinanceStreamEvent struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// BinanceTradeEvent represents the raw trade event from Binance WS
type BinanceTradeEvent struct {
	EventType    string `json:"e"`
	EventTime    int64  `json:"E"`
	Symbol       string `json:"s"`
	TradeID      int64  `json:"t"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	BuyerID      int64  `json:"b"`
	SellerID     int64  `json:"a"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
	Ignore       bool   `json:"M"`
}

// BinanceBookTickerEvent carries the current best bid/ask.
type BinanceBookTickerEvent struct {
	UpdateID int64  `json:"u"`
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

func (b *BinanceConnector) Run(ctx context.Context, tradeChan chan<- model.Trade, tickerChan chan<- model.Ticker) {
	url := fmt.Sprintf("wss://stream.binance.com:9443/stream?streams=%s@trade/%s@bookTicker", b.symbol, b.symbol)
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		b.logger.Info("connecting to binance websocket", zap.String("url", url))
		dialer := websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		}
		conn, _, err := dialer.Dial(url, nil)
		if err != nil {
			b.logger.Error("failed to connect to binance", zap.Error(err))
			time.Sleep(backoff)
			backoff = b.increaseBackoff(backoff)
			continue
		}

		backoff = time.Second // Reset backoff on successful connection
		b.logger.Info("connected to binance websocket")
		infrastructure.WSConnections.Inc()

		if err := b.handleConnection(ctx, conn, tradeChan, tickerChan); err != nil {
			b.logger.Error("connection closed with error", zap.Error(err))
		}
		infrastructure.WSConnections.Dec()
		conn.Close()
	}
}

func (b *BinanceConnector) handleConnection(ctx context.Context, conn *websocket.Conn, tradeChan chan<- model.Trade, tickerChan chan<- model.Ticker) error {
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			_, message, err := conn.ReadMessage()
			if err != nil {
				return err
			}

			var event BinanceStreamEvent
			if err := json.Unmarshal(message, &event); err != nil {
				b.logger.Error("failed to unmarshal binance stream event", zap.Error(err))
				continue
			}

			switch {
			case strings.HasSuffix(event.Stream, "@trade"):
				var tradeEvent BinanceTradeEvent
				if err := json.Unmarshal(event.Data, &tradeEvent); err != nil {
					continue
				}
				trade := b.convertToModel(tradeEvent)
				select {
				case tradeChan <- trade:
				default:
					b.logger.Warn("trade channel full, dropping trade", zap.String("trade_id", trade.ID))
				}
			case strings.HasSuffix(event.Stream, "@bookTicker"):
				var bookEvent BinanceBookTickerEvent
				if err := json.Unmarshal(event.Data, &bookEvent); err != nil {
					continue
				}
				select {
				case tickerChan <- b.convertTicker(bookEvent):
				default:
					// Tickers supersede each other, dropping is harmless
				}
			}
		}
	}
}

func (b *BinanceConnector) convertToModel(event BinanceTradeEvent) model.Trade {
	price, _ := decimal.NewFromString(event.Price)
	amount, _ := decimal.NewFromString(event.Quantity)

	side := "buy"
	if event.IsBuyerMaker {
		side = "sell" // Maker is buyer means taker is seller
	}

	return model.Trade{
		ID:        fmt.Sprintf("%d", event.TradeID),
		Symbol:    event.Symbol,
		Exchange:  "binance",
		Price:     price,
		Amount:    amount,
		Side:      side,
		Timestamp: time.Unix(0, event.TradeTime*int64(time.Millisecond)),
	}
}

func (b *BinanceConnector) convertTicker(event BinanceBookTickerEvent) model.Ticker {
	bid, _ := decimal.NewFromString(event.BidPrice)
	ask, _ := decimal.NewFromString(event.AskPrice)

	return model.Ticker{
		Exchange:  "binance",
		Symbol:    event.Symbol,
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now(),
	}
}

func (b *BinanceConnector) increaseBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > time.Minute {
		return time.Minute
	}
	return next
}
