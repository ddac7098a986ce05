package connector

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/infrastructure"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
)

type CoinbaseConnector struct {
	logger *zap.Logger
	symbol string // Coinbase format: BTC-USD
}

func NewCoinbaseConnector(logger *zap.Logger, symbol string) *CoinbaseConnector {
	return &CoinbaseConnector{
		logger: logger,
		symbol: symbol,
	}
}

type CoinbaseMatchEvent struct {
	Type      string `json:"type"`
	TradeID   int64  `json:"trade_id"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Side      string `json:"side"`
	Time      string `json:"time"`
}

type CoinbaseTickerEvent struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	BestBid   string `json:"best_bid"`
	BestAsk   string `json:"best_ask"`
	Time      string `json:"time"`
}

func (c *CoinbaseConnector) Run(ctx context.Context, tradeChan chan<- model.Trade, tickerChan chan<- model.Ticker) {
	url := "wss://ws-feed.exchange.coinbase.com"
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.logger.Info("connecting to coinbase websocket", zap.String("url", url))
		dialer := websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		}
		conn, _, err := dialer.Dial(url, nil)
		if err != nil {
			c.logger.Error("failed to connect to coinbase", zap.Error(err))
			time.Sleep(backoff)
			backoff = c.increaseBackoff(backoff)
			continue
		}

		backoff = time.Second
		c.logger.Info("connected to coinbase websocket")
		infrastructure.WSConnections.Inc()

		if err := c.subscribe(conn); err != nil {
			c.logger.Error("failed to subscribe", zap.Error(err))
			infrastructure.WSConnections.Dec()
			conn.Close()
			continue
		}

		if err := c.handleConnection(ctx, conn, tradeChan, tickerChan); err != nil {
			c.logger.Error("connection closed with error", zap.Error(err))
		}
		infrastructure.WSConnections.Dec()
		conn.Close()
	}
}

func (c *CoinbaseConnector) subscribe(conn *websocket.Conn) error {
	sub := map[string]interface{}{
		"type":        "subscribe",
		"product_ids": []string{c.symbol},
		"channels":    []string{"matches", "ticker"},
	}
	return conn.WriteJSON(sub)
}

func (c *CoinbaseConnector) handleConnection(ctx context.Context, conn *websocket.Conn, tradeChan chan<- model.Trade, tickerChan chan<- model.Ticker) error {
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

			var head struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(message, &head); err != nil {
				continue
			}

			switch head.Type {
			case "match", "last_match":
				var event CoinbaseMatchEvent
				if err := json.Unmarshal(message, &event); err != nil {
					continue
				}
				trade := c.convertToModel(event)
				select {
				case tradeChan <- trade:
				default:
					c.logger.Warn("trade channel full, dropping trade", zap.String("trade_id", trade.ID))
				}
			case "ticker":
				var event CoinbaseTickerEvent
				if err := json.Unmarshal(message, &event); err != nil {
					continue
				}
				select {
				case tickerChan <- c.convertTicker(event):
				default:
				}
			}
		}
	}
}

func (c *CoinbaseConnector) convertToModel(event CoinbaseMatchEvent) model.Trade {
	price, _ := decimal.NewFromString(event.Price)
	amount, _ := decimal.NewFromString(event.Size)
	ts, _ := time.Parse(time.RFC3339Nano, event.Time)

	// Coinbase reports the maker side, takers drive the direction
	side := "buy"
	if strings.ToLower(event.Side) == "buy" {
		side = "sell"
	}

	return model.Trade{
		ID:        strconv.FormatInt(event.TradeID, 10),
		Symbol:    event.ProductID,
		Exchange:  "coinbase",
		Price:     price,
		Amount:    amount,
		Side:      side,
		Timestamp: ts,
	}
}

func (c *CoinbaseConnector) convertTicker(event CoinbaseTickerEvent) model.Ticker {
	bid, _ := decimal.NewFromString(event.BestBid)
	ask, _ := decimal.NewFromString(event.BestAsk)

	return model.Ticker{
		Exchange:  "coinbase",
		Symbol:    event.ProductID,
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now(),
	}
}

func (c *CoinbaseConnector) increaseBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > time.Minute {
		return time.Minute
	}
	return next
}
