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

type BybitConnector struct {
	logger *zap.Logger
	symbol string
}

func NewBybitConnector(logger *zap.Logger, symbol string) *BybitConnector {
	return &BybitConnector{
		logger: logger,
		symbol: symbol,
	}
}

// BybitMessage is the v5 public stream envelope.
type BybitMessage struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	TS    int64           `json:"ts"`
	Data  json.RawMessage `json:"data"`
}

type BybitTradeData struct {
	Timestamp int64  `json:"T"`
	Symbol    string `json:"s"`
	Side      string `json:"S"`
	Size      string `json:"v"`
	Price     string `json:"p"`
	TradeID   string `json:"i"`
	Block     bool   `json:"BT"`
}

type BybitTickerData struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"lastPrice"`
	Bid1Price string `json:"bid1Price"`
	Bid1Size  string `json:"bid1Size"`
	Ask1Price string `json:"ask1Price"`
	Ask1Size  string `json:"ask1Size"`
}

func (b *BybitConnector) Run(ctx context.Context, tradeChan chan<- model.Trade, tickerChan chan<- model.Ticker) {
	url := "wss://stream.bybit.com/v5/public/spot"
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		b.logger.Info("connecting to bybit websocket", zap.String("url", url))
		dialer := websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		}
		conn, _, err := dialer.Dial(url, nil)
		if err != nil {
			b.logger.Error("failed to connect to bybit", zap.Error(err))
			time.Sleep(backoff)
			backoff = b.increaseBackoff(backoff)
			continue
		}

		backoff = time.Second
		b.logger.Info("connected to bybit websocket")
		infrastructure.WSConnections.Inc()

		if err := b.subscribe(conn); err != nil {
			b.logger.Error("failed to subscribe", zap.Error(err))
			infrastructure.WSConnections.Dec()
			conn.Close()
			continue
		}

		if err := b.handleConnection(ctx, conn, tradeChan, tickerChan); err != nil {
			b.logger.Error("connection closed with error", zap.Error(err))
		}
		infrastructure.WSConnections.Dec()
		conn.Close()
	}
}

func (b *BybitConnector) subscribe(conn *websocket.Conn) error {
	sub := map[string]interface{}{
		"op": "subscribe",
		"args": []string{
			fmt.Sprintf("publicTrade.%s", strings.ToUpper(b.symbol)),
			fmt.Sprintf("tickers.%s", strings.ToUpper(b.symbol)),
		},
	}
	return conn.WriteJSON(sub)
}

func (b *BybitConnector) handleConnection(ctx context.Context, conn *websocket.Conn, tradeChan chan<- model.Trade, tickerChan chan<- model.Ticker) error {
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	// Bybit expects a ping every 20s to keep the stream alive
	pingTicker := time.NewTicker(20 * time.Second)
	defer pingTicker.Stop()

	errChan := make(chan error, 1)
	go func() {
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				errChan <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(30 * time.Second))

			var msg BybitMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				continue
			}

			switch {
			case strings.HasPrefix(msg.Topic, "publicTrade."):
				var trades []BybitTradeData
				if err := json.Unmarshal(msg.Data, &trades); err != nil {
					continue
				}
				for _, t := range trades {
					trade := b.convertToModel(t)
					select {
					case tradeChan <- trade:
					default:
						b.logger.Warn("trade channel full, dropping trade", zap.String("trade_id", trade.ID))
					}
				}
			case strings.HasPrefix(msg.Topic, "tickers."):
				var tick BybitTickerData
				if err := json.Unmarshal(msg.Data, &tick); err != nil {
					continue
				}
				if tick.Bid1Price == "" && tick.Ask1Price == "" {
					continue // delta frame without book prices
				}
				select {
				case tickerChan <- b.convertTicker(tick):
				default:
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errChan:
			return err
		case <-pingTicker.C:
			ping := map[string]string{"op": "ping"}
			if err := conn.WriteJSON(ping); err != nil {
				return err
			}
		}
	}
}

func (b *BybitConnector) convertToModel(data BybitTradeData) model.Trade {
	price, _ := decimal.NewFromString(data.Price)
	amount, _ := decimal.NewFromString(data.Size)

	return model.Trade{
		ID:        data.TradeID,
		Symbol:    data.Symbol,
		Exchange:  "bybit",
		Price:     price,
		Amount:    amount,
		Side:      strings.ToLower(data.Side),
		Timestamp: time.Unix(0, data.Timestamp*int64(time.Millisecond)),
	}
}

func (b *BybitConnector) convertTicker(data BybitTickerData) model.Ticker {
	bid, _ := decimal.NewFromString(data.Bid1Price)
	ask, _ := decimal.NewFromString(data.Ask1Price)

	return model.Ticker{
		Exchange:  "bybit",
		Symbol:    data.Symbol,
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now(),
	}
}

func (b *BybitConnector) increaseBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > time.Minute {
		return time.Minute
	}
	return next
}
