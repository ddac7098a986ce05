package connector

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/infrastructure"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
)

type OKXConnector struct {
	logger *zap.Logger
	symbol string // OKX format: BTC-USDT
}

func NewOKXConnector(logger *zap.Logger, symbol string) *OKXConnector {
	return &OKXConnector{
		logger: logger,
		symbol: symbol,
	}
}

type OKXMessage struct {
	Arg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data json.RawMessage `json:"data"`
}

type OKXTradeData struct {
	InstID  string `json:"instId"`
	TradeID string `json:"tradeId"`
	Price   string `json:"px"`
	Size    string `json:"sz"`
	Side    string `json:"side"`
	TS      string `json:"ts"`
}

type OKXTickerData struct {
	InstID string `json:"instId"`
	Last   string `json:"last"`
	BidPx  string `json:"bidPx"`
	BidSz  string `json:"bidSz"`
	AskPx  string `json:"askPx"`
	AskSz  string `json:"askSz"`
	TS     string `json:"ts"`
}

func (o *OKXConnector) Run(ctx context.Context, tradeChan chan<- model.Trade, tickerChan chan<- model.Ticker) {
	url := "wss://ws.okx.com:8443/ws/v5/public"
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		o.logger.Info("connecting to okx websocket", zap.String("url", url))
		dialer := websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		}
		conn, _, err := dialer.Dial(url, nil)
		if err != nil {
			o.logger.Error("failed to connect to okx", zap.Error(err))
			time.Sleep(backoff)
			backoff = o.increaseBackoff(backoff)
			continue
		}

		backoff = time.Second
		o.logger.Info("connected to okx websocket")
		infrastructure.WSConnections.Inc()

		if err := o.subscribe(conn); err != nil {
			o.logger.Error("failed to subscribe", zap.Error(err))
			infrastructure.WSConnections.Dec()
			conn.Close()
			continue
		}

		if err := o.handleConnection(ctx, conn, tradeChan, tickerChan); err != nil {
			o.logger.Error("connection closed with error", zap.Error(err))
		}
		infrastructure.WSConnections.Dec()
		conn.Close()
	}
}

func (o *OKXConnector) subscribe(conn *websocket.Conn) error {
	sub := map[string]interface{}{
		"op": "subscribe",
		"args": []map[string]string{
			{"channel": "trades", "instId": o.symbol},
			{"channel": "tickers", "instId": o.symbol},
		},
	}
	return conn.WriteJSON(sub)
}

func (o *OKXConnector) handleConnection(ctx context.Context, conn *websocket.Conn, tradeChan chan<- model.Trade, tickerChan chan<- model.Ticker) error {
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))

	pingTicker := time.NewTicker(25 * time.Second)
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

			if string(message) == "pong" {
				continue
			}

			var msg OKXMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				continue
			}
			if len(msg.Data) == 0 {
				continue // subscription ack
			}

			switch msg.Arg.Channel {
			case "trades":
				var trades []OKXTradeData
				if err := json.Unmarshal(msg.Data, &trades); err != nil {
					continue
				}
				for _, t := range trades {
					trade := o.convertToModel(t)
					select {
					case tradeChan <- trade:
					default:
						o.logger.Warn("trade channel full, dropping trade", zap.String("trade_id", trade.ID))
					}
				}
			case "tickers":
				var ticks []OKXTickerData
				if err := json.Unmarshal(msg.Data, &ticks); err != nil {
					continue
				}
				for _, t := range ticks {
					select {
					case tickerChan <- o.convertTicker(t):
					default:
					}
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
			if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
				return err
			}
		}
	}
}

func (o *OKXConnector) convertToModel(data OKXTradeData) model.Trade {
	price, _ := decimal.NewFromString(data.Price)
	amount, _ := decimal.NewFromString(data.Size)
	ts, _ := strconv.ParseInt(data.TS, 10, 64)

	return model.Trade{
		ID:        data.TradeID,
		Symbol:    data.InstID,
		Exchange:  "okx",
		Price:     price,
		Amount:    amount,
		Side:      data.Side,
		Timestamp: time.Unix(0, ts*int64(time.Millisecond)),
	}
}

func (o *OKXConnector) convertTicker(data OKXTickerData) model.Ticker {
	bid, _ := decimal.NewFromString(data.BidPx)
	ask, _ := decimal.NewFromString(data.AskPx)

	return model.Ticker{
		Exchange:  "okx",
		Symbol:    data.InstID,
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now(),
	}
}

func (o *OKXConnector) increaseBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > time.Minute {
		return time.Minute
	}
	return next
}
