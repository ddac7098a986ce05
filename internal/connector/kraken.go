package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/infrastructure"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
)

type KrakenConnector struct {
	logger *zap.Logger
	symbol string // Kraken format: XBT/USD
}

func NewKrakenConnector(logger *zap.Logger, symbol string) *KrakenConnector {
	return &KrakenConnector{
		logger: logger,
		symbol: symbol,
	}
}

func (k *KrakenConnector) Run(ctx context.Context, tradeChan chan<- model.Trade, tickerChan chan<- model.Ticker) {
	url := "wss://ws.kraken.com"
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		k.logger.Info("connecting to kraken websocket", zap.String("url", url))
		dialer := websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		}
		conn, _, err := dialer.Dial(url, nil)
		if err != nil {
			k.logger.Error("failed to connect to kraken", zap.Error(err))
			time.Sleep(backoff)
			backoff = k.increaseBackoff(backoff)
			continue
		}

		backoff = time.Second
		k.logger.Info("connected to kraken websocket")
		infrastructure.WSConnections.Inc()

		if err := k.subscribe(conn); err != nil {
			k.logger.Error("failed to subscribe", zap.Error(err))
			infrastructure.WSConnections.Dec()
			conn.Close()
			continue
		}

		if err := k.handleConnection(ctx, conn, tradeChan, tickerChan); err != nil {
			k.logger.Error("connection closed with error", zap.Error(err))
		}
		infrastructure.WSConnections.Dec()
		conn.Close()
	}
}

func (k *KrakenConnector) subscribe(conn *websocket.Conn) error {
	tradeSub := map[string]interface{}{
		"event":        "subscribe",
		"pair":         []string{k.symbol},
		"subscription": map[string]string{"name": "trade"},
	}
	if err := conn.WriteJSON(tradeSub); err != nil {
		return err
	}
	tickerSub := map[string]interface{}{
		"event":        "subscribe",
		"pair":         []string{k.symbol},
		"subscription": map[string]string{"name": "ticker"},
	}
	return conn.WriteJSON(tickerSub)
}

func (k *KrakenConnector) handleConnection(ctx context.Context, conn *websocket.Conn, tradeChan chan<- model.Trade, tickerChan chan<- model.Ticker) error {
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			_, message, err := conn.ReadMessage()
			if err != nil {
				return err
			}
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			// Kraken sends events as objects and data frames as arrays
			var raw []json.RawMessage
			if err := json.Unmarshal(message, &raw); err != nil {
				continue
			}
			if len(raw) < 4 {
				continue
			}

			var channelName string
			if err := json.Unmarshal(raw[len(raw)-2], &channelName); err != nil {
				continue
			}
			var pair string
			if err := json.Unmarshal(raw[len(raw)-1], &pair); err != nil {
				continue
			}

			switch channelName {
			case "trade":
				var trades [][]interface{}
				if err := json.Unmarshal(raw[1], &trades); err != nil {
					continue
				}
				for _, t := range trades {
					trade, ok := k.convertToModel(t, pair)
					if !ok {
						continue
					}
					select {
					case tradeChan <- trade:
					default:
						k.logger.Warn("trade channel full, dropping trade", zap.String("trade_id", trade.ID))
					}
				}
			case "ticker":
				var data map[string]json.RawMessage
				if err := json.Unmarshal(raw[1], &data); err != nil {
					continue
				}
				ticker, ok := k.convertTicker(data, pair)
				if !ok {
					continue
				}
				select {
				case tickerChan <- ticker:
				default:
				}
			}
		}
	}
}

// convertToModel parses a single trade entry [price, volume, time, side, orderType, misc]
func (k *KrakenConnector) convertToModel(entry []interface{}, pair string) (model.Trade, bool) {
	if len(entry) < 4 {
		return model.Trade{}, false
	}
	priceStr, ok1 := entry[0].(string)
	volumeStr, ok2 := entry[1].(string)
	timeStr, ok3 := entry[2].(string)
	sideStr, ok4 := entry[3].(string)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return model.Trade{}, false
	}

	price, _ := decimal.NewFromString(priceStr)
	amount, _ := decimal.NewFromString(volumeStr)
	ts, _ := decimal.NewFromString(timeStr)

	side := "buy"
	if sideStr == "s" {
		side = "sell"
	}

	sec := ts.IntPart()
	nsec := ts.Sub(decimal.NewFromInt(sec)).Mul(decimal.NewFromInt(int64(time.Second))).IntPart()

	return model.Trade{
		ID:        fmt.Sprintf("%s-%s", pair, timeStr),
		Symbol:    pair,
		Exchange:  "kraken",
		Price:     price,
		Amount:    amount,
		Side:      side,
		Timestamp: time.Unix(sec, nsec),
	}, true
}

// convertTicker reads best bid/ask from the a/b arrays [price, wholeLotVolume, lotVolume]
func (k *KrakenConnector) convertTicker(data map[string]json.RawMessage, pair string) (model.Ticker, bool) {
	var askArr, bidArr []interface{}
	if raw, ok := data["a"]; ok {
		if err := json.Unmarshal(raw, &askArr); err != nil {
			return model.Ticker{}, false
		}
	}
	if raw, ok := data["b"]; ok {
		if err := json.Unmarshal(raw, &bidArr); err != nil {
			return model.Ticker{}, false
		}
	}
	if len(askArr) == 0 || len(bidArr) == 0 {
		return model.Ticker{}, false
	}

	askStr, ok1 := askArr[0].(string)
	bidStr, ok2 := bidArr[0].(string)
	if !ok1 || !ok2 {
		return model.Ticker{}, false
	}

	ask, _ := decimal.NewFromString(askStr)
	bid, _ := decimal.NewFromString(bidStr)

	return model.Ticker{
		Exchange:  "kraken",
		Symbol:    pair,
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now(),
	}, true
}

func (k *KrakenConnector) increaseBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > time.Minute {
		return time.Minute
	}
	return next
}
