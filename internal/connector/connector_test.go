package connector

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBinanceConnector_ConvertToModel(t *testing.T) {
	logger := zap.NewNop()
	c := NewBinanceConnector(logger, "btcusdt")

	event := BinanceTradeEvent{
		TradeID:      12345,
		Price:        "50000.00",
		Quantity:     "0.1",
		TradeTime:    1640123456789,
		Symbol:       "BTCUSDT",
		IsBuyerMaker: true,
	}

	trade := c.convertToModel(event)

	assert.Equal(t, "12345", trade.ID)
	assert.Equal(t, "BTCUSDT", trade.Symbol)
	assert.Equal(t, "binance", trade.Exchange)
	assert.True(t, trade.Price.Equal(decimal.NewFromFloat(50000.00)))
	assert.True(t, trade.Amount.Equal(decimal.NewFromFloat(0.1)))
	assert.Equal(t, "sell", trade.Side) // IsBuyerMaker=true means sell
	assert.Equal(t, time.Unix(0, 1640123456789*int64(time.Millisecond)), trade.Timestamp)
}

func TestBinanceConnector_ConvertTicker(t *testing.T) {
	logger := zap.NewNop()
	c := NewBinanceConnector(logger, "btcusdt")

	event := BinanceBookTickerEvent{
		Symbol:   "BTCUSDT",
		BidPrice: "49999.50",
		BidQty:   "2.0",
		AskPrice: "50000.50",
		AskQty:   "1.5",
	}

	ticker := c.convertTicker(event)

	assert.Equal(t, "binance", ticker.Exchange)
	assert.Equal(t, "BTCUSDT", ticker.Symbol)
	assert.True(t, ticker.Bid.Equal(decimal.NewFromFloat(49999.50)))
	assert.True(t, ticker.Ask.Equal(decimal.NewFromFloat(50000.50)))
}

func TestOKXConnector_ConvertToModel(t *testing.T) {
	logger := zap.NewNop()
	c := NewOKXConnector(logger, "BTC-USDT")

	data := OKXTradeData{
		TradeID: "98765",
		Price:   "50100.5",
		Size:    "0.05",
		Side:    "buy",
		TS:      "1640123456789",
		InstID:  "BTC-USDT",
	}

	trade := c.convertToModel(data)

	assert.Equal(t, "98765", trade.ID)
	assert.Equal(t, "BTC-USDT", trade.Symbol)
	assert.Equal(t, "okx", trade.Exchange)
	assert.True(t, trade.Price.Equal(decimal.NewFromFloat(50100.5)))
	assert.True(t, trade.Amount.Equal(decimal.NewFromFloat(0.05)))
	assert.Equal(t, "buy", trade.Side)
}

func TestOKXConnector_ConvertTicker(t *testing.T) {
	logger := zap.NewNop()
	c := NewOKXConnector(logger, "BTC-USDT")

	data := OKXTickerData{
		InstID: "BTC-USDT",
		Last:   "50100.0",
		BidPx:  "50099.5",
		AskPx:  "50100.5",
	}

	ticker := c.convertTicker(data)

	assert.Equal(t, "okx", ticker.Exchange)
	assert.True(t, ticker.Bid.Equal(decimal.NewFromFloat(50099.5)))
	assert.True(t, ticker.Ask.Equal(decimal.NewFromFloat(50100.5)))
}

func TestBybitConnector_ConvertToModel(t *testing.T) {
	logger := zap.NewNop()
	c := NewBybitConnector(logger, "BTCUSDT")

	data := BybitTradeData{
		TradeID:   "654321",
		Symbol:    "BTCUSDT",
		Side:      "Sell",
		Price:     "49999.9",
		Size:      "1.2",
		Timestamp: 1640123456789,
	}

	trade := c.convertToModel(data)

	assert.Equal(t, "654321", trade.ID)
	assert.Equal(t, "bybit", trade.Exchange)
	assert.Equal(t, "sell", trade.Side)
	assert.True(t, trade.Price.Equal(decimal.NewFromFloat(49999.9)))
}

func TestBybitConnector_ConvertTicker(t *testing.T) {
	logger := zap.NewNop()
	c := NewBybitConnector(logger, "BTCUSDT")

	data := BybitTickerData{
		Symbol:    "BTCUSDT",
		Bid1Price: "49998.0",
		Ask1Price: "50001.0",
	}

	ticker := c.convertTicker(data)

	assert.Equal(t, "bybit", ticker.Exchange)
	assert.True(t, ticker.Bid.Equal(decimal.NewFromFloat(49998.0)))
	assert.True(t, ticker.Ask.Equal(decimal.NewFromFloat(50001.0)))
}

func TestKrakenConnector_ConvertToModel(t *testing.T) {
	logger := zap.NewNop()
	c := NewKrakenConnector(logger, "XBT/USD")

	// Kraken data format: [price, volume, time, side, orderType, misc]
	data := []interface{}{
		"50000.1",
		"0.5",
		"1640123456.7890",
		"s",
		"m",
		"",
	}

	trade, ok := c.convertToModel(data, "XBT/USD")

	assert.True(t, ok)
	assert.Equal(t, "kraken", trade.Exchange)
	assert.Equal(t, "sell", trade.Side)
	assert.True(t, trade.Price.Equal(decimal.NewFromFloat(50000.1)))
	assert.True(t, trade.Amount.Equal(decimal.NewFromFloat(0.5)))
}

func TestKrakenConnector_ConvertToModel_Malformed(t *testing.T) {
	logger := zap.NewNop()
	c := NewKrakenConnector(logger, "XBT/USD")

	_, ok := c.convertToModel([]interface{}{"50000.1"}, "XBT/USD")
	assert.False(t, ok)
}

func TestKrakenConnector_ConvertTicker(t *testing.T) {
	logger := zap.NewNop()
	c := NewKrakenConnector(logger, "XBT/USD")

	data := map[string]json.RawMessage{
		"a": json.RawMessage(`["50001.0","1","1.000"]`),
		"b": json.RawMessage(`["49999.0","2","2.000"]`),
	}

	ticker, ok := c.convertTicker(data, "XBT/USD")

	assert.True(t, ok)
	assert.Equal(t, "kraken", ticker.Exchange)
	assert.Equal(t, "XBT/USD", ticker.Symbol)
	assert.True(t, ticker.Bid.Equal(decimal.NewFromFloat(49999.0)))
	assert.True(t, ticker.Ask.Equal(decimal.NewFromFloat(50001.0)))
}

func TestCoinbaseConnector_ConvertToModel(t *testing.T) {
	logger := zap.NewNop()
	c := NewCoinbaseConnector(logger, "BTC-USD")

	event := CoinbaseMatchEvent{
		TradeID:   555,
		ProductID: "BTC-USD",
		Price:     "50050.00",
		Size:      "0.25",
		Side:      "sell", // maker sold, taker bought
		Time:      "2021-12-22T00:00:00Z",
	}

	trade := c.convertToModel(event)

	assert.Equal(t, "555", trade.ID)
	assert.Equal(t, "coinbase", trade.Exchange)
	assert.True(t, trade.Price.Equal(decimal.NewFromFloat(50050.00)))
	assert.Equal(t, "buy", trade.Side)
}

func TestCoinbaseConnector_ConvertTicker(t *testing.T) {
	logger := zap.NewNop()
	c := NewCoinbaseConnector(logger, "BTC-USD")

	event := CoinbaseTickerEvent{
		ProductID: "BTC-USD",
		BestBid:   "50049.0",
		BestAsk:   "50051.0",
	}

	ticker := c.convertTicker(event)

	assert.Equal(t, "coinbase", ticker.Exchange)
	assert.True(t, ticker.Bid.Equal(decimal.NewFromFloat(50049.0)))
	assert.True(t, ticker.Ask.Equal(decimal.NewFromFloat(50051.0)))
}
