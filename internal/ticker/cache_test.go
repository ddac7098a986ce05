package ticker

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
)

func TestCache_SetOverwrites(t *testing.T) {
	c := NewCache()

	_, ok := c.Get("bitmex", "XBTUSD")
	assert.False(t, ok)

	c.Set(model.Ticker{
		Exchange:  "bitmex",
		Symbol:    "XBTUSD",
		Bid:       decimal.NewFromInt(50000),
		Ask:       decimal.NewFromInt(50001),
		Timestamp: time.Now(),
	})

	got, ok := c.Get("bitmex", "XBTUSD")
	assert.True(t, ok)
	assert.True(t, got.Bid.Equal(decimal.NewFromInt(50000)))

	// A second update replaces the prior value entirely
	c.Set(model.Ticker{
		Exchange: "bitmex",
		Symbol:   "XBTUSD",
		Bid:      decimal.NewFromInt(50100),
		Ask:      decimal.NewFromInt(50101),
	})

	got, ok = c.Get("bitmex", "XBTUSD")
	assert.True(t, ok)
	assert.True(t, got.Bid.Equal(decimal.NewFromInt(50100)))
}

func TestCache_KeyedPerExchange(t *testing.T) {
	c := NewCache()

	c.Set(model.Ticker{Exchange: "binance", Symbol: "BTCUSDT", Bid: decimal.NewFromInt(1)})
	c.Set(model.Ticker{Exchange: "bybit", Symbol: "BTCUSDT", Bid: decimal.NewFromInt(2)})

	a, _ := c.Get("binance", "BTCUSDT")
	b, _ := c.Get("bybit", "BTCUSDT")
	assert.True(t, a.Bid.Equal(decimal.NewFromInt(1)))
	assert.True(t, b.Bid.Equal(decimal.NewFromInt(2)))
}
