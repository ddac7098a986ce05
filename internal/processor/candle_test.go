package processor

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
)

func TestCandleProcessor_ProcessTrade(t *testing.T) {
	logger := zap.NewNop()
	p := NewCandleProcessor(nil, logger)

	now := time.Now().Truncate(time.Minute)
	symbol := "BTCUSDT"
	exchange := "binance"

	// 1. First trade creates the candle
	trade1 := model.Trade{
		ID:        "1",
		Symbol:    symbol,
		Exchange:  exchange,
		Price:     decimal.NewFromFloat(50000),
		Amount:    decimal.NewFromFloat(1),
		Timestamp: now.Add(10 * time.Second),
	}
	p.processTrade(trade1)

	key := "binance:BTCUSDT:" + now.Format(time.RFC3339)
	candle, ok := p.candles[key]
	assert.True(t, ok)
	assert.True(t, candle.Open.Equal(decimal.NewFromFloat(50000)))
	assert.True(t, candle.High.Equal(decimal.NewFromFloat(50000)))
	assert.True(t, candle.Low.Equal(decimal.NewFromFloat(50000)))
	assert.True(t, candle.Close.Equal(decimal.NewFromFloat(50000)))
	assert.True(t, candle.Volume.Equal(decimal.NewFromFloat(1)))

	// 2. Second trade updates high and close
	trade2 := model.Trade{
		ID:        "2",
		Symbol:    symbol,
		Exchange:  exchange,
		Price:     decimal.NewFromFloat(50100),
		Amount:    decimal.NewFromFloat(0.5),
		Timestamp: now.Add(20 * time.Second),
	}
	p.processTrade(trade2)

	assert.True(t, candle.High.Equal(decimal.NewFromFloat(50100)))
	assert.True(t, candle.Low.Equal(decimal.NewFromFloat(50000)))
	assert.True(t, candle.Close.Equal(decimal.NewFromFloat(50100)))
	assert.True(t, candle.Volume.Equal(decimal.NewFromFloat(1.5)))

	// 3. Third trade updates low and close
	trade3 := model.Trade{
		ID:        "3",
		Symbol:    symbol,
		Exchange:  exchange,
		Price:     decimal.NewFromFloat(49900),
		Amount:    decimal.NewFromFloat(2),
		Timestamp: now.Add(30 * time.Second),
	}
	p.processTrade(trade3)

	assert.True(t, candle.High.Equal(decimal.NewFromFloat(50100)))
	assert.True(t, candle.Low.Equal(decimal.NewFromFloat(49900)))
	assert.True(t, candle.Close.Equal(decimal.NewFromFloat(49900)))
	assert.True(t, candle.Volume.Equal(decimal.NewFromFloat(3.5)))
}

func TestCandleProcessor_SeparateWindows(t *testing.T) {
	logger := zap.NewNop()
	p := NewCandleProcessor(nil, logger)

	now := time.Now().Truncate(time.Minute)

	p.processTrade(model.Trade{
		ID: "1", Symbol: "BTCUSDT", Exchange: "binance",
		Price: decimal.NewFromFloat(50000), Amount: decimal.NewFromFloat(1),
		Timestamp: now.Add(-time.Minute),
	})
	p.processTrade(model.Trade{
		ID: "2", Symbol: "BTCUSDT", Exchange: "binance",
		Price: decimal.NewFromFloat(50500), Amount: decimal.NewFromFloat(1),
		Timestamp: now,
	})

	// Two distinct minute windows, two candles
	assert.Len(t, p.candles, 2)
	prev := p.candles["binance:BTCUSDT:"+now.Add(-time.Minute).Format(time.RFC3339)]
	assert.NotNil(t, prev)
	assert.True(t, prev.Close.Equal(decimal.NewFromFloat(50000)))
}
