package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/infrastructure"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
)

// CandleProcessor aggregates raw trades into 1m candles and publishes
// them as batches. A batch always carries the forming bar too, so the
// store keeps overwriting it until it closes.
type CandleProcessor struct {
	js      nats.JetStreamContext
	logger  *zap.Logger
	candles map[string]*model.Candle
	mu      sync.Mutex
}

func NewCandleProcessor(js nats.JetStreamContext, logger *zap.Logger) *CandleProcessor {
	return &CandleProcessor{
		js:      js,
		logger:  logger,
		candles: make(map[string]*model.Candle),
	}
}

func (p *CandleProcessor) Run(ctx context.Context) error {
	_, err := p.js.Subscribe("market.raw.*.*", func(msg *nats.Msg) {
		var trade model.Trade
		if err := json.Unmarshal(msg.Data, &trade); err != nil {
			p.logger.Error("failed to unmarshal trade in processor", zap.Error(err))
			return
		}
		infrastructure.TradeProcessRate.WithLabelValues(trade.Symbol).Inc()
		p.processTrade(trade)
		msg.Ack()
	}, nats.Durable("candle-processor"), nats.ManualAck())

	if err != nil {
		return err
	}

	go p.flushLoop(ctx)
	p.logger.Info("candle processor started")
	return nil
}

func (p *CandleProcessor) processTrade(trade model.Trade) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Use 1 minute resolution
	window := trade.Timestamp.Truncate(time.Minute)
	key := fmt.Sprintf("%s:%s:%s", trade.Exchange, trade.Symbol, window.Format(time.RFC3339))

	candle, ok := p.candles[key]
	if !ok {
		candle = &model.Candle{
			Symbol:    trade.Symbol,
			Exchange:  trade.Exchange,
			Period:    "1m",
			Open:      trade.Price,
			High:      trade.Price,
			Low:       trade.Price,
			Close:     trade.Price,
			Volume:    trade.Amount,
			Timestamp: window,
		}
		p.candles[key] = candle
	} else {
		if trade.Price.GreaterThan(candle.High) {
			candle.High = trade.Price
		}
		if trade.Price.LessThan(candle.Low) {
			candle.Low = trade.Price
		}
		candle.Close = trade.Price
		candle.Volume = candle.Volume.Add(trade.Amount)
	}
}

func (p *CandleProcessor) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.flush()
		}
	}
}

// flush publishes every tracked candle, closed and forming alike,
// grouped by (exchange, symbol). Only closed candles leave the map;
// the forming bar stays and keeps getting republished with fresher
// values until its minute rolls over.
func (p *CandleProcessor) flush() {
	p.mu.Lock()
	now := time.Now().Truncate(time.Minute)
	batches := make(map[string]*model.CandleBatch)

	for key, candle := range p.candles {
		bk := candle.Exchange + ":" + candle.Symbol
		batch, ok := batches[bk]
		if !ok {
			batch = &model.CandleBatch{
				Exchange: candle.Exchange,
				Symbol:   candle.Symbol,
				Period:   candle.Period,
			}
			batches[bk] = batch
		}
		batch.Candles = append(batch.Candles, *candle)

		if candle.Timestamp.Before(now) {
			delete(p.candles, key)
		}
	}
	p.mu.Unlock()

	for _, batch := range batches {
		subject := fmt.Sprintf("market.candles.%s.%s", batch.Exchange, batch.Symbol)
		data, err := json.Marshal(batch)
		if err != nil {
			p.logger.Error("failed to marshal candle batch", zap.Error(err))
			continue
		}
		if _, err := p.js.Publish(subject, data); err != nil {
			p.logger.Error("failed to publish candle batch",
				zap.String("subject", subject), zap.Error(err))
		}
	}
}
