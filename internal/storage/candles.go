package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/infrastructure"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
	"github.com/GuruDevCoder/trading-bot-crypto/internal/notify"
)

// CandleStore persists OHLCV rows keyed by (exchange, symbol, period, time).
// Persistence failures are pushed to the notifier at critical level: the
// engine keeps running on stale data, so the operator must hear about it.
type CandleStore struct {
	pool     *pgxpool.Pool
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewCandleStore(pool *pgxpool.Pool, notifier notify.Notifier, logger *zap.Logger) *CandleStore {
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	return &CandleStore{pool: pool, notifier: notifier, logger: logger}
}

const upsertCandleSQL = `
	INSERT INTO candlesticks (exchange, symbol, period, time, open, high, low, close, volume)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (exchange, symbol, period, time)
	DO UPDATE SET open = $5, high = $6, low = $7, close = $8, volume = $9`

// UpsertBatch writes one market-data delivery inside a single transaction so a
// partial bar update is never visible to concurrent readers. A failing row is
// logged and skipped; its siblings still commit. Re-delivery of the same
// forming bar overwrites the prior OHLCV values.
func (s *CandleStore) UpsertBatch(ctx context.Context, candles []model.Candle) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, c := range candles {
		// Nested transaction = savepoint, so a bad row does not poison the
		// outer transaction for its siblings.
		inner, err := tx.Begin(ctx)
		if err != nil {
			return err
		}
		_, err = inner.Exec(ctx, upsertCandleSQL,
			c.Exchange, c.Symbol, c.Period, c.Timestamp, c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			inner.Rollback(ctx)
			infrastructure.CandleUpsertErrors.Inc()
			s.logger.Error("failed to upsert candle",
				zap.String("exchange", c.Exchange),
				zap.String("symbol", c.Symbol),
				zap.Time("time", c.Timestamp),
				zap.Error(err))
			s.notifier.Send(ctx, notify.LevelCritical,
				fmt.Sprintf("candle write failed for %s %s at %s: %v",
					c.Exchange, c.Symbol, c.Timestamp.Format(time.RFC3339), err))
			continue
		}
		if err := inner.Commit(ctx); err != nil {
			return err
		}
		infrastructure.CandleUpsertRate.WithLabelValues(c.Exchange, c.Symbol).Inc()
	}

	return tx.Commit(ctx)
}

// Recent returns the limit most recent bars in descending time order. The
// newest bar may still be forming. A query failure is logged and reported as
// no data so one bad pair cannot take down the tick loop.
func (s *CandleStore) Recent(ctx context.Context, exchange, symbol, period string, limit int) []model.Candle {
	rows, err := s.pool.Query(ctx, `
		SELECT exchange, symbol, period, time, open, high, low, close, volume
		FROM candlesticks
		WHERE exchange = $1 AND symbol = $2 AND period = $3
		ORDER BY time DESC LIMIT $4`,
		exchange, symbol, period, limit)
	if err != nil {
		s.logger.Error("failed to query candles",
			zap.String("exchange", exchange),
			zap.String("symbol", symbol),
			zap.Error(err))
		s.notifier.Send(ctx, notify.LevelCritical,
			fmt.Sprintf("candle history unavailable for %s %s: %v", exchange, symbol, err))
		return nil
	}
	defer rows.Close()

	return s.scanCandles(rows, exchange, symbol)
}

// Range returns candles between start and end in ascending time order, used
// for backtests.
func (s *CandleStore) Range(ctx context.Context, exchange, symbol, period string, start, end time.Time) ([]model.Candle, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT exchange, symbol, period, time, open, high, low, close, volume
		FROM candlesticks
		WHERE exchange = $1 AND symbol = $2 AND period = $3 AND time >= $4 AND time <= $5
		ORDER BY time ASC`,
		exchange, symbol, period, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return s.scanCandles(rows, exchange, symbol), nil
}

func (s *CandleStore) scanCandles(rows pgx.Rows, exchange, symbol string) []model.Candle {
	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		if err := rows.Scan(&c.Exchange, &c.Symbol, &c.Period, &c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			s.logger.Error("failed to scan candle",
				zap.String("exchange", exchange),
				zap.String("symbol", symbol),
				zap.Error(err))
			continue
		}
		candles = append(candles, c)
	}
	return candles
}
