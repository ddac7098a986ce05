// Package ticker keeps the latest bid/ask snapshot per (exchange, symbol).
// Updates are last-writer-wins; only the most recent value is meaningful.
package ticker

import (
	"sync"

	"github.com/GuruDevCoder/trading-bot-crypto/internal/model"
)

type Cache struct {
	mu      sync.RWMutex
	tickers map[string]model.Ticker
}

func NewCache() *Cache {
	return &Cache{
		tickers: make(map[string]model.Ticker),
	}
}

func key(exchange, symbol string) string {
	return exchange + ":" + symbol
}

// Set replaces the live ticker for (exchange, symbol). No history is kept.
func (c *Cache) Set(t model.Ticker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tickers[key(t.Exchange, t.Symbol)] = t
}

// Get returns the latest ticker, or ok=false when none has been seen yet.
func (c *Cache) Get(exchange, symbol string) (model.Ticker, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tickers[key(exchange, symbol)]
	return t, ok
}
