package share

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryCache implements Cache using in-memory storage.
type MemoryCache struct {
	logger *zap.Logger
	mu     sync.RWMutex
	shares map[string]ReceivedShare
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates a new in-memory share cache.
func NewMemoryCache(logger *zap.Logger) *MemoryCache {
	return &MemoryCache{
		logger: logger.Named("share.cache.memory"),
		shares: make(map[string]ReceivedShare),
	}
}

// Put implements Cache.Put
func (c *MemoryCache) Put(_ context.Context, s ReceivedShare) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shares[s.Key()] = s
	return nil
}

// Shares implements Cache.Shares
func (c *MemoryCache) Shares(_ context.Context) ([]ReceivedShare, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ReceivedShare, 0, len(c.shares))
	for _, s := range c.shares {
		out = append(out, s)
	}
	return out, nil
}

// Prune implements Cache.Prune
func (c *MemoryCache) Prune(_ context.Context, maxAge time.Duration, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, s := range c.shares {
		if expired(now, s.ReceivedAt, maxAge) {
			c.logger.Debug("pruning stale share",
				zap.String("key", key),
				zap.Int64("ageSeconds", ageSeconds(now, s.ReceivedAt)))
			delete(c.shares, key)
		}
	}
	return nil
}

// Count implements Cache.Count
func (c *MemoryCache) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.shares), nil
}

// Clear implements Cache.Clear
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.shares)
	return nil
}
