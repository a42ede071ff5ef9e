package share

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lolparty/partywatch/internal/common/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisCache implements Cache on a Redis hash. Useful when several party
// tools on the same machine want to observe the share state; the hash TTL
// is only a safety net, Clear on session change is what actually scopes
// the data.
type RedisCache struct {
	logger *zap.Logger
	client *redis.Client
	key    string
	ttl    time.Duration
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache creates a Redis-backed share cache and verifies the
// connection.
func NewRedisCache(logger *zap.Logger, cfg config.CacheRedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisCache{
		logger: logger.Named("share.cache.redis"),
		client: client,
		key:    cfg.Prefix + ":shares",
		ttl:    cfg.TTL,
	}, nil
}

// Put implements Cache.Put
func (c *RedisCache) Put(ctx context.Context, s ReceivedShare) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := c.client.HSet(ctx, c.key, s.Key(), data).Err(); err != nil {
		return err
	}
	if c.ttl > 0 {
		return c.client.Expire(ctx, c.key, c.ttl).Err()
	}
	return nil
}

// Shares implements Cache.Shares
func (c *RedisCache) Shares(ctx context.Context) ([]ReceivedShare, error) {
	fields, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, err
	}
	out := make([]ReceivedShare, 0, len(fields))
	for field, raw := range fields {
		var s ReceivedShare
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			c.logger.Warn("dropping undecodable share entry",
				zap.String("field", field),
				zap.Error(err))
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// Prune implements Cache.Prune
func (c *RedisCache) Prune(ctx context.Context, maxAge time.Duration, now time.Time) error {
	shares, err := c.Shares(ctx)
	if err != nil {
		return err
	}
	var stale []string
	for _, s := range shares {
		if expired(now, s.ReceivedAt, maxAge) {
			stale = append(stale, s.Key())
		}
	}
	if len(stale) == 0 {
		return nil
	}
	return c.client.HDel(ctx, c.key, stale...).Err()
}

// Count implements Cache.Count
func (c *RedisCache) Count(ctx context.Context) (int, error) {
	n, err := c.client.HLen(ctx, c.key).Result()
	return int(n), err
}

// Clear implements Cache.Clear
func (c *RedisCache) Clear(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}
