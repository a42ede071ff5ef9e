package share

import (
	"fmt"

	"github.com/lolparty/partywatch/internal/common/config"
	"go.uber.org/zap"
)

// CacheType represents the type of share cache backend.
type CacheType string

const (
	// CacheTypeMemory represents the in-memory share cache.
	CacheTypeMemory CacheType = "memory"
	// CacheTypeRedis represents the Redis-backed share cache.
	CacheTypeRedis CacheType = "redis"
)

// NewCache creates a share cache based on configuration.
func NewCache(logger *zap.Logger, cfg *config.CacheConfig) (Cache, error) {
	logger.Info("Initializing share cache", zap.String("type", cfg.Type))
	switch CacheType(cfg.Type) {
	case CacheTypeMemory:
		return NewMemoryCache(logger), nil
	case CacheTypeRedis:
		return NewRedisCache(logger, cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported share cache type: %s", cfg.Type)
	}
}
