package cache

import (
	"fmt"
	"time"

	"github.com/erp/commerce/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewMarginCache picks the Redis cache when Redis is enabled, falling back
// to process memory when it cannot be reached and fallback is allowed.
func NewMarginCache(cfg config.RedisConfig, ttl time.Duration, allowFallback bool, logger *zap.Logger) (MarginCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		return NewInMemoryMarginCache(ttl, WithInMemoryLogger(logger)), nil
	}

	redisCache, err := NewRedisMarginCache(RedisOptions{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}, ttl, logger)
	if err == nil {
		logger.Info("using Redis margin cache", zap.String("addr", cfg.Addr()))
		return redisCache, nil
	}

	if !allowFallback {
		return nil, fmt.Errorf("redis margin cache unavailable: %w", err)
	}
	logger.Warn("Redis unavailable, falling back to in-memory margin cache", zap.Error(err))
	return NewInMemoryMarginCache(ttl, WithInMemoryLogger(logger)), nil
}
