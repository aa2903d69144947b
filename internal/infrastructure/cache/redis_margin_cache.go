package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/commerce/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisMarginCache shares margins between processes through Redis
type RedisMarginCache struct {
	client     *redis.Client
	ownsClient bool
	defaultTTL time.Duration
	logger     *zap.Logger
}

// RedisOptions holds Redis connection settings
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisMarginCache connects to Redis and verifies the connection
func NewRedisMarginCache(opts RedisOptions, defaultTTL time.Duration, logger *zap.Logger) (*RedisMarginCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := NewRedisMarginCacheWithClient(client, defaultTTL, logger)
	c.ownsClient = true
	return c, nil
}

// NewRedisMarginCacheWithClient wraps an existing client. The caller keeps
// ownership of the client.
func NewRedisMarginCacheWithClient(client *redis.Client, defaultTTL time.Duration, logger *zap.Logger) *RedisMarginCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisMarginCache{
		client:     client,
		defaultTTL: defaultTTL,
		logger:     logger,
	}
}

// Get returns the cached margin or nil on a miss
func (c *RedisMarginCache) Get(ctx context.Context, saleID uuid.UUID) (*trade.SaleMargin, error) {
	key := marginKey(saleID)

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get margin from cache: %w", err)
	}

	var margin trade.SaleMargin
	if err := json.Unmarshal(data, &margin); err != nil {
		c.logger.Warn("dropping corrupted margin entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, key)
		return nil, fmt.Errorf("failed to unmarshal margin: %w", err)
	}
	return &margin, nil
}

// Set stores a margin. A zero ttl uses the cache default.
func (c *RedisMarginCache) Set(ctx context.Context, saleID uuid.UUID, margin trade.SaleMargin, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	data, err := json.Marshal(margin)
	if err != nil {
		return fmt.Errorf("failed to marshal margin: %w", err)
	}
	if err := c.client.Set(ctx, marginKey(saleID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set margin in cache: %w", err)
	}
	return nil
}

// Evict removes the given sales in one round trip
func (c *RedisMarginCache) Evict(ctx context.Context, saleIDs ...uuid.UUID) error {
	if len(saleIDs) == 0 {
		return nil
	}
	keys := make([]string, len(saleIDs))
	for i, id := range saleIDs {
		keys[i] = marginKey(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to evict margins: %w", err)
	}
	c.logger.Debug("evicted margins", zap.Int("count", len(keys)))
	return nil
}

// Close closes the client when the cache created it
func (c *RedisMarginCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

var _ MarginCache = (*RedisMarginCache)(nil)
