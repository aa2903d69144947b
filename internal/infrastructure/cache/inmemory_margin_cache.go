package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/commerce/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCleanupInterval = 30 * time.Second

type cacheEntry struct {
	margin    trade.SaleMargin
	expiresAt time.Time
}

func (e *cacheEntry) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// InMemoryMarginCache keeps margins in process memory. Expired entries are
// dropped on read and by a background sweep.
type InMemoryMarginCache struct {
	entries    sync.Map // marginKey -> *cacheEntry
	defaultTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
	stopCh     chan struct{}
	stopOnce   sync.Once

	hits   atomic.Int64
	misses atomic.Int64
}

// InMemoryOption configures an InMemoryMarginCache
type InMemoryOption func(*InMemoryMarginCache)

// WithInMemoryLogger sets the logger
func WithInMemoryLogger(logger *zap.Logger) InMemoryOption {
	return func(c *InMemoryMarginCache) {
		c.logger = logger
	}
}

// WithInMemoryClock replaces time.Now
func WithInMemoryClock(now func() time.Time) InMemoryOption {
	return func(c *InMemoryMarginCache) {
		c.now = now
	}
}

// NewInMemoryMarginCache creates the cache and starts its sweeper
func NewInMemoryMarginCache(defaultTTL time.Duration, opts ...InMemoryOption) *InMemoryMarginCache {
	c := &InMemoryMarginCache{
		defaultTTL: defaultTTL,
		logger:     zap.NewNop(),
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupExpired()
	return c
}

// Get returns the cached margin or nil on a miss
func (c *InMemoryMarginCache) Get(ctx context.Context, saleID uuid.UUID) (*trade.SaleMargin, error) {
	key := marginKey(saleID)
	if value, ok := c.entries.Load(key); ok {
		entry := value.(*cacheEntry)
		if !entry.isExpired(c.now()) {
			c.hits.Add(1)
			margin := entry.margin
			return &margin, nil
		}
		c.entries.Delete(key)
	}
	c.misses.Add(1)
	return nil, nil
}

// Set stores a margin. A zero ttl uses the cache default.
func (c *InMemoryMarginCache) Set(ctx context.Context, saleID uuid.UUID, margin trade.SaleMargin, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	c.entries.Store(marginKey(saleID), &cacheEntry{margin: margin, expiresAt: c.now().Add(ttl)})
	return nil
}

// Evict removes the given sales
func (c *InMemoryMarginCache) Evict(ctx context.Context, saleIDs ...uuid.UUID) error {
	for _, id := range saleIDs {
		c.entries.Delete(marginKey(id))
	}
	if len(saleIDs) > 0 {
		c.logger.Debug("evicted margins", zap.Int("count", len(saleIDs)))
	}
	return nil
}

// Close stops the sweeper
func (c *InMemoryMarginCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}

// Stats returns hit and miss counters
func (c *InMemoryMarginCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of stored entries, expired ones included
func (c *InMemoryMarginCache) Len() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *InMemoryMarginCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.doCleanup()
		}
	}
}

func (c *InMemoryMarginCache) doCleanup() {
	now := c.now()
	removed := 0
	c.entries.Range(func(key, value any) bool {
		if value.(*cacheEntry).isExpired(now) {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.logger.Debug("cleaned up expired margins", zap.Int("removed", removed))
	}
}

var _ MarginCache = (*InMemoryMarginCache)(nil)
