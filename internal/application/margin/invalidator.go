package margin

import (
	"context"
	"sync"

	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/google/uuid"
)

// InvalidationStrategy refreshes the margins of the orders that consume the
// given stock units.
type InvalidationStrategy interface {
	Invalidate(ctx context.Context, unitIDs []uuid.UUID) error
}

// OrderMarginInvalidator collects stock units whose cost changed and hands
// them to the strategy in insertion order. It is not safe for concurrent use;
// see SyncInvalidator.
type OrderMarginInvalidator struct {
	strategy InvalidationStrategy
	ids      []uuid.UUID
	seen     map[uuid.UUID]struct{}
}

// NewOrderMarginInvalidator creates an invalidator draining through strategy
func NewOrderMarginInvalidator(strategy InvalidationStrategy) *OrderMarginInvalidator {
	return &OrderMarginInvalidator{
		strategy: strategy,
		seen:     make(map[uuid.UUID]struct{}),
	}
}

// AddStockUnit queues a unit. Nil units, unpersisted units and units
// already queued are ignored.
func (i *OrderMarginInvalidator) AddStockUnit(unit *inventory.StockUnit) {
	if unit == nil {
		return
	}
	i.AddStockUnitID(unit.ID)
}

// AddStockUnitID queues a unit by id
func (i *OrderMarginInvalidator) AddStockUnitID(id uuid.UUID) {
	if id == uuid.Nil {
		return
	}
	if _, ok := i.seen[id]; ok {
		return
	}
	i.seen[id] = struct{}{}
	i.ids = append(i.ids, id)
}

// Pending returns a copy of the queued ids
func (i *OrderMarginInvalidator) Pending() []uuid.UUID {
	return append([]uuid.UUID(nil), i.ids...)
}

// Invalidate drains the queue through the strategy. The queue is emptied
// before the strategy runs, so a failed run is not retried by the next call.
func (i *OrderMarginInvalidator) Invalidate(ctx context.Context) error {
	if len(i.ids) == 0 {
		return nil
	}
	ids := i.ids
	i.ids = nil
	i.seen = make(map[uuid.UUID]struct{})
	return i.strategy.Invalidate(ctx, ids)
}

// SyncInvalidator serialises access to an OrderMarginInvalidator
type SyncInvalidator struct {
	mu    sync.Mutex
	inner *OrderMarginInvalidator
}

// NewSyncInvalidator wraps inner
func NewSyncInvalidator(inner *OrderMarginInvalidator) *SyncInvalidator {
	return &SyncInvalidator{inner: inner}
}

// AddStockUnit queues a unit
func (s *SyncInvalidator) AddStockUnit(unit *inventory.StockUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.AddStockUnit(unit)
}

// AddStockUnitID queues a unit by id
func (s *SyncInvalidator) AddStockUnitID(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.AddStockUnitID(id)
}

// Pending returns a copy of the queued ids
func (s *SyncInvalidator) Pending() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Pending()
}

// Invalidate drains the queue. Concurrent adds wait for the drain to finish.
func (s *SyncInvalidator) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Invalidate(ctx)
}
