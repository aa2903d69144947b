package margin

import (
	"context"
	"fmt"

	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UnitQueue accepts stock units whose orders need a margin refresh
type UnitQueue interface {
	AddStockUnit(unit *inventory.StockUnit)
	AddStockUnitID(id uuid.UUID)
}

// StockUnitCostChangedHandler queues the unit of every cost change for margin
// invalidation. The queue is drained by whoever owns the invalidator.
type StockUnitCostChangedHandler struct {
	queue  UnitQueue
	logger *zap.Logger
}

// NewStockUnitCostChangedHandler creates the handler
func NewStockUnitCostChangedHandler(queue UnitQueue, logger *zap.Logger) *StockUnitCostChangedHandler {
	return &StockUnitCostChangedHandler{queue: queue, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *StockUnitCostChangedHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockUnitCostChanged}
}

// Handle queues the unit carried by the event
func (h *StockUnitCostChangedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*inventory.StockUnitCostChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeStockUnitCostChanged, event.EventType())
	}

	if unit := changed.StockUnit(); unit != nil {
		h.queue.AddStockUnit(unit)
	} else {
		h.queue.AddStockUnitID(changed.StockUnitID)
	}

	h.logger.Debug("stock unit cost changed",
		zap.String("stock_unit_id", changed.StockUnitID.String()),
		zap.String("old_net_price", changed.OldNetPrice.String()),
		zap.String("new_net_price", changed.NewNetPrice.String()),
	)
	return nil
}

var _ shared.EventHandler = (*StockUnitCostChangedHandler)(nil)
