package inventory

import (
	"context"
	"fmt"

	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DeliveryLine is one received line of a supplier delivery
type DeliveryLine struct {
	OrderItemID uuid.UUID
	Quantity    decimal.Decimal
}

// RemainingLine is the quantity still expected for a supplier order item
type RemainingLine struct {
	OrderItemID uuid.UUID
	Designation string
	Ordered     decimal.Decimal
	Received    decimal.Decimal
	Remaining   decimal.Decimal
}

// SupplierDeliveryService registers supplier deliveries and carries the
// received quantities over to the stock units of the ordered lines
type SupplierDeliveryService struct {
	orders    inventory.SupplierOrderRepository
	units     inventory.StockUnitRepository
	persister *shared.PersistenceHelper
	resolver  *inventory.StockUnitStateResolver
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewSupplierDeliveryService creates a new SupplierDeliveryService
func NewSupplierDeliveryService(
	orders inventory.SupplierOrderRepository,
	units inventory.StockUnitRepository,
	persister *shared.PersistenceHelper,
	logger *zap.Logger,
) *SupplierDeliveryService {
	return &SupplierDeliveryService{
		orders:    orders,
		units:     units,
		persister: persister,
		resolver:  inventory.NewStockUnitStateResolver(),
		logger:    logger,
	}
}

// SetEventPublisher sets the publisher receiving SupplierDelivered events
func (s *SupplierDeliveryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// RegisterDelivery records a delivery on the order. Every line is checked
// against the remaining quantity before anything is written; the order and
// the touched units are flushed together. Lines of the same order item
// receive into the same unit.
func (s *SupplierDeliveryService) RegisterDelivery(ctx context.Context, orderID uuid.UUID, lines []DeliveryLine) (*inventory.SupplierDelivery, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "supplier_delivery", "register",
		telemetry.WithAttribute("supplier_order.id", orderID.String()),
	)
	defer span.End()

	if len(lines) == 0 {
		return nil, shared.InvalidArgument("delivery has no lines")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if order.State != inventory.SupplierOrderStateOrdered && order.State != inventory.SupplierOrderStatePartial {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("supplier order %s cannot be delivered in state %s", order.Number, order.State))
	}

	delivery := order.NewDelivery()
	for _, line := range lines {
		item := findOrderItem(order, line.OrderItemID)
		if item == nil {
			return nil, shared.InvalidArgument(fmt.Sprintf("order item %s not found on %s", line.OrderItemID, order.Number))
		}
		if _, err := delivery.AddItem(item, line.Quantity); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("order item %s: %w", item.Designation, err)
		}
	}

	units := make(map[uuid.UUID]*inventory.StockUnit)
	for _, di := range delivery.Items {
		unit, ok := units[di.OrderItem.ID]
		if !ok {
			if unit, err = s.unitFor(ctx, order, di.OrderItem); err != nil {
				return nil, err
			}
			units[di.OrderItem.ID] = unit
		}
		if err := unit.Receive(di.Quantity); err != nil {
			return nil, err
		}
		if _, err := s.resolver.Resolve(unit); err != nil {
			return nil, err
		}
		if err := s.persister.Persist(unit); err != nil {
			return nil, err
		}
	}

	order.ResolveState()
	if err := s.persister.Persist(order); err != nil {
		return nil, err
	}
	if err := s.persister.Flush(ctx); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save delivery: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, inventory.NewSupplierDeliveredEvent(order, delivery)); err != nil {
			s.logger.Warn("failed to publish supplier delivery", zap.Error(err))
		}
	}

	s.logger.Info("supplier delivery registered",
		zap.String("order", order.Number),
		zap.Int("lines", len(delivery.Items)),
		zap.String("state", string(order.State)),
	)
	telemetry.SetOK(span)
	return delivery, nil
}

// Remaining lists the quantity still expected per order line
func (s *SupplierDeliveryService) Remaining(ctx context.Context, orderID uuid.UUID) ([]RemainingLine, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	lines := make([]RemainingLine, 0, len(order.Items))
	for _, item := range order.Items {
		remaining, err := inventory.CalculateDeliveryRemainingQuantity(item)
		if err != nil {
			return nil, err
		}
		lines = append(lines, RemainingLine{
			OrderItemID: item.ID,
			Designation: item.Designation,
			Ordered:     item.Quantity,
			Received:    inventory.CalculateReceivedQuantity(item),
			Remaining:   remaining,
		})
	}
	return lines, nil
}

// unitFor returns the unit linked to the order line, creating it on the
// first delivery of the line
func (s *SupplierDeliveryService) unitFor(ctx context.Context, order *inventory.SupplierOrder, item *inventory.SupplierOrderItem) (*inventory.StockUnit, error) {
	var (
		unit *inventory.StockUnit
		err  error
	)
	if item.StockUnitID != nil {
		unit, err = s.units.FindByID(ctx, *item.StockUnitID)
	} else {
		unit, err = s.units.FindBySupplierOrderItem(ctx, item.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stock unit: %w", err)
	}
	if unit != nil {
		return unit, nil
	}

	unit, err = inventory.NewStockUnit(item.SubjectID, order.Currency)
	if err != nil {
		return nil, err
	}
	if err := unit.SetOrderedQuantity(item.Quantity); err != nil {
		return nil, err
	}
	if err := unit.SetCost(item.NetPrice, decimal.Zero); err != nil {
		return nil, err
	}
	unit.ClearDomainEvents()
	itemID := item.ID
	unit.SupplierOrderItemID = &itemID
	item.StockUnitID = &unit.ID
	s.logger.Debug("stock unit created for supplier order line",
		zap.String("order", order.Number),
		zap.String("stock_unit_id", unit.ID.String()),
	)
	return unit, nil
}

func (s *SupplierDeliveryService) loadOrder(ctx context.Context, id uuid.UUID) (*inventory.SupplierOrder, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load supplier order: %w", err)
	}
	if order == nil {
		return nil, fmt.Errorf("supplier order %s: %w", id, shared.ErrNotFound)
	}
	return order, nil
}

func findOrderItem(order *inventory.SupplierOrder, id uuid.UUID) *inventory.SupplierOrderItem {
	for _, item := range order.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}
