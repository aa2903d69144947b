package inventory

import (
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeStockUnit     = "StockUnit"
	AggregateTypeSupplierOrder = "SupplierOrder"
)

// Event type constants
const (
	EventTypeStockUnitCostChanged = "StockUnitCostChanged"
	EventTypeSupplierDelivered    = "SupplierDelivered"
)

// StockUnitCostChangedEvent is raised when the net or shipping price of a unit changes
type StockUnitCostChangedEvent struct {
	shared.BaseDomainEvent
	StockUnitID      uuid.UUID       `json:"stock_unit_id"`
	SubjectID        uuid.UUID       `json:"subject_id"`
	OldNetPrice      decimal.Decimal `json:"old_net_price"`
	NewNetPrice      decimal.Decimal `json:"new_net_price"`
	OldShippingPrice decimal.Decimal `json:"old_shipping_price"`
	NewShippingPrice decimal.Decimal `json:"new_shipping_price"`

	unit *StockUnit
}

// NewStockUnitCostChangedEvent creates a new StockUnitCostChangedEvent
func NewStockUnitCostChangedEvent(unit *StockUnit, oldNet, oldShipping decimal.Decimal) *StockUnitCostChangedEvent {
	return &StockUnitCostChangedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeStockUnitCostChanged, AggregateTypeStockUnit, unit.ID),
		StockUnitID:      unit.ID,
		SubjectID:        unit.SubjectID,
		OldNetPrice:      oldNet,
		NewNetPrice:      unit.NetPrice,
		OldShippingPrice: oldShipping,
		NewShippingPrice: unit.ShippingPrice,
		unit:             unit,
	}
}

// StockUnit returns the unit that changed
func (e *StockUnitCostChangedEvent) StockUnit() *StockUnit {
	return e.unit
}

// SupplierDeliveredEvent is raised when a supplier delivery is registered
type SupplierDeliveredEvent struct {
	shared.BaseDomainEvent
	SupplierOrderID uuid.UUID `json:"supplier_order_id"`
	DeliveryID      uuid.UUID `json:"delivery_id"`
	Items           []DeliveredItem
}

// DeliveredItem describes one delivered line
type DeliveredItem struct {
	OrderItemID uuid.UUID       `json:"order_item_id"`
	StockUnitID *uuid.UUID      `json:"stock_unit_id,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// NewSupplierDeliveredEvent creates a new SupplierDeliveredEvent
func NewSupplierDeliveredEvent(order *SupplierOrder, delivery *SupplierDelivery) *SupplierDeliveredEvent {
	items := make([]DeliveredItem, 0, len(delivery.Items))
	for _, di := range delivery.Items {
		items = append(items, DeliveredItem{
			OrderItemID: di.OrderItem.ID,
			StockUnitID: di.OrderItem.StockUnitID,
			Quantity:    di.Quantity,
		})
	}
	return &SupplierDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierDelivered, AggregateTypeSupplierOrder, order.ID),
		SupplierOrderID: order.ID,
		DeliveryID:      delivery.ID,
		Items:           items,
	}
}
