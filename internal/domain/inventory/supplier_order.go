package inventory

import (
	"time"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SupplierOrderState represents the reception state of a supplier order
type SupplierOrderState string

const (
	SupplierOrderStateNew      SupplierOrderState = "NEW"
	SupplierOrderStateOrdered  SupplierOrderState = "ORDERED"
	SupplierOrderStatePartial  SupplierOrderState = "PARTIAL"
	SupplierOrderStateReceived SupplierOrderState = "RECEIVED"
	SupplierOrderStateCanceled SupplierOrderState = "CANCELED"
)

// IsValid checks if the state is a valid SupplierOrderState
func (s SupplierOrderState) IsValid() bool {
	switch s {
	case SupplierOrderStateNew, SupplierOrderStateOrdered, SupplierOrderStatePartial,
		SupplierOrderStateReceived, SupplierOrderStateCanceled:
		return true
	}
	return false
}

// SupplierOrder is an order placed to a supplier
type SupplierOrder struct {
	shared.BaseAggregateRoot
	Number       string
	SupplierID   uuid.UUID
	Currency     valueobject.Currency
	State        SupplierOrderState
	ShippingCost decimal.Decimal
	OrderedAt    *time.Time
	Items        []*SupplierOrderItem
	Deliveries   []*SupplierDelivery
}

// NewSupplierOrder creates a new supplier order
func NewSupplierOrder(number string, supplierID uuid.UUID, currency valueobject.Currency) (*SupplierOrder, error) {
	if number == "" {
		return nil, shared.InvalidArgument("Order number cannot be empty")
	}
	if supplierID == uuid.Nil {
		return nil, shared.InvalidArgument("Supplier ID cannot be empty")
	}
	return &SupplierOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		SupplierID:        supplierID,
		Currency:          currency,
		State:             SupplierOrderStateNew,
		ShippingCost:      decimal.Zero,
		Items:             make([]*SupplierOrderItem, 0),
		Deliveries:        make([]*SupplierDelivery, 0),
	}, nil
}

// AddItem adds an ordered line
func (o *SupplierOrder) AddItem(subjectID uuid.UUID, designation string, quantity, netPrice decimal.Decimal) (*SupplierOrderItem, error) {
	if subjectID == uuid.Nil {
		return nil, shared.InvalidArgument("Subject ID cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.InvalidArgument("Quantity must be positive")
	}
	if netPrice.IsNegative() {
		return nil, shared.InvalidArgument("Net price cannot be negative")
	}
	item := &SupplierOrderItem{
		ID:          uuid.New(),
		Order:       o,
		SubjectID:   subjectID,
		Designation: designation,
		Quantity:    quantity,
		NetPrice:    netPrice,
	}
	o.Items = append(o.Items, item)
	o.Touch()
	return item, nil
}

// NewDelivery opens a delivery on the order
func (o *SupplierOrder) NewDelivery() *SupplierDelivery {
	d := &SupplierDelivery{
		ID:        uuid.New(),
		Order:     o,
		Items:     make([]*SupplierDeliveryItem, 0),
		CreatedAt: time.Now(),
	}
	o.Deliveries = append(o.Deliveries, d)
	return d
}

// ResolveState derives the reception state from delivered quantities
func (o *SupplierOrder) ResolveState() SupplierOrderState {
	if o.State == SupplierOrderStateCanceled || o.State == SupplierOrderStateNew {
		return o.State
	}
	anyReceived, allReceived := false, true
	for _, item := range o.Items {
		received := CalculateReceivedQuantity(item)
		if received.IsPositive() {
			anyReceived = true
		}
		if received.LessThan(item.Quantity) {
			allReceived = false
		}
	}
	switch {
	case anyReceived && allReceived:
		o.State = SupplierOrderStateReceived
	case anyReceived:
		o.State = SupplierOrderStatePartial
	default:
		o.State = SupplierOrderStateOrdered
	}
	return o.State
}

// MarkOrdered submits the order to the supplier
func (o *SupplierOrder) MarkOrdered(at time.Time) error {
	if o.State != SupplierOrderStateNew {
		return shared.NewDomainError(shared.CodeInvalidState, "Supplier order already submitted")
	}
	if len(o.Items) == 0 {
		return shared.InvalidArgument("Cannot submit a supplier order without items")
	}
	o.State = SupplierOrderStateOrdered
	o.OrderedAt = &at
	o.Touch()
	return nil
}

// SupplierOrderItem is an ordered line
type SupplierOrderItem struct {
	ID          uuid.UUID
	Order       *SupplierOrder
	SubjectID   uuid.UUID
	Designation string
	Quantity    decimal.Decimal
	NetPrice    decimal.Decimal
	StockUnitID *uuid.UUID
}

// SupplierDelivery groups the quantities received in one reception
type SupplierDelivery struct {
	ID        uuid.UUID
	Order     *SupplierOrder
	Items     []*SupplierDeliveryItem
	CreatedAt time.Time
}

// AddItem adds a received line. The quantity cannot exceed what remains to deliver.
func (d *SupplierDelivery) AddItem(orderItem *SupplierOrderItem, quantity decimal.Decimal) (*SupplierDeliveryItem, error) {
	if orderItem == nil || orderItem.Order != d.Order {
		return nil, shared.InvalidArgument("Order item does not belong to the delivery's order")
	}
	if !quantity.IsPositive() {
		return nil, shared.InvalidArgument("Quantity must be positive")
	}
	remaining, err := CalculateDeliveryRemainingQuantity(orderItem)
	if err != nil {
		return nil, err
	}
	if quantity.GreaterThan(remaining) {
		return nil, shared.InvalidArgument("Delivered quantity exceeds the remaining quantity")
	}
	item := &SupplierDeliveryItem{
		ID:        uuid.New(),
		Delivery:  d,
		OrderItem: orderItem,
		Quantity:  quantity,
	}
	d.Items = append(d.Items, item)
	return item, nil
}

// SupplierDeliveryItem is a received line
type SupplierDeliveryItem struct {
	ID        uuid.UUID
	Delivery  *SupplierDelivery
	OrderItem *SupplierOrderItem
	Quantity  decimal.Decimal
}
