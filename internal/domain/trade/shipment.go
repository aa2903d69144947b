package trade

import (
	"time"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShipmentState represents the lifecycle state of a shipment
type ShipmentState string

const (
	ShipmentStateNew      ShipmentState = "NEW"
	ShipmentStatePending  ShipmentState = "PENDING"
	ShipmentStateReady    ShipmentState = "READY"
	ShipmentStateShipped  ShipmentState = "SHIPPED"
	ShipmentStateReturned ShipmentState = "RETURNED"
	ShipmentStateCanceled ShipmentState = "CANCELED"
)

// IsValid checks if the state is a valid ShipmentState
func (s ShipmentState) IsValid() bool {
	switch s {
	case ShipmentStateNew, ShipmentStatePending, ShipmentStateReady,
		ShipmentStateShipped, ShipmentStateReturned, ShipmentStateCanceled:
		return true
	}
	return false
}

// String returns the string representation of ShipmentState
func (s ShipmentState) String() string {
	return string(s)
}

// IsStockable returns true for states in which stock was already decremented
// (or incremented back for returns). A shipment reaches READY through
// preparation, which moves its stock.
func (s ShipmentState) IsStockable() bool {
	return s == ShipmentStateReady || s == ShipmentStateShipped || s == ShipmentStateReturned
}

// Shipment is a parcel sent to (or returned by) the customer
type Shipment struct {
	ID        uuid.UUID
	Sale      *Sale
	Number    string
	State     ShipmentState
	Return    bool
	Items     []*ShipmentItem
	CreatedAt time.Time
	ShippedAt *time.Time
}

// NewShipment opens a shipment (or a return when isReturn) on the sale
func (s *Sale) NewShipment(number string, isReturn bool) (*Shipment, error) {
	if number == "" {
		return nil, shared.InvalidArgument("Shipment number cannot be empty")
	}
	shipment := &Shipment{
		ID:        uuid.New(),
		Sale:      s,
		Number:    number,
		State:     ShipmentStateNew,
		Return:    isReturn,
		Items:     make([]*ShipmentItem, 0),
		CreatedAt: time.Now(),
	}
	s.Shipments = append(s.Shipments, shipment)
	s.Touch()
	return shipment, nil
}

// FindShipment looks a shipment up by id
func (s *Sale) FindShipment(id uuid.UUID) *Shipment {
	for _, sh := range s.Shipments {
		if sh.ID == id {
			return sh
		}
	}
	return nil
}

// RemoveShipment detaches a shipment from the sale
func (s *Sale) RemoveShipment(shipment *Shipment) {
	for idx, sh := range s.Shipments {
		if sh == shipment {
			s.Shipments = append(s.Shipments[:idx], s.Shipments[idx+1:]...)
			s.Touch()
			return
		}
	}
}

// AddItem adds a line for a leaf sale item of the shipment's sale
func (sh *Shipment) AddItem(saleItem *SaleItem, quantity decimal.Decimal) (*ShipmentItem, error) {
	if saleItem == nil || saleItem.Sale != sh.Sale {
		return nil, shared.InvalidArgument("Sale item does not belong to the shipment's sale")
	}
	if saleItem.HasChildren() {
		return nil, shared.InvalidArgument("Composite items are shipped through their leaves: " + saleItem.Designation)
	}
	if quantity.IsNegative() {
		return nil, shared.InvalidArgument("Shipment quantity cannot be negative")
	}
	item := &ShipmentItem{
		ID:       uuid.New(),
		Shipment: sh,
		SaleItem: saleItem,
		Quantity: quantity,
	}
	sh.Items = append(sh.Items, item)
	return item, nil
}

// RemoveItem removes a line from the shipment
func (sh *Shipment) RemoveItem(item *ShipmentItem) {
	for idx, it := range sh.Items {
		if it == item {
			sh.Items = append(sh.Items[:idx], sh.Items[idx+1:]...)
			return
		}
	}
}

// SetState changes the shipment state
func (sh *Shipment) SetState(state ShipmentState) error {
	if !state.IsValid() {
		return shared.InvalidArgument("Invalid shipment state: " + string(state))
	}
	if state == ShipmentStateReturned && !sh.Return {
		return shared.NewDomainError(shared.CodeInvalidState, "Only returns can reach the returned state")
	}
	if state == ShipmentStateShipped && sh.Return {
		return shared.NewDomainError(shared.CodeInvalidState, "Returns cannot be shipped")
	}
	if (state == ShipmentStateShipped || state == ShipmentStateReturned) && sh.ShippedAt == nil {
		now := time.Now()
		sh.ShippedAt = &now
	}
	sh.State = state
	return nil
}

// ShipmentItem is a shipped quantity of one sale item
type ShipmentItem struct {
	ID       uuid.UUID
	Shipment *Shipment
	SaleItem *SaleItem
	Quantity decimal.Decimal
}
