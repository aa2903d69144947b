package inventory

import (
	"time"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockUnitState represents the supply state of a stock unit
type StockUnitState string

const (
	StockUnitStateNew     StockUnitState = "NEW"
	StockUnitStatePending StockUnitState = "PENDING"
	StockUnitStateReady   StockUnitState = "READY"
	StockUnitStateClosed  StockUnitState = "CLOSED"
)

// IsValid checks if the state is a valid StockUnitState
func (s StockUnitState) IsValid() bool {
	switch s {
	case StockUnitStateNew, StockUnitStatePending, StockUnitStateReady, StockUnitStateClosed:
		return true
	}
	return false
}

// String returns the string representation of StockUnitState
func (s StockUnitState) String() string {
	return string(s)
}

// IsOpen returns true for states in which the unit may still be assigned
func (s StockUnitState) IsOpen() bool {
	return s != StockUnitStateClosed
}

// StockUnit tracks ordered, received, reserved and shipped quantities of a
// purchasable subject. Sale items consume it through stock assignments.
type StockUnit struct {
	shared.BaseAggregateRoot
	SubjectID           uuid.UUID
	SupplierOrderItemID *uuid.UUID
	State               StockUnitState
	OrderedQuantity     decimal.Decimal
	ReceivedQuantity    decimal.Decimal
	AdjustedQuantity    decimal.Decimal
	ReservedQuantity    decimal.Decimal // sold through assignments
	ShippedQuantity     decimal.Decimal
	NetPrice            decimal.Decimal // purchase cost per unit
	ShippingPrice       decimal.Decimal // supply cost per unit
	Currency            valueobject.Currency
	EstimatedArrival    *time.Time
	ClosedAt            *time.Time
	Assignments         []*StockAssignment
}

// NewStockUnit creates a stock unit for the given subject
func NewStockUnit(subjectID uuid.UUID, currency valueobject.Currency) (*StockUnit, error) {
	if subjectID == uuid.Nil {
		return nil, shared.InvalidArgument("Subject ID cannot be empty")
	}
	if !currency.IsValid() {
		return nil, shared.InvalidArgument("Invalid currency")
	}
	return &StockUnit{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SubjectID:         subjectID,
		State:             StockUnitStateNew,
		OrderedQuantity:   decimal.Zero,
		ReceivedQuantity:  decimal.Zero,
		AdjustedQuantity:  decimal.Zero,
		ReservedQuantity:  decimal.Zero,
		ShippedQuantity:   decimal.Zero,
		NetPrice:          decimal.Zero,
		ShippingPrice:     decimal.Zero,
		Currency:          currency,
		Assignments:       make([]*StockAssignment, 0),
	}, nil
}

// InStock returns the physical quantity not yet shipped
func (u *StockUnit) InStock() decimal.Decimal {
	return valueobject.ClampZero(u.ReceivedQuantity.Add(u.AdjustedQuantity).Sub(u.ShippedQuantity))
}

// ReservableQuantity returns how much of the ordered quantity is not assigned yet
func (u *StockUnit) ReservableQuantity() decimal.Decimal {
	return valueobject.ClampZero(u.OrderedQuantity.Add(u.AdjustedQuantity).Sub(u.ReservedQuantity))
}

// SetOrderedQuantity updates the quantity ordered from the supplier
func (u *StockUnit) SetOrderedQuantity(quantity decimal.Decimal) error {
	if quantity.IsNegative() {
		return shared.InvalidArgument("Ordered quantity cannot be negative")
	}
	u.OrderedQuantity = quantity
	u.Touch()
	return nil
}

// Receive adds a delivered quantity
func (u *StockUnit) Receive(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.InvalidArgument("Received quantity must be positive")
	}
	u.ReceivedQuantity = u.ReceivedQuantity.Add(quantity)
	u.Touch()
	return nil
}

// Unreceive removes a delivered quantity (delivery item removed or lowered)
func (u *StockUnit) Unreceive(quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return shared.InvalidArgument("Quantity must be positive")
	}
	if quantity.GreaterThan(u.ReceivedQuantity) {
		return shared.InvalidArgument("Cannot remove more than the received quantity")
	}
	u.ReceivedQuantity = u.ReceivedQuantity.Sub(quantity)
	u.Touch()
	return nil
}

// Adjust applies a signed inventory adjustment
func (u *StockUnit) Adjust(quantity decimal.Decimal) {
	u.AdjustedQuantity = u.AdjustedQuantity.Add(quantity)
	u.Touch()
}

// Ship records a shipped quantity; a negative quantity records a return
func (u *StockUnit) Ship(quantity decimal.Decimal) error {
	next := u.ShippedQuantity.Add(quantity)
	if next.IsNegative() {
		return shared.InvalidArgument("Shipped quantity cannot become negative")
	}
	u.ShippedQuantity = next
	u.Touch()
	return nil
}

// SetCost updates the unit costs. A change raises StockUnitCostChangedEvent so
// margins of orders assigned to this unit can be invalidated.
func (u *StockUnit) SetCost(netPrice, shippingPrice decimal.Decimal) error {
	if netPrice.IsNegative() || shippingPrice.IsNegative() {
		return shared.InvalidArgument("Cost cannot be negative")
	}
	if u.NetPrice.Equal(netPrice) && u.ShippingPrice.Equal(shippingPrice) {
		return nil
	}
	oldNet, oldShipping := u.NetPrice, u.ShippingPrice
	u.NetPrice = netPrice
	u.ShippingPrice = shippingPrice
	u.Touch()
	u.AddDomainEvent(NewStockUnitCostChangedEvent(u, oldNet, oldShipping))
	return nil
}

// Assign reserves quantity of this unit for a sale item
func (u *StockUnit) Assign(saleItemID uuid.UUID, quantity decimal.Decimal) (*StockAssignment, error) {
	if saleItemID == uuid.Nil {
		return nil, shared.InvalidArgument("Sale item ID cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.InvalidArgument("Assigned quantity must be positive")
	}
	if !u.State.IsOpen() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Cannot assign a closed stock unit")
	}
	// Units not linked to a supplier order are backorders and accept any quantity.
	if u.SupplierOrderItemID != nil && quantity.GreaterThan(u.ReservableQuantity()) {
		return nil, shared.NewDomainError("INSUFFICIENT_STOCK", "Quantity exceeds the reservable quantity")
	}

	assignment := &StockAssignment{
		ID:              uuid.New(),
		StockUnit:       u,
		SaleItemID:      saleItemID,
		SoldQuantity:    quantity,
		ShippedQuantity: decimal.Zero,
	}
	u.Assignments = append(u.Assignments, assignment)
	u.ReservedQuantity = u.ReservedQuantity.Add(quantity)
	u.Touch()
	return assignment, nil
}

// Unassign removes an assignment and releases its reserved quantity
func (u *StockUnit) Unassign(assignmentID uuid.UUID) error {
	for idx, a := range u.Assignments {
		if a.ID != assignmentID {
			continue
		}
		if a.ShippedQuantity.IsPositive() {
			return shared.NewDomainError(shared.CodeInvalidState, "Cannot remove a partially shipped assignment")
		}
		u.ReservedQuantity = valueobject.ClampZero(u.ReservedQuantity.Sub(a.SoldQuantity))
		u.Assignments = append(u.Assignments[:idx], u.Assignments[idx+1:]...)
		u.Touch()
		return nil
	}
	return shared.NewDomainError("ASSIGNMENT_NOT_FOUND", "Stock assignment not found")
}

// StockAssignment links a sale item to the stock unit it consumes
type StockAssignment struct {
	ID              uuid.UUID
	StockUnit       *StockUnit
	SaleItemID      uuid.UUID
	SoldQuantity    decimal.Decimal
	ShippedQuantity decimal.Decimal
}

// ShippableQuantity is the quantity that can be shipped right now: what is
// sold but not shipped, bounded by the unit's physical stock.
func (a *StockAssignment) ShippableQuantity() decimal.Decimal {
	pending := a.SoldQuantity.Sub(a.ShippedQuantity)
	if a.StockUnit == nil {
		return decimal.Zero
	}
	return valueobject.ClampZero(valueobject.MinDecimal(pending, a.StockUnit.InStock()))
}

// Ship records a shipped quantity on the assignment and its unit
func (a *StockAssignment) Ship(quantity decimal.Decimal) error {
	next := a.ShippedQuantity.Add(quantity)
	if next.IsNegative() || next.GreaterThan(a.SoldQuantity) {
		return shared.InvalidArgument("Shipped quantity out of assignment bounds")
	}
	if a.StockUnit != nil {
		if err := a.StockUnit.Ship(quantity); err != nil {
			return err
		}
	}
	a.ShippedQuantity = next
	return nil
}
