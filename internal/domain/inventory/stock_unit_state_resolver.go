package inventory

import (
	"time"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StockUnitStateResolver derives a stock unit state from its quantities
type StockUnitStateResolver struct {
	now func() time.Time
}

// NewStockUnitStateResolver creates a resolver using the wall clock
func NewStockUnitStateResolver() *StockUnitStateResolver {
	return &StockUnitStateResolver{now: time.Now}
}

// WithClock replaces the clock used to stamp ClosedAt
func (r *StockUnitStateResolver) WithClock(now func() time.Time) *StockUnitStateResolver {
	r.now = now
	return r
}

// Resolve writes the resolved state back onto the unit and maintains ClosedAt:
// stamped on entering CLOSED, cleared whenever the unit is not closed.
func (r *StockUnitStateResolver) Resolve(unit *StockUnit) (StockUnitState, error) {
	if unit == nil {
		return "", shared.InvalidArgument("Expected a stock unit")
	}

	state := ResolveStockUnitState(
		unit.OrderedQuantity,
		unit.ReceivedQuantity,
		unit.ReservedQuantity,
		unit.ShippedQuantity,
	)

	if state == StockUnitStateClosed {
		if unit.ClosedAt == nil {
			closedAt := r.now()
			unit.ClosedAt = &closedAt
		}
	} else {
		unit.ClosedAt = nil
	}

	if unit.State != state {
		unit.State = state
		unit.Touch()
	}

	return state, nil
}

// ResolveStockUnitState maps the quantity tuple to a state
func ResolveStockUnitState(ordered, received, reserved, shipped decimal.Decimal) StockUnitState {
	if !ordered.IsPositive() {
		return StockUnitStateNew
	}
	if received.Equal(ordered) && shipped.Equal(ordered) {
		return StockUnitStateClosed
	}
	if received.LessThan(ordered) || received.LessThan(reserved) {
		return StockUnitStatePending
	}
	return StockUnitStateReady
}
