package inventory

import (
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// CalculateInStock returns the physical quantity free for new reservations
func CalculateInStock(delivered, reserved decimal.Decimal) decimal.Decimal {
	return valueobject.ClampZero(delivered.Sub(reserved))
}

// CalculateVirtualStock returns the quantity ordered from suppliers that is
// neither delivered nor promised yet
func CalculateVirtualStock(ordered, delivered, reserved decimal.Decimal) decimal.Decimal {
	return valueobject.ClampZero(ordered.Sub(valueobject.MaxDecimal(delivered, reserved)))
}

// IsDeletableStockUnit reports whether the unit never carried any stock movement
func IsDeletableStockUnit(unit *StockUnit) bool {
	if unit == nil {
		return false
	}
	return unit.ReceivedQuantity.IsZero() &&
		unit.ReservedQuantity.IsZero() &&
		unit.ShippedQuantity.IsZero()
}

// SubjectStock sums stock levels across the units of a subject
type SubjectStock struct {
	InStock      decimal.Decimal
	VirtualStock decimal.Decimal
	Reserved     decimal.Decimal
}

// CalculateSubjectStock aggregates in-stock and virtual stock over open units
func CalculateSubjectStock(units []*StockUnit) SubjectStock {
	var ordered, delivered, reserved decimal.Decimal
	for _, u := range units {
		if u == nil || u.State == StockUnitStateClosed {
			continue
		}
		ordered = ordered.Add(u.OrderedQuantity.Add(u.AdjustedQuantity))
		delivered = delivered.Add(u.ReceivedQuantity.Add(u.AdjustedQuantity).Sub(u.ShippedQuantity))
		reserved = reserved.Add(u.ReservedQuantity.Sub(u.ShippedQuantity))
	}
	return SubjectStock{
		InStock:      CalculateInStock(delivered, reserved),
		VirtualStock: CalculateVirtualStock(ordered, delivered, reserved),
		Reserved:     valueobject.ClampZero(reserved),
	}
}
