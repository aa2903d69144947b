package trade

import (
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// CalculateShippedQuantity sums the quantities of the item sent through
// non-canceled, non-return shipments. Composite items sum their leaves.
func CalculateShippedQuantity(item *SaleItem) decimal.Decimal {
	return sumLeaves(item, func(leaf *SaleItem) decimal.Decimal {
		return sumShipmentQuantities(leaf, func(sh *Shipment) bool {
			return !sh.Return && sh.State != ShipmentStateCanceled
		})
	})
}

// CalculateReturnedQuantity sums the quantities of the item brought back
// through non-canceled return shipments
func CalculateReturnedQuantity(item *SaleItem) decimal.Decimal {
	return sumLeaves(item, func(leaf *SaleItem) decimal.Decimal {
		return sumShipmentQuantities(leaf, func(sh *Shipment) bool {
			return sh.Return && sh.State != ShipmentStateCanceled
		})
	})
}

// CalculateAvailableQuantity returns how much of the shipment item's sale item
// stock can ship right now. A shipment in a stockable state already consumed
// stock for its own lines, so they are added back.
func CalculateAvailableQuantity(item *ShipmentItem) decimal.Decimal {
	if item == nil || item.SaleItem == nil {
		return decimal.Zero
	}
	shipment := item.Shipment
	return sumLeaves(item.SaleItem, func(leaf *SaleItem) decimal.Decimal {
		quantity := decimal.Zero
		for _, a := range leaf.Assignments {
			quantity = quantity.Add(a.ShippableQuantity())
		}
		if shipment != nil && shipment.State.IsStockable() {
			quantity = quantity.Add(quantityInShipment(shipment, leaf))
		}
		return valueobject.ClampZero(quantity)
	})
}

// CalculateExpectedQuantity returns how much of the sale item the shipment
// item may still carry: the total quantity minus what other non-canceled
// shipments claim (returns give quantity back).
func CalculateExpectedQuantity(item *ShipmentItem) decimal.Decimal {
	if item == nil || item.SaleItem == nil {
		return decimal.Zero
	}
	return sumLeaves(item.SaleItem, func(leaf *SaleItem) decimal.Decimal {
		quantity := leaf.TotalQuantity()
		if leaf.Sale == nil {
			return quantity
		}
		for _, sh := range leaf.Sale.Shipments {
			if sh == item.Shipment || sh.State == ShipmentStateCanceled {
				continue
			}
			claimed := quantityInShipment(sh, leaf)
			if sh.Return {
				quantity = quantity.Add(claimed)
			} else {
				quantity = quantity.Sub(claimed)
			}
		}
		return valueobject.ClampZero(quantity)
	})
}

// CalculateReturnableQuantity returns how much of the sale item a return
// shipment item may bring back: shipped minus returned by other returns
func CalculateReturnableQuantity(item *ShipmentItem) decimal.Decimal {
	if item == nil || item.SaleItem == nil {
		return decimal.Zero
	}
	return sumLeaves(item.SaleItem, func(leaf *SaleItem) decimal.Decimal {
		quantity := decimal.Zero
		if leaf.Sale == nil {
			return quantity
		}
		for _, sh := range leaf.Sale.Shipments {
			if sh.State == ShipmentStateCanceled {
				continue
			}
			if !sh.Return && sh.State == ShipmentStateShipped {
				quantity = quantity.Add(quantityInShipment(sh, leaf))
			} else if sh.Return && sh != item.Shipment {
				quantity = quantity.Sub(quantityInShipment(sh, leaf))
			}
		}
		return valueobject.ClampZero(quantity)
	})
}

func sumShipmentQuantities(leaf *SaleItem, match func(sh *Shipment) bool) decimal.Decimal {
	quantity := decimal.Zero
	if leaf.Sale == nil {
		return quantity
	}
	for _, sh := range leaf.Sale.Shipments {
		if match(sh) {
			quantity = quantity.Add(quantityInShipment(sh, leaf))
		}
	}
	return quantity
}

func quantityInShipment(sh *Shipment, leaf *SaleItem) decimal.Decimal {
	quantity := decimal.Zero
	for _, it := range sh.Items {
		if it.SaleItem == leaf {
			quantity = quantity.Add(it.Quantity)
		}
	}
	return quantity
}

// sumLeaves applies fn to the item's leaves and adds the results. Quantities
// never accumulate on a composite item itself.
func sumLeaves(item *SaleItem, fn func(leaf *SaleItem) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	if item == nil {
		return total
	}
	for _, leaf := range item.Leaves() {
		total = total.Add(fn(leaf))
	}
	return total
}
