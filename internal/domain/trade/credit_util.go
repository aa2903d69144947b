package trade

import "github.com/shopspring/decimal"

// CalculateCreditableQuantity returns the total quantity of the credit item's
// sale item minus what was shipped and what other credits already cover.
// The result is not clamped: zero or less means nothing can be credited.
func CalculateCreditableQuantity(item *CreditItem) decimal.Decimal {
	if item == nil || item.SaleItem == nil {
		return decimal.Zero
	}
	return sumLeaves(item.SaleItem, func(leaf *SaleItem) decimal.Decimal {
		quantity := leaf.TotalQuantity().Sub(CalculateShippedQuantity(leaf))
		if leaf.Sale == nil {
			return quantity
		}
		for _, credit := range leaf.Sale.Credits {
			if credit == item.Credit {
				continue
			}
			quantity = quantity.Sub(quantityInCredit(credit, leaf))
		}
		return quantity
	})
}

// CalculateCreditedQuantity sums the credited quantities of a sale item
func CalculateCreditedQuantity(item *SaleItem) decimal.Decimal {
	return sumLeaves(item, func(leaf *SaleItem) decimal.Decimal {
		quantity := decimal.Zero
		if leaf.Sale == nil {
			return quantity
		}
		for _, credit := range leaf.Sale.Credits {
			quantity = quantity.Add(quantityInCredit(credit, leaf))
		}
		return quantity
	})
}

// PruneCredit removes the lines that have nothing left to credit and bounds
// the others to their creditable quantity. It returns the removed lines.
func PruneCredit(credit *Credit) []*CreditItem {
	removed := make([]*CreditItem, 0)
	if credit == nil {
		return removed
	}
	for _, item := range append([]*CreditItem(nil), credit.Items...) {
		creditable := CalculateCreditableQuantity(item)
		if !creditable.IsPositive() || !item.Quantity.IsPositive() {
			credit.RemoveItem(item)
			removed = append(removed, item)
			continue
		}
		if item.Quantity.GreaterThan(creditable) {
			item.Quantity = creditable
		}
	}
	return removed
}

func quantityInCredit(credit *Credit, leaf *SaleItem) decimal.Decimal {
	quantity := decimal.Zero
	for _, it := range credit.Items {
		if it.SaleItem == leaf {
			quantity = quantity.Add(it.Quantity)
		}
	}
	return quantity
}
