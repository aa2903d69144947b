package trade

import (
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// CalculateInvoicedQuantity sums the quantities billed by non-canceled invoices
func CalculateInvoicedQuantity(item *SaleItem) decimal.Decimal {
	return sumLeaves(item, func(leaf *SaleItem) decimal.Decimal {
		quantity := decimal.Zero
		if leaf.Sale == nil {
			return quantity
		}
		for _, inv := range leaf.Sale.Invoices {
			if inv.Canceled {
				continue
			}
			quantity = quantity.Add(quantityInInvoice(inv, leaf))
		}
		return quantity
	})
}

// CalculateInvoiceableQuantity returns the total quantity minus what other
// non-canceled invoices already bill
func CalculateInvoiceableQuantity(item *InvoiceItem) decimal.Decimal {
	if item == nil || item.SaleItem == nil {
		return decimal.Zero
	}
	return sumLeaves(item.SaleItem, func(leaf *SaleItem) decimal.Decimal {
		quantity := leaf.TotalQuantity()
		if leaf.Sale == nil {
			return quantity
		}
		for _, inv := range leaf.Sale.Invoices {
			if inv == item.Invoice || inv.Canceled {
				continue
			}
			quantity = quantity.Sub(quantityInInvoice(inv, leaf))
		}
		return valueobject.ClampZero(quantity)
	})
}

func quantityInInvoice(inv *Invoice, leaf *SaleItem) decimal.Decimal {
	quantity := decimal.Zero
	for _, it := range inv.Items {
		if it.SaleItem == leaf {
			quantity = quantity.Add(it.Quantity)
		}
	}
	return quantity
}
