package trade

import "github.com/erp/commerce/internal/domain/shared/valueobject"

// PaymentSubState summarises the payments of a sale
type PaymentSubState string

const (
	PaymentSubStateNew         PaymentSubState = "NEW"
	PaymentSubStatePending     PaymentSubState = "PENDING"
	PaymentSubStatePartial     PaymentSubState = "PARTIAL"
	PaymentSubStateOutstanding PaymentSubState = "OUTSTANDING"
	PaymentSubStateCaptured    PaymentSubState = "CAPTURED"
	PaymentSubStateFailed      PaymentSubState = "FAILED"
	PaymentSubStateCanceled    PaymentSubState = "CANCELED"
	PaymentSubStateRefunded    PaymentSubState = "REFUNDED"
)

// IsPaid returns true when the grand total is covered
func (s PaymentSubState) IsPaid() bool {
	return s == PaymentSubStateCaptured || s == PaymentSubStateOutstanding
}

// ShipmentSubState summarises the shipments of a sale
type ShipmentSubState string

const (
	ShipmentSubStateNone      ShipmentSubState = "NONE"
	ShipmentSubStateNew       ShipmentSubState = "NEW"
	ShipmentSubStatePartial   ShipmentSubState = "PARTIAL"
	ShipmentSubStateCompleted ShipmentSubState = "COMPLETED"
	ShipmentSubStateReturned  ShipmentSubState = "RETURNED"
	ShipmentSubStateCanceled  ShipmentSubState = "CANCELED"
)

// InvoiceSubState summarises the invoices of a sale
type InvoiceSubState string

const (
	InvoiceSubStateNew       InvoiceSubState = "NEW"
	InvoiceSubStatePartial   InvoiceSubState = "PARTIAL"
	InvoiceSubStateCompleted InvoiceSubState = "COMPLETED"
	InvoiceSubStateCredited  InvoiceSubState = "CREDITED"
	InvoiceSubStateCanceled  InvoiceSubState = "CANCELED"
)

// ResolvePaymentSubState derives the payment sub-state from the payments
func ResolvePaymentSubState(sale *Sale) PaymentSubState {
	if len(sale.Payments) == 0 {
		return PaymentSubStateNew
	}

	paid := CalculatePaidTotal(sale)
	if paid.IsZero() && CalculateRefundedTotal(sale).IsPositive() {
		return PaymentSubStateRefunded
	}
	if paid.IsPositive() && paid.GreaterThanOrEqual(sale.GrandTotal) {
		if CalculateOutstandingTotal(sale).IsPositive() {
			return PaymentSubStateOutstanding
		}
		return PaymentSubStateCaptured
	}
	if CalculatePendingTotal(sale).IsPositive() {
		return PaymentSubStatePending
	}
	if paid.IsPositive() {
		return PaymentSubStatePartial
	}

	allFailed, allCanceled := true, true
	for _, p := range sale.Payments {
		if p.State != PaymentStateFailed {
			allFailed = false
		}
		if p.State != PaymentStateFailed && !p.State.IsCanceled() {
			allCanceled = false
		}
	}
	switch {
	case allFailed:
		return PaymentSubStateFailed
	case allCanceled:
		return PaymentSubStateCanceled
	}
	return PaymentSubStateNew
}

// ResolveShipmentSubState derives the shipment sub-state. Only stockable
// leaves must be shipped; credited quantities are not expected anymore.
func ResolveShipmentSubState(sale *Sale) ShipmentSubState {
	leaves := make([]*SaleItem, 0)
	for _, leaf := range sale.LeafItems() {
		if leaf.IsStockable() {
			leaves = append(leaves, leaf)
		}
	}
	if len(leaves) == 0 {
		return ShipmentSubStateNone
	}
	if len(sale.Shipments) == 0 {
		return ShipmentSubStateNew
	}
	allCanceled := true
	for _, sh := range sale.Shipments {
		if sh.State != ShipmentStateCanceled {
			allCanceled = false
			break
		}
	}
	if allCanceled {
		return ShipmentSubStateCanceled
	}

	completed, anySent, allReturned := true, false, true
	for _, leaf := range leaves {
		sent := sumShipmentQuantities(leaf, func(sh *Shipment) bool {
			return !sh.Return && sh.State == ShipmentStateShipped
		})
		back := sumShipmentQuantities(leaf, func(sh *Shipment) bool {
			return sh.Return && sh.State == ShipmentStateReturned
		})
		required := valueobject.ClampZero(leaf.TotalQuantity().Sub(CalculateCreditedQuantity(leaf)))

		if sent.IsPositive() {
			anySent = true
		}
		if sent.LessThan(required) {
			completed = false
		}
		if sent.IsZero() || back.LessThan(sent) {
			allReturned = false
		}
	}

	switch {
	case anySent && allReturned:
		return ShipmentSubStateReturned
	case completed:
		return ShipmentSubStateCompleted
	case anySent:
		return ShipmentSubStatePartial
	}
	return ShipmentSubStateNew
}

// ResolveInvoiceSubState derives the invoice sub-state
func ResolveInvoiceSubState(sale *Sale) InvoiceSubState {
	if len(sale.Invoices) == 0 {
		return InvoiceSubStateNew
	}
	allCanceled := true
	for _, inv := range sale.Invoices {
		if !inv.Canceled {
			allCanceled = false
			break
		}
	}
	if allCanceled {
		return InvoiceSubStateCanceled
	}

	leaves := sale.LeafItems()
	allInvoiced, anyInvoiced, allCredited := len(leaves) > 0, false, len(leaves) > 0
	for _, leaf := range leaves {
		total := leaf.TotalQuantity()
		invoiced := CalculateInvoicedQuantity(leaf)
		if invoiced.IsPositive() {
			anyInvoiced = true
		}
		if invoiced.LessThan(total) {
			allInvoiced = false
		}
		if CalculateCreditedQuantity(leaf).LessThan(total) {
			allCredited = false
		}
	}

	switch {
	case allInvoiced && allCredited:
		return InvoiceSubStateCredited
	case allInvoiced:
		return InvoiceSubStateCompleted
	case anyInvoiced:
		return InvoiceSubStatePartial
	}
	return InvoiceSubStateNew
}

// nothingDelivered reports whether no goods left and nothing was billed
func nothingDelivered(shipment ShipmentSubState, invoice InvoiceSubState) bool {
	shipped := shipment == ShipmentSubStatePartial ||
		shipment == ShipmentSubStateCompleted ||
		shipment == ShipmentSubStateReturned
	invoiced := invoice == InvoiceSubStatePartial ||
		invoice == InvoiceSubStateCompleted ||
		invoice == InvoiceSubStateCredited
	return !shipped && !invoiced
}
