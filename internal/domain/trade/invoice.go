package trade

import (
	"time"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice bills quantities of a sale's items
type Invoice struct {
	ID        uuid.UUID
	Sale      *Sale
	Number    string
	Canceled  bool
	Items     []*InvoiceItem
	CreatedAt time.Time
}

// NewInvoice opens an invoice on the sale
func (s *Sale) NewInvoice(number string) (*Invoice, error) {
	if number == "" {
		return nil, shared.InvalidArgument("Invoice number cannot be empty")
	}
	invoice := &Invoice{
		ID:        uuid.New(),
		Sale:      s,
		Number:    number,
		Items:     make([]*InvoiceItem, 0),
		CreatedAt: time.Now(),
	}
	s.Invoices = append(s.Invoices, invoice)
	s.Touch()
	return invoice, nil
}

// AddItem adds an invoiced line, bounded by the invoiceable quantity
func (inv *Invoice) AddItem(saleItem *SaleItem, quantity decimal.Decimal) (*InvoiceItem, error) {
	if saleItem == nil || saleItem.Sale != inv.Sale {
		return nil, shared.InvalidArgument("Sale item does not belong to the invoice's sale")
	}
	if saleItem.HasChildren() {
		return nil, shared.InvalidArgument("Composite items are invoiced through their leaves: " + saleItem.Designation)
	}
	if !quantity.IsPositive() {
		return nil, shared.InvalidArgument("Invoice quantity must be positive")
	}
	item := &InvoiceItem{
		ID:       uuid.New(),
		Invoice:  inv,
		SaleItem: saleItem,
		Quantity: quantity,
	}
	if quantity.GreaterThan(CalculateInvoiceableQuantity(item)) {
		return nil, shared.InvalidArgument("Invoice quantity exceeds the invoiceable quantity")
	}
	inv.Items = append(inv.Items, item)
	return item, nil
}

// Cancel voids the invoice
func (inv *Invoice) Cancel() {
	inv.Canceled = true
}

// InvoiceItem is an invoiced quantity of one sale item
type InvoiceItem struct {
	ID       uuid.UUID
	Invoice  *Invoice
	SaleItem *SaleItem
	Quantity decimal.Decimal
}
