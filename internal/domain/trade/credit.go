package trade

import (
	"time"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Credit is a credit note issued against a sale
type Credit struct {
	ID        uuid.UUID
	Sale      *Sale
	Number    string
	Items     []*CreditItem
	CreatedAt time.Time
}

// NewCredit opens a credit note on the sale
func (s *Sale) NewCredit(number string) (*Credit, error) {
	if number == "" {
		return nil, shared.InvalidArgument("Credit number cannot be empty")
	}
	credit := &Credit{
		ID:        uuid.New(),
		Sale:      s,
		Number:    number,
		Items:     make([]*CreditItem, 0),
		CreatedAt: time.Now(),
	}
	s.Credits = append(s.Credits, credit)
	s.Touch()
	return credit, nil
}

// RemoveCredit detaches a credit note from the sale
func (s *Sale) RemoveCredit(credit *Credit) {
	for idx, c := range s.Credits {
		if c == credit {
			s.Credits = append(s.Credits[:idx], s.Credits[idx+1:]...)
			s.Touch()
			return
		}
	}
}

// AddItem adds a credited line for a leaf sale item of the credit's sale
func (c *Credit) AddItem(saleItem *SaleItem, quantity decimal.Decimal) (*CreditItem, error) {
	if saleItem == nil || saleItem.Sale != c.Sale {
		return nil, shared.InvalidArgument("Sale item does not belong to the credit's sale")
	}
	if saleItem.HasChildren() {
		return nil, shared.InvalidArgument("Composite items are credited through their leaves: " + saleItem.Designation)
	}
	if quantity.IsNegative() {
		return nil, shared.InvalidArgument("Credit quantity cannot be negative")
	}
	item := &CreditItem{
		ID:       uuid.New(),
		Credit:   c,
		SaleItem: saleItem,
		Quantity: quantity,
	}
	c.Items = append(c.Items, item)
	return item, nil
}

// RemoveItem removes a line from the credit
func (c *Credit) RemoveItem(item *CreditItem) {
	for idx, it := range c.Items {
		if it == item {
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
			return
		}
	}
}

// CreditItem is a credited quantity of one sale item
type CreditItem struct {
	ID       uuid.UUID
	Credit   *Credit
	SaleItem *SaleItem
	Quantity decimal.Decimal
}
