package trade

import (
	"time"

	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleKind distinguishes carts, quotes and orders
type SaleKind string

const (
	SaleKindCart  SaleKind = "CART"
	SaleKindQuote SaleKind = "QUOTE"
	SaleKindOrder SaleKind = "ORDER"
)

// IsValid checks if the kind is a valid SaleKind
func (k SaleKind) IsValid() bool {
	switch k {
	case SaleKindCart, SaleKindQuote, SaleKindOrder:
		return true
	}
	return false
}

// String returns the string representation of SaleKind
func (k SaleKind) String() string {
	return string(k)
}

// SaleState represents the lifecycle state of a sale
type SaleState string

const (
	SaleStateNew       SaleState = "NEW"
	SaleStatePending   SaleState = "PENDING"
	SaleStateAccepted  SaleState = "ACCEPTED"
	SaleStateCompleted SaleState = "COMPLETED"
	SaleStateCanceled  SaleState = "CANCELED"
	SaleStateRefunded  SaleState = "REFUNDED"
)

// IsValid checks if the state is a valid SaleState
func (s SaleState) IsValid() bool {
	switch s {
	case SaleStateNew, SaleStatePending, SaleStateAccepted, SaleStateCompleted, SaleStateCanceled, SaleStateRefunded:
		return true
	}
	return false
}

// String returns the string representation of SaleState
func (s SaleState) String() string {
	return string(s)
}

// SaleMargin is the margin snapshot stored on a sale
type SaleMargin struct {
	Revenue decimal.Decimal
	Cost    decimal.Decimal
	Amount  decimal.Decimal
	Percent decimal.Decimal
}

// Sale is a cart, quote or order
type Sale struct {
	shared.BaseAggregateRoot
	Kind          SaleKind
	Number        string
	CustomerID    uuid.UUID
	Currency      valueobject.Currency
	State         SaleState
	PaymentState  PaymentSubState
	ShipmentState ShipmentSubState
	InvoiceState  InvoiceSubState

	Items     []*SaleItem
	Payments  []*Payment
	Shipments []*Shipment
	Credits   []*Credit
	Invoices  []*Invoice

	GrandTotal     decimal.Decimal
	PaidTotal      decimal.Decimal
	ShipmentAmount decimal.Decimal // charged to the customer
	ShipmentCost   decimal.Decimal // paid to the carrier

	Margin      SaleMargin
	MarginDirty bool

	AcceptedAt  *time.Time
	CompletedAt *time.Time
}

// NewSale creates an empty sale of the given kind
func NewSale(kind SaleKind, number string, customerID uuid.UUID, currency valueobject.Currency) (*Sale, error) {
	if !kind.IsValid() {
		return nil, shared.InvalidArgument("Invalid sale kind")
	}
	if number == "" {
		return nil, shared.InvalidArgument("Sale number cannot be empty")
	}
	if !currency.IsValid() {
		return nil, shared.InvalidArgument("Invalid currency")
	}
	return &Sale{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Kind:              kind,
		Number:            number,
		CustomerID:        customerID,
		Currency:          currency,
		State:             SaleStateNew,
		PaymentState:      PaymentSubStateNew,
		ShipmentState:     ShipmentSubStateNone,
		InvoiceState:      InvoiceSubStateNew,
		Items:             make([]*SaleItem, 0),
		Payments:          make([]*Payment, 0),
		Shipments:         make([]*Shipment, 0),
		Credits:           make([]*Credit, 0),
		Invoices:          make([]*Invoice, 0),
		GrandTotal:        decimal.Zero,
		PaidTotal:         decimal.Zero,
		ShipmentAmount:    decimal.Zero,
		ShipmentCost:      decimal.Zero,
	}, nil
}

// AddItem adds a root item to the sale
func (s *Sale) AddItem(designation string, subjectID *uuid.UUID, quantity, netPrice decimal.Decimal) (*SaleItem, error) {
	item, err := newSaleItem(s, nil, designation, subjectID, quantity, netPrice)
	if err != nil {
		return nil, err
	}
	s.Items = append(s.Items, item)
	s.Touch()
	return item, nil
}

// FindItem looks an item up anywhere in the item tree
func (s *Sale) FindItem(id uuid.UUID) *SaleItem {
	for _, item := range s.AllItems() {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// AllItems returns every item of the tree, parents before children
func (s *Sale) AllItems() []*SaleItem {
	var out []*SaleItem
	var walk func(items []*SaleItem)
	walk = func(items []*SaleItem) {
		for _, item := range items {
			out = append(out, item)
			walk(item.Children)
		}
	}
	walk(s.Items)
	return out
}

// LeafItems returns the items that carry quantities
func (s *Sale) LeafItems() []*SaleItem {
	var out []*SaleItem
	for _, item := range s.Items {
		out = append(out, item.Leaves()...)
	}
	return out
}

// HasItems returns true when the sale has at least one item
func (s *Sale) HasItems() bool {
	return len(s.Items) > 0
}

// ItemsTotal returns the net total of every item in the tree
func (s *Sale) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.AllItems() {
		total = total.Add(item.NetTotal())
	}
	return total
}

// UpdateGrandTotal recomputes the grand total from items and shipment amount
func (s *Sale) UpdateGrandTotal() {
	s.GrandTotal = s.ItemsTotal().Add(s.ShipmentAmount).Round(2)
	s.Touch()
}

// UpdatePaidTotal recomputes the paid total from the payments
func (s *Sale) UpdatePaidTotal() bool {
	paid := CalculatePaidTotal(s)
	if paid.Equal(s.PaidTotal) {
		return false
	}
	s.PaidTotal = paid
	s.Touch()
	return true
}

// SetMargin stores a computed margin and clears the dirty flag
func (s *Sale) SetMargin(m SaleMargin) {
	s.Margin = m
	s.MarginDirty = false
	s.Touch()
}

// InvalidateMargin flags the stored margin as stale
func (s *Sale) InvalidateMargin() {
	s.MarginDirty = true
}

// StockUnitIDs returns the distinct stock units assigned to the sale's items
func (s *Sale) StockUnitIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	for _, item := range s.AllItems() {
		for _, a := range item.Assignments {
			if a.StockUnit == nil {
				continue
			}
			if _, ok := seen[a.StockUnit.ID]; ok {
				continue
			}
			seen[a.StockUnit.ID] = struct{}{}
			ids = append(ids, a.StockUnit.ID)
		}
	}
	return ids
}

// SaleItem is a line of a sale. Items form a tree: a composite item's
// children quantities are expressed per unit of the parent.
type SaleItem struct {
	ID          uuid.UUID
	Sale        *Sale
	Parent      *SaleItem
	Children    []*SaleItem
	SubjectID   *uuid.UUID
	Designation string
	Quantity    decimal.Decimal
	NetPrice    decimal.Decimal
	Assignments []*inventory.StockAssignment
}

func newSaleItem(sale *Sale, parent *SaleItem, designation string, subjectID *uuid.UUID, quantity, netPrice decimal.Decimal) (*SaleItem, error) {
	if designation == "" {
		return nil, shared.InvalidArgument("Item designation cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, shared.InvalidArgument("Item quantity must be positive")
	}
	if netPrice.IsNegative() {
		return nil, shared.InvalidArgument("Item net price cannot be negative")
	}
	return &SaleItem{
		ID:          uuid.New(),
		Sale:        sale,
		Parent:      parent,
		Children:    make([]*SaleItem, 0),
		SubjectID:   subjectID,
		Designation: designation,
		Quantity:    quantity,
		NetPrice:    netPrice,
		Assignments: make([]*inventory.StockAssignment, 0),
	}, nil
}

// AddChild adds a component to a composite item
func (i *SaleItem) AddChild(designation string, subjectID *uuid.UUID, quantity, netPrice decimal.Decimal) (*SaleItem, error) {
	child, err := newSaleItem(i.Sale, i, designation, subjectID, quantity, netPrice)
	if err != nil {
		return nil, err
	}
	i.Children = append(i.Children, child)
	return child, nil
}

// TotalQuantity returns the quantity multiplied through the parent chain
func (i *SaleItem) TotalQuantity() decimal.Decimal {
	if i.Parent == nil {
		return i.Quantity
	}
	return i.Quantity.Mul(i.Parent.TotalQuantity())
}

// HasChildren returns true for composite items
func (i *SaleItem) HasChildren() bool {
	return len(i.Children) > 0
}

// Leaves returns the leaf descendants of the item, or the item itself
func (i *SaleItem) Leaves() []*SaleItem {
	if !i.HasChildren() {
		return []*SaleItem{i}
	}
	var out []*SaleItem
	for _, child := range i.Children {
		out = append(out, child.Leaves()...)
	}
	return out
}

// IsStockable returns true for leaves bound to a purchasable subject
func (i *SaleItem) IsStockable() bool {
	return !i.HasChildren() && i.SubjectID != nil
}

// NetTotal returns the net price times the total quantity
func (i *SaleItem) NetTotal() decimal.Decimal {
	return i.NetPrice.Mul(i.TotalQuantity())
}

// Assign records a stock assignment consumed by this item
func (i *SaleItem) Assign(unit *inventory.StockUnit, quantity decimal.Decimal) (*inventory.StockAssignment, error) {
	if i.HasChildren() {
		return nil, shared.InvalidArgument("Composite items cannot be assigned to stock")
	}
	if unit == nil {
		return nil, shared.InvalidArgument("Expected a stock unit")
	}
	if i.SubjectID == nil || *i.SubjectID != unit.SubjectID {
		return nil, shared.InvalidArgument("Stock unit subject does not match the item")
	}
	a, err := unit.Assign(i.ID, quantity)
	if err != nil {
		return nil, err
	}
	i.Assignments = append(i.Assignments, a)
	return a, nil
}
