package models

import (
	"sort"
	"time"

	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/erp/commerce/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleModel is the persistence model for the Sale aggregate root.
type SaleModel struct {
	AggregateModel
	Kind           trade.SaleKind         `gorm:"type:varchar(10);not null;index"`
	Number         string                 `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID     uuid.UUID              `gorm:"type:uuid;not null;index"`
	Currency       string                 `gorm:"type:varchar(3);not null"`
	State          trade.SaleState        `gorm:"type:varchar(20);not null;default:'NEW'"`
	PaymentState   trade.PaymentSubState  `gorm:"type:varchar(20);not null;default:'NEW'"`
	ShipmentState  trade.ShipmentSubState `gorm:"type:varchar(20);not null;default:'NONE'"`
	InvoiceState   trade.InvoiceSubState  `gorm:"type:varchar(20);not null;default:'NEW'"`
	GrandTotal     decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	PaidTotal      decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	ShipmentAmount decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	ShipmentCost   decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	MarginRevenue  decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	MarginCost     decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	MarginAmount   decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	MarginPercent  decimal.Decimal        `gorm:"type:decimal(8,2);not null;default:0"`
	MarginDirty    bool                   `gorm:"not null;default:false;index"`
	AcceptedAt     *time.Time             `gorm:"index"`
	CompletedAt    *time.Time
}

// TableName returns the table name for GORM
func (SaleModel) TableName() string {
	return "sales"
}

// SaleItemModel is a sale line. Composite lines are rebuilt from ParentID.
type SaleItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	ParentID    *uuid.UUID      `gorm:"type:uuid;index"`
	Position    int             `gorm:"not null"`
	SubjectID   *uuid.UUID      `gorm:"type:uuid"`
	Designation string          `gorm:"type:varchar(200);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	NetPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (SaleItemModel) TableName() string {
	return "sale_items"
}

// PaymentModel is a payment of a sale.
type PaymentModel struct {
	ID                  uuid.UUID          `gorm:"type:uuid;primary_key"`
	SaleID              uuid.UUID          `gorm:"type:uuid;not null;index"`
	Position            int                `gorm:"not null"`
	Number              string             `gorm:"type:varchar(50);not null"`
	MethodCode          string             `gorm:"type:varchar(50);not null"`
	MethodFactory       string             `gorm:"type:varchar(50);not null"`
	MethodOutstanding   bool               `gorm:"not null;default:false"`
	MethodCreditBalance bool               `gorm:"not null;default:false"`
	Amount              decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
	Currency            string             `gorm:"type:varchar(3);not null"`
	State               trade.PaymentState `gorm:"type:varchar(20);not null;default:'NEW'"`
	Details             map[string]string  `gorm:"type:text;serializer:json"`
	CompletedAt         *time.Time
	CreatedAt           time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ShipmentModel is a shipment or return of a sale.
type ShipmentModel struct {
	ID        uuid.UUID           `gorm:"type:uuid;primary_key"`
	SaleID    uuid.UUID           `gorm:"type:uuid;not null;index"`
	Number    string              `gorm:"type:varchar(50);not null"`
	State     trade.ShipmentState `gorm:"type:varchar(20);not null;default:'NEW'"`
	Return    bool                `gorm:"not null;default:false"`
	CreatedAt time.Time           `gorm:"not null"`
	ShippedAt *time.Time
}

// TableName returns the table name for GORM
func (ShipmentModel) TableName() string {
	return "shipments"
}

// ShipmentItemModel is a shipped quantity of one sale item.
type ShipmentItemModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	ShipmentID uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (ShipmentItemModel) TableName() string {
	return "shipment_items"
}

// CreditModel is a credit note of a sale.
type CreditModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	SaleID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Number    string    `gorm:"type:varchar(50);not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CreditModel) TableName() string {
	return "credits"
}

// CreditItemModel is a credited quantity of one sale item.
type CreditItemModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	CreditID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (CreditItemModel) TableName() string {
	return "credit_items"
}

// InvoiceModel is an invoice of a sale.
type InvoiceModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	SaleID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Number    string    `gorm:"type:varchar(50);not null"`
	Canceled  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// InvoiceItemModel is an invoiced quantity of one sale item.
type InvoiceItemModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// SaleGraph holds every row of one sale.
type SaleGraph struct {
	Sale          SaleModel
	Items         []SaleItemModel
	Payments      []PaymentModel
	Shipments     []ShipmentModel
	ShipmentItems []ShipmentItemModel
	Credits       []CreditModel
	CreditItems   []CreditItemModel
	Invoices      []InvoiceModel
	InvoiceItems  []InvoiceItemModel
}

// ToDomain rebuilds the Sale. Stock assignments are taken from units, which
// must hold every unit referenced by the sale's items; assignments are shared
// with the unit so both sides observe the same quantities.
func (g *SaleGraph) ToDomain(units map[uuid.UUID]*inventory.StockUnit) *trade.Sale {
	m := g.Sale
	sale := &trade.Sale{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Kind:              m.Kind,
		Number:            m.Number,
		CustomerID:        m.CustomerID,
		Currency:          valueobject.Currency(m.Currency),
		State:             m.State,
		PaymentState:      m.PaymentState,
		ShipmentState:     m.ShipmentState,
		InvoiceState:      m.InvoiceState,
		GrandTotal:        m.GrandTotal,
		PaidTotal:         m.PaidTotal,
		ShipmentAmount:    m.ShipmentAmount,
		ShipmentCost:      m.ShipmentCost,
		Margin: trade.SaleMargin{
			Revenue: m.MarginRevenue,
			Cost:    m.MarginCost,
			Amount:  m.MarginAmount,
			Percent: m.MarginPercent,
		},
		MarginDirty: m.MarginDirty,
		AcceptedAt:  m.AcceptedAt,
		CompletedAt: m.CompletedAt,
	}

	assignments := make(map[uuid.UUID][]*inventory.StockAssignment)
	for _, unit := range units {
		for _, a := range unit.Assignments {
			assignments[a.SaleItemID] = append(assignments[a.SaleItemID], a)
		}
	}

	rows := append([]SaleItemModel(nil), g.Items...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })

	items := make(map[uuid.UUID]*trade.SaleItem, len(rows))
	for _, r := range rows {
		items[r.ID] = &trade.SaleItem{
			ID:          r.ID,
			Sale:        sale,
			Children:    make([]*trade.SaleItem, 0),
			SubjectID:   r.SubjectID,
			Designation: r.Designation,
			Quantity:    r.Quantity,
			NetPrice:    r.NetPrice,
			Assignments: assignments[r.ID],
		}
		if items[r.ID].Assignments == nil {
			items[r.ID].Assignments = make([]*inventory.StockAssignment, 0)
		}
	}
	for _, r := range rows {
		item := items[r.ID]
		if r.ParentID != nil {
			if parent, ok := items[*r.ParentID]; ok {
				item.Parent = parent
				parent.Children = append(parent.Children, item)
				continue
			}
		}
		sale.Items = append(sale.Items, item)
	}

	payments := append([]PaymentModel(nil), g.Payments...)
	sort.SliceStable(payments, func(i, j int) bool { return payments[i].Position < payments[j].Position })
	for _, p := range payments {
		details := p.Details
		if details == nil {
			details = make(map[string]string)
		}
		sale.Payments = append(sale.Payments, &trade.Payment{
			ID:     p.ID,
			Sale:   sale,
			Number: p.Number,
			Method: trade.PaymentMethod{
				Code:          p.MethodCode,
				Factory:       p.MethodFactory,
				Outstanding:   p.MethodOutstanding,
				CreditBalance: p.MethodCreditBalance,
			},
			Amount:      p.Amount,
			Currency:    valueobject.Currency(p.Currency),
			State:       p.State,
			Details:     details,
			CompletedAt: p.CompletedAt,
			CreatedAt:   p.CreatedAt,
		})
	}

	shipments := make(map[uuid.UUID]*trade.Shipment, len(g.Shipments))
	for _, s := range sortedByCreation(g.Shipments, func(s ShipmentModel) time.Time { return s.CreatedAt }) {
		shipment := &trade.Shipment{
			ID:        s.ID,
			Sale:      sale,
			Number:    s.Number,
			State:     s.State,
			Return:    s.Return,
			Items:     make([]*trade.ShipmentItem, 0),
			CreatedAt: s.CreatedAt,
			ShippedAt: s.ShippedAt,
		}
		shipments[s.ID] = shipment
		sale.Shipments = append(sale.Shipments, shipment)
	}
	for _, si := range g.ShipmentItems {
		if shipment, ok := shipments[si.ShipmentID]; ok {
			shipment.Items = append(shipment.Items, &trade.ShipmentItem{
				ID: si.ID, Shipment: shipment, SaleItem: items[si.SaleItemID], Quantity: si.Quantity,
			})
		}
	}

	credits := make(map[uuid.UUID]*trade.Credit, len(g.Credits))
	for _, c := range sortedByCreation(g.Credits, func(c CreditModel) time.Time { return c.CreatedAt }) {
		credit := &trade.Credit{ID: c.ID, Sale: sale, Number: c.Number, Items: make([]*trade.CreditItem, 0), CreatedAt: c.CreatedAt}
		credits[c.ID] = credit
		sale.Credits = append(sale.Credits, credit)
	}
	for _, ci := range g.CreditItems {
		if credit, ok := credits[ci.CreditID]; ok {
			credit.Items = append(credit.Items, &trade.CreditItem{
				ID: ci.ID, Credit: credit, SaleItem: items[ci.SaleItemID], Quantity: ci.Quantity,
			})
		}
	}

	invoices := make(map[uuid.UUID]*trade.Invoice, len(g.Invoices))
	for _, in := range sortedByCreation(g.Invoices, func(in InvoiceModel) time.Time { return in.CreatedAt }) {
		invoice := &trade.Invoice{
			ID: in.ID, Sale: sale, Number: in.Number, Canceled: in.Canceled,
			Items: make([]*trade.InvoiceItem, 0), CreatedAt: in.CreatedAt,
		}
		invoices[in.ID] = invoice
		sale.Invoices = append(sale.Invoices, invoice)
	}
	for _, ii := range g.InvoiceItems {
		if invoice, ok := invoices[ii.InvoiceID]; ok {
			invoice.Items = append(invoice.Items, &trade.InvoiceItem{
				ID: ii.ID, Invoice: invoice, SaleItem: items[ii.SaleItemID], Quantity: ii.Quantity,
			})
		}
	}

	return sale
}

// SaleGraphFromDomain flattens a Sale into rows.
func SaleGraphFromDomain(s *trade.Sale) *SaleGraph {
	g := &SaleGraph{
		Sale: SaleModel{
			Kind:           s.Kind,
			Number:         s.Number,
			CustomerID:     s.CustomerID,
			Currency:       s.Currency.String(),
			State:          s.State,
			PaymentState:   s.PaymentState,
			ShipmentState:  s.ShipmentState,
			InvoiceState:   s.InvoiceState,
			GrandTotal:     s.GrandTotal,
			PaidTotal:      s.PaidTotal,
			ShipmentAmount: s.ShipmentAmount,
			ShipmentCost:   s.ShipmentCost,
			MarginRevenue:  s.Margin.Revenue,
			MarginCost:     s.Margin.Cost,
			MarginAmount:   s.Margin.Amount,
			MarginPercent:  s.Margin.Percent,
			MarginDirty:    s.MarginDirty,
			AcceptedAt:     s.AcceptedAt,
			CompletedAt:    s.CompletedAt,
		},
	}
	g.Sale.FromDomainAggregateRoot(s.BaseAggregateRoot)

	for pos, item := range s.AllItems() {
		row := SaleItemModel{
			ID:          item.ID,
			SaleID:      s.ID,
			Position:    pos,
			SubjectID:   item.SubjectID,
			Designation: item.Designation,
			Quantity:    item.Quantity,
			NetPrice:    item.NetPrice,
		}
		if item.Parent != nil {
			parentID := item.Parent.ID
			row.ParentID = &parentID
		}
		g.Items = append(g.Items, row)
	}

	for pos, p := range s.Payments {
		g.Payments = append(g.Payments, PaymentModel{
			ID:                  p.ID,
			SaleID:              s.ID,
			Position:            pos,
			Number:              p.Number,
			MethodCode:          p.Method.Code,
			MethodFactory:       p.Method.Factory,
			MethodOutstanding:   p.Method.Outstanding,
			MethodCreditBalance: p.Method.CreditBalance,
			Amount:              p.Amount,
			Currency:            p.Currency.String(),
			State:               p.State,
			Details:             p.Details,
			CompletedAt:         p.CompletedAt,
			CreatedAt:           p.CreatedAt,
		})
	}

	for _, sh := range s.Shipments {
		g.Shipments = append(g.Shipments, ShipmentModel{
			ID: sh.ID, SaleID: s.ID, Number: sh.Number, State: sh.State, Return: sh.Return,
			CreatedAt: sh.CreatedAt, ShippedAt: sh.ShippedAt,
		})
		for _, it := range sh.Items {
			if it.SaleItem == nil {
				continue
			}
			g.ShipmentItems = append(g.ShipmentItems, ShipmentItemModel{
				ID: it.ID, ShipmentID: sh.ID, SaleItemID: it.SaleItem.ID, Quantity: it.Quantity,
			})
		}
	}

	for _, c := range s.Credits {
		g.Credits = append(g.Credits, CreditModel{ID: c.ID, SaleID: s.ID, Number: c.Number, CreatedAt: c.CreatedAt})
		for _, it := range c.Items {
			if it.SaleItem == nil {
				continue
			}
			g.CreditItems = append(g.CreditItems, CreditItemModel{
				ID: it.ID, CreditID: c.ID, SaleItemID: it.SaleItem.ID, Quantity: it.Quantity,
			})
		}
	}

	for _, in := range s.Invoices {
		g.Invoices = append(g.Invoices, InvoiceModel{
			ID: in.ID, SaleID: s.ID, Number: in.Number, Canceled: in.Canceled, CreatedAt: in.CreatedAt,
		})
		for _, it := range in.Items {
			if it.SaleItem == nil {
				continue
			}
			g.InvoiceItems = append(g.InvoiceItems, InvoiceItemModel{
				ID: it.ID, InvoiceID: in.ID, SaleItemID: it.SaleItem.ID, Quantity: it.Quantity,
			})
		}
	}
	return g
}

func sortedByCreation[T any](rows []T, createdAt func(T) time.Time) []T {
	out := append([]T(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return createdAt(out[i]).Before(createdAt(out[j])) })
	return out
}
