package models

import (
	"sort"
	"time"

	"github.com/erp/commerce/internal/domain/support"
	"github.com/google/uuid"
)

// TicketModel is the persistence model for the Ticket aggregate root.
type TicketModel struct {
	AggregateModel
	Number     string              `gorm:"type:varchar(50);not null;uniqueIndex"`
	Subject    string              `gorm:"type:varchar(200);not null"`
	CustomerID *uuid.UUID          `gorm:"type:uuid;index"`
	State      support.TicketState `gorm:"type:varchar(20);not null;default:'NEW';index"`
	Closed     bool                `gorm:"not null;default:false"`
	Internal   bool                `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (TicketModel) TableName() string {
	return "tickets"
}

// TicketOrderModel links a ticket to an order.
type TicketOrderModel struct {
	TicketID uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID  uuid.UUID `gorm:"type:uuid;primary_key;index"`
	Position int       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TicketOrderModel) TableName() string {
	return "ticket_orders"
}

// TicketMessageModel is one message of a ticket.
type TicketMessageModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	TicketID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Position  int       `gorm:"not null"`
	Content   string    `gorm:"type:text;not null"`
	Author    string    `gorm:"type:varchar(100)"`
	Customer  bool      `gorm:"not null;default:false"`
	Internal  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TicketMessageModel) TableName() string {
	return "ticket_messages"
}

// TicketGraph holds every row of one ticket.
type TicketGraph struct {
	Ticket   TicketModel
	Orders   []TicketOrderModel
	Messages []TicketMessageModel
}

// ToDomain rebuilds the Ticket.
func (g *TicketGraph) ToDomain() *support.Ticket {
	t := &support.Ticket{
		BaseAggregateRoot: g.Ticket.ToDomainAggregateRoot(),
		Number:            g.Ticket.Number,
		Subject:           g.Ticket.Subject,
		CustomerID:        g.Ticket.CustomerID,
		State:             g.Ticket.State,
		Closed:            g.Ticket.Closed,
		Internal:          g.Ticket.Internal,
		OrderIDs:          make([]uuid.UUID, 0, len(g.Orders)),
		Messages:          make([]*support.TicketMessage, 0, len(g.Messages)),
	}

	orders := append([]TicketOrderModel(nil), g.Orders...)
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].Position < orders[j].Position })
	for _, o := range orders {
		t.OrderIDs = append(t.OrderIDs, o.OrderID)
	}

	messages := append([]TicketMessageModel(nil), g.Messages...)
	sort.SliceStable(messages, func(i, j int) bool { return messages[i].Position < messages[j].Position })
	for _, m := range messages {
		t.Messages = append(t.Messages, &support.TicketMessage{
			ID:        m.ID,
			Ticket:    t,
			Content:   m.Content,
			Author:    m.Author,
			Customer:  m.Customer,
			Internal:  m.Internal,
			CreatedAt: m.CreatedAt,
		})
	}
	return t
}

// TicketGraphFromDomain flattens a Ticket into rows.
func TicketGraphFromDomain(t *support.Ticket) *TicketGraph {
	g := &TicketGraph{
		Ticket: TicketModel{
			Number:     t.Number,
			Subject:    t.Subject,
			CustomerID: t.CustomerID,
			State:      t.State,
			Closed:     t.Closed,
			Internal:   t.Internal,
		},
	}
	g.Ticket.FromDomainAggregateRoot(t.BaseAggregateRoot)
	for pos, id := range t.OrderIDs {
		g.Orders = append(g.Orders, TicketOrderModel{TicketID: t.ID, OrderID: id, Position: pos})
	}
	for pos, m := range t.Messages {
		g.Messages = append(g.Messages, TicketMessageModel{
			ID:        m.ID,
			TicketID:  t.ID,
			Position:  pos,
			Content:   m.Content,
			Author:    m.Author,
			Customer:  m.Customer,
			Internal:  m.Internal,
			CreatedAt: m.CreatedAt,
		})
	}
	return g
}
