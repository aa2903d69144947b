package support

import (
	"time"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/google/uuid"
)

// TicketState represents the state of a support ticket
type TicketState string

const (
	TicketStateNew      TicketState = "NEW"
	TicketStateOpened   TicketState = "OPENED"
	TicketStatePending  TicketState = "PENDING"
	TicketStateInternal TicketState = "INTERNAL"
	TicketStateClosed   TicketState = "CLOSED"
)

// IsValid checks if the state is a valid TicketState
func (s TicketState) IsValid() bool {
	switch s {
	case TicketStateNew, TicketStateOpened, TicketStatePending, TicketStateInternal, TicketStateClosed:
		return true
	}
	return false
}

// String returns the string representation of TicketState
func (s TicketState) String() string {
	return string(s)
}

// Ticket is a support conversation, optionally about orders
type Ticket struct {
	shared.BaseAggregateRoot
	Number     string
	Subject    string
	CustomerID *uuid.UUID
	OrderIDs   []uuid.UUID
	State      TicketState
	Closed     bool
	Internal   bool
	Messages   []*TicketMessage
}

// NewTicket creates a ticket
func NewTicket(number, subject string, customerID *uuid.UUID) (*Ticket, error) {
	if number == "" {
		return nil, shared.InvalidArgument("Ticket number cannot be empty")
	}
	if subject == "" {
		return nil, shared.InvalidArgument("Ticket subject cannot be empty")
	}
	return &Ticket{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		Subject:           subject,
		CustomerID:        customerID,
		OrderIDs:          make([]uuid.UUID, 0),
		State:             TicketStateNew,
		Messages:          make([]*TicketMessage, 0),
	}, nil
}

// AddMessage appends a message to the conversation
func (t *Ticket) AddMessage(content, author string, fromCustomer, internal bool) (*TicketMessage, error) {
	if content == "" {
		return nil, shared.InvalidArgument("Message content cannot be empty")
	}
	if fromCustomer && internal {
		return nil, shared.InvalidArgument("Customer messages cannot be internal")
	}
	m := &TicketMessage{
		ID:        uuid.New(),
		Ticket:    t,
		Content:   content,
		Author:    author,
		Customer:  fromCustomer,
		Internal:  internal,
		CreatedAt: time.Now(),
	}
	t.Messages = append(t.Messages, m)
	t.Touch()
	return m, nil
}

// LinkOrder attaches an order to the ticket
func (t *Ticket) LinkOrder(orderID uuid.UUID) {
	for _, id := range t.OrderIDs {
		if id == orderID {
			return
		}
	}
	t.OrderIDs = append(t.OrderIDs, orderID)
	t.Touch()
}

// Close sets the closed flag
func (t *Ticket) Close() {
	t.Closed = true
	t.Touch()
}

// Reopen clears the closed flag
func (t *Ticket) Reopen() {
	t.Closed = false
	t.Touch()
}

// TicketMessage is a message of a ticket
type TicketMessage struct {
	ID        uuid.UUID
	Ticket    *Ticket
	Content   string
	Author    string
	Customer  bool // written by the customer
	Internal  bool // hidden from the customer
	CreatedAt time.Time
}
