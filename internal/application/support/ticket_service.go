package support

import (
	"context"
	"fmt"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/support"
	"github.com/erp/commerce/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessageInput is a message posted on a ticket
type MessageInput struct {
	Content  string
	Author   string
	Customer bool
	Internal bool
}

// TicketService opens tickets and keeps their state in line with the
// conversation after every change
type TicketService struct {
	tickets   support.TicketRepository
	resolver  *support.TicketStateResolver
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewTicketService creates a new TicketService
func NewTicketService(tickets support.TicketRepository, logger *zap.Logger) *TicketService {
	return &TicketService{
		tickets:  tickets,
		resolver: support.NewTicketStateResolver(),
		logger:   logger,
	}
}

// SetEventPublisher sets the publisher receiving ticket notifications
func (s *TicketService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Open creates a ticket, optionally about orders
func (s *TicketService) Open(ctx context.Context, number, subject string, customerID *uuid.UUID, orderIDs ...uuid.UUID) (*support.Ticket, error) {
	existing, err := s.tickets.FindByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("failed to check ticket number: %w", err)
	}
	if existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("ticket %s already exists", number))
	}
	ticket, err := support.NewTicket(number, subject, customerID)
	if err != nil {
		return nil, err
	}
	for _, id := range orderIDs {
		ticket.LinkOrder(id)
	}
	if err := s.save(ctx, ticket); err != nil {
		return nil, err
	}
	s.notify(ctx, shared.NewEntityNotification(shared.ChannelTicket, shared.NotificationPostCreate, ticket.ID, ticket))
	return ticket, nil
}

// PostMessage appends a message. A customer message on a closed ticket
// reopens it.
func (s *TicketService) PostMessage(ctx context.Context, ticketID uuid.UUID, in MessageInput) (*support.TicketMessage, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	message, err := ticket.AddMessage(in.Content, in.Author, in.Customer, in.Internal)
	if err != nil {
		return nil, err
	}
	if in.Customer && ticket.Closed {
		ticket.Reopen()
	}
	if err := s.save(ctx, ticket); err != nil {
		return nil, err
	}
	s.notify(ctx,
		shared.NewEntityNotification(shared.ChannelTicketMessage, shared.NotificationPostCreate, message.ID, message),
		shared.NewEntityNotification(shared.ChannelTicket, shared.NotificationPostUpdate, ticket.ID, ticket),
	)
	return message, nil
}

// Close closes the ticket
func (s *TicketService) Close(ctx context.Context, ticketID uuid.UUID) (*support.Ticket, error) {
	return s.update(ctx, ticketID, (*support.Ticket).Close)
}

// Reopen reopens a closed ticket
func (s *TicketService) Reopen(ctx context.Context, ticketID uuid.UUID) (*support.Ticket, error) {
	return s.update(ctx, ticketID, (*support.Ticket).Reopen)
}

// LinkOrder attaches an order to the ticket
func (s *TicketService) LinkOrder(ctx context.Context, ticketID, orderID uuid.UUID) (*support.Ticket, error) {
	return s.update(ctx, ticketID, func(t *support.Ticket) { t.LinkOrder(orderID) })
}

func (s *TicketService) update(ctx context.Context, ticketID uuid.UUID, fn func(*support.Ticket)) (*support.Ticket, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	fn(ticket)
	if err := s.save(ctx, ticket); err != nil {
		return nil, err
	}
	s.notify(ctx, shared.NewEntityNotification(shared.ChannelTicket, shared.NotificationPostUpdate, ticket.ID, ticket))
	return ticket, nil
}

func (s *TicketService) load(ctx context.Context, id uuid.UUID) (*support.Ticket, error) {
	ticket, err := s.tickets.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}
	if ticket == nil {
		return nil, fmt.Errorf("ticket %s: %w", id, shared.ErrNotFound)
	}
	return ticket, nil
}

func (s *TicketService) save(ctx context.Context, ticket *support.Ticket) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "ticket", "save",
		telemetry.WithAttribute(telemetry.SpanAttrTicketNumber, ticket.Number),
	)
	defer span.End()

	state, err := s.resolver.Resolve(ticket)
	if err != nil {
		return err
	}
	if err := s.tickets.Save(ctx, ticket); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to save ticket: %w", err)
	}
	s.logger.Debug("ticket saved",
		zap.String("ticket", ticket.Number),
		zap.String("state", string(state)),
	)
	return nil
}

func (s *TicketService) notify(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish ticket notification", zap.Error(err))
	}
}
