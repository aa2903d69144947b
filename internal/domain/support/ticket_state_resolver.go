package support

import "github.com/erp/commerce/internal/domain/shared"

// TicketStateResolver derives a ticket state from its flags and messages
type TicketStateResolver struct{}

// NewTicketStateResolver creates a new TicketStateResolver
func NewTicketStateResolver() *TicketStateResolver {
	return &TicketStateResolver{}
}

// Resolve writes the resolved state back onto the ticket
func (r *TicketStateResolver) Resolve(ticket *Ticket) (TicketState, error) {
	if ticket == nil {
		return "", shared.InvalidArgument("Expected a ticket")
	}
	state := resolveTicketState(ticket)
	if ticket.State != state {
		ticket.State = state
		ticket.Touch()
	}
	return state, nil
}

func resolveTicketState(ticket *Ticket) TicketState {
	if ticket.Closed {
		return TicketStateClosed
	}
	if ticket.Internal {
		return TicketStateInternal
	}
	last := LatestPublicMessage(ticket)
	if last == nil {
		return TicketStateNew
	}
	if last.Customer {
		return TicketStateOpened
	}
	return TicketStatePending
}

// LatestPublicMessage returns the last message visible to the customer
func LatestPublicMessage(ticket *Ticket) *TicketMessage {
	for i := len(ticket.Messages) - 1; i >= 0; i-- {
		if !ticket.Messages[i].Internal {
			return ticket.Messages[i]
		}
	}
	return nil
}
