package support

import (
	"context"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/google/uuid"
)

// TicketRepository defines the interface for ticket persistence.
// Single lookups return (nil, nil) when nothing matches.
type TicketRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Ticket, error)
	FindByNumber(ctx context.Context, number string) (*Ticket, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]*Ticket, error)
	Save(ctx context.Context, ticket *Ticket) error
}
