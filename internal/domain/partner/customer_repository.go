package partner

import (
	"context"

	"github.com/google/uuid"
)

// CustomerRepository defines the interface for customer persistence.
// Single lookups return (nil, nil) when nothing matches.
type CustomerRepository interface {
	// FindByID finds a customer by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// FindByCode finds a customer by its code
	FindByCode(ctx context.Context, code string) (*Customer, error)

	// FindWithVatNumber finds customers carrying a VAT number
	FindWithVatNumber(ctx context.Context) ([]*Customer, error)

	// Save creates or updates a customer
	Save(ctx context.Context, customer *Customer) error
}
