package trade

import (
	"context"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/google/uuid"
)

// SaleRepository defines the interface for sale persistence.
// Single lookups return (nil, nil) when nothing matches.
type SaleRepository interface {
	// FindByID finds a sale with its whole graph
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)

	// FindByNumber finds a sale by its number
	FindByNumber(ctx context.Context, number string) (*Sale, error)

	// FindByPaymentID finds the sale owning a payment
	FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*Sale, error)

	// FindByCustomer finds the sales of a customer created within the range
	FindByCustomer(ctx context.Context, customerID uuid.UUID, period shared.DateRange, filter shared.Filter) ([]*Sale, error)

	// FindOrdersByStockUnits finds orders whose items are assigned to any of the units
	FindOrdersByStockUnits(ctx context.Context, unitIDs []uuid.UUID) ([]*Sale, error)

	// FindOrdersByPeriod finds orders created within the range
	FindOrdersByPeriod(ctx context.Context, period shared.DateRange) ([]*Sale, error)

	// Save creates or updates a sale with its whole graph
	Save(ctx context.Context, sale *Sale) error

	// Delete deletes a sale
	Delete(ctx context.Context, id uuid.UUID) error
}
