package inventory

import (
	"context"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/google/uuid"
)

// StockUnitRepository defines the interface for stock unit persistence.
// Single lookups return (nil, nil) when nothing matches.
type StockUnitRepository interface {
	// FindByID finds a stock unit by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockUnit, error)

	// FindByIDs finds multiple stock units by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*StockUnit, error)

	// FindBySubject finds the units of a subject, oldest first
	FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]*StockUnit, error)

	// FindOpen finds units not in the closed state
	FindOpen(ctx context.Context, filter shared.Filter) ([]*StockUnit, error)

	// FindBySupplierOrderItem finds the unit linked to a supplier order line
	FindBySupplierOrderItem(ctx context.Context, itemID uuid.UUID) (*StockUnit, error)

	// Save creates or updates a stock unit with its assignments
	Save(ctx context.Context, unit *StockUnit) error

	// Delete deletes a stock unit
	Delete(ctx context.Context, id uuid.UUID) error
}

// SupplierOrderRepository defines the interface for supplier order persistence
type SupplierOrderRepository interface {
	// FindByID finds a supplier order with items and deliveries
	FindByID(ctx context.Context, id uuid.UUID) (*SupplierOrder, error)

	// FindByNumber finds a supplier order by its number
	FindByNumber(ctx context.Context, number string) (*SupplierOrder, error)

	// Save creates or updates a supplier order
	Save(ctx context.Context, order *SupplierOrder) error
}
