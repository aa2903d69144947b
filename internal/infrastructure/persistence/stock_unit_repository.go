package persistence

import (
	"context"

	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockUnitRepository implements StockUnitRepository using GORM.
// Units are always loaded with every assignment.
type GormStockUnitRepository struct {
	db *gorm.DB
}

// NewGormStockUnitRepository creates a new GormStockUnitRepository
func NewGormStockUnitRepository(db *gorm.DB) *GormStockUnitRepository {
	return &GormStockUnitRepository{db: db}
}

// FindByID finds a stock unit by its ID
func (r *GormStockUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockUnit, error) {
	return r.one(ctx, r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIDs finds multiple stock units by their IDs
func (r *GormStockUnitRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*inventory.StockUnit, error) {
	if len(ids) == 0 {
		return []*inventory.StockUnit{}, nil
	}
	return r.many(ctx, r.db.WithContext(ctx).Where("id IN ?", ids).Order("created_at ASC"))
}

// FindBySubject finds the units of a subject, oldest first
func (r *GormStockUnitRepository) FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]*inventory.StockUnit, error) {
	return r.many(ctx, r.db.WithContext(ctx).Where("subject_id = ?", subjectID).Order("created_at ASC"))
}

// FindOpen finds units not in the closed state
func (r *GormStockUnitRepository) FindOpen(ctx context.Context, filter shared.Filter) ([]*inventory.StockUnit, error) {
	query := r.db.WithContext(ctx).Where("state <> ?", inventory.StockUnitStateClosed)
	return r.many(ctx, applyFilter(query, filter, StockUnitSortFields, "created_at"))
}

// FindBySupplierOrderItem finds the unit linked to a supplier order line
func (r *GormStockUnitRepository) FindBySupplierOrderItem(ctx context.Context, itemID uuid.UUID) (*inventory.StockUnit, error) {
	return r.one(ctx, r.db.WithContext(ctx).Where("supplier_order_item_id = ?", itemID))
}

// Save creates or updates a stock unit with its assignments
func (r *GormStockUnitRepository) Save(ctx context.Context, unit *inventory.StockUnit) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := prepareRoot(tx, models.StockUnitModel{}.TableName(), &unit.BaseAggregateRoot); err != nil {
			return err
		}
		for _, a := range unit.Assignments {
			ensureID(&a.ID)
		}

		model, assignments := models.StockUnitModelFromDomain(unit)
		if err := tx.Save(model).Error; err != nil {
			return err
		}
		return replaceRows(tx, "stock_unit_id", unit.ID, assignments)
	})
}

// Delete deletes a stock unit and its assignments
func (r *GormStockUnitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("stock_unit_id = ?", id).Delete(&models.StockAssignmentModel{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.StockUnitModel{}).Error
	})
}

func (r *GormStockUnitRepository) one(ctx context.Context, query *gorm.DB) (*inventory.StockUnit, error) {
	units, err := r.many(ctx, query.Limit(1))
	if err != nil || len(units) == 0 {
		return nil, err
	}
	return units[0], nil
}

func (r *GormStockUnitRepository) many(ctx context.Context, query *gorm.DB) ([]*inventory.StockUnit, error) {
	var rows []models.StockUnitModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return loadStockUnits(r.db.WithContext(ctx), rows)
}

// loadStockUnits attaches the assignments of each row and converts it
func loadStockUnits(db *gorm.DB, rows []models.StockUnitModel) ([]*inventory.StockUnit, error) {
	units := make([]*inventory.StockUnit, 0, len(rows))
	if len(rows) == 0 {
		return units, nil
	}

	ids := make([]uuid.UUID, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	var assignments []models.StockAssignmentModel
	if err := db.Where("stock_unit_id IN ?", ids).Order("position ASC").Find(&assignments).Error; err != nil {
		return nil, err
	}
	byUnit := make(map[uuid.UUID][]models.StockAssignmentModel, len(rows))
	for _, a := range assignments {
		byUnit[a.StockUnitID] = append(byUnit[a.StockUnitID], a)
	}

	for i := range rows {
		units = append(units, rows[i].ToDomain(byUnit[rows[i].ID]))
	}
	return units, nil
}

// Ensure GormStockUnitRepository implements StockUnitRepository
var _ inventory.StockUnitRepository = (*GormStockUnitRepository)(nil)
