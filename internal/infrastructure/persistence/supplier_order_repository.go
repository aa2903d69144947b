package persistence

import (
	"context"
	"errors"

	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/erp/commerce/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSupplierOrderRepository implements SupplierOrderRepository using GORM
type GormSupplierOrderRepository struct {
	db *gorm.DB
}

// NewGormSupplierOrderRepository creates a new GormSupplierOrderRepository
func NewGormSupplierOrderRepository(db *gorm.DB) *GormSupplierOrderRepository {
	return &GormSupplierOrderRepository{db: db}
}

// FindByID finds a supplier order with items and deliveries
func (r *GormSupplierOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.SupplierOrder, error) {
	return r.load(r.db.WithContext(ctx), "id = ?", id)
}

// FindByNumber finds a supplier order by its number
func (r *GormSupplierOrderRepository) FindByNumber(ctx context.Context, number string) (*inventory.SupplierOrder, error) {
	return r.load(r.db.WithContext(ctx), "number = ?", number)
}

// Save creates or updates a supplier order with its lines and deliveries
func (r *GormSupplierOrderRepository) Save(ctx context.Context, order *inventory.SupplierOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := prepareRoot(tx, models.SupplierOrderModel{}.TableName(), &order.BaseAggregateRoot); err != nil {
			return err
		}
		for _, item := range order.Items {
			ensureID(&item.ID)
		}
		for _, d := range order.Deliveries {
			ensureID(&d.ID)
			for _, di := range d.Items {
				ensureID(&di.ID)
			}
		}

		g := models.SupplierOrderGraphFromDomain(order)
		if err := tx.Save(&g.Order).Error; err != nil {
			return err
		}

		var deliveryIDs []uuid.UUID
		if err := tx.Model(&models.SupplierDeliveryModel{}).Where("order_id = ?", order.ID).Pluck("id", &deliveryIDs).Error; err != nil {
			return err
		}
		if len(deliveryIDs) > 0 {
			if err := tx.Where("delivery_id IN ?", deliveryIDs).Delete(&models.SupplierDeliveryItemModel{}).Error; err != nil {
				return err
			}
		}
		if err := replaceRows(tx, "order_id", order.ID, g.Deliveries); err != nil {
			return err
		}
		if err := replaceRows(tx, "order_id", order.ID, g.Items); err != nil {
			return err
		}
		return insertRows(tx, g.DeliveryItems)
	})
}

func (r *GormSupplierOrderRepository) load(db *gorm.DB, cond string, arg any) (*inventory.SupplierOrder, error) {
	g := &models.SupplierOrderGraph{}
	if err := db.Where(cond, arg).First(&g.Order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if err := db.Where("order_id = ?", g.Order.ID).Order("position ASC").Find(&g.Items).Error; err != nil {
		return nil, err
	}
	if err := db.Where("order_id = ?", g.Order.ID).Order("created_at ASC").Find(&g.Deliveries).Error; err != nil {
		return nil, err
	}
	if len(g.Deliveries) > 0 {
		ids := make([]uuid.UUID, len(g.Deliveries))
		for i := range g.Deliveries {
			ids[i] = g.Deliveries[i].ID
		}
		if err := db.Where("delivery_id IN ?", ids).Order("position ASC").Find(&g.DeliveryItems).Error; err != nil {
			return nil, err
		}
	}
	return g.ToDomain(), nil
}

// Ensure GormSupplierOrderRepository implements SupplierOrderRepository
var _ inventory.SupplierOrderRepository = (*GormSupplierOrderRepository)(nil)
