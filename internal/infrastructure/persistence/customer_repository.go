package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/erp/commerce/internal/domain/partner"
	"github.com/erp/commerce/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCustomerRepository implements CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByID finds a customer by its ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByCode finds a customer by its code
func (r *GormCustomerRepository) FindByCode(ctx context.Context, code string) (*partner.Customer, error) {
	return r.first(r.db.WithContext(ctx).Where("code = ?", strings.ToUpper(strings.TrimSpace(code))))
}

// FindWithVatNumber finds customers carrying a VAT number, in code order
func (r *GormCustomerRepository) FindWithVatNumber(ctx context.Context) ([]*partner.Customer, error) {
	var rows []models.CustomerModel
	if err := r.db.WithContext(ctx).
		Where("vat_number IS NOT NULL AND vat_number <> ''").
		Order("code ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	customers := make([]*partner.Customer, len(rows))
	for i := range rows {
		customers[i] = rows[i].ToDomain()
	}
	return customers, nil
}

// Save creates or updates a customer
func (r *GormCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := prepareRoot(tx, models.CustomerModel{}.TableName(), &customer.BaseAggregateRoot); err != nil {
			return err
		}
		return tx.Save(models.CustomerModelFromDomain(customer)).Error
	})
}

func (r *GormCustomerRepository) first(query *gorm.DB) (*partner.Customer, error) {
	var model models.CustomerModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormCustomerRepository implements CustomerRepository
var _ partner.CustomerRepository = (*GormCustomerRepository)(nil)
