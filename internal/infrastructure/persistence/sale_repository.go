package persistence

import (
	"context"

	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/trade"
	"github.com/erp/commerce/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSaleRepository implements SaleRepository using GORM.
// A sale is loaded with its whole graph and with every stock unit its items
// are assigned to, so assignments are shared with the units.
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// FindByID finds a sale with its whole graph
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Sale, error) {
	return r.one(ctx, r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByNumber finds a sale by its number
func (r *GormSaleRepository) FindByNumber(ctx context.Context, number string) (*trade.Sale, error) {
	return r.one(ctx, r.db.WithContext(ctx).Where("number = ?", number))
}

// FindByPaymentID finds the sale owning a payment
func (r *GormSaleRepository) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*trade.Sale, error) {
	sub := r.db.Model(&models.PaymentModel{}).Select("sale_id").Where("id = ?", paymentID)
	return r.one(ctx, r.db.WithContext(ctx).Where("id IN (?)", sub))
}

// FindByCustomer finds the sales of a customer created within the range
func (r *GormSaleRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, period shared.DateRange, filter shared.Filter) ([]*trade.Sale, error) {
	query := inPeriod(r.db.WithContext(ctx).Where("customer_id = ?", customerID), "created_at", period)
	return r.many(ctx, applyFilter(query, filter, SaleSortFields, "created_at"))
}

// FindOrdersByStockUnits finds orders whose items are assigned to any of the units
func (r *GormSaleRepository) FindOrdersByStockUnits(ctx context.Context, unitIDs []uuid.UUID) ([]*trade.Sale, error) {
	if len(unitIDs) == 0 {
		return []*trade.Sale{}, nil
	}
	assigned := r.db.Model(&models.StockAssignmentModel{}).Select("sale_item_id").Where("stock_unit_id IN ?", unitIDs)
	items := r.db.Model(&models.SaleItemModel{}).Select("sale_id").Where("id IN (?)", assigned)
	query := r.db.WithContext(ctx).
		Where("kind = ?", trade.SaleKindOrder).
		Where("id IN (?)", items).
		Order("created_at ASC")
	return r.many(ctx, query)
}

// FindOrdersByPeriod finds orders created within the range, oldest first
func (r *GormSaleRepository) FindOrdersByPeriod(ctx context.Context, period shared.DateRange) ([]*trade.Sale, error) {
	query := inPeriod(r.db.WithContext(ctx).Where("kind = ?", trade.SaleKindOrder), "created_at", period)
	return r.many(ctx, query.Order("created_at ASC"))
}

// Save creates or updates a sale with its whole graph.
// Stock units are saved by their own repository.
func (r *GormSaleRepository) Save(ctx context.Context, sale *trade.Sale) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := prepareRoot(tx, models.SaleModel{}.TableName(), &sale.BaseAggregateRoot); err != nil {
			return err
		}
		assignSaleIDs(sale)

		g := models.SaleGraphFromDomain(sale)
		if err := tx.Save(&g.Sale).Error; err != nil {
			return err
		}
		if err := deleteSaleChildren(tx, sale.ID); err != nil {
			return err
		}
		inserts := []func() error{
			func() error { return insertRows(tx, g.Items) },
			func() error { return insertRows(tx, g.Payments) },
			func() error { return insertRows(tx, g.Shipments) },
			func() error { return insertRows(tx, g.ShipmentItems) },
			func() error { return insertRows(tx, g.Credits) },
			func() error { return insertRows(tx, g.CreditItems) },
			func() error { return insertRows(tx, g.Invoices) },
			func() error { return insertRows(tx, g.InvoiceItems) },
		}
		for _, insert := range inserts {
			if err := insert(); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete deletes a sale with its whole graph
func (r *GormSaleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteSaleChildren(tx, id); err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.SaleModel{}).Error
	})
}

func (r *GormSaleRepository) one(ctx context.Context, query *gorm.DB) (*trade.Sale, error) {
	sales, err := r.many(ctx, query.Limit(1))
	if err != nil || len(sales) == 0 {
		return nil, err
	}
	return sales[0], nil
}

func (r *GormSaleRepository) many(ctx context.Context, query *gorm.DB) ([]*trade.Sale, error) {
	var rows []models.SaleModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	sales := make([]*trade.Sale, 0, len(rows))
	if len(rows) == 0 {
		return sales, nil
	}

	db := r.db.WithContext(ctx)
	ids := make([]uuid.UUID, len(rows))
	graphs := make(map[uuid.UUID]*models.SaleGraph, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
		graphs[rows[i].ID] = &models.SaleGraph{Sale: rows[i]}
	}

	var (
		items     []models.SaleItemModel
		payments  []models.PaymentModel
		shipments []models.ShipmentModel
		credits   []models.CreditModel
		invoices  []models.InvoiceModel
	)
	if err := db.Where("sale_id IN ?", ids).Order("position ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	if err := db.Where("sale_id IN ?", ids).Order("position ASC").Find(&payments).Error; err != nil {
		return nil, err
	}
	if err := db.Where("sale_id IN ?", ids).Order("created_at ASC").Find(&shipments).Error; err != nil {
		return nil, err
	}
	if err := db.Where("sale_id IN ?", ids).Order("created_at ASC").Find(&credits).Error; err != nil {
		return nil, err
	}
	if err := db.Where("sale_id IN ?", ids).Order("created_at ASC").Find(&invoices).Error; err != nil {
		return nil, err
	}

	itemIDs := make([]uuid.UUID, len(items))
	itemSale := make(map[uuid.UUID]uuid.UUID, len(items))
	for i, it := range items {
		itemIDs[i] = it.ID
		itemSale[it.ID] = it.SaleID
		graphs[it.SaleID].Items = append(graphs[it.SaleID].Items, it)
	}
	for _, p := range payments {
		graphs[p.SaleID].Payments = append(graphs[p.SaleID].Payments, p)
	}

	shipmentSale := make(map[uuid.UUID]uuid.UUID, len(shipments))
	for _, s := range shipments {
		shipmentSale[s.ID] = s.SaleID
		graphs[s.SaleID].Shipments = append(graphs[s.SaleID].Shipments, s)
	}
	var shipmentItems []models.ShipmentItemModel
	if err := findByParents(db, "shipment_id", keys(shipmentSale), &shipmentItems); err != nil {
		return nil, err
	}
	for _, si := range shipmentItems {
		g := graphs[shipmentSale[si.ShipmentID]]
		g.ShipmentItems = append(g.ShipmentItems, si)
	}

	creditSale := make(map[uuid.UUID]uuid.UUID, len(credits))
	for _, c := range credits {
		creditSale[c.ID] = c.SaleID
		graphs[c.SaleID].Credits = append(graphs[c.SaleID].Credits, c)
	}
	var creditItems []models.CreditItemModel
	if err := findByParents(db, "credit_id", keys(creditSale), &creditItems); err != nil {
		return nil, err
	}
	for _, ci := range creditItems {
		g := graphs[creditSale[ci.CreditID]]
		g.CreditItems = append(g.CreditItems, ci)
	}

	invoiceSale := make(map[uuid.UUID]uuid.UUID, len(invoices))
	for _, in := range invoices {
		invoiceSale[in.ID] = in.SaleID
		graphs[in.SaleID].Invoices = append(graphs[in.SaleID].Invoices, in)
	}
	var invoiceItems []models.InvoiceItemModel
	if err := findByParents(db, "invoice_id", keys(invoiceSale), &invoiceItems); err != nil {
		return nil, err
	}
	for _, ii := range invoiceItems {
		g := graphs[invoiceSale[ii.InvoiceID]]
		g.InvoiceItems = append(g.InvoiceItems, ii)
	}

	units, err := r.assignedUnits(db, itemIDs)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		sales = append(sales, graphs[rows[i].ID].ToDomain(units))
	}
	return sales, nil
}

// assignedUnits loads every stock unit an item is assigned to, keyed by id
func (r *GormSaleRepository) assignedUnits(db *gorm.DB, itemIDs []uuid.UUID) (map[uuid.UUID]*inventory.StockUnit, error) {
	units := make(map[uuid.UUID]*inventory.StockUnit)
	if len(itemIDs) == 0 {
		return units, nil
	}
	var unitIDs []uuid.UUID
	if err := db.Model(&models.StockAssignmentModel{}).
		Distinct("stock_unit_id").
		Where("sale_item_id IN ?", itemIDs).
		Pluck("stock_unit_id", &unitIDs).Error; err != nil {
		return nil, err
	}
	if len(unitIDs) == 0 {
		return units, nil
	}

	var rows []models.StockUnitModel
	if err := db.Where("id IN ?", unitIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	loaded, err := loadStockUnits(db, rows)
	if err != nil {
		return nil, err
	}
	for _, u := range loaded {
		units[u.ID] = u
	}
	return units, nil
}

func assignSaleIDs(sale *trade.Sale) {
	for _, item := range sale.AllItems() {
		ensureID(&item.ID)
	}
	for _, p := range sale.Payments {
		ensureID(&p.ID)
	}
	for _, s := range sale.Shipments {
		ensureID(&s.ID)
		for _, it := range s.Items {
			ensureID(&it.ID)
		}
	}
	for _, c := range sale.Credits {
		ensureID(&c.ID)
		for _, it := range c.Items {
			ensureID(&it.ID)
		}
	}
	for _, in := range sale.Invoices {
		ensureID(&in.ID)
		for _, it := range in.Items {
			ensureID(&it.ID)
		}
	}
}

func deleteSaleChildren(tx *gorm.DB, saleID uuid.UUID) error {
	shipments := tx.Model(&models.ShipmentModel{}).Select("id").Where("sale_id = ?", saleID)
	credits := tx.Model(&models.CreditModel{}).Select("id").Where("sale_id = ?", saleID)
	invoices := tx.Model(&models.InvoiceModel{}).Select("id").Where("sale_id = ?", saleID)

	steps := []struct {
		model any
		cond  string
		arg   any
	}{
		{&models.ShipmentItemModel{}, "shipment_id IN (?)", shipments},
		{&models.CreditItemModel{}, "credit_id IN (?)", credits},
		{&models.InvoiceItemModel{}, "invoice_id IN (?)", invoices},
		{&models.ShipmentModel{}, "sale_id = ?", saleID},
		{&models.CreditModel{}, "sale_id = ?", saleID},
		{&models.InvoiceModel{}, "sale_id = ?", saleID},
		{&models.PaymentModel{}, "sale_id = ?", saleID},
		{&models.SaleItemModel{}, "sale_id = ?", saleID},
	}
	for _, s := range steps {
		if err := tx.Where(s.cond, s.arg).Delete(s.model).Error; err != nil {
			return err
		}
	}
	return nil
}

func findByParents[T any](db *gorm.DB, column string, ids []uuid.UUID, out *[]T) error {
	if len(ids) == 0 {
		return nil
	}
	return db.Where(column+" IN ?", ids).Find(out).Error
}

func keys(m map[uuid.UUID]uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// Ensure GormSaleRepository implements SaleRepository
var _ trade.SaleRepository = (*GormSaleRepository)(nil)
