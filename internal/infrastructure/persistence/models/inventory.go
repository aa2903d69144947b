package models

import (
	"time"

	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockUnitModel is the persistence model for the StockUnit aggregate root.
type StockUnitModel struct {
	AggregateModel
	SubjectID           uuid.UUID                `gorm:"type:uuid;not null;index"`
	SupplierOrderItemID *uuid.UUID               `gorm:"type:uuid;index"`
	State               inventory.StockUnitState `gorm:"type:varchar(20);not null;default:'NEW';index"`
	OrderedQuantity     decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	ReceivedQuantity    decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	AdjustedQuantity    decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	ReservedQuantity    decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	ShippedQuantity     decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	NetPrice            decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	ShippingPrice       decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	Currency            string                   `gorm:"type:varchar(3);not null"`
	EstimatedArrival    *time.Time
	ClosedAt            *time.Time
}

// TableName returns the table name for GORM
func (StockUnitModel) TableName() string {
	return "stock_units"
}

// ToDomain converts the model and its assignment rows into a StockUnit.
func (m *StockUnitModel) ToDomain(assignments []StockAssignmentModel) *inventory.StockUnit {
	unit := &inventory.StockUnit{
		BaseAggregateRoot:   m.ToDomainAggregateRoot(),
		SubjectID:           m.SubjectID,
		SupplierOrderItemID: m.SupplierOrderItemID,
		State:               m.State,
		OrderedQuantity:     m.OrderedQuantity,
		ReceivedQuantity:    m.ReceivedQuantity,
		AdjustedQuantity:    m.AdjustedQuantity,
		ReservedQuantity:    m.ReservedQuantity,
		ShippedQuantity:     m.ShippedQuantity,
		NetPrice:            m.NetPrice,
		ShippingPrice:       m.ShippingPrice,
		Currency:            valueobject.Currency(m.Currency),
		EstimatedArrival:    m.EstimatedArrival,
		ClosedAt:            m.ClosedAt,
		Assignments:         make([]*inventory.StockAssignment, 0, len(assignments)),
	}
	for _, a := range assignments {
		unit.Assignments = append(unit.Assignments, &inventory.StockAssignment{
			ID:              a.ID,
			StockUnit:       unit,
			SaleItemID:      a.SaleItemID,
			SoldQuantity:    a.SoldQuantity,
			ShippedQuantity: a.ShippedQuantity,
		})
	}
	return unit
}

// StockUnitModelFromDomain creates the unit row and its assignment rows.
func StockUnitModelFromDomain(u *inventory.StockUnit) (*StockUnitModel, []StockAssignmentModel) {
	m := &StockUnitModel{
		SubjectID:           u.SubjectID,
		SupplierOrderItemID: u.SupplierOrderItemID,
		State:               u.State,
		OrderedQuantity:     u.OrderedQuantity,
		ReceivedQuantity:    u.ReceivedQuantity,
		AdjustedQuantity:    u.AdjustedQuantity,
		ReservedQuantity:    u.ReservedQuantity,
		ShippedQuantity:     u.ShippedQuantity,
		NetPrice:            u.NetPrice,
		ShippingPrice:       u.ShippingPrice,
		Currency:            u.Currency.String(),
		EstimatedArrival:    u.EstimatedArrival,
		ClosedAt:            u.ClosedAt,
	}
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)

	assignments := make([]StockAssignmentModel, len(u.Assignments))
	for i, a := range u.Assignments {
		assignments[i] = StockAssignmentModel{
			ID:              a.ID,
			StockUnitID:     u.ID,
			SaleItemID:      a.SaleItemID,
			Position:        i,
			SoldQuantity:    a.SoldQuantity,
			ShippedQuantity: a.ShippedQuantity,
		}
	}
	return m, assignments
}

// StockAssignmentModel links a sale item to a stock unit.
type StockAssignmentModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	StockUnitID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	SaleItemID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position        int             `gorm:"not null"`
	SoldQuantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ShippedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (StockAssignmentModel) TableName() string {
	return "stock_assignments"
}

// SupplierOrderModel is the persistence model for the SupplierOrder aggregate root.
type SupplierOrderModel struct {
	AggregateModel
	Number       string                       `gorm:"type:varchar(50);not null;uniqueIndex"`
	SupplierID   uuid.UUID                    `gorm:"type:uuid;not null;index"`
	Currency     string                       `gorm:"type:varchar(3);not null"`
	State        inventory.SupplierOrderState `gorm:"type:varchar(20);not null;default:'NEW'"`
	ShippingCost decimal.Decimal              `gorm:"type:decimal(18,4);not null;default:0"`
	OrderedAt    *time.Time
}

// TableName returns the table name for GORM
func (SupplierOrderModel) TableName() string {
	return "supplier_orders"
}

// SupplierOrderItemModel is a supplier order line.
type SupplierOrderItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null"`
	SubjectID   uuid.UUID       `gorm:"type:uuid;not null"`
	Designation string          `gorm:"type:varchar(200);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	NetPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	StockUnitID *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (SupplierOrderItemModel) TableName() string {
	return "supplier_order_items"
}

// SupplierDeliveryModel is a delivery received against a supplier order.
type SupplierDeliveryModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SupplierDeliveryModel) TableName() string {
	return "supplier_deliveries"
}

// SupplierDeliveryItemModel is a delivered quantity of one order line.
type SupplierDeliveryItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	DeliveryID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (SupplierDeliveryItemModel) TableName() string {
	return "supplier_delivery_items"
}

// SupplierOrderGraph holds every row of one supplier order.
type SupplierOrderGraph struct {
	Order         SupplierOrderModel
	Items         []SupplierOrderItemModel
	Deliveries    []SupplierDeliveryModel
	DeliveryItems []SupplierDeliveryItemModel
}

// ToDomain rebuilds the SupplierOrder with back references wired.
func (g *SupplierOrderGraph) ToDomain() *inventory.SupplierOrder {
	order := &inventory.SupplierOrder{
		BaseAggregateRoot: g.Order.ToDomainAggregateRoot(),
		Number:            g.Order.Number,
		SupplierID:        g.Order.SupplierID,
		Currency:          valueobject.Currency(g.Order.Currency),
		State:             g.Order.State,
		ShippingCost:      g.Order.ShippingCost,
		OrderedAt:         g.Order.OrderedAt,
		Items:             make([]*inventory.SupplierOrderItem, 0, len(g.Items)),
		Deliveries:        make([]*inventory.SupplierDelivery, 0, len(g.Deliveries)),
	}

	items := make(map[uuid.UUID]*inventory.SupplierOrderItem, len(g.Items))
	for _, im := range g.Items {
		item := &inventory.SupplierOrderItem{
			ID:          im.ID,
			Order:       order,
			SubjectID:   im.SubjectID,
			Designation: im.Designation,
			Quantity:    im.Quantity,
			NetPrice:    im.NetPrice,
			StockUnitID: im.StockUnitID,
		}
		items[im.ID] = item
		order.Items = append(order.Items, item)
	}

	deliveries := make(map[uuid.UUID]*inventory.SupplierDelivery, len(g.Deliveries))
	for _, dm := range g.Deliveries {
		delivery := &inventory.SupplierDelivery{
			ID:        dm.ID,
			Order:     order,
			Items:     make([]*inventory.SupplierDeliveryItem, 0),
			CreatedAt: dm.CreatedAt,
		}
		deliveries[dm.ID] = delivery
		order.Deliveries = append(order.Deliveries, delivery)
	}

	for _, dim := range g.DeliveryItems {
		delivery, ok := deliveries[dim.DeliveryID]
		if !ok {
			continue
		}
		delivery.Items = append(delivery.Items, &inventory.SupplierDeliveryItem{
			ID:        dim.ID,
			Delivery:  delivery,
			OrderItem: items[dim.OrderItemID],
			Quantity:  dim.Quantity,
		})
	}
	return order
}

// SupplierOrderGraphFromDomain flattens a SupplierOrder into rows.
func SupplierOrderGraphFromDomain(o *inventory.SupplierOrder) *SupplierOrderGraph {
	g := &SupplierOrderGraph{
		Order: SupplierOrderModel{
			Number:       o.Number,
			SupplierID:   o.SupplierID,
			Currency:     o.Currency.String(),
			State:        o.State,
			ShippingCost: o.ShippingCost,
			OrderedAt:    o.OrderedAt,
		},
	}
	g.Order.FromDomainAggregateRoot(o.BaseAggregateRoot)

	for i, item := range o.Items {
		g.Items = append(g.Items, SupplierOrderItemModel{
			ID:          item.ID,
			OrderID:     o.ID,
			Position:    i,
			SubjectID:   item.SubjectID,
			Designation: item.Designation,
			Quantity:    item.Quantity,
			NetPrice:    item.NetPrice,
			StockUnitID: item.StockUnitID,
		})
	}
	for _, d := range o.Deliveries {
		g.Deliveries = append(g.Deliveries, SupplierDeliveryModel{ID: d.ID, OrderID: o.ID, CreatedAt: d.CreatedAt})
		for pos, di := range d.Items {
			if di.OrderItem == nil {
				continue
			}
			g.DeliveryItems = append(g.DeliveryItems, SupplierDeliveryItemModel{
				ID:          di.ID,
				DeliveryID:  d.ID,
				OrderItemID: di.OrderItem.ID,
				Position:    pos,
				Quantity:    di.Quantity,
			})
		}
	}
	return g
}
