package persistence

import (
	"context"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/support"
	"github.com/erp/commerce/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTicketRepository implements TicketRepository using GORM
type GormTicketRepository struct {
	db *gorm.DB
}

// NewGormTicketRepository creates a new GormTicketRepository
func NewGormTicketRepository(db *gorm.DB) *GormTicketRepository {
	return &GormTicketRepository{db: db}
}

// FindByID finds a ticket with its orders and messages
func (r *GormTicketRepository) FindByID(ctx context.Context, id uuid.UUID) (*support.Ticket, error) {
	return r.one(ctx, r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByNumber finds a ticket by its number
func (r *GormTicketRepository) FindByNumber(ctx context.Context, number string) (*support.Ticket, error) {
	return r.one(ctx, r.db.WithContext(ctx).Where("number = ?", number))
}

// FindByCustomer finds the tickets of a customer
func (r *GormTicketRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]*support.Ticket, error) {
	query := r.db.WithContext(ctx).Where("customer_id = ?", customerID)
	return r.many(ctx, applyFilter(query, filter, TicketSortFields, "created_at"))
}

// Save creates or updates a ticket with its orders and messages
func (r *GormTicketRepository) Save(ctx context.Context, ticket *support.Ticket) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := prepareRoot(tx, models.TicketModel{}.TableName(), &ticket.BaseAggregateRoot); err != nil {
			return err
		}
		for _, m := range ticket.Messages {
			ensureID(&m.ID)
		}

		g := models.TicketGraphFromDomain(ticket)
		if err := tx.Save(&g.Ticket).Error; err != nil {
			return err
		}
		if err := replaceRows(tx, "ticket_id", ticket.ID, g.Orders); err != nil {
			return err
		}
		return replaceRows(tx, "ticket_id", ticket.ID, g.Messages)
	})
}

func (r *GormTicketRepository) one(ctx context.Context, query *gorm.DB) (*support.Ticket, error) {
	tickets, err := r.many(ctx, query.Limit(1))
	if err != nil || len(tickets) == 0 {
		return nil, err
	}
	return tickets[0], nil
}

func (r *GormTicketRepository) many(ctx context.Context, query *gorm.DB) ([]*support.Ticket, error) {
	var rows []models.TicketModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	tickets := make([]*support.Ticket, 0, len(rows))
	if len(rows) == 0 {
		return tickets, nil
	}

	ids := make([]uuid.UUID, len(rows))
	graphs := make(map[uuid.UUID]*models.TicketGraph, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
		graphs[rows[i].ID] = &models.TicketGraph{Ticket: rows[i]}
	}

	db := r.db.WithContext(ctx)
	var orders []models.TicketOrderModel
	if err := db.Where("ticket_id IN ?", ids).Find(&orders).Error; err != nil {
		return nil, err
	}
	var messages []models.TicketMessageModel
	if err := db.Where("ticket_id IN ?", ids).Find(&messages).Error; err != nil {
		return nil, err
	}
	for _, o := range orders {
		graphs[o.TicketID].Orders = append(graphs[o.TicketID].Orders, o)
	}
	for _, m := range messages {
		graphs[m.TicketID].Messages = append(graphs[m.TicketID].Messages, m)
	}

	for i := range rows {
		tickets = append(tickets, graphs[rows[i].ID].ToDomain())
	}
	return tickets, nil
}

// Ensure GormTicketRepository implements TicketRepository
var _ support.TicketRepository = (*GormTicketRepository)(nil)
