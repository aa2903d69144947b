package trade

import (
	"context"
	"sync"

	"github.com/erp/commerce/internal/domain/partner"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockSaleRepository is a mock implementation of SaleRepository
type MockSaleRepository struct {
	mock.Mock
}

func (m *MockSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Sale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Sale), args.Error(1)
}

func (m *MockSaleRepository) FindByNumber(ctx context.Context, number string) (*trade.Sale, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Sale), args.Error(1)
}

func (m *MockSaleRepository) FindByPaymentID(ctx context.Context, paymentID uuid.UUID) (*trade.Sale, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Sale), args.Error(1)
}

func (m *MockSaleRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, period shared.DateRange, filter shared.Filter) ([]*trade.Sale, error) {
	args := m.Called(ctx, customerID, period, filter)
	return args.Get(0).([]*trade.Sale), args.Error(1)
}

func (m *MockSaleRepository) FindOrdersByStockUnits(ctx context.Context, unitIDs []uuid.UUID) ([]*trade.Sale, error) {
	args := m.Called(ctx, unitIDs)
	return args.Get(0).([]*trade.Sale), args.Error(1)
}

func (m *MockSaleRepository) FindOrdersByPeriod(ctx context.Context, period shared.DateRange) ([]*trade.Sale, error) {
	args := m.Called(ctx, period)
	return args.Get(0).([]*trade.Sale), args.Error(1)
}

func (m *MockSaleRepository) Save(ctx context.Context, sale *trade.Sale) error {
	args := m.Called(ctx, sale)
	return args.Error(0)
}

func (m *MockSaleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type customerStore struct {
	customers map[uuid.UUID]*partner.Customer
}

func (s *customerStore) FindByID(_ context.Context, id uuid.UUID) (*partner.Customer, error) {
	return s.customers[id], nil
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

// recordingPersister stands in for the unit of work
type recordingPersister struct {
	persisted []any
	flushed   int
	flushErr  error
}

func (p *recordingPersister) Persist(entity any) error {
	p.persisted = append(p.persisted, entity)
	return nil
}

func (p *recordingPersister) Remove(any) error { return nil }

func (p *recordingPersister) Flush(context.Context) error {
	if p.flushErr != nil {
		return p.flushErr
	}
	p.flushed++
	return nil
}

func (p *recordingPersister) has(entity any) bool {
	for _, e := range p.persisted {
		if e == entity {
			return true
		}
	}
	return false
}
