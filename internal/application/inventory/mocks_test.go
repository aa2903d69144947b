package inventory

import (
	"context"
	"sync"

	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStockUnitRepository is a mock implementation of StockUnitRepository
type MockStockUnitRepository struct {
	mock.Mock
}

func (m *MockStockUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockUnit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.StockUnit), args.Error(1)
}

func (m *MockStockUnitRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*inventory.StockUnit, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]*inventory.StockUnit), args.Error(1)
}

func (m *MockStockUnitRepository) FindBySubject(ctx context.Context, subjectID uuid.UUID) ([]*inventory.StockUnit, error) {
	args := m.Called(ctx, subjectID)
	return args.Get(0).([]*inventory.StockUnit), args.Error(1)
}

func (m *MockStockUnitRepository) FindOpen(ctx context.Context, filter shared.Filter) ([]*inventory.StockUnit, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*inventory.StockUnit), args.Error(1)
}

func (m *MockStockUnitRepository) FindBySupplierOrderItem(ctx context.Context, itemID uuid.UUID) (*inventory.StockUnit, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.StockUnit), args.Error(1)
}

func (m *MockStockUnitRepository) Save(ctx context.Context, unit *inventory.StockUnit) error {
	args := m.Called(ctx, unit)
	return args.Error(0)
}

func (m *MockStockUnitRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSupplierOrderRepository is a mock implementation of SupplierOrderRepository
type MockSupplierOrderRepository struct {
	mock.Mock
}

func (m *MockSupplierOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.SupplierOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.SupplierOrder), args.Error(1)
}

func (m *MockSupplierOrderRepository) FindByNumber(ctx context.Context, number string) (*inventory.SupplierOrder, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.SupplierOrder), args.Error(1)
}

func (m *MockSupplierOrderRepository) Save(ctx context.Context, order *inventory.SupplierOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
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
