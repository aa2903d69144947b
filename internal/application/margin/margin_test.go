package margin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/erp/commerce/internal/domain/report"
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/erp/commerce/internal/domain/trade"
	"github.com/erp/commerce/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type MockStrategy struct {
	mock.Mock
}

func (m *MockStrategy) Invalidate(ctx context.Context, unitIDs []uuid.UUID) error {
	args := m.Called(ctx, unitIDs)
	return args.Error(0)
}

type MockSaleRepository struct {
	mock.Mock
}

func (m *MockSaleRepository) FindOrdersByStockUnits(ctx context.Context, unitIDs []uuid.UUID) ([]*trade.Sale, error) {
	args := m.Called(ctx, unitIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*trade.Sale), args.Error(1)
}

func (m *MockSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Sale, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Sale), args.Error(1)
}

func (m *MockSaleRepository) Save(ctx context.Context, sale *trade.Sale) error {
	args := m.Called(ctx, sale)
	return args.Error(0)
}

func newUnit(t *testing.T, subject uuid.UUID, net int64) *inventory.StockUnit {
	t.Helper()
	unit, err := inventory.NewStockUnit(subject, valueobject.EUR)
	require.NoError(t, err)
	require.NoError(t, unit.SetCost(decimal.NewFromInt(net), decimal.Zero))
	return unit
}

// newOrder builds an order selling two units at 100 from a unit costing net.
func newOrder(t *testing.T, number string, unit *inventory.StockUnit) *trade.Sale {
	t.Helper()
	sale, err := trade.NewSale(trade.SaleKindOrder, number, uuid.New(), valueobject.EUR)
	require.NoError(t, err)
	subject := unit.SubjectID
	item, err := sale.AddItem("Widget", &subject, decimal.NewFromInt(2), decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = item.Assign(unit, decimal.NewFromInt(2))
	require.NoError(t, err)
	return sale
}

func TestOrderMarginInvalidator_AddStockUnit(t *testing.T) {
	strategy := new(MockStrategy)
	inv := NewOrderMarginInvalidator(strategy)

	a := newUnit(t, uuid.New(), 10)
	b := newUnit(t, uuid.New(), 10)
	unpersisted := newUnit(t, uuid.New(), 10)
	unpersisted.ID = uuid.Nil

	inv.AddStockUnit(nil)
	inv.AddStockUnit(unpersisted)
	inv.AddStockUnit(b)
	inv.AddStockUnit(a)
	inv.AddStockUnit(b)
	inv.AddStockUnitID(a.ID)

	assert.Equal(t, []uuid.UUID{b.ID, a.ID}, inv.Pending())
}

func TestOrderMarginInvalidator_Invalidate(t *testing.T) {
	strategy := new(MockStrategy)
	inv := NewOrderMarginInvalidator(strategy)
	unit := newUnit(t, uuid.New(), 10)
	inv.AddStockUnit(unit)

	strategy.On("Invalidate", mock.Anything, []uuid.UUID{unit.ID}).Return(nil).Once()

	require.NoError(t, inv.Invalidate(context.Background()))
	assert.Empty(t, inv.Pending())

	// The queue is empty now, so the strategy is not called again.
	require.NoError(t, inv.Invalidate(context.Background()))
	strategy.AssertExpectations(t)

	// A drained unit can be queued again.
	inv.AddStockUnit(unit)
	assert.Len(t, inv.Pending(), 1)
}

func TestOrderMarginInvalidator_StrategyError(t *testing.T) {
	strategy := new(MockStrategy)
	inv := NewOrderMarginInvalidator(strategy)
	inv.AddStockUnitID(uuid.New())

	strategy.On("Invalidate", mock.Anything, mock.Anything).Return(errors.New("db down"))

	err := inv.Invalidate(context.Background())
	assert.EqualError(t, err, "db down")
	assert.Empty(t, inv.Pending())
}

func TestSyncInvalidator_Concurrent(t *testing.T) {
	strategy := new(MockStrategy)
	strategy.On("Invalidate", mock.Anything, mock.Anything).Return(nil)
	inv := NewSyncInvalidator(NewOrderMarginInvalidator(strategy))

	ids := make([]uuid.UUID, 50)
	for i := range ids {
		ids[i] = uuid.New()
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(2)
		go func(id uuid.UUID) {
			defer wg.Done()
			inv.AddStockUnitID(id)
		}(id)
		go func(id uuid.UUID) {
			defer wg.Done()
			inv.AddStockUnitID(id)
		}(id)
	}
	wg.Wait()

	assert.Len(t, inv.Pending(), len(ids))
	require.NoError(t, inv.Invalidate(context.Background()))
	assert.Empty(t, inv.Pending())
}

func TestRepositoryInvalidationStrategy_Invalidate(t *testing.T) {
	ctx := context.Background()
	unit := newUnit(t, uuid.New(), 60)
	order := newOrder(t, "SO-1", unit)
	order.InvalidateMargin()

	marginCache := cache.NewInMemoryMarginCache(time.Minute)
	defer marginCache.Close()
	require.NoError(t, marginCache.Set(ctx, order.ID, trade.SaleMargin{Amount: decimal.NewFromInt(1)}, 0))

	repo := new(MockSaleRepository)
	repo.On("FindOrdersByStockUnits", mock.Anything, []uuid.UUID{unit.ID}).Return([]*trade.Sale{order}, nil)
	repo.On("Save", mock.Anything, order).Return(nil)

	calculator := report.NewMarginCalculatorFactory(nil).Create(false)
	strategy := NewRepositoryInvalidationStrategy(repo, calculator, marginCache, zaptest.NewLogger(t), nil)

	require.NoError(t, strategy.Invalidate(ctx, []uuid.UUID{unit.ID}))

	assert.False(t, order.MarginDirty)
	assert.True(t, order.Margin.Revenue.Equal(decimal.NewFromInt(200)))
	assert.True(t, order.Margin.Cost.Equal(decimal.NewFromInt(120)))
	assert.True(t, order.Margin.Amount.Equal(decimal.NewFromInt(80)))

	cached, err := marginCache.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, cached)
	repo.AssertExpectations(t)
}

func TestRepositoryInvalidationStrategy_Errors(t *testing.T) {
	ctx := context.Background()
	calculator := report.NewMarginCalculatorFactory(nil).Create(true)

	t.Run("lookup failure", func(t *testing.T) {
		repo := new(MockSaleRepository)
		repo.On("FindOrdersByStockUnits", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
		strategy := NewRepositoryInvalidationStrategy(repo, calculator, nil, zap.NewNop(), nil)

		err := strategy.Invalidate(ctx, []uuid.UUID{uuid.New()})
		assert.ErrorContains(t, err, "failed to find orders by stock units")
	})

	t.Run("currency mismatch flags the order and keeps going", func(t *testing.T) {
		usdUnit, err := inventory.NewStockUnit(uuid.New(), valueobject.USD)
		require.NoError(t, err)
		broken := newOrder(t, "SO-1", usdUnit)
		healthy := newOrder(t, "SO-2", newUnit(t, uuid.New(), 10))

		repo := new(MockSaleRepository)
		repo.On("FindOrdersByStockUnits", mock.Anything, mock.Anything).Return([]*trade.Sale{broken, healthy}, nil)
		repo.On("Save", mock.Anything, mock.Anything).Return(nil)
		strategy := NewRepositoryInvalidationStrategy(repo, calculator, nil, zap.NewNop(), nil)

		err = strategy.Invalidate(ctx, []uuid.UUID{usdUnit.ID})
		assert.ErrorContains(t, err, "order SO-1")
		assert.True(t, broken.MarginDirty)
		assert.False(t, healthy.MarginDirty)
		repo.AssertNumberOfCalls(t, "Save", 2)
	})
}

func TestReader_SaleMargin(t *testing.T) {
	ctx := context.Background()
	unit := newUnit(t, uuid.New(), 60)
	order := newOrder(t, "SO-1", unit)
	order.InvalidateMargin()

	repo := new(MockSaleRepository)
	repo.On("FindByID", mock.Anything, order.ID).Return(order, nil).Once()
	repo.On("Save", mock.Anything, order).Return(nil).Once()

	marginCache := cache.NewInMemoryMarginCache(time.Minute)
	defer marginCache.Close()
	reader := NewReader(repo, report.NewMarginCalculatorFactory(nil).Create(false), marginCache, time.Minute, zaptest.NewLogger(t))

	m, err := reader.SaleMargin(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, m.Amount.Equal(decimal.NewFromInt(80)))

	// Served from the cache: the repository expectations are single-shot.
	m, err = reader.SaleMargin(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, m.Amount.Equal(decimal.NewFromInt(80)))
	repo.AssertExpectations(t)
}

func TestReader_SaleMargin_Missing(t *testing.T) {
	repo := new(MockSaleRepository)
	id := uuid.New()
	repo.On("FindByID", mock.Anything, id).Return(nil, nil)

	reader := NewReader(repo, report.NewMarginCalculatorFactory(nil).Create(false), nil, 0, zap.NewNop())
	m, err := reader.SaleMargin(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestStockUnitCostChangedHandler(t *testing.T) {
	strategy := new(MockStrategy)
	inv := NewOrderMarginInvalidator(strategy)
	handler := NewStockUnitCostChangedHandler(inv, zaptest.NewLogger(t))

	assert.Equal(t, []string{inventory.EventTypeStockUnitCostChanged}, handler.EventTypes())

	unit := newUnit(t, uuid.New(), 10)
	require.NoError(t, unit.SetCost(decimal.NewFromInt(12), decimal.Zero))
	events := unit.GetDomainEvents()
	require.Len(t, events, 2)

	for _, e := range events {
		require.NoError(t, handler.Handle(context.Background(), e))
	}
	assert.Equal(t, []uuid.UUID{unit.ID}, inv.Pending())

	detached := &inventory.StockUnitCostChangedEvent{StockUnitID: uuid.New()}
	require.NoError(t, handler.Handle(context.Background(), detached))
	assert.Len(t, inv.Pending(), 2)

	err := handler.Handle(context.Background(), trade.NewSaleStateChangedEvent(newOrder(t, "SO-9", unit), trade.SaleStateNew, trade.SaleStateAccepted))
	assert.ErrorContains(t, err, "unexpected event type")
}
