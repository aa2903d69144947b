package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newStockUnit(t *testing.T, ordered int64) *inventory.StockUnit {
	t.Helper()
	unit, err := inventory.NewStockUnit(uuid.New(), valueobject.EUR)
	require.NoError(t, err)
	require.NoError(t, unit.SetOrderedQuantity(decimal.NewFromInt(ordered)))
	return unit
}

func newStockUnitService(t *testing.T) (*StockUnitService, *MockStockUnitRepository, *recordingPublisher) {
	t.Helper()
	repo := new(MockStockUnitRepository)
	pub := &recordingPublisher{}
	svc := NewStockUnitService(repo, nil, zaptest.NewLogger(t), nil)
	svc.SetEventPublisher(pub)
	return svc, repo, pub
}

func TestStockUnitService_Receive(t *testing.T) {
	svc, repo, pub := newStockUnitService(t)
	unit := newStockUnit(t, 10)

	repo.On("FindByID", mock.Anything, unit.ID).Return(unit, nil)
	repo.On("Save", mock.Anything, unit).Return(nil)

	got, err := svc.Receive(context.Background(), unit.ID, decimal.NewFromInt(4))
	require.NoError(t, err)
	assert.Equal(t, inventory.StockUnitStatePending, got.State)

	got, err = svc.Receive(context.Background(), unit.ID, decimal.NewFromInt(6))
	require.NoError(t, err)
	assert.Equal(t, inventory.StockUnitStateReady, got.State)
	assert.True(t, got.ReceivedQuantity.Equal(decimal.NewFromInt(10)))

	assert.Equal(t, []string{"stock_unit.post_update", "stock_unit.post_update"}, pub.types())
	repo.AssertNumberOfCalls(t, "Save", 2)
}

func TestStockUnitService_ShipCloses(t *testing.T) {
	svc, repo, _ := newStockUnitService(t)
	unit := newStockUnit(t, 3)
	require.NoError(t, unit.Receive(decimal.NewFromInt(3)))

	repo.On("FindByID", mock.Anything, unit.ID).Return(unit, nil)
	repo.On("Save", mock.Anything, unit).Return(nil)

	got, err := svc.Ship(context.Background(), unit.ID, decimal.NewFromInt(3))
	require.NoError(t, err)
	assert.Equal(t, inventory.StockUnitStateClosed, got.State)
	assert.NotNil(t, got.ClosedAt)

	got, err = svc.Ship(context.Background(), unit.ID, decimal.NewFromInt(-1))
	require.NoError(t, err)
	assert.Equal(t, inventory.StockUnitStateReady, got.State)
	assert.Nil(t, got.ClosedAt)
}

func TestStockUnitService_SetCostPublishesChange(t *testing.T) {
	svc, repo, pub := newStockUnitService(t)
	unit := newStockUnit(t, 1)
	unit.ClearDomainEvents()

	repo.On("FindByID", mock.Anything, unit.ID).Return(unit, nil)
	repo.On("Save", mock.Anything, unit).Return(nil)

	_, err := svc.SetCost(context.Background(), unit.ID, decimal.NewFromInt(12), decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, []string{inventory.EventTypeStockUnitCostChanged, "stock_unit.post_update"}, pub.types())
	assert.Empty(t, unit.GetDomainEvents())

	// Same cost again: no change event.
	_, err = svc.SetCost(context.Background(), unit.ID, decimal.NewFromInt(12), decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Len(t, pub.types(), 3)
}

func TestStockUnitService_Errors(t *testing.T) {
	t.Run("unit not found", func(t *testing.T) {
		svc, repo, _ := newStockUnitService(t)
		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(nil, nil)

		_, err := svc.Adjust(context.Background(), id, decimal.NewFromInt(1))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("domain rejection does not save", func(t *testing.T) {
		svc, repo, pub := newStockUnitService(t)
		unit := newStockUnit(t, 5)
		repo.On("FindByID", mock.Anything, unit.ID).Return(unit, nil)

		_, err := svc.Unreceive(context.Background(), unit.ID, decimal.NewFromInt(1))
		assert.ErrorIs(t, err, shared.ErrInvalidArgument)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		assert.Empty(t, pub.types())
	})

	t.Run("save failure", func(t *testing.T) {
		svc, repo, _ := newStockUnitService(t)
		unit := newStockUnit(t, 5)
		repo.On("FindByID", mock.Anything, unit.ID).Return(unit, nil)
		repo.On("Save", mock.Anything, unit).Return(shared.ErrConcurrencyConflict)

		_, err := svc.Receive(context.Background(), unit.ID, decimal.NewFromInt(1))
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestStockUnitService_Delete(t *testing.T) {
	t.Run("untouched unit", func(t *testing.T) {
		svc, repo, pub := newStockUnitService(t)
		unit := newStockUnit(t, 5)
		repo.On("FindByID", mock.Anything, unit.ID).Return(unit, nil)
		repo.On("Delete", mock.Anything, unit.ID).Return(nil)

		require.NoError(t, svc.Delete(context.Background(), unit.ID))
		assert.Equal(t, []string{"stock_unit.post_delete"}, pub.types())
	})

	t.Run("received unit", func(t *testing.T) {
		svc, repo, _ := newStockUnitService(t)
		unit := newStockUnit(t, 5)
		require.NoError(t, unit.Receive(decimal.NewFromInt(1)))
		repo.On("FindByID", mock.Anything, unit.ID).Return(unit, nil)

		err := svc.Delete(context.Background(), unit.ID)
		assert.ErrorIs(t, err, shared.ErrPrecondition)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestStockUnitService_ReconcileAll(t *testing.T) {
	svc, repo, pub := newStockUnitService(t)

	stale := newStockUnit(t, 5)
	stale.ReceivedQuantity = decimal.NewFromInt(5)
	stale.ShippedQuantity = decimal.NewFromInt(5)
	stale.State = inventory.StockUnitStateReady

	current := newStockUnit(t, 0)

	broken := newStockUnit(t, 2)

	repo.On("FindOpen", mock.Anything, mock.MatchedBy(func(f shared.Filter) bool { return f.Page == 1 })).
		Return([]*inventory.StockUnit{stale, current, broken}, nil)
	repo.On("Save", mock.Anything, stale).Return(nil)
	repo.On("Save", mock.Anything, broken).Return(errors.New("deadlock"))

	var states []inventory.StockUnitState
	summary, err := svc.ReconcileAll(context.Background(), func(r ReconcileResult) {
		states = append(states, r.State)
	})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Units)
	assert.Equal(t, 1, summary.Changed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []inventory.StockUnitState{
		inventory.StockUnitStateClosed,
		inventory.StockUnitStateNew,
		inventory.StockUnitStatePending,
	}, states)
	assert.Equal(t, []string{"stock_unit.post_update"}, pub.types())
}

func TestStockUnitService_ReconcileAll_Pages(t *testing.T) {
	svc, repo, _ := newStockUnitService(t)

	first := make([]*inventory.StockUnit, reconcilePage)
	for i := range first {
		first[i] = newStockUnit(t, 0)
	}
	repo.On("FindOpen", mock.Anything, mock.MatchedBy(func(f shared.Filter) bool { return f.Page == 1 })).Return(first, nil)
	repo.On("FindOpen", mock.Anything, mock.MatchedBy(func(f shared.Filter) bool { return f.Page == 2 })).
		Return([]*inventory.StockUnit{newStockUnit(t, 0)}, nil)

	summary, err := svc.ReconcileAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, reconcilePage+1, summary.Units)
	assert.Zero(t, summary.Changed)
}

func TestStockUnitService_ReconcileAll_ListFailure(t *testing.T) {
	svc, repo, _ := newStockUnitService(t)
	repo.On("FindOpen", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := svc.ReconcileAll(context.Background(), nil)
	assert.ErrorContains(t, err, "failed to list open stock units")
}
