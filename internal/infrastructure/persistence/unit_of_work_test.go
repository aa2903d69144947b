package persistence

import (
	"context"
	"testing"

	"github.com/erp/commerce/internal/domain/partner"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormUnitOfWork_Flush(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	uow := NewGormUnitOfWork(db)
	f := newSaleFixture(t, "UOW-1")

	require.NoError(t, uow.Persist(f.unit))
	require.NoError(t, uow.Persist(f.sale))
	require.NoError(t, uow.Persist(f.sale))
	assert.Equal(t, 2, uow.Pending())

	require.NoError(t, uow.Flush(ctx))
	assert.Zero(t, uow.Pending())

	sale, err := NewGormSaleRepository(db).FindByID(ctx, f.sale.ID)
	require.NoError(t, err)
	require.NotNil(t, sale)
	require.Len(t, sale.Items[0].Assignments, 1)

	require.NoError(t, uow.Remove(f.sale))
	require.NoError(t, uow.Flush(ctx))

	sale, err = NewGormSaleRepository(db).FindByID(ctx, f.sale.ID)
	require.NoError(t, err)
	assert.Nil(t, sale)
}

func TestGormUnitOfWork_FlushEmpty(t *testing.T) {
	uow := NewGormUnitOfWork(setupTestDB(t))
	assert.NoError(t, uow.Flush(context.Background()))
}

func TestGormUnitOfWork_RejectsUnsupported(t *testing.T) {
	uow := NewGormUnitOfWork(setupTestDB(t))

	err := uow.Persist(struct{}{})
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)

	customer, err := partner.NewCustomer("C1", "Customer")
	require.NoError(t, err)
	assert.ErrorIs(t, uow.Remove(customer), shared.ErrInvalidArgument)
	assert.Zero(t, uow.Pending())
}

func TestGormUnitOfWork_FailedFlushDropsQueue(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	customers := NewGormCustomerRepository(db)
	uow := NewGormUnitOfWork(db)

	customer, err := partner.NewCustomer("C1", "Customer")
	require.NoError(t, err)
	require.NoError(t, customers.Save(ctx, customer))

	stale, err := customers.FindByID(ctx, customer.ID)
	require.NoError(t, err)
	require.NoError(t, customer.SetOutstandingLimit(decimal.NewFromInt(100)))
	require.NoError(t, customers.Save(ctx, customer))

	other, err := partner.NewCustomer("C2", "Other")
	require.NoError(t, err)
	require.NoError(t, uow.Persist(other))
	require.NoError(t, uow.Persist(stale))
	err = uow.Flush(ctx)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.Zero(t, uow.Pending())

	// the rolled back insert is not written
	found, err := customers.FindByCode(ctx, "C2")
	require.NoError(t, err)
	assert.Nil(t, found)

	// later flushes do not replay the conflicting update
	fresh, err := customers.FindByID(ctx, customer.ID)
	require.NoError(t, err)
	require.NoError(t, fresh.SetOutstandingLimit(decimal.NewFromInt(250)))
	require.NoError(t, uow.Persist(fresh))
	require.NoError(t, uow.Flush(ctx))

	stored, err := customers.FindByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.True(t, stored.OutstandingLimit.Equal(decimal.NewFromInt(250)))
}
