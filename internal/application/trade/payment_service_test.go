package trade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/commerce/internal/domain/partner"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/erp/commerce/internal/domain/trade"
	"github.com/erp/commerce/internal/infrastructure/config"
	"github.com/erp/commerce/internal/infrastructure/gateway"
	"github.com/erp/commerce/internal/infrastructure/persistence"
	"github.com/erp/commerce/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type paymentFixture struct {
	sales     *MockSaleRepository
	customer  *partner.Customer
	persister *recordingPersister
	publisher *recordingPublisher
	service   *PaymentService
}

func newPaymentFixture(t *testing.T, flags FeatureFlags) *paymentFixture {
	t.Helper()
	customer, err := partner.NewCustomer("C001", "Acme")
	require.NoError(t, err)
	require.NoError(t, customer.SetOutstandingLimit(decimal.NewFromInt(100)))

	f := &paymentFixture{
		sales:     new(MockSaleRepository),
		customer:  customer,
		persister: &recordingPersister{},
		publisher: &recordingPublisher{},
	}
	customers := &customerStore{customers: map[uuid.UUID]*partner.Customer{customer.ID: customer}}
	helper := shared.NewPersistenceHelper(f.persister)
	registry, err := gateway.NewRegistry([]gateway.Config{
		{Name: "check", Factory: gateway.FactoryOffline},
		{Name: "outstanding", Factory: gateway.FactoryOutstandingBalance},
	}, gateway.Dependencies{Customers: customers, Persister: helper, Logger: zap.NewNop()})
	require.NoError(t, err)

	f.service = NewPaymentService(f.sales, customers, registry, helper, flags, zap.NewNop(), nil)
	f.service.SetEventPublisher(f.publisher)
	return f
}

// newOrder builds an order of 100 without stockable items
func (f *paymentFixture) newOrder(t *testing.T) *trade.Sale {
	t.Helper()
	sale, err := trade.NewSale(trade.SaleKindOrder, "SO-1", f.customer.ID, valueobject.EUR)
	require.NoError(t, err)
	_, err = sale.AddItem("Service", nil, decimal.NewFromInt(1), decimal.NewFromInt(100))
	require.NoError(t, err)
	sale.UpdateGrandTotal()
	f.sales.On("FindByID", mock.Anything, sale.ID).Return(sale, nil)
	return sale
}

func TestPaymentService_AddPayment_Offline(t *testing.T) {
	f := newPaymentFixture(t, nil)
	sale := f.newOrder(t)

	payment, err := f.service.AddPayment(context.Background(), sale.ID, "P1", "check", decimal.NewFromInt(100))
	require.NoError(t, err)

	assert.Equal(t, trade.PaymentStatePending, payment.State)
	assert.Equal(t, "check", payment.Method.Code)
	assert.Equal(t, trade.SaleStatePending, sale.State)
	assert.True(t, f.persister.has(sale))
	assert.Equal(t, 1, f.persister.flushed)
	assert.Contains(t, f.publisher.types(), trade.EventTypeSaleStateChanged)
	assert.Contains(t, f.publisher.types(), "sale.post_update")
	assert.Contains(t, f.publisher.types(), "payment.post_update")
	assert.Empty(t, sale.GetDomainEvents())
}

func TestPaymentService_AddPayment_UnknownGateway(t *testing.T) {
	f := newPaymentFixture(t, nil)

	_, err := f.service.AddPayment(context.Background(), uuid.New(), "P1", "wire", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, shared.ErrUnexpectedValue)
	f.sales.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestPaymentService_AddPayment_SaleNotFound(t *testing.T) {
	f := newPaymentFixture(t, nil)
	id := uuid.New()
	f.sales.On("FindByID", mock.Anything, id).Return(nil, nil)

	_, err := f.service.AddPayment(context.Background(), id, "P1", "check", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPaymentService_Execute_Accept(t *testing.T) {
	f := newPaymentFixture(t, nil)
	sale := f.newOrder(t)
	payment, err := f.service.AddPayment(context.Background(), sale.ID, "P1", "check", decimal.NewFromInt(100))
	require.NoError(t, err)
	f.sales.On("FindByPaymentID", mock.Anything, payment.ID).Return(sale, nil)

	_, err = f.service.Execute(context.Background(), payment.ID, gateway.KindAccept, "")
	require.NoError(t, err)

	assert.Equal(t, trade.PaymentStateCaptured, payment.State)
	assert.True(t, sale.PaidTotal.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, trade.SaleStateAccepted, sale.State)
	assert.Equal(t, 2, f.persister.flushed)
}

func TestPaymentService_Execute_Errors(t *testing.T) {
	f := newPaymentFixture(t, nil)
	sale := f.newOrder(t)

	missing := uuid.New()
	f.sales.On("FindByPaymentID", mock.Anything, missing).Return(nil, nil)
	_, err := f.service.Execute(context.Background(), missing, gateway.KindAccept, "")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	broken := uuid.New()
	f.sales.On("FindByPaymentID", mock.Anything, broken).Return(nil, errors.New("db down"))
	_, err = f.service.Execute(context.Background(), broken, gateway.KindAccept, "")
	assert.ErrorContains(t, err, "failed to load sale")

	payment, err := f.service.AddPayment(context.Background(), sale.ID, "P1", "check", decimal.NewFromInt(100))
	require.NoError(t, err)
	f.sales.On("FindByPaymentID", mock.Anything, payment.ID).Return(sale, nil)
	_, err = f.service.Execute(context.Background(), payment.ID, gateway.KindRefund, "")
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestPaymentService_ReleasesOverpaidOutstanding(t *testing.T) {
	f := newPaymentFixture(t, nil)
	sale := f.newOrder(t)

	deferred, err := f.service.AddPayment(context.Background(), sale.ID, "P1", "outstanding", decimal.NewFromInt(60))
	require.NoError(t, err)
	require.Equal(t, trade.PaymentStateAuthorized, deferred.State)
	require.True(t, f.customer.OutstandingBalance.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, trade.SaleStatePending, sale.State)

	check, err := f.service.AddPayment(context.Background(), sale.ID, "P2", "check", decimal.NewFromInt(100))
	require.NoError(t, err)
	f.sales.On("FindByPaymentID", mock.Anything, check.ID).Return(sale, nil)
	_, err = f.service.Execute(context.Background(), check.ID, gateway.KindAccept, "")
	require.NoError(t, err)

	assert.Equal(t, trade.PaymentStateCanceled, deferred.State)
	assert.True(t, sale.PaidTotal.Equal(decimal.NewFromInt(100)))
	assert.True(t, f.customer.OutstandingBalance.IsZero())
	assert.True(t, f.persister.has(f.customer))
	assert.Equal(t, trade.SaleStateAccepted, sale.State)
}

func TestPaymentService_OutstandingCaptureReleasedInSameFlush(t *testing.T) {
	ctx, cancel := testutil.ContextWithTimeout(t, 5*time.Second)
	defer cancel()

	db := testutil.NewSQLiteDB(t)
	customers := persistence.NewGormCustomerRepository(db)
	sales := persistence.NewGormSaleRepository(db)
	helper := shared.NewPersistenceHelper(persistence.NewGormUnitOfWork(db))

	customer, err := partner.NewCustomer("C001", "Acme")
	require.NoError(t, err)
	require.NoError(t, customer.SetOutstandingLimit(decimal.NewFromInt(100)))
	require.NoError(t, customers.Save(ctx, customer))

	registry, err := gateway.NewRegistry([]gateway.Config{
		{Name: "check", Factory: gateway.FactoryOffline},
		{Name: "outstanding", Factory: gateway.FactoryOutstandingBalance},
	}, gateway.Dependencies{Customers: customers, Persister: helper, Logger: zap.NewNop()})
	require.NoError(t, err)
	service := NewPaymentService(sales, customers, registry, helper, nil, zap.NewNop(), nil)

	newOrder := func(number string) *trade.Sale {
		sale, err := trade.NewSale(trade.SaleKindOrder, number, customer.ID, valueobject.EUR)
		require.NoError(t, err)
		_, err = sale.AddItem("Service", nil, decimal.NewFromInt(1), decimal.NewFromInt(100))
		require.NoError(t, err)
		sale.UpdateGrandTotal()
		require.NoError(t, sales.Save(ctx, sale))
		return sale
	}

	first := newOrder("SO-1")
	check, err := service.AddPayment(ctx, first.ID, "P1", "check", decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = service.Execute(ctx, check.ID, gateway.KindAccept, "")
	require.NoError(t, err)

	// authorized against the limit, then released by the overpaid order
	deferred, err := service.AddPayment(ctx, first.ID, "P2", "outstanding", decimal.NewFromInt(20))
	require.NoError(t, err)
	assert.Equal(t, trade.PaymentStateCanceled, deferred.State)

	stored, err := customers.FindByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.True(t, stored.OutstandingBalance.IsZero(), "balance %s", stored.OutstandingBalance)

	loaded, err := sales.FindByID(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Payments, 2)
	assert.True(t, loaded.PaidTotal.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, trade.SaleStateAccepted, loaded.State)

	second := newOrder("SO-2")
	_, err = service.AddPayment(ctx, second.ID, "P3", "outstanding", decimal.NewFromInt(50))
	require.NoError(t, err)

	stored, err = customers.FindByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.True(t, stored.OutstandingBalance.Equal(decimal.NewFromInt(50)))
}

func TestPaymentService_OutstandingReleaseDisabled(t *testing.T) {
	flags := config.FeaturesConfig{Flags: map[string]bool{
		config.FeatureOutstandingRelease: false,
		config.FeatureGatewaySync:        true,
	}}
	f := newPaymentFixture(t, flags)
	sale := f.newOrder(t)

	deferred, err := f.service.AddPayment(context.Background(), sale.ID, "P1", "outstanding", decimal.NewFromInt(60))
	require.NoError(t, err)
	check, err := f.service.AddPayment(context.Background(), sale.ID, "P2", "check", decimal.NewFromInt(100))
	require.NoError(t, err)
	f.sales.On("FindByPaymentID", mock.Anything, check.ID).Return(sale, nil)
	_, err = f.service.Execute(context.Background(), check.ID, gateway.KindAccept, "")
	require.NoError(t, err)

	assert.Equal(t, trade.PaymentStateAuthorized, deferred.State)
	assert.True(t, sale.PaidTotal.Equal(decimal.NewFromInt(160)))
	assert.True(t, f.customer.OutstandingBalance.Equal(decimal.NewFromInt(60)))
}

func TestPaymentService_Reconcile_UnknownFlag(t *testing.T) {
	f := newPaymentFixture(t, config.FeaturesConfig{Flags: map[string]bool{}})
	sale := f.newOrder(t)

	_, err := f.service.Reconcile(context.Background(), sale)
	assert.ErrorIs(t, err, shared.ErrUnexpectedValue)

	_, err = f.service.Reconcile(context.Background(), nil)
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestPaymentService_SyncSale(t *testing.T) {
	f := newPaymentFixture(t, nil)
	sale := f.newOrder(t)
	payment, err := f.service.AddPayment(context.Background(), sale.ID, "P1", "check", decimal.NewFromInt(100))
	require.NoError(t, err)
	flushed := f.persister.flushed

	// the gateway reported a capture the payment has not caught up with
	payment.Details[gateway.DetailStatus] = string(trade.PaymentStateCaptured)

	moved, err := f.service.SyncSale(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)
	assert.Equal(t, trade.PaymentStateCaptured, payment.State)
	assert.Equal(t, trade.SaleStateAccepted, sale.State)
	assert.Equal(t, flushed+1, f.persister.flushed)

	moved, err = f.service.SyncSale(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Zero(t, moved)
	assert.Equal(t, flushed+1, f.persister.flushed)
}

func TestPaymentService_SyncSale_Disabled(t *testing.T) {
	flags := config.FeaturesConfig{Flags: map[string]bool{config.FeatureGatewaySync: false}}
	f := newPaymentFixture(t, flags)

	moved, err := f.service.SyncSale(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, moved)
	f.sales.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}
