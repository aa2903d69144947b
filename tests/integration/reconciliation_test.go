//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	appinventory "github.com/erp/commerce/internal/application/inventory"
	apptrade "github.com/erp/commerce/internal/application/trade"
	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/erp/commerce/internal/domain/trade"
	"github.com/erp/commerce/internal/infrastructure/event"
	"github.com/erp/commerce/internal/infrastructure/persistence"
	"github.com/erp/commerce/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSupplierDelivery_ReceivesStockUnits(t *testing.T) {
	tdb := NewSharedTestDB(t)
	ctx := context.Background()
	log := zaptest.NewLogger(t)

	orders := persistence.NewGormSupplierOrderRepository(tdb.DB)
	units := persistence.NewGormStockUnitRepository(tdb.DB)

	order, err := inventory.NewSupplierOrder("PO-100", testutil.NewTestUUID("supplier"), valueobject.EUR)
	require.NoError(t, err)
	item, err := order.AddItem(testutil.NewTestUUID("screws"), "Screws", decimal.NewFromInt(10), decimal.NewFromFloat(0.5))
	require.NoError(t, err)
	require.NoError(t, order.MarkOrdered(time.Now()))
	require.NoError(t, orders.Save(ctx, order))

	bus := event.NewInMemoryEventBus(log)
	handler := testutil.NewMockEventHandler(inventory.EventTypeSupplierDelivered)
	bus.Subscribe(handler)

	svc := appinventory.NewSupplierDeliveryService(orders, units,
		shared.NewPersistenceHelper(persistence.NewGormUnitOfWork(tdb.DB)), log)
	svc.SetEventPublisher(bus)

	_, err = svc.RegisterDelivery(ctx, order.ID, []appinventory.DeliveryLine{
		{OrderItemID: item.ID, Quantity: decimal.NewFromInt(4)},
	})
	require.NoError(t, err)

	unit, err := units.FindBySupplierOrderItem(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, unit)
	assert.True(t, unit.OrderedQuantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, unit.ReceivedQuantity.Equal(decimal.NewFromInt(4)))
	assert.Equal(t, inventory.StockUnitStatePending, unit.State)

	_, err = svc.RegisterDelivery(ctx, order.ID, []appinventory.DeliveryLine{
		{OrderItemID: item.ID, Quantity: decimal.NewFromInt(6)},
	})
	require.NoError(t, err)

	reloaded, err := orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.SupplierOrderStateReceived, reloaded.State)

	unit, err = units.FindByID(ctx, unit.ID)
	require.NoError(t, err)
	assert.True(t, unit.ReceivedQuantity.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, inventory.StockUnitStateReady, unit.State)

	assert.True(t, testutil.WaitForEventCount(t, handler, 2, time.Second))

	_, err = svc.RegisterDelivery(ctx, order.ID, []appinventory.DeliveryLine{
		{OrderItemID: item.ID, Quantity: decimal.NewFromInt(1)},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestShipmentService_ShipAndReturnAgainstPostgres(t *testing.T) {
	tdb := NewSharedTestDB(t)
	ctx := context.Background()
	log := zaptest.NewLogger(t)

	units := persistence.NewGormStockUnitRepository(tdb.DB)
	sales := persistence.NewGormSaleRepository(tdb.DB)

	unit := testutil.NewStockUnit(t, "lamp", 2, 2)
	sale := testutil.NewOrder(t, "SO-100", 2, 30, unit)
	require.NoError(t, units.Save(ctx, unit))
	require.NoError(t, sales.Save(ctx, sale))
	lamp := sale.Items[0]

	bus := event.NewInMemoryEventBus(log)
	handler := testutil.NewMockEventHandler()
	bus.SubscribeChannel(handler, shared.ChannelShipment, shared.NotificationPostCreate, shared.NotificationPostUpdate)

	svc := apptrade.NewShipmentService(sales, shared.NewPersistenceHelper(persistence.NewGormUnitOfWork(tdb.DB)), log)
	svc.SetEventPublisher(bus)

	shipment, err := svc.CreateShipment(ctx, sale.ID, "SH-100", false, []apptrade.ShipmentLine{
		{SaleItemID: lamp.ID, Quantity: decimal.NewFromInt(2)},
	})
	require.NoError(t, err)
	_, err = svc.Ship(ctx, sale.ID, shipment.ID)
	require.NoError(t, err)

	stored, err := units.FindByID(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StockUnitStateClosed, stored.State)
	assert.True(t, stored.ShippedQuantity.Equal(decimal.NewFromInt(2)))

	loaded, err := sales.FindByID(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Shipments, 1)
	assert.Equal(t, trade.ShipmentStateShipped, loaded.Shipments[0].State)

	ret, err := svc.CreateShipment(ctx, sale.ID, "RT-100", true, []apptrade.ShipmentLine{
		{SaleItemID: lamp.ID, Quantity: decimal.NewFromInt(1)},
	})
	require.NoError(t, err)
	_, err = svc.Ship(ctx, sale.ID, ret.ID)
	require.NoError(t, err)

	stored, err = units.FindByID(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StockUnitStateReady, stored.State)
	assert.True(t, stored.ShippedQuantity.Equal(decimal.NewFromInt(1)))

	testutil.RequireEventually(t, func() bool {
		return handler.HandledCount() == 4
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{
		"shipment.post_create", "shipment.post_update",
		"shipment.post_create", "shipment.post_update",
	}, handler.HandledTypes())
}

func TestStockUnitService_ReconcileAllRepairsStaleStates(t *testing.T) {
	tdb := NewSharedTestDB(t)
	ctx := context.Background()

	units := persistence.NewGormStockUnitRepository(tdb.DB)

	stale := testutil.NewStockUnit(t, "stale", 5, 5)
	stale.State = inventory.StockUnitStatePending
	require.NoError(t, units.Save(ctx, stale))

	current := testutil.NewStockUnit(t, "current", 5, 1)
	require.NoError(t, units.Save(ctx, current))

	svc := appinventory.NewStockUnitService(units, nil, zaptest.NewLogger(t), nil)

	var reported []appinventory.ReconcileResult
	summary, err := svc.ReconcileAll(ctx, func(r appinventory.ReconcileResult) {
		reported = append(reported, r)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Units)
	assert.Equal(t, 1, summary.Changed)
	assert.Equal(t, 0, summary.Failed)
	assert.Len(t, reported, 2)

	stored, err := units.FindByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StockUnitStateReady, stored.State)

	stored, err = units.FindByID(ctx, current.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StockUnitStatePending, stored.State)
}
