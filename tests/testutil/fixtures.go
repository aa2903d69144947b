package testutil

import (
	"testing"

	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/erp/commerce/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// NewStockUnit builds a EUR stock unit for the subject derived from seed,
// with the given ordered and received quantities and a unit cost of 10.
// The state is resolved before the unit is returned.
func NewStockUnit(t *testing.T, seed string, ordered, received int64) *inventory.StockUnit {
	t.Helper()

	unit, err := inventory.NewStockUnit(NewTestUUID(seed), valueobject.EUR)
	require.NoError(t, err)
	require.NoError(t, unit.SetOrderedQuantity(decimal.NewFromInt(ordered)))
	if received > 0 {
		require.NoError(t, unit.Receive(decimal.NewFromInt(received)))
	}
	require.NoError(t, unit.SetCost(decimal.NewFromInt(10), decimal.Zero))
	_, err = inventory.NewStockUnitStateResolver().Resolve(unit)
	require.NoError(t, err)
	unit.ClearDomainEvents()
	return unit
}

// NewOrder builds a EUR order with one stockable line per unit, each sold at
// price and assigned quantity units of its stock unit.
func NewOrder(t *testing.T, number string, quantity, price int64, units ...*inventory.StockUnit) *trade.Sale {
	t.Helper()

	sale, err := trade.NewSale(trade.SaleKindOrder, number, uuid.New(), valueobject.EUR)
	require.NoError(t, err)
	for _, unit := range units {
		subjectID := unit.SubjectID
		item, err := sale.AddItem("Item "+subjectID.String()[:8], &subjectID, decimal.NewFromInt(quantity), decimal.NewFromInt(price))
		require.NoError(t, err)
		_, err = item.Assign(unit, decimal.NewFromInt(quantity))
		require.NoError(t, err)
	}
	sale.UpdateGrandTotal()
	return sale
}
