package trade

import (
	"errors"
	"testing"

	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func newTestSale(t *testing.T, kind SaleKind) *Sale {
	t.Helper()
	sale, err := NewSale(kind, "S-0001", uuid.New(), valueobject.EUR)
	require.NoError(t, err)
	return sale
}

func addStockableItem(t *testing.T, sale *Sale, quantity, price int64) *SaleItem {
	t.Helper()
	subjectID := uuid.New()
	item, err := sale.AddItem("Product", &subjectID, d(quantity), d(price))
	require.NoError(t, err)
	return item
}

func addChild(t *testing.T, parent *SaleItem, quantity int64) *SaleItem {
	t.Helper()
	subjectID := uuid.New()
	child, err := parent.AddChild("Component", &subjectID, d(quantity), decimal.Zero)
	require.NoError(t, err)
	return child
}

func assertDecimal(t *testing.T, expected int64, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, actual.Equal(d(expected)), "expected %d, got %s", expected, actual)
}

func TestNewSale(t *testing.T) {
	t.Run("creates a sale", func(t *testing.T) {
		sale := newTestSale(t, SaleKindOrder)

		assert.Equal(t, SaleKindOrder, sale.Kind)
		assert.Equal(t, SaleStateNew, sale.State)
		assert.Equal(t, PaymentSubStateNew, sale.PaymentState)
		assert.Equal(t, ShipmentSubStateNone, sale.ShipmentState)
		assert.False(t, sale.HasItems())
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := NewSale(SaleKind("BASKET"), "S-1", uuid.New(), valueobject.EUR)
		assert.True(t, errors.Is(err, shared.ErrInvalidArgument))

		_, err = NewSale(SaleKindCart, "", uuid.New(), valueobject.EUR)
		assert.True(t, errors.Is(err, shared.ErrInvalidArgument))

		_, err = NewSale(SaleKindCart, "S-1", uuid.New(), valueobject.Currency("x"))
		assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
	})
}

func TestSaleItem_Tree(t *testing.T) {
	sale := newTestSale(t, SaleKindOrder)
	root, err := sale.AddItem("Bundle", nil, d(2), d(100))
	require.NoError(t, err)
	child := addChild(t, root, 3)
	grandChild := addChild(t, child, 2)
	sibling := addChild(t, root, 1)

	t.Run("total quantity multiplies the parent chain", func(t *testing.T) {
		assertDecimal(t, 2, root.TotalQuantity())
		assertDecimal(t, 6, child.TotalQuantity())
		assertDecimal(t, 12, grandChild.TotalQuantity())
		assertDecimal(t, 2, sibling.TotalQuantity())
	})

	t.Run("leaves", func(t *testing.T) {
		assert.Equal(t, []*SaleItem{grandChild, sibling}, root.Leaves())
		assert.Equal(t, []*SaleItem{grandChild, sibling}, sale.LeafItems())
		assert.Len(t, sale.AllItems(), 4)
		assert.Same(t, grandChild, sale.FindItem(grandChild.ID))
		assert.Nil(t, sale.FindItem(uuid.New()))
	})

	t.Run("stockable only for subject bound leaves", func(t *testing.T) {
		assert.False(t, root.IsStockable())
		assert.False(t, child.IsStockable())
		assert.True(t, grandChild.IsStockable())
	})

	t.Run("grand total", func(t *testing.T) {
		sale.ShipmentAmount = d(15)
		sale.UpdateGrandTotal()
		assertDecimal(t, 215, sale.GrandTotal)
	})

	t.Run("composite items cannot be assigned", func(t *testing.T) {
		unit, err := inventory.NewStockUnit(uuid.New(), valueobject.EUR)
		require.NoError(t, err)
		_, err = root.Assign(unit, d(1))
		assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
	})

	t.Run("rejects invalid items", func(t *testing.T) {
		_, err := sale.AddItem("", nil, d(1), d(1))
		assert.Error(t, err)
		_, err = sale.AddItem("X", nil, decimal.Zero, d(1))
		assert.Error(t, err)
		_, err = sale.AddItem("X", nil, d(1), d(-1))
		assert.Error(t, err)
	})
}

func TestSaleItem_Assign(t *testing.T) {
	sale := newTestSale(t, SaleKindOrder)
	item := addStockableItem(t, sale, 3, 10)
	other := addStockableItem(t, sale, 1, 10)

	unit, err := inventory.NewStockUnit(*item.SubjectID, valueobject.EUR)
	require.NoError(t, err)

	_, err = other.Assign(unit, d(1))
	assert.True(t, errors.Is(err, shared.ErrInvalidArgument))

	a, err := item.Assign(unit, d(2))
	require.NoError(t, err)
	assert.Equal(t, item.ID, a.SaleItemID)
	_, err = item.Assign(unit, d(1))
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{unit.ID}, sale.StockUnitIDs())
	assertDecimal(t, 3, unit.ReservedQuantity)
}

func TestSale_Totals(t *testing.T) {
	sale := newTestSale(t, SaleKindOrder)
	addStockableItem(t, sale, 2, 50)
	sale.UpdateGrandTotal()

	card := PaymentMethod{Code: "card", Factory: "offline"}
	p1, err := sale.AddPayment("P-1", card, d(40))
	require.NoError(t, err)
	p2, err := sale.AddPayment("P-2", card, d(30))
	require.NoError(t, err)
	_, err = sale.AddPayment("P-3", card, decimal.Zero)
	assert.Error(t, err)

	_, err = p1.SetState(PaymentStateCaptured)
	require.NoError(t, err)
	_, err = p2.SetState(PaymentStatePending)
	require.NoError(t, err)

	assert.True(t, sale.UpdatePaidTotal())
	assert.False(t, sale.UpdatePaidTotal())
	assertDecimal(t, 40, sale.PaidTotal)
	assertDecimal(t, 30, CalculatePendingTotal(sale))
	assertDecimal(t, 30, CalculateRemainingTotal(sale))
	assert.NotNil(t, p1.CompletedAt)
	assert.Same(t, p2, sale.FindPayment(p2.ID))

	changed, err := p1.SetState(PaymentStateCaptured)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = p1.SetState(PaymentState("DONE"))
	assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
}
