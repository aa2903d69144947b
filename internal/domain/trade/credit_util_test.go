package trade

import (
	"testing"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCredit(t *testing.T, sale *Sale, lines map[*SaleItem]int64) *Credit {
	t.Helper()
	credit, err := sale.NewCredit("CR")
	require.NoError(t, err)
	for item, qty := range lines {
		_, err := credit.AddItem(item, d(qty))
		require.NoError(t, err)
	}
	return credit
}

func TestCalculateCreditableQuantity(t *testing.T) {
	sale := newTestSale(t, SaleKindOrder)
	item := addStockableItem(t, sale, 10, 5)
	newShipment(t, sale, ShipmentStateShipped, false, map[*SaleItem]int64{item: 3})

	first := newCredit(t, sale, map[*SaleItem]int64{item: 2})
	current := newCredit(t, sale, map[*SaleItem]int64{item: 1})

	// 10 - 3 shipped - 2 credited elsewhere
	assertDecimal(t, 5, CalculateCreditableQuantity(current.Items[0]))
	assertDecimal(t, 6, CalculateCreditableQuantity(first.Items[0]))
	assertDecimal(t, 3, CalculateCreditedQuantity(item))

	t.Run("fully credited goes non positive", func(t *testing.T) {
		newCredit(t, sale, map[*SaleItem]int64{item: 6})
		assert.False(t, CalculateCreditableQuantity(current.Items[0]).IsPositive())
	})

	t.Run("nil item", func(t *testing.T) {
		assertDecimal(t, 0, CalculateCreditableQuantity(nil))
	})
}

func TestCalculateCreditableQuantity_Monotonic(t *testing.T) {
	sale := newTestSale(t, SaleKindOrder)
	item := addStockableItem(t, sale, 20, 5)
	current := newCredit(t, sale, map[*SaleItem]int64{item: 1})

	previous := CalculateCreditableQuantity(current.Items[0])
	for _, qty := range []int64{3, 0, 5, 2} {
		newCredit(t, sale, map[*SaleItem]int64{item: qty})
		next := CalculateCreditableQuantity(current.Items[0])
		assert.True(t, next.LessThanOrEqual(previous), "%s > %s", next, previous)
		previous = next
	}
	assertDecimal(t, 10, previous)

	t.Run("independent of the order of other credits", func(t *testing.T) {
		sale.Credits[1], sale.Credits[3] = sale.Credits[3], sale.Credits[1]
		sale.Credits[0], sale.Credits[4] = sale.Credits[4], sale.Credits[0]
		assertDecimal(t, 10, CalculateCreditableQuantity(current.Items[0]))
	})
}

func TestCalculateCreditableQuantity_Composite(t *testing.T) {
	sale := newTestSale(t, SaleKindOrder)
	root, err := sale.AddItem("Bundle", nil, d(2), d(100))
	require.NoError(t, err)
	a := addChild(t, root, 1)
	b := addChild(t, root, 2)
	newShipment(t, sale, ShipmentStateShipped, false, map[*SaleItem]int64{b: 1})
	newCredit(t, sale, map[*SaleItem]int64{a: 1})

	current := newCredit(t, sale, nil)
	_, err = current.AddItem(root, d(1))
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)

	parent := CalculateCreditableQuantity(&CreditItem{Credit: current, SaleItem: root})
	// a: 2 - 0 - 1, b: 4 - 1 - 0
	assertDecimal(t, 4, parent)
}

func TestPruneCredit(t *testing.T) {
	sale := newTestSale(t, SaleKindOrder)
	shipped := addStockableItem(t, sale, 2, 5)
	partial := addStockableItem(t, sale, 5, 5)
	free := addStockableItem(t, sale, 3, 5)
	newShipment(t, sale, ShipmentStateShipped, false, map[*SaleItem]int64{shipped: 2, partial: 3})

	credit, err := sale.NewCredit("CR-1")
	require.NoError(t, err)
	shippedLine, _ := credit.AddItem(shipped, d(1))
	partialLine, _ := credit.AddItem(partial, d(4))
	freeLine, _ := credit.AddItem(free, d(0))

	removed := PruneCredit(credit)

	assert.ElementsMatch(t, []*CreditItem{shippedLine, freeLine}, removed)
	require.Len(t, credit.Items, 1)
	assert.Same(t, partialLine, credit.Items[0])
	assertDecimal(t, 2, partialLine.Quantity)

	assert.Empty(t, PruneCredit(nil))
}
