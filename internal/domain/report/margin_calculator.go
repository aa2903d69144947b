package report

import (
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/erp/commerce/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostGuesser estimates the unit cost of a subject that has no assigned
// stock, e.g. from its last purchase price or bill of materials
type CostGuesser interface {
	GuessCost(subjectID uuid.UUID, currency valueobject.Currency) (Cost, bool)
}

// CostGuesserFunc adapts a function to CostGuesser
type CostGuesserFunc func(subjectID uuid.UUID, currency valueobject.Currency) (Cost, bool)

// GuessCost implements CostGuesser
func (f CostGuesserFunc) GuessCost(subjectID uuid.UUID, currency valueobject.Currency) (Cost, bool) {
	return f(subjectID, currency)
}

// MarginCalculatorFactory builds gross or commercial calculators
type MarginCalculatorFactory struct {
	guesser CostGuesser
}

// NewMarginCalculatorFactory creates a factory. The guesser may be nil.
func NewMarginCalculatorFactory(guesser CostGuesser) *MarginCalculatorFactory {
	return &MarginCalculatorFactory{guesser: guesser}
}

// Create returns a calculator. Gross calculators account for supply and
// shipment costs and revenues; commercial ones only weigh goods.
func (f *MarginCalculatorFactory) Create(gross bool) *MarginCalculator {
	return &MarginCalculator{gross: gross, guesser: f.guesser}
}

// MarginCalculator computes sale margins
type MarginCalculator struct {
	gross   bool
	guesser CostGuesser
}

// IsGross reports the calculator variant
func (c *MarginCalculator) IsGross() bool {
	return c.gross
}

// CalculateSale computes the margin of a whole sale
func (c *MarginCalculator) CalculateSale(sale *trade.Sale) (Margin, error) {
	if sale == nil {
		return Margin{}, shared.InvalidArgument("Expected a sale")
	}
	data, err := c.OrderData(sale)
	if err != nil {
		return Margin{}, err
	}
	if c.gross {
		return data.GrossMargin(), nil
	}
	return data.CommercialMargin(), nil
}

// CalculateItem computes the margin of one item and its children
func (c *MarginCalculator) CalculateItem(item *trade.SaleItem) (Margin, error) {
	if item == nil || item.Sale == nil {
		return Margin{}, shared.InvalidArgument("Expected a sale item")
	}
	revenue := decimal.Zero
	var walk func(i *trade.SaleItem)
	walk = func(i *trade.SaleItem) {
		revenue = revenue.Add(i.NetTotal())
		for _, child := range i.Children {
			walk(child)
		}
	}
	walk(item)

	cost, err := c.ItemCost(item)
	if err != nil {
		return Margin{}, err
	}
	m := NewMargin(item.Sale.Currency, revenue, cost.Total(c.gross))
	m.Average = cost.Average
	return m, nil
}

// ItemCost sums the cost of the item's leaves. Assigned quantities are
// costed from their stock unit, the rest is guessed.
func (c *MarginCalculator) ItemCost(item *trade.SaleItem) (Cost, error) {
	total := NewCost(decimal.Zero, decimal.Zero, decimal.Zero)
	for _, leaf := range item.Leaves() {
		cost, err := c.leafCost(leaf)
		if err != nil {
			return Cost{}, err
		}
		total = total.Add(cost)
	}
	return total, nil
}

func (c *MarginCalculator) leafCost(leaf *trade.SaleItem) (Cost, error) {
	cost := NewCost(decimal.Zero, decimal.Zero, decimal.Zero)
	if leaf.SubjectID == nil {
		return cost, nil
	}
	currency := valueobject.DefaultCurrency
	if leaf.Sale != nil {
		currency = leaf.Sale.Currency
	}

	assigned := decimal.Zero
	for _, a := range leaf.Assignments {
		unit := a.StockUnit
		if unit == nil {
			continue
		}
		if unit.Currency != currency {
			return Cost{}, shared.ErrCurrencyMismatch
		}
		cost = cost.Add(NewCost(unit.NetPrice, unit.ShippingPrice, decimal.Zero).Multiply(a.SoldQuantity))
		assigned = assigned.Add(a.SoldQuantity)
	}

	remaining := leaf.TotalQuantity().Sub(assigned)
	if !remaining.IsPositive() {
		return cost, nil
	}
	if c.guesser != nil {
		if guess, ok := c.guesser.GuessCost(*leaf.SubjectID, currency); ok {
			guessed := guess.Multiply(remaining)
			guessed.Average = true
			return cost.Add(guessed), nil
		}
	}
	cost.Average = true
	return cost, nil
}

// OrderData builds the accumulator of one sale
func (c *MarginCalculator) OrderData(sale *trade.Sale) (OrderData, error) {
	data := NewOrderData(sale.Currency)
	data.Orders = 1
	data.Revenue = sale.ItemsTotal()
	data.ShipmentRevenue = sale.ShipmentAmount

	for _, item := range sale.Items {
		cost, err := c.ItemCost(item)
		if err != nil {
			return OrderData{}, err
		}
		data.Cost = data.Cost.Add(cost)
	}
	for _, leaf := range sale.LeafItems() {
		data.Items = data.Items.Add(leaf.TotalQuantity())
	}
	data.Cost.Shipment = data.Cost.Shipment.Add(sale.ShipmentCost)
	return data, nil
}

// ToSaleMargin converts a margin to the snapshot stored on sales
func ToSaleMargin(m Margin) trade.SaleMargin {
	return trade.SaleMargin{
		Revenue: m.Revenue,
		Cost:    m.Cost,
		Amount:  m.Amount(),
		Percent: m.Percent(),
	}
}
