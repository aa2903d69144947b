package report

import (
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Cost splits the cost of goods by nature
type Cost struct {
	Product  decimal.Decimal `json:"product"`  // purchase price
	Supply   decimal.Decimal `json:"supply"`   // supplier shipping
	Shipment decimal.Decimal `json:"shipment"` // carrier cost of the sale
	Average  bool            `json:"average"`  // some part was guessed
}

// NewCost creates a cost
func NewCost(product, supply, shipment decimal.Decimal) Cost {
	return Cost{Product: product, Supply: supply, Shipment: shipment}
}

// Add adds two costs component-wise
func (c Cost) Add(o Cost) Cost {
	return Cost{
		Product:  c.Product.Add(o.Product),
		Supply:   c.Supply.Add(o.Supply),
		Shipment: c.Shipment.Add(o.Shipment),
		Average:  c.Average || o.Average,
	}
}

// Multiply scales every component
func (c Cost) Multiply(quantity decimal.Decimal) Cost {
	return Cost{
		Product:  c.Product.Mul(quantity),
		Supply:   c.Supply.Mul(quantity),
		Shipment: c.Shipment.Mul(quantity),
		Average:  c.Average,
	}
}

// Total returns the full cost when gross, the product cost otherwise
func (c Cost) Total(gross bool) decimal.Decimal {
	if !gross {
		return c.Product
	}
	return c.Product.Add(c.Supply).Add(c.Shipment)
}

// Margin is revenue against cost in a currency
type Margin struct {
	Currency valueobject.Currency `json:"currency"`
	Revenue  decimal.Decimal      `json:"revenue"`
	Cost     decimal.Decimal      `json:"cost"`
	Average  bool                 `json:"average"`
}

// NewMargin creates a margin
func NewMargin(currency valueobject.Currency, revenue, cost decimal.Decimal) Margin {
	return Margin{Currency: currency, Revenue: revenue, Cost: cost}
}

// Amount returns revenue minus cost
func (m Margin) Amount() decimal.Decimal {
	return m.Revenue.Sub(m.Cost)
}

// Percent returns the amount over revenue as a percentage rounded to two
// decimals. Zero revenue gives zero.
func (m Margin) Percent() decimal.Decimal {
	if m.Revenue.IsZero() {
		return decimal.Zero
	}
	return m.Amount().Div(m.Revenue).Mul(hundred).Round(2)
}

// Add merges two margins of the same currency
func (m Margin) Add(o Margin) (Margin, error) {
	if m.Currency != o.Currency {
		return Margin{}, shared.ErrCurrencyMismatch
	}
	return Margin{
		Currency: m.Currency,
		Revenue:  m.Revenue.Add(o.Revenue),
		Cost:     m.Cost.Add(o.Cost),
		Average:  m.Average || o.Average,
	}, nil
}
