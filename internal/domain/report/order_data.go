package report

import (
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// OrderData accumulates sales figures for a period
type OrderData struct {
	Currency        valueobject.Currency `json:"currency"`
	Orders          int                  `json:"orders"`
	Items           decimal.Decimal      `json:"items"` // sold quantity
	Revenue         decimal.Decimal      `json:"revenue"`
	ShipmentRevenue decimal.Decimal      `json:"shipment_revenue"`
	Cost            Cost                 `json:"cost"`
}

// NewOrderData returns a zero accumulator
func NewOrderData(currency valueobject.Currency) OrderData {
	return OrderData{
		Currency:        currency,
		Items:           decimal.Zero,
		Revenue:         decimal.Zero,
		ShipmentRevenue: decimal.Zero,
		Cost:            NewCost(decimal.Zero, decimal.Zero, decimal.Zero),
	}
}

// Merge adds two snapshots component-wise. It is associative and commutative.
func (d OrderData) Merge(o OrderData) (OrderData, error) {
	if d.Currency != o.Currency {
		return OrderData{}, shared.ErrCurrencyMismatch
	}
	return OrderData{
		Currency:        d.Currency,
		Orders:          d.Orders + o.Orders,
		Items:           d.Items.Add(o.Items),
		Revenue:         d.Revenue.Add(o.Revenue),
		ShipmentRevenue: d.ShipmentRevenue.Add(o.ShipmentRevenue),
		Cost:            d.Cost.Add(o.Cost),
	}, nil
}

// GrossMargin includes shipment revenue and every cost
func (d OrderData) GrossMargin() Margin {
	m := NewMargin(d.Currency, d.Revenue.Add(d.ShipmentRevenue), d.Cost.Total(true))
	m.Average = d.Cost.Average
	return m
}

// CommercialMargin only weighs goods revenue against their purchase price
func (d OrderData) CommercialMargin() Margin {
	m := NewMargin(d.Currency, d.Revenue, d.Cost.Total(false))
	m.Average = d.Cost.Average
	return m
}

// SupplierData accumulates purchase figures for a period
type SupplierData struct {
	Currency     valueobject.Currency `json:"currency"`
	Orders       int                  `json:"orders"`
	Ordered      decimal.Decimal      `json:"ordered"`
	Received     decimal.Decimal      `json:"received"`
	Amount       decimal.Decimal      `json:"amount"`
	ShippingCost decimal.Decimal      `json:"shipping_cost"`
}

// NewSupplierData returns a zero accumulator
func NewSupplierData(currency valueobject.Currency) SupplierData {
	return SupplierData{
		Currency:     currency,
		Ordered:      decimal.Zero,
		Received:     decimal.Zero,
		Amount:       decimal.Zero,
		ShippingCost: decimal.Zero,
	}
}

// Merge adds two snapshots component-wise. It is associative and commutative.
func (d SupplierData) Merge(o SupplierData) (SupplierData, error) {
	if d.Currency != o.Currency {
		return SupplierData{}, shared.ErrCurrencyMismatch
	}
	return SupplierData{
		Currency:     d.Currency,
		Orders:       d.Orders + o.Orders,
		Ordered:      d.Ordered.Add(o.Ordered),
		Received:     d.Received.Add(o.Received),
		Amount:       d.Amount.Add(o.Amount),
		ShippingCost: d.ShippingCost.Add(o.ShippingCost),
	}, nil
}

// Total returns the purchase amount including shipping
func (d SupplierData) Total() decimal.Decimal {
	return d.Amount.Add(d.ShippingCost)
}
