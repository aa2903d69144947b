package report

import (
	"sort"
	"time"

	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/trade"
)

// Period is the width of an aggregation window
type Period string

const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// IsValid checks if the period is a valid Period
func (p Period) IsValid() bool {
	switch p {
	case PeriodDay, PeriodMonth, PeriodYear:
		return true
	}
	return false
}

// WindowStart truncates t to the start of its window
func (p Period) WindowStart(t time.Time) time.Time {
	switch p {
	case PeriodYear:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
	case PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// OrderWindow is the order data of one window
type OrderWindow struct {
	Start time.Time `json:"start"`
	Data  OrderData `json:"data"`
}

// OrderAggregator builds order data per time window
type OrderAggregator struct {
	calculator *MarginCalculator
}

// NewOrderAggregator creates an aggregator costing orders with the calculator
func NewOrderAggregator(calculator *MarginCalculator) *OrderAggregator {
	return &OrderAggregator{calculator: calculator}
}

// Aggregate merges accepted and completed orders into windows, oldest first.
// Orders are placed by acceptance date.
func (a *OrderAggregator) Aggregate(orders []*trade.Sale, period Period) ([]OrderWindow, error) {
	if !period.IsValid() {
		return nil, shared.InvalidArgument("Invalid period: " + string(period))
	}
	windows := make(map[time.Time]OrderData)
	for _, order := range orders {
		if !countsAsRevenue(order) {
			continue
		}
		data, err := a.calculator.OrderData(order)
		if err != nil {
			return nil, err
		}
		at := order.CreatedAt
		if order.AcceptedAt != nil {
			at = *order.AcceptedAt
		}
		start := period.WindowStart(at)
		current, ok := windows[start]
		if !ok {
			windows[start] = data
			continue
		}
		merged, err := current.Merge(data)
		if err != nil {
			return nil, err
		}
		windows[start] = merged
	}

	out := make([]OrderWindow, 0, len(windows))
	for start, data := range windows {
		out = append(out, OrderWindow{Start: start, Data: data})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func countsAsRevenue(sale *trade.Sale) bool {
	if sale == nil || sale.Kind != trade.SaleKindOrder {
		return false
	}
	return sale.State == trade.SaleStateAccepted || sale.State == trade.SaleStateCompleted
}

// SupplierDataFromOrder builds the purchase accumulator of a supplier order
func SupplierDataFromOrder(order *inventory.SupplierOrder) SupplierData {
	data := NewSupplierData(order.Currency)
	data.Orders = 1
	for _, item := range order.Items {
		data.Ordered = data.Ordered.Add(item.Quantity)
		data.Received = data.Received.Add(inventory.CalculateReceivedQuantity(item))
		data.Amount = data.Amount.Add(item.NetPrice.Mul(item.Quantity))
	}
	data.ShippingCost = order.ShippingCost
	return data
}
