package inventory

import (
	"fmt"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CalculateReceivedQuantity sums the delivered quantities of an order item
// across all deliveries of its order
func CalculateReceivedQuantity(item *SupplierOrderItem) decimal.Decimal {
	quantity := decimal.Zero
	if item == nil || item.Order == nil {
		return quantity
	}
	for _, delivery := range item.Order.Deliveries {
		for _, di := range delivery.Items {
			if di.OrderItem == item {
				quantity = quantity.Add(di.Quantity)
			}
		}
	}
	return quantity
}

// CalculateDeliveryRemainingQuantity returns the quantity still expected for
// an order item, or for a delivery item the quantity it may hold (its own
// quantity is added back). Other types are rejected.
func CalculateDeliveryRemainingQuantity(item any) (decimal.Decimal, error) {
	switch it := item.(type) {
	case *SupplierOrderItem:
		if it == nil {
			break
		}
		return it.Quantity.Sub(CalculateReceivedQuantity(it)), nil
	case *SupplierDeliveryItem:
		if it == nil || it.OrderItem == nil {
			break
		}
		orderItem := it.OrderItem
		return orderItem.Quantity.Sub(CalculateReceivedQuantity(orderItem)).Add(it.Quantity), nil
	}
	return decimal.Zero, shared.InvalidArgument(fmt.Sprintf("Unexpected item type %T", item))
}
