package trade

import "github.com/shopspring/decimal"

// CalculatePaidTotal sums payments in a paid state
func CalculatePaidTotal(sale *Sale) decimal.Decimal {
	return sumPayments(sale, func(p *Payment) bool { return p.State.IsPaid() })
}

// CalculateOutstandingTotal sums paid payments settled with an outstanding method
func CalculateOutstandingTotal(sale *Sale) decimal.Decimal {
	return sumPayments(sale, func(p *Payment) bool { return p.State.IsPaid() && p.Method.Outstanding })
}

// CalculatePendingTotal sums payments awaiting confirmation
func CalculatePendingTotal(sale *Sale) decimal.Decimal {
	return sumPayments(sale, func(p *Payment) bool { return p.State.IsPending() })
}

// CalculateRefundedTotal sums refunded payments
func CalculateRefundedTotal(sale *Sale) decimal.Decimal {
	return sumPayments(sale, func(p *Payment) bool { return p.State == PaymentStateRefunded })
}

// CalculateRemainingTotal returns what the customer still owes
func CalculateRemainingTotal(sale *Sale) decimal.Decimal {
	remaining := sale.GrandTotal.Sub(CalculatePaidTotal(sale)).Sub(CalculatePendingTotal(sale))
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

func sumPayments(sale *Sale, match func(p *Payment) bool) decimal.Decimal {
	total := decimal.Zero
	if sale == nil {
		return total
	}
	for _, p := range sale.Payments {
		if match(p) {
			total = total.Add(p.Amount)
		}
	}
	return total
}
