package trade

// OutstandingReleaser cancels outstanding payments a sale no longer needs
// once it is overpaid.
type OutstandingReleaser struct{}

// NewOutstandingReleaser creates a new OutstandingReleaser
func NewOutstandingReleaser() *OutstandingReleaser {
	return &OutstandingReleaser{}
}

// ReleaseFund walks the payments in collection order and cancels each paid
// outstanding payment whose amount fits in the overpaid amount. The selection
// is greedy and order dependent. PaidTotal is left to the caller.
// Returns true when at least one payment was canceled.
func (r *OutstandingReleaser) ReleaseFund(sale *Sale) bool {
	if sale == nil {
		return false
	}
	overpaid := sale.PaidTotal.Sub(sale.GrandTotal)
	if !overpaid.IsPositive() {
		return false
	}

	changed := false
	for _, p := range sale.Payments {
		if !p.Method.Outstanding || !p.State.IsPaid() {
			continue
		}
		if p.Amount.GreaterThan(overpaid) {
			continue
		}
		p.Cancel()
		changed = true
		overpaid = overpaid.Sub(p.Amount)
		if !overpaid.IsPositive() {
			break
		}
	}
	if changed {
		sale.Touch()
	}
	return changed
}
