package trade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutstandingReleaser_ReleaseFund(t *testing.T) {
	releaser := NewOutstandingReleaser()

	t.Run("greedy in collection order", func(t *testing.T) {
		f := newOrderFixture(t, SaleKindOrder)
		f.pay(t, card, 80, PaymentStateCaptured)
		first := f.pay(t, outstanding, 30, PaymentStateCaptured)
		second := f.pay(t, outstanding, 40, PaymentStateAuthorized)
		f.sale.PaidTotal = d(150)
		f.sale.GrandTotal = d(100)

		changed := releaser.ReleaseFund(f.sale)

		assert.True(t, changed)
		assert.Equal(t, PaymentStateCanceled, first.State)
		assert.Equal(t, PaymentStateAuthorized, second.State)
		// paid total is the caller's business
		assertDecimal(t, 150, f.sale.PaidTotal)
	})

	t.Run("later smaller payment still fits", func(t *testing.T) {
		f := newOrderFixture(t, SaleKindOrder)
		big := f.pay(t, outstanding, 60, PaymentStateCaptured)
		small := f.pay(t, outstanding, 20, PaymentStateCaptured)
		f.sale.PaidTotal = d(130)
		f.sale.GrandTotal = d(100)

		assert.True(t, releaser.ReleaseFund(f.sale))
		assert.Equal(t, PaymentStateCaptured, big.State)
		assert.Equal(t, PaymentStateCanceled, small.State)
	})

	t.Run("stops once the overpaid amount is consumed", func(t *testing.T) {
		f := newOrderFixture(t, SaleKindOrder)
		a := f.pay(t, outstanding, 25, PaymentStateCaptured)
		b := f.pay(t, outstanding, 10, PaymentStateCaptured)
		f.sale.PaidTotal = d(125)
		f.sale.GrandTotal = d(100)

		assert.True(t, releaser.ReleaseFund(f.sale))
		assert.Equal(t, PaymentStateCanceled, a.State)
		assert.Equal(t, PaymentStateCaptured, b.State)
	})

	t.Run("skips non outstanding and unpaid payments", func(t *testing.T) {
		f := newOrderFixture(t, SaleKindOrder)
		c := f.pay(t, card, 10, PaymentStateCaptured)
		p := f.pay(t, outstanding, 10, PaymentStatePending)
		f.sale.PaidTotal = d(150)
		f.sale.GrandTotal = d(100)

		assert.False(t, releaser.ReleaseFund(f.sale))
		assert.Equal(t, PaymentStateCaptured, c.State)
		assert.Equal(t, PaymentStatePending, p.State)
	})

	t.Run("not overpaid", func(t *testing.T) {
		f := newOrderFixture(t, SaleKindOrder)
		p := f.pay(t, outstanding, 100, PaymentStateCaptured)
		f.sale.PaidTotal = d(100)
		f.sale.GrandTotal = d(100)

		assert.False(t, releaser.ReleaseFund(f.sale))
		assert.Equal(t, PaymentStateCaptured, p.State)
	})

	t.Run("nil sale", func(t *testing.T) {
		assert.False(t, releaser.ReleaseFund(nil))
	})
}
