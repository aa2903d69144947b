package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrency_IsValid(t *testing.T) {
	assert.True(t, EUR.IsValid())
	assert.True(t, Currency("JPY").IsValid())
	assert.False(t, Currency("eur").IsValid())
	assert.False(t, Currency("").IsValid())
	assert.False(t, Currency("EURO").IsValid())
}

func TestMoney(t *testing.T) {
	a := MustNewMoney(decimal.NewFromFloat(10.5), EUR)
	b := MustNewMoney(decimal.NewFromInt(2), EUR)

	t.Run("adds and subtracts same currency", func(t *testing.T) {
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.True(t, sum.Amount().Equal(decimal.NewFromFloat(12.5)))

		diff, err := a.Subtract(b)
		require.NoError(t, err)
		assert.True(t, diff.Amount().Equal(decimal.NewFromFloat(8.5)))
	})

	t.Run("rejects mixed currencies", func(t *testing.T) {
		_, err := a.Add(MustNewMoney(decimal.NewFromInt(1), USD))
		assert.Error(t, err)
	})

	t.Run("rejects invalid currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(1), "xx")
		assert.Error(t, err)
	})

	assert.Equal(t, "10.50 EUR", a.String())
	assert.True(t, a.Multiply(decimal.NewFromInt(2)).Equals(MustNewMoney(decimal.NewFromInt(21), EUR)))
}

func TestQuantityHelpers(t *testing.T) {
	assert.True(t, ClampZero(decimal.NewFromInt(-3)).IsZero())
	assert.True(t, ClampZero(decimal.NewFromInt(3)).Equal(decimal.NewFromInt(3)))
	assert.True(t, MinDecimal(decimal.NewFromInt(1), decimal.NewFromInt(2)).Equal(decimal.NewFromInt(1)))
	assert.True(t, MaxDecimal(decimal.NewFromInt(1), decimal.NewFromInt(2)).Equal(decimal.NewFromInt(2)))
	assert.True(t, Sum(decimal.NewFromInt(1), decimal.NewFromInt(2), decimal.NewFromInt(3)).Equal(decimal.NewFromInt(6)))
	assert.True(t, Sum().IsZero())
}
