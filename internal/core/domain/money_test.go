package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triptally/triptally_backend/internal/core/domain"
)

func TestMoneyAdd(t *testing.T) {
	a := domain.NewMoney(1050, "USD")
	b := domain.NewMoney(250, "USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, domain.NewMoney(1300, "USD"), sum)
}

func TestMoneyAdd_CurrencyMismatch(t *testing.T) {
	a := domain.NewMoney(1050, "USD")
	b := domain.NewMoney(250, "EUR")

	_, err := a.Add(b)
	assert.ErrorIs(t, err, domain.ErrCurrencyMismatch)
}

func TestMoneySub(t *testing.T) {
	a := domain.NewMoney(1050, "USD")
	b := domain.NewMoney(1250, "USD")

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, domain.NewMoney(-200, "USD"), diff)
	assert.True(t, diff.IsNegative())

	_, err = a.Sub(domain.NewMoney(1, "JPY"))
	assert.ErrorIs(t, err, domain.ErrCurrencyMismatch)
}

func TestMoneyNegAbs(t *testing.T) {
	m := domain.NewMoney(-500, "EUR")

	assert.Equal(t, domain.NewMoney(500, "EUR"), m.Neg())
	assert.Equal(t, domain.NewMoney(500, "EUR"), m.Abs())
	assert.Equal(t, domain.NewMoney(500, "EUR"), m.Abs().Abs())
}

func TestMoneyPredicates(t *testing.T) {
	assert.True(t, domain.NewMoney(0, "USD").IsZero())
	assert.True(t, domain.NewMoney(1, "USD").IsPositive())
	assert.True(t, domain.NewMoney(-1, "USD").IsNegative())
	assert.False(t, domain.NewMoney(-1, "USD").IsPositive())
}

func TestMoneyEqual(t *testing.T) {
	assert.True(t, domain.NewMoney(100, "USD").Equal(domain.NewMoney(100, "USD")))
	assert.False(t, domain.NewMoney(100, "USD").Equal(domain.NewMoney(100, "EUR")))
	assert.False(t, domain.NewMoney(100, "USD").Equal(domain.NewMoney(101, "USD")))
}
