package domain

import (
	"errors"
	"fmt"
)

// ErrCurrencyMismatch indicates arithmetic was attempted between Money values
// of different currencies. The engine never converts implicitly.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// Money is an exact amount in a single currency, held as integer minor units
// (cents, pence, ...). It is never represented as a floating-point number
// anywhere in the engine or its persisted form.
//
// Amounts may be negative: net balances use the sign to distinguish creditors
// from debtors.
type Money struct {
	MinorUnits   int64  `json:"minorUnits"`
	CurrencyCode string `json:"currencyCode"`
}

// NewMoney constructs a Money value from minor units and a currency code.
func NewMoney(minorUnits int64, currencyCode string) Money {
	return Money{MinorUnits: minorUnits, CurrencyCode: currencyCode}
}

// Add returns m + other. Fails with ErrCurrencyMismatch on differing currencies.
func (m Money) Add(other Money) (Money, error) {
	if m.CurrencyCode != other.CurrencyCode {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.CurrencyCode, other.CurrencyCode)
	}
	return Money{MinorUnits: m.MinorUnits + other.MinorUnits, CurrencyCode: m.CurrencyCode}, nil
}

// Sub returns m - other. Fails with ErrCurrencyMismatch on differing currencies.
func (m Money) Sub(other Money) (Money, error) {
	if m.CurrencyCode != other.CurrencyCode {
		return Money{}, fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.CurrencyCode, other.CurrencyCode)
	}
	return Money{MinorUnits: m.MinorUnits - other.MinorUnits, CurrencyCode: m.CurrencyCode}, nil
}

// Neg returns the negated amount in the same currency.
func (m Money) Neg() Money {
	return Money{MinorUnits: -m.MinorUnits, CurrencyCode: m.CurrencyCode}
}

// Abs returns the absolute amount in the same currency.
func (m Money) Abs() Money {
	if m.MinorUnits < 0 {
		return m.Neg()
	}
	return m
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.MinorUnits == 0 }

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool { return m.MinorUnits > 0 }

// IsNegative reports whether the amount is strictly less than zero.
func (m Money) IsNegative() bool { return m.MinorUnits < 0 }

// Equal reports whether both amount and currency match exactly.
func (m Money) Equal(other Money) bool {
	return m.MinorUnits == other.MinorUnits && m.CurrencyCode == other.CurrencyCode
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.MinorUnits, m.CurrencyCode)
}
