// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a currency-agnostic monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors in stored costs/prices.
type Money = decimal.Decimal

// ZeroMoney is the zero monetary value.
var ZeroMoney = decimal.Zero

// NewMoney creates a Money value from a float.
// WARNING: Use NewMoneyFromString for precise values.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MoneyFromInt creates a Money value from an integer amount.
func MoneyFromInt(n int64) Money {
	return decimal.NewFromInt(n)
}

// IsPositive reports whether m is strictly greater than zero.
func IsPositive(m Money) bool {
	return m.Sign() > 0
}

// Float64 returns the nearest float64 for JSON payloads that expect
// plain numbers. Precision loss is acceptable at that boundary only.
func Float64(m Money) float64 {
	f, _ := m.Float64()
	return f
}
