// Package core provides the domain model of the records system: money and dates,
// payment instruments, billable lines, transactions and the derived calendar types.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between cents and decimal representations.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in cents. It is signed: outstanding balances may be negative.
type Money struct {
	Cents int64
}

var hundred = decimal.NewFromInt(100)

// Cents is a shorthand constructor.
func Cents(c int64) Money {
	return Money{Cents: c}
}

// ParseMoney converts a decimal string to Money with half-up rounding to the cent.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Only
// non-negative values are accepted; zero is allowed (e.g. a free accessory).
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234
//	ParseMoney("12,345") -> 1235 (half-up)
//	ParseMoney("-1")     -> ErrInvalidAmount
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(1<<62)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// MoneyFromDecimal converts a decimal amount (in currency units) to Money.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Mul(hundred).Round(0).IntPart()}
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String renders the amount with two decimals (e.g. "12.30", "-4.00").
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// Mul multiplies by a quantity. The product wraps on overflow; use MulChecked
// on amounts that were not produced by this package.
func (m Money) Mul(q int) Money { return Money{Cents: m.Cents * int64(q)} }

// MulChecked multiplies by a quantity and reports false when the product does
// not fit in int64 cents.
func (m Money) MulChecked(q int) (Money, bool) {
	p := m.Mul(q)
	exact := decimal.NewFromInt(m.Cents).Mul(decimal.NewFromInt(int64(q)))
	if !exact.Equal(decimal.NewFromInt(p.Cents)) {
		return Money{}, false
	}
	return p, true
}

func (m Money) IsZero() bool { return m.Cents == 0 }

func (m Money) IsNegative() bool { return m.Cents < 0 }

func (m Money) IsPositive() bool { return m.Cents > 0 }

// Validate rejects negative amounts. Zero is a legal price or payment amount.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}
