// Package core provides money parsing and handling utilities.
//
// Money is an immutable currency-tagged decimal. Every constructor rounds the
// amount to two decimal places and normalizes the currency code, and every
// operation returns a new value.
package core

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Precision is the number of decimal places kept by Money.
const Precision = 2

type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney rounds amount to two decimals and upper-cases the currency code.
// Empty or malformed currency codes fail with ErrInvalidArgument.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	code, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: amount.Round(Precision), Currency: code}, nil
}

// MustMoney is NewMoney for literals known to be valid. It panics otherwise.
func MustMoney(amount string, currency string) Money {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		panic(fmt.Sprintf("core: invalid amount %q: %v", amount, err))
	}
	m, err := NewMoney(d, currency)
	if err != nil {
		panic(fmt.Sprintf("core: invalid money %q %q: %v", amount, currency, err))
	}
	return m
}

// Zero returns the zero amount in the given currency.
func Zero(currency string) (Money, error) {
	return NewMoney(decimal.Zero, currency)
}

// ParseMoney converts a decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional leading sign. Amounts with more than two decimals are rounded
// half away from zero.
//
// Examples:
//
//	ParseMoney("12.34", "eur")  -> 12.34 EUR
//	ParseMoney("12,345", "EUR") -> 12.35 EUR
//	ParseMoney("-5", "USD")     -> -5.00 USD
func ParseMoney(s, currency string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, fmt.Errorf("%w: empty amount", ErrInvalidArgument)
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	digits := strings.TrimLeft(s, "+-")
	if len(s)-len(digits) > 1 || digits == "" {
		return Money{}, fmt.Errorf("%w: invalid amount %q", ErrInvalidArgument, s)
	}
	dots := 0
	for _, r := range digits {
		if r == '.' {
			dots++
			continue
		}
		if !unicode.IsDigit(r) {
			return Money{}, fmt.Errorf("%w: invalid amount %q", ErrInvalidArgument, s)
		}
	}
	if dots > 1 {
		return Money{}, fmt.Errorf("%w: invalid amount %q", ErrInvalidArgument, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: invalid amount %q", ErrInvalidArgument, s)
	}
	return NewMoney(d, currency)
}

func normalizeCurrency(currency string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		return "", fmt.Errorf("%w: currency is required", ErrInvalidArgument)
	}
	if len(code) != 3 {
		return "", fmt.Errorf("%w: currency %q must be a 3-letter code", ErrInvalidArgument, currency)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: currency %q must be a 3-letter code", ErrInvalidArgument, currency)
		}
	}
	return code, nil
}

func (m Money) sameCurrency(other Money) error {
	if m.Currency != other.Currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return nil
}

// Add returns m + other. Both values must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Add(other.Amount).Round(Precision), Currency: m.Currency}, nil
}

// Subtract returns m - other. Both values must share a currency.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Sub(other.Amount).Round(Precision), Currency: m.Currency}, nil
}

// Multiply scales the amount, rounding the result to two decimals.
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(factor).Round(Precision), Currency: m.Currency}
}

func (m Money) Neg() Money {
	return Money{Amount: m.Amount.Neg(), Currency: m.Currency}
}

func (m Money) Abs() Money {
	return Money{Amount: m.Amount.Abs(), Currency: m.Currency}
}

func (m Money) IsZero() bool     { return m.Amount.IsZero() }
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }

// Equal reports value equality: same currency and numerically equal amounts.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// GreaterThan compares amounts. Currencies must match.
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.sameCurrency(other); err != nil {
		return false, err
	}
	return m.Amount.GreaterThan(other.Amount), nil
}

// String formats the value as "12.34 EUR".
func (m Money) String() string {
	return m.Amount.StringFixed(Precision) + " " + m.Currency
}

// Sum adds up values in the given currency. An empty list yields zero.
func Sum(currency string, values ...Money) (Money, error) {
	total, err := Zero(currency)
	if err != nil {
		return Money{}, err
	}
	for _, v := range values {
		if total, err = total.Add(v); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
