package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a monetary amount fixed to two decimal places. Every constructor
// and arithmetic method rounds its result, so fractional drift can never
// accumulate across bid transitions. The zero value is 0.00.
type Money struct {
	d decimal.Decimal
}

// MoneyFromFloat builds a Money from a float64, rounding to two decimals.
func MoneyFromFloat(f float64) Money {
	return Money{d: decimal.NewFromFloat(f).Round(2)}
}

// MoneyFromString parses a decimal string such as "4.20".
func MoneyFromString(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("domain: parse money %q: %w", s, err)
	}
	return Money{d: d.Round(2)}, nil
}

// Add returns m + other, rounded to two decimals.
func (m Money) Add(other Money) Money {
	return Money{d: m.d.Add(other.d).Round(2)}
}

// Sub returns m - other, rounded to two decimals.
func (m Money) Sub(other Money) Money {
	return Money{d: m.d.Sub(other.d).Round(2)}
}

// Cmp returns -1 if m < other, 0 if equal, +1 if m > other.
func (m Money) Cmp(other Money) int {
	return m.d.Cmp(other.d)
}

// LessThan reports whether m < other.
func (m Money) LessThan(other Money) bool {
	return m.d.LessThan(other.d)
}

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

// Float64 returns the amount as a float64. Safe for amounts in the ranges an
// auction deals with; persistence and payloads use the string forms.
func (m Money) Float64() float64 {
	f, _ := m.d.Float64()
	return f
}

// String returns the fixed two-decimal representation, e.g. "4.20".
func (m Money) String() string {
	return m.d.StringFixed(2)
}

// MarshalJSON encodes the amount as a bare two-decimal number so every
// monetary field in an event payload is fixed-point on the wire.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.StringFixed(2)), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		m.d = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("domain: unmarshal money %q: %w", s, err)
	}
	m.d = d.Round(2)
	return nil
}
