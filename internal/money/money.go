package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrNegativeAmount is returned when constructing Money from a negative value.
	ErrNegativeAmount = errors.New("money amount cannot be negative")

	// ErrInsufficient is returned when a subtraction would drop below zero.
	ErrInsufficient = errors.New("insufficient funds")
)

// Money is an immutable, non-negative monetary amount.
type Money struct {
	amount decimal.Decimal
}

// Zero returns a zero amount.
func Zero() Money {
	return Money{amount: decimal.Zero}
}

// New builds Money from a decimal value.
func New(amount decimal.Decimal) (Money, error) {
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s", ErrNegativeAmount, amount.String())
	}
	return Money{amount: amount}, nil
}

// FromInt builds Money from a whole number of units.
func FromInt(units int64) (Money, error) {
	return New(decimal.NewFromInt(units))
}

// Parse builds Money from its decimal string form.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return New(d)
}

// MustFromInt is FromInt for constants and tests. It panics on negative input.
func MustFromInt(units int64) Money {
	m, err := FromInt(units)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal exposes the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{amount: m.amount.Add(other.amount)}
}

// Sub returns m - other, or ErrInsufficient if the result would be negative.
func (m Money) Sub(other Money) (Money, error) {
	result := m.amount.Sub(other.amount)
	if result.IsNegative() {
		return Money{}, ErrInsufficient
	}
	return Money{amount: result}, nil
}

// GreaterThanOrEqual reports whether m >= other.
func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.amount.GreaterThanOrEqual(other.amount)
}

// LessThan reports whether m < other.
func (m Money) LessThan(other Money) bool {
	return m.amount.LessThan(other.amount)
}

// Equal compares amounts numerically, so 1.50 equals 1.5.
func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) String() string {
	return m.amount.String()
}

// MarshalJSON renders the amount as a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.amount.String()), nil
}

// UnmarshalJSON accepts a JSON number or numeric string and rejects negatives.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	parsed, err := New(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
