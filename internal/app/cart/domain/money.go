package domain

import (
	"fmt"
	"math/big"
)

// Money represents a monetary value with precise decimal arithmetic using
// big.Rat, avoiding float accumulation errors when summing line items.
type Money struct {
	rat *big.Rat
}

// ZeroMoney returns a Money representing 0.00.
func ZeroMoney() *Money {
	return &Money{rat: new(big.Rat)}
}

// NewMoney creates a Money from numerator and denominator.
// Example: NewMoney(249900, 100) represents 2499.00.
func NewMoney(numerator, denominator int64) (*Money, error) {
	if denominator <= 0 {
		return nil, fmt.Errorf("denominator must be positive, got %d", denominator)
	}
	return &Money{rat: big.NewRat(numerator, denominator)}, nil
}

// NewMoneyFromString parses a decimal string such as "2499.00" or "0.99".
func NewMoneyFromString(s string) (*Money, error) {
	rat, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid money value %q", s)
	}
	return &Money{rat: rat}, nil
}

// Add returns the sum of two Money values.
func (m *Money) Add(other *Money) *Money {
	return &Money{rat: new(big.Rat).Add(m.rat, other.rat)}
}

// MulInt returns this Money multiplied by an integer count.
func (m *Money) MulInt(n int) *Money {
	return &Money{rat: new(big.Rat).Mul(m.rat, big.NewRat(int64(n), 1))}
}

// Round2 returns this Money rounded to the nearest cent, with halves
// rounded away from zero.
func (m *Money) Round2() *Money {
	num := new(big.Int).Mul(m.rat.Num(), big.NewInt(100))
	den := m.rat.Denom()
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	r.Abs(r)
	r.Mul(r, big.NewInt(2))
	if r.Cmp(den) >= 0 {
		if num.Sign() >= 0 {
			q.Add(q, big.NewInt(1))
		} else {
			q.Sub(q, big.NewInt(1))
		}
	}
	return &Money{rat: new(big.Rat).SetFrac(q, big.NewInt(100))}
}

// IsZero returns true if the money value is zero.
func (m *Money) IsZero() bool {
	return m.rat.Sign() == 0
}

// IsNegative returns true if the money value is negative.
func (m *Money) IsNegative() bool {
	return m.rat.Sign() < 0
}

// Equals returns true if this Money value equals another.
func (m *Money) Equals(other *Money) bool {
	return m.rat.Cmp(other.rat) == 0
}

// Float64 returns an approximate float64 representation (for display only,
// not calculations).
func (m *Money) Float64() float64 {
	f, _ := m.rat.Float64()
	return f
}

// String renders the value with two decimal places.
func (m *Money) String() string {
	return m.rat.FloatString(2)
}

// Copy creates a deep copy of this Money instance.
func (m *Money) Copy() *Money {
	return &Money{rat: new(big.Rat).Set(m.rat)}
}
