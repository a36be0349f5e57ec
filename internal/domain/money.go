package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a currency amount held as an integer count of cents.
type Money int64

const centsExponent = -2

// Cents builds a Money value from a count of minor units.
func Cents(c int64) Money {
	return Money(c)
}

// ParseMoney parses a decimal string such as "12.5" or "200". Amounts with more
// than two fractional digits are rejected rather than rounded.
func ParseMoney(raw string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return fromDecimal(d)
}

// MoneyFromFloat converts a float amount reported by a remote service, rounding
// half away from zero to the nearest cent.
func MoneyFromFloat(f float64) Money {
	return Money(decimal.NewFromFloat(f).Round(2).Shift(2).IntPart())
}

func fromDecimal(d decimal.Decimal) (Money, error) {
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%w: %s has sub-cent precision", ErrInvalidAmount, d.String())
	}
	bi := shifted.BigInt()
	if !bi.IsInt64() {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidAmount, d.String())
	}
	return Money(bi.Int64()), nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), centsExponent)
}

// Float64 is only meant for remote payloads that carry amounts as JSON numbers.
func (m Money) Float64() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(other Money) Money {
	return m + other
}

// Sub subtracts other and fails with ErrNegativeResult when the result would
// drop below zero.
func (m Money) Sub(other Money) (Money, error) {
	if other > m {
		return 0, fmt.Errorf("%w: %s - %s", ErrNegativeResult, m, other)
	}
	return m - other, nil
}

// Cmp returns -1, 0 or 1.
func (m Money) Cmp(other Money) int {
	switch {
	case m < other:
		return -1
	case m > other:
		return 1
	default:
		return 0
	}
}

func (m Money) IsPositive() bool { return m > 0 }

func (m Money) IsZero() bool { return m == 0 }

// ValidateAmount rejects zero and negative amounts coming from callers.
func ValidateAmount(m Money) error {
	if !m.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidAmount, m)
	}
	return nil
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts both quoted and bare decimal numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, string(data))
	}
	v, err := fromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
