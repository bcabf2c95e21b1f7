// Package money provides the fixed-point monetary type used for every
// balance, rate, cost and pot value in the game. All arithmetic is exact
// decimal arithmetic; values are canonicalized to strings with exactly
// nine fractional digits wherever they leave the process (JSON, SQL).
package money

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits carried by every
// serialized monetary value.
const Precision = 9

// Money-related errors.
var (
	ErrMalformed   = errors.New("malformed amount")
	ErrNotPositive = errors.New("amount must be positive")
)

// Money is an exact decimal monetary quantity.
// The zero value is a valid zero amount.
type Money struct {
	d decimal.Decimal
}

// Zero returns a zero amount.
func Zero() Money {
	return Money{}
}

// FromInt64 returns the amount equal to the given whole number of coins.
func FromInt64(n int64) Money {
	return Money{d: decimal.NewFromInt(n)}
}

// FromDecimal wraps an existing decimal value.
func FromDecimal(d decimal.Decimal) Money {
	return Money{d: d}
}

// Parse parses a decimal string into a Money value.
// Returns ErrMalformed for anything that is not a valid decimal number.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return Money{d: d}, nil
}

// ParsePositive parses a decimal string and rejects zero or negative values.
// Used for bet and transfer amounts, which must be strictly positive.
func ParsePositive(s string) (Money, error) {
	m, err := Parse(s)
	if err != nil {
		return Money{}, err
	}
	if !m.IsPositive() {
		return Money{}, ErrNotPositive
	}
	return m, nil
}

// MustParse parses a decimal string and panics on failure.
// Intended for package-level constants only.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{d: m.d.Add(other.d)}
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return Money{d: m.d.Sub(other.d)}
}

// Mul returns m × other.
func (m Money) Mul(other Money) Money {
	return Money{d: m.d.Mul(other.d)}
}

// MulInt returns m × n.
func (m Money) MulInt(n int64) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(n))}
}

// Div returns m ÷ other rounded to the canonical precision.
func (m Money) Div(other Money) Money {
	return Money{d: m.d.DivRound(other.d, Precision)}
}

// DivInt returns m ÷ n rounded to the canonical precision.
func (m Money) DivInt(n int64) Money {
	return Money{d: m.d.DivRound(decimal.NewFromInt(n), Precision)}
}

// PowInt returns m raised to a non-negative integer exponent.
// Exact for integer exponents, which is all the upgrade cost curve needs.
func (m Money) PowInt(n int64) Money {
	return Money{d: m.d.Pow(decimal.NewFromInt(n))}
}

// Truncate drops fractional digits beyond the canonical precision.
func (m Money) Truncate() Money {
	return Money{d: m.d.Truncate(Precision)}
}

// Cmp compares two amounts: -1 if m < other, 0 if equal, +1 if m > other.
func (m Money) Cmp(other Money) int {
	return m.d.Cmp(other.d)
}

// LessThan reports whether m < other.
func (m Money) LessThan(other Money) bool {
	return m.d.Cmp(other.d) < 0
}

// Equal reports whether m and other represent the same amount.
func (m Money) Equal(other Money) bool {
	return m.d.Cmp(other.d) == 0
}

// IsPositive reports whether m > 0.
func (m Money) IsPositive() bool {
	return m.d.IsPositive()
}

// IsNegative reports whether m < 0.
func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

// IsZero reports whether m == 0.
func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// String returns the canonical representation with exactly nine
// fractional digits, e.g. "3.960000000".
func (m Money) String() string {
	return m.d.StringFixed(Precision)
}

// MarshalJSON serializes the amount as a canonical decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted decimal strings and bare JSON numbers.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer so amounts can be bound as NUMERIC params.
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan implements sql.Scanner for NUMERIC columns.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = Money{}
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case int64:
		*m = FromInt64(v)
		return nil
	case float64:
		*m = Money{d: decimal.NewFromFloat(v)}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into money.Money", src)
	}
}
