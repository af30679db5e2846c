// Package types provides the shared value types used by the editor engine.
// Amounts are exact decimals so ledger sums never drift the way binary
// floating point does when quantities and prices are multiplied.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// arith is the shared decimal context. 34 digits matches decimal128, far more
// than any booking amount needs.
var arith = apd.BaseContext.WithPrecision(34)

// Decimal is an immutable exact decimal number. The zero value is 0.
// Operations never mutate their receiver; each result is a fresh value, so a
// Decimal may be copied freely.
type Decimal struct {
	d *apd.Decimal
}

// Zero is the decimal 0.
var Zero = Decimal{}

// NewDecimal parses a decimal literal such as "12.50".
func NewDecimal(s string) (Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	if d.Form != apd.Finite {
		return Decimal{}, fmt.Errorf("parse decimal %q: not a finite number", s)
	}
	return Decimal{d: d}, nil
}

// MustDecimal is NewDecimal for literals known to be valid.
func MustDecimal(s string) Decimal {
	d, err := NewDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DecimalFromInt returns n as a Decimal.
func DecimalFromInt(n int64) Decimal {
	return Decimal{d: apd.New(n, 0)}
}

// DecimalFromFloat converts f using its shortest decimal representation, so
// 0.9 becomes exactly 0.9.
func DecimalFromFloat(f float64) (Decimal, error) {
	return NewDecimal(strconv.FormatFloat(f, 'f', -1, 64))
}

func (x Decimal) ptr() *apd.Decimal {
	if x.d == nil {
		return apd.New(0, 0)
	}
	return x.d
}

// Add returns x + y.
func (x Decimal) Add(y Decimal) Decimal {
	out := new(apd.Decimal)
	if _, err := arith.Add(out, x.ptr(), y.ptr()); err != nil {
		panic(fmt.Sprintf("types: decimal add: %v", err))
	}
	return Decimal{d: out}
}

// Mul returns x * y.
func (x Decimal) Mul(y Decimal) Decimal {
	out := new(apd.Decimal)
	if _, err := arith.Mul(out, x.ptr(), y.ptr()); err != nil {
		panic(fmt.Sprintf("types: decimal mul: %v", err))
	}
	return Decimal{d: out}
}

// Cmp compares x and y numerically: -1, 0 or +1.
func (x Decimal) Cmp(y Decimal) int {
	return x.ptr().Cmp(y.ptr())
}

// Equal reports numeric equality, so 1.0 equals 1.
func (x Decimal) Equal(y Decimal) bool { return x.Cmp(y) == 0 }

// Sign returns -1, 0 or +1.
func (x Decimal) Sign() int { return x.ptr().Sign() }

// IsZero reports whether x == 0.
func (x Decimal) IsZero() bool { return x.Sign() == 0 }

// Float64 returns the nearest float64, for display only.
func (x Decimal) Float64() float64 {
	f, err := x.ptr().Float64()
	if err != nil {
		return 0
	}
	return f
}

// String renders x in plain (non-exponent) notation.
func (x Decimal) String() string {
	return x.ptr().Text('f')
}

// MarshalJSON encodes x as a JSON number.
func (x Decimal) MarshalJSON() ([]byte, error) {
	return []byte(x.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (x *Decimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*x = Decimal{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	if len(b) == 0 {
		*x = Decimal{}
		return nil
	}
	d, err := NewDecimal(string(b))
	if err != nil {
		return err
	}
	*x = d
	return nil
}

// TimeRange is a half-open [Start, End) span.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End - Start.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Valid reports whether Start < End.
func (r TimeRange) Valid() bool {
	return r.Start.Before(r.End)
}
