// Package fixed provides an immutable decimal value with an explicit,
// tracked display precision on top of shopspring/decimal.
//
// Precision is a rendering and propagation property only: equality,
// ordering and hashing consider the numeric value alone, so "1.0" and
// "1.00" compare equal while keeping their own string forms.
package fixed

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativePrecision = errors.New("precision cannot be negative")
	ErrInvalidValue      = errors.New("value is not a finite number")
)

// Zero is the decimal 0 at precision 0.
var Zero = Decimal{}

// Decimal is an immutable arbitrary-precision decimal number.
//
// Results propagate precision as follows: addition and subtraction carry
// the maximum operand precision, multiplication the sum (products stay
// exact), division derives precision from the quotient with trailing
// zeros trimmed, floor division yields precision 0 and modulo the
// maximum operand precision. Integer operands enter via FromInt at
// precision 0; mixing with float64 goes through the *Float methods and
// yields float64.
type Decimal struct {
	value     decimal.Decimal
	precision int
	negZero   bool
}

// FromString parses s, inferring precision from the number of
// fractional digits. Trailing zeros are significant: "1.10" has
// precision 2. A leading minus on a zero value is preserved for
// rendering ("-0").
func FromString(s string) (Decimal, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	d := fromParsed(v)
	if v.IsZero() && strings.HasPrefix(s, "-") {
		d.negZero = true
	}
	return d, nil
}

// RequireFromString is FromString that panics on malformed input.
func RequireFromString(s string) Decimal {
	d, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FromInt returns v at precision 0.
func FromInt(v int64) Decimal {
	return Decimal{value: decimal.NewFromInt(v)}
}

// FromFloat converts v at the given precision, rounding half to even.
// The precision is mandatory because a bare float does not define one.
func FromFloat(v float64, precision int) (Decimal, error) {
	if precision < 0 {
		return Decimal{}, fmt.Errorf("%w: %d", ErrNegativePrecision, precision)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Decimal{}, fmt.Errorf("%w: %v", ErrInvalidValue, v)
	}
	rounded := decimal.NewFromFloat(v).RoundBank(int32(precision))
	d := Decimal{value: rounded, precision: precision}
	if rounded.IsZero() && math.Signbit(v) {
		d.negZero = true
	}
	return d, nil
}

// FromDecimal adopts a shopspring value, deriving precision from its
// exponent.
func FromDecimal(v decimal.Decimal) Decimal {
	return fromParsed(v)
}

func fromParsed(v decimal.Decimal) Decimal {
	p := int(-v.Exponent())
	if p < 0 {
		p = 0
	}
	return Decimal{value: v, precision: p}
}

// Precision reports the number of fractional digits rendered by String.
func (d Decimal) Precision() int { return d.precision }

// AsDecimal returns the underlying shopspring value.
func (d Decimal) AsDecimal() decimal.Decimal { return d.value }

// Float64 returns the nearest float64. A negative zero keeps its sign.
func (d Decimal) Float64() float64 {
	if d.negZero {
		return math.Copysign(0, -1)
	}
	f, _ := d.value.Float64()
	return f
}

// IntPart truncates toward zero.
func (d Decimal) IntPart() int64 { return d.value.IntPart() }

func (d Decimal) IsZero() bool     { return d.value.IsZero() }
func (d Decimal) IsNegative() bool { return d.value.Sign() < 0 }
func (d Decimal) IsPositive() bool { return d.value.Sign() > 0 }
func (d Decimal) Sign() int        { return d.value.Sign() }

// String renders the value with exactly Precision fractional digits,
// preserving trailing zeros and the sign of negative zero.
func (d Decimal) String() string {
	s := d.value.StringFixed(int32(d.precision))
	if d.negZero && !strings.HasPrefix(s, "-") {
		s = "-" + s
	}
	return s
}

// RoundBank rounds half to even at the given number of places, which
// becomes the result's precision.
func (d Decimal) RoundBank(places int) Decimal {
	if places < 0 {
		places = 0
	}
	return Decimal{value: d.value.RoundBank(int32(places)), precision: places}
}

// Abs returns the absolute value at the same precision.
func (d Decimal) Abs() Decimal {
	return Decimal{value: d.value.Abs(), precision: d.precision}
}

// Neg returns the negated value at the same precision.
func (d Decimal) Neg() Decimal {
	return Decimal{value: d.value.Neg(), precision: d.precision}
}

func (d Decimal) Add(other Decimal) Decimal {
	return Decimal{value: d.value.Add(other.value), precision: max(d.precision, other.precision)}
}

func (d Decimal) Sub(other Decimal) Decimal {
	return Decimal{value: d.value.Sub(other.value), precision: max(d.precision, other.precision)}
}

func (d Decimal) Mul(other Decimal) Decimal {
	return Decimal{value: d.value.Mul(other.value), precision: d.precision + other.precision}
}

// Div divides at 16 significant division places and trims trailing
// zeros, so 1/2 yields "0.5" rather than a padded quotient.
func (d Decimal) Div(other Decimal) Decimal {
	q := d.value.Div(other.value)
	return fromParsed(decimal.RequireFromString(q.String()))
}

// FloorDiv returns the quotient rounded toward negative infinity at
// precision 0.
func (d Decimal) FloorDiv(other Decimal) Decimal {
	q, r := d.value.QuoRem(other.value, 0)
	if !r.IsZero() && (r.Sign() < 0) != (other.value.Sign() < 0) {
		q = q.Sub(decimal.New(1, 0))
	}
	return Decimal{value: q}
}

// Mod returns the remainder of floor division; the result takes the
// sign of the divisor.
func (d Decimal) Mod(other Decimal) Decimal {
	q := d.FloorDiv(other)
	r := d.value.Sub(other.value.Mul(q.value))
	return Decimal{value: r, precision: max(d.precision, other.precision)}
}

func (d Decimal) AddFloat(f float64) float64 { return d.Float64() + f }
func (d Decimal) SubFloat(f float64) float64 { return d.Float64() - f }
func (d Decimal) MulFloat(f float64) float64 { return d.Float64() * f }
func (d Decimal) DivFloat(f float64) float64 { return d.Float64() / f }

func (d Decimal) FloorDivFloat(f float64) float64 {
	return math.Floor(d.Float64() / f)
}

// ModFloat keeps the floor-division convention of Mod: the result takes
// the sign of the divisor.
func (d Decimal) ModFloat(f float64) float64 {
	r := math.Mod(d.Float64(), f)
	if r != 0 && (r < 0) != (f < 0) {
		r += f
	}
	return r
}

// Cmp compares numeric values; precision is ignored.
func (d Decimal) Cmp(other Decimal) int { return d.value.Cmp(other.value) }

func (d Decimal) Equal(other Decimal) bool              { return d.value.Equal(other.value) }
func (d Decimal) GreaterThan(other Decimal) bool        { return d.value.GreaterThan(other.value) }
func (d Decimal) GreaterThanOrEqual(other Decimal) bool { return d.value.GreaterThanOrEqual(other.value) }
func (d Decimal) LessThan(other Decimal) bool           { return d.value.LessThan(other.value) }
func (d Decimal) LessThanOrEqual(other Decimal) bool    { return d.value.LessThanOrEqual(other.value) }

// Min returns the smallest of the given decimals.
func Min(first Decimal, rest ...Decimal) Decimal {
	out := first
	for _, d := range rest {
		if d.LessThan(out) {
			out = d
		}
	}
	return out
}

// Max returns the largest of the given decimals.
func Max(first Decimal, rest ...Decimal) Decimal {
	out := first
	for _, d := range rest {
		if d.GreaterThan(out) {
			out = d
		}
	}
	return out
}

// Hash is consistent with Equal: values that compare equal hash equal
// regardless of precision.
func (d Decimal) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(d.value.String()))
	return h.Sum64()
}

// MarshalJSON renders the canonical string form, which round-trips
// precision and negative zero.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Decimal) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
