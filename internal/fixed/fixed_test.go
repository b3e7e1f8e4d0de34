package fixed

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromString(t *testing.T) {
	testCases := []struct {
		input     string
		expected  string
		precision int
	}{
		{"0", "0", 0},
		{"1", "1", 0},
		{"-1", "-1", 0},
		{"1.1", "1.1", 1},
		{"1.10", "1.10", 2},
		{"-1.22", "-1.22", 2},
		{"0.000", "0.000", 3},
		{"1e-3", "0.001", 3},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			d, err := FromString(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, d.String())
			assert.Equal(t, tc.precision, d.Precision())
		})
	}
}

func TestFromStringInvalid(t *testing.T) {
	_, err := FromString("not a number")
	require.Error(t, err)

	assert.Panics(t, func() { RequireFromString("") })
}

func TestFromStringNegativeZero(t *testing.T) {
	d, err := FromString("-0")
	require.NoError(t, err)

	assert.Equal(t, "-0", d.String())
	assert.True(t, d.IsZero())
	assert.True(t, d.Equal(Zero))
	assert.True(t, math.Signbit(d.Float64()))
}

func TestFromFloat(t *testing.T) {
	testCases := []struct {
		value     float64
		precision int
		expected  string
	}{
		{0, 0, "0"},
		{1, 0, "1"},
		{1.123, 3, "1.123"},
		{1.155, 2, "1.16"}, // half rounds to even
		{1.125, 2, "1.12"},
		{-1.406, 2, "-1.41"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			d, err := FromFloat(tc.value, tc.precision)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, d.String())
			assert.Equal(t, tc.precision, d.Precision())
		})
	}
}

func TestFromFloatRejectsNegativePrecision(t *testing.T) {
	_, err := FromFloat(1.11, -1)
	require.ErrorIs(t, err, ErrNegativePrecision)
}

func TestFromFloatRejectsNonFinite(t *testing.T) {
	_, err := FromFloat(math.NaN(), 2)
	require.ErrorIs(t, err, ErrInvalidValue)

	_, err = FromFloat(math.Inf(1), 2)
	require.ErrorIs(t, err, ErrInvalidValue)
}

func TestFromFloatNegativeZero(t *testing.T) {
	d, err := FromFloat(math.Copysign(0, -1), 1)
	require.NoError(t, err)
	assert.Equal(t, "-0.0", d.String())
}

func TestFromInt(t *testing.T) {
	d := FromInt(42)
	assert.Equal(t, "42", d.String())
	assert.Equal(t, 0, d.Precision())
}

func TestFromDecimal(t *testing.T) {
	d := FromDecimal(decimal.New(1150, -2))
	assert.Equal(t, "11.50", d.String())
	assert.Equal(t, 2, d.Precision())
}

func TestEqualityIgnoresPrecision(t *testing.T) {
	a := RequireFromString("1.0")
	b := RequireFromString("1.00")

	assert.True(t, a.Equal(b))
	assert.Equal(t, 0, a.Cmp(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.String(), b.String())
}

func TestAddSub(t *testing.T) {
	testCases := []struct {
		desc      string
		a, b      string
		add, sub  string
		precision int
	}{
		{"same precision", "1.1", "1.1", "2.2", "0.0", 1},
		{"max precision wins", "1.1", "1.10", "2.20", "0.00", 2},
		{"negative", "-1.1", "1.1", "0.0", "-2.2", 1},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			a, b := RequireFromString(tc.a), RequireFromString(tc.b)

			sum := a.Add(b)
			assert.Equal(t, tc.add, sum.String())
			assert.Equal(t, tc.precision, sum.Precision())

			diff := a.Sub(b)
			assert.Equal(t, tc.sub, diff.String())
			assert.Equal(t, tc.precision, diff.Precision())
		})
	}
}

func TestAddIntPromotes(t *testing.T) {
	d := RequireFromString("1.1").Add(FromInt(1))
	assert.Equal(t, "2.1", d.String())
	assert.Equal(t, 1, d.Precision())
}

func TestAddFloatYieldsFloat(t *testing.T) {
	f := RequireFromString("1.1").AddFloat(1.1)
	assert.InDelta(t, 2.2, f, 1e-12)
}

func TestMul(t *testing.T) {
	d := RequireFromString("1.1").Mul(RequireFromString("1.1"))
	assert.Equal(t, "1.21", d.String())
	assert.Equal(t, 2, d.Precision())

	d = RequireFromString("1.1").Mul(FromInt(2))
	assert.Equal(t, "2.2", d.String())

	f := RequireFromString("1.1").MulFloat(1.1)
	assert.InDelta(t, 1.21, f, 1e-12)
}

func TestDiv(t *testing.T) {
	d := FromInt(1).Div(FromInt(2))
	assert.Equal(t, "0.5", d.String())
	assert.Equal(t, 1, d.Precision())

	d = RequireFromString("1.1").Div(RequireFromString("1.2"))
	assert.InDelta(t, 0.9166666666666667, d.Float64(), 1e-15)

	f := RequireFromString("1.1").DivFloat(1.2)
	assert.InDelta(t, 0.9166666666666667, f, 1e-15)
}

func TestFloorDiv(t *testing.T) {
	testCases := []struct {
		a, b     string
		expected string
	}{
		{"1", "2", "0"},
		{"23", "2", "11"},
		{"-7", "2", "-4"},
		{"7", "-2", "-4"},
		{"-7", "-2", "3"},
		{"1.1", "0.2", "5"},
	}

	for _, tc := range testCases {
		d := RequireFromString(tc.a).FloorDiv(RequireFromString(tc.b))
		assert.Equal(t, tc.expected, d.String(), "%s // %s", tc.a, tc.b)
		assert.Equal(t, 0, d.Precision())
	}
}

func TestMod(t *testing.T) {
	testCases := []struct {
		a, b     string
		expected string
	}{
		{"23", "2", "1"},
		{"100", "10", "0"},
		{"-7", "2", "1"},  // remainder takes the divisor sign
		{"7", "-2", "-1"},
		{"1.1", "0.2", "0.1"},
	}

	for _, tc := range testCases {
		d := RequireFromString(tc.a).Mod(RequireFromString(tc.b))
		assert.True(t, d.Equal(RequireFromString(tc.expected)),
			"%s %% %s: got %s, want %s", tc.a, tc.b, d, tc.expected)
	}
}

func TestComparisons(t *testing.T) {
	a, b := RequireFromString("1.0"), RequireFromString("1.1")

	assert.True(t, a.LessThan(b))
	assert.True(t, a.LessThanOrEqual(b))
	assert.True(t, b.GreaterThan(a))
	assert.True(t, b.GreaterThanOrEqual(a))
	assert.Equal(t, -1, a.Cmp(b))
	assert.Equal(t, 1, b.Cmp(a))
}

func TestMinMax(t *testing.T) {
	a, b, c := RequireFromString("1.0"), RequireFromString("2.2"), RequireFromString("-0.5")

	assert.True(t, Min(a, b, c).Equal(c))
	assert.True(t, Max(a, b, c).Equal(b))
	assert.True(t, Min(a).Equal(a))
}

func TestIntPartTruncates(t *testing.T) {
	assert.Equal(t, int64(1), RequireFromString("1.9").IntPart())
	assert.Equal(t, int64(-1), RequireFromString("-1.9").IntPart())
}

func TestAbsNeg(t *testing.T) {
	d := RequireFromString("-1.10")

	assert.Equal(t, "1.10", d.Abs().String())
	assert.Equal(t, "1.10", d.Neg().String())
	assert.Equal(t, "-1.10", d.Neg().Neg().String())
}

func TestFloat64RoundTrip(t *testing.T) {
	d := RequireFromString("1.15")
	assert.InDelta(t, 1.15, d.Float64(), 1e-12)
	assert.True(t, d.AsDecimal().Equal(decimal.RequireFromString("1.15")))
}

func TestJSONRoundTrip(t *testing.T) {
	d := RequireFromString("-1.10")

	data, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"-1.10"`, string(data))

	var back Decimal
	require.NoError(t, back.UnmarshalJSON(data))
	assert.True(t, back.Equal(d))
	assert.Equal(t, 2, back.Precision())
}
