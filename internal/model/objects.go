package model

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/meridianhq/execore/internal/fixed"
)

var (
	ErrNegativePrice    = errors.New("price cannot be negative")
	ErrNegativeQuantity = errors.New("quantity cannot be negative")
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// Price is a non-negative decimal price at the instrument's precision.
type Price struct {
	fixed.Decimal
}

// NewPrice wraps a decimal as a price.
func NewPrice(d fixed.Decimal) (Price, error) {
	if d.IsNegative() {
		return Price{}, fmt.Errorf("%w: %s", ErrNegativePrice, d)
	}
	return Price{d}, nil
}

// PriceFromString parses a price, inferring precision from the string.
func PriceFromString(s string) (Price, error) {
	d, err := fixed.FromString(s)
	if err != nil {
		return Price{}, err
	}
	return NewPrice(d)
}

// PriceFromFloat converts at an explicit precision, rounding half to even.
func PriceFromFloat(v float64, precision int) (Price, error) {
	d, err := fixed.FromFloat(v, precision)
	if err != nil {
		return Price{}, err
	}
	return NewPrice(d)
}

// Quantity is a non-negative decimal amount of an instrument.
type Quantity struct {
	fixed.Decimal
}

// NewQuantity wraps a decimal as a quantity.
func NewQuantity(d fixed.Decimal) (Quantity, error) {
	if d.IsNegative() {
		return Quantity{}, fmt.Errorf("%w: %s", ErrNegativeQuantity, d)
	}
	return Quantity{d}, nil
}

// QuantityFromString parses a quantity, inferring precision from the string.
func QuantityFromString(s string) (Quantity, error) {
	d, err := fixed.FromString(s)
	if err != nil {
		return Quantity{}, err
	}
	return NewQuantity(d)
}

// QuantityFromInt returns a whole-unit quantity at precision 0.
func QuantityFromInt(v int64) (Quantity, error) {
	return NewQuantity(fixed.FromInt(v))
}

// QuantityFromFloat converts at an explicit precision, rounding half to even.
func QuantityFromFloat(v float64, precision int) (Quantity, error) {
	d, err := fixed.FromFloat(v, precision)
	if err != nil {
		return Quantity{}, err
	}
	return NewQuantity(d)
}

// QuantityZero is the zero quantity at the given precision.
func QuantityZero(precision int) Quantity {
	return Quantity{fixed.Zero.RoundBank(precision)}
}

// Formatted renders the quantity with thousands separators, keeping
// the precision-fixed fractional digits: "500,000", "0.561000".
func (q Quantity) Formatted() string {
	return groupThousands(q.String())
}

// Money is a currency amount quantized to the currency's precision.
type Money struct {
	amount   fixed.Decimal
	currency Currency
}

// NewMoney quantizes the given amount to the currency precision,
// rounding half to even.
func NewMoney(d fixed.Decimal, c Currency) Money {
	return Money{amount: d.RoundBank(c.Precision), currency: c}
}

// NewMoneyFromInt returns a whole-unit money amount.
func NewMoneyFromInt(v int64, c Currency) Money {
	return NewMoney(fixed.FromInt(v), c)
}

// NewMoneyFromString parses an amount and quantizes it to the currency.
func NewMoneyFromString(s string, c Currency) (Money, error) {
	d, err := fixed.FromString(s)
	if err != nil {
		return Money{}, err
	}
	return NewMoney(d, c), nil
}

func (m Money) Amount() fixed.Decimal { return m.amount }
func (m Money) Currency() Currency    { return m.currency }
func (m Money) IsZero() bool          { return m.amount.IsZero() }

// Add returns m + other in the shared currency.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Sub returns m - other in the shared currency.
func (m Money) Sub(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Neg returns the negated amount.
func (m Money) Neg() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

// Equal compares amount and currency.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String renders "1,525,000.00 USD".
func (m Money) String() string {
	return groupThousands(m.amount.String()) + " " + m.currency.Code
}

type moneyJSON struct {
	Amount   fixed.Decimal `json:"amount"`
	Currency string        `json:"currency"`
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"amount":%q,"currency":%q}`, m.amount.String(), m.currency.Code)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c, err := CurrencyFromString(raw.Currency)
	if err != nil {
		return err
	}
	m.amount = raw.Amount
	m.currency = c
	return nil
}

// groupThousands inserts comma separators into the integer part of a
// canonical decimal string.
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, fracPart, hasFrac := strings.Cut(s, ".")

	if len(intPart) > 3 {
		var b strings.Builder
		lead := len(intPart) % 3
		if lead > 0 {
			b.WriteString(intPart[:lead])
		}
		for i := lead; i < len(intPart); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(intPart[i : i+3])
		}
		intPart = b.String()
	}

	if hasFrac {
		return sign + intPart + "." + fracPart
	}
	return sign + intPart
}
