package model

import (
	"errors"
	"fmt"
)

var ErrUnknownCurrency = errors.New("unknown currency code")

// Currency is an ISO-style currency descriptor. Precision is the
// number of decimal places money amounts are quantized to.
type Currency struct {
	Code      string       `json:"code"`
	Precision int          `json:"precision"`
	Type      CurrencyType `json:"type"`
}

func (c Currency) String() string { return c.Code }

// IsZero reports whether the currency is unset.
func (c Currency) IsZero() bool { return c.Code == "" }

var (
	AUD = Currency{Code: "AUD", Precision: 2, Type: CurrencyTypeFiat}
	CAD = Currency{Code: "CAD", Precision: 2, Type: CurrencyTypeFiat}
	CHF = Currency{Code: "CHF", Precision: 2, Type: CurrencyTypeFiat}
	EUR = Currency{Code: "EUR", Precision: 2, Type: CurrencyTypeFiat}
	GBP = Currency{Code: "GBP", Precision: 2, Type: CurrencyTypeFiat}
	JPY = Currency{Code: "JPY", Precision: 0, Type: CurrencyTypeFiat}
	NZD = Currency{Code: "NZD", Precision: 2, Type: CurrencyTypeFiat}
	USD = Currency{Code: "USD", Precision: 2, Type: CurrencyTypeFiat}

	BTC  = Currency{Code: "BTC", Precision: 8, Type: CurrencyTypeCrypto}
	ETH  = Currency{Code: "ETH", Precision: 8, Type: CurrencyTypeCrypto}
	USDT = Currency{Code: "USDT", Precision: 8, Type: CurrencyTypeCrypto}
	USDC = Currency{Code: "USDC", Precision: 8, Type: CurrencyTypeCrypto}
	BNB  = Currency{Code: "BNB", Precision: 8, Type: CurrencyTypeCrypto}
	XRP  = Currency{Code: "XRP", Precision: 6, Type: CurrencyTypeCrypto}
)

var currencies = map[string]Currency{
	AUD.Code: AUD,
	CAD.Code: CAD,
	CHF.Code: CHF,
	EUR.Code: EUR,
	GBP.Code: GBP,
	JPY.Code: JPY,
	NZD.Code: NZD,
	USD.Code: USD,

	BTC.Code:  BTC,
	ETH.Code:  ETH,
	USDT.Code: USDT,
	USDC.Code: USDC,
	BNB.Code:  BNB,
	XRP.Code:  XRP,
}

// CurrencyFromString resolves a currency by its code.
func CurrencyFromString(code string) (Currency, error) {
	c, ok := currencies[code]
	if !ok {
		return Currency{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return c, nil
}
