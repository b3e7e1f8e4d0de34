// Package testkit provides deterministic fixtures shared by the test
// suites: stub securities and instruments, well-known identifiers and
// canned event builders. Builders panic on invalid input since they
// only ever run under test.
package testkit

import (
	"fmt"
	"time"

	"github.com/meridianhq/execore/internal/fixed"
	"github.com/meridianhq/execore/internal/instrument"
	"github.com/meridianhq/execore/internal/model"
)

// UnixEpoch is the reference timestamp used across the test suites.
var UnixEpoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// Price parses a price literal or panics.
func Price(s string) model.Price {
	p, err := model.PriceFromString(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Quantity parses a quantity literal or panics.
func Quantity(s string) model.Quantity {
	q, err := model.QuantityFromString(s)
	if err != nil {
		panic(err)
	}
	return q
}

// QuantityInt returns a whole-unit quantity.
func QuantityInt(v int64) model.Quantity {
	q, err := model.QuantityFromInt(v)
	if err != nil {
		panic(err)
	}
	return q
}

// Decimal parses a fixed-precision decimal literal or panics.
func Decimal(s string) fixed.Decimal {
	return fixed.RequireFromString(s)
}

func SecurityAUDUSD() *model.Security {
	return model.NewSecurity("AUD/USD", "SIM", model.AssetClassFX, model.AssetTypeSpot)
}

func SecurityGBPUSD() *model.Security {
	return model.NewSecurity("GBP/USD", "SIM", model.AssetClassFX, model.AssetTypeSpot)
}

func SecurityUSDJPY() *model.Security {
	return model.NewSecurity("USD/JPY", "SIM", model.AssetClassFX, model.AssetTypeSpot)
}

func SecurityBTCUSDBitmex() *model.Security {
	return model.NewSecurity("BTC/USD", "BITMEX", model.AssetClassCrypto, model.AssetTypeSwap)
}

func SecurityETHUSDBitmex() *model.Security {
	return model.NewSecurity("ETH/USD", "BITMEX", model.AssetClassCrypto, model.AssetTypeSwap)
}

func SecurityBTCUSDTBinance() *model.Security {
	return model.NewSecurity("BTC/USDT", "BINANCE", model.AssetClassCrypto, model.AssetTypeSpot)
}

func SecurityETHUSDTBinance() *model.Security {
	return model.NewSecurity("ETH/USDT", "BINANCE", model.AssetClassCrypto, model.AssetTypeSpot)
}

// InstrumentAUDUSD is the simulated spot FX pair, 0.002% commission on
// both sides.
func InstrumentAUDUSD() *instrument.CurrencyPair {
	return mustPair(instrument.NewCurrencyPair(
		SecurityAUDUSD(), model.AUD, model.USD, 5, 0,
		Decimal("0.00002"), Decimal("0.00002"), false,
	))
}

// InstrumentBTCUSDTBinance is the Binance spot pair with the venue's
// standard 0.1% fee tier.
func InstrumentBTCUSDTBinance() *instrument.CurrencyPair {
	return mustPair(instrument.NewCurrencyPair(
		SecurityBTCUSDTBinance(), model.BTC, model.USDT, 2, 6,
		Decimal("0.001"), Decimal("0.001"), false,
	))
}

// InstrumentBTCUSDBitmex is the BitMEX inverse swap with a maker rebate.
func InstrumentBTCUSDBitmex() *instrument.CurrencyPair {
	return mustPair(instrument.NewCurrencyPair(
		SecurityBTCUSDBitmex(), model.BTC, model.USD, 1, 0,
		Decimal("-0.00025"), Decimal("0.00075"), true,
	))
}

func mustPair(pair *instrument.CurrencyPair, err error) *instrument.CurrencyPair {
	if err != nil {
		panic(err)
	}
	return pair
}

func AccountID() model.AccountID   { return model.NewAccountID("SIM", "000") }
func TraderID() model.TraderID     { return model.NewTraderID("TESTER", "000") }
func StrategyID() model.StrategyID { return model.NewStrategyID("SCALPER", "001") }

// ClOrdID returns the nth client order id in the conventional
// "O-{date}-{time}-{trader}-{strategy}-{n}" shape.
func ClOrdID(n int) model.ClientOrderID {
	return model.ClientOrderID(fmt.Sprintf("O-19700101-000000-000-001-%d", n))
}

// MarketOrderInit builds the initialization event for a market order.
func MarketOrderInit(clOrdID model.ClientOrderID, security *model.Security, side model.OrderSide, qty model.Quantity) *model.OrderInitialized {
	return model.NewOrderInitialized(
		clOrdID, StrategyID(), security, side, model.OrderTypeMarket,
		qty, model.TimeInForceGTC, nil, NewUUID(), UnixEpoch,
	)
}

// LimitOrderInit builds the initialization event for a limit order.
func LimitOrderInit(clOrdID model.ClientOrderID, security *model.Security, side model.OrderSide, qty model.Quantity, price string) *model.OrderInitialized {
	return model.NewOrderInitialized(
		clOrdID, StrategyID(), security, side, model.OrderTypeLimit,
		qty, model.TimeInForceGTC, map[string]string{"Price": price}, NewUUID(), UnixEpoch,
	)
}

// MarketOrder builds an order aggregate in state INITIALIZED.
func MarketOrder(clOrdID model.ClientOrderID, security *model.Security, side model.OrderSide, qty model.Quantity) *model.Order {
	return mustOrder(model.NewOrder(MarketOrderInit(clOrdID, security, side, qty)))
}

// LimitOrder builds a limit order aggregate in state INITIALIZED.
func LimitOrder(clOrdID model.ClientOrderID, security *model.Security, side model.OrderSide, qty model.Quantity, price string) *model.Order {
	return mustOrder(model.NewOrder(LimitOrderInit(clOrdID, security, side, qty, price)))
}

func mustOrder(o *model.Order, err error) *model.Order {
	if err != nil {
		panic(err)
	}
	return o
}
