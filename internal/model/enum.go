package model

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Opposite returns the other side.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderType is the execution instruction of an order.
type OrderType string

const (
	OrderTypeMarket          OrderType = "MARKET"
	OrderTypeLimit           OrderType = "LIMIT"
	OrderTypeStopMarket      OrderType = "STOP_MARKET"
	OrderTypeStopLimit       OrderType = "STOP_LIMIT"
	OrderTypeMarketIfTouched OrderType = "MARKET_IF_TOUCHED"
)

// TimeInForce bounds how long an order stays working.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceGTD TimeInForce = "GTD"
	TimeInForceDay TimeInForce = "DAY"
	TimeInForceFOK TimeInForce = "FOK"
	TimeInForceIOC TimeInForce = "IOC"
)

// LiquiditySide reports whether a fill made or took liquidity.
type LiquiditySide string

const (
	LiquiditySideNone  LiquiditySide = "NONE"
	LiquiditySideMaker LiquiditySide = "MAKER"
	LiquiditySideTaker LiquiditySide = "TAKER"
)

// AssetClass is the broad instrument category of a security.
type AssetClass string

const (
	AssetClassFX        AssetClass = "FX"
	AssetClassEquity    AssetClass = "EQUITY"
	AssetClassBond      AssetClass = "BOND"
	AssetClassCrypto    AssetClass = "CRYPTO"
	AssetClassCommodity AssetClass = "COMMODITY"
	AssetClassIndex     AssetClass = "INDEX"
)

// AssetType is the contract form of a security.
type AssetType string

const (
	AssetTypeSpot    AssetType = "SPOT"
	AssetTypeSwap    AssetType = "SWAP"
	AssetTypeFuture  AssetType = "FUTURE"
	AssetTypeForward AssetType = "FORWARD"
	AssetTypeCFD     AssetType = "CFD"
	AssetTypeOption  AssetType = "OPTION"
)

// OrderState is the lifecycle state of an order aggregate.
type OrderState string

const (
	OrderStateInitialized     OrderState = "INITIALIZED"
	OrderStateInvalid         OrderState = "INVALID"
	OrderStateDenied          OrderState = "DENIED"
	OrderStateSubmitted       OrderState = "SUBMITTED"
	OrderStateRejected        OrderState = "REJECTED"
	OrderStateAccepted        OrderState = "ACCEPTED"
	OrderStateTriggered       OrderState = "TRIGGERED"
	OrderStatePartiallyFilled OrderState = "PARTIALLY_FILLED"
	OrderStateFilled          OrderState = "FILLED"
	OrderStateCancelled       OrderState = "CANCELLED"
	OrderStateExpired         OrderState = "EXPIRED"
)

// IsTerminal reports whether no further transitions are legal.
func (s OrderState) IsTerminal() bool {
	switch s {
	case OrderStateInvalid, OrderStateDenied, OrderStateRejected,
		OrderStateCancelled, OrderStateExpired, OrderStateFilled:
		return true
	}
	return false
}

// IsWorking reports whether the order is live at the venue.
func (s OrderState) IsWorking() bool {
	switch s {
	case OrderStateAccepted, OrderStateTriggered, OrderStatePartiallyFilled:
		return true
	}
	return false
}

// PositionSide is the direction of net exposure.
type PositionSide string

const (
	PositionSideFlat  PositionSide = "FLAT"
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// CurrencyType distinguishes fiat from crypto currencies.
type CurrencyType string

const (
	CurrencyTypeFiat   CurrencyType = "FIAT"
	CurrencyTypeCrypto CurrencyType = "CRYPTO"
)

// OMSType selects how position identity is managed. Under NETTING one
// position per security and strategy nets all fills, reusing its id
// across flat and reopen. Under HEDGING the venue assigns a distinct
// position id per exposure and a closed id is never reused.
type OMSType string

const (
	OMSTypeNetting OMSType = "NETTING"
	OMSTypeHedging OMSType = "HEDGING"
)
