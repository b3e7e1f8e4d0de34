package testkit

import (
	"strings"

	"github.com/meridianhq/execore/internal/instrument"
	"github.com/meridianhq/execore/internal/model"
)

// AccountState returns a canned balance snapshot for the given account,
// or for the simulated account when the id is zero.
func AccountState(accountID model.AccountID) *model.AccountState {
	if accountID.IsZero() {
		accountID = AccountID()
	}
	total := model.NewMoneyFromInt(1_000_000, model.USD)
	return model.NewAccountState(
		accountID,
		[]model.Money{total},
		[]model.Money{total},
		[]model.Money{model.NewMoneyFromInt(0, model.USD)},
		map[string]string{"default_currency": "USD"},
		NewUUID(), UnixEpoch,
	)
}

func OrderSubmitted(order *model.Order) *model.OrderSubmitted {
	return model.NewOrderSubmitted(AccountID(), order.ClOrdID(), UnixEpoch, NewUUID(), UnixEpoch)
}

// OrderAccepted assigns the given venue order id, defaulting to "1".
func OrderAccepted(order *model.Order, orderID model.OrderID) *model.OrderAccepted {
	if orderID.IsZero() {
		orderID = "1"
	}
	return model.NewOrderAccepted(AccountID(), order.ClOrdID(), orderID, UnixEpoch, NewUUID(), UnixEpoch)
}

func OrderRejected(order *model.Order) *model.OrderRejected {
	return model.NewOrderRejected(AccountID(), order.ClOrdID(), UnixEpoch, "ORDER_REJECTED", NewUUID(), UnixEpoch)
}

func OrderCancelled(order *model.Order) *model.OrderCancelled {
	return model.NewOrderCancelled(AccountID(), order.ClOrdID(), order.OrderID(), UnixEpoch, NewUUID(), UnixEpoch)
}

func OrderExpired(order *model.Order) *model.OrderExpired {
	return model.NewOrderExpired(AccountID(), order.ClOrdID(), order.OrderID(), UnixEpoch, NewUUID(), UnixEpoch)
}

func OrderTriggered(order *model.Order) *model.OrderTriggered {
	return model.NewOrderTriggered(AccountID(), order.ClOrdID(), order.OrderID(), UnixEpoch, NewUUID(), UnixEpoch)
}

// FillParams overrides parts of a canned fill. Zero values fall back to
// the order's own state: the full leaves quantity at price 1.00000,
// taker side, position and strategy ids taken from the order, and an
// execution id derived from the client order id.
type FillParams struct {
	PositionID    model.PositionID
	StrategyID    model.StrategyID
	ExecutionID   model.ExecutionID
	FillQty       model.Quantity
	FillPrice     model.Price
	LiquiditySide model.LiquiditySide
}

// OrderFilled builds a fill consistent with the order's current
// progress: cum_qty continues from filled_qty and leaves_qty is the
// remainder, never negative. The commission comes from the instrument
// and the fill settles in its settlement currency.
func OrderFilled(order *model.Order, inst instrument.Instrument, params FillParams) *model.OrderFilled {
	if params.PositionID.IsZero() {
		params.PositionID = order.PositionID()
	}
	if params.StrategyID.IsZero() {
		params.StrategyID = order.StrategyID()
	}
	if params.ExecutionID.IsZero() {
		params.ExecutionID = model.ExecutionID(strings.ReplaceAll(string(order.ClOrdID()), "O", "E"))
	}
	if params.FillQty.IsZero() {
		params.FillQty = order.LeavesQty()
	}
	if params.FillPrice.IsZero() {
		params.FillPrice = Price("1.00000")
	}
	if params.LiquiditySide == "" {
		params.LiquiditySide = model.LiquiditySideTaker
	}

	cum, err := model.NewQuantity(order.FilledQty().Add(params.FillQty.Decimal))
	if err != nil {
		panic(err)
	}
	leavesDec := order.Quantity().Sub(cum.Decimal)
	leaves := model.QuantityZero(order.Quantity().Precision())
	if leavesDec.IsPositive() {
		leaves, err = model.NewQuantity(leavesDec)
		if err != nil {
			panic(err)
		}
	}

	commission, err := inst.CalculateCommission(params.FillQty, params.FillPrice.Decimal, params.LiquiditySide)
	if err != nil {
		panic(err)
	}

	return model.NewOrderFilled(
		AccountID(),
		order.ClOrdID(),
		order.OrderID(),
		params.ExecutionID,
		params.PositionID,
		params.StrategyID,
		inst.Security(),
		order.Side(),
		params.FillQty, cum, leaves,
		params.FillPrice,
		inst.SettlementCurrency(),
		inst.IsInverse(),
		commission,
		params.LiquiditySide,
		UnixEpoch,
		NewUUID(), UnixEpoch,
	)
}

func PositionOpened(position *model.Position) *model.PositionOpened {
	return model.NewPositionOpened(position.Snapshot(), position.LastFill(), NewUUID(), UnixEpoch)
}

func PositionChanged(position *model.Position) *model.PositionChanged {
	return model.NewPositionChanged(position.Snapshot(), position.LastFill(), NewUUID(), UnixEpoch)
}

func PositionClosed(position *model.Position) *model.PositionClosed {
	return model.NewPositionClosed(position.Snapshot(), position.LastFill(), NewUUID(), UnixEpoch)
}
