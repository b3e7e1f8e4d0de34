package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhq/execore/internal/model"
	"github.com/meridianhq/execore/internal/testkit"
)

func newAcceptedOrder(t *testing.T) *model.Order {
	t.Helper()
	order := testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityAUDUSD(), model.OrderSideBuy, testkit.QuantityInt(100_000))
	require.NoError(t, order.Apply(testkit.OrderSubmitted(order)))
	require.NoError(t, order.Apply(testkit.OrderAccepted(order, "1")))
	return order
}

func TestNewOrder(t *testing.T) {
	order := testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityAUDUSD(), model.OrderSideBuy, testkit.QuantityInt(100_000))

	assert.Equal(t, model.OrderStateInitialized, order.State())
	assert.Equal(t, testkit.ClOrdID(1), order.ClOrdID())
	assert.True(t, order.OrderID().IsZero())
	assert.Equal(t, testkit.StrategyID(), order.StrategyID())
	assert.Equal(t, model.OrderSideBuy, order.Side())
	assert.Equal(t, model.OrderTypeMarket, order.Type())
	assert.True(t, order.FilledQty().IsZero())
	assert.Equal(t, "100,000", order.LeavesQty().Formatted())
	assert.Equal(t, 1, order.EventCount())
	assert.False(t, order.IsWorking())
	assert.False(t, order.IsCompleted())

	_, hasPrice := order.Price()
	assert.False(t, hasPrice)
}

func TestNewOrderParsesPriceOption(t *testing.T) {
	order := testkit.LimitOrder(testkit.ClOrdID(1), testkit.SecurityAUDUSD(), model.OrderSideBuy, testkit.QuantityInt(100_000), "1.90000")

	price, hasPrice := order.Price()
	require.True(t, hasPrice)
	assert.Equal(t, "1.90000", price.String())
	assert.Equal(t, model.OrderTypeLimit, order.Type())

	init := model.NewOrderInitialized(
		"O-1", testkit.StrategyID(), testkit.SecurityAUDUSD(),
		model.OrderSideBuy, model.OrderTypeLimit, testkit.QuantityInt(100_000),
		model.TimeInForceGTC, map[string]string{"Price": "not-a-price"},
		testkit.NewUUID(), testkit.UnixEpoch,
	)
	_, err := model.NewOrder(init)
	assert.Error(t, err)
}

func TestOrderDeniedFromInitialized(t *testing.T) {
	order := testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityAUDUSD(), model.OrderSideBuy, testkit.QuantityInt(100_000))

	denied := model.NewOrderDenied(order.ClOrdID(), "SINGLE_ORDER_RISK_EXCEEDED", testkit.NewUUID(), testkit.UnixEpoch)
	require.NoError(t, order.Apply(denied))

	assert.Equal(t, model.OrderStateDenied, order.State())
	assert.True(t, order.IsCompleted())
}

func TestOrderRejectedFromSubmitted(t *testing.T) {
	order := testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityAUDUSD(), model.OrderSideBuy, testkit.QuantityInt(100_000))
	require.NoError(t, order.Apply(testkit.OrderSubmitted(order)))

	require.NoError(t, order.Apply(testkit.OrderRejected(order)))

	assert.Equal(t, model.OrderStateRejected, order.State())
	assert.True(t, order.IsCompleted())
}

func TestOrderLifecycleToFilled(t *testing.T) {
	inst := testkit.InstrumentAUDUSD()
	order := newAcceptedOrder(t)

	assert.Equal(t, model.OrderStateAccepted, order.State())
	assert.Equal(t, model.OrderID("1"), order.OrderID())
	assert.Equal(t, testkit.AccountID(), order.AccountID())
	assert.True(t, order.IsWorking())

	fill := testkit.OrderFilled(order, inst, testkit.FillParams{PositionID: "P-1", FillPrice: testkit.Price("0.80010")})
	require.NoError(t, order.Apply(fill))

	assert.Equal(t, model.OrderStateFilled, order.State())
	assert.Equal(t, "100,000", order.FilledQty().Formatted())
	assert.True(t, order.LeavesQty().IsZero())
	assert.Equal(t, "0.80010", order.AvgPrice().String())
	assert.Equal(t, model.PositionID("P-1"), order.PositionID())
	assert.True(t, order.IsCompleted())
	assert.False(t, order.IsWorking())
	assert.Equal(t, 4, order.EventCount())
	assert.Same(t, fill, order.LastEvent())
}

func TestOrderPartialFillsAverageEntryPrice(t *testing.T) {
	inst := testkit.InstrumentAUDUSD()
	order := newAcceptedOrder(t)

	first := testkit.OrderFilled(order, inst, testkit.FillParams{
		PositionID:  "P-1",
		ExecutionID: "E-1",
		FillQty:     testkit.QuantityInt(60_000),
		FillPrice:   testkit.Price("1.00000"),
	})
	require.NoError(t, order.Apply(first))

	assert.Equal(t, model.OrderStatePartiallyFilled, order.State())
	assert.Equal(t, "60,000", order.FilledQty().Formatted())
	assert.Equal(t, "40,000", order.LeavesQty().Formatted())
	assert.True(t, order.IsWorking())

	second := testkit.OrderFilled(order, inst, testkit.FillParams{
		PositionID:  "P-1",
		ExecutionID: "E-2",
		FillQty:     testkit.QuantityInt(40_000),
		FillPrice:   testkit.Price("1.00010"),
	})
	require.NoError(t, order.Apply(second))

	assert.Equal(t, model.OrderStateFilled, order.State())
	assert.Equal(t, "100,000", order.FilledQty().Formatted())
	assert.True(t, order.LeavesQty().IsZero())
	// (60000*1.00000 + 40000*1.00010) / 100000
	assert.Equal(t, "1.00004", order.AvgPrice().String())
	assert.Equal(t, []model.ExecutionID{"E-1", "E-2"}, order.ExecutionIDs())
}

func TestOrderCancelledFromWorkingStates(t *testing.T) {
	inst := testkit.InstrumentAUDUSD()

	t.Run("accepted", func(t *testing.T) {
		order := newAcceptedOrder(t)
		require.NoError(t, order.Apply(testkit.OrderCancelled(order)))
		assert.Equal(t, model.OrderStateCancelled, order.State())
	})

	t.Run("partially filled", func(t *testing.T) {
		order := newAcceptedOrder(t)
		fill := testkit.OrderFilled(order, inst, testkit.FillParams{
			PositionID: "P-1",
			FillQty:    testkit.QuantityInt(60_000),
		})
		require.NoError(t, order.Apply(fill))

		require.NoError(t, order.Apply(testkit.OrderCancelled(order)))
		assert.Equal(t, model.OrderStateCancelled, order.State())
		assert.Equal(t, "60,000", order.FilledQty().Formatted())
	})
}

func TestOrderExpiredFromAccepted(t *testing.T) {
	order := newAcceptedOrder(t)
	require.NoError(t, order.Apply(testkit.OrderExpired(order)))
	assert.Equal(t, model.OrderStateExpired, order.State())
	assert.True(t, order.IsCompleted())
}

func TestOrderTriggered(t *testing.T) {
	order := newAcceptedOrder(t)
	require.NoError(t, order.Apply(testkit.OrderTriggered(order)))
	assert.Equal(t, model.OrderStateTriggered, order.State())
	assert.True(t, order.IsWorking())

	// a second trigger is not a legal transition
	err := order.Apply(testkit.OrderTriggered(order))
	assert.ErrorIs(t, err, model.ErrInvalidStateTransition)
	assert.Equal(t, model.OrderStateTriggered, order.State())
}

func TestOrderCancelRejectKeepsState(t *testing.T) {
	order := newAcceptedOrder(t)
	before := order.EventCount()

	reject := model.NewOrderCancelReject(
		testkit.AccountID(), order.ClOrdID(), order.OrderID(), testkit.UnixEpoch,
		string(order.ClOrdID()), "ORDER_DOES_NOT_EXIST", testkit.NewUUID(), testkit.UnixEpoch,
	)
	require.NoError(t, order.Apply(reject))

	assert.Equal(t, model.OrderStateAccepted, order.State())
	assert.Equal(t, before+1, order.EventCount())
}

func TestOrderAmended(t *testing.T) {
	order := newAcceptedOrder(t)

	amend := model.NewOrderAmended(
		testkit.AccountID(), order.ClOrdID(), order.OrderID(),
		testkit.QuantityInt(500_000), testkit.Price("1.95000"),
		testkit.UnixEpoch, testkit.NewUUID(), testkit.UnixEpoch,
	)
	require.NoError(t, order.Apply(amend))

	assert.Equal(t, "500,000", order.Quantity().Formatted())
	assert.Equal(t, "500,000", order.LeavesQty().Formatted())
	price, hasPrice := order.Price()
	require.True(t, hasPrice)
	assert.Equal(t, "1.95000", price.String())
}

func TestOrderAmendBelowFilledRejected(t *testing.T) {
	inst := testkit.InstrumentAUDUSD()
	order := newAcceptedOrder(t)
	fill := testkit.OrderFilled(order, inst, testkit.FillParams{
		PositionID: "P-1",
		FillQty:    testkit.QuantityInt(60_000),
	})
	require.NoError(t, order.Apply(fill))

	amend := model.NewOrderAmended(
		testkit.AccountID(), order.ClOrdID(), order.OrderID(),
		testkit.QuantityInt(50_000), testkit.Price("1.95000"),
		testkit.UnixEpoch, testkit.NewUUID(), testkit.UnixEpoch,
	)
	err := order.Apply(amend)
	assert.ErrorIs(t, err, model.ErrInconsistentFill)
	assert.Equal(t, "100,000", order.Quantity().Formatted())
}

func TestOrderInvalidTransitions(t *testing.T) {
	inst := testkit.InstrumentAUDUSD()

	tests := []struct {
		name    string
		arrange func(t *testing.T) *model.Order
		event   func(o *model.Order) model.OrderEvent
	}{
		{
			name: "accepted after filled",
			arrange: func(t *testing.T) *model.Order {
				order := newAcceptedOrder(t)
				require.NoError(t, order.Apply(testkit.OrderFilled(order, inst, testkit.FillParams{PositionID: "P-1"})))
				return order
			},
			event: func(o *model.Order) model.OrderEvent { return testkit.OrderAccepted(o, "2") },
		},
		{
			name: "fill before acceptance",
			arrange: func(t *testing.T) *model.Order {
				return testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityAUDUSD(), model.OrderSideBuy, testkit.QuantityInt(100_000))
			},
			event: func(o *model.Order) model.OrderEvent {
				return testkit.OrderFilled(o, inst, testkit.FillParams{PositionID: "P-1"})
			},
		},
		{
			name: "cancel before acceptance",
			arrange: func(t *testing.T) *model.Order {
				return testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityAUDUSD(), model.OrderSideBuy, testkit.QuantityInt(100_000))
			},
			event: func(o *model.Order) model.OrderEvent { return testkit.OrderCancelled(o) },
		},
		{
			name: "submitted twice",
			arrange: func(t *testing.T) *model.Order {
				order := testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityAUDUSD(), model.OrderSideBuy, testkit.QuantityInt(100_000))
				require.NoError(t, order.Apply(testkit.OrderSubmitted(order)))
				return order
			},
			event: func(o *model.Order) model.OrderEvent { return testkit.OrderSubmitted(o) },
		},
		{
			name: "denied after submission",
			arrange: func(t *testing.T) *model.Order {
				order := testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityAUDUSD(), model.OrderSideBuy, testkit.QuantityInt(100_000))
				require.NoError(t, order.Apply(testkit.OrderSubmitted(order)))
				return order
			},
			event: func(o *model.Order) model.OrderEvent {
				return model.NewOrderDenied(o.ClOrdID(), "TOO_LATE", testkit.NewUUID(), testkit.UnixEpoch)
			},
		},
		{
			name: "rejected after acceptance",
			arrange: func(t *testing.T) *model.Order {
				return newAcceptedOrder(t)
			},
			event: func(o *model.Order) model.OrderEvent { return testkit.OrderRejected(o) },
		},
		{
			name: "fill after cancellation",
			arrange: func(t *testing.T) *model.Order {
				order := newAcceptedOrder(t)
				require.NoError(t, order.Apply(testkit.OrderCancelled(order)))
				return order
			},
			event: func(o *model.Order) model.OrderEvent {
				return testkit.OrderFilled(o, inst, testkit.FillParams{PositionID: "P-1"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := tt.arrange(t)
			stateBefore := order.State()
			eventsBefore := order.EventCount()

			err := order.Apply(tt.event(order))

			assert.ErrorIs(t, err, model.ErrInvalidStateTransition)
			assert.Equal(t, stateBefore, order.State())
			assert.Equal(t, eventsBefore, order.EventCount())
		})
	}
}

func TestOrderClientOrderIDGuard(t *testing.T) {
	order := testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityAUDUSD(), model.OrderSideBuy, testkit.QuantityInt(100_000))

	stray := model.NewOrderSubmitted(testkit.AccountID(), testkit.ClOrdID(2), testkit.UnixEpoch, testkit.NewUUID(), testkit.UnixEpoch)
	err := order.Apply(stray)

	assert.ErrorIs(t, err, model.ErrClientOrderIDMismatch)
	assert.Equal(t, model.OrderStateInitialized, order.State())
}

func TestOrderAcceptedRequiresVenueOrderID(t *testing.T) {
	order := testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityAUDUSD(), model.OrderSideBuy, testkit.QuantityInt(100_000))
	require.NoError(t, order.Apply(testkit.OrderSubmitted(order)))

	accepted := model.NewOrderAccepted(testkit.AccountID(), order.ClOrdID(), "", testkit.UnixEpoch, testkit.NewUUID(), testkit.UnixEpoch)
	err := order.Apply(accepted)

	assert.ErrorIs(t, err, model.ErrOrderIDMismatch)
	assert.Equal(t, model.OrderStateSubmitted, order.State())
}

func TestOrderFillValidation(t *testing.T) {
	inst := testkit.InstrumentAUDUSD()

	tests := []struct {
		name    string
		mutate  func(f *model.OrderFilled)
		wantErr error
	}{
		{
			name:    "venue order id mismatch",
			mutate:  func(f *model.OrderFilled) { f.OrderID = "999" },
			wantErr: model.ErrOrderIDMismatch,
		},
		{
			name:    "security mismatch",
			mutate:  func(f *model.OrderFilled) { f.Security = testkit.SecurityGBPUSD() },
			wantErr: model.ErrInconsistentFill,
		},
		{
			name:    "side mismatch",
			mutate:  func(f *model.OrderFilled) { f.Side = model.OrderSideSell },
			wantErr: model.ErrInconsistentFill,
		},
		{
			name:    "missing execution id",
			mutate:  func(f *model.OrderFilled) { f.ExecutionID = "" },
			wantErr: model.ErrInconsistentFill,
		},
		{
			name:    "cum_qty does not continue filled_qty",
			mutate:  func(f *model.OrderFilled) { f.CumQty = testkit.QuantityInt(70_000) },
			wantErr: model.ErrInconsistentFill,
		},
		{
			name:    "cum_qty plus leaves_qty exceeds order quantity",
			mutate:  func(f *model.OrderFilled) { f.LeavesQty = testkit.QuantityInt(50_000) },
			wantErr: model.ErrInconsistentFill,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := newAcceptedOrder(t)
			fill := *testkit.OrderFilled(order, inst, testkit.FillParams{PositionID: "P-1"})
			tt.mutate(&fill)

			err := order.Apply(&fill)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, model.OrderStateAccepted, order.State())
			assert.True(t, order.FilledQty().IsZero())
		})
	}
}

func TestOrderRejectsDuplicateExecutionID(t *testing.T) {
	inst := testkit.InstrumentAUDUSD()
	order := newAcceptedOrder(t)

	first := testkit.OrderFilled(order, inst, testkit.FillParams{
		PositionID:  "P-1",
		ExecutionID: "E-1",
		FillQty:     testkit.QuantityInt(60_000),
	})
	require.NoError(t, order.Apply(first))

	replay := testkit.OrderFilled(order, inst, testkit.FillParams{
		PositionID:  "P-1",
		ExecutionID: "E-1",
		FillQty:     testkit.QuantityInt(40_000),
	})
	err := order.Apply(replay)

	assert.ErrorIs(t, err, model.ErrDuplicateExecutionID)
	assert.Equal(t, "60,000", order.FilledQty().Formatted())
	assert.Equal(t, model.OrderStatePartiallyFilled, order.State())
}

func TestOrderPositionIDStableAcrossFills(t *testing.T) {
	inst := testkit.InstrumentAUDUSD()
	order := newAcceptedOrder(t)

	first := testkit.OrderFilled(order, inst, testkit.FillParams{
		PositionID:  "P-1",
		ExecutionID: "E-1",
		FillQty:     testkit.QuantityInt(60_000),
	})
	require.NoError(t, order.Apply(first))

	second := testkit.OrderFilled(order, inst, testkit.FillParams{
		PositionID:  "P-2",
		ExecutionID: "E-2",
		FillQty:     testkit.QuantityInt(40_000),
	})
	err := order.Apply(second)

	assert.ErrorIs(t, err, model.ErrInconsistentFill)
	assert.Equal(t, model.PositionID("P-1"), order.PositionID())
}

func TestEventTypeName(t *testing.T) {
	order := testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityAUDUSD(), model.OrderSideBuy, testkit.QuantityInt(100_000))
	assert.Equal(t, "OrderInitialized", model.EventTypeName(order.LastEvent()))
	assert.Equal(t, "OrderSubmitted", model.EventTypeName(testkit.OrderSubmitted(order)))
}
