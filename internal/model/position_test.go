package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhq/execore/internal/model"
	"github.com/meridianhq/execore/internal/testkit"
)

// openLong opens a 100,000 AUD/USD long at 1.00000 under position P-1.
func openLong(t *testing.T) *model.Position {
	t.Helper()
	inst := testkit.InstrumentAUDUSD()
	buy := testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityAUDUSD(), model.OrderSideBuy, testkit.QuantityInt(100_000))
	fill := testkit.OrderFilled(buy, inst, testkit.FillParams{PositionID: "P-1"})
	position, err := model.NewPosition(fill)
	require.NoError(t, err)
	return position
}

func TestPositionOpenedFromBuyFill(t *testing.T) {
	position := openLong(t)

	assert.Equal(t, model.PositionID("P-1"), position.ID())
	assert.Equal(t, testkit.AccountID(), position.AccountID())
	assert.Equal(t, testkit.ClOrdID(1), position.FromOrder())
	assert.Equal(t, testkit.StrategyID(), position.StrategyID())
	assert.Equal(t, model.PositionSideLong, position.Side())
	assert.Equal(t, model.OrderSideBuy, position.EntrySide())
	assert.True(t, position.IsOpen())
	assert.True(t, position.IsLong())
	assert.False(t, position.IsShort())
	assert.Equal(t, "100,000", position.Quantity().Formatted())
	assert.Equal(t, "100,000", position.PeakQty().Formatted())
	assert.Equal(t, "100000", position.SignedQty().String())
	assert.Equal(t, "1.00000", position.AvgOpenPrice().String())
	assert.Equal(t, model.USD, position.QuoteCurrency())
	assert.False(t, position.IsInverse())
	assert.Equal(t, "2.00 USD", position.Commissions().String())
	// no gross PnL yet, so realized is the commission drag
	assert.Equal(t, "-2.00 USD", position.RealizedPnL().String())
	assert.Equal(t, 1, position.EventCount())
	assert.Equal(t, "LONG 100,000 AUD/USD.SIM", position.String())
}

func TestPositionOpenedFromSellFill(t *testing.T) {
	inst := testkit.InstrumentAUDUSD()
	sell := testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityAUDUSD(), model.OrderSideSell, testkit.QuantityInt(100_000))
	fill := testkit.OrderFilled(sell, inst, testkit.FillParams{PositionID: "P-1"})

	position, err := model.NewPosition(fill)
	require.NoError(t, err)

	assert.Equal(t, model.PositionSideShort, position.Side())
	assert.Equal(t, model.OrderSideSell, position.EntrySide())
	assert.True(t, position.IsShort())
	assert.Equal(t, "-100000", position.SignedQty().String())
	assert.Equal(t, "SHORT 100,000 AUD/USD.SIM", position.String())
}

func TestNewPositionValidation(t *testing.T) {
	inst := testkit.InstrumentAUDUSD()
	buy := testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityAUDUSD(), model.OrderSideBuy, testkit.QuantityInt(100_000))

	t.Run("missing position id", func(t *testing.T) {
		fill := testkit.OrderFilled(buy, inst, testkit.FillParams{})
		_, err := model.NewPosition(fill)
		assert.ErrorIs(t, err, model.ErrInconsistentFill)
	})

	t.Run("zero fill quantity", func(t *testing.T) {
		fill := *testkit.OrderFilled(buy, inst, testkit.FillParams{PositionID: "P-1"})
		fill.FillQty = model.QuantityZero(0)
		_, err := model.NewPosition(&fill)
		assert.ErrorIs(t, err, model.ErrInconsistentFill)
	})

	t.Run("zero fill price", func(t *testing.T) {
		fill := *testkit.OrderFilled(buy, inst, testkit.FillParams{PositionID: "P-1"})
		fill.FillPrice = testkit.Price("0")
		_, err := model.NewPosition(&fill)
		assert.ErrorIs(t, err, model.ErrInconsistentFill)
	})

	t.Run("commission currency mismatch", func(t *testing.T) {
		fill := *testkit.OrderFilled(buy, inst, testkit.FillParams{PositionID: "P-1"})
		fill.Commission = model.NewMoneyFromInt(1, model.GBP)
		_, err := model.NewPosition(&fill)
		assert.ErrorIs(t, err, model.ErrCurrencyMismatch)
	})
}

func TestPositionIncreaseFoldsEntryPrice(t *testing.T) {
	inst := testkit.InstrumentAUDUSD()
	position := openLong(t)

	buy := testkit.MarketOrder(testkit.ClOrdID(2), testkit.SecurityAUDUSD(), model.OrderSideBuy, testkit.QuantityInt(100_000))
	fill := testkit.OrderFilled(buy, inst, testkit.FillParams{PositionID: "P-1", FillPrice: testkit.Price("1.00010")})
	require.NoError(t, position.Apply(fill))

	assert.Equal(t, model.PositionSideLong, position.Side())
	assert.Equal(t, "200,000", position.Quantity().Formatted())
	assert.Equal(t, "200,000", position.PeakQty().Formatted())
	// (100000*1.00000 + 100000*1.00010) / 200000
	assert.Equal(t, "1.00005", position.AvgOpenPrice().String())
	assert.Equal(t, "4.00 USD", position.Commissions().String())
	assert.Equal(t, "-4.00 USD", position.RealizedPnL().String())
	assert.Equal(t, 2, position.EventCount())
}

func TestPositionReduceRealizesPnL(t *testing.T) {
	inst := testkit.InstrumentAUDUSD()
	position := openLong(t)
	before := position.Snapshot()

	sell := testkit.MarketOrder(testkit.ClOrdID(2), testkit.SecurityAUDUSD(), model.OrderSideSell, testkit.QuantityInt(50_000))
	fill := testkit.OrderFilled(sell, inst, testkit.FillParams{PositionID: "P-1", FillPrice: testkit.Price("1.00010")})
	require.NoError(t, position.Apply(fill))

	assert.Equal(t, model.PositionSideLong, position.Side())
	assert.Equal(t, "50,000", position.Quantity().Formatted())
	assert.Equal(t, "100,000", position.PeakQty().Formatted())
	// the entry price is untouched by reducing fills
	assert.Equal(t, "1.00000", position.AvgOpenPrice().String())
	// gross 0.00010 * 50000 = 5.00, commissions 2.00 + 1.00
	assert.Equal(t, "3.00 USD", position.Commissions().String())
	assert.Equal(t, "2.00 USD", position.RealizedPnL().String())
	assert.True(t, position.IsOpen())

	// snapshots are point-in-time copies
	assert.Equal(t, "100,000", before.Quantity.Formatted())
	assert.True(t, before.IsOpen)
}

func TestPositionCloseGoesFlat(t *testing.T) {
	inst := testkit.InstrumentAUDUSD()
	position := openLong(t)

	sell := testkit.MarketOrder(testkit.ClOrdID(2), testkit.SecurityAUDUSD(), model.OrderSideSell, testkit.QuantityInt(100_000))
	fill := testkit.OrderFilled(sell, inst, testkit.FillParams{PositionID: "P-1", FillPrice: testkit.Price("1.00010")})
	require.NoError(t, position.Apply(fill))

	assert.Equal(t, model.PositionSideFlat, position.Side())
	assert.False(t, position.IsOpen())
	assert.True(t, position.SignedQty().IsZero())
	assert.Equal(t, "0", position.Quantity().String())
	// gross 0.00010 * 100000 = 10.00, commissions 2.00 + 2.00
	assert.Equal(t, "6.00 USD", position.RealizedPnL().String())
	assert.True(t, position.ClosedTime().Equal(testkit.UnixEpoch))
	assert.Equal(t, "0.00 USD", position.UnrealizedPnL(testkit.Price("1.00020")).String())
	assert.Equal(t, "FLAT AUD/USD.SIM", position.String())
}

func TestPositionReopensAfterFlat(t *testing.T) {
	inst := testkit.InstrumentAUDUSD()
	position := openLong(t)

	sell := testkit.MarketOrder(testkit.ClOrdID(2), testkit.SecurityAUDUSD(), model.OrderSideSell, testkit.QuantityInt(100_000))
	require.NoError(t, position.Apply(testkit.OrderFilled(sell, inst, testkit.FillParams{PositionID: "P-1", FillPrice: testkit.Price("1.00010")})))
	require.False(t, position.IsOpen())

	rebuy := testkit.MarketOrder(testkit.ClOrdID(3), testkit.SecurityAUDUSD(), model.OrderSideBuy, testkit.QuantityInt(50_000))
	require.NoError(t, position.Apply(testkit.OrderFilled(rebuy, inst, testkit.FillParams{PositionID: "P-1", FillPrice: testkit.Price("1.10000")})))

	assert.Equal(t, model.PositionSideLong, position.Side())
	assert.Equal(t, "50,000", position.Quantity().Formatted())
	// the entry basis restarts at the reopening fill
	assert.Equal(t, "1.10000", position.AvgOpenPrice().String())
	assert.Equal(t, "50,000", position.PeakQty().Formatted())
	assert.True(t, position.ClosedTime().IsZero())
	// realized history survives the flat crossing: 10.00 gross less
	// commissions 2.00 + 2.00 + 1.10
	assert.Equal(t, "4.90 USD", position.RealizedPnL().String())
	assert.Equal(t, 3, position.EventCount())
}

func TestPositionFlipRejected(t *testing.T) {
	inst := testkit.InstrumentAUDUSD()
	position := openLong(t)

	sell := testkit.MarketOrder(testkit.ClOrdID(2), testkit.SecurityAUDUSD(), model.OrderSideSell, testkit.QuantityInt(150_000))
	fill := testkit.OrderFilled(sell, inst, testkit.FillParams{PositionID: "P-1"})
	err := position.Apply(fill)

	assert.ErrorIs(t, err, model.ErrPositionFlip)
	assert.Equal(t, model.PositionSideLong, position.Side())
	assert.Equal(t, "100,000", position.Quantity().Formatted())
	assert.Equal(t, 1, position.EventCount())
}

func TestPositionApplyValidation(t *testing.T) {
	inst := testkit.InstrumentAUDUSD()

	tests := []struct {
		name    string
		mutate  func(f *model.OrderFilled)
		wantErr error
	}{
		{
			name:    "position id mismatch",
			mutate:  func(f *model.OrderFilled) { f.PosID = "P-9" },
			wantErr: model.ErrInconsistentFill,
		},
		{
			name:    "security mismatch",
			mutate:  func(f *model.OrderFilled) { f.Security = testkit.SecurityGBPUSD() },
			wantErr: model.ErrInconsistentFill,
		},
		{
			name:    "strategy mismatch",
			mutate:  func(f *model.OrderFilled) { f.StrategyID = model.NewStrategyID("MOMO", "007") },
			wantErr: model.ErrInconsistentFill,
		},
		{
			name:    "settlement currency mismatch",
			mutate:  func(f *model.OrderFilled) { f.Currency = model.GBP },
			wantErr: model.ErrCurrencyMismatch,
		},
		{
			name:    "commission currency mismatch",
			mutate:  func(f *model.OrderFilled) { f.Commission = model.NewMoneyFromInt(1, model.GBP) },
			wantErr: model.ErrCurrencyMismatch,
		},
		{
			name:    "zero fill quantity",
			mutate:  func(f *model.OrderFilled) { f.FillQty = model.QuantityZero(0) },
			wantErr: model.ErrInconsistentFill,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			position := openLong(t)
			sell := testkit.MarketOrder(testkit.ClOrdID(2), testkit.SecurityAUDUSD(), model.OrderSideSell, testkit.QuantityInt(50_000))
			fill := *testkit.OrderFilled(sell, inst, testkit.FillParams{PositionID: "P-1"})
			tt.mutate(&fill)

			err := position.Apply(&fill)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, "100,000", position.Quantity().Formatted())
			assert.Equal(t, 1, position.EventCount())
		})
	}
}

func TestPositionRejectsDuplicateExecutionID(t *testing.T) {
	inst := testkit.InstrumentAUDUSD()
	position := openLong(t)

	sell := testkit.MarketOrder(testkit.ClOrdID(2), testkit.SecurityAUDUSD(), model.OrderSideSell, testkit.QuantityInt(50_000))
	fill := testkit.OrderFilled(sell, inst, testkit.FillParams{PositionID: "P-1", ExecutionID: "E-1"})
	require.NoError(t, position.Apply(fill))

	replay := testkit.OrderFilled(sell, inst, testkit.FillParams{PositionID: "P-1", ExecutionID: "E-1"})
	err := position.Apply(replay)

	assert.ErrorIs(t, err, model.ErrDuplicateExecutionID)
	assert.Equal(t, 2, position.EventCount())
}

func TestPositionUnrealizedPnL(t *testing.T) {
	inst := testkit.InstrumentAUDUSD()

	t.Run("long", func(t *testing.T) {
		position := openLong(t)
		assert.Equal(t, "10.00 USD", position.UnrealizedPnL(testkit.Price("1.00010")).String())
		assert.Equal(t, "-10.00 USD", position.UnrealizedPnL(testkit.Price("0.99990")).String())
	})

	t.Run("short", func(t *testing.T) {
		sell := testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityAUDUSD(), model.OrderSideSell, testkit.QuantityInt(100_000))
		position, err := model.NewPosition(testkit.OrderFilled(sell, inst, testkit.FillParams{PositionID: "P-1"}))
		require.NoError(t, err)

		assert.Equal(t, "10.00 USD", position.UnrealizedPnL(testkit.Price("0.99990")).String())
		assert.Equal(t, "-10.00 USD", position.UnrealizedPnL(testkit.Price("1.00010")).String())
	})

	t.Run("zero mark on inverse instrument", func(t *testing.T) {
		inverse := testkit.InstrumentBTCUSDBitmex()
		buy := testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityBTCUSDBitmex(), model.OrderSideBuy, testkit.QuantityInt(100_000))
		position, err := model.NewPosition(testkit.OrderFilled(buy, inverse, testkit.FillParams{PositionID: "P-1", FillPrice: testkit.Price("50000.0")}))
		require.NoError(t, err)

		assert.Equal(t, "0.00000000 BTC", position.UnrealizedPnL(testkit.Price("0")).String())
	})
}

// A zero-price fill on an inverse position previously divided by zero
// inside the PnL calculation. It must be rejected before mutating
// state.
func TestPositionRejectsZeroPriceFill(t *testing.T) {
	inst := testkit.InstrumentBTCUSDBitmex()

	buy := testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityBTCUSDBitmex(), model.OrderSideBuy, testkit.QuantityInt(100))
	position, err := model.NewPosition(testkit.OrderFilled(buy, inst, testkit.FillParams{PositionID: "P-1", FillPrice: testkit.Price("5000.0")}))
	require.NoError(t, err)

	sell := testkit.MarketOrder(testkit.ClOrdID(2), testkit.SecurityBTCUSDBitmex(), model.OrderSideSell, testkit.QuantityInt(50))
	fill := *testkit.OrderFilled(sell, inst, testkit.FillParams{PositionID: "P-1", FillPrice: testkit.Price("5000.0")})
	fill.FillPrice = testkit.Price("0")

	require.NotPanics(t, func() {
		err = position.Apply(&fill)
	})
	assert.ErrorIs(t, err, model.ErrInconsistentFill)

	// the rejected fill must leave the position untouched
	assert.Equal(t, "100", position.SignedQty().String())
	assert.Equal(t, 1, position.EventCount())
}

func TestPositionInverseInstrument(t *testing.T) {
	inst := testkit.InstrumentBTCUSDBitmex()

	buy := testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityBTCUSDBitmex(), model.OrderSideBuy, testkit.QuantityInt(100_000))
	open := testkit.OrderFilled(buy, inst, testkit.FillParams{PositionID: "P-1", FillPrice: testkit.Price("50000.0")})

	position, err := model.NewPosition(open)
	require.NoError(t, err)

	// fills on inverse instruments settle in the base currency
	assert.Equal(t, model.BTC, position.QuoteCurrency())
	assert.True(t, position.IsInverse())
	// notional 100000/50000 = 2 BTC at taker 0.075%
	assert.Equal(t, "0.00150000 BTC", position.Commissions().String())

	// marking 10000 points lower: (1/50000 - 1/40000) * 100000
	assert.Equal(t, "-0.50000000 BTC", position.UnrealizedPnL(testkit.Price("40000.0")).String())

	sell := testkit.MarketOrder(testkit.ClOrdID(2), testkit.SecurityBTCUSDBitmex(), model.OrderSideSell, testkit.QuantityInt(100_000))
	closeFill := testkit.OrderFilled(sell, inst, testkit.FillParams{PositionID: "P-1", FillPrice: testkit.Price("40000.0")})
	require.NoError(t, position.Apply(closeFill))

	assert.False(t, position.IsOpen())
	// gross -0.5 BTC, commissions 0.0015 + 0.001875
	assert.Equal(t, "0.00337500 BTC", position.Commissions().String())
	assert.Equal(t, "-0.50337500 BTC", position.RealizedPnL().String())
}

func TestPositionMakerRebateOffsetsCommissions(t *testing.T) {
	inst := testkit.InstrumentBTCUSDBitmex()

	buy := testkit.MarketOrder(testkit.ClOrdID(1), testkit.SecurityBTCUSDBitmex(), model.OrderSideBuy, testkit.QuantityInt(100_000))
	open := testkit.OrderFilled(buy, inst, testkit.FillParams{
		PositionID:    "P-1",
		FillPrice:     testkit.Price("50000.0"),
		LiquiditySide: model.LiquiditySideMaker,
	})

	position, err := model.NewPosition(open)
	require.NoError(t, err)

	assert.Equal(t, "-0.00050000 BTC", position.Commissions().String())
	assert.Equal(t, "0.00050000 BTC", position.RealizedPnL().String())
}
