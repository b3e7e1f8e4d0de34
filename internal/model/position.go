package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/meridianhq/execore/internal/fixed"
)

// ErrPositionFlip is returned when a single fill would take net
// quantity through zero. The execution engine splits such fills into a
// closing and a reopening portion before they reach the aggregate.
var ErrPositionFlip = errors.New("fill crosses flat")

// Position nets fills for one security under one strategy. Buys add to
// net quantity, sells subtract. The average entry price is
// volume-weighted over the open-increasing portion only: reducing
// fills realize PnL against it and leave it unchanged.
type Position struct {
	id            PositionID
	accountID     AccountID
	fromOrder     ClientOrderID
	strategyID    StrategyID
	security      *Security
	entrySide     OrderSide
	side          PositionSide
	netQty        fixed.Decimal
	quantity      Quantity
	peakQty       Quantity
	avgOpenPrice  fixed.Decimal
	realizedGross fixed.Decimal
	commissions   Money
	quoteCurrency Currency
	isInverse     bool
	openedTime    time.Time
	closedTime    time.Time
	executionIDs  []ExecutionID
	events        []*OrderFilled
}

// NewPosition opens a position from its first fill.
func NewPosition(fill *OrderFilled) (*Position, error) {
	if fill.PosID.IsZero() {
		return nil, fmt.Errorf("%w: fill %s has no position id (event_id=%s)",
			ErrInconsistentFill, fill.ExecutionID, fill.ID)
	}
	if !fill.FillQty.IsPositive() {
		return nil, fmt.Errorf("%w: fill qty %s (event_id=%s)",
			ErrInconsistentFill, fill.FillQty, fill.ID)
	}
	if !fill.FillPrice.IsPositive() {
		return nil, fmt.Errorf("%w: fill price %s (event_id=%s)",
			ErrInconsistentFill, fill.FillPrice, fill.ID)
	}
	if c := fill.Commission.Currency(); !c.IsZero() && c != fill.Currency {
		return nil, fmt.Errorf("%w: fill settles in %s, commission in %s (event_id=%s)",
			ErrCurrencyMismatch, fill.Currency, c, fill.ID)
	}
	p := &Position{
		id:            fill.PosID,
		accountID:     fill.AccountID,
		fromOrder:     fill.ClOrdID,
		strategyID:    fill.StrategyID,
		security:      fill.Security,
		quoteCurrency: fill.Currency,
		isInverse:     fill.IsInverse,
		commissions:   NewMoney(fixed.Zero, fill.Currency),
	}
	p.open(fill)
	p.record(fill)
	return p, nil
}

func (p *Position) ID() PositionID              { return p.id }
func (p *Position) AccountID() AccountID        { return p.accountID }
func (p *Position) FromOrder() ClientOrderID    { return p.fromOrder }
func (p *Position) StrategyID() StrategyID      { return p.strategyID }
func (p *Position) Security() *Security         { return p.security }
func (p *Position) EntrySide() OrderSide        { return p.entrySide }
func (p *Position) Side() PositionSide          { return p.side }
func (p *Position) SignedQty() fixed.Decimal    { return p.netQty }
func (p *Position) Quantity() Quantity          { return p.quantity }
func (p *Position) PeakQty() Quantity           { return p.peakQty }
func (p *Position) AvgOpenPrice() fixed.Decimal { return p.avgOpenPrice }
func (p *Position) QuoteCurrency() Currency     { return p.quoteCurrency }
func (p *Position) IsInverse() bool             { return p.isInverse }
func (p *Position) OpenedTime() time.Time       { return p.openedTime }
func (p *Position) ClosedTime() time.Time       { return p.closedTime }
func (p *Position) IsOpen() bool                { return p.side != PositionSideFlat }
func (p *Position) IsLong() bool                { return p.side == PositionSideLong }
func (p *Position) IsShort() bool               { return p.side == PositionSideShort }
func (p *Position) Commissions() Money          { return p.commissions }

// RealizedPnL is the realized gross PnL net of all commissions paid.
func (p *Position) RealizedPnL() Money {
	return NewMoney(p.realizedGross.Sub(p.commissions.Amount()), p.quoteCurrency)
}

// UnrealizedPnL marks the open exposure against the given price. A
// non-positive mark yields zero rather than an inverse-contract
// division by zero.
func (p *Position) UnrealizedPnL(last Price) Money {
	if !p.IsOpen() || !last.IsPositive() {
		return NewMoney(fixed.Zero, p.quoteCurrency)
	}
	return NewMoney(p.pnl(p.avgOpenPrice, last.Decimal, p.quantity.Decimal), p.quoteCurrency)
}

// ExecutionIDs returns a copy of the contributing execution ids.
func (p *Position) ExecutionIDs() []ExecutionID {
	out := make([]ExecutionID, len(p.executionIDs))
	copy(out, p.executionIDs)
	return out
}

// Events returns a copy of the contributing fills in arrival order.
func (p *Position) Events() []*OrderFilled {
	out := make([]*OrderFilled, len(p.events))
	copy(out, p.events)
	return out
}

// LastFill returns the most recent contributing fill.
func (p *Position) LastFill() *OrderFilled { return p.events[len(p.events)-1] }

func (p *Position) EventCount() int { return len(p.events) }

func (p *Position) String() string { return p.Snapshot().StatusString() }

// Apply nets a fill into the position. The fill is validated in full
// before any state changes; sign-crossing fills are rejected with
// ErrPositionFlip.
func (p *Position) Apply(fill *OrderFilled) error {
	if err := p.validate(fill); err != nil {
		return err
	}

	signed := signedQty(fill)
	newNet := p.netQty.Add(signed)

	switch {
	case p.netQty.IsZero():
		// reopening a flat position under id reuse
		p.open(fill)

	case p.netQty.Sign() == signed.Sign():
		// increasing exposure: fold the fill into the entry VWAP
		prevAbs := p.netQty.Abs()
		newAbs := newNet.Abs()
		notional := p.avgOpenPrice.Mul(prevAbs).Add(fill.FillPrice.Mul(fill.FillQty.Decimal))
		p.avgOpenPrice = notional.Div(newAbs)
		p.setExposure(newNet)

	default:
		// reducing exposure: realize against the entry price
		p.realizedGross = p.realizedGross.Add(p.pnl(p.avgOpenPrice, fill.FillPrice.Decimal, fill.FillQty.Decimal))
		p.setExposure(newNet)
		if newNet.IsZero() {
			p.side = PositionSideFlat
			p.closedTime = fill.ExecutionTime
		}
	}

	p.record(fill)
	return nil
}

func (p *Position) validate(fill *OrderFilled) error {
	if !fill.PosID.IsZero() && fill.PosID != p.id {
		return fmt.Errorf("%w: position %s received fill for %s (event_id=%s)",
			ErrInconsistentFill, p.id, fill.PosID, fill.ID)
	}
	if !fill.Security.Equal(p.security) {
		return fmt.Errorf("%w: position %s is %s, fill is %s (event_id=%s)",
			ErrInconsistentFill, p.id, p.security, fill.Security, fill.ID)
	}
	if fill.StrategyID != p.strategyID {
		return fmt.Errorf("%w: position %s belongs to %s, fill to %s (event_id=%s)",
			ErrInconsistentFill, p.id, p.strategyID, fill.StrategyID, fill.ID)
	}
	if fill.Currency != p.quoteCurrency {
		return fmt.Errorf("%w: position %s settles in %s, fill in %s (event_id=%s)",
			ErrCurrencyMismatch, p.id, p.quoteCurrency, fill.Currency, fill.ID)
	}
	if c := fill.Commission.Currency(); !c.IsZero() && c != p.quoteCurrency {
		return fmt.Errorf("%w: position %s settles in %s, commission in %s (event_id=%s)",
			ErrCurrencyMismatch, p.id, p.quoteCurrency, c, fill.ID)
	}
	if !fill.FillQty.IsPositive() {
		return fmt.Errorf("%w: fill qty %s (event_id=%s)", ErrInconsistentFill, fill.FillQty, fill.ID)
	}
	if !fill.FillPrice.IsPositive() {
		return fmt.Errorf("%w: fill price %s (event_id=%s)", ErrInconsistentFill, fill.FillPrice, fill.ID)
	}
	for _, id := range p.executionIDs {
		if id == fill.ExecutionID {
			return fmt.Errorf("%w: position %s execution %s (event_id=%s)",
				ErrDuplicateExecutionID, p.id, fill.ExecutionID, fill.ID)
		}
	}
	newNet := p.netQty.Add(signedQty(fill))
	if !p.netQty.IsZero() && !newNet.IsZero() && p.netQty.Sign() != newNet.Sign() {
		return fmt.Errorf("%w: position %s net %s cannot absorb %s %s (event_id=%s)",
			ErrPositionFlip, p.id, p.netQty, fill.Side, fill.FillQty, fill.ID)
	}
	return nil
}

// open (re)establishes exposure from flat.
func (p *Position) open(fill *OrderFilled) {
	signed := signedQty(fill)
	p.entrySide = fill.Side
	p.avgOpenPrice = fill.FillPrice.Decimal
	p.openedTime = fill.ExecutionTime
	p.closedTime = time.Time{}
	p.peakQty = QuantityZero(fill.FillQty.Precision())
	p.setExposure(signed)
}

func (p *Position) setExposure(newNet fixed.Decimal) {
	p.netQty = newNet
	abs := newNet.Abs()
	p.quantity = Quantity{abs}
	if abs.GreaterThan(p.peakQty.Decimal) {
		p.peakQty = Quantity{abs}
	}
	switch newNet.Sign() {
	case 1:
		p.side = PositionSideLong
	case -1:
		p.side = PositionSideShort
	default:
		p.side = PositionSideFlat
	}
}

func (p *Position) record(fill *OrderFilled) {
	p.executionIDs = append(p.executionIDs, fill.ExecutionID)
	p.events = append(p.events, fill)
	p.commissions = NewMoney(p.commissions.Amount().Add(fill.Commission.Amount()), p.quoteCurrency)
}

// pnl computes the gross PnL for closing qty at price against entry.
// Callers only invoke it while net quantity is non-zero, so direction
// follows the current net sign.
func (p *Position) pnl(entry, price, qty fixed.Decimal) fixed.Decimal {
	dir := fixed.FromInt(1)
	if p.netQty.Sign() < 0 {
		dir = fixed.FromInt(-1)
	}
	if p.isInverse {
		one := fixed.FromInt(1)
		return one.Div(entry).Sub(one.Div(price)).Mul(dir).Mul(qty)
	}
	return price.Sub(entry).Mul(dir).Mul(qty)
}

func signedQty(fill *OrderFilled) fixed.Decimal {
	if fill.Side == OrderSideSell {
		return fill.FillQty.Neg()
	}
	return fill.FillQty.Decimal
}

// PositionSnapshot is a point-in-time copy of position state carried by
// position lifecycle events.
type PositionSnapshot struct {
	PositionID    PositionID    `json:"position_id"`
	AccountID     AccountID     `json:"account_id"`
	FromOrder     ClientOrderID `json:"from_order"`
	StrategyID    StrategyID    `json:"strategy_id"`
	Security      *Security     `json:"security"`
	EntrySide     OrderSide     `json:"entry_side"`
	Side          PositionSide  `json:"side"`
	NetQty        fixed.Decimal `json:"net_qty"`
	Quantity      Quantity      `json:"quantity"`
	PeakQty       Quantity      `json:"peak_qty"`
	AvgOpenPrice  fixed.Decimal `json:"avg_open_price"`
	RealizedPnL   Money         `json:"realized_pnl"`
	Commissions   Money         `json:"commissions"`
	QuoteCurrency Currency      `json:"quote_currency"`
	IsInverse     bool          `json:"is_inverse"`
	IsOpen        bool          `json:"is_open"`
	OpenedTime    time.Time     `json:"opened_time"`
	ClosedTime    time.Time     `json:"closed_time"`
}

// Snapshot copies the position's current state.
func (p *Position) Snapshot() PositionSnapshot {
	return PositionSnapshot{
		PositionID:    p.id,
		AccountID:     p.accountID,
		FromOrder:     p.fromOrder,
		StrategyID:    p.strategyID,
		Security:      p.security,
		EntrySide:     p.entrySide,
		Side:          p.side,
		NetQty:        p.netQty,
		Quantity:      p.quantity,
		PeakQty:       p.peakQty,
		AvgOpenPrice:  p.avgOpenPrice,
		RealizedPnL:   p.RealizedPnL(),
		Commissions:   p.commissions,
		QuoteCurrency: p.quoteCurrency,
		IsInverse:     p.isInverse,
		IsOpen:        p.IsOpen(),
		OpenedTime:    p.openedTime,
		ClosedTime:    p.closedTime,
	}
}

// StatusString renders the human-readable exposure, e.g.
// "LONG 100,000 AUD/USD.SIM" or "FLAT AUD/USD.SIM".
func (s PositionSnapshot) StatusString() string {
	if s.Side == PositionSideFlat {
		return fmt.Sprintf("%s %s", s.Side, s.Security)
	}
	return fmt.Sprintf("%s %s %s", s.Side, s.Quantity.Formatted(), s.Security)
}
