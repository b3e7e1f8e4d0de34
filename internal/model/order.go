package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meridianhq/execore/internal/fixed"
)

var (
	ErrInvalidStateTransition = errors.New("invalid order state transition")
	ErrClientOrderIDMismatch  = errors.New("client order id mismatch")
	ErrOrderIDMismatch        = errors.New("order id mismatch")
	ErrDuplicateExecutionID   = errors.New("duplicate execution id")
	ErrInconsistentFill       = errors.New("fill quantities inconsistent")
)

// EventTypeName returns the catalog name of an event, e.g. "OrderFilled".
func EventTypeName(e Event) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", e), "*model.")
}

// Order is the order aggregate. State changes only through Apply, which
// validates the whole event against the state machine before committing
// anything, so a rejected event leaves the order untouched.
type Order struct {
	clOrdID     ClientOrderID
	orderID     OrderID
	accountID   AccountID
	strategyID  StrategyID
	security    *Security
	side        OrderSide
	orderType   OrderType
	quantity    Quantity
	price       Price
	hasPrice    bool
	timeInForce TimeInForce

	state        OrderState
	filledQty    Quantity
	leavesQty    Quantity
	avgPrice     fixed.Decimal
	positionID   PositionID
	executionIDs []ExecutionID
	events       []OrderEvent
	initTime     time.Time
}

// NewOrder creates an order aggregate in state INITIALIZED from its
// initialization event. A limit price, when present, travels in the
// event options under "Price".
func NewOrder(init *OrderInitialized) (*Order, error) {
	o := &Order{
		clOrdID:     init.ClOrdID,
		strategyID:  init.StrategyID,
		security:    init.Security,
		side:        init.Side,
		orderType:   init.OrderType,
		quantity:    init.Quantity,
		timeInForce: init.TimeInForce,
		state:       OrderStateInitialized,
		filledQty:   QuantityZero(init.Quantity.Precision()),
		leavesQty:   init.Quantity,
		initTime:    init.Timestamp,
		events:      []OrderEvent{init},
	}
	if raw, ok := init.Options["Price"]; ok {
		price, err := PriceFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("order %s: price option: %w", init.ClOrdID, err)
		}
		o.price = price
		o.hasPrice = true
	}
	return o, nil
}

func (o *Order) ClOrdID() ClientOrderID   { return o.clOrdID }
func (o *Order) OrderID() OrderID         { return o.orderID }
func (o *Order) AccountID() AccountID     { return o.accountID }
func (o *Order) StrategyID() StrategyID   { return o.strategyID }
func (o *Order) Security() *Security      { return o.security }
func (o *Order) Side() OrderSide          { return o.side }
func (o *Order) Type() OrderType          { return o.orderType }
func (o *Order) Quantity() Quantity       { return o.quantity }
func (o *Order) TimeInForce() TimeInForce { return o.timeInForce }
func (o *Order) State() OrderState        { return o.state }
func (o *Order) FilledQty() Quantity      { return o.filledQty }
func (o *Order) LeavesQty() Quantity      { return o.leavesQty }
func (o *Order) AvgPrice() fixed.Decimal  { return o.avgPrice }
func (o *Order) PositionID() PositionID   { return o.positionID }
func (o *Order) InitTime() time.Time      { return o.initTime }
func (o *Order) IsWorking() bool          { return o.state.IsWorking() }
func (o *Order) IsCompleted() bool        { return o.state.IsTerminal() }

// Price returns the working price and whether one is set.
func (o *Order) Price() (Price, bool) { return o.price, o.hasPrice }

// ExecutionIDs returns a copy of the fill execution ids in order.
func (o *Order) ExecutionIDs() []ExecutionID {
	out := make([]ExecutionID, len(o.executionIDs))
	copy(out, o.executionIDs)
	return out
}

// Events returns a copy of the applied event history.
func (o *Order) Events() []OrderEvent {
	out := make([]OrderEvent, len(o.events))
	copy(out, o.events)
	return out
}

// LastEvent returns the most recently applied event.
func (o *Order) LastEvent() OrderEvent { return o.events[len(o.events)-1] }

func (o *Order) EventCount() int { return len(o.events) }

func (o *Order) String() string {
	return fmt.Sprintf("Order(%s %s %s, state=%s, cl_ord_id=%s)",
		o.side, o.quantity.Formatted(), o.security, o.state, o.clOrdID)
}

// Apply advances the state machine. The event is validated in full
// first; on any error the aggregate is unchanged and the error carries
// the aggregate id, current state, event type and event id.
func (o *Order) Apply(event OrderEvent) error {
	if event.ClientOrderID() != o.clOrdID {
		return fmt.Errorf("%w: order %s received %s for %s (event_id=%s)",
			ErrClientOrderIDMismatch, o.clOrdID, EventTypeName(event), event.ClientOrderID(), event.EventID())
	}

	switch ev := event.(type) {
	case *OrderInvalid:
		if o.state != OrderStateInitialized {
			return o.transitionError(event)
		}
		o.state = OrderStateInvalid

	case *OrderDenied:
		if o.state != OrderStateInitialized {
			return o.transitionError(event)
		}
		o.state = OrderStateDenied

	case *OrderSubmitted:
		if o.state != OrderStateInitialized {
			return o.transitionError(event)
		}
		o.state = OrderStateSubmitted
		o.accountID = ev.AccountID

	case *OrderRejected:
		if o.state != OrderStateSubmitted {
			return o.transitionError(event)
		}
		o.state = OrderStateRejected

	case *OrderAccepted:
		if o.state != OrderStateSubmitted {
			return o.transitionError(event)
		}
		if ev.OrderID.IsZero() {
			return fmt.Errorf("%w: order %s accepted without venue order id (event_id=%s)",
				ErrOrderIDMismatch, o.clOrdID, ev.ID)
		}
		o.state = OrderStateAccepted
		o.orderID = ev.OrderID

	case *OrderCancelReject:
		// a refused cancel/amend leaves the order state untouched
		if !o.state.IsWorking() {
			return o.transitionError(event)
		}
		if err := o.checkOrderID(ev.OrderID, event); err != nil {
			return err
		}

	case *OrderCancelled:
		if !o.state.IsWorking() {
			return o.transitionError(event)
		}
		if err := o.checkOrderID(ev.OrderID, event); err != nil {
			return err
		}
		o.state = OrderStateCancelled

	case *OrderExpired:
		if !o.state.IsWorking() {
			return o.transitionError(event)
		}
		if err := o.checkOrderID(ev.OrderID, event); err != nil {
			return err
		}
		o.state = OrderStateExpired

	case *OrderTriggered:
		if o.state != OrderStateAccepted {
			return o.transitionError(event)
		}
		if err := o.checkOrderID(ev.OrderID, event); err != nil {
			return err
		}
		o.state = OrderStateTriggered

	case *OrderAmended:
		if o.state != OrderStateAccepted && o.state != OrderStateTriggered {
			return o.transitionError(event)
		}
		if err := o.checkOrderID(ev.OrderID, event); err != nil {
			return err
		}
		if ev.Quantity.LessThan(o.filledQty.Decimal) || ev.Quantity.IsZero() {
			return fmt.Errorf("%w: order %s amended to qty %s below filled %s (event_id=%s)",
				ErrInconsistentFill, o.clOrdID, ev.Quantity, o.filledQty, ev.ID)
		}
		o.quantity = ev.Quantity
		o.price = ev.Price
		o.hasPrice = true
		o.leavesQty = Quantity{ev.Quantity.Sub(o.filledQty.Decimal)}

	case *OrderFilled:
		if err := o.validateFill(ev); err != nil {
			return err
		}
		o.applyFill(ev)

	default:
		return o.transitionError(event)
	}

	o.events = append(o.events, event)
	return nil
}

func (o *Order) validateFill(ev *OrderFilled) error {
	if !o.state.IsWorking() {
		return o.transitionError(ev)
	}
	if err := o.checkOrderID(ev.OrderID, ev); err != nil {
		return err
	}
	if !ev.Security.Equal(o.security) {
		return fmt.Errorf("%w: order %s fill for %s, order is %s (event_id=%s)",
			ErrInconsistentFill, o.clOrdID, ev.Security, o.security, ev.ID)
	}
	if ev.Side != o.side {
		return fmt.Errorf("%w: order %s fill side %s, order side %s (event_id=%s)",
			ErrInconsistentFill, o.clOrdID, ev.Side, o.side, ev.ID)
	}
	if ev.ExecutionID.IsZero() {
		return fmt.Errorf("%w: order %s fill without execution id (event_id=%s)",
			ErrInconsistentFill, o.clOrdID, ev.ID)
	}
	for _, id := range o.executionIDs {
		if id == ev.ExecutionID {
			return fmt.Errorf("%w: order %s execution %s (event_id=%s)",
				ErrDuplicateExecutionID, o.clOrdID, ev.ExecutionID, ev.ID)
		}
	}
	if !ev.FillQty.IsPositive() {
		return fmt.Errorf("%w: order %s fill qty %s (event_id=%s)",
			ErrInconsistentFill, o.clOrdID, ev.FillQty, ev.ID)
	}
	// the venue's cum/leaves statement must agree with local progress
	if expected := o.filledQty.Add(ev.FillQty.Decimal); !ev.CumQty.Equal(expected) {
		return fmt.Errorf("%w: order %s cum_qty %s, expected %s (event_id=%s)",
			ErrInconsistentFill, o.clOrdID, ev.CumQty, expected, ev.ID)
	}
	if total := ev.CumQty.Add(ev.LeavesQty.Decimal); !total.Equal(o.quantity.Decimal) {
		return fmt.Errorf("%w: order %s cum_qty %s + leaves_qty %s != qty %s (event_id=%s)",
			ErrInconsistentFill, o.clOrdID, ev.CumQty, ev.LeavesQty, o.quantity, ev.ID)
	}
	if !o.positionID.IsZero() && !ev.PosID.IsZero() && ev.PosID != o.positionID {
		return fmt.Errorf("%w: order %s position id %s changed to %s (event_id=%s)",
			ErrInconsistentFill, o.clOrdID, o.positionID, ev.PosID, ev.ID)
	}
	return nil
}

func (o *Order) applyFill(ev *OrderFilled) {
	prevFilled := o.filledQty.Decimal
	o.filledQty = ev.CumQty
	o.leavesQty = ev.LeavesQty

	// volume-weighted average fill price over all fills
	if prevFilled.IsZero() {
		o.avgPrice = ev.FillPrice.Decimal
	} else {
		notional := o.avgPrice.Mul(prevFilled).Add(ev.FillPrice.Mul(ev.FillQty.Decimal))
		o.avgPrice = notional.Div(ev.CumQty.Decimal)
	}

	if o.positionID.IsZero() {
		o.positionID = ev.PosID
	}
	o.executionIDs = append(o.executionIDs, ev.ExecutionID)

	if ev.LeavesQty.IsZero() {
		o.state = OrderStateFilled
	} else {
		o.state = OrderStatePartiallyFilled
	}
}

func (o *Order) checkOrderID(id OrderID, event OrderEvent) error {
	if o.orderID.IsZero() || id.IsZero() || id == o.orderID {
		return nil
	}
	return fmt.Errorf("%w: order %s has venue id %s, event carries %s (event_id=%s)",
		ErrOrderIDMismatch, o.clOrdID, o.orderID, id, event.EventID())
}

func (o *Order) transitionError(event OrderEvent) error {
	return fmt.Errorf("%w: order %s in state %s cannot apply %s (event_id=%s)",
		ErrInvalidStateTransition, o.clOrdID, o.state, EventTypeName(event), event.EventID())
}
