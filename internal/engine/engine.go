// Package engine drives the execution state: it routes catalog events
// to order and position aggregates, enforces the fill two-step (order
// commits first, then the position), derives position lifecycle events
// and hands them to an injected publisher. One goroutine processes
// events at a time per the single-writer delivery contract; concurrent
// readers go through the snapshot queries.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/meridianhq/execore/internal/model"
)

var (
	ErrDuplicateClOrdID  = errors.New("duplicate client order id")
	ErrUnknownOrder      = errors.New("unknown client order id")
	ErrMissingPositionID = errors.New("fill missing position id")
	ErrPositionIDReuse   = errors.New("closed position id reused")
	ErrNettingIDConflict = errors.New("conflicting netting position id")
	ErrUnhandledEvent    = errors.New("unhandled event type")
	// ErrPublish reports a downstream publish failure after the state
	// change already committed. Callers must not re-process the event.
	ErrPublish = errors.New("publish position event")
)

// Publisher receives derived position events in commit order.
type Publisher interface {
	PublishPositionEvent(ctx context.Context, event model.PositionEvent) error
}

// Engine is the execution reducer. All aggregate mutation happens in
// Process; queries only ever see committed state.
type Engine struct {
	mu        sync.RWMutex
	omsType   model.OMSType
	clock     model.Clock
	newID     func() uuid.UUID
	publisher Publisher

	accounts  map[model.AccountID]*model.AccountState
	orders    map[model.ClientOrderID]*model.Order
	positions map[model.PositionID]*model.Position
	// netting assigns one position id per security and strategy
	netting map[string]model.PositionID

	processed atomic.Uint64
	failed    atomic.Uint64
}

// New builds an engine with the given position identity policy.
func New(omsType model.OMSType, clock model.Clock, newID func() uuid.UUID, publisher Publisher) *Engine {
	return &Engine{
		omsType:   omsType,
		clock:     clock,
		newID:     newID,
		publisher: publisher,
		accounts:  make(map[model.AccountID]*model.AccountState),
		orders:    make(map[model.ClientOrderID]*model.Order),
		positions: make(map[model.PositionID]*model.Position),
		netting:   make(map[string]model.PositionID),
	}
}

// Process applies one event. The event is either committed in full or
// the state is left untouched, except for the fill two-step: the order
// commit stands even when the position step fails, and that failure is
// returned. Derived position events are published after commit; a
// publish failure is reported as ErrPublish.
func (e *Engine) Process(ctx context.Context, event model.Event) error {
	derived, err := e.apply(event)
	if err != nil {
		e.failed.Add(1)
		return err
	}
	e.processed.Add(1)

	for _, positionEvent := range derived {
		if err := e.publisher.PublishPositionEvent(ctx, positionEvent); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrPublish, model.EventTypeName(positionEvent), err)
		}
	}
	return nil
}

func (e *Engine) apply(event model.Event) ([]model.PositionEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch ev := event.(type) {
	case *model.AccountState:
		e.accounts[ev.AccountID] = ev
		return nil, nil

	case *model.OrderInitialized:
		if _, ok := e.orders[ev.ClOrdID]; ok {
			return nil, fmt.Errorf("%w: %s (event_id=%s)", ErrDuplicateClOrdID, ev.ClOrdID, ev.ID)
		}
		order, err := model.NewOrder(ev)
		if err != nil {
			return nil, err
		}
		e.orders[ev.ClOrdID] = order
		return nil, nil

	case *model.OrderFilled:
		return e.applyFill(ev)

	case model.OrderEvent:
		order, ok := e.orders[ev.ClientOrderID()]
		if !ok {
			return nil, fmt.Errorf("%w: %s received %s (event_id=%s)",
				ErrUnknownOrder, ev.ClientOrderID(), model.EventTypeName(ev), ev.EventID())
		}
		return nil, order.Apply(ev)

	case model.PositionEvent:
		// derived events replayed from a journal carry no new state
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: %s (event_id=%s)", ErrUnhandledEvent, model.EventTypeName(event), event.EventID())
	}
}

// applyFill runs the two-step commit: position id resolution, order
// commit, then the position step with its derived events.
func (e *Engine) applyFill(fill *model.OrderFilled) ([]model.PositionEvent, error) {
	order, ok := e.orders[fill.ClOrdID]
	if !ok {
		return nil, fmt.Errorf("%w: %s received OrderFilled (event_id=%s)", ErrUnknownOrder, fill.ClOrdID, fill.ID)
	}

	if err := e.resolvePositionID(fill, order); err != nil {
		return nil, err
	}
	if err := order.Apply(fill); err != nil {
		return nil, err
	}
	return e.applyPositionFill(fill)
}

// resolvePositionID stamps the fill with its position identity before
// anything commits. Under HEDGING the venue must have assigned one;
// under NETTING an unassigned fill continues the order's position,
// then the strategy's position for the security, and otherwise mints
// the canonical netting id. A venue-assigned id may claim an
// unclaimed netting slot, but once claimed the slot is exclusive so a
// security+strategy pair never nets across two aggregates.
func (e *Engine) resolvePositionID(fill *model.OrderFilled, order *model.Order) error {
	if e.omsType == model.OMSTypeHedging {
		if fill.PosID.IsZero() {
			return fmt.Errorf("%w: %s execution %s (event_id=%s)",
				ErrMissingPositionID, fill.ClOrdID, fill.ExecutionID, fill.ID)
		}
		return nil
	}

	key := nettingKey(fill.Security, fill.StrategyID)
	if !fill.PosID.IsZero() {
		claimed, ok := e.netting[key]
		if !ok {
			e.netting[key] = fill.PosID
			return nil
		}
		if claimed != fill.PosID {
			return fmt.Errorf("%w: %s %s nets under %s, fill carries %s (event_id=%s)",
				ErrNettingIDConflict, fill.Security, fill.StrategyID, claimed, fill.PosID, fill.ID)
		}
		return nil
	}
	if id := order.PositionID(); !id.IsZero() {
		fill.PosID = id
		return nil
	}
	id, ok := e.netting[key]
	if !ok {
		id = nettingPositionID(fill.Security, fill.StrategyID)
		e.netting[key] = id
	}
	fill.PosID = id
	return nil
}

func (e *Engine) applyPositionFill(fill *model.OrderFilled) ([]model.PositionEvent, error) {
	position, ok := e.positions[fill.PosID]
	if !ok {
		opened, err := model.NewPosition(fill)
		if err != nil {
			return nil, err
		}
		e.positions[fill.PosID] = opened
		return []model.PositionEvent{e.positionOpened(opened, fill)}, nil
	}

	if !position.IsOpen() && e.omsType == model.OMSTypeHedging {
		return nil, fmt.Errorf("%w: %s (event_id=%s)", ErrPositionIDReuse, fill.PosID, fill.ID)
	}

	if e.omsType == model.OMSTypeNetting && crossesFlat(position, fill) {
		return e.flipPosition(position, fill)
	}

	wasOpen := position.IsOpen()
	if err := position.Apply(fill); err != nil {
		return nil, err
	}

	switch {
	case !wasOpen:
		return []model.PositionEvent{e.positionOpened(position, fill)}, nil
	case position.IsOpen():
		return []model.PositionEvent{e.positionChanged(position, fill)}, nil
	default:
		return []model.PositionEvent{e.positionClosed(position, fill)}, nil
	}
}

// flipPosition splits a sign-crossing fill into a closing portion and a
// reopening portion against the same netting aggregate. The commission
// is prorated by quantity, the remainder going to the reopening portion
// so the two always sum to the original. The reopening portion carries
// an F-suffixed execution id to keep execution ids unique within the
// aggregate, and the close is always emitted before the open.
func (e *Engine) flipPosition(position *model.Position, fill *model.OrderFilled) ([]model.PositionEvent, error) {
	closeQty := position.Quantity()
	openQty, err := model.NewQuantity(fill.FillQty.Sub(closeQty.Decimal))
	if err != nil {
		return nil, err
	}

	closeCommission := model.NewMoney(
		fill.Commission.Amount().Mul(closeQty.Decimal).Div(fill.FillQty.Decimal),
		fill.Currency,
	)
	openCommission := model.NewMoney(
		fill.Commission.Amount().Sub(closeCommission.Amount()),
		fill.Currency,
	)

	closeFill := *fill
	closeFill.FillQty = closeQty
	closeFill.Commission = closeCommission

	openFill := *fill
	openFill.ID = e.newID()
	openFill.ExecutionID = fill.ExecutionID + "F"
	openFill.FillQty = openQty
	openFill.Commission = openCommission

	if err := position.Apply(&closeFill); err != nil {
		return nil, err
	}
	events := []model.PositionEvent{e.positionClosed(position, &closeFill)}

	if err := position.Apply(&openFill); err != nil {
		return events, err
	}
	return append(events, e.positionOpened(position, &openFill)), nil
}

func crossesFlat(position *model.Position, fill *model.OrderFilled) bool {
	if !position.IsOpen() {
		return false
	}
	reducing := (position.IsLong() && fill.Side == model.OrderSideSell) ||
		(position.IsShort() && fill.Side == model.OrderSideBuy)
	return reducing && fill.FillQty.GreaterThan(position.Quantity().Decimal)
}

func (e *Engine) positionOpened(position *model.Position, fill *model.OrderFilled) *model.PositionOpened {
	return model.NewPositionOpened(position.Snapshot(), fill, e.newID(), e.clock.Now())
}

func (e *Engine) positionChanged(position *model.Position, fill *model.OrderFilled) *model.PositionChanged {
	return model.NewPositionChanged(position.Snapshot(), fill, e.newID(), e.clock.Now())
}

func (e *Engine) positionClosed(position *model.Position, fill *model.OrderFilled) *model.PositionClosed {
	return model.NewPositionClosed(position.Snapshot(), fill, e.newID(), e.clock.Now())
}

func nettingKey(security *model.Security, strategyID model.StrategyID) string {
	return security.SerializableString() + "|" + strategyID.String()
}

func nettingPositionID(security *model.Security, strategyID model.StrategyID) model.PositionID {
	return model.PositionID(fmt.Sprintf("P-%s-%s", security, strategyID))
}
