package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is any immutable record in the catalog. Events carry their own
// identity and UTC occurrence time and are never mutated after
// construction.
type Event interface {
	EventID() uuid.UUID
	EventTimestamp() time.Time
	fmt.Stringer
}

// OrderEvent is an event addressed to a single order aggregate.
type OrderEvent interface {
	Event
	ClientOrderID() ClientOrderID
	isOrderEvent()
}

// PositionEvent is a derived position lifecycle event.
type PositionEvent interface {
	Event
	PositionID() PositionID
	Snapshot() PositionSnapshot
	isPositionEvent()
}

// BaseEvent carries the identity fields shared by every event.
type BaseEvent struct {
	ID        uuid.UUID `json:"event_id"`
	Timestamp time.Time `json:"event_timestamp"`
}

func newBaseEvent(eventID uuid.UUID, eventTimestamp time.Time) BaseEvent {
	return BaseEvent{ID: eventID, Timestamp: eventTimestamp.UTC()}
}

func (e BaseEvent) EventID() uuid.UUID        { return e.ID }
func (e BaseEvent) EventTimestamp() time.Time { return e.Timestamp }

// AccountState reports an account's balances as stated by the venue.
type AccountState struct {
	BaseEvent
	AccountID      AccountID         `json:"account_id"`
	Balances       []Money           `json:"balances"`
	BalancesFree   []Money           `json:"balances_free"`
	BalancesLocked []Money           `json:"balances_locked"`
	Info           map[string]string `json:"info,omitempty"`
}

func NewAccountState(
	accountID AccountID,
	balances, balancesFree, balancesLocked []Money,
	info map[string]string,
	eventID uuid.UUID,
	eventTimestamp time.Time,
) *AccountState {
	return &AccountState{
		BaseEvent:      newBaseEvent(eventID, eventTimestamp),
		AccountID:      accountID,
		Balances:       balances,
		BalancesFree:   balancesFree,
		BalancesLocked: balancesLocked,
		Info:           info,
	}
}

func (e *AccountState) String() string {
	return fmt.Sprintf("AccountState(account_id=%s, free=[%s], locked=[%s], event_id=%s)",
		e.AccountID, joinMoney(e.BalancesFree), joinMoney(e.BalancesLocked), e.ID)
}

func joinMoney(balances []Money) string {
	parts := make([]string, len(balances))
	for i, b := range balances {
		parts[i] = b.String()
	}
	return strings.Join(parts, ", ")
}

// OrderInitialized records the intent to create an order. Type-specific
// parameters such as a limit price travel in Options.
type OrderInitialized struct {
	BaseEvent
	ClOrdID     ClientOrderID     `json:"cl_ord_id"`
	StrategyID  StrategyID        `json:"strategy_id"`
	Security    *Security         `json:"security"`
	Side        OrderSide         `json:"order_side"`
	OrderType   OrderType         `json:"order_type"`
	Quantity    Quantity          `json:"quantity"`
	TimeInForce TimeInForce       `json:"time_in_force"`
	Options     map[string]string `json:"options,omitempty"`
}

func NewOrderInitialized(
	clOrdID ClientOrderID,
	strategyID StrategyID,
	security *Security,
	side OrderSide,
	orderType OrderType,
	quantity Quantity,
	timeInForce TimeInForce,
	options map[string]string,
	eventID uuid.UUID,
	eventTimestamp time.Time,
) *OrderInitialized {
	return &OrderInitialized{
		BaseEvent:   newBaseEvent(eventID, eventTimestamp),
		ClOrdID:     clOrdID,
		StrategyID:  strategyID,
		Security:    security,
		Side:        side,
		OrderType:   orderType,
		Quantity:    quantity,
		TimeInForce: timeInForce,
		Options:     options,
	}
}

func (e *OrderInitialized) ClientOrderID() ClientOrderID { return e.ClOrdID }
func (*OrderInitialized) isOrderEvent()                  {}

func (e *OrderInitialized) String() string {
	return fmt.Sprintf("OrderInitialized(cl_ord_id=%s, strategy_id=%s, event_id=%s)",
		e.ClOrdID, e.StrategyID, e.ID)
}

// OrderInvalid records rejection by local validation.
type OrderInvalid struct {
	BaseEvent
	ClOrdID ClientOrderID `json:"cl_ord_id"`
	Reason  string        `json:"reason"`
}

func NewOrderInvalid(clOrdID ClientOrderID, reason string, eventID uuid.UUID, eventTimestamp time.Time) *OrderInvalid {
	return &OrderInvalid{
		BaseEvent: newBaseEvent(eventID, eventTimestamp),
		ClOrdID:   clOrdID,
		Reason:    reason,
	}
}

func (e *OrderInvalid) ClientOrderID() ClientOrderID { return e.ClOrdID }
func (*OrderInvalid) isOrderEvent()                  {}

func (e *OrderInvalid) String() string {
	return fmt.Sprintf("OrderInvalid(cl_ord_id=%s, reason='%s', event_id=%s)", e.ClOrdID, e.Reason, e.ID)
}

// OrderDenied records denial by risk controls.
type OrderDenied struct {
	BaseEvent
	ClOrdID ClientOrderID `json:"cl_ord_id"`
	Reason  string        `json:"reason"`
}

func NewOrderDenied(clOrdID ClientOrderID, reason string, eventID uuid.UUID, eventTimestamp time.Time) *OrderDenied {
	return &OrderDenied{
		BaseEvent: newBaseEvent(eventID, eventTimestamp),
		ClOrdID:   clOrdID,
		Reason:    reason,
	}
}

func (e *OrderDenied) ClientOrderID() ClientOrderID { return e.ClOrdID }
func (*OrderDenied) isOrderEvent()                  {}

func (e *OrderDenied) String() string {
	return fmt.Sprintf("OrderDenied(cl_ord_id=%s, reason='%s', event_id=%s)", e.ClOrdID, e.Reason, e.ID)
}

// OrderSubmitted records transmission to the venue.
type OrderSubmitted struct {
	BaseEvent
	AccountID     AccountID     `json:"account_id"`
	ClOrdID       ClientOrderID `json:"cl_ord_id"`
	SubmittedTime time.Time     `json:"submitted_time"`
}

func NewOrderSubmitted(
	accountID AccountID,
	clOrdID ClientOrderID,
	submittedTime time.Time,
	eventID uuid.UUID,
	eventTimestamp time.Time,
) *OrderSubmitted {
	return &OrderSubmitted{
		BaseEvent:     newBaseEvent(eventID, eventTimestamp),
		AccountID:     accountID,
		ClOrdID:       clOrdID,
		SubmittedTime: submittedTime.UTC(),
	}
}

func (e *OrderSubmitted) ClientOrderID() ClientOrderID { return e.ClOrdID }
func (*OrderSubmitted) isOrderEvent()                  {}

func (e *OrderSubmitted) String() string {
	return fmt.Sprintf("OrderSubmitted(account_id=%s, cl_ord_id=%s, event_id=%s)",
		e.AccountID, e.ClOrdID, e.ID)
}

// OrderRejected records refusal by the venue.
type OrderRejected struct {
	BaseEvent
	AccountID    AccountID     `json:"account_id"`
	ClOrdID      ClientOrderID `json:"cl_ord_id"`
	RejectedTime time.Time     `json:"rejected_time"`
	Reason       string        `json:"reason"`
}

func NewOrderRejected(
	accountID AccountID,
	clOrdID ClientOrderID,
	rejectedTime time.Time,
	reason string,
	eventID uuid.UUID,
	eventTimestamp time.Time,
) *OrderRejected {
	return &OrderRejected{
		BaseEvent:    newBaseEvent(eventID, eventTimestamp),
		AccountID:    accountID,
		ClOrdID:      clOrdID,
		RejectedTime: rejectedTime.UTC(),
		Reason:       reason,
	}
}

func (e *OrderRejected) ClientOrderID() ClientOrderID { return e.ClOrdID }
func (*OrderRejected) isOrderEvent()                  {}

func (e *OrderRejected) String() string {
	return fmt.Sprintf("OrderRejected(account_id=%s, cl_ord_id=%s, reason='%s', event_id=%s)",
		e.AccountID, e.ClOrdID, e.Reason, e.ID)
}

// OrderAccepted records acknowledgement by the venue, assigning the
// venue order id.
type OrderAccepted struct {
	BaseEvent
	AccountID    AccountID     `json:"account_id"`
	ClOrdID      ClientOrderID `json:"cl_ord_id"`
	OrderID      OrderID       `json:"order_id"`
	AcceptedTime time.Time     `json:"accepted_time"`
}

func NewOrderAccepted(
	accountID AccountID,
	clOrdID ClientOrderID,
	orderID OrderID,
	acceptedTime time.Time,
	eventID uuid.UUID,
	eventTimestamp time.Time,
) *OrderAccepted {
	return &OrderAccepted{
		BaseEvent:    newBaseEvent(eventID, eventTimestamp),
		AccountID:    accountID,
		ClOrdID:      clOrdID,
		OrderID:      orderID,
		AcceptedTime: acceptedTime.UTC(),
	}
}

func (e *OrderAccepted) ClientOrderID() ClientOrderID { return e.ClOrdID }
func (*OrderAccepted) isOrderEvent()                  {}

func (e *OrderAccepted) String() string {
	return fmt.Sprintf("OrderAccepted(account_id=%s, cl_ord_id=%s, order_id=%s, event_id=%s)",
		e.AccountID, e.ClOrdID, e.OrderID, e.ID)
}

// OrderCancelReject records a refused cancel or amend request. It does
// not change order state.
type OrderCancelReject struct {
	BaseEvent
	AccountID    AccountID     `json:"account_id"`
	ClOrdID      ClientOrderID `json:"cl_ord_id"`
	OrderID      OrderID       `json:"order_id"`
	RejectedTime time.Time     `json:"rejected_time"`
	ResponseTo   string        `json:"response_to"`
	Reason       string        `json:"reason"`
}

func NewOrderCancelReject(
	accountID AccountID,
	clOrdID ClientOrderID,
	orderID OrderID,
	rejectedTime time.Time,
	responseTo string,
	reason string,
	eventID uuid.UUID,
	eventTimestamp time.Time,
) *OrderCancelReject {
	return &OrderCancelReject{
		BaseEvent:    newBaseEvent(eventID, eventTimestamp),
		AccountID:    accountID,
		ClOrdID:      clOrdID,
		OrderID:      orderID,
		RejectedTime: rejectedTime.UTC(),
		ResponseTo:   responseTo,
		Reason:       reason,
	}
}

func (e *OrderCancelReject) ClientOrderID() ClientOrderID { return e.ClOrdID }
func (*OrderCancelReject) isOrderEvent()                  {}

func (e *OrderCancelReject) String() string {
	return fmt.Sprintf("OrderCancelReject(account_id=%s, cl_ord_id=%s, response_to=%s, reason='%s', event_id=%s)",
		e.AccountID, e.ClOrdID, e.ResponseTo, e.Reason, e.ID)
}

// OrderCancelled records cancellation confirmed by the venue.
type OrderCancelled struct {
	BaseEvent
	AccountID     AccountID     `json:"account_id"`
	ClOrdID       ClientOrderID `json:"cl_ord_id"`
	OrderID       OrderID       `json:"order_id"`
	CancelledTime time.Time     `json:"cancelled_time"`
}

func NewOrderCancelled(
	accountID AccountID,
	clOrdID ClientOrderID,
	orderID OrderID,
	cancelledTime time.Time,
	eventID uuid.UUID,
	eventTimestamp time.Time,
) *OrderCancelled {
	return &OrderCancelled{
		BaseEvent:     newBaseEvent(eventID, eventTimestamp),
		AccountID:     accountID,
		ClOrdID:       clOrdID,
		OrderID:       orderID,
		CancelledTime: cancelledTime.UTC(),
	}
}

func (e *OrderCancelled) ClientOrderID() ClientOrderID { return e.ClOrdID }
func (*OrderCancelled) isOrderEvent()                  {}

func (e *OrderCancelled) String() string {
	return fmt.Sprintf("OrderCancelled(account_id=%s, cl_ord_id=%s, order_id=%s, event_id=%s)",
		e.AccountID, e.ClOrdID, e.OrderID, e.ID)
}

// OrderExpired records expiry of a working order at the venue.
type OrderExpired struct {
	BaseEvent
	AccountID   AccountID     `json:"account_id"`
	ClOrdID     ClientOrderID `json:"cl_ord_id"`
	OrderID     OrderID       `json:"order_id"`
	ExpiredTime time.Time     `json:"expired_time"`
}

func NewOrderExpired(
	accountID AccountID,
	clOrdID ClientOrderID,
	orderID OrderID,
	expiredTime time.Time,
	eventID uuid.UUID,
	eventTimestamp time.Time,
) *OrderExpired {
	return &OrderExpired{
		BaseEvent:   newBaseEvent(eventID, eventTimestamp),
		AccountID:   accountID,
		ClOrdID:     clOrdID,
		OrderID:     orderID,
		ExpiredTime: expiredTime.UTC(),
	}
}

func (e *OrderExpired) ClientOrderID() ClientOrderID { return e.ClOrdID }
func (*OrderExpired) isOrderEvent()                  {}

func (e *OrderExpired) String() string {
	return fmt.Sprintf("OrderExpired(account_id=%s, cl_ord_id=%s, order_id=%s, event_id=%s)",
		e.AccountID, e.ClOrdID, e.OrderID, e.ID)
}

// OrderTriggered records a stop order's trigger firing at the venue.
type OrderTriggered struct {
	BaseEvent
	AccountID     AccountID     `json:"account_id"`
	ClOrdID       ClientOrderID `json:"cl_ord_id"`
	OrderID       OrderID       `json:"order_id"`
	TriggeredTime time.Time     `json:"triggered_time"`
}

func NewOrderTriggered(
	accountID AccountID,
	clOrdID ClientOrderID,
	orderID OrderID,
	triggeredTime time.Time,
	eventID uuid.UUID,
	eventTimestamp time.Time,
) *OrderTriggered {
	return &OrderTriggered{
		BaseEvent:     newBaseEvent(eventID, eventTimestamp),
		AccountID:     accountID,
		ClOrdID:       clOrdID,
		OrderID:       orderID,
		TriggeredTime: triggeredTime.UTC(),
	}
}

func (e *OrderTriggered) ClientOrderID() ClientOrderID { return e.ClOrdID }
func (*OrderTriggered) isOrderEvent()                  {}

func (e *OrderTriggered) String() string {
	return fmt.Sprintf("OrderTriggered(account_id=%s, cl_ord_id=%s, order_id=%s, event_id=%s)",
		e.AccountID, e.ClOrdID, e.OrderID, e.ID)
}

// OrderAmended records a venue-confirmed change of price or quantity.
type OrderAmended struct {
	BaseEvent
	AccountID   AccountID     `json:"account_id"`
	ClOrdID     ClientOrderID `json:"cl_ord_id"`
	OrderID     OrderID       `json:"order_id"`
	Quantity    Quantity      `json:"quantity"`
	Price       Price         `json:"price"`
	AmendedTime time.Time     `json:"amended_time"`
}

func NewOrderAmended(
	accountID AccountID,
	clOrdID ClientOrderID,
	orderID OrderID,
	quantity Quantity,
	price Price,
	amendedTime time.Time,
	eventID uuid.UUID,
	eventTimestamp time.Time,
) *OrderAmended {
	return &OrderAmended{
		BaseEvent:   newBaseEvent(eventID, eventTimestamp),
		AccountID:   accountID,
		ClOrdID:     clOrdID,
		OrderID:     orderID,
		Quantity:    quantity,
		Price:       price,
		AmendedTime: amendedTime.UTC(),
	}
}

func (e *OrderAmended) ClientOrderID() ClientOrderID { return e.ClOrdID }
func (*OrderAmended) isOrderEvent()                  {}

func (e *OrderAmended) String() string {
	return fmt.Sprintf("OrderAmended(account_id=%s, cl_order_id=%s, order_id=%s, qty=%s, price=%s, event_id=%s)",
		e.AccountID, e.ClOrdID, e.OrderID, e.Quantity.Formatted(), e.Price, e.ID)
}

// OrderFilled records a venue execution. CumQty and LeavesQty are the
// venue's authoritative statement of total progress.
type OrderFilled struct {
	BaseEvent
	AccountID     AccountID     `json:"account_id"`
	ClOrdID       ClientOrderID `json:"cl_ord_id"`
	OrderID       OrderID       `json:"order_id"`
	ExecutionID   ExecutionID   `json:"execution_id"`
	PosID         PositionID    `json:"position_id"`
	StrategyID    StrategyID    `json:"strategy_id"`
	Security      *Security     `json:"security"`
	Side          OrderSide     `json:"order_side"`
	FillQty       Quantity      `json:"fill_qty"`
	CumQty        Quantity      `json:"cum_qty"`
	LeavesQty     Quantity      `json:"leaves_qty"`
	FillPrice     Price         `json:"fill_price"`
	Currency      Currency      `json:"currency"`
	IsInverse     bool          `json:"is_inverse"`
	Commission    Money         `json:"commission"`
	LiquiditySide LiquiditySide `json:"liquidity_side"`
	ExecutionTime time.Time     `json:"execution_time"`
}

func NewOrderFilled(
	accountID AccountID,
	clOrdID ClientOrderID,
	orderID OrderID,
	executionID ExecutionID,
	positionID PositionID,
	strategyID StrategyID,
	security *Security,
	side OrderSide,
	fillQty, cumQty, leavesQty Quantity,
	fillPrice Price,
	currency Currency,
	isInverse bool,
	commission Money,
	liquiditySide LiquiditySide,
	executionTime time.Time,
	eventID uuid.UUID,
	eventTimestamp time.Time,
) *OrderFilled {
	return &OrderFilled{
		BaseEvent:     newBaseEvent(eventID, eventTimestamp),
		AccountID:     accountID,
		ClOrdID:       clOrdID,
		OrderID:       orderID,
		ExecutionID:   executionID,
		PosID:         positionID,
		StrategyID:    strategyID,
		Security:      security,
		Side:          side,
		FillQty:       fillQty,
		CumQty:        cumQty,
		LeavesQty:     leavesQty,
		FillPrice:     fillPrice,
		Currency:      currency,
		IsInverse:     isInverse,
		Commission:    commission,
		LiquiditySide: liquiditySide,
		ExecutionTime: executionTime.UTC(),
	}
}

func (e *OrderFilled) ClientOrderID() ClientOrderID { return e.ClOrdID }
func (*OrderFilled) isOrderEvent()                  {}

func (e *OrderFilled) String() string {
	return fmt.Sprintf("OrderFilled(account_id=%s, cl_ord_id=%s, order_id=%s, position_id=%s, "+
		"strategy_id=%s, security=%s, side=%s-%s, fill_qty=%s, fill_price=%s %s, cum_qty=%s, "+
		"leaves_qty=%s, commission=%s, event_id=%s)",
		e.AccountID, e.ClOrdID, e.OrderID, e.PosID, e.StrategyID, e.Security, e.Side,
		e.LiquiditySide, e.FillQty.Formatted(), e.FillPrice, e.Currency.Code,
		e.CumQty.Formatted(), e.LeavesQty.Formatted(), e.Commission, e.ID)
}

// PositionOpened reports a position going from flat to open. The
// snapshot is a point-in-time copy, never a live reference.
type PositionOpened struct {
	BaseEvent
	Position PositionSnapshot `json:"position"`
	Fill     *OrderFilled     `json:"order_fill"`
}

func NewPositionOpened(snapshot PositionSnapshot, fill *OrderFilled, eventID uuid.UUID, eventTimestamp time.Time) *PositionOpened {
	return &PositionOpened{
		BaseEvent: newBaseEvent(eventID, eventTimestamp),
		Position:  snapshot,
		Fill:      fill,
	}
}

func (e *PositionOpened) PositionID() PositionID     { return e.Position.PositionID }
func (e *PositionOpened) Snapshot() PositionSnapshot { return e.Position }
func (*PositionOpened) isPositionEvent()             {}

func (e *PositionOpened) String() string {
	return fmt.Sprintf("PositionOpened(position=%s, event_id=%s)", e.Position.StatusString(), e.ID)
}

// PositionChanged reports a change in an open position's exposure.
type PositionChanged struct {
	BaseEvent
	Position PositionSnapshot `json:"position"`
	Fill     *OrderFilled     `json:"order_fill"`
}

func NewPositionChanged(snapshot PositionSnapshot, fill *OrderFilled, eventID uuid.UUID, eventTimestamp time.Time) *PositionChanged {
	return &PositionChanged{
		BaseEvent: newBaseEvent(eventID, eventTimestamp),
		Position:  snapshot,
		Fill:      fill,
	}
}

func (e *PositionChanged) PositionID() PositionID     { return e.Position.PositionID }
func (e *PositionChanged) Snapshot() PositionSnapshot { return e.Position }
func (*PositionChanged) isPositionEvent()             {}

func (e *PositionChanged) String() string {
	return fmt.Sprintf("PositionChanged(position=%s, event_id=%s)", e.Position.StatusString(), e.ID)
}

// PositionClosed reports a position returning to flat.
type PositionClosed struct {
	BaseEvent
	Position PositionSnapshot `json:"position"`
	Fill     *OrderFilled     `json:"order_fill"`
}

func NewPositionClosed(snapshot PositionSnapshot, fill *OrderFilled, eventID uuid.UUID, eventTimestamp time.Time) *PositionClosed {
	return &PositionClosed{
		BaseEvent: newBaseEvent(eventID, eventTimestamp),
		Position:  snapshot,
		Fill:      fill,
	}
}

func (e *PositionClosed) PositionID() PositionID     { return e.Position.PositionID }
func (e *PositionClosed) Snapshot() PositionSnapshot { return e.Position }
func (*PositionClosed) isPositionEvent()             {}

func (e *PositionClosed) String() string {
	return fmt.Sprintf("PositionClosed(position=%s, event_id=%s)", e.Position.StatusString(), e.ID)
}
