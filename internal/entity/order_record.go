package entity

import (
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// OrderRecord is the queryable projection of an order aggregate,
// keyed by client order id and rewritten on every applied event.
type OrderRecord struct {
	ClOrdID       string           `db:"cl_ord_id"`
	OrderID       null.String      `db:"order_id"`
	AccountID     null.String      `db:"account_id"`
	StrategyID    string           `db:"strategy_id"`
	Security      string           `db:"security"`
	Side          string           `db:"side"`
	Type          string           `db:"type"`
	Quantity      decimal.Decimal  `db:"quantity"`
	TimeInForce   string           `db:"time_in_force"`
	State         string           `db:"state"`
	FilledQty     decimal.Decimal  `db:"filled_qty"`
	LeavesQty     decimal.Decimal  `db:"leaves_qty"`
	Price         *decimal.Decimal `db:"price"`
	AvgFillPrice  *decimal.Decimal `db:"avg_fill_price"`
	PositionID    null.String      `db:"position_id"`
	LastEventID   string           `db:"last_event_id"`
	LastEventType string           `db:"last_event_type"`
	EventCount    int              `db:"event_count"`
	InitTime      time.Time        `db:"init_time"`
	UpdatedAt     time.Time        `db:"updated_at"`
}

func (OrderRecord) TableName() string {
	return "order_records"
}
