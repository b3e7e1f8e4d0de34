package execution

import (
	"time"

	"github.com/guregu/null/v6"

	"github.com/meridianhq/execore/internal/entity"
	"github.com/meridianhq/execore/internal/model"
)

// OrderRecordFromAggregate maps the live aggregate to its projection
// row.
func OrderRecordFromAggregate(order *model.Order) *entity.OrderRecord {
	record := &entity.OrderRecord{
		ClOrdID:     string(order.ClOrdID()),
		OrderID:     nullString(string(order.OrderID())),
		StrategyID:  order.StrategyID().String(),
		Security:    order.Security().SerializableString(),
		Side:        string(order.Side()),
		Type:        string(order.Type()),
		Quantity:    order.Quantity().AsDecimal(),
		TimeInForce: string(order.TimeInForce()),
		State:       string(order.State()),
		FilledQty:   order.FilledQty().AsDecimal(),
		LeavesQty:   order.LeavesQty().AsDecimal(),
		PositionID:  nullString(string(order.PositionID())),
		EventCount:  order.EventCount(),
		InitTime:    order.InitTime(),
		UpdatedAt:   time.Now().UTC(),
	}

	if !order.AccountID().IsZero() {
		record.AccountID = null.StringFrom(order.AccountID().String())
	}

	if price, ok := order.Price(); ok {
		v := price.AsDecimal()
		record.Price = &v
	}

	if !order.AvgPrice().IsZero() {
		v := order.AvgPrice().AsDecimal()
		record.AvgFillPrice = &v
	}

	lastEvent := order.LastEvent()
	record.LastEventID = lastEvent.EventID().String()
	record.LastEventType = model.EventTypeName(lastEvent)

	return record
}

func nullString(v string) null.String {
	return null.NewString(v, v != "")
}
