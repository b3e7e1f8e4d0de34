package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/meridianhq/execore/internal/entity"
)

type OrderRecordRepository struct {
	db *sqlx.DB
}

func NewOrderRecordRepository(db *sqlx.DB) *OrderRecordRepository {
	return &OrderRecordRepository{db: db}
}

// Upsert rewrites the projection row for the order.
func (r *OrderRecordRepository) Upsert(ctx context.Context, record *entity.OrderRecord) error {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(record.TableName()).
		Columns(
			"cl_ord_id",
			"order_id",
			"account_id",
			"strategy_id",
			"security",
			"side",
			"type",
			"quantity",
			"time_in_force",
			"state",
			"filled_qty",
			"leaves_qty",
			"price",
			"avg_fill_price",
			"position_id",
			"last_event_id",
			"last_event_type",
			"event_count",
			"init_time",
			"updated_at",
		).
		Values(
			record.ClOrdID,
			record.OrderID,
			record.AccountID,
			record.StrategyID,
			record.Security,
			record.Side,
			record.Type,
			record.Quantity,
			record.TimeInForce,
			record.State,
			record.FilledQty,
			record.LeavesQty,
			record.Price,
			record.AvgFillPrice,
			record.PositionID,
			record.LastEventID,
			record.LastEventType,
			record.EventCount,
			record.InitTime,
			record.UpdatedAt,
		).
		Suffix(`ON CONFLICT (cl_ord_id)
DO UPDATE SET
	order_id = EXCLUDED.order_id,
	account_id = EXCLUDED.account_id,
	state = EXCLUDED.state,
	quantity = EXCLUDED.quantity,
	filled_qty = EXCLUDED.filled_qty,
	leaves_qty = EXCLUDED.leaves_qty,
	price = EXCLUDED.price,
	avg_fill_price = EXCLUDED.avg_fill_price,
	position_id = EXCLUDED.position_id,
	last_event_id = EXCLUDED.last_event_id,
	last_event_type = EXCLUDED.last_event_type,
	event_count = EXCLUDED.event_count,
	updated_at = EXCLUDED.updated_at`)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *OrderRecordRepository) GetByClOrdID(ctx context.Context, clOrdID string) (*entity.OrderRecord, error) {
	var record entity.OrderRecord
	err := r.db.GetContext(ctx, &record, "SELECT * FROM order_records WHERE cl_ord_id = $1", clOrdID)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *OrderRecordRepository) GetByState(ctx context.Context, states []string) ([]entity.OrderRecord, error) {
	if len(states) == 0 {
		return []entity.OrderRecord{}, nil
	}

	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("*").
		From("order_records").
		Where(sq.Eq{"state": states}).
		OrderBy("updated_at desc")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, err
	}

	var records []entity.OrderRecord
	err = r.db.SelectContext(ctx, &records, query, args...)
	if err != nil {
		return nil, err
	}

	return records, nil
}
