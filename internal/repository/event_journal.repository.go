package repository

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/meridianhq/execore/internal/entity"
)

type EventJournalRepository struct {
	db *sqlx.DB
}

func NewEventJournalRepository(db *sqlx.DB) *EventJournalRepository {
	return &EventJournalRepository{db: db}
}

// Append writes one event to the journal and fills in its commit id.
// A duplicate event_id means the event was journaled on an earlier
// delivery; Append adopts the existing commit id so redelivered
// messages proceed through the rest of the pipeline.
func (r *EventJournalRepository) Append(ctx context.Context, record *entity.EventJournal) error {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Insert(record.TableName()).
		Columns(
			"event_id",
			"aggregate_id",
			"event_type",
			"payload",
			"event_timestamp",
			"created_at",
		).
		Values(
			record.EventID,
			record.AggregateID,
			record.EventType,
			record.Payload,
			record.EventTimestamp,
			record.CreatedAt,
		).
		Suffix("RETURNING id")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return err
	}

	var id int64
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return r.db.GetContext(ctx, &record.ID, "SELECT id FROM event_journal WHERE event_id = $1", record.EventID)
		}
		return err
	}

	record.ID = id

	return nil
}

// isUniqueViolation reports whether err is a postgres duplicate-key
// error (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// LoadByAggregate returns an aggregate's events in commit order.
func (r *EventJournalRepository) LoadByAggregate(ctx context.Context, aggregateID string) ([]entity.EventJournal, error) {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("*").
		From("event_journal").
		Where(sq.Eq{"aggregate_id": aggregateID}).
		OrderBy("id asc")

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, err
	}

	var records []entity.EventJournal
	err = r.db.SelectContext(ctx, &records, query, args...)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// LoadAfter returns up to limit events with id greater than afterID,
// in commit order. Replay walks the journal in batches with it.
func (r *EventJournalRepository) LoadAfter(ctx context.Context, afterID int64, limit int) ([]entity.EventJournal, error) {
	queryBuilder := sq.StatementBuilder.
		PlaceholderFormat(sq.Dollar).
		Select("*").
		From("event_journal").
		Where(sq.Gt{"id": afterID}).
		OrderBy("id asc").
		Limit(uint64(limit))

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, err
	}

	var records []entity.EventJournal
	err = r.db.SelectContext(ctx, &records, query, args...)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// Count reports the number of journaled events.
func (r *EventJournalRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM event_journal")
	return count, err
}
