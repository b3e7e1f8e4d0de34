package entity

import "time"

// EventJournal is one appended catalog event. The journal is
// append-only; id is the global commit order.
type EventJournal struct {
	ID             int64     `db:"id"`
	EventID        string    `db:"event_id"`
	AggregateID    string    `db:"aggregate_id"`
	EventType      string    `db:"event_type"`
	Payload        []byte    `db:"payload"`
	EventTimestamp time.Time `db:"event_timestamp"`
	CreatedAt      time.Time `db:"created_at"`
}

func (EventJournal) TableName() string {
	return "event_journal"
}
