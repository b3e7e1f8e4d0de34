package execution

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/meridianhq/execore/internal/codec"
	"github.com/meridianhq/execore/internal/engine"
	"github.com/meridianhq/execore/internal/entity"
	"github.com/meridianhq/execore/internal/model"
)

const defaultReplayBatchSize = 1000

// JournalReader is the slice of the journal repository replay walks.
type JournalReader interface {
	LoadAfter(ctx context.Context, afterID int64, limit int) ([]entity.EventJournal, error)
}

// ReplaySummary reports the outcome of a journal replay.
type ReplaySummary struct {
	Read    int64
	Applied int64
	Failed  int64
	LastID  int64
}

// ReplayService rebuilds engine state by walking the journal in commit
// order. Replay is deterministic: the same journal always produces the
// same aggregate state.
type ReplayService struct {
	journalRepo JournalReader
	codec       *codec.Codec
	batchSize   int
}

func NewReplayService(journalRepo JournalReader, eventCodec *codec.Codec, batchSize int) *ReplayService {
	if batchSize <= 0 {
		batchSize = defaultReplayBatchSize
	}

	return &ReplayService{
		journalRepo: journalRepo,
		codec:       eventCodec,
		batchSize:   batchSize,
	}
}

// Replay feeds every journaled event through the target engine. An
// event the engine rejects is counted and skipped; the journal is the
// historical record and a rejection here means it was rejected when
// first seen too.
func (s *ReplayService) Replay(ctx context.Context, target *engine.Engine) (ReplaySummary, error) {
	var summary ReplaySummary

	for {
		records, err := s.journalRepo.LoadAfter(ctx, summary.LastID, s.batchSize)
		if err != nil {
			return summary, fmt.Errorf("load journal after id %d: %w", summary.LastID, err)
		}
		if len(records) == 0 {
			return summary, nil
		}

		for _, record := range records {
			summary.Read++
			summary.LastID = record.ID

			event, err := s.codec.Decode(record.Payload)
			if err != nil {
				summary.Failed++
				logrus.WithFields(logrus.Fields{
					"journal_id": record.ID,
					"event_id":   record.EventID,
				}).Errorf("journaled event undecodable: %v", err)
				continue
			}

			if err := target.Process(ctx, event); err != nil {
				summary.Failed++
				logrus.WithFields(logrus.Fields{
					"journal_id": record.ID,
					"event_id":   record.EventID,
					"event_type": model.EventTypeName(event),
				}).Warnf("replay skipped event: %v", err)
				continue
			}

			summary.Applied++
		}
	}
}

// NopPublisher drops derived position events. Replay uses it so
// rebuilding state does not republish history.
type NopPublisher struct{}

func (NopPublisher) PublishPositionEvent(context.Context, model.PositionEvent) error {
	return nil
}
