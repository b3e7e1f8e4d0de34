// Package execution feeds the execution engine from the JetStream
// event stream: decode, journal, apply, project, publish. Structurally
// illegal events are dead-lettered with full context; transient
// failures are left unacked for redelivery.
package execution

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/meridianhq/execore/internal/codec"
	"github.com/meridianhq/execore/internal/config"
	"github.com/meridianhq/execore/internal/constant"
	"github.com/meridianhq/execore/internal/engine"
	"github.com/meridianhq/execore/internal/entity"
	"github.com/meridianhq/execore/internal/infrastructure"
	"github.com/meridianhq/execore/internal/model"
	"github.com/meridianhq/execore/internal/repository"
	"github.com/meridianhq/execore/internal/util"
)

var (
	ErrJournalAppendFailed = errors.New("failed to append event to journal")
	ErrPublishFailed       = errors.New("failed to publish position event")
)

const (
	defaultHandleTimeout = 10 * time.Second
	defaultMaxDeliver    = 5
)

// SnapshotStore is the cache surface position events are mirrored to.
type SnapshotStore interface {
	Upsert(ctx context.Context, snapshot model.PositionSnapshot) error
}

// ExecutionService owns the engine and its plumbing. It implements
// engine.Publisher so derived position events flow straight back out
// through JetStream and into the snapshot cache.
type ExecutionService struct {
	js              nats.JetStreamContext
	codec           *codec.Codec
	engine          *engine.Engine
	journalRepo     *repository.EventJournalRepository
	orderRecordRepo *repository.OrderRecordRepository
	snapshotRepo    SnapshotStore
	replaying       atomic.Bool
}

func NewExecutionService(
	omsType model.OMSType,
	clock model.Clock,
	js nats.JetStreamContext,
	eventCodec *codec.Codec,
	journalRepo *repository.EventJournalRepository,
	orderRecordRepo *repository.OrderRecordRepository,
	snapshotRepo SnapshotStore,
) *ExecutionService {
	s := &ExecutionService{
		js:              js,
		codec:           eventCodec,
		journalRepo:     journalRepo,
		orderRecordRepo: orderRecordRepo,
		snapshotRepo:    snapshotRepo,
	}
	s.engine = engine.New(omsType, clock, uuid.New, s)

	return s
}

// Engine exposes the engine's read-only query surface.
func (s *ExecutionService) Engine() *engine.Engine {
	return s.engine
}

// WarmUp replays the journal into the owned engine with wire
// publishing suppressed. Snapshots are still upserted so the cache
// converges on restart; re-announcing historical position events on
// the wire would rewrite history under fresh event ids.
func (s *ExecutionService) WarmUp(ctx context.Context, replay *ReplayService) (ReplaySummary, error) {
	s.replaying.Store(true)
	defer s.replaying.Store(false)

	return replay.Replay(ctx, s.engine)
}

func (s *ExecutionService) JetstreamEventInit(ctx context.Context) error {
	streamConfig := &nats.StreamConfig{
		Name:      constant.ExecutionStreamName,
		Subjects:  []string{constant.ExecutionStreamSubjectAll},
		Retention: nats.LimitsPolicy,
		Storage:   nats.FileStorage,
		MaxAge:    24 * time.Hour,
	}

	stream, err := s.js.StreamInfo(constant.ExecutionStreamName, nats.Context(ctx))
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		logrus.Error(err)
		return err
	}

	if stream == nil {
		logrus.Infof("creating stream: %s", constant.ExecutionStreamName)
		_, err = s.js.AddStream(streamConfig, nats.Context(ctx))
		return err
	}

	logrus.Infof("updating stream: %s", constant.ExecutionStreamName)
	_, err = s.js.UpdateStream(streamConfig, nats.Context(ctx))
	if err != nil {
		logrus.Error(err)
		return err
	}

	return nil
}

func (s *ExecutionService) JetstreamEventSubscribe(ctx context.Context) error {
	err := s.JetstreamEventInit(ctx)
	if err != nil {
		logrus.Error(err)
		return err
	}

	_, err = s.js.QueueSubscribe(
		constant.ExecutionSubjectEvents,
		constant.ExecutionQueueName,
		func(msg *nats.Msg) {
			err := util.ProcessWithTimeout(handleTimeout(), msg, s.handleEvent)
			if err != nil {
				logrus.Errorf("error processing message: %v", err)
				return
			}

			err = msg.Ack()
			if err != nil {
				logrus.Errorf("failed to acknowledge message: %v", err)
				return
			}
		},
		nats.ManualAck(),
		nats.Durable(constant.ExecutionQueueGroup),
		nats.MaxDeliver(maxDeliver()),
	)
	util.ContinueOrFatal(err)

	return nil
}

// maxDeliver bounds redelivery of transiently failing messages so a
// poisonous event cannot occupy the consumer forever.
func maxDeliver() int {
	if config.Env != nil && config.Env.NatsJetstream.MaxRetries > 0 {
		return config.Env.NatsJetstream.MaxRetries
	}

	return defaultMaxDeliver
}

func handleTimeout() time.Duration {
	if config.Env != nil {
		if timeout, ok := config.Env.NatsJetstream.TimeoutHandler["execution_events"]; ok && timeout > 0 {
			return timeout
		}
	}

	return defaultHandleTimeout
}

// handleEvent runs the full pipeline for one inbound message. A nil
// return acks the message; dead-lettered events are acked too since
// retrying a structurally illegal event can never succeed.
func (s *ExecutionService) handleEvent(ctx context.Context, msg *nats.Msg) error {
	started := time.Now()
	defer func() {
		infrastructure.ObserveEventHandle(time.Since(started))
	}()

	event, err := s.codec.Decode(msg.Data)
	if err != nil {
		logrus.WithField("payload", string(msg.Data)).Errorf("undecodable event: %v", err)
		infrastructure.CountEventFailed("unknown", "decode")
		return s.deadLetter(ctx, msg.Data, err)
	}

	logger := logrus.WithFields(logrus.Fields{
		"event_id":   event.EventID(),
		"event_type": model.EventTypeName(event),
	})

	if err := s.journalEvent(ctx, event, msg.Data); err != nil {
		logger.Error(err)
		return err
	}

	if err := s.engine.Process(ctx, event); err != nil {
		infrastructure.CountEventFailed(model.EventTypeName(event), failureReason(err))

		if errors.Is(err, engine.ErrPublish) {
			// state already committed; redelivery would double-apply
			if config.Env != nil && config.Env.Engine.HaltOnPublishFailed {
				logger.Fatalf("position event publish failed after commit: %v", err)
			}
			logger.Errorf("position event publish failed after commit: %v", err)
			return nil
		}

		logger.Errorf("engine rejected event: %v", err)
		return s.deadLetter(ctx, msg.Data, err)
	}

	infrastructure.CountEventProcessed(model.EventTypeName(event))

	if orderEvent, ok := event.(model.OrderEvent); ok {
		if err := s.projectOrder(ctx, orderEvent.ClientOrderID()); err != nil {
			// projection is derived state; log and move on
			logger.Errorf("order record upsert failed: %v", err)
		}
	}

	return nil
}

func (s *ExecutionService) journalEvent(ctx context.Context, event model.Event, payload []byte) error {
	record := &entity.EventJournal{
		EventID:        event.EventID().String(),
		AggregateID:    aggregateID(event),
		EventType:      model.EventTypeName(event),
		Payload:        payload,
		EventTimestamp: event.EventTimestamp(),
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.journalRepo.Append(ctx, record); err != nil {
		return fmt.Errorf("%w: %v", ErrJournalAppendFailed, err)
	}

	return nil
}

// PublishPositionEvent implements engine.Publisher: snapshot first so
// readers never see an event without its cached state, then the wire.
func (s *ExecutionService) PublishPositionEvent(ctx context.Context, event model.PositionEvent) error {
	if err := s.snapshotRepo.Upsert(ctx, event.Snapshot()); err != nil {
		return err
	}

	if s.replaying.Load() {
		return nil
	}

	payload, err := s.codec.Encode(event)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	if err := util.PublishRaw(s.js, positionSubject(event), payload); err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	infrastructure.CountPositionEventPublished(model.EventTypeName(event))

	return nil
}

func positionSubject(event model.PositionEvent) string {
	switch event.(type) {
	case *model.PositionOpened:
		return constant.ExecutionSubjectPositionOpen
	case *model.PositionChanged:
		return constant.ExecutionSubjectPositionChange
	default:
		return constant.ExecutionSubjectPositionClose
	}
}

// DeadLetterEnvelope wraps an undeliverable event with the rejection
// context an operator needs to triage it.
type DeadLetterEnvelope struct {
	Reason       string `json:"reason"`
	Event        string `json:"event"`
	DeadLetterAt string `json:"dead_letter_at"`
}

func (s *ExecutionService) deadLetter(ctx context.Context, payload []byte, cause error) error {
	envelope := DeadLetterEnvelope{
		Reason:       cause.Error(),
		Event:        string(payload),
		DeadLetterAt: util.FormatTimestamp(time.Now()),
	}

	if err := util.PublishEvent(s.js, constant.ExecutionSubjectEventsDLQ, envelope); err != nil {
		logrus.Errorf("dead letter publish failed: %v", err)
		return err
	}

	infrastructure.CountEventDeadLettered()

	return nil
}

func (s *ExecutionService) projectOrder(ctx context.Context, clOrdID model.ClientOrderID) error {
	order, ok := s.engine.Order(clOrdID)
	if !ok {
		return nil
	}

	return s.orderRecordRepo.Upsert(ctx, OrderRecordFromAggregate(order))
}

// aggregateID keys journal rows the way the dispatcher partitions
// delivery: orders by cl_ord_id, positions by position id, account
// state by account id.
func aggregateID(event model.Event) string {
	switch ev := event.(type) {
	case model.OrderEvent:
		return string(ev.ClientOrderID())
	case model.PositionEvent:
		return string(ev.PositionID())
	case *model.AccountState:
		return ev.AccountID.String()
	default:
		return event.EventID().String()
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalidStateTransition):
		return "invalid_transition"
	case errors.Is(err, model.ErrOrderIDMismatch):
		return "order_id_mismatch"
	case errors.Is(err, model.ErrInconsistentFill):
		return "inconsistent_fill"
	case errors.Is(err, model.ErrDuplicateExecutionID):
		return "duplicate_execution"
	case errors.Is(err, engine.ErrUnknownOrder):
		return "unknown_order"
	case errors.Is(err, engine.ErrDuplicateClOrdID):
		return "duplicate_cl_ord_id"
	case errors.Is(err, engine.ErrMissingPositionID):
		return "missing_position_id"
	case errors.Is(err, engine.ErrPositionIDReuse):
		return "position_id_reuse"
	case errors.Is(err, engine.ErrNettingIDConflict):
		return "netting_id_conflict"
	case errors.Is(err, engine.ErrPublish):
		return "publish"
	default:
		return "other"
	}
}
