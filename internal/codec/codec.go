// Package codec frames catalog events for the wire. Every payload is
// wrapped in a {"type", "event"} envelope so consumers dispatch on the
// type tag instead of sniffing fields, and unknown tags fail loudly.
package codec

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/meridianhq/execore/internal/cache"
	"github.com/meridianhq/execore/internal/model"
)

var ErrUnknownEventType = errors.New("unknown event type")

type envelope struct {
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event"`
}

// Codec encodes and decodes the closed event catalog. Decoded events
// share security instances through an object cache, so replaying a
// long journal never reparses the same security twice and pointer
// comparisons hold across events.
type Codec struct {
	securities *cache.ObjectCache[*model.Security]
}

func New() *Codec {
	return &Codec{securities: cache.New(model.SecurityFromSerializableString)}
}

// Encode wraps the event in its envelope.
func (c *Codec) Encode(event model.Event) ([]byte, error) {
	name := model.EventTypeName(event)
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return json.Marshal(envelope{Type: name, Event: payload})
}

// Decode parses an envelope back into its catalog event.
func (c *Codec) Decode(data []byte) (model.Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	event, err := emptyEvent(env.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(env.Event, event); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	if err := c.intern(event); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return event, nil
}

func emptyEvent(name string) (model.Event, error) {
	switch name {
	case "AccountState":
		return &model.AccountState{}, nil
	case "OrderInitialized":
		return &model.OrderInitialized{}, nil
	case "OrderInvalid":
		return &model.OrderInvalid{}, nil
	case "OrderDenied":
		return &model.OrderDenied{}, nil
	case "OrderSubmitted":
		return &model.OrderSubmitted{}, nil
	case "OrderRejected":
		return &model.OrderRejected{}, nil
	case "OrderAccepted":
		return &model.OrderAccepted{}, nil
	case "OrderCancelReject":
		return &model.OrderCancelReject{}, nil
	case "OrderCancelled":
		return &model.OrderCancelled{}, nil
	case "OrderExpired":
		return &model.OrderExpired{}, nil
	case "OrderTriggered":
		return &model.OrderTriggered{}, nil
	case "OrderAmended":
		return &model.OrderAmended{}, nil
	case "OrderFilled":
		return &model.OrderFilled{}, nil
	case "PositionOpened":
		return &model.PositionOpened{}, nil
	case "PositionChanged":
		return &model.PositionChanged{}, nil
	case "PositionClosed":
		return &model.PositionClosed{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, name)
	}
}

// intern swaps parsed securities for their canonical cached instances.
func (c *Codec) intern(event model.Event) error {
	switch ev := event.(type) {
	case *model.OrderInitialized:
		return c.internSecurity(&ev.Security)
	case *model.OrderFilled:
		return c.internSecurity(&ev.Security)
	case *model.PositionOpened:
		return c.internPosition(&ev.Position, ev.Fill)
	case *model.PositionChanged:
		return c.internPosition(&ev.Position, ev.Fill)
	case *model.PositionClosed:
		return c.internPosition(&ev.Position, ev.Fill)
	}
	return nil
}

func (c *Codec) internPosition(snapshot *model.PositionSnapshot, fill *model.OrderFilled) error {
	if err := c.internSecurity(&snapshot.Security); err != nil {
		return err
	}
	if fill == nil {
		return nil
	}
	return c.internSecurity(&fill.Security)
}

func (c *Codec) internSecurity(security **model.Security) error {
	if *security == nil {
		return nil
	}
	canonical, err := c.securities.Get((*security).SerializableString())
	if err != nil {
		return err
	}
	*security = canonical
	return nil
}
