package domain

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Envelope is the wire form of an event: a type tag plus the event payload.
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalEvent encodes e as an Envelope.
func MarshalEvent(e Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("marshal event: nil event")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", e.Type(), err)
	}
	return json.Marshal(Envelope{Type: e.Type(), Data: data})
}

// UnmarshalEvent decodes an Envelope produced by MarshalEvent.
func UnmarshalEvent(b []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}
	return env.Event()
}

// Event decodes the envelope payload into the concrete event type.
func (env Envelope) Event() (Event, error) {
	target, err := eventTarget(env.Type)
	if err != nil {
		return nil, err
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Type, err)
		}
	}
	return derefEvent(target), nil
}

// DecodeEvent builds an event from a loosely typed map, as found in YAML
// documents or tool-call arguments. Ids and node types are accepted in their
// text form. Extra hooks run before the built-in text hook.
func DecodeEvent(t EventType, data map[string]any, hooks ...mapstructure.DecodeHookFunc) (Event, error) {
	target, err := eventTarget(t)
	if err != nil {
		return nil, err
	}

	hooks = append(hooks, mapstructure.TextUnmarshallerHookFunc())
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(hooks...),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           target,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build decoder for %s: %w", t, err)
	}
	if err := dec.Decode(data); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", t, err)
	}
	return derefEvent(target), nil
}

func eventTarget(t EventType) (any, error) {
	switch t {
	case EventCursorCreated:
		return &CursorCreated{}, nil
	case EventNodeCreated:
		return &NodeCreated{}, nil
	case EventNodeSelected:
		return &NodeSelected{}, nil
	case EventNodeDeselected:
		return &NodeDeselected{}, nil
	case EventNodeMoved:
		return &NodeMoved{}, nil
	case EventCursorMoved:
		return &CursorMoved{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, t)
}

func derefEvent(target any) Event {
	switch v := target.(type) {
	case *CursorCreated:
		return *v
	case *NodeCreated:
		return *v
	case *NodeSelected:
		return *v
	case *NodeDeselected:
		return *v
	case *NodeMoved:
		return *v
	case *CursorMoved:
		return *v
	}
	return nil
}
