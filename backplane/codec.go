package backplane

import (
	"encoding/json"
	"fmt"

	"pm-lab/domain/event"

	"github.com/google/uuid"
)

// wireEnvelope is the JSON shape carried over NATS subjects. Data is decoded
// by Type, so every event kind must be registered in decodeEvent.
type wireEnvelope struct {
	Origin uuid.UUID       `json:"origin"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
}

func encodeEnvelope(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env.Event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return json.Marshal(wireEnvelope{
		Origin: env.Origin,
		Type:   env.Event.Kind(),
		Data:   data,
	})
}

func decodeEnvelope(raw []byte) (Envelope, error) {
	var wire wireEnvelope
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	evt, err := decodeEvent(wire.Type, wire.Data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Origin: wire.Origin, Event: evt}, nil
}

func decodeEvent(kind string, data json.RawMessage) (event.DomainEvent, error) {
	switch kind {
	case event.KindPeerConnected:
		var evt event.PeerConnected
		return evt, json.Unmarshal(data, &evt)
	case event.KindPeerDisconnected:
		var evt event.PeerDisconnected
		return evt, json.Unmarshal(data, &evt)
	case event.KindDirectMessage:
		var evt event.MessageDelivered
		return evt, json.Unmarshal(data, &evt)
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
}
