package control

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"timerpanel/internal/core/engine"
	"timerpanel/internal/core/model"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}
}

// Kind tells requests, responses and pushed events apart.
type Kind string

const (
	KindRequest  Kind = "request"
	KindResponse Kind = "response"
	KindEvent    Kind = "event"
)

// Envelope is the body of every frame. Requests carry Command and Data;
// responses echo the request ID; events name the event type in Command.
type Envelope struct {
	Kind    Kind            `cbor:"kind"`
	ID      uint64          `cbor:"id,omitempty"`
	Command string          `cbor:"command,omitempty"`
	Data    cbor.RawMessage `cbor:"data,omitempty"`
	Success bool            `cbor:"success,omitempty"`
	Message string          `cbor:"message,omitempty"`
}

// Marshal encodes v to CBOR.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

func encodeEnvelope(envelope *Envelope) ([]byte, error) {
	data, err := Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", envelope.Kind, err)
	}
	return data, nil
}

func decodeEnvelope(data []byte) (*Envelope, error) {
	var envelope Envelope
	if err := Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	switch envelope.Kind {
	case KindRequest, KindResponse, KindEvent:
	default:
		return nil, fmt.Errorf("decode envelope: unknown kind %q", envelope.Kind)
	}
	return &envelope, nil
}

// rawData encodes a payload for the Data field; nil stays absent.
func rawData(payload any) (cbor.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	data, err := Marshal(payload)
	if err != nil {
		return nil, err
	}
	return cbor.RawMessage(data), nil
}

// decodeData returns a decode func suitable for router.Decode.
func decodeData(data cbor.RawMessage) func(target any) error {
	return func(target any) error {
		if len(data) == 0 {
			return nil
		}
		return Unmarshal(data, target)
	}
}

func eventEnvelope(event engine.Event) (*Envelope, error) {
	data, err := rawData(event.Payload())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event.Type, err)
	}
	return &Envelope{Kind: KindEvent, Command: string(event.Type), Data: data}, nil
}

// DecodeEvent turns an event envelope back into an engine.Event.
func DecodeEvent(envelope *Envelope) (engine.Event, error) {
	event := engine.Event{Type: engine.EventType(envelope.Command)}
	decode := decodeData(envelope.Data)
	var err error
	switch event.Type {
	case engine.EventUpdateData:
		event.Snapshot = &model.Snapshot{}
		err = decode(event.Snapshot)
	case engine.EventUpdateFinishedList:
		err = decode(&event.Finished)
	case engine.EventPlaySound:
		event.Sound = &engine.SoundRequest{}
		err = decode(event.Sound)
	case engine.EventStopSound:
	default:
		return event, fmt.Errorf("unknown event %q", envelope.Command)
	}
	if err != nil {
		return event, fmt.Errorf("decode %s: %w", event.Type, err)
	}
	return event, nil
}
