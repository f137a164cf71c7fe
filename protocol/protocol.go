package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"hexarena/logic"
)

// Inbound message codes. Outbound codes are the logic.EventType values.
const (
	CodeJoin   = 1001
	CodeRejoin = 1002
	CodeInput  = 2001
	CodePickup = 2002
	CodeDrop   = 2003
)

var (
	ErrEmptyFrame   = errors.New("protocol: empty frame")
	ErrUnknownCodec = errors.New("protocol: unknown codec")
	ErrBadFlag      = errors.New("protocol: unknown frame flag")

	ErrFrameTooLarge = errors.New("protocol: frame inflates too large")
)

type JoinRequest struct {
	Name string `json:"name" msgpack:"name"`
}

// RejoinRequest resumes an actor. SessionID is the one from the last JoinAck for that actor.
type RejoinRequest struct {
	ActorID   logic.ActorID `json:"actor_id" msgpack:"actor_id"`
	SessionID string        `json:"session_id" msgpack:"session_id"`
	Name      string        `json:"name" msgpack:"name"`
}

// JoinAck answers join and rejoin on code 1001. Config carries the map constants both sides
// must agree on.
type JoinAck struct {
	Success   bool              `json:"success" msgpack:"success"`
	SessionID string            `json:"session_id" msgpack:"session_id"`
	ActorID   logic.ActorID     `json:"actor_id" msgpack:"actor_id"`
	Config    *logic.GameConfig `json:"config,omitempty" msgpack:"config,omitempty"`
}

// Message is a decoded envelope whose payload has not been unpacked yet.
type Message struct {
	Type    int
	payload []byte
	codec   Codec
}

// Decode unpacks the payload into v. A message without payload leaves v untouched.
func (m Message) Decode(v any) error {
	if len(m.payload) == 0 {
		return nil
	}
	return m.codec.unmarshal(m.payload, v)
}

// Codec turns {type, payload} envelopes into bytes and back.
type Codec interface {
	Name() string
	Encode(code int, payload any) ([]byte, error)
	Decode(data []byte) (Message, error)
	unmarshal(data []byte, v any) error
}

func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return Msgpack, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

var (
	JSON    Codec = jsonCodec{}
	Msgpack Codec = msgpackCodec{}
)

type jsonCodec struct{}

type jsonEnvelope struct {
	Type    int             `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Encode(code int, payload any) ([]byte, error) {
	return json.Marshal(struct {
		Type    int `json:"type"`
		Payload any `json:"payload,omitempty"`
	}{code, payload})
}

func (c jsonCodec) Decode(data []byte) (Message, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("decode json envelope: %w", err)
	}
	if string(env.Payload) == "null" {
		env.Payload = nil
	}
	return Message{Type: env.Type, payload: env.Payload, codec: c}, nil
}

func (jsonCodec) unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type msgpackCodec struct{}

type msgpackEnvelope struct {
	Type    int                `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload,omitempty"`
}

func (msgpackCodec) Name() string { return "msgpack" }

func (msgpackCodec) Encode(code int, payload any) ([]byte, error) {
	return msgpack.Marshal(&struct {
		Type    int `msgpack:"type"`
		Payload any `msgpack:"payload,omitempty"`
	}{code, payload})
}

func (c msgpackCodec) Decode(data []byte) (Message, error) {
	var env msgpackEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("decode msgpack envelope: %w", err)
	}
	// a nil payload encodes as the single byte 0xc0
	if len(env.Payload) == 1 && env.Payload[0] == 0xc0 {
		env.Payload = nil
	}
	return Message{Type: env.Type, payload: env.Payload, codec: c}, nil
}

func (msgpackCodec) unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }
