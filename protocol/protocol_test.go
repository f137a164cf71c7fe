package protocol

import (
	"bytes"
	"errors"
	"testing"

	"hexarena/logic"
)

func TestCodecsRoundTripInbound(t *testing.T) {
	for _, name := range []string{"json", "msgpack"} {
		c, err := CodecByName(name)
		if err != nil {
			t.Fatalf("codec %s: %v", name, err)
		}
		data, err := c.Encode(CodeInput, logic.InputState{Frame: 9, Direction: 135.5})
		if err != nil {
			t.Fatalf("%s encode: %v", name, err)
		}
		m, err := c.Decode(data)
		if err != nil {
			t.Fatalf("%s decode: %v", name, err)
		}
		if m.Type != CodeInput {
			t.Fatalf("%s type = %d", name, m.Type)
		}
		var in logic.InputState
		if err := m.Decode(&in); err != nil {
			t.Fatalf("%s payload: %v", name, err)
		}
		if in.Frame != 9 || in.Direction != 135.5 {
			t.Fatalf("%s payload = %+v", name, in)
		}

		data, _ = c.Encode(CodeDrop, nil)
		m, err = c.Decode(data)
		if err != nil || m.Type != CodeDrop {
			t.Fatalf("%s empty payload: %v type=%d", name, err, m.Type)
		}
		req := JoinRequest{Name: "keep"}
		if err := m.Decode(&req); err != nil || req.Name != "keep" {
			t.Fatalf("%s decoding an empty payload touched the target", name)
		}
	}
}

func TestUnknownCodec(t *testing.T) {
	if _, err := CodecByName("xml"); !errors.Is(err, ErrUnknownCodec) {
		t.Fatalf("err = %v, want ErrUnknownCodec", err)
	}
	if _, err := NewWire(logic.TransportConfig{Codec: "protobuf"}); !errors.Is(err, ErrUnknownCodec) {
		t.Fatalf("NewWire err = %v", err)
	}
}

func TestPackCompressesAboveThreshold(t *testing.T) {
	small := []byte(`{"type":2002}`)
	frame, err := Pack(small, 64)
	if err != nil {
		t.Fatal(err)
	}
	if frame[0] != flagRaw || !bytes.Equal(frame[1:], small) {
		t.Fatalf("small frame = %v", frame)
	}

	big := bytes.Repeat([]byte("tile-owner-changed "), 200)
	frame, err = Pack(big, 64)
	if err != nil {
		t.Fatal(err)
	}
	if frame[0] != flagLZ4 || len(frame) >= len(big) {
		t.Fatalf("big frame flag=%d len=%d (raw %d)", frame[0], len(frame), len(big))
	}
	out, err := Unpack(frame)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, big) {
		t.Fatalf("lz4 round trip mismatch")
	}

	frame, _ = Pack(big, 0)
	if frame[0] != flagRaw {
		t.Fatalf("threshold 0 should disable compression")
	}
}

func TestUnpackErrors(t *testing.T) {
	if _, err := Unpack(nil); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("nil frame err = %v", err)
	}
	if _, err := Unpack([]byte{7, 1, 2}); !errors.Is(err, ErrBadFlag) {
		t.Fatalf("bad flag err = %v", err)
	}
	w := Wire{Codec: JSON}
	if _, err := w.Unmarshal([]byte{flagRaw}); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("flag-only frame err = %v", err)
	}
	if _, err := w.Unmarshal([]byte{flagRaw, '{'}); err == nil {
		t.Fatalf("truncated json accepted")
	}
}

func TestUnpackRejectsOversizedInflation(t *testing.T) {
	big := make([]byte, 12<<20)
	frame, err := Pack(big, 1)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if len(frame) > 1<<16 {
		t.Fatalf("packed frame is %d bytes, expected it to fit a websocket message", len(frame))
	}
	if _, err := Unpack(frame); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("err = %v, want ErrFrameTooLarge", err)
	}

	edge, _ := Pack(make([]byte, MaxDecoded), 1)
	out, err := Unpack(edge)
	if err != nil || len(out) != MaxDecoded {
		t.Fatalf("frame at the limit: len=%d err=%v", len(out), err)
	}
}

func TestWireEventRoundTrip(t *testing.T) {
	for _, codec := range []string{"json", "msgpack"} {
		w, err := NewWire(logic.TransportConfig{Codec: codec, CompressThreshold: 128})
		if err != nil {
			t.Fatal(err)
		}
		states := make([]logic.ActorState, 0, 40)
		for i := 1; i <= 40; i++ {
			states = append(states, logic.ActorState{
				ActorID: logic.ActorID(i),
				State:   logic.SimulationState{Frame: int64(i), Direction: 90, Position: logic.Vector2{X: float64(i), Y: -1}},
			})
		}
		ev := logic.Event{Type: logic.EventSimulationStates, Payload: logic.StateStream{Tick: 77, States: states}}
		frame, err := w.MarshalEvent(ev)
		if err != nil {
			t.Fatalf("%s marshal: %v", codec, err)
		}
		if frame[0] != flagLZ4 {
			t.Fatalf("%s: large stream was not compressed", codec)
		}
		m, err := w.Unmarshal(frame)
		if err != nil {
			t.Fatalf("%s unmarshal: %v", codec, err)
		}
		got, err := DecodeEvent(m)
		if err != nil {
			t.Fatalf("%s decode event: %v", codec, err)
		}
		stream := got.Payload.(logic.StateStream)
		if got.Type != logic.EventSimulationStates || stream.Tick != 77 || len(stream.States) != 40 {
			t.Fatalf("%s event = %v tick=%d n=%d", codec, got.Type, stream.Tick, len(stream.States))
		}
		if stream.States[39] != states[39] {
			t.Fatalf("%s last state = %+v", codec, stream.States[39])
		}
	}
}

func TestDecodeEventUnknownType(t *testing.T) {
	data, _ := JSON.Encode(4242, nil)
	m, _ := JSON.Decode(data)
	if _, err := DecodeEvent(m); err == nil {
		t.Fatalf("unknown event type decoded")
	}
}
