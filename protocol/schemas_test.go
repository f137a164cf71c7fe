package protocol_test

import (
	"encoding/json"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"hexarena/logic"
	"hexarena/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	s, err := jsonschema.Compile(filepath.Join("schemas", name))
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// encoded returns the JSON wire form of {code, payload} decoded as generic values.
func encoded(t *testing.T, code int, payload any) (envelope any, body any) {
	t.Helper()
	raw, err := protocol.JSON.Encode(code, payload)
	if err != nil {
		t.Fatalf("encode %d: %v", code, err)
	}
	var env map[string]any
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal %d: %v", code, err)
	}
	return env, env["payload"]
}

func validate(t *testing.T, s *jsonschema.Schema, v any) {
	t.Helper()
	if err := s.Validate(v); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestSchemas_ValidateInbound(t *testing.T) {
	envelope := compile(t, "envelope.schema.json")

	env, body := encoded(t, protocol.CodeJoin, protocol.JoinRequest{Name: "bee"})
	validate(t, envelope, env)
	validate(t, compile(t, "join.schema.json"), body)

	env, body = encoded(t, protocol.CodeInput, logic.InputState{Frame: 12, Direction: 270})
	validate(t, envelope, env)
	validate(t, compile(t, "input.schema.json"), body)

	env, _ = encoded(t, protocol.CodePickup, nil)
	validate(t, envelope, env)

	var bad any
	_ = json.Unmarshal([]byte(`{"frame":0,"direction":"north"}`), &bad)
	if err := compile(t, "input.schema.json").Validate(bad); err == nil {
		t.Fatalf("invalid input accepted")
	}
}

func TestSchemas_ValidateLiveOutbound(t *testing.T) {
	cfg := logic.DefaultConfig()
	cfg.Objects.Seed = 5
	gs := logic.NewGameState(&cfg, logic.WithLogger(log.New(io.Discard, "", 0)))
	gs.AddActor("first")
	a := gs.AddActor("second")
	gs.HandleInput(a.ID, logic.InputState{Frame: 1, Direction: 45})
	gs.UpdateTick()

	envelope := compile(t, "envelope.schema.json")
	schemas := map[logic.EventType]*jsonschema.Schema{
		logic.EventInitialState:     compile(t, "initial_state.schema.json"),
		logic.EventSimulationStates: compile(t, "state_stream.schema.json"),
		logic.EventTileOwnerChanged: compile(t, "tile_owner_changed.schema.json"),
	}
	seen := make(map[logic.EventType]bool)
	for _, ev := range gs.DrainEvents() {
		env, body := encoded(t, int(ev.Type), ev.Payload)
		validate(t, envelope, env)
		if s, ok := schemas[ev.Type]; ok {
			validate(t, s, body)
			seen[ev.Type] = true
		}
	}
	for typ := range schemas {
		if !seen[typ] {
			t.Fatalf("no %s event produced", typ)
		}
	}

	_, body := encoded(t, protocol.CodeJoin, protocol.JoinAck{Success: true, SessionID: "s-1", ActorID: a.ID, Config: &cfg})
	validate(t, compile(t, "join_ack.schema.json"), body)
}
