package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"timewarp.dev/internal/protocol"
	"timewarp.dev/internal/sim/input"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func validateJSON(t *testing.T, s *jsonschema.Schema, raw []byte) error {
	t.Helper()
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return s.Validate(v)
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestSchemas_ValidateMessages(t *testing.T) {
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "timewarp",
		RunID:           "run-1",
	}
	if err := validateJSON(t, compile(t, "hello.schema.json"), mustMarshal(t, hello)); err != nil {
		t.Fatalf("hello: %v", err)
	}

	info := protocol.GameInfoMsg{
		Type:            protocol.TypeGameInfo,
		ProtocolVersion: protocol.Version,
		Tick:            12,
		Map:             "intro",
		Keys:            input.Of(input.KeyD, input.KeyLShift).Names(),
		Player:          protocol.PlayerInfo{X: 1.5, Y: -3, Health: 100},
		StateHash:       strings.Repeat("ab", 32),
	}
	gameInfo := compile(t, "game_info.schema.json")
	if err := validateJSON(t, gameInfo, mustMarshal(t, info)); err != nil {
		t.Fatalf("game info: %v", err)
	}

	info.StateHash = "nope"
	if err := validateJSON(t, gameInfo, mustMarshal(t, info)); err == nil {
		t.Fatalf("expected bad state hash rejected")
	}

	ack := protocol.AckMsg{Type: protocol.TypeAck, ProtocolVersion: protocol.Version, Tick: 12, Accepted: false, Code: protocol.ErrHashDrift}
	if err := validateJSON(t, compile(t, "ack.schema.json"), mustMarshal(t, ack)); err != nil {
		t.Fatalf("ack: %v", err)
	}
}

func TestSchemas_ValidateRecording(t *testing.T) {
	rec := input.Recording{
		{Keys: input.Of(input.KeyD)},
		{},
		{Gap: true},
		{Keys: input.Of(input.KeyW, input.KeyA, input.KeyLShift)},
	}
	s := compile(t, "recording.schema.json")
	if err := validateJSON(t, s, mustMarshal(t, rec)); err != nil {
		t.Fatalf("recording: %v", err)
	}
	if err := validateJSON(t, s, []byte(`[["Q"]]`)); err == nil {
		t.Fatalf("expected unknown key rejected")
	}
}

func TestDecodeBase(t *testing.T) {
	m, err := protocol.DecodeBase([]byte(`{"type":"ACK","protocol_version":"1.0","tick":3,"accepted":true}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != protocol.TypeAck || m.ProtocolVersion != "1.0" {
		t.Fatalf("unexpected base: %+v", m)
	}
}
