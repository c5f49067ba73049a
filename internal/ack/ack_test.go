package ack

import (
	"testing"

	"github.com/k4hvh/madbridge/internal/dialect"
	"github.com/k4hvh/madbridge/internal/frame"
	"github.com/k4hvh/madbridge/internal/message"
	"github.com/k4hvh/madbridge/internal/types"
)

func commandLongMsg(t *testing.T, targetSystem, targetComponent uint8, command uint16) message.Decoded {
	t.Helper()
	d, ok := dialect.LookupByName("COMMAND_LONG")
	if !ok {
		t.Fatalf("COMMAND_LONG not registered")
	}
	payload, err := d.Encode(dialect.CommandLong{
		Command:         command,
		TargetSystem:    targetSystem,
		TargetComponent: targetComponent,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	f := frame.Frame{Version: 2, SystemID: 1, ComponentID: 1, MessageID: 76, Payload: payload}
	return message.Decode(f, types.GCSToRouter)
}

func TestSynthesizeBuildsCommandAck(t *testing.T) {
	matched := commandLongMsg(t, 5, 6, 400)

	spec := &types.AckSpec{
		MessageType:          "COMMAND_ACK",
		SourceSystemField:    "target_system",
		SourceComponentField: "target_component",
		Fields: map[string]any{
			"progress": 100,
			"result":   map[string]any{"type": "MAV_RESULT_ACCEPTED"},
		},
		CopyFields: map[string]string{
			"command": "command",
		},
	}

	result, err := Synthesize(spec, matched)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if result.SystemID != 5 || result.ComponentID != 6 {
		t.Fatalf("SystemID/ComponentID = %d/%d, want 5/6", result.SystemID, result.ComponentID)
	}
	ca, ok := result.Message.(dialect.CommandAck)
	if !ok {
		t.Fatalf("expected CommandAck, got %T", result.Message)
	}
	if ca.Progress != 100 {
		t.Fatalf("Progress = %d, want 100", ca.Progress)
	}
	if ca.Result != 0 {
		t.Fatalf("Result = %d, want 0 (MAV_RESULT_ACCEPTED)", ca.Result)
	}
	if ca.Command != 400 {
		t.Fatalf("Command = %d, want 400 (copied from matched message)", ca.Command)
	}
}

func TestSynthesizeFailsOnUnresolvedSourceField(t *testing.T) {
	matched := commandLongMsg(t, 5, 6, 400)
	spec := &types.AckSpec{
		MessageType:          "COMMAND_ACK",
		SourceSystemField:    "nonexistent",
		SourceComponentField: "target_component",
	}
	if _, err := Synthesize(spec, matched); err == nil {
		t.Fatalf("expected error for unresolved source_system_field")
	}
}

func TestSynthesizeLiteralFieldOverridesCopiedValueOnCollision(t *testing.T) {
	matched := commandLongMsg(t, 5, 6, 400)
	spec := &types.AckSpec{
		MessageType:          "COMMAND_ACK",
		SourceSystemField:    "target_system",
		SourceComponentField: "target_component",
		CopyFields: map[string]string{
			"command": "command", // would copy 400 from the matched message
		},
		Fields: map[string]any{
			"command": map[string]any{"type": "MAV_CMD_999"}, // enum field; must win over the copied value
		},
	}

	result, err := Synthesize(spec, matched)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	ca := result.Message.(dialect.CommandAck)
	if ca.Command != 999 {
		t.Fatalf("Command = %d, want 999 (configured field must override copied value)", ca.Command)
	}
}

func TestSynthesizeSkipsMissingCopySource(t *testing.T) {
	matched := commandLongMsg(t, 5, 6, 400)
	spec := &types.AckSpec{
		MessageType:          "COMMAND_ACK",
		SourceSystemField:    "target_system",
		SourceComponentField: "target_component",
		CopyFields: map[string]string{
			"command": "nonexistent.path",
		},
	}
	result, err := Synthesize(spec, matched)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	ca := result.Message.(dialect.CommandAck)
	if ca.Command != 0 {
		t.Fatalf("expected Command to stay zero when copy source is missing, got %d", ca.Command)
	}
}
