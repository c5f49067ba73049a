package rules

import (
	"testing"

	"github.com/k4hvh/madbridge/internal/dialect"
	"github.com/k4hvh/madbridge/internal/frame"
	"github.com/k4hvh/madbridge/internal/message"
	"github.com/k4hvh/madbridge/internal/types"
)

func heartbeatMsg(t *testing.T, systemID uint8, baseMode uint8, st uint8) message.Decoded {
	t.Helper()
	f := frame.Frame{
		Version:     2,
		SystemID:    systemID,
		ComponentID: 1,
		MessageID:   0,
	}
	h := dialect.Heartbeat{BaseMode: baseMode, SystemStatus: st, MavlinkVersion: 3}
	payload, err := dialectEncodeHeartbeat(h)
	if err != nil {
		t.Fatalf("encode heartbeat: %v", err)
	}
	f.Payload = payload
	return message.Decode(f, types.GCSToRouter)
}

// dialectEncodeHeartbeat calls the package-private encoder indirectly via
// the registered descriptor, since tests live outside package dialect.
func dialectEncodeHeartbeat(h dialect.Heartbeat) ([]byte, error) {
	d, ok := dialect.LookupByName("HEARTBEAT")
	if !ok {
		panic("HEARTBEAT not registered")
	}
	return d.Encode(h)
}

func TestCompileConditionsSortsByCost(t *testing.T) {
	set, err := CompileConditions(map[string]any{
		"header.system_id": 1,
		"roll":             1.5,
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if set.conditions[0].cost > set.conditions[1].cost {
		t.Fatalf("expected ascending cost order, got %+v", set.conditions)
	}
}

func TestMatchesIntAndFlags(t *testing.T) {
	msg := heartbeatMsg(t, 42, 128, 4)

	set, err := CompileConditions(map[string]any{
		"header.system_id": 42,
		"base_mode":        map[string]any{"bits": 128},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !set.Matches(msg) {
		t.Fatalf("expected match")
	}
}

func TestMatchesFailsOnMismatch(t *testing.T) {
	msg := heartbeatMsg(t, 42, 128, 4)

	set, err := CompileConditions(map[string]any{
		"header.system_id": 99,
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if set.Matches(msg) {
		t.Fatalf("expected no match for system_id mismatch")
	}
}

func TestMatchesMissingPathFails(t *testing.T) {
	msg := heartbeatMsg(t, 42, 128, 4)

	set, err := CompileConditions(map[string]any{
		"nonexistent.path": 1,
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if set.Matches(msg) {
		t.Fatalf("expected no match for missing path")
	}
}

func TestMatchesEnum(t *testing.T) {
	msg := heartbeatMsg(t, 42, 128, 4)

	set, err := CompileConditions(map[string]any{
		"system_status": map[string]any{"type": "MAV_STATE_ACTIVE"},
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !set.Matches(msg) {
		t.Fatalf("expected system_status 4 to match MAV_STATE_ACTIVE")
	}
}

func TestCompileConditionsRejectsBadShape(t *testing.T) {
	if _, err := CompileConditions(map[string]any{"x": []int{1, 2}}); err == nil {
		t.Fatalf("expected error for unsupported condition value type")
	}
}
