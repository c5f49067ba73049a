package dialect

import (
	"encoding/binary"
	"fmt"

	"github.com/k4hvh/madbridge/internal/view"
)

func init() {
	register(Descriptor{
		ID:       0,
		Name:     "HEARTBEAT",
		CRCExtra: 50,
		Decode:   func(p []byte) (Message, error) { return decodeHeartbeat(p) },
		Encode:   func(m Message) ([]byte, error) { return encodeHeartbeat(m.(Heartbeat)) },
		FromView: func(v view.Value) (Message, error) { return fromViewHeartbeat(v), nil },
	})
}

var mavType = map[uint8]string{
	0: "MAV_TYPE_GENERIC",
	1: "MAV_TYPE_FIXED_WING",
	2: "MAV_TYPE_QUADROTOR",
	6: "MAV_TYPE_GCS",
}

var mavAutopilot = map[uint8]string{
	0: "MAV_AUTOPILOT_GENERIC",
	3: "MAV_AUTOPILOT_ARDUPILOTMEGA",
	12: "MAV_AUTOPILOT_PX4",
}

var mavState = map[uint8]string{
	0: "MAV_STATE_UNINIT",
	3: "MAV_STATE_STANDBY",
	4: "MAV_STATE_ACTIVE",
	5: "MAV_STATE_CRITICAL",
}

func enumName(table map[uint8]string, v uint8, prefix string) string {
	if name, ok := table[v]; ok {
		return name
	}
	return fmt.Sprintf("%s_%d", prefix, v)
}

// Heartbeat is the typed HEARTBEAT (id 0) message: fixed telemetry
// announcing the sender's type, autopilot, mode, and status.
type Heartbeat struct {
	CustomMode     uint32
	Type           uint8
	Autopilot      uint8
	BaseMode       uint8
	SystemStatus   uint8
	MavlinkVersion uint8
}

func (h Heartbeat) TypeName() string { return "HEARTBEAT" }

func (h Heartbeat) View() view.Value {
	return view.Record(map[string]view.Value{
		"custom_mode":     view.Scalar(int64(h.CustomMode)),
		"type":            view.Enum(enumName(mavType, h.Type, "MAV_TYPE")),
		"autopilot":       view.Enum(enumName(mavAutopilot, h.Autopilot, "MAV_AUTOPILOT")),
		"base_mode":       view.Flags(int64(h.BaseMode)),
		"system_status":   view.Enum(enumName(mavState, h.SystemStatus, "MAV_STATE")),
		"mavlink_version": view.Scalar(int64(h.MavlinkVersion)),
	})
}

func decodeHeartbeat(p []byte) (Heartbeat, error) {
	if len(p) < 9 {
		return Heartbeat{}, fmt.Errorf("HEARTBEAT payload too short: %d bytes", len(p))
	}
	return Heartbeat{
		CustomMode:     binary.LittleEndian.Uint32(p[0:4]),
		Type:           p[4],
		Autopilot:      p[5],
		BaseMode:       p[6],
		SystemStatus:   p[7],
		MavlinkVersion: p[8],
	}, nil
}

func fromViewHeartbeat(v view.Value) Heartbeat {
	return Heartbeat{
		CustomMode:     uint32(fieldInt(v, "custom_mode")),
		Type:           enumValue(mavType, fieldEnumType(v, "type"), "MAV_TYPE"),
		Autopilot:      enumValue(mavAutopilot, fieldEnumType(v, "autopilot"), "MAV_AUTOPILOT"),
		BaseMode:       uint8(fieldFlagsBits(v, "base_mode")),
		SystemStatus:   enumValue(mavState, fieldEnumType(v, "system_status"), "MAV_STATE"),
		MavlinkVersion: uint8(fieldInt(v, "mavlink_version")),
	}
}

func encodeHeartbeat(h Heartbeat) ([]byte, error) {
	out := make([]byte, 9)
	binary.LittleEndian.PutUint32(out[0:4], h.CustomMode)
	out[4] = h.Type
	out[5] = h.Autopilot
	out[6] = h.BaseMode
	out[7] = h.SystemStatus
	out[8] = h.MavlinkVersion
	return out, nil
}
