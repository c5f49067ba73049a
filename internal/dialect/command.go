package dialect

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/k4hvh/madbridge/internal/view"
)

func init() {
	register(Descriptor{
		ID:       76,
		Name:     "COMMAND_LONG",
		CRCExtra: 152,
		Decode:   func(p []byte) (Message, error) { return decodeCommandLong(p) },
		Encode:   func(m Message) ([]byte, error) { return encodeCommandLong(m.(CommandLong)) },
		FromView: func(v view.Value) (Message, error) { return fromViewCommandLong(v), nil },
	})
	register(Descriptor{
		ID:       77,
		Name:     "COMMAND_ACK",
		CRCExtra: 143,
		Decode:   func(p []byte) (Message, error) { return decodeCommandAck(p) },
		Encode:   func(m Message) ([]byte, error) { return encodeCommandAck(m.(CommandAck)) },
		FromView: func(v view.Value) (Message, error) { return fromViewCommandAck(v), nil },
	})
}

var mavCmd = map[uint16]string{
	400: "MAV_CMD_COMPONENT_ARM_DISARM",
	176: "MAV_CMD_DO_SET_MODE",
	20:  "MAV_CMD_NAV_RETURN_TO_LAUNCH",
}

var mavResult = map[uint8]string{
	0: "MAV_RESULT_ACCEPTED",
	1: "MAV_RESULT_TEMPORARILY_REJECTED",
	2: "MAV_RESULT_DENIED",
	3: "MAV_RESULT_UNSUPPORTED",
	4: "MAV_RESULT_FAILED",
	5: "MAV_RESULT_IN_PROGRESS",
}

func enumName16(table map[uint16]string, v uint16, prefix string) string {
	if name, ok := table[v]; ok {
		return name
	}
	return fmt.Sprintf("%s_%d", prefix, v)
}

// CommandLong is the typed COMMAND_LONG (id 76) message: a generic
// command addressed to a target system/component with up to seven
// float parameters.
type CommandLong struct {
	Param1, Param2, Param3, Param4, Param5, Param6, Param7 float32
	Command                                                uint16
	TargetSystem, TargetComponent, Confirmation             uint8
}

func (c CommandLong) TypeName() string { return "COMMAND_LONG" }

func (c CommandLong) View() view.Value {
	return view.Record(map[string]view.Value{
		"param1":           view.Scalar(float64(c.Param1)),
		"param2":           view.Scalar(float64(c.Param2)),
		"param3":           view.Scalar(float64(c.Param3)),
		"param4":           view.Scalar(float64(c.Param4)),
		"param5":           view.Scalar(float64(c.Param5)),
		"param6":           view.Scalar(float64(c.Param6)),
		"param7":           view.Scalar(float64(c.Param7)),
		"command":          view.Enum(enumName16(mavCmd, c.Command, "MAV_CMD")),
		"target_system":    view.Scalar(int64(c.TargetSystem)),
		"target_component": view.Scalar(int64(c.TargetComponent)),
		"confirmation":     view.Scalar(int64(c.Confirmation)),
	})
}

func decodeCommandLong(p []byte) (CommandLong, error) {
	if len(p) < 33 {
		return CommandLong{}, fmt.Errorf("COMMAND_LONG payload too short: %d bytes", len(p))
	}
	f32 := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(p[off : off+4])) }
	return CommandLong{
		Param1:          f32(0),
		Param2:          f32(4),
		Param3:          f32(8),
		Param4:          f32(12),
		Param5:          f32(16),
		Param6:          f32(20),
		Param7:          f32(24),
		Command:         binary.LittleEndian.Uint16(p[28:30]),
		TargetSystem:    p[30],
		TargetComponent: p[31],
		Confirmation:    p[32],
	}, nil
}

func fromViewCommandLong(v view.Value) CommandLong {
	return CommandLong{
		Param1:          float32(fieldFloat(v, "param1")),
		Param2:          float32(fieldFloat(v, "param2")),
		Param3:          float32(fieldFloat(v, "param3")),
		Param4:          float32(fieldFloat(v, "param4")),
		Param5:          float32(fieldFloat(v, "param5")),
		Param6:          float32(fieldFloat(v, "param6")),
		Param7:          float32(fieldFloat(v, "param7")),
		Command:         enumValue16(mavCmd, fieldEnumType(v, "command"), "MAV_CMD"),
		TargetSystem:    uint8(fieldInt(v, "target_system")),
		TargetComponent: uint8(fieldInt(v, "target_component")),
		Confirmation:    uint8(fieldInt(v, "confirmation")),
	}
}

func encodeCommandLong(c CommandLong) ([]byte, error) {
	out := make([]byte, 33)
	put := func(off int, v float32) { binary.LittleEndian.PutUint32(out[off:off+4], math.Float32bits(v)) }
	put(0, c.Param1)
	put(4, c.Param2)
	put(8, c.Param3)
	put(12, c.Param4)
	put(16, c.Param5)
	put(20, c.Param6)
	put(24, c.Param7)
	binary.LittleEndian.PutUint16(out[28:30], c.Command)
	out[30] = c.TargetSystem
	out[31] = c.TargetComponent
	out[32] = c.Confirmation
	return out, nil
}

// CommandAck is the typed COMMAND_ACK (id 77) message: the result of a
// previously issued command.
type CommandAck struct {
	Command                     uint16
	Result                      uint8
	Progress                    uint8
	ResultParam2                int32
	TargetSystem, TargetComponent uint8
}

func (c CommandAck) TypeName() string { return "COMMAND_ACK" }

func (c CommandAck) View() view.Value {
	return view.Record(map[string]view.Value{
		"command":          view.Enum(enumName16(mavCmd, c.Command, "MAV_CMD")),
		"result":           view.Enum(enumName(mavResult, c.Result, "MAV_RESULT")),
		"progress":         view.Scalar(int64(c.Progress)),
		"result_param2":    view.Scalar(int64(c.ResultParam2)),
		"target_system":    view.Scalar(int64(c.TargetSystem)),
		"target_component": view.Scalar(int64(c.TargetComponent)),
	})
}

func decodeCommandAck(p []byte) (CommandAck, error) {
	if len(p) < 10 {
		return CommandAck{}, fmt.Errorf("COMMAND_ACK payload too short: %d bytes", len(p))
	}
	return CommandAck{
		Command:         binary.LittleEndian.Uint16(p[0:2]),
		Result:          p[2],
		Progress:        p[3],
		ResultParam2:    int32(binary.LittleEndian.Uint32(p[4:8])),
		TargetSystem:    p[8],
		TargetComponent: p[9],
	}, nil
}

func fromViewCommandAck(v view.Value) CommandAck {
	return CommandAck{
		Command:         enumValue16(mavCmd, fieldEnumType(v, "command"), "MAV_CMD"),
		Result:          enumValue(mavResult, fieldEnumType(v, "result"), "MAV_RESULT"),
		Progress:        uint8(fieldInt(v, "progress")),
		ResultParam2:    int32(fieldInt(v, "result_param2")),
		TargetSystem:    uint8(fieldInt(v, "target_system")),
		TargetComponent: uint8(fieldInt(v, "target_component")),
	}
}

func encodeCommandAck(c CommandAck) ([]byte, error) {
	out := make([]byte, 10)
	binary.LittleEndian.PutUint16(out[0:2], c.Command)
	out[2] = c.Result
	out[3] = c.Progress
	binary.LittleEndian.PutUint32(out[4:8], uint32(c.ResultParam2))
	out[8] = c.TargetSystem
	out[9] = c.TargetComponent
	return out, nil
}
