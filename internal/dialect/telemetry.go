package dialect

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/k4hvh/madbridge/internal/view"
)

func init() {
	register(Descriptor{
		ID:       30,
		Name:     "ATTITUDE",
		CRCExtra: 39,
		Decode:   func(p []byte) (Message, error) { return decodeAttitude(p) },
		Encode:   func(m Message) ([]byte, error) { return encodeAttitude(m.(Attitude)) },
		FromView: func(v view.Value) (Message, error) { return fromViewAttitude(v), nil },
	})
	register(Descriptor{
		ID:       1,
		Name:     "SYS_STATUS",
		CRCExtra: 124,
		Decode:   func(p []byte) (Message, error) { return decodeSysStatus(p) },
		Encode:   func(m Message) ([]byte, error) { return encodeSysStatus(m.(SysStatus)) },
		FromView: func(v view.Value) (Message, error) { return fromViewSysStatus(v), nil },
	})
}

// Attitude is the typed ATTITUDE (id 30) message: vehicle orientation and
// angular rates.
type Attitude struct {
	TimeBootMs                                   uint32
	Roll, Pitch, Yaw, RollSpeed, PitchSpeed, YawSpeed float32
}

func (a Attitude) TypeName() string { return "ATTITUDE" }

func (a Attitude) View() view.Value {
	return view.Record(map[string]view.Value{
		"time_boot_ms": view.Scalar(int64(a.TimeBootMs)),
		"roll":         view.Scalar(float64(a.Roll)),
		"pitch":        view.Scalar(float64(a.Pitch)),
		"yaw":          view.Scalar(float64(a.Yaw)),
		"rollspeed":    view.Scalar(float64(a.RollSpeed)),
		"pitchspeed":   view.Scalar(float64(a.PitchSpeed)),
		"yawspeed":     view.Scalar(float64(a.YawSpeed)),
	})
}

func decodeAttitude(p []byte) (Attitude, error) {
	if len(p) < 28 {
		return Attitude{}, fmt.Errorf("ATTITUDE payload too short: %d bytes", len(p))
	}
	f32 := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(p[off : off+4])) }
	return Attitude{
		TimeBootMs: binary.LittleEndian.Uint32(p[0:4]),
		Roll:       f32(4),
		Pitch:      f32(8),
		Yaw:        f32(12),
		RollSpeed:  f32(16),
		PitchSpeed: f32(20),
		YawSpeed:   f32(24),
	}, nil
}

func fromViewAttitude(v view.Value) Attitude {
	return Attitude{
		TimeBootMs: uint32(fieldInt(v, "time_boot_ms")),
		Roll:       float32(fieldFloat(v, "roll")),
		Pitch:      float32(fieldFloat(v, "pitch")),
		Yaw:        float32(fieldFloat(v, "yaw")),
		RollSpeed:  float32(fieldFloat(v, "rollspeed")),
		PitchSpeed: float32(fieldFloat(v, "pitchspeed")),
		YawSpeed:   float32(fieldFloat(v, "yawspeed")),
	}
}

func encodeAttitude(a Attitude) ([]byte, error) {
	out := make([]byte, 28)
	binary.LittleEndian.PutUint32(out[0:4], a.TimeBootMs)
	put := func(off int, v float32) { binary.LittleEndian.PutUint32(out[off:off+4], math.Float32bits(v)) }
	put(4, a.Roll)
	put(8, a.Pitch)
	put(12, a.Yaw)
	put(16, a.RollSpeed)
	put(20, a.PitchSpeed)
	put(24, a.YawSpeed)
	return out, nil
}

// SysStatus is a reduced typed SYS_STATUS (id 1) message: onboard sensor
// bitmasks plus battery voltage and remaining percentage.
type SysStatus struct {
	SensorsPresent, SensorsEnabled, SensorsHealth uint32
	VoltageBattery                                uint16
	BatteryRemaining                              int8
}

func (s SysStatus) TypeName() string { return "SYS_STATUS" }

func (s SysStatus) View() view.Value {
	return view.Record(map[string]view.Value{
		"onboard_control_sensors_present": view.Flags(int64(s.SensorsPresent)),
		"onboard_control_sensors_enabled": view.Flags(int64(s.SensorsEnabled)),
		"onboard_control_sensors_health":  view.Flags(int64(s.SensorsHealth)),
		"voltage_battery":                 view.Scalar(int64(s.VoltageBattery)),
		"battery_remaining":               view.Scalar(int64(s.BatteryRemaining)),
	})
}

func decodeSysStatus(p []byte) (SysStatus, error) {
	if len(p) < 15 {
		return SysStatus{}, fmt.Errorf("SYS_STATUS payload too short: %d bytes", len(p))
	}
	return SysStatus{
		SensorsPresent:    binary.LittleEndian.Uint32(p[0:4]),
		SensorsEnabled:    binary.LittleEndian.Uint32(p[4:8]),
		SensorsHealth:     binary.LittleEndian.Uint32(p[8:12]),
		VoltageBattery:    binary.LittleEndian.Uint16(p[12:14]),
		BatteryRemaining:  int8(p[14]),
	}, nil
}

func fromViewSysStatus(v view.Value) SysStatus {
	return SysStatus{
		SensorsPresent:   uint32(fieldFlagsBits(v, "onboard_control_sensors_present")),
		SensorsEnabled:   uint32(fieldFlagsBits(v, "onboard_control_sensors_enabled")),
		SensorsHealth:    uint32(fieldFlagsBits(v, "onboard_control_sensors_health")),
		VoltageBattery:   uint16(fieldInt(v, "voltage_battery")),
		BatteryRemaining: int8(fieldInt(v, "battery_remaining")),
	}
}

func encodeSysStatus(s SysStatus) ([]byte, error) {
	out := make([]byte, 15)
	binary.LittleEndian.PutUint32(out[0:4], s.SensorsPresent)
	binary.LittleEndian.PutUint32(out[4:8], s.SensorsEnabled)
	binary.LittleEndian.PutUint32(out[8:12], s.SensorsHealth)
	binary.LittleEndian.PutUint16(out[12:14], s.VoltageBattery)
	out[14] = byte(s.BatteryRemaining)
	return out, nil
}
