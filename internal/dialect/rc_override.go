package dialect

import (
	"encoding/binary"
	"fmt"

	"github.com/k4hvh/madbridge/internal/view"
)

func init() {
	register(Descriptor{
		ID:       70,
		Name:     "RC_CHANNELS_OVERRIDE",
		CRCExtra: 124,
		Decode:   func(p []byte) (Message, error) { return decodeRCOverride(p) },
		Encode:   func(m Message) ([]byte, error) { return encodeRCOverride(m.(RCChannelsOverride)) },
		FromView: func(v view.Value) (Message, error) { return fromViewRCOverride(v), nil },
	})
}

const rcChannelCount = 8

// RCChannelsOverride is the typed RC_CHANNELS_OVERRIDE (id 70) message:
// eight raw RC channel overrides addressed to a target system/component.
// The wire layout keeps the channels as discrete uint16 fields (matching
// the real dialect); the generic view presents them as a "channels" list
// so the condition matcher and batch extractor have a list-typed field to
// exercise without requiring every message to carry one on the wire.
type RCChannelsOverride struct {
	TargetSystem, TargetComponent uint8
	Channels                      [rcChannelCount]uint16
}

func (r RCChannelsOverride) TypeName() string { return "RC_CHANNELS_OVERRIDE" }

func (r RCChannelsOverride) View() view.Value {
	items := make([]view.Value, rcChannelCount)
	for i, ch := range r.Channels {
		items[i] = view.Scalar(int64(ch))
	}
	return view.Record(map[string]view.Value{
		"target_system":    view.Scalar(int64(r.TargetSystem)),
		"target_component": view.Scalar(int64(r.TargetComponent)),
		"channels":         view.List(items),
	})
}

func fromViewRCOverride(v view.Value) RCChannelsOverride {
	r := RCChannelsOverride{
		TargetSystem:    uint8(fieldInt(v, "target_system")),
		TargetComponent: uint8(fieldInt(v, "target_component")),
	}
	channels, ok := v.Field("channels")
	if !ok {
		return r
	}
	for i := 0; i < rcChannelCount; i++ {
		item, ok := channels.Index(i)
		if !ok {
			break
		}
		n, _ := item.Int()
		r.Channels[i] = uint16(n)
	}
	return r
}

func decodeRCOverride(p []byte) (RCChannelsOverride, error) {
	want := 2 + rcChannelCount*2
	if len(p) < want {
		return RCChannelsOverride{}, fmt.Errorf("RC_CHANNELS_OVERRIDE payload too short: %d bytes", len(p))
	}
	var r RCChannelsOverride
	for i := 0; i < rcChannelCount; i++ {
		r.Channels[i] = binary.LittleEndian.Uint16(p[i*2 : i*2+2])
	}
	off := rcChannelCount * 2
	r.TargetSystem = p[off]
	r.TargetComponent = p[off+1]
	return r, nil
}

func encodeRCOverride(r RCChannelsOverride) ([]byte, error) {
	out := make([]byte, 2+rcChannelCount*2)
	for i := 0; i < rcChannelCount; i++ {
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], r.Channels[i])
	}
	off := rcChannelCount * 2
	out[off] = r.TargetSystem
	out[off+1] = r.TargetComponent
	return out, nil
}
