// Package message combines a parsed frame with its typed dialect message
// into the generic field view the rest of the pipeline addresses by
// string path, including the header.* path extension.
package message

import (
	"github.com/k4hvh/madbridge/internal/dialect"
	"github.com/k4hvh/madbridge/internal/frame"
	"github.com/k4hvh/madbridge/internal/types"
	"github.com/k4hvh/madbridge/internal/view"
)

// Decoded is one frame paired with its typed message and the direction it
// arrived on. It is the unit the pipeline driver, condition matcher, ACK
// synthesizer, and batch extractor all operate on.
type Decoded struct {
	Frame     frame.Frame
	Typed     dialect.Message
	Direction types.Direction
}

// Decode parses f's payload into a typed message and pairs it with the
// arrival direction.
func Decode(f frame.Frame, dir types.Direction) Decoded {
	return Decoded{Frame: f, Typed: dialect.Decode(f), Direction: dir}
}

// View builds the generic field-view tree: the typed message's payload
// fields at the top level, plus a "type" field naming the message
// variant and a "header" record exposing frame header fields through the
// same path syntax (so "header.system_id" resolves exactly like any
// payload field).
func (d Decoded) View() view.Value {
	header := view.Record(map[string]view.Value{
		"system_id":    view.Scalar(int64(d.Frame.SystemID)),
		"component_id": view.Scalar(int64(d.Frame.ComponentID)),
		"sequence":     view.Scalar(int64(d.Frame.Sequence)),
		"message_id":   view.Scalar(int64(d.Frame.MessageID)),
		"version":      view.Scalar(int64(d.Frame.Version)),
	})
	merged := d.Typed.View()
	merged = merged.WithField("header", header)
	merged = merged.WithField("type", view.Scalar(d.Typed.TypeName()))
	return merged
}

// Resolve looks up a path against d's generic view, covering both
// payload fields and header.* extensions uniformly.
func (d Decoded) Resolve(path string) (view.Value, bool) {
	return view.Resolve(d.View(), path)
}

// ResolveInt resolves path and returns it as an integer scalar, treating
// an enum or bitflag record as not an integer (callers that specifically
// want member ids use this; conditions use the typed comparison helpers
// in the rules package instead).
func (d Decoded) ResolveInt(path string) (int64, bool) {
	v, ok := d.Resolve(path)
	if !ok {
		return 0, false
	}
	return v.Int()
}
