// Package dialect holds the MAVLink message descriptor registry: the
// crc-extra byte and typed encode/decode functions for every message id
// the frame codec and message model know how to handle by name, plus the
// opaque fallback for everything else.
//
// Ships a representative slice of the real MAVLink "common" dialect —
// enough to exercise every generic-view construct (scalar, enum,
// bitflag, list, record) the condition matcher, ACK synthesizer, and
// batch extractor need — rather than the full 300+ message catalog a
// production dialect would carry. Adding a message is one Descriptor
// registration, not a change to any other package.
package dialect

import (
	"fmt"

	"github.com/k4hvh/madbridge/internal/frame"
	"github.com/k4hvh/madbridge/internal/view"
)

// Message is a decoded payload: a typed Go value plus its generic view.
type Message interface {
	// TypeName is the dialect name ("HEARTBEAT", "COMMAND_LONG", ...).
	TypeName() string
	// View returns the generic field-view tree for the payload fields
	// (not including the frame header — the pipeline merges header.*
	// in separately since header data is frame-level, not message-level).
	View() view.Value
}

// Descriptor binds a message id to its name, crc-extra byte, and
// marshal/unmarshal functions.
type Descriptor struct {
	ID       uint32
	Name     string
	CRCExtra byte
	Decode   func(payload []byte) (Message, error)
	Encode   func(Message) ([]byte, error)

	// FromView rebuilds a typed Message from a generic view tree,
	// mirroring Decode's byte-driven construction. Used to re-serialize
	// a modifier's or the ack synthesizer's edited/built view back into
	// a wire-ready typed message. Optional fields in the view fall back
	// to the zero value, matching the tolerant style Decode already
	// uses for payloads at the minimum required length.
	FromView func(view.Value) (Message, error)
}

var (
	byID   = map[uint32]Descriptor{}
	byName = map[string]Descriptor{}
)

func register(d Descriptor) {
	if _, exists := byID[d.ID]; exists {
		panic(fmt.Sprintf("dialect: duplicate message id %d", d.ID))
	}
	byID[d.ID] = d
	byName[d.Name] = d
}

// Lookup resolves a descriptor by message id.
func Lookup(id uint32) (Descriptor, bool) {
	d, ok := byID[id]
	return d, ok
}

// LookupByName resolves a descriptor by the config-facing message name.
func LookupByName(name string) (Descriptor, bool) {
	d, ok := byName[name]
	return d, ok
}

// CRCExtraLookup adapts the registry to frame.CRCExtraLookup.
func CRCExtraLookup(id uint32) (byte, bool) {
	d, ok := byID[id]
	if !ok {
		return 0, false
	}
	return d.CRCExtra, true
}

var _ frame.CRCExtraLookup = CRCExtraLookup

// Decode parses f.Payload into a typed Message using the registry,
// falling back to OpaqueMessage for unknown message ids per the
// specification's "still routable but not condition-matchable" rule.
func Decode(f frame.Frame) Message {
	d, ok := byID[f.MessageID]
	if !ok {
		return OpaqueMessage{ID: f.MessageID, Raw: f.Payload}
	}
	msg, err := d.Decode(f.Payload)
	if err != nil {
		return OpaqueMessage{ID: f.MessageID, Raw: f.Payload}
	}
	return msg
}

// Encode re-serializes a typed Message back into payload bytes. Callers
// pass the name from the originating descriptor or message.TypeName().
func Encode(name string, msg Message) ([]byte, error) {
	d, ok := byName[name]
	if !ok {
		if opaque, ok := msg.(OpaqueMessage); ok {
			return opaque.Raw, nil
		}
		return nil, fmt.Errorf("dialect: no encoder registered for %q", name)
	}
	return d.Encode(msg)
}

// FromView rebuilds a typed Message named name from a generic view
// tree, returning an error if name has no registered view constructor.
func FromView(name string, v view.Value) (Message, error) {
	d, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("dialect: unknown message type %q", name)
	}
	if d.FromView == nil {
		return nil, fmt.Errorf("dialect: %q has no view constructor", name)
	}
	return d.FromView(v)
}

// OpaqueMessage carries the raw payload of a message id the registry does
// not recognize. It is still forwardable, delayable, and batchable by
// header fields; it just cannot be addressed by payload field path.
type OpaqueMessage struct {
	ID  uint32
	Raw []byte
}

func (o OpaqueMessage) TypeName() string { return "UNKNOWN" }

func (o OpaqueMessage) View() view.Value {
	return view.Record(map[string]view.Value{
		"message_id": view.Scalar(int64(o.ID)),
	})
}
