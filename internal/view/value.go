// Package view implements the generic field-view tree: a self-describing
// representation of a decoded message used by the condition matcher, the
// ACK synthesizer, and the batch extractor to address fields by string
// path without knowing the message type at build time.
//
// Ported from the recursive path-resolution style of this codebase's own
// rule engine (see internal/rules/fieldpath.go for the JSON-value analog),
// adapted to walk a Value tree instead of json.RawMessage and extended
// with a Set counterpart the read-only condition matcher never needed.
package view

import "strconv"

// Kind discriminates the shape of a Value node.
type Kind int

const (
	KindScalar Kind = iota
	KindRecord
	KindList
)

// Value is one node of the generic field-view tree. Enum and bitflag
// fields are Records by convention: an enum is a Record with a "type"
// scalar naming the variant, a bitflag is a Record with a "bits" integer
// scalar.
type Value struct {
	kind   Kind
	scalar any
	record map[string]Value
	list   []Value
}

// Scalar wraps an int64, float64, bool, or string as a leaf Value.
func Scalar(v any) Value { return Value{kind: KindScalar, scalar: v} }

// Record wraps a named field map as a Value.
func Record(fields map[string]Value) Value { return Value{kind: KindRecord, record: fields} }

// List wraps an ordered slice of Values.
func List(items []Value) Value { return Value{kind: KindList, list: items} }

// Enum builds the record convention for an enumerant field.
func Enum(variant string) Value {
	return Record(map[string]Value{"type": Scalar(variant)})
}

// Flags builds the record convention for a bitflag field.
func Flags(bits int64) Value {
	return Record(map[string]Value{"bits": Scalar(bits)})
}

func (v Value) Kind() Kind { return v.kind }

// Field looks up a direct child of a record Value.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindRecord {
		return Value{}, false
	}
	child, ok := v.record[name]
	return child, ok
}

// WithField returns a copy of the record with name set to child, creating
// the record map if necessary. v must already be a record or the zero
// Value (auto-vivified into a record).
func (v Value) WithField(name string, child Value) Value {
	out := Value{kind: KindRecord, record: make(map[string]Value, len(v.record)+1)}
	for k, existing := range v.record {
		out.record[k] = existing
	}
	out.record[name] = child
	return out
}

// Index returns the nth element of a list Value.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Value{}, false
	}
	return v.list[i], true
}

// Int returns the scalar as an int64, following the spec's "integer
// expected vs integer actual: exact equality" rule — floats are never
// silently truncated here.
func (v Value) Int() (int64, bool) {
	if v.kind != KindScalar {
		return 0, false
	}
	switch n := v.scalar.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	}
	return 0, false
}

// Float returns the scalar as a float64.
func (v Value) Float() (float64, bool) {
	if v.kind != KindScalar {
		return 0, false
	}
	switch n := v.scalar.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

// Bool returns the scalar as a bool.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindScalar {
		return false, false
	}
	b, ok := v.scalar.(bool)
	return b, ok
}

// String returns the scalar as a string.
func (v Value) String() (string, bool) {
	if v.kind != KindScalar {
		return "", false
	}
	s, ok := v.scalar.(string)
	return s, ok
}

// EnumType returns the "type" field of an enum-convention record.
func (v Value) EnumType() (string, bool) {
	field, ok := v.Field("type")
	if !ok {
		return "", false
	}
	return field.String()
}

// FlagsBits returns the "bits" field of a bitflag-convention record, or
// the scalar directly if v is itself a bare integer (conditions may
// express a bitflag expectation either way per the spec).
func (v Value) FlagsBits() (int64, bool) {
	if v.kind == KindScalar {
		return v.Int()
	}
	field, ok := v.Field("bits")
	if !ok {
		return 0, false
	}
	return field.Int()
}

// Resolve walks a dot-delimited path against root, supporting record field
// lookup and single-level list indexing ("items.0.field"). It never
// expands wildcards: the condition matcher, ACK synthesizer, and batch
// extractor each address one concrete field, not a set of fields.
func Resolve(root Value, path string) (Value, bool) {
	if path == "" {
		return root, true
	}
	segments := splitPath(path)
	current := root
	for _, seg := range segments {
		switch current.kind {
		case KindRecord:
			child, ok := current.Field(seg)
			if !ok {
				return Value{}, false
			}
			current = child
		case KindList:
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return Value{}, false
			}
			child, ok := current.Index(idx)
			if !ok {
				return Value{}, false
			}
			current = child
		default:
			return Value{}, false
		}
	}
	return current, true
}

// Set writes val at the dot-delimited path under root, auto-vivifying
// missing intermediate records, and returns the updated tree. root must
// be a record (or the zero Value, treated as an empty record) — Set is
// used to build ACK replies and modifier results, never to mutate
// arbitrary list structures in place.
func Set(root Value, path string, val Value) Value {
	segments := splitPath(path)
	return setRecursive(root, segments, val)
}

func setRecursive(node Value, segments []string, val Value) Value {
	if len(segments) == 0 {
		return val
	}
	head, rest := segments[0], segments[1:]
	if node.kind != KindRecord {
		node = Value{kind: KindRecord}
	}
	child, ok := node.Field(head)
	if !ok {
		child = Value{kind: KindRecord}
	}
	return node.WithField(head, setRecursive(child, rest, val))
}

func splitPath(path string) []string {
	var segments []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			segments = append(segments, path[start:i])
			start = i + 1
		}
	}
	segments = append(segments, path[start:])
	return segments
}
