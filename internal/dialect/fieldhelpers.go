package dialect

import "github.com/k4hvh/madbridge/internal/view"

// Small field-extraction helpers shared by every FromView constructor.
// Each tolerates a missing or wrong-kind field by returning the zero
// value, matching Decode's tolerance for payloads at the documented
// minimum length: a FromView reconstruction is best-effort, not a
// strict schema validator (config validation is where malformed rule
// output should be caught, not here).

func fieldInt(v view.Value, name string) int64 {
	f, ok := v.Field(name)
	if !ok {
		return 0
	}
	n, _ := f.Int()
	return n
}

func fieldFloat(v view.Value, name string) float64 {
	f, ok := v.Field(name)
	if !ok {
		return 0
	}
	n, _ := f.Float()
	return n
}

func fieldEnumType(v view.Value, name string) string {
	f, ok := v.Field(name)
	if !ok {
		return ""
	}
	t, _ := f.EnumType()
	return t
}

func fieldFlagsBits(v view.Value, name string) int64 {
	f, ok := v.Field(name)
	if !ok {
		return 0
	}
	bits, _ := f.FlagsBits()
	return bits
}
