// Package rules implements the condition matcher and the rule store: an
// ordered, priority-sorted collection of rules with per-rule atomic
// enable state, and AND-of-equalities condition evaluation against a
// decoded message's generic view.
//
// Condition compilation and cost-ordered evaluation are ported from this
// codebase's own DNF rule engine (internal/rules/compile.go,
// internal/rules/cost.go, internal/rules/operators.go,
// internal/rules/coercion.go in the teacher lineage), narrowed from a
// general boolean-algebra-over-typed-operators engine down to the flat
// AND-of-exact-equalities the specification actually calls for: no
// OR-groups, no Lt/Gt/Prefix/Suffix/In operators, no missing-field or
// coercion-failure policies — a condition's actual value either matches
// exactly (within float epsilon) or the condition fails.
package rules

import (
	"fmt"
	"math"
	"sort"

	"github.com/k4hvh/madbridge/internal/message"
	"github.com/k4hvh/madbridge/internal/view"
)

const floatEpsilon = 1e-6

// expectedKind discriminates the six equality kinds the condition
// matcher supports per the specification's value semantics.
type expectedKind int

const (
	expectInt expectedKind = iota
	expectFloat
	expectBool
	expectString
	expectEnum
	expectFlags
)

// expected is the compiled form of one condition's configured value.
type expected struct {
	kind expectedKind
	i    int64
	f    float64
	b    bool
	s    string
}

// condition is one compiled path -> expected-value entry, with a cost
// used only to order evaluation within a rule (cheaper comparisons run
// first so a mismatch short-circuits the rest).
type condition struct {
	path string
	want expected
	cost int
}

// conditionCost mirrors this codebase's existing cost-accounting idea
// (cheap scalar comparisons before expensive ones) collapsed to the
// handful of kinds this matcher actually has, instead of the full
// type-multiplier x wildcard-depth formula a general DNF engine needs.
func conditionCost(k expectedKind) int {
	switch k {
	case expectBool, expectInt, expectEnum, expectFlags:
		return 1
	case expectString:
		return 2
	case expectFloat:
		return 4
	default:
		return 8
	}
}

// ConditionSet is a compiled, cost-ordered AND-of-conditions.
type ConditionSet struct {
	conditions []condition
}

// CompileConditions turns a rule's raw condition map (as loaded from the
// rules document) into a ConditionSet. Unsupported value shapes are a
// config-validation error, fatal at startup per the error taxonomy.
func CompileConditions(raw map[string]any) (*ConditionSet, error) {
	set := &ConditionSet{conditions: make([]condition, 0, len(raw))}
	for path, value := range raw {
		want, err := compileExpected(value)
		if err != nil {
			return nil, fmt.Errorf("condition %q: %w", path, err)
		}
		set.conditions = append(set.conditions, condition{
			path: path,
			want: want,
			cost: conditionCost(want.kind),
		})
	}
	sort.SliceStable(set.conditions, func(i, j int) bool {
		return set.conditions[i].cost < set.conditions[j].cost
	})
	return set, nil
}

func compileExpected(value any) (expected, error) {
	switch v := value.(type) {
	case int:
		return expected{kind: expectInt, i: int64(v)}, nil
	case int64:
		return expected{kind: expectInt, i: v}, nil
	case float64:
		return expected{kind: expectFloat, f: v}, nil
	case bool:
		return expected{kind: expectBool, b: v}, nil
	case string:
		return expected{kind: expectString, s: v}, nil
	case map[string]any:
		if t, ok := v["type"]; ok {
			name, ok := t.(string)
			if !ok {
				return expected{}, fmt.Errorf("enum \"type\" must be a string, got %T", t)
			}
			return expected{kind: expectEnum, s: name}, nil
		}
		if bits, ok := v["bits"]; ok {
			n, err := toInt64(bits)
			if err != nil {
				return expected{}, fmt.Errorf("bitflag \"bits\": %w", err)
			}
			return expected{kind: expectFlags, i: n}, nil
		}
		return expected{}, fmt.Errorf("record condition must have a \"type\" or \"bits\" key")
	default:
		return expected{}, fmt.Errorf("unsupported condition value type %T", value)
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

// Matches reports whether every compiled condition holds against msg's
// generic view. A missing actual path fails the condition it belongs to,
// per the specification.
func (set *ConditionSet) Matches(msg message.Decoded) bool {
	if set == nil {
		return true
	}
	for _, c := range set.conditions {
		actual, ok := msg.Resolve(c.path)
		if !ok {
			return false
		}
		if !compareOne(c.want, actual) {
			return false
		}
	}
	return true
}

func compareOne(want expected, actual view.Value) bool {
	switch want.kind {
	case expectInt:
		// FlagsBits reads a bare integer as itself, so an integer
		// expectation also compares against a bitflag field's bits.
		got, ok := actual.FlagsBits()
		return ok && got == want.i
	case expectFloat:
		got, ok := actual.Float()
		return ok && math.Abs(got-want.f) <= floatEpsilon
	case expectBool:
		got, ok := actual.Bool()
		return ok && got == want.b
	case expectString:
		got, ok := actual.String()
		return ok && got == want.s
	case expectEnum:
		got, ok := actual.EnumType()
		return ok && got == want.s
	case expectFlags:
		got, ok := actual.FlagsBits()
		return ok && got == want.i
	default:
		return false
	}
}
