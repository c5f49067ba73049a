package rules

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/k4hvh/madbridge/internal/message"
	"github.com/k4hvh/madbridge/internal/types"
)

// CompiledRule pairs a rule's configuration with its compiled condition
// set and a runtime enable flag the trigger engine and control plane can
// flip without touching the rest of the store.
type CompiledRule struct {
	Config     types.RuleConfig
	Conditions *ConditionSet
	enabled    atomic.Bool
}

// Enabled reports whether the rule currently participates in lookup.
func (r *CompiledRule) Enabled() bool { return r.enabled.Load() }

// Store is the priority-ordered collection of compiled rules. Rules are
// sorted by descending priority with config order breaking ties
// (sort.SliceStable keeps the input order for equal priorities, matching
// the "stable; config order breaks ties" requirement).
type Store struct {
	rules  []*CompiledRule
	byName map[string]*CompiledRule
}

// NewStore compiles configs into a Store, rejecting duplicate rule names
// and any rule whose conditions fail to compile.
func NewStore(configs []types.RuleConfig) (*Store, error) {
	s := &Store{
		rules:  make([]*CompiledRule, 0, len(configs)),
		byName: make(map[string]*CompiledRule, len(configs)),
	}
	for _, cfg := range configs {
		if _, dup := s.byName[cfg.Name]; dup {
			return nil, fmt.Errorf("%w: %q", types.ErrDuplicateRuleName, cfg.Name)
		}
		conds, err := CompileConditions(cfg.Conditions)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", cfg.Name, err)
		}
		cr := &CompiledRule{Config: cfg, Conditions: conds}
		cr.enabled.Store(cfg.EnabledByDefault)
		s.rules = append(s.rules, cr)
		s.byName[cfg.Name] = cr
	}
	sort.SliceStable(s.rules, func(i, j int) bool {
		return s.rules[i].Config.Priority > s.rules[j].Config.Priority
	})
	return s, nil
}

// Lookup returns the first enabled rule, in priority order, whose
// direction and message type match and whose conditions hold against
// msg. First match wins: evaluation stops at the first hit.
func (s *Store) Lookup(dir types.Direction, messageType string, msg message.Decoded) (*CompiledRule, bool) {
	for _, r := range s.rules {
		if !r.Enabled() {
			continue
		}
		if !r.Config.Direction.Matches(dir) {
			continue
		}
		if r.Config.MessageType != messageType {
			continue
		}
		if r.Conditions.Matches(msg) {
			return r, true
		}
	}
	return nil, false
}

// Enable turns a rule on by name. It returns types.ErrUnresolvedName if
// no rule by that name exists.
func (s *Store) Enable(name string) error { return s.setEnabled(name, true) }

// Disable turns a rule off by name.
func (s *Store) Disable(name string) error { return s.setEnabled(name, false) }

func (s *Store) setEnabled(name string, on bool) error {
	r, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", types.ErrUnresolvedName, name)
	}
	r.enabled.Store(on)
	return nil
}

// ByName returns the compiled rule registered under name, for the
// control plane's inspect and enable/disable routes.
func (s *Store) ByName(name string) (*CompiledRule, bool) {
	r, ok := s.byName[name]
	return r, ok
}

// Names returns every rule name in priority order.
func (s *Store) Names() []string {
	names := make([]string, len(s.rules))
	for i, r := range s.rules {
		names[i] = r.Config.Name
	}
	return names
}
