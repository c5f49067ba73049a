package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/k4hvh/madbridge/internal/dialect"
	"github.com/k4hvh/madbridge/internal/modifier"
	"github.com/k4hvh/madbridge/internal/plugin"
	"github.com/k4hvh/madbridge/internal/types"
)

// rulesDocument is the on-disk shape of the rules file: a single
// top-level "rules" key holding the ordered rule list, matching
// original_source/src/config.rs's Config.rules field nested under the
// same combined document there; this implementation splits it into its
// own file so rules can be reloaded independently of network/logging.
type rulesDocument struct {
	Rules []types.RuleConfig `yaml:"rules"`
}

var structValidator = validator.New()

// LoadRules reads and struct-validates a rules document from path. It
// does not perform cross-reference validation (modifier_ref, plugins,
// trigger rule names, per-action parameters) — call Validate with the
// loaded modifier and plugin hosts once those are constructed.
func LoadRules(path string) ([]types.RuleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file %q: %w", path, err)
	}

	var doc rulesDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules file %q: %w", path, err)
	}

	for i, r := range doc.Rules {
		if err := structValidator.Struct(r); err != nil {
			return nil, fmt.Errorf("rule %d (%q): %w", i, r.Name, err)
		}
	}
	return doc.Rules, nil
}

// Validate cross-checks a loaded rule set against the modifier and
// plugin hosts it will run against and against itself (trigger
// activate/deactivate targets, duplicate names), confirms every
// message_type names a registered dialect message, and confirms every
// action that requires a parameter block actually carries one. modifiers
// and plugins may be nil to skip those two checks (useful for config
// tooling that validates structure without constructing the runtime
// hosts). log may be nil, in which case the default logger is used;
// it currently only receives the on_complete warning below.
func Validate(rulesList []types.RuleConfig, modifiers *modifier.Host, plugins *plugin.Host, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	names := make(map[string]bool, len(rulesList))
	for _, r := range rulesList {
		if names[r.Name] {
			return fmt.Errorf("%w: %q", types.ErrDuplicateRuleName, r.Name)
		}
		names[r.Name] = true
	}

	for _, r := range rulesList {
		if r.Trigger != nil && !r.Trigger.OnCompleteIsDefault() {
			log.Warn("rule sets on_complete to a non-default value; this implementation treats it as a no-op distinct from on_match", "rule", r.Name)
		}
		if _, ok := dialect.LookupByName(r.MessageType); !ok {
			return fmt.Errorf("rule %q: %w: %q", r.Name, types.ErrUnknownMessageType, r.MessageType)
		}
		if err := validateActionParameters(r); err != nil {
			return err
		}
		if modifiers != nil && r.ModifierRef != "" && !modifiers.Has(r.ModifierRef) {
			return fmt.Errorf("rule %q: %w: modifier %q", r.Name, types.ErrUnresolvedName, r.ModifierRef)
		}
		if plugins != nil {
			for _, p := range r.PluginRefs {
				if !plugins.Has(p) {
					return fmt.Errorf("rule %q: %w: plugin %q", r.Name, types.ErrUnresolvedName, p)
				}
			}
		}
		if r.Trigger != nil {
			for _, target := range r.Trigger.ActivateRules {
				if !names[target] {
					return fmt.Errorf("rule %q: %w: activate_rules target %q", r.Name, types.ErrUnresolvedName, target)
				}
			}
			for _, target := range r.Trigger.DeactivateRules {
				if !names[target] {
					return fmt.Errorf("rule %q: %w: deactivate_rules target %q", r.Name, types.ErrUnresolvedName, target)
				}
			}
		}
	}
	return nil
}

// validateActionParameters confirms every action in a rule's chain that
// depends on a parameter block has one: "modify" needs modifier_ref,
// "delay" needs delay_seconds, "batch" needs a batch spec, and auto_ack
// needs an ack spec. These are cross-field checks validator/v10's
// struct tags on types.RuleConfig can't express cleanly (the
// requirement is conditional on chain membership, not the field's own
// presence), so they're hand-written here instead of forced into tags.
func validateActionParameters(r types.RuleConfig) error {
	for _, action := range r.Actions {
		switch action {
		case types.ActionModify:
			if r.ModifierRef == "" {
				return fmt.Errorf("rule %q: %w: modify action without modifier", r.Name, types.ErrMissingActionParameter)
			}
		case types.ActionDelay:
			if r.DelaySeconds == nil {
				return fmt.Errorf("rule %q: %w: delay action without delay_seconds", r.Name, types.ErrMissingActionParameter)
			}
		case types.ActionBatch:
			if r.Batch == nil {
				return fmt.Errorf("rule %q: %w: batch action without batch spec", r.Name, types.ErrMissingActionParameter)
			}
		}
	}
	if r.AutoAck && r.Ack == nil {
		return fmt.Errorf("rule %q: %w: auto_ack set without ack spec", r.Name, types.ErrMissingActionParameter)
	}
	return nil
}
