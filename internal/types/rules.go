package types

// RuleConfig is the declarative, as-loaded shape of one rule document entry.
// Field names mirror the configuration schema documented in the config
// loader so that yaml tags and validator tags live in exactly one place.
type RuleConfig struct {
	Name        string          `yaml:"name" validate:"required"`
	MessageType string          `yaml:"message_type" validate:"required"`
	Priority    int             `yaml:"priority"`
	Direction   Direction       `yaml:"direction" validate:"required,oneof=gcs_to_router router_to_gcs both"`
	Conditions  map[string]any  `yaml:"conditions,omitempty"`
	Actions     []Action        `yaml:"actions" validate:"required,min=1"`

	ModifierRef string `yaml:"modifier,omitempty"`

	DelaySeconds *float64 `yaml:"delay_seconds,omitempty"`

	Batch *BatchSpec `yaml:"batch,omitempty"`

	AutoAck bool     `yaml:"auto_ack,omitempty"`
	Ack     *AckSpec `yaml:"ack,omitempty"`

	PluginRefs []string `yaml:"plugins,omitempty"`

	Trigger *TriggerSpec `yaml:"trigger,omitempty"`

	// EnabledByDefault is the rule's enabled state at startup, before any
	// trigger has had a chance to activate or deactivate it.
	EnabledByDefault bool `yaml:"enabled_by_default"`

	Description string `yaml:"description,omitempty"`
}

// BatchSpec configures the batch action for a rule.
type BatchSpec struct {
	Key                string  `yaml:"key"`
	Count              int     `yaml:"count" validate:"required_with=Key,gt=0"`
	TimeoutSeconds      float64 `yaml:"timeout_seconds"`
	TimeoutForward      bool    `yaml:"timeout_forward"`
	SystemIDField       string  `yaml:"system_id_field,omitempty"`
}

// AckSpec configures the auto_ack action for a rule.
type AckSpec struct {
	MessageType          string            `yaml:"message_type" validate:"required"`
	SourceSystemField    string            `yaml:"source_system_field" validate:"required"`
	SourceComponentField string            `yaml:"source_component_field" validate:"required"`
	Fields               map[string]any    `yaml:"fields,omitempty"`
	CopyFields           map[string]string `yaml:"copy_fields,omitempty"`
}

// TriggerSpec configures a rule's side effects on other rules when it matches.
type TriggerSpec struct {
	// OnMatch defaults to true: fire the trigger whenever this rule matches.
	OnMatch *bool `yaml:"on_match,omitempty"`

	// OnComplete is accepted without error per the reserved config-schema
	// field; this implementation treats it as a no-op distinct from
	// OnMatch. Setting it to a non-default value only produces a startup
	// warning, never a validation failure.
	OnComplete *bool `yaml:"on_complete,omitempty"`

	ActivateRules   []string `yaml:"activate_rules,omitempty"`
	DeactivateRules []string `yaml:"deactivate_rules,omitempty"`

	// DurationSeconds, when set, gives activated rules an expiry of
	// now+duration instead of activating them permanently.
	DurationSeconds *float64 `yaml:"duration_seconds,omitempty"`
}

// FiresOnMatch reports whether this trigger spec should fire on a match,
// honoring the on_match default of true.
func (t *TriggerSpec) FiresOnMatch() bool {
	if t == nil {
		return false
	}
	return t.OnMatch == nil || *t.OnMatch
}

// OnCompleteIsDefault reports whether OnComplete was left at its zero value.
func (t *TriggerSpec) OnCompleteIsDefault() bool {
	return t == nil || t.OnComplete == nil || !*t.OnComplete
}
