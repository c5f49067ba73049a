package trigger

import (
	"testing"
	"time"

	"github.com/k4hvh/madbridge/internal/rules"
	"github.com/k4hvh/madbridge/internal/types"
)

func newStore(t *testing.T, names ...string) *rules.Store {
	t.Helper()
	var configs []types.RuleConfig
	for _, n := range names {
		configs = append(configs, types.RuleConfig{
			Name:             n,
			MessageType:      "HEARTBEAT",
			Direction:        types.BothDirections,
			Actions:          types.ActionChain{types.ActionForward},
			EnabledByDefault: false,
		})
	}
	store, err := rules.NewStore(configs)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func boolPtr(b bool) *bool          { return &b }
func floatPtr(f float64) *float64   { return &f }

func TestFireActivatesAndDeactivates(t *testing.T) {
	store := newStore(t, "a", "b")
	_ = store.Enable("b")
	eng := New(store)

	errs := eng.Fire(&types.TriggerSpec{
		ActivateRules:   []string{"a"},
		DeactivateRules: []string{"b"},
	})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	ra, _ := store.ByName("a")
	if !ra.Enabled() {
		t.Fatalf("expected rule a enabled after activation")
	}
	rb, _ := store.ByName("b")
	if rb.Enabled() {
		t.Fatalf("expected rule b disabled after deactivation")
	}
}

func TestFireRespectsOnMatchFalse(t *testing.T) {
	store := newStore(t, "a")
	eng := New(store)

	errs := eng.Fire(&types.TriggerSpec{
		OnMatch:       boolPtr(false),
		ActivateRules: []string{"a"},
	})
	if errs != nil {
		t.Fatalf("unexpected errors: %v", errs)
	}
	ra, _ := store.ByName("a")
	if ra.Enabled() {
		t.Fatalf("expected rule a to remain disabled when on_match is false")
	}
}

func TestReaperExpiresActivation(t *testing.T) {
	store := newStore(t, "a")
	eng := New(store, WithReaperInterval(10*time.Millisecond))
	eng.Start()
	defer eng.Stop()

	eng.Fire(&types.TriggerSpec{
		ActivateRules:   []string{"a"},
		DurationSeconds: floatPtr(0.02),
	})

	ra, _ := store.ByName("a")
	if !ra.Enabled() {
		t.Fatalf("expected rule a enabled immediately after activation")
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if !ra.Enabled() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected rule a to be disabled by the reaper within 500ms")
}

func TestRepeatedActivationReplacesExpiry(t *testing.T) {
	store := newStore(t, "a")
	eng := New(store)

	eng.Fire(&types.TriggerSpec{ActivateRules: []string{"a"}, DurationSeconds: floatPtr(100)})
	first := eng.expirations["a"]

	eng.Fire(&types.TriggerSpec{ActivateRules: []string{"a"}, DurationSeconds: floatPtr(1)})
	second := eng.expirations["a"]

	if !second.Before(first) {
		t.Fatalf("expected the second (shorter) activation to replace the first's expiry")
	}
}

func TestFireReportsUnresolvedNames(t *testing.T) {
	store := newStore(t, "a")
	eng := New(store)

	errs := eng.Fire(&types.TriggerSpec{ActivateRules: []string{"ghost"}})
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got %v", errs)
	}
}
