// Package trigger fires a matched rule's configured side effects on
// other rules: immediate deactivation, immediate (or duration-bounded)
// activation, and a background reaper that disables expired
// activations.
//
// Ported from this codebase's RuleStateManager (see
// original_source/src/rule_state.rs): an enabled-rules map plus a
// parallel expiration-timer map, with activate_rule always overwriting
// an existing expiry with the new deadline and a periodic cleanup pass
// disabling everything past its deadline. The stop-channel-plus-ticker
// goroutine shape mirrors this codebase's own cleanup loop
// (internal/service/signaling.go's Service.cleanup in the wider pack).
package trigger

import (
	"log/slog"
	"sync"
	"time"

	"github.com/k4hvh/madbridge/internal/rules"
	"github.com/k4hvh/madbridge/internal/types"
)

const defaultReaperInterval = time.Second

// Event records one activation or deactivation for callers that want to
// correlate trigger firings with a decision log.
type Event struct {
	ActivationID types.ActivationID
	RuleName     string
	Activated    bool
	Expired      bool      // true only for a reaper-driven deactivation, never an explicit Fire deactivation
	ExpiresAt    time.Time // zero for a permanent activation or any deactivation
}

// Engine owns the expiration timers layered on top of a rule store's
// plain enabled/disabled flags.
type Engine struct {
	store    *rules.Store
	log      *slog.Logger
	interval time.Duration

	mu          sync.Mutex
	expirations map[string]time.Time

	stopChan chan struct{}
	ticker   *time.Ticker

	onEvent func(Event)
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithReaperInterval overrides the default 1-second reaper wake period.
// The specification only requires "at least once per second"; a shorter
// interval is always acceptable.
func WithReaperInterval(d time.Duration) Option {
	return func(e *Engine) { e.interval = d }
}

// WithEventHook registers a callback invoked synchronously for every
// activation, deactivation, and expiry, e.g. to feed a decision log.
func WithEventHook(fn func(Event)) Option {
	return func(e *Engine) { e.onEvent = fn }
}

// WithLogger overrides the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New builds an Engine bound to store. Call Start to launch the reaper.
func New(store *rules.Store, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		log:         slog.Default(),
		interval:    defaultReaperInterval,
		expirations: make(map[string]time.Time),
		stopChan:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the background reaper goroutine. Safe to call once.
func (e *Engine) Start() {
	e.ticker = time.NewTicker(e.interval)
	go e.reap()
}

// Stop halts the reaper goroutine.
func (e *Engine) Stop() {
	close(e.stopChan)
}

func (e *Engine) reap() {
	for {
		select {
		case <-e.ticker.C:
			e.cleanupExpired()
		case <-e.stopChan:
			e.ticker.Stop()
			return
		}
	}
}

func (e *Engine) cleanupExpired() {
	now := time.Now()
	var expired []string

	e.mu.Lock()
	for name, deadline := range e.expirations {
		if !now.Before(deadline) {
			expired = append(expired, name)
		}
	}
	for _, name := range expired {
		delete(e.expirations, name)
	}
	e.mu.Unlock()

	for _, name := range expired {
		if err := e.store.Disable(name); err != nil {
			e.log.Warn("trigger reaper: rule vanished before expiry", "rule", name, "error", err)
			continue
		}
		e.log.Debug("rule activation expired", "rule", name)
		e.emit(Event{RuleName: name, Activated: false, Expired: true})
	}
}

// Fire applies spec's deactivate/activate lists. Deactivations happen
// first, matching the matched-rule-first-wins evaluation order in which
// a rule could conceivably deactivate and then reactivate itself.
// Unresolved rule names are reported but do not abort the remaining
// steps, since a config-validation pass should have already rejected
// unresolvable cross-references before the pipeline ever runs.
func (e *Engine) Fire(spec *types.TriggerSpec) []error {
	if spec == nil || !spec.FiresOnMatch() {
		return nil
	}
	var errs []error

	for _, name := range spec.DeactivateRules {
		if err := e.store.Disable(name); err != nil {
			errs = append(errs, err)
			continue
		}
		e.clearExpiration(name)
		e.emit(Event{RuleName: name, Activated: false})
	}

	for _, name := range spec.ActivateRules {
		if err := e.store.Enable(name); err != nil {
			errs = append(errs, err)
			continue
		}
		activationID := types.NewActivationID()
		var expiresAt time.Time
		if spec.DurationSeconds != nil {
			expiresAt = time.Now().Add(time.Duration(*spec.DurationSeconds * float64(time.Second)))
			e.setExpiration(name, expiresAt)
		} else {
			e.clearExpiration(name)
		}
		e.emit(Event{ActivationID: activationID, RuleName: name, Activated: true, ExpiresAt: expiresAt})
	}

	return errs
}

// setExpiration always overwrites any existing deadline: the most
// recent activation's deadline wins, whether it is later or earlier
// than the one it replaces.
func (e *Engine) setExpiration(name string, deadline time.Time) {
	e.mu.Lock()
	e.expirations[name] = deadline
	e.mu.Unlock()
}

func (e *Engine) clearExpiration(name string) {
	e.mu.Lock()
	delete(e.expirations, name)
	e.mu.Unlock()
}

func (e *Engine) emit(evt Event) {
	if e.onEvent != nil {
		e.onEvent(evt)
	}
}

// Activations returns a snapshot of every rule name with a live
// duration-bounded expiry, keyed by rule name. Permanent activations
// (no DurationSeconds) never appear here since they have no deadline to
// report.
func (e *Engine) Activations() map[string]time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]time.Time, len(e.expirations))
	for name, deadline := range e.expirations {
		out[name] = deadline
	}
	return out
}
