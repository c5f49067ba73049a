// Package modifier hosts the narrow modify(ctx) -> ctx contract a rule's
// "modify" action step invokes: hand the matched message's generic view
// and header metadata to a named modifier, get a (possibly changed) view
// back, and fail open (forward the original, unmodified) on any error.
//
// Ported from original_source/src/modifiers.rs's ModifierManager
// context shape (system_id, component_id, sequence, message_type,
// message, trigger_context) and its own fail-open behavior ("Modifier
// '{}' has no modify() function" logs and forwards the clone
// unmodified); the Lua runtime itself is replaced by a small Go-native
// function registry satisfying the same contract, since the scripting
// runtime is out of scope here — swapping in a real one later means
// implementing Func, not touching the pipeline.
package modifier

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/k4hvh/madbridge/internal/view"
)

// Context is the data a modifier can read and rewrite.
type Context struct {
	SystemID       int64
	ComponentID    int64
	Sequence       int64
	MessageType    string
	Message        view.Value
	TriggerContext map[string]any
}

// Func is the modify(ctx) -> ctx contract a named modifier implements.
type Func func(Context) (Context, error)

// Host is a registry of named modifiers plus the fail-open invocation
// wrapper every rule's "modify" step goes through.
type Host struct {
	mu          sync.RWMutex
	funcs       map[string]Func
	log         *slog.Logger
	warnLimiter *rate.Limiter
}

// NewHost returns an empty Host. Register built-ins with Register, or
// call RegisterBuiltins for the reference set.
func NewHost(log *slog.Logger) *Host {
	if log == nil {
		log = slog.Default()
	}
	return &Host{
		funcs:       make(map[string]Func),
		log:         log,
		warnLimiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Register adds or replaces the modifier named name.
func (h *Host) Register(name string, fn Func) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.funcs[name] = fn
}

// Apply invokes the named modifier and returns its result. An unknown
// name, a returned error, or (by construction, since Func cannot return
// a malformed view) any failure at all leaves ctx exactly as it was
// passed in: the action chain always continues with something
// forwardable.
func (h *Host) Apply(name string, ctx Context) Context {
	h.mu.RLock()
	fn, ok := h.funcs[name]
	h.mu.RUnlock()

	if !ok {
		h.warnf("modifier not registered, forwarding unmodified", "modifier", name)
		return ctx
	}

	result, err := fn(ctx)
	if err != nil {
		h.warnf("modifier failed, forwarding unmodified", "modifier", name, "error", err)
		return ctx
	}
	return result
}

// Has reports whether name is registered, for startup cross-reference
// validation of a rule's modifier_ref against the loaded set.
func (h *Host) Has(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.funcs[name]
	return ok
}

func (h *Host) warnf(msg string, args ...any) {
	if h.warnLimiter.Allow() {
		h.log.Warn(msg, args...)
	}
}
