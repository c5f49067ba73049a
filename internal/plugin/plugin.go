// Package plugin hosts the narrow on_match(ctx) contract a rule's
// `plugins` list invokes after trigger firing and before ACK synthesis.
// Return values are discarded; errors are logged by plugin name and
// never affect the action chain, mirroring the modifier host's
// fail-open semantics (see internal/modifier).
package plugin

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/k4hvh/madbridge/internal/modifier"
)

// Context reuses the modifier host's context shape: a plugin observes
// the same fields a modifier would, it just cannot rewrite the message.
type Context = modifier.Context

// Func is the on_match(ctx) contract a named plugin implements.
type Func func(Context) error

// Host is a registry of named plugins plus the fail-open invocation
// wrapper every rule's `plugins` entry goes through.
type Host struct {
	mu          sync.RWMutex
	funcs       map[string]Func
	log         *slog.Logger
	warnLimiter *rate.Limiter
}

// NewHost returns an empty Host.
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

// Register adds or replaces the plugin named name.
func (h *Host) Register(name string, fn Func) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.funcs[name] = fn
}

// Invoke runs the named plugin. An unknown name or a returned error is
// logged and otherwise ignored: plugins observe, they do not gate.
func (h *Host) Invoke(name string, ctx Context) {
	h.mu.RLock()
	fn, ok := h.funcs[name]
	h.mu.RUnlock()

	if !ok {
		if h.warnLimiter.Allow() {
			h.log.Warn("plugin not registered", "plugin", name)
		}
		return
	}
	if err := fn(ctx); err != nil {
		if h.warnLimiter.Allow() {
			h.log.Warn("plugin failed", "plugin", name, "error", err)
		}
	}
}

// InvokeAll runs every named plugin in order against the same ctx.
func (h *Host) InvokeAll(names []string, ctx Context) {
	for _, name := range names {
		h.Invoke(name, ctx)
	}
}

// Has reports whether name is registered, for startup cross-reference
// validation of a rule's plugins list against the loaded set.
func (h *Host) Has(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.funcs[name]
	return ok
}
