// Package batch implements key-scoped packet batching: packets sharing a
// rule's configured batch key accumulate until a distinct-member quorum
// is reached or a timeout elapses, at which point the group releases
// through a single path.
//
// Ported from original_source/src/batch.rs's BatchManager: the
// entry-or-create group map, the quorum check against a distinct-member
// set (not a raw packet count), and the timeout handler that forwards
// the group's raw packets and discards any remaining action chain
// rather than resuming it ("timeout doesn't apply remaining actions -
// just forwards", per the Rust handle_timeout comment this package
// mirrors). tokio::sync::RwLock + tokio::spawn(sleep) becomes a
// sync.Mutex-guarded map plus a per-group time.AfterFunc timer, matching
// how this codebase already schedules delayed work without a dedicated
// scheduler goroutine.
package batch

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/k4hvh/madbridge/internal/types"
)

// ReleaseReason distinguishes a quorum release from a timeout release,
// since only a quorum release resumes the rule's remaining action
// chain; a timeout release always forwards and stops.
type ReleaseReason int

const (
	ReleaseQuorum ReleaseReason = iota
	ReleaseTimeoutForward
)

// Release is one batch group's completed lifecycle, handed to the
// configured callback for the pipeline to act on.
type Release struct {
	Key              string
	BatchID          types.BatchID
	Reason           ReleaseReason
	Direction        types.Direction
	Packets          [][]byte
	RemainingActions types.ActionChain // nil on ReleaseTimeoutForward: the chain is discarded, not resumed.
}

type group struct {
	packets        [][]byte
	members        map[int64]struct{}
	threshold      int
	timeoutForward bool
	remaining      types.ActionChain
	direction      types.Direction
	batchID        types.BatchID
	createdAt      time.Time
	timer          *time.Timer
}

// Manager holds every in-flight batch group, keyed by the rule-configured
// batch key (distinct rules with the same key share a group, matching
// the Rust implementation's plain string-keyed map).
type Manager struct {
	mu      sync.Mutex
	groups  map[string]*group
	onRelease func(Release)
	log     *slog.Logger
	warnLimiter *rate.Limiter
}

// New builds a Manager. onRelease is invoked only for a timeout release
// of a group configured with timeout_forward, from the timer goroutine.
// A quorum release is returned by QueueOrRelease instead, and a timeout
// release without timeout_forward invokes nothing; each group is
// released exactly once either way.
func New(onRelease func(Release), log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		groups:      make(map[string]*group),
		onRelease:   onRelease,
		log:         log,
		warnLimiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// QueueOrRelease adds packet to the group named key, creating it (and
// arming its timeout timer) on first use. dir is the direction the
// packet arrived on; it is remembered on the group so a timeout release
// forwards toward the same destination the rule itself would have, same
// as the Rust original capturing `destination` in the timeout closure
// at batch-creation time. It returns the completed Release and true when
// this call pushed the group over its distinct-member threshold; the
// caller is responsible for acting on a true result (the Manager itself
// does not call onRelease for the quorum path — only for the timeout
// path, which fires from its own goroutine).
func (m *Manager) QueueOrRelease(key string, memberID int64, packet []byte, spec types.BatchSpec, dir types.Direction, remaining types.ActionChain) (Release, bool) {
	m.mu.Lock()

	g, exists := m.groups[key]
	if !exists {
		g = &group{
			threshold:      spec.Count,
			timeoutForward: spec.TimeoutForward,
			remaining:      remaining.Clone(),
			direction:      dir,
			members:        make(map[int64]struct{}),
			batchID:        types.NewBatchID(),
			createdAt:      time.Now(),
		}
		m.groups[key] = g
		timeout := time.Duration(spec.TimeoutSeconds * float64(time.Second))
		g.timer = time.AfterFunc(timeout, func() { m.handleTimeout(key) })
		m.log.Info("batch group created", "key", key, "threshold", spec.Count, "timeout_seconds", spec.TimeoutSeconds)
	}

	g.members[memberID] = struct{}{}
	g.packets = append(g.packets, packet)
	ready := len(g.members) >= g.threshold

	var rel Release
	if ready {
		delete(m.groups, key)
		g.timer.Stop()
		rel = Release{
			Key:              key,
			BatchID:          g.batchID,
			Reason:           ReleaseQuorum,
			Direction:        g.direction,
			Packets:          g.packets,
			RemainingActions: g.remaining,
		}
	}

	m.mu.Unlock()

	if ready {
		m.log.Info("batch quorum met", "key", key, "members", len(g.members), "packets", len(g.packets))
	}
	return rel, ready
}

func (m *Manager) handleTimeout(key string) {
	m.mu.Lock()
	g, ok := m.groups[key]
	if ok {
		delete(m.groups, key)
	}
	m.mu.Unlock()
	if !ok {
		return // already released by quorum; timer fired on a stale reference.
	}

	elapsed := time.Since(g.createdAt)
	if g.timeoutForward {
		if m.warnLimiter.Allow() {
			m.log.Warn("batch timed out, forwarding", "key", key, "elapsed", elapsed, "members", len(g.members), "threshold", g.threshold, "packets", len(g.packets))
		}
		m.onRelease(Release{
			Key:       key,
			BatchID:   g.batchID,
			Reason:    ReleaseTimeoutForward,
			Direction: g.direction,
			Packets:   g.packets,
		})
		return
	}
	if m.warnLimiter.Allow() {
		m.log.Warn("batch timed out, dropping", "key", key, "elapsed", elapsed, "members", len(g.members), "threshold", g.threshold, "packets", len(g.packets))
	}
}

// GroupInfo is a read-only snapshot of one in-flight batch group, for a
// control-plane inspection endpoint.
type GroupInfo struct {
	Key            string
	BatchID        types.BatchID
	MemberCount    int
	Threshold      int
	PacketCount    int
	Direction      types.Direction
	TimeoutForward bool
	CreatedAt      time.Time
}

// Snapshot lists every batch group currently awaiting quorum or timeout,
// in no particular order.
func (m *Manager) Snapshot() []GroupInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GroupInfo, 0, len(m.groups))
	for key, g := range m.groups {
		out = append(out, GroupInfo{
			Key:            key,
			BatchID:        g.batchID,
			MemberCount:    len(g.members),
			Threshold:      g.threshold,
			PacketCount:    len(g.packets),
			Direction:      g.direction,
			TimeoutForward: g.timeoutForward,
			CreatedAt:      g.createdAt,
		})
	}
	return out
}
