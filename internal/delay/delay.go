// Package delay schedules deferred delivery of (packet, remaining
// actions) pairs: a rule's "delay" step parks a packet for
// delay_seconds, then hands it back to the pipeline to resume its
// action chain from the next step.
//
// Delays run independently of each other; no in-flight delay blocks or
// is blocked by another. Scheduling is grounded on this codebase's own
// time.AfterFunc-based deferred-retry pattern
// (natsclient/client.go's circuit-breaker backoff scheduling), the one
// place in the pack that schedules one-shot delayed work without a
// dedicated timer-wheel library.
package delay

import (
	"sync"
	"time"

	"github.com/k4hvh/madbridge/internal/types"
)

// Job is one delayed group of packets awaiting resumption of its action
// chain. Packets travel together through a single delay: a rule that
// matches once produces one Job even when the matched packets arrived
// as a batch release, since the Rust original delays the whole packet
// vector behind one sleep rather than one timer per packet.
type Job struct {
	Packets   [][]byte
	Remaining types.ActionChain
	Direction types.Direction
}

// Scheduler tracks every pending delay so Stop can cancel them all on
// shutdown without corrupting whichever deliveries are already running.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[uint64]*time.Timer
	nextID  uint64
	wg      sync.WaitGroup
	stopped bool
}

// New returns an empty, running Scheduler.
func New() *Scheduler {
	return &Scheduler{timers: make(map[uint64]*time.Timer)}
}

// Schedule arranges for deliver(job) to run after d elapses. Scheduling
// after Stop has been called is a silent no-op: shutdown is already in
// progress and nothing should be newly parked.
func (s *Scheduler) Schedule(d time.Duration, job Job, deliver func(Job)) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	id := s.nextID
	s.nextID++
	s.wg.Add(1)

	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		defer s.wg.Done()
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
		deliver(job)
	})
	s.timers[id] = timer
	s.mu.Unlock()
	_ = timer
}

// Stop cancels every pending delay and waits for any delivery already
// running to finish, then returns. Once stopped, a Scheduler never
// accepts new work.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	pending := s.timers
	s.timers = make(map[uint64]*time.Timer)
	s.mu.Unlock()

	for _, t := range pending {
		if t.Stop() {
			// Cancelled before it fired: its deliver goroutine never
			// runs, so its wg.Add must be balanced here instead.
			s.wg.Done()
		}
	}
	s.wg.Wait()
}

// Pending reports how many delays are currently parked, for metrics and
// the control plane's inspect surface.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
