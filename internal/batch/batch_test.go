package batch

import (
	"sync"
	"testing"
	"time"

	"github.com/k4hvh/madbridge/internal/types"
)

func TestQueueOrReleaseOnQuorum(t *testing.T) {
	var released []Release
	var mu sync.Mutex
	mgr := New(func(r Release) {
		mu.Lock()
		released = append(released, r)
		mu.Unlock()
	}, nil)

	spec := types.BatchSpec{Count: 2, TimeoutSeconds: 60}
	remaining := types.ActionChain{types.ActionForward}

	rel, ready := mgr.QueueOrRelease("key1", 1, []byte("a"), spec, types.GCSToRouter, remaining)
	if ready {
		t.Fatalf("expected not ready after first unique member")
	}
	_ = rel

	rel, ready = mgr.QueueOrRelease("key1", 2, []byte("b"), spec, types.GCSToRouter, remaining)
	if !ready {
		t.Fatalf("expected ready after second unique member reaches threshold")
	}
	if rel.Reason != ReleaseQuorum {
		t.Fatalf("expected ReleaseQuorum, got %v", rel.Reason)
	}
	if len(rel.Packets) != 2 {
		t.Fatalf("expected 2 packets released, got %d", len(rel.Packets))
	}
	if len(rel.RemainingActions) != 1 || rel.RemainingActions[0] != types.ActionForward {
		t.Fatalf("expected remaining actions preserved on quorum release, got %v", rel.RemainingActions)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(released) != 0 {
		t.Fatalf("quorum release must not also fire the onRelease callback, got %d calls", len(released))
	}
}

func TestDuplicateMemberDoesNotCountTwice(t *testing.T) {
	mgr := New(func(Release) {}, nil)
	spec := types.BatchSpec{Count: 2, TimeoutSeconds: 60}

	_, ready := mgr.QueueOrRelease("key1", 1, []byte("a"), spec, types.GCSToRouter, nil)
	if ready {
		t.Fatalf("expected not ready")
	}
	_, ready = mgr.QueueOrRelease("key1", 1, []byte("a2"), spec, types.GCSToRouter, nil)
	if ready {
		t.Fatalf("expected still not ready: same member id seen twice should not advance quorum")
	}
}

func TestTimeoutForwardDiscardsRemainingActions(t *testing.T) {
	done := make(chan Release, 1)
	mgr := New(func(r Release) { done <- r }, nil)

	spec := types.BatchSpec{Count: 5, TimeoutSeconds: 0.02, TimeoutForward: true}
	mgr.QueueOrRelease("key1", 1, []byte("a"), spec, types.GCSToRouter, types.ActionChain{types.ActionModify, types.ActionForward})

	select {
	case r := <-done:
		if r.Reason != ReleaseTimeoutForward {
			t.Fatalf("expected ReleaseTimeoutForward, got %v", r.Reason)
		}
		if r.RemainingActions != nil {
			t.Fatalf("expected remaining actions discarded on timeout-forward, got %v", r.RemainingActions)
		}
		if len(r.Packets) != 1 {
			t.Fatalf("expected 1 packet forwarded, got %d", len(r.Packets))
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for timeout release")
	}
}

func TestTimeoutDropDoesNotCallback(t *testing.T) {
	called := make(chan struct{}, 1)
	mgr := New(func(Release) { called <- struct{}{} }, nil)

	spec := types.BatchSpec{Count: 5, TimeoutSeconds: 0.02, TimeoutForward: false}
	mgr.QueueOrRelease("key1", 1, []byte("a"), spec, types.GCSToRouter, nil)

	select {
	case <-called:
		t.Fatalf("expected no callback when timeout drops the batch")
	case <-time.After(200 * time.Millisecond):
	}
}
