package delay

import (
	"sync"
	"testing"
	"time"

	"github.com/k4hvh/madbridge/internal/types"
)

func TestScheduleDeliversAfterDelay(t *testing.T) {
	s := New()
	defer s.Stop()

	done := make(chan Job, 1)
	start := time.Now()
	s.Schedule(20*time.Millisecond, Job{Packets: [][]byte{[]byte("x")}, Remaining: types.ActionChain{types.ActionForward}}, func(j Job) {
		done <- j
	})

	select {
	case j := <-done:
		if time.Since(start) < 15*time.Millisecond {
			t.Fatalf("delivered too early")
		}
		if len(j.Packets) != 1 || string(j.Packets[0]) != "x" {
			t.Fatalf("unexpected packets payload: %q", j.Packets)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for delivery")
	}
}

func TestConcurrentDelaysDoNotBlockEachOther(t *testing.T) {
	s := New()
	defer s.Stop()

	var wg sync.WaitGroup
	wg.Add(3)
	var mu sync.Mutex
	var order []int

	s.Schedule(60*time.Millisecond, Job{}, func(Job) {
		mu.Lock()
		order = append(order, 3)
		mu.Unlock()
		wg.Done()
	})
	s.Schedule(10*time.Millisecond, Job{}, func(Job) {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
		wg.Done()
	})
	s.Schedule(30*time.Millisecond, Job{}, func(Job) {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		wg.Done()
	})

	waitDone := make(chan struct{})
	go func() { wg.Wait(); close(waitDone) }()
	select {
	case <-waitDone:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for all delays")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected delays to fire in increasing-delay order, got %v", order)
	}
}

func TestStopCancelsPendingAndReturnsPromptly(t *testing.T) {
	s := New()
	fired := make(chan struct{}, 1)
	s.Schedule(time.Hour, Job{}, func(Job) { fired <- struct{}{} })

	stopped := make(chan struct{})
	go func() { s.Stop(); close(stopped) }()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("Stop did not return promptly after cancelling a long-pending delay")
	}
	select {
	case <-fired:
		t.Fatalf("cancelled delay must not fire")
	default:
	}
}

func TestScheduleAfterStopIsNoop(t *testing.T) {
	s := New()
	s.Stop()
	fired := make(chan struct{}, 1)
	s.Schedule(time.Millisecond, Job{}, func(Job) { fired <- struct{}{} })
	select {
	case <-fired:
		t.Fatalf("expected no delivery after Stop")
	case <-time.After(50 * time.Millisecond):
	}
}
