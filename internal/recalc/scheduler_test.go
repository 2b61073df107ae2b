package recalc

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRunsFastImmediately(t *testing.T) {
	var fast, full atomic.Int32
	s := NewScheduler(20*time.Millisecond, func() { fast.Add(1) }, func() { full.Add(1) })

	s.Trigger()
	s.Trigger()
	s.Trigger()

	if got := fast.Load(); got != 3 {
		t.Errorf("fast ran %d times, want 3 (once per trigger)", got)
	}
	s.Flush()
	if got := full.Load(); got != 1 {
		t.Errorf("full ran %d times, want 1 (burst coalesced)", got)
	}
}

func TestSchedulerDebouncesBursts(t *testing.T) {
	var full atomic.Int32
	s := NewScheduler(30*time.Millisecond, nil, func() { full.Add(1) })

	// Each trigger lands inside the previous window.
	for i := 0; i < 5; i++ {
		s.Trigger()
		time.Sleep(5 * time.Millisecond)
	}
	s.Flush()

	if got := full.Load(); got != 1 {
		t.Errorf("full ran %d times, want 1", got)
	}
}

func TestSchedulerSeparateBursts(t *testing.T) {
	var full atomic.Int32
	s := NewScheduler(10*time.Millisecond, nil, func() { full.Add(1) })

	s.Trigger()
	s.Flush()
	s.Trigger()
	s.Flush()

	if got := full.Load(); got != 2 {
		t.Errorf("full ran %d times, want 2 (one per settled burst)", got)
	}
}

func TestSchedulerNilCallbacks(t *testing.T) {
	s := NewScheduler(0, nil, nil)
	s.Trigger()
	s.Flush()
	// Reaching here without panicking is the assertion.
}

func TestSchedulerFlushAfterNaturalFire(t *testing.T) {
	var full atomic.Int32
	s := NewScheduler(5*time.Millisecond, nil, func() { full.Add(1) })

	s.Trigger()
	time.Sleep(30 * time.Millisecond) // let the window elapse on its own

	// Flushing an already-settled scheduler must not rerun the pass.
	s.Flush()
	s.Flush()

	if got := full.Load(); got != 1 {
		t.Errorf("full ran %d times, want 1", got)
	}
}

func TestSchedulerConcurrentTriggers(t *testing.T) {
	var full atomic.Int32
	s := NewScheduler(20*time.Millisecond, nil, func() { full.Add(1) })

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			for j := 0; j < 10; j++ {
				s.Trigger()
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	s.Flush()

	if got := full.Load(); got != 1 {
		t.Errorf("full ran %d times for one concurrent burst, want 1", got)
	}
}
