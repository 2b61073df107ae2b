package recalc

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDebounceWindow batches rapidly repeated edit events into one
// recalculation pass.
const DefaultDebounceWindow = 250 * time.Millisecond

// Scheduler debounces recalculation triggers. Every Trigger runs the
// fast pass immediately (sort and renumber only, for an instant UI
// response) and schedules the full pass after the debounce window.
// A trigger arriving before the window elapses supersedes the pending
// full pass, so only the newest input ever materializes: last write
// wins.
type Scheduler struct {
	window time.Duration
	fast   func()
	full   func()

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
	wg    sync.WaitGroup
}

// NewScheduler creates a scheduler. fast may be nil when no immediate
// pass is wanted; full runs once per settled burst of triggers.
func NewScheduler(window time.Duration, fast, full func()) *Scheduler {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Scheduler{window: window, fast: fast, full: full}
}

// Trigger requests a recalculation. Safe for concurrent use.
func (s *Scheduler) Trigger() {
	if s.fast != nil {
		s.fast()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	gen := s.gen
	if s.timer != nil && s.timer.Stop() {
		// The superseded pass will never run; release its waiter.
		s.wg.Done()
	}
	s.wg.Add(1)
	// Flush can Reset an already-fired timer, which would run this
	// callback a second time; the CAS makes the pass single-shot.
	var ran atomic.Bool
	s.timer = time.AfterFunc(s.window, func() {
		if !ran.CompareAndSwap(false, true) {
			return
		}
		defer s.wg.Done()
		s.mu.Lock()
		stale := gen != s.gen
		s.mu.Unlock()
		if stale {
			// A newer trigger superseded this pass.
			return
		}
		if s.full != nil {
			s.full()
		}
	})
}

// Flush waits for any pending full pass to finish. Intended for
// shutdown and tests.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	if s.timer != nil {
		// Fire the pending pass now rather than waiting out the window.
		s.timer.Reset(0)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
