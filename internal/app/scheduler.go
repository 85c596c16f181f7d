package app

import (
	"sync"
	"time"
)

// Timer is the handle of a scheduled callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc is the default; tests swap in
// a manual clock.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// timerSet tracks the pending auto-submit timers per attempt. Several
// connections may watch the same attempt; each owns its own timer.
type timerSet struct {
	mu     sync.Mutex
	seq    uint64
	timers map[string]map[uint64]Timer
}

func newTimerSet() *timerSet {
	return &timerSet{timers: make(map[string]map[uint64]Timer)}
}

// schedule runs fire after d unless cancelled. The returned cancel only stops
// this timer.
func (s *timerSet) schedule(after AfterFunc, attemptID string, d time.Duration, fire func()) func() {
	s.mu.Lock()
	s.seq++
	id := s.seq
	if s.timers[attemptID] == nil {
		s.timers[attemptID] = make(map[uint64]Timer)
	}
	// Registered before the timer exists so an immediate fire finds its entry.
	s.timers[attemptID][id] = nil
	s.mu.Unlock()

	t := after(d, func() {
		if s.remove(attemptID, id) {
			fire()
		}
	})

	s.mu.Lock()
	if set, ok := s.timers[attemptID]; ok {
		if _, pending := set[id]; pending {
			set[id] = t
		}
	}
	s.mu.Unlock()

	return func() {
		if s.remove(attemptID, id) && t != nil {
			t.Stop()
		}
	}
}

// remove reports whether the entry was still pending.
func (s *timerSet) remove(attemptID string, id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.timers[attemptID]
	if !ok {
		return false
	}
	if _, ok := set[id]; !ok {
		return false
	}
	delete(set, id)
	if len(set) == 0 {
		delete(s.timers, attemptID)
	}
	return true
}

// stopAll cancels every pending timer of an attempt.
func (s *timerSet) stopAll(attemptID string) int {
	s.mu.Lock()
	set := s.timers[attemptID]
	delete(s.timers, attemptID)
	s.mu.Unlock()

	for _, t := range set {
		if t != nil {
			t.Stop()
		}
	}
	return len(set)
}

func (s *timerSet) pending(attemptID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers[attemptID])
}
