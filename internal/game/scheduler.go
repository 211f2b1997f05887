package game

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending one-shot callback.
type Timer interface {
	Stop() bool
}

// Clock is the time source of an engine.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualClock is a Clock that only moves when told to. Timers fire on the
// goroutine calling Advance, in due-time order.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	clock *ManualClock
	at    time.Time
	seq   uint64
	fn    func()
	done  bool
}

// NewManualClock returns a clock reading start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d < 0 {
		d = 0
	}
	c.seq++
	t := &manualTimer{clock: c, at: c.now.Add(d), seq: c.seq, fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every timer that comes due,
// including timers scheduled by other timers within the window.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		next := c.nextDueLocked(target)
		if next == nil {
			break
		}
		next.done = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()
		next.fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// Pending is the number of timers that have neither fired nor been stopped.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

func (c *ManualClock) nextDueLocked(target time.Time) *manualTimer {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.done {
			live = append(live, t)
		}
	}
	c.timers = live
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].at.Equal(c.timers[j].at) {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].at.Before(c.timers[j].at)
	})
	if len(c.timers) == 0 || c.timers[0].at.After(target) {
		return nil
	}
	return c.timers[0]
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// TaskSet tracks every pending callback of an engine so they can be cancelled
// together. Callbacks run while holding guard and are dropped if the set was
// cancelled after they were scheduled, even when the underlying timer already fired.
//
// After, Every, CancelAll and Pending must be called with guard held.
type TaskSet struct {
	clock  Clock
	guard  sync.Locker
	after  func() // Runs once guard is released, after every callback
	epoch  uint64
	seq    uint64
	timers map[uint64]Timer
}

// NewTaskSet returns an empty set. after may be nil.
func NewTaskSet(clock Clock, guard sync.Locker, after func()) *TaskSet {
	return &TaskSet{clock: clock, guard: guard, after: after, timers: make(map[uint64]Timer)}
}

// After runs fn once, d from now.
func (s *TaskSet) After(d time.Duration, fn func()) {
	s.seq++
	id, epoch := s.seq, s.epoch
	s.timers[id] = s.clock.AfterFunc(d, func() {
		s.guard.Lock()
		_, live := s.timers[id]
		if live && s.epoch == epoch {
			delete(s.timers, id)
			fn()
		}
		s.guard.Unlock()
		if s.after != nil {
			s.after()
		}
	})
}

// Every runs fn every d until the set is cancelled.
func (s *TaskSet) Every(d time.Duration, fn func()) {
	epoch := s.epoch
	s.After(d, func() {
		fn()
		if s.epoch == epoch {
			s.Every(d, fn)
		}
	})
}

// CancelAll stops every pending callback. It is safe to call repeatedly.
func (s *TaskSet) CancelAll() {
	s.epoch++
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// Pending is the number of callbacks still scheduled.
func (s *TaskSet) Pending() int {
	return len(s.timers)
}
