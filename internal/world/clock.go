// Package world provides the single logical timeline every behavior runs on.
package world

import (
	"container/heap"
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// idleWait bounds how long Run sleeps when nothing is queued.
const idleWait = time.Minute

// Scheduler drives periodic and one-shot tasks on one timeline. Tasks and
// posted closures never run concurrently with each other, so state touched
// only from the timeline needs no locking.
//
// Run drives the timeline from the wall clock; Advance drives it from
// virtual time and is meant for tests.
type Scheduler struct {
	mu     sync.Mutex
	now    time.Time
	queue  taskQueue
	seq    uint64
	posted []func()
	wake   chan struct{}
	rng    *rand.Rand
	wall   func() time.Time
	logger *zap.Logger
}

// NewScheduler creates a scheduler whose timeline starts at start. A zero seed
// seeds the random source from the wall clock.
func NewScheduler(start time.Time, seed int64, logger *zap.Logger) *Scheduler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Scheduler{
		now:    start,
		wake:   make(chan struct{}, 1),
		rng:    rand.New(rand.NewSource(seed)),
		wall:   time.Now,
		logger: logger,
	}
}

// Now returns the timeline's current time.
func (s *Scheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Rand returns the timeline's random source. Only use it from the timeline.
func (s *Scheduler) Rand() *rand.Rand {
	return s.rng
}

// Jitter returns a uniform duration in [lo, hi].
func (s *Scheduler) Jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(s.rng.Int63n(int64(hi-lo)+1))
}

// Every runs fn after initialDelay and then once per interval.
func (s *Scheduler) Every(name string, initialDelay, interval time.Duration, fn TickFunc) *Task {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return s.schedule(&Task{name: name, interval: interval, period: interval, fn: fn}, initialDelay)
}

// EveryJittered runs fn repeatedly, waiting a fresh uniform delay in
// [lo, hi] before every run, including the first.
func (s *Scheduler) EveryJittered(name string, lo, hi time.Duration, fn TickFunc) *Task {
	rearm := func() time.Duration { return s.Jitter(lo, hi) }
	t := &Task{name: name, rearm: rearm, fn: fn}
	t.period = rearm()
	return s.schedule(t, t.period)
}

// After runs fn once after delay.
func (s *Scheduler) After(name string, delay time.Duration, fn TickFunc) *Task {
	return s.schedule(&Task{name: name, fn: fn}, delay)
}

func (s *Scheduler) schedule(t *Task, delay time.Duration) *Task {
	if delay < 0 {
		delay = 0
	}
	t.sched = s
	t.index = -1
	s.mu.Lock()
	t.at = s.now.Add(delay)
	s.push(t)
	s.mu.Unlock()
	s.notify()
	return t
}

// push must be called with mu held.
func (s *Scheduler) push(t *Task) {
	s.seq++
	t.seq = s.seq
	heap.Push(&s.queue, t)
}

// Post queues fn to run on the timeline. Safe from any goroutine and never
// blocks.
func (s *Scheduler) Post(fn func()) {
	s.mu.Lock()
	s.posted = append(s.posted, fn)
	s.mu.Unlock()
	s.notify()
}

// Do runs fn on the timeline and waits for it to finish.
func (s *Scheduler) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	s.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of queued tasks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Advance moves virtual time forward by d, running every task that falls due
// in order. Posted closures run before each task. Every missed period is
// replayed.
func (s *Scheduler) Advance(d time.Duration) {
	s.runUntil(s.Now().Add(d), true)
}

// Run drives the timeline from the wall clock until ctx is cancelled. After
// a wall clock jump, a periodic task that missed one or more whole periods
// runs once at the current time instead of replaying every missed tick.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	s.logger.Info("timeline started", zap.Int("tasks", s.Pending()))
	for {
		s.runUntil(s.wall(), false)

		wait := idleWait
		s.mu.Lock()
		if len(s.queue) > 0 {
			wait = s.queue[0].at.Sub(s.wall())
		}
		if len(s.posted) > 0 {
			wait = 0
		}
		s.mu.Unlock()
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			s.logger.Info("timeline stopped")
			return nil
		case <-timer.C:
		case <-s.wake:
		}
	}
}

// runUntil runs every task due by until. Without catchUp, lagging periodic
// tasks are collapsed into one run at until.
func (s *Scheduler) runUntil(until time.Time, catchUp bool) {
	for {
		s.drainPosted()

		s.mu.Lock()
		if len(s.queue) == 0 || s.queue[0].at.After(until) {
			if until.After(s.now) {
				s.now = until
			}
			s.mu.Unlock()
			return
		}
		t := heap.Pop(&s.queue).(*Task)
		if !catchUp && t.lagging(until) {
			s.logger.Debug("skipping missed ticks",
				zap.String("task", t.name), zap.Duration("behind", until.Sub(t.at)))
			t.at = until
		}
		if t.at.After(s.now) {
			s.now = t.at
		}
		now := s.now
		s.mu.Unlock()

		t.fn(now)

		s.mu.Lock()
		if !t.cancelled {
			if next, ok := t.next(); ok {
				t.at = next
				s.push(t)
			} else {
				t.cancelled = true
			}
		}
		s.mu.Unlock()
	}
}

func (s *Scheduler) drainPosted() {
	s.mu.Lock()
	posted := s.posted
	s.posted = nil
	s.mu.Unlock()

	for _, fn := range posted {
		fn()
	}
}

func (s *Scheduler) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
