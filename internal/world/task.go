package world

import (
	"container/heap"
	"time"
)

// TickFunc runs on the timeline with the timeline's current time.
type TickFunc func(now time.Time)

// Task is a scheduled callback. Periodic tasks re-arm themselves after each
// run until cancelled.
type Task struct {
	name      string
	at        time.Time
	interval  time.Duration        // 0 for one-shot tasks
	rearm     func() time.Duration // jittered period, overrides interval
	period    time.Duration        // delay that produced at; 0 for one-shots
	fn        TickFunc
	seq       uint64
	index     int // position in the queue, -1 when not queued
	cancelled bool
	sched     *Scheduler
}

// Name returns the task's label.
func (t *Task) Name() string { return t.name }

// Cancel stops the task. A cancelled task never runs again, even when it is
// already due in the current pass.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	s := t.sched
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.cancelled {
		return
	}
	t.cancelled = true
	if t.index >= 0 {
		heap.Remove(&s.queue, t.index)
	}
}

// Cancelled reports whether Cancel was called.
func (t *Task) Cancelled() bool {
	if t == nil {
		return true
	}
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	return t.cancelled
}

// next returns the following fire time, or false for one-shot tasks.
func (t *Task) next() (time.Time, bool) {
	switch {
	case t.rearm != nil:
		t.period = t.rearm()
		return t.at.Add(t.period), true
	case t.interval > 0:
		return t.at.Add(t.interval), true
	default:
		return time.Time{}, false
	}
}

// lagging reports whether a periodic task has missed at least one whole
// period by until.
func (t *Task) lagging(until time.Time) bool {
	return t.period > 0 && until.Sub(t.at) >= t.period
}

// taskQueue orders tasks by fire time, then by scheduling order.
type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*Task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
