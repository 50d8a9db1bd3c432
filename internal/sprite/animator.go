package sprite

import (
	"time"

	"github.com/nidhogg/deskpet/internal/surface"
	"github.com/nidhogg/deskpet/internal/world"
)

// Animator plays a set on one agent's handle. Every agent has its own
// animator, so frame positions never interfere.
type Animator struct {
	sched  *world.Scheduler
	handle surface.Handle
	set    Set
	frame  int
	task   *world.Task
}

// NewAnimator creates a stopped animator.
func NewAnimator(sched *world.Scheduler, h surface.Handle) *Animator {
	return &Animator{sched: sched, handle: h}
}

// Play switches to set, starting at its first frame.
func (a *Animator) Play(set Set) {
	a.Stop()
	a.set = set
	a.frame = 0
	a.show(a.sched.Now())
}

// Set returns the set being played, or nil.
func (a *Animator) Set() Set { return a.set }

// Frame returns the index of the frame on screen.
func (a *Animator) Frame() int { return a.frame }

// Stop halts playback.
func (a *Animator) Stop() {
	a.task.Cancel()
	a.task = nil
}

func (a *Animator) show(time.Time) {
	f := a.set.Frame(a.frame)
	a.handle.SetFrame(f.Image)
	a.task = a.sched.After("sprite-frame", clampDelay(f.Delay), a.advance)
}

func (a *Animator) advance(now time.Time) {
	a.frame = wrap(a.frame+1, a.set.Len())
	a.show(now)
}
