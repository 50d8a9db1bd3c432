package orchestrator

import (
	"github.com/nidhogg/deskpet/internal/geom"
	"github.com/nidhogg/deskpet/internal/motion"
)

// Primary returns the primary agent's motion snapshot. It reports false
// before Start.
func (e *Engine) Primary() (motion.Snapshot, bool) {
	if e.primary == nil {
		return motion.Snapshot{}, false
	}
	return e.primary.machine.Snapshot(), true
}

// Grab starts a user drag of the primary agent.
func (e *Engine) Grab() {
	if e.primary != nil {
		e.primary.machine.Grab()
	}
}

// DragTo follows the pointer while the primary agent is held.
func (e *Engine) DragTo(p geom.Point) {
	if e.primary != nil {
		e.primary.machine.DragTo(p)
	}
}

// Release drops the primary agent. It reports false when it was not held.
func (e *Engine) Release() (motion.Transition, bool) {
	if e.primary == nil {
		return motion.Transition{}, false
	}
	return e.primary.machine.Release(e.sched.Now())
}
