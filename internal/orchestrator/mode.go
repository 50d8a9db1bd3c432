package orchestrator

import (
	"github.com/nidhogg/deskpet/internal/mode"
	"go.uber.org/zap"
)

// Mode returns the current behavioral mode.
func (e *Engine) Mode() mode.Mode { return e.mode }

// SetMode switches modes and reports whether anything changed.
//
// Entering mischievous restarts every trigger's window at now, so nothing
// fires right away. Entering calm recalls all clones, sends the primary agent
// back to roaming and forgets any shake in progress. Either switch is
// announced once.
func (e *Engine) SetMode(m mode.Mode) bool {
	if m == e.mode {
		return false
	}
	prev := e.mode
	e.mode = m
	now := e.sched.Now()

	switch m {
	case mode.Mischievous:
		e.disturbance.Reset(now)
		e.mischief.Reset(now)
		e.cloneSpawn.Reset(now)
		e.spawned = 0
		e.armSpeech()
		e.announce(e.catalog.Reactions.ModeMischievous)
	case mode.Calm:
		n := e.destroyAll()
		if e.primary != nil {
			e.muted = true
			e.primary.machine.ForceRoaming()
			e.muted = false
		}
		e.shaking = false
		e.announce(e.catalog.Reactions.ModeCalm)
		if n > 0 {
			e.logger.Info("clones recalled on mode switch", zap.Int("clones", n))
		}
	}

	e.logger.Info("mode changed",
		zap.String("from", prev.String()),
		zap.String("to", m.String()))
	return true
}
