package orchestrator

import (
	"github.com/nidhogg/deskpet/internal/messages"
	"github.com/nidhogg/deskpet/internal/motion"
	"github.com/nidhogg/deskpet/internal/speech"
)

// react comments on the primary agent's motion changes.
func (e *Engine) react(tr motion.Transition) {
	if e.muted {
		return
	}
	r := e.catalog.Reactions
	var line string
	vars := messages.Vars{}
	switch {
	case tr.From == motion.StateUserHeld && tr.To == motion.StateBorderFollowing:
		line = r.BorderStart.For(e.mode)
		vars["edge"] = string(tr.Edge)
	case tr.From == motion.StateUserHeld && tr.To == motion.StateManual:
		line = r.Released.For(e.mode)
	case tr.From == motion.StateManual && tr.To == motion.StateScattering:
		line = r.ScatterStart.For(e.mode)
	case tr.From == motion.StateScattering && tr.To == motion.StateScattering:
		line = r.ScatterProgress.For(e.mode)
		vars["count"] = itoa(tr.Count)
	case tr.From == motion.StateScattering && tr.To == motion.StateRoaming:
		line = r.ScatterDone.For(e.mode)
	case tr.From == motion.StateBorderFollowing && tr.To == motion.StateRoaming:
		line = r.BorderExit.For(e.mode)
	default:
		return
	}
	e.say(e.primary, e.render(line, vars), styleFor(e.mode), speech.DefaultDuration)
}
