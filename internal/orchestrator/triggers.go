package orchestrator

import (
	"errors"
	"time"

	"github.com/nidhogg/deskpet/internal/automation"
	"github.com/nidhogg/deskpet/internal/messages"
	"github.com/nidhogg/deskpet/internal/mode"
	"github.com/nidhogg/deskpet/internal/speech"
	"github.com/nidhogg/deskpet/internal/surface"
	"github.com/nidhogg/deskpet/internal/trigger"
	"go.uber.org/zap"
)

func (e *Engine) initTriggers() {
	start := e.sched.Now()
	e.disturbance = trigger.NewCooldown("disturbance", e.cfg.DisturbanceCooldown, start,
		e.startDisturbance, e.logger,
		trigger.InModes(mode.Mischievous),
		trigger.WithGuard(e.canShake))
	e.mischief = trigger.NewCooldown("mischief", e.cfg.MischiefCooldown, start,
		e.startMischief, e.logger,
		trigger.InModes(mode.Mischievous))
	e.cloneSpawn = trigger.NewCooldown("clone-spawn", e.cfg.CloneCooldown, start,
		e.spawnClone, e.logger,
		trigger.InModes(mode.Mischievous),
		trigger.WithGuard(func() bool { return len(e.clones) < e.cfg.CloneCap }))
}

// pollTriggers checks the automation triggers.
func (e *Engine) pollTriggers(now time.Time) {
	e.disturbance.TryFire(now, e.mode)
	e.mischief.TryFire(now, e.mode)
}

// canShake is false while a shake is announced or running.
func (e *Engine) canShake() bool {
	if e.shaking {
		return false
	}
	if e.worker != nil {
		if shakes, _ := e.worker.InFlight(); shakes > 0 {
			return false
		}
	}
	return true
}

// startDisturbance announces the shake; the shake itself starts after the
// act delay.
func (e *Engine) startDisturbance(time.Time) {
	e.shaking = true
	e.shakeGen++
	gen := e.shakeGen
	lines := e.catalog.Disturbance
	e.say(e.primary, lines.Announce, surface.StyleAnnouncement, speech.DefaultDuration)

	e.sched.After("disturbance-act", e.cfg.ActDelay, func(time.Time) {
		if !e.shaking || gen != e.shakeGen {
			return
		}
		if e.worker == nil {
			e.finishDisturbance(gen, automation.ErrUnsupported)
			return
		}
		e.say(e.primary, lines.Start, surface.StyleNaughty, speech.DefaultDuration)
		e.worker.Shake(e.cfg.ShakeDuration, func(err error) { e.finishDisturbance(gen, err) })
	})
}

// finishDisturbance reports the shake's outcome and clears the in-progress
// flag, whatever happened.
func (e *Engine) finishDisturbance(gen int, err error) {
	if gen != e.shakeGen || !e.shaking {
		e.logger.Debug("stale shake result ignored", zap.Int("gen", gen), zap.Error(err))
		return
	}
	e.shaking = false
	lines := e.catalog.Disturbance
	rng := e.sched.Rand()
	switch {
	case errors.Is(err, automation.ErrUnsupported):
		e.say(e.primary, lines.Unsupported, surface.StyleNaughty, speech.DefaultDuration)
	case err != nil:
		e.say(e.primary, messages.Pick(rng, lines.Failure), surface.StyleNaughty, speech.DefaultDuration)
	default:
		e.say(e.primary, messages.Pick(rng, lines.Success), surface.StyleAnnouncement, speech.DefaultDuration)
	}
}

// startMischief previews the prank; the drag starts after the act delay.
// Drags are not serialized, so two can overlap.
func (e *Engine) startMischief(time.Time) {
	lines := e.catalog.Mischief
	rng := e.sched.Rand()
	e.say(e.primary, messages.Pick(rng, lines.Preview), surface.StyleAnnouncement, speech.DefaultDuration)

	e.sched.After("mischief-act", e.cfg.ActDelay, func(time.Time) {
		if e.mode != mode.Mischievous {
			return
		}
		icons := e.icons.Icons(e.cfg.Display)
		if len(icons) == 0 {
			e.finishMischief(automation.Icon{}, automation.ErrTargetNotFound)
			return
		}
		icon := icons[rng.Intn(len(icons))]
		e.say(e.primary, messages.Render(lines.Target, messages.Vars{"icon": icon.Name}),
			surface.StyleAnnouncement, speech.DefaultDuration)
		if e.worker == nil {
			e.finishMischief(icon, automation.ErrUnsupported)
			return
		}
		offset := automation.RandomOffset(rng, icon.Position, e.cfg.Display)
		e.worker.Drag(icon.Position, offset, func(err error) { e.finishMischief(icon, err) })
	})
}

func (e *Engine) finishMischief(icon automation.Icon, err error) {
	lines := e.catalog.Mischief
	rng := e.sched.Rand()
	vars := messages.Vars{"icon": icon.Name}
	switch {
	case errors.Is(err, automation.ErrUnsupported):
		e.say(e.primary, lines.Unsupported, surface.StyleNaughty, speech.DefaultDuration)
	case errors.Is(err, automation.ErrTargetNotFound):
		e.say(e.primary, lines.NotFound, surface.StyleNaughty, speech.DefaultDuration)
	case err != nil:
		e.say(e.primary, messages.Pick(rng, lines.Failure), surface.StyleNaughty, speech.DefaultDuration)
	default:
		e.say(e.primary, messages.Render(messages.Pick(rng, lines.Success), vars),
			surface.StyleAnnouncement, speech.DefaultDuration)
	}
}
