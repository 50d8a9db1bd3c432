// Package trigger gates periodic behaviors behind a mode predicate and a
// cooldown window.
package trigger

import (
	"time"

	"github.com/nidhogg/deskpet/internal/mode"
	"go.uber.org/zap"
)

// Action performs a trigger's side effect on the timeline.
type Action func(now time.Time)

// Guard is an extra eligibility check, e.g. "nothing already in flight".
type Guard func() bool

// Cooldown fires its action at most once per period, and only in the modes
// it allows. Eligibility is evaluated by the caller's poll ticks, so real
// spacing between fires lands in [period, period+poll).
type Cooldown struct {
	name      string
	period    time.Duration
	modes     map[mode.Mode]bool
	guard     Guard
	action    Action
	lastFired time.Time
	fires     int
	logger    *zap.Logger
}

// Option configures a Cooldown.
type Option func(*Cooldown)

// InModes restricts firing to the given modes. Without it every mode fires.
func InModes(modes ...mode.Mode) Option {
	return func(c *Cooldown) {
		c.modes = make(map[mode.Mode]bool, len(modes))
		for _, m := range modes {
			c.modes[m] = true
		}
	}
}

// WithGuard adds an extra eligibility check.
func WithGuard(g Guard) Option {
	return func(c *Cooldown) { c.guard = g }
}

// NewCooldown creates a trigger whose cooldown window starts at start, so it
// cannot fire before start+period.
func NewCooldown(name string, period time.Duration, start time.Time, action Action, logger *zap.Logger, opts ...Option) *Cooldown {
	c := &Cooldown{
		name:      name,
		period:    period,
		action:    action,
		lastFired: start,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TryFire fires the action when mode and guard allow it and the cooldown has
// elapsed. It reports whether it fired.
func (c *Cooldown) TryFire(now time.Time, m mode.Mode) bool {
	if !c.Eligible(now, m) {
		return false
	}
	c.lastFired = now
	c.fires++
	c.logger.Debug("trigger fired",
		zap.String("trigger", c.name),
		zap.String("mode", string(m)),
		zap.Int("fires", c.fires))
	if c.action != nil {
		c.action(now)
	}
	return true
}

// Eligible reports whether TryFire would fire, without firing.
func (c *Cooldown) Eligible(now time.Time, m mode.Mode) bool {
	if c.modes != nil && !c.modes[m] {
		return false
	}
	if c.guard != nil && !c.guard() {
		return false
	}
	return now.Sub(c.lastFired) >= c.period
}

// Reset restarts the cooldown window at now. Used when entering a mode so
// nothing fires immediately.
func (c *Cooldown) Reset(now time.Time) {
	c.lastFired = now
}

func (c *Cooldown) Name() string { return c.name }
func (c *Cooldown) Period() time.Duration { return c.period }
func (c *Cooldown) LastFired() time.Time { return c.lastFired }
func (c *Cooldown) Fires() int { return c.fires }

// Status is a read-only view of a trigger.
type Status struct {
	Name      string        `json:"name"`
	Period    time.Duration `json:"period"`
	LastFired time.Time     `json:"last_fired"`
	Fires     int           `json:"fires"`
}

// Status snapshots the trigger.
func (c *Cooldown) Status() Status {
	return Status{Name: c.name, Period: c.period, LastFired: c.lastFired, Fires: c.fires}
}

// Band is a randomized re-arm interval, used by triggers that run on a
// jittered timer instead of a cooldown.
type Band struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
}

// Valid reports whether the band is usable.
func (b Band) Valid() bool {
	return b.Min > 0 && b.Max >= b.Min
}
