// Package motion implements the per-agent movement state machine.
package motion

import (
	"math/rand"
	"time"

	"github.com/nidhogg/deskpet/internal/geom"
	"go.uber.org/zap"
)

// State is an agent's motion state.
type State string

const (
	StateRoaming         State = "roaming"
	StateUserHeld        State = "user_held"
	StateManual          State = "manual"
	StateBorderFollowing State = "border_following"
	StateScattering      State = "scattering"
)

// Config tunes the state machine. Zero fields fall back to DefaultConfig.
type Config struct {
	BorderThreshold int           // distance from an edge that counts as "on" it
	BorderSpeed     int           // pixels per tick while following an edge
	ManualDwell     time.Duration // stationary time before scattering starts
	ScatterEvery    time.Duration // spacing between relocations
	ScatterBudget   int           // relocations before roaming resumes
	Speeds          []int         // allowed roaming velocity components
}

// DefaultConfig mirrors the pet's stock tuning.
func DefaultConfig() Config {
	return Config{
		BorderThreshold: 20,
		BorderSpeed:     3,
		ManualDwell:     30 * time.Second,
		ScatterEvery:    8 * time.Second,
		ScatterBudget:   30,
		Speeds:          []int{-2, -1, 1, 2},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BorderThreshold <= 0 {
		c.BorderThreshold = d.BorderThreshold
	}
	if c.BorderSpeed <= 0 {
		c.BorderSpeed = d.BorderSpeed
	}
	if c.ManualDwell <= 0 {
		c.ManualDwell = d.ManualDwell
	}
	if c.ScatterEvery <= 0 {
		c.ScatterEvery = d.ScatterEvery
	}
	if c.ScatterBudget <= 0 {
		c.ScatterBudget = d.ScatterBudget
	}
	if len(c.Speeds) == 0 {
		c.Speeds = d.Speeds
	}
	return c
}

// Transition describes a state change. Progress inside scattering is
// reported as a scattering→scattering transition carrying the count.
type Transition struct {
	Agent string `json:"agent"`
	From  State  `json:"from"`
	To    State  `json:"to"`
	Edge  Edge   `json:"edge,omitempty"`
	Count int    `json:"count,omitempty"`
}

// Snapshot is a read-only copy of a machine's state.
type Snapshot struct {
	ID           string     `json:"id"`
	State        State      `json:"state"`
	Position     geom.Point `json:"position"`
	Velocity     geom.Point `json:"velocity"`
	Border       *Border    `json:"border,omitempty"`
	ScatterCount int        `json:"scatter_count,omitempty"`
}

// Machine owns one agent's position, velocity and motion state. It is not
// safe for concurrent use; drive it from the timeline.
type Machine struct {
	id     string
	bounds geom.Bounds
	cfg    Config
	rng    *rand.Rand

	pos   geom.Point
	vel   geom.Point
	state State

	border       Border // valid only while border following
	scatterCount int
	lastScatter  time.Time
	releasedAt   time.Time

	onMove       func(geom.Point)
	onTransition func(Transition)
	logger       *zap.Logger
}

// New creates a roaming machine at a random in-bounds position.
func New(id string, bounds geom.Bounds, cfg Config, rng *rand.Rand, logger *zap.Logger) *Machine {
	m := &Machine{
		id:     id,
		bounds: bounds,
		cfg:    cfg.withDefaults(),
		rng:    rng,
		state:  StateRoaming,
		logger: logger,
	}
	m.pos = m.randomPosition()
	m.vel = m.randomVelocity()
	return m
}

// OnMove registers the hook called after every position change.
func (m *Machine) OnMove(fn func(geom.Point)) { m.onMove = fn }

// OnTransition registers the hook called after every state change.
func (m *Machine) OnTransition(fn func(Transition)) { m.onTransition = fn }

func (m *Machine) ID() string { return m.id }
func (m *Machine) State() State { return m.state }
func (m *Machine) Position() geom.Point { return m.pos }
func (m *Machine) Velocity() geom.Point { return m.vel }
func (m *Machine) Bounds() geom.Bounds { return m.bounds }
func (m *Machine) ScatterCount() int { return m.scatterCount }

// Border returns the followed edge while border following.
func (m *Machine) Border() (Border, bool) {
	return m.border, m.state == StateBorderFollowing
}

// Snapshot copies the current state.
func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		ID:       m.id,
		State:    m.state,
		Position: m.pos,
		Velocity: m.vel,
	}
	if b, ok := m.Border(); ok {
		s.Border = &b
	}
	if m.state == StateScattering {
		s.ScatterCount = m.scatterCount
	}
	return s
}

// Place moves the agent to p, clamped into bounds, without changing state.
func (m *Machine) Place(p geom.Point) {
	m.moveTo(p)
}

// Tick advances one movement tick and reports whether the position changed.
func (m *Machine) Tick(now time.Time) bool {
	switch m.state {
	case StateRoaming:
		m.roam()
		return true
	case StateBorderFollowing:
		m.slide()
		return true
	case StateManual:
		if now.Sub(m.releasedAt) >= m.cfg.ManualDwell {
			m.scatterCount = 0
			m.transition(StateScattering, "", 0)
			m.scatter(now)
			return true
		}
	case StateScattering:
		if now.Sub(m.lastScatter) < m.cfg.ScatterEvery {
			return false
		}
		if m.scatterCount >= m.cfg.ScatterBudget {
			m.resumeRoaming()
			return false
		}
		m.scatter(now)
		return true
	}
	return false
}

// Grab starts a user drag. Any in-progress sub-state is discarded.
func (m *Machine) Grab() {
	if m.state == StateUserHeld {
		return
	}
	m.border = Border{}
	m.scatterCount = 0
	m.transition(StateUserHeld, "", 0)
}

// DragTo follows the pointer while the agent is held.
func (m *Machine) DragTo(p geom.Point) {
	if m.state != StateUserHeld {
		return
	}
	m.moveTo(p)
}

// Release ends a drag. Near an edge the agent starts following it, otherwise
// it stays put in manual state until the dwell elapses. Returns false when
// the agent was not held.
func (m *Machine) Release(now time.Time) (Transition, bool) {
	if m.state != StateUserHeld {
		return Transition{}, false
	}
	if b, ok := detectBorder(m.pos, m.bounds, m.cfg.BorderThreshold); ok {
		m.border = b
		return m.transition(StateBorderFollowing, b.Edge, 0), true
	}
	m.releasedAt = now
	return m.transition(StateManual, "", 0), true
}

// ForceRoaming drops whatever the agent was doing and roams with a fresh
// velocity.
func (m *Machine) ForceRoaming() {
	m.border = Border{}
	m.scatterCount = 0
	m.vel = m.randomVelocity()
	if m.state != StateRoaming {
		m.transition(StateRoaming, "", 0)
	}
}

func (m *Machine) roam() {
	next := m.pos.Add(m.vel)
	if next.X <= 0 || next.X >= m.bounds.MaxX() {
		m.vel.X = -m.vel.X
	}
	if next.Y <= 0 || next.Y >= m.bounds.MaxY() {
		m.vel.Y = -m.vel.Y
	}
	m.moveTo(next)
}

func (m *Machine) scatter(now time.Time) {
	m.lastScatter = now
	m.scatterCount++
	m.moveTo(m.randomPosition())
	if m.scatterCount%10 == 0 {
		m.transition(StateScattering, "", m.scatterCount)
	}
}

func (m *Machine) resumeRoaming() {
	m.vel = m.randomVelocity()
	m.transition(StateRoaming, "", m.scatterCount)
	m.scatterCount = 0
}

func (m *Machine) moveTo(p geom.Point) {
	m.pos = m.bounds.Clamp(p)
	if m.onMove != nil {
		m.onMove(m.pos)
	}
}

func (m *Machine) transition(to State, edge Edge, count int) Transition {
	tr := Transition{Agent: m.id, From: m.state, To: to, Edge: edge, Count: count}
	m.state = to
	m.logger.Debug("motion state changed",
		zap.String("agent", m.id),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)),
		zap.String("edge", string(edge)),
		zap.Int("count", count))
	if m.onTransition != nil {
		m.onTransition(tr)
	}
	return tr
}

func (m *Machine) randomPosition() geom.Point {
	return geom.Point{
		X: m.rng.Intn(m.bounds.MaxX() + 1),
		Y: m.rng.Intn(m.bounds.MaxY() + 1),
	}
}

func (m *Machine) randomVelocity() geom.Point {
	speeds := m.cfg.Speeds
	return geom.Point{
		X: speeds[m.rng.Intn(len(speeds))],
		Y: speeds[m.rng.Intn(len(speeds))],
	}
}
