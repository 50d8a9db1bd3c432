// Package orchestrator runs the pet: the primary agent, its clones, the mode
// and every periodic behavior, all on one world.Scheduler timeline.
package orchestrator

import (
	"time"

	"github.com/nidhogg/deskpet/internal/automation"
	"github.com/nidhogg/deskpet/internal/geom"
	"github.com/nidhogg/deskpet/internal/messages"
	"github.com/nidhogg/deskpet/internal/mode"
	"github.com/nidhogg/deskpet/internal/motion"
	"github.com/nidhogg/deskpet/internal/speech"
	"github.com/nidhogg/deskpet/internal/sprite"
	"github.com/nidhogg/deskpet/internal/surface"
	"github.com/nidhogg/deskpet/internal/sysinfo"
	"github.com/nidhogg/deskpet/internal/trigger"
	"github.com/nidhogg/deskpet/internal/world"
	"go.uber.org/zap"
)

// PrimaryID is the fixed id of the primary agent.
const PrimaryID = "primary"

// Config holds every period and size the engine uses.
type Config struct {
	Display     geom.Size
	PrimarySize geom.Size
	CloneSize   geom.Size
	Motion      motion.Config

	MoveEvery    time.Duration
	SpriteSwitch time.Duration
	Speech       trigger.Band
	CloneSpeech  trigger.Band

	PollGrace           time.Duration
	PollEvery           time.Duration
	ActDelay            time.Duration
	DisturbanceCooldown time.Duration
	ShakeDuration       time.Duration
	MischiefCooldown    time.Duration

	CloneGrace    time.Duration
	CloneEvery    time.Duration
	CloneCooldown time.Duration
	CloneCap      int
	CloneMargin   int

	HourlyEvery time.Duration
	Location    *time.Location
}

// DefaultConfig returns the pet's stock timings on a 1920x1080 display.
func DefaultConfig() Config {
	return Config{
		Display:     geom.Size{W: 1920, H: 1080},
		PrimarySize: geom.Size{W: 100, H: 100},
		CloneSize:   geom.Size{W: 150, H: 150},
		Motion:      motion.DefaultConfig(),

		MoveEvery:    50 * time.Millisecond,
		SpriteSwitch: 10 * time.Second,
		Speech:       trigger.Band{Min: 15 * time.Second, Max: 25 * time.Second},
		CloneSpeech:  trigger.Band{Min: 30 * time.Second, Max: 60 * time.Second},

		PollGrace:           10 * time.Second,
		PollEvery:           30 * time.Second,
		ActDelay:            2 * time.Second,
		DisturbanceCooldown: 4 * time.Minute,
		ShakeDuration:       4 * time.Second,
		MischiefCooldown:    3 * time.Minute,

		CloneGrace:    5 * time.Second,
		CloneEvery:    10 * time.Second,
		CloneCooldown: time.Minute,
		CloneCap:      30,
		CloneMargin:   50,

		HourlyEvery: time.Minute,
		Location:    time.Local,
	}
}

// StatsSource provides host usage for calm lines.
type StatsSource interface {
	Latest() (sysinfo.Stats, bool)
}

// Deps are the engine's collaborators.
type Deps struct {
	Sched      *world.Scheduler
	Surface    surface.Surface
	Sprites    []sprite.Set
	Catalog    *messages.Catalog
	Automation *automation.Worker
	Icons      automation.Locator
	Stats      StatsSource // optional
	Logger     *zap.Logger
}

// agent is one visible entity: a motion machine wired to a handle.
type agent struct {
	id      string
	size    geom.Size
	machine *motion.Machine
	handle  surface.Handle
	anim    *sprite.Animator
}

func (a *agent) speaker() speech.Speaker {
	return speech.Speaker{Handle: a.handle, Position: a.machine.Position(), Size: a.size}
}

// Engine owns all pet state. Apart from the constructor, every method must
// run on the scheduler's timeline; callers on other goroutines go through
// Scheduler.Do.
type Engine struct {
	cfg       Config
	sched     *world.Scheduler
	surf      surface.Surface
	sprites   []sprite.Set
	catalog   *messages.Catalog
	worker    *automation.Worker
	icons     automation.Locator
	stats     StatsSource
	presenter *speech.Presenter
	logger    *zap.Logger

	mode    mode.Mode
	cursors map[mode.Mode]*messages.Cursor

	primary     *agent
	spriteIndex int
	muted       bool // suppresses motion reactions during a mode switch

	clones   map[string]*clone
	spawned  int
	cloneSeq int

	disturbance *trigger.Cooldown
	mischief    *trigger.Cooldown
	cloneSpawn  *trigger.Cooldown
	shaking     bool
	shakeGen    int

	lastHour int
	tasks    []*world.Task
	speechT  *world.Task
	started  bool
}

// New builds an engine in calm mode. Call Start on the timeline to show the
// primary agent and begin scheduling.
func New(cfg Config, deps Deps) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if deps.Icons == nil {
		deps.Icons = automation.DefaultGrid()
	}
	if len(deps.Sprites) == 0 {
		deps.Sprites = []sprite.Set{sprite.NewPlaceholder(cfg.PrimarySize)}
	}
	if deps.Catalog == nil {
		deps.Catalog = messages.Default()
	}
	e := &Engine{
		cfg:       cfg,
		sched:     deps.Sched,
		surf:      deps.Surface,
		sprites:   deps.Sprites,
		catalog:   deps.Catalog,
		worker:    deps.Automation,
		icons:     deps.Icons,
		stats:     deps.Stats,
		presenter: speech.NewPresenter(deps.Sched, cfg.Display, deps.Logger),
		logger:    deps.Logger,
		mode:      mode.Calm,
		cursors: map[mode.Mode]*messages.Cursor{
			mode.Calm:        messages.NewCursor(deps.Catalog.Lines(mode.Calm)),
			mode.Mischievous: messages.NewCursor(deps.Catalog.Lines(mode.Mischievous)),
		},
		clones:   make(map[string]*clone),
		lastHour: -1,
	}
	e.initTriggers()
	return e
}

// Start shows the primary agent and schedules every periodic behavior.
func (e *Engine) Start() {
	if e.started {
		return
	}
	e.started = true
	now := e.sched.Now()
	for _, c := range []*trigger.Cooldown{e.disturbance, e.mischief, e.cloneSpawn} {
		c.Reset(now)
	}

	e.primary = e.newAgent(PrimaryID, e.cfg.PrimarySize)
	e.primary.machine.OnTransition(e.react)
	e.primary.anim.Play(e.sprites[e.spriteIndex])

	e.tasks = append(e.tasks,
		e.sched.Every("primary-move", e.cfg.MoveEvery, e.cfg.MoveEvery, func(now time.Time) {
			e.primary.machine.Tick(now)
		}),
		e.sched.Every("sprite-switch", e.cfg.SpriteSwitch, e.cfg.SpriteSwitch, e.switchSprite),
		e.sched.Every("trigger-poll", e.cfg.PollGrace, e.cfg.PollEvery, e.pollTriggers),
		e.sched.Every("clone-manage", e.cfg.CloneGrace, e.cfg.CloneEvery, e.manageClones),
		e.sched.Every("hourly", 0, e.cfg.HourlyEvery, e.checkHour),
	)
	e.armSpeech()

	e.logger.Info("pet started",
		zap.String("mode", e.mode.String()),
		zap.Int("sprites", len(e.sprites)),
		zap.Int("display_w", e.cfg.Display.W),
		zap.Int("display_h", e.cfg.Display.H))
}

// Stop recalls every clone, cancels all periodic work and removes the
// primary agent.
func (e *Engine) Stop() {
	if !e.started {
		return
	}
	e.started = false
	n := e.destroyAll()
	for _, t := range e.tasks {
		t.Cancel()
	}
	e.tasks = nil
	e.speechT.Cancel()
	e.speechT = nil

	e.primary.anim.Stop()
	e.presenter.Dismiss(e.primary.id)
	e.primary.handle.Destroy()
	e.primary = nil
	e.logger.Info("pet stopped", zap.Int("clones_recalled", n))
}

func (e *Engine) newAgent(id string, size geom.Size) *agent {
	bounds := geom.Bounds{Display: e.cfg.Display, Agent: size}
	a := &agent{
		id:      id,
		size:    size,
		machine: motion.New(id, bounds, e.cfg.Motion, e.sched.Rand(), e.logger),
		handle:  e.surf.CreateHandle(id, size),
	}
	a.anim = sprite.NewAnimator(e.sched, a.handle)
	a.machine.OnMove(a.handle.MoveTo)
	a.handle.MoveTo(a.machine.Position())
	return a
}

// armSpeech (re)starts the primary agent's periodic speech.
func (e *Engine) armSpeech() {
	e.speechT.Cancel()
	e.speechT = e.sched.EveryJittered("primary-speech", e.cfg.Speech.Min, e.cfg.Speech.Max, e.speak)
}

// speak says the next line for the current mode unless the agent is busy
// scattering.
func (e *Engine) speak(time.Time) {
	if e.primary == nil || e.primary.machine.State() == motion.StateScattering {
		return
	}
	line := e.cursors[e.mode].Next()
	e.say(e.primary, e.render(line, nil), styleFor(e.mode), speech.DefaultDuration)
}

func (e *Engine) switchSprite(time.Time) {
	if e.primary == nil || len(e.sprites) < 2 {
		return
	}
	e.spriteIndex = (e.spriteIndex + 1) % len(e.sprites)
	e.primary.anim.Play(e.sprites[e.spriteIndex])
}

// NextAnimation switches the primary agent to the next sprite set and says
// so. It returns the new set's id, or "" before Start.
func (e *Engine) NextAnimation() string {
	if e.primary == nil {
		return ""
	}
	e.spriteIndex = (e.spriteIndex + 1) % len(e.sprites)
	set := e.sprites[e.spriteIndex]
	e.primary.anim.Play(set)
	e.say(e.primary, e.render(e.catalog.Reactions.NextAnimation.For(e.mode), nil), styleFor(e.mode), speech.DefaultDuration)
	return set.ID()
}

func (e *Engine) say(a *agent, text string, style surface.Style, d time.Duration) {
	if text == "" || a == nil {
		return
	}
	e.presenter.Say(a.speaker(), text, style, d)
}

// announce speaks for the primary agent in the announcement style.
func (e *Engine) announce(text string) {
	e.say(e.primary, text, surface.StyleAnnouncement, speech.DefaultDuration)
}

// render fills the standard placeholders plus any extras.
func (e *Engine) render(text string, extra messages.Vars) string {
	vars := messages.Vars{
		"cpu":       "--",
		"mem":       "--",
		"animation": itoa(e.spriteIndex + 1),
	}
	if e.stats != nil {
		if st, ok := e.stats.Latest(); ok {
			vars["cpu"] = st.CPU()
			vars["mem"] = st.Mem()
		}
	}
	for k, v := range extra {
		vars[k] = v
	}
	return messages.Render(text, vars)
}

func styleFor(m mode.Mode) surface.Style {
	if m == mode.Mischievous {
		return surface.StyleNaughty
	}
	return surface.StyleCalm
}
