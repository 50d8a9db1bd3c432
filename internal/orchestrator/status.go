package orchestrator

import (
	"strconv"
	"time"

	"github.com/nidhogg/deskpet/internal/mode"
	"github.com/nidhogg/deskpet/internal/motion"
	"github.com/nidhogg/deskpet/internal/surface"
	"github.com/nidhogg/deskpet/internal/trigger"
)

// Status is a read-only view of the whole engine.
type Status struct {
	Mode       mode.Mode        `json:"mode"`
	Primary    motion.Snapshot  `json:"primary"`
	Sprite     string           `json:"sprite"`
	Sprites    int              `json:"sprites"`
	Clones     int              `json:"clones"`
	CloneCap   int              `json:"clone_cap"`
	Spawned    int              `json:"spawned"`
	Shaking    bool             `json:"shaking"`
	Automation string           `json:"automation"`
	Triggers   []trigger.Status `json:"triggers"`
}

// Status snapshots the engine.
func (e *Engine) Status() Status {
	st := Status{
		Mode:     e.mode,
		Sprite:   e.sprites[e.spriteIndex].ID(),
		Sprites:  len(e.sprites),
		Clones:   len(e.clones),
		CloneCap: e.cfg.CloneCap,
		Spawned:  e.spawned,
		Shaking:  e.shaking,
		Triggers: []trigger.Status{
			e.disturbance.Status(),
			e.mischief.Status(),
			e.cloneSpawn.Status(),
		},
		Automation: "none",
	}
	if e.primary != nil {
		st.Primary = e.primary.machine.Snapshot()
	}
	if e.worker != nil {
		st.Automation = e.worker.Backend()
	}
	return st
}

// Scene describes every visible agent as surface events, for viewers that
// join late.
func (e *Engine) Scene() []surface.Event {
	if e.primary == nil {
		return nil
	}
	now := e.sched.Now()
	scene := sceneOf(e.primary, now)
	for _, c := range e.liveClones() {
		scene = append(scene, sceneOf(c.agent, now)...)
	}
	return scene
}

func sceneOf(a *agent, now time.Time) []surface.Event {
	size := a.size
	pos := a.machine.Position()
	return []surface.Event{
		{Type: surface.EventAgentCreated, Agent: a.id, Size: &size, Time: now},
		{Type: surface.EventAgentMoved, Agent: a.id, Position: &pos, Time: now},
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
