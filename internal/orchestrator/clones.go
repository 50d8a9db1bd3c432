package orchestrator

import (
	"fmt"
	"sort"
	"time"

	"github.com/nidhogg/deskpet/internal/geom"
	"github.com/nidhogg/deskpet/internal/messages"
	"github.com/nidhogg/deskpet/internal/mode"
	"github.com/nidhogg/deskpet/internal/motion"
	"github.com/nidhogg/deskpet/internal/speech"
	"github.com/nidhogg/deskpet/internal/sprite"
	"github.com/nidhogg/deskpet/internal/surface"
	"github.com/nidhogg/deskpet/internal/world"
	"go.uber.org/zap"
)

// clone is a secondary agent with its own timers.
type clone struct {
	*agent
	seq    int
	set    sprite.Set
	move   *world.Task
	speech *world.Task
}

// alive reports whether c is still in the live set. Clone callbacks check it
// before touching anything.
func (e *Engine) alive(c *clone) bool {
	return e.clones[c.id] == c
}

// manageClones spawns through the spawn trigger in mischievous mode and
// drains the live set in calm mode.
func (e *Engine) manageClones(now time.Time) {
	switch e.mode {
	case mode.Mischievous:
		e.cloneSpawn.TryFire(now, e.mode)
	case mode.Calm:
		if len(e.clones) == 0 {
			return
		}
		n := e.destroyAll()
		e.announce(messages.Render(e.catalog.Clones.Recalled, messages.Vars{"count": itoa(n)}))
	}
}

// spawnClone is the clone spawn trigger's action.
func (e *Engine) spawnClone(time.Time) {
	if e.createClone() == nil {
		return
	}
	text := messages.Render(e.catalog.Clones.Spawned, messages.Vars{"count": itoa(len(e.clones))})
	e.say(e.primary, text, surface.StyleNaughty, speech.DefaultDuration)
}

// createClone adds one clone, or does nothing at the cap.
func (e *Engine) createClone() *clone {
	if len(e.clones) >= e.cfg.CloneCap {
		e.logger.Debug("clone cap reached", zap.Int("cap", e.cfg.CloneCap))
		return nil
	}
	e.cloneSeq++
	id := fmt.Sprintf("clone-%d", e.cloneSeq)
	rng := e.sched.Rand()

	c := &clone{
		agent: e.newAgent(id, e.cfg.CloneSize),
		seq:   e.cloneSeq,
		set:   e.sprites[rng.Intn(len(e.sprites))],
	}
	b := c.machine.Bounds()
	xlo, xhi := geom.Inset(b.MaxX(), e.cfg.CloneMargin)
	ylo, yhi := geom.Inset(b.MaxY(), e.cfg.CloneMargin)
	c.machine.Place(geom.Point{X: xlo + rng.Intn(xhi-xlo+1), Y: ylo + rng.Intn(yhi-ylo+1)})
	c.anim.Play(c.set)

	c.move = e.sched.Every(id+"-move", e.cfg.MoveEvery, e.cfg.MoveEvery, func(now time.Time) {
		if e.alive(c) {
			c.machine.Tick(now)
		}
	})
	c.speech = e.sched.EveryJittered(id+"-speech", e.cfg.CloneSpeech.Min, e.cfg.CloneSpeech.Max, func(time.Time) {
		if e.alive(c) {
			e.say(c.agent, messages.Pick(rng, e.catalog.Clone), surface.StyleNaughty, speech.CloneDuration)
		}
	})

	e.clones[id] = c
	e.spawned++
	e.logger.Info("clone spawned",
		zap.String("clone", id),
		zap.String("sprite", c.set.ID()),
		zap.Int("live", len(e.clones)))
	return c
}

// destroyAll recalls every clone and resets the spawn counter. It returns
// how many clones were recalled; calling it with no clones does nothing.
func (e *Engine) destroyAll() int {
	n := len(e.clones)
	for id, c := range e.clones {
		delete(e.clones, id)
		c.move.Cancel()
		c.speech.Cancel()
		c.anim.Stop()
		e.presenter.Dismiss(id)
		c.handle.Destroy()
	}
	e.spawned = 0
	if n > 0 {
		e.logger.Info("clones recalled", zap.Int("clones", n))
	}
	return n
}

// CloneStatus describes one live clone.
type CloneStatus struct {
	motion.Snapshot
	Sprite string `json:"sprite"`
}

// Clones lists the live clones in spawn order.
func (e *Engine) Clones() []CloneStatus {
	out := make([]CloneStatus, 0, len(e.clones))
	for _, c := range e.liveClones() {
		out = append(out, CloneStatus{Snapshot: c.machine.Snapshot(), Sprite: c.set.ID()})
	}
	return out
}

func (e *Engine) liveClones() []*clone {
	live := make([]*clone, 0, len(e.clones))
	for _, c := range e.clones {
		live = append(live, c)
	}
	sort.Slice(live, func(i, j int) bool { return live[i].seq < live[j].seq })
	return live
}
