package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nidhogg/deskpet/internal/automation"
	"github.com/nidhogg/deskpet/internal/geom"
	"github.com/nidhogg/deskpet/internal/messages"
	"github.com/nidhogg/deskpet/internal/mode"
	"github.com/nidhogg/deskpet/internal/motion"
	"github.com/nidhogg/deskpet/internal/sprite"
	"github.com/nidhogg/deskpet/internal/surface"
	"github.com/nidhogg/deskpet/internal/world"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

// recorder keeps speech and lifecycle events; move and frame events are
// only counted.
type recorder struct {
	said   []surface.Event
	events map[surface.EventType]int
	agents map[string]int
}

func newRecorder() *recorder {
	return &recorder{events: map[surface.EventType]int{}, agents: map[string]int{}}
}

func (r *recorder) Emit(ev surface.Event) {
	r.events[ev.Type]++
	r.agents[ev.Agent]++
	if ev.Type == surface.EventBubbleShown {
		r.said = append(r.said, ev)
	}
}

func (r *recorder) saidContaining(sub string) int {
	n := 0
	for _, ev := range r.said {
		if strings.Contains(ev.Text, sub) {
			n++
		}
	}
	return n
}

type stubService struct {
	mu       sync.Mutex
	shakeErr error
	dragErr  error
	drags    [][2]geom.Point
}

func (s *stubService) Name() string { return "stub" }

func (s *stubService) ShakeEnvironment(context.Context, time.Duration) error {
	return s.shakeErr
}

func (s *stubService) DragIconNear(_ context.Context, at, offset geom.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drags = append(s.drags, [2]geom.Point{at, offset})
	return s.dragErr
}

type fixture struct {
	e     *Engine
	sched *world.Scheduler
	rec   *recorder
	svc   *stubService
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MoveEvery = time.Second
	cfg.Location = time.UTC
	return cfg
}

func newFixture(t *testing.T, cfg Config, svc automation.Service) *fixture {
	t.Helper()
	sched := world.NewScheduler(t0, 42, zap.NewNop())
	rec := newRecorder()
	if svc == nil {
		svc = &stubService{}
	}
	worker := automation.NewWorker(context.Background(), svc, sched.Post, zap.NewNop(),
		automation.WithExecutor(func(job func()) { job() }))
	e := New(cfg, Deps{
		Sched:      sched,
		Surface:    surface.NewEvents(rec, sched.Now),
		Sprites:    []sprite.Set{sprite.NewPlaceholder(cfg.PrimarySize)},
		Catalog:    messages.Default(),
		Automation: worker,
		Logger:     zap.NewNop(),
	})
	e.Start()
	f := &fixture{e: e, sched: sched, rec: rec}
	f.svc, _ = svc.(*stubService)
	return f
}

func TestCloneCountStopsAtCap(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.e.SetMode(mode.Mischievous)

	f.sched.Advance(40 * time.Minute)
	if got := len(f.e.clones); got != 30 {
		t.Fatalf("clones = %d, want 30", got)
	}
	if got := f.e.cloneSpawn.Fires(); got != 30 {
		t.Fatalf("spawn fires = %d, want 30", got)
	}

	if f.e.cloneSpawn.TryFire(f.sched.Now().Add(time.Hour), mode.Mischievous) {
		t.Fatal("31st spawn check fired")
	}
	if f.e.createClone() != nil {
		t.Fatal("createClone went past the cap")
	}
	f.sched.Advance(10 * time.Minute)
	if got := len(f.e.clones); got != 30 {
		t.Fatalf("clones = %d after more time, want 30", got)
	}
	if f.rec.saidContaining("30 clones") != 1 {
		t.Fatalf("expected one announcement of 30 clones")
	}
}

func TestClonesNeverLiveInCalm(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.e.SetMode(mode.Mischievous)
	f.sched.Advance(5 * time.Minute)
	if len(f.e.clones) == 0 {
		t.Fatal("no clones spawned in five minutes")
	}

	f.e.SetMode(mode.Calm)
	if len(f.e.clones) != 0 || f.e.spawned != 0 {
		t.Fatalf("calm switch left %d clones, counter %d", len(f.e.clones), f.e.spawned)
	}

	for i := 0; i < 3; i++ {
		f.e.createClone()
	}
	f.sched.Advance(f.e.cfg.CloneEvery)
	if len(f.e.clones) != 0 {
		t.Fatalf("management tick left %d clones in calm mode", len(f.e.clones))
	}
	if f.rec.saidContaining("Recalled 3 clones") != 1 {
		t.Fatal("bulk recall not announced")
	}
}

func TestDestroyAllIsIdempotent(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	base := f.sched.Pending()

	a := f.e.createClone()
	f.e.createClone()
	if f.sched.Pending() <= base {
		t.Fatal("clones scheduled nothing")
	}

	if n := f.e.destroyAll(); n != 2 {
		t.Fatalf("destroyAll = %d, want 2", n)
	}
	if f.e.alive(a) {
		t.Fatal("destroyed clone still alive")
	}
	if n := f.e.destroyAll(); n != 0 {
		t.Fatalf("second destroyAll = %d", n)
	}
	if len(f.e.clones) != 0 || f.e.spawned != 0 {
		t.Fatalf("clones=%d spawned=%d", len(f.e.clones), f.e.spawned)
	}

	before := f.rec.agents[a.id]
	f.sched.Advance(2 * time.Minute)
	if f.rec.agents[a.id] != before {
		t.Fatal("destroyed clone kept producing events")
	}
	if f.rec.events[surface.EventAgentDestroyed] != 2 {
		t.Fatalf("destroy events = %d", f.rec.events[surface.EventAgentDestroyed])
	}
}

func TestEnteringMischiefArmsButDoesNotFire(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.sched.Advance(10 * time.Minute)
	if f.e.mischief.Fires()+f.e.disturbance.Fires()+f.e.cloneSpawn.Fires() != 0 {
		t.Fatal("trigger fired in calm mode")
	}

	f.e.SetMode(mode.Mischievous)
	f.sched.Advance(170 * time.Second)
	if f.e.mischief.Fires() != 0 || f.e.disturbance.Fires() != 0 {
		t.Fatal("automation trigger fired before its cooldown after the switch")
	}
	f.sched.Advance(30 * time.Second)
	if f.e.mischief.Fires() != 1 {
		t.Fatalf("mischief fires = %d, want 1", f.e.mischief.Fires())
	}
}

func TestModeSwitchAnnouncedOnce(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	cat := messages.Default()

	if f.e.SetMode(mode.Calm) {
		t.Fatal("calm -> calm reported a change")
	}
	if !f.e.SetMode(mode.Mischievous) {
		t.Fatal("switch not reported")
	}
	f.e.Grab()
	f.e.shaking = true
	if !f.e.SetMode(mode.Calm) {
		t.Fatal("switch back not reported")
	}
	if f.e.primary.machine.State() != motion.StateRoaming {
		t.Fatalf("primary state = %s, want roaming", f.e.primary.machine.State())
	}
	if f.e.shaking {
		t.Fatal("shake flag survived switch to calm")
	}
	if f.rec.saidContaining(cat.Reactions.ModeMischievous) != 1 || f.rec.saidContaining(cat.Reactions.ModeCalm) != 1 {
		t.Fatal("each switch should be announced exactly once")
	}
	if len(f.rec.said) != 2 {
		t.Fatalf("said %d lines, want only the two announcements", len(f.rec.said))
	}
}

func TestSpeechCyclesAndPausesWhileScattering(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	cur := f.e.cursors[mode.Calm]

	f.sched.Advance(time.Minute)
	if cur.Position() == 0 {
		t.Fatal("no periodic speech in a minute")
	}

	f.e.Grab()
	f.e.DragTo(geom.Point{X: 800, Y: 500})
	if tr, _ := f.e.Release(); tr.To != motion.StateManual {
		t.Fatalf("release = %+v", tr)
	}
	f.sched.Advance(31 * time.Second)
	if f.e.primary.machine.State() != motion.StateScattering {
		t.Fatalf("state = %s, want scattering", f.e.primary.machine.State())
	}

	pos := cur.Position()
	f.sched.Advance(time.Minute)
	if cur.Position() != pos {
		t.Fatal("periodic speech advanced while scattering")
	}
}

func TestCalmLinesCycleInOrder(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	lines := f.e.catalog.Lines(mode.Calm)

	for i := 0; i <= len(lines); i++ {
		f.e.speak(f.sched.Now())
	}
	first := f.rec.said[0].Text
	wrapped := f.rec.said[len(lines)].Text
	if first != wrapped {
		t.Fatalf("line N+1 = %q, want line 1 %q", wrapped, first)
	}
	if strings.Contains(first, "{cpu}") {
		t.Fatalf("placeholder not rendered: %q", first)
	}
}

func TestHourlyChimeOncePerHour(t *testing.T) {
	f := newFixture(t, testConfig(), nil)

	f.sched.Advance(29 * time.Minute)
	if n := f.rec.saidContaining("🕐"); n != 0 {
		t.Fatalf("chimed %d times before the hour", n)
	}
	f.sched.Advance(time.Minute)
	if n := f.rec.saidContaining("🕐 Morning 10:00"); n != 1 {
		t.Fatalf("10:00 chimes = %d, want 1", n)
	}
	f.e.SetMode(mode.Mischievous)
	f.sched.Advance(59 * time.Minute)
	if n := f.rec.saidContaining("🕐"); n != 1 {
		t.Fatalf("chimes = %d before 11:00, want 1", n)
	}
	f.sched.Advance(time.Minute)
	if n := f.rec.saidContaining("🕐 Morning 11:00"); n != 1 {
		t.Fatalf("11:00 chimes = %d, want 1", n)
	}
}

func TestPeriods(t *testing.T) {
	cases := map[int]string{0: "late_night", 5: "late_night", 6: "morning", 11: "morning",
		12: "afternoon", 17: "afternoon", 18: "evening", 23: "evening"}
	for h, want := range cases {
		if got := Period(h); got != want {
			t.Errorf("Period(%d) = %s, want %s", h, got, want)
		}
	}
}

func TestFailedShakeClearsFlag(t *testing.T) {
	svc := &stubService{shakeErr: errors.New("window vanished")}
	f := newFixture(t, testConfig(), svc)
	f.e.SetMode(mode.Mischievous)

	f.sched.Advance(4*time.Minute + 10*time.Second)
	if f.e.disturbance.Fires() != 1 {
		t.Fatalf("disturbance fires = %d", f.e.disturbance.Fires())
	}
	if !f.e.shaking {
		t.Fatal("flag not set while the shake is announced")
	}
	f.sched.Advance(f.e.cfg.ActDelay)
	if f.e.shaking {
		t.Fatal("flag not cleared after a failed shake")
	}
	failed := 0
	for _, line := range f.e.catalog.Disturbance.Failure {
		failed += f.rec.saidContaining(line)
	}
	if failed != 1 {
		t.Fatalf("failure lines said = %d, want 1", failed)
	}
}

func TestUnsupportedShakeIsAnnounced(t *testing.T) {
	f := newFixture(t, testConfig(), automation.Unsupported{})
	f.e.SetMode(mode.Mischievous)
	f.sched.Advance(4*time.Minute + 10*time.Second + f.e.cfg.ActDelay)

	if f.e.shaking {
		t.Fatal("flag not cleared when unsupported")
	}
	if f.rec.saidContaining(f.e.catalog.Disturbance.Unsupported) != 1 {
		t.Fatal("unsupported line not said")
	}
}

func TestShakeGuardBlocksWhileInProgress(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.e.SetMode(mode.Mischievous)
	f.e.shaking = true
	f.sched.Advance(10 * time.Minute)
	if f.e.disturbance.Fires() != 0 {
		t.Fatal("disturbance fired while a shake was in progress")
	}
}

func TestMischiefDragsIntoSafeArea(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.e.SetMode(mode.Mischievous)
	f.sched.Advance(3*time.Minute + 10*time.Second + f.e.cfg.ActDelay)

	if len(f.svc.drags) != 1 {
		t.Fatalf("drags = %d, want 1", len(f.svc.drags))
	}
	at, off := f.svc.drags[0][0], f.svc.drags[0][1]
	dest := at.Add(off)
	d := f.e.cfg.Display
	if dest.X < 50 || dest.X > d.W-100 || dest.Y < 50 || dest.Y > d.H-100 {
		t.Fatalf("drag destination %+v outside the safe area", dest)
	}
	if f.rec.saidContaining("Going to push icon") != 1 {
		t.Fatal("target not announced")
	}
}

type noIcons struct{}

func (noIcons) Icons(geom.Size) []automation.Icon { return nil }

func TestMischiefWithoutIcons(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.e.icons = noIcons{}
	f.e.SetMode(mode.Mischievous)
	f.sched.Advance(3*time.Minute + 10*time.Second + f.e.cfg.ActDelay)

	if len(f.svc.drags) != 0 {
		t.Fatal("dragged without a target")
	}
	if f.rec.saidContaining(f.e.catalog.Mischief.NotFound) != 1 {
		t.Fatal("not-found line not said")
	}
}

func TestReleaseNearEdgeIsNarrated(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.e.Grab()
	f.e.DragTo(geom.Point{X: 5, Y: 540})
	tr, ok := f.e.Release()
	if !ok || tr.To != motion.StateBorderFollowing {
		t.Fatalf("release = %+v, %v", tr, ok)
	}
	if f.rec.saidContaining("left edge") != 1 {
		t.Fatal("border reaction not said")
	}
}

func TestNextAnimation(t *testing.T) {
	cfg := testConfig()
	sched := world.NewScheduler(t0, 1, zap.NewNop())
	rec := newRecorder()
	e := New(cfg, Deps{
		Sched:   sched,
		Surface: surface.NewEvents(rec, sched.Now),
		Sprites: []sprite.Set{sprite.NewPlaceholder(cfg.PrimarySize), sprite.NewPlaceholder(cfg.PrimarySize)},
		Logger:  zap.NewNop(),
	})
	e.Start()

	e.NextAnimation()
	if e.spriteIndex != 1 {
		t.Fatalf("sprite index = %d", e.spriteIndex)
	}
	if rec.saidContaining("animation #2") != 1 {
		t.Fatal("switch not announced")
	}
	sched.Advance(cfg.SpriteSwitch)
	if e.spriteIndex != 0 {
		t.Fatalf("timed switch did not wrap, index = %d", e.spriteIndex)
	}
	if st := e.Status(); st.Automation != "none" || st.Sprites != 2 {
		t.Fatalf("status = %+v", st)
	}
}

func TestStopTearsEverythingDown(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.e.SetMode(mode.Mischievous)
	f.sched.Advance(3 * time.Minute)

	f.e.Stop()
	if len(f.e.clones) != 0 {
		t.Fatal("clones survived stop")
	}
	f.sched.Advance(time.Minute)
	if f.sched.Pending() != 0 {
		t.Fatalf("%d tasks still queued after stop", f.sched.Pending())
	}
}

func TestSceneListsEveryAgent(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	f.e.createClone()
	scene := f.e.Scene()
	if len(scene) != 4 {
		t.Fatalf("scene has %d events, want 4", len(scene))
	}
	if scene[0].Agent != PrimaryID || scene[2].Agent != "clone-1" {
		t.Fatalf("scene order = %s, %s", scene[0].Agent, scene[2].Agent)
	}
}

func TestClonesListInSpawnOrder(t *testing.T) {
	f := newFixture(t, testConfig(), nil)
	for i := 0; i < 12; i++ {
		if f.e.createClone() == nil {
			t.Fatalf("clone %d not created", i+1)
		}
	}

	clones := f.e.Clones()
	if len(clones) != 12 {
		t.Fatalf("clones = %d, want 12", len(clones))
	}
	for i, c := range clones {
		if want := fmt.Sprintf("clone-%d", i+1); c.ID != want {
			t.Fatalf("clones[%d] = %s, want %s", i, c.ID, want)
		}
	}
	scene := f.e.Scene()
	if got := scene[len(scene)-1].Agent; got != "clone-12" {
		t.Fatalf("last agent in scene = %s, want clone-12", got)
	}
}

func TestNextAnimationOutsideLifecycle(t *testing.T) {
	cfg := testConfig()
	sched := world.NewScheduler(t0, 1, zap.NewNop())
	e := New(cfg, Deps{
		Sched:   sched,
		Surface: surface.NewEvents(newRecorder(), sched.Now),
		Logger:  zap.NewNop(),
	})
	if id := e.NextAnimation(); id != "" {
		t.Fatalf("before start got %q", id)
	}

	e.Start()
	if id := e.NextAnimation(); id == "" {
		t.Fatal("no sprite id after start")
	}
	e.Stop()
	if id := e.NextAnimation(); id != "" {
		t.Fatalf("after stop got %q", id)
	}
	if _, ok := e.Primary(); ok {
		t.Fatal("primary still reported after stop")
	}
}
