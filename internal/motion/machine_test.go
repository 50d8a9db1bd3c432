package motion

import (
	"math/rand"
	"testing"
	"time"

	"github.com/nidhogg/deskpet/internal/geom"
	"go.uber.org/zap"
)

var (
	testBounds = geom.Bounds{
		Display: geom.Size{W: 1920, H: 1080},
		Agent:   geom.Size{W: 100, H: 100},
	}
	t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
)

func newMachine(seed int64) *Machine {
	return New("pet", testBounds, DefaultConfig(), rand.New(rand.NewSource(seed)), zap.NewNop())
}

func TestRoamingStaysInBounds(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		m := newMachine(seed)
		now := t0
		for i := 0; i < 5000; i++ {
			before := m.Velocity()
			m.Tick(now)
			now = now.Add(50 * time.Millisecond)

			p := m.Position()
			if !testBounds.Contains(p) {
				t.Fatalf("seed %d tick %d: position %+v out of bounds", seed, i, p)
			}
			v := m.Velocity()
			if v.X == 0 || v.Y == 0 {
				t.Fatalf("seed %d: zero velocity component %+v", seed, v)
			}
			if abs(v.X) != abs(before.X) || abs(v.Y) != abs(before.Y) {
				t.Fatalf("seed %d: roaming changed speed %+v -> %+v", seed, before, v)
			}
		}
	}
}

func TestRoamingBouncesOffEdge(t *testing.T) {
	m := newMachine(1)
	m.Place(geom.Point{X: 1, Y: 500})
	m.vel = geom.Point{X: -2, Y: 1}

	m.Tick(t0)
	if m.Position().X != 0 {
		t.Fatalf("x = %d, want clamped to 0", m.Position().X)
	}
	if m.Velocity().X != 2 {
		t.Fatalf("dx = %d, want negated to 2", m.Velocity().X)
	}
	m.Tick(t0)
	if m.Position().X != 2 {
		t.Fatalf("x = %d after bounce, want 2", m.Position().X)
	}
}

func TestEveryPositionChangeNotifies(t *testing.T) {
	m := newMachine(3)
	var moves []geom.Point
	m.OnMove(func(p geom.Point) { moves = append(moves, p) })

	for i := 0; i < 10; i++ {
		m.Tick(t0)
	}
	if len(moves) != 10 {
		t.Fatalf("got %d move notifications, want 10", len(moves))
	}
	if moves[9] != m.Position() {
		t.Errorf("last notification %+v != position %+v", moves[9], m.Position())
	}
}

func TestReleaseNearLeftEdgeFollowsBorder(t *testing.T) {
	m := newMachine(5)
	releaseY := testBounds.Display.H / 2

	m.Grab()
	m.DragTo(geom.Point{X: 5, Y: releaseY})
	tr, ok := m.Release(t0)
	if !ok {
		t.Fatal("release not accepted")
	}
	if tr.To != StateBorderFollowing || tr.Edge != EdgeLeft {
		t.Fatalf("transition = %+v, want border_following on left", tr)
	}
	b, ok := m.Border()
	if !ok || b.Edge != EdgeLeft {
		t.Fatalf("border = %+v, %v", b, ok)
	}

	flips := 0
	dir := b.Direction
	returned := false
	for i := 0; i < 5000; i++ {
		m.Tick(t0)
		p := m.Position()
		if !testBounds.Contains(p) {
			t.Fatalf("tick %d overshot: %+v", i, p)
		}
		if p.X != 0 {
			t.Fatalf("tick %d left the edge: %+v", i, p)
		}
		cur, _ := m.Border()
		if cur.Direction != dir {
			flips++
			if p.Y != 0 && p.Y != testBounds.MaxY() {
				t.Fatalf("direction flipped at y=%d, not at an extreme", p.Y)
			}
			dir = cur.Direction
		}
		if flips == 2 && abs(p.Y-releaseY) < DefaultConfig().BorderSpeed {
			returned = true
			break
		}
		if flips > 2 {
			break
		}
	}
	if !returned {
		t.Fatalf("did not return near y=%d after two flips (flips=%d)", releaseY, flips)
	}
	if m.State() != StateBorderFollowing {
		t.Fatalf("state = %s, want border_following", m.State())
	}
}

func TestBorderTieBreakPrefersLeft(t *testing.T) {
	b, ok := detectBorder(geom.Point{X: 3, Y: 2}, testBounds, 20)
	if !ok || b.Edge != EdgeLeft {
		t.Fatalf("corner resolved to %+v, want left", b)
	}
	b, ok = detectBorder(geom.Point{X: testBounds.MaxX(), Y: testBounds.MaxY()}, testBounds, 20)
	if !ok || b.Edge != EdgeRight {
		t.Fatalf("bottom-right corner resolved to %+v, want right", b)
	}
	b, ok = detectBorder(geom.Point{X: 100, Y: testBounds.MaxY() - 5}, testBounds, 20)
	if !ok || b.Edge != EdgeBottom || b.Direction != 1 {
		t.Fatalf("bottom edge near left half = %+v, want bottom heading right", b)
	}
	if _, ok := detectBorder(geom.Point{X: 500, Y: 500}, testBounds, 20); ok {
		t.Fatal("centre of the screen detected as border")
	}
}

func TestBorderDisplacementReturnsToRoaming(t *testing.T) {
	m := newMachine(9)
	m.Grab()
	m.DragTo(geom.Point{X: 500, Y: 0})
	m.Release(t0)
	if m.State() != StateBorderFollowing {
		t.Fatalf("state = %s, want border_following", m.State())
	}
	var got []Transition
	m.OnTransition(func(tr Transition) { got = append(got, tr) })
	// Pinned to y=0, the agent now sits outside a negative threshold, as if
	// something external had moved it off the edge.
	m.cfg.BorderThreshold = -1
	m.Tick(t0)

	if m.State() != StateRoaming {
		t.Fatalf("state = %s, want roaming", m.State())
	}
	if len(got) != 1 || got[0].From != StateBorderFollowing {
		t.Fatalf("transitions = %+v", got)
	}
	if v := m.Velocity(); v.X == 0 || v.Y == 0 {
		t.Fatalf("fresh velocity has a zero component: %+v", v)
	}
}

func TestManualDwellThenScatterThenRoam(t *testing.T) {
	m := newMachine(11)
	cfg := DefaultConfig()

	m.Grab()
	m.DragTo(geom.Point{X: 800, Y: 500})
	tr, _ := m.Release(t0)
	if tr.To != StateManual {
		t.Fatalf("released in the middle: %+v, want manual", tr)
	}

	now := t0
	step := 50 * time.Millisecond
	for now.Sub(t0) < cfg.ManualDwell-step {
		now = now.Add(step)
		m.Tick(now)
		if m.State() != StateManual {
			t.Fatalf("left manual after %v", now.Sub(t0))
		}
		if m.Position() != (geom.Point{X: 800, Y: 500}) {
			t.Fatal("manual agent moved")
		}
	}

	relocations := 0
	m.OnMove(func(geom.Point) { relocations++ })
	for i := 0; i < 100000 && m.State() != StateRoaming; i++ {
		now = now.Add(step)
		m.Tick(now)
	}
	if m.State() != StateRoaming {
		t.Fatal("never returned to roaming")
	}
	if relocations != cfg.ScatterBudget {
		t.Fatalf("relocations = %d, want %d", relocations, cfg.ScatterBudget)
	}
}

func TestScatterPacing(t *testing.T) {
	m := newMachine(12)
	m.Grab()
	m.DragTo(geom.Point{X: 800, Y: 500})
	m.Release(t0)

	start := t0.Add(DefaultConfig().ManualDwell)
	m.Tick(start)
	if m.State() != StateScattering || m.ScatterCount() != 1 {
		t.Fatalf("state=%s count=%d, want scattering with first relocation", m.State(), m.ScatterCount())
	}
	m.Tick(start.Add(7 * time.Second))
	if m.ScatterCount() != 1 {
		t.Fatalf("relocated early, count=%d", m.ScatterCount())
	}
	m.Tick(start.Add(8 * time.Second))
	if m.ScatterCount() != 2 {
		t.Fatalf("count=%d after 8s, want 2", m.ScatterCount())
	}
}

func TestGrabDiscardsSubState(t *testing.T) {
	m := newMachine(13)
	m.Grab()
	m.DragTo(geom.Point{X: 0, Y: 300})
	m.Release(t0)
	if _, ok := m.Border(); !ok {
		t.Fatal("expected border following")
	}

	m.Grab()
	if m.State() != StateUserHeld {
		t.Fatalf("state = %s, want user_held", m.State())
	}
	if _, ok := m.Border(); ok {
		t.Fatal("border info survived a grab")
	}
	if s := m.Snapshot(); s.Border != nil || s.ScatterCount != 0 {
		t.Fatalf("snapshot kept sub-state: %+v", s)
	}
}

func TestDragIgnoredWhenNotHeld(t *testing.T) {
	m := newMachine(14)
	before := m.Position()
	m.DragTo(geom.Point{X: 1, Y: 1})
	if m.Position() != before {
		t.Fatal("drag moved a roaming agent")
	}
	if _, ok := m.Release(t0); ok {
		t.Fatal("release accepted without grab")
	}
}

func TestForceRoaming(t *testing.T) {
	m := newMachine(15)
	m.Grab()
	m.ForceRoaming()
	if m.State() != StateRoaming {
		t.Fatalf("state = %s", m.State())
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
