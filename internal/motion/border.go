package motion

import "github.com/nidhogg/deskpet/internal/geom"

// Edge names one side of the display.
type Edge string

const (
	EdgeLeft   Edge = "left"
	EdgeRight  Edge = "right"
	EdgeTop    Edge = "top"
	EdgeBottom Edge = "bottom"
)

// Border records the edge being followed and the traversal direction along
// it: +1 towards larger coordinates, -1 towards smaller ones.
type Border struct {
	Edge      Edge `json:"edge"`
	Direction int  `json:"direction"`
}

// detectBorder tests the edges in fixed priority order (left, right, top,
// bottom); the first one within threshold wins, which also settles corners.
// The initial direction heads for the far half of the edge.
func detectBorder(p geom.Point, b geom.Bounds, threshold int) (Border, bool) {
	for _, e := range []Edge{EdgeLeft, EdgeRight, EdgeTop, EdgeBottom} {
		if !nearEdge(p, b, e, threshold) {
			continue
		}
		along, limit := alongAxis(p, b, e)
		dir := -1
		if along*2 < limit {
			dir = 1
		}
		return Border{Edge: e, Direction: dir}, true
	}
	return Border{}, false
}

func nearEdge(p geom.Point, b geom.Bounds, e Edge, threshold int) bool {
	switch e {
	case EdgeLeft:
		return p.X <= threshold
	case EdgeRight:
		return p.X >= b.MaxX()-threshold
	case EdgeTop:
		return p.Y <= threshold
	case EdgeBottom:
		return p.Y >= b.MaxY()-threshold
	}
	return false
}

// alongAxis returns the coordinate that varies while following e and its
// upper limit.
func alongAxis(p geom.Point, b geom.Bounds, e Edge) (int, int) {
	if e == EdgeLeft || e == EdgeRight {
		return p.Y, b.MaxY()
	}
	return p.X, b.MaxX()
}

// slide moves one step along the followed edge, reflecting at both ends and
// keeping the agent pinned to the edge.
func (m *Machine) slide() {
	along, limit := alongAxis(m.pos, m.bounds, m.border.Edge)
	along += m.cfg.BorderSpeed * m.border.Direction
	switch {
	case along <= 0:
		along = 0
		m.border.Direction = 1
	case along >= limit:
		along = limit
		m.border.Direction = -1
	}

	var next geom.Point
	switch m.border.Edge {
	case EdgeLeft:
		next = geom.Point{X: 0, Y: along}
	case EdgeRight:
		next = geom.Point{X: m.bounds.MaxX(), Y: along}
	case EdgeTop:
		next = geom.Point{X: along, Y: 0}
	case EdgeBottom:
		next = geom.Point{X: along, Y: m.bounds.MaxY()}
	}
	m.moveTo(next)

	if !nearEdge(m.pos, m.bounds, m.border.Edge, m.cfg.BorderThreshold) {
		edge := m.border.Edge
		m.border = Border{}
		m.vel = m.randomVelocity()
		m.transition(StateRoaming, edge, 0)
	}
}
