// Package geom holds the integer screen geometry shared by motion, speech and
// the surfaces.
package geom

// Point is a screen coordinate in pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Size is a width/height pair in pixels.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Bounds is the area an agent of a given size may occupy inside the display:
// its top-left corner stays within [0, Display.W-Agent.W] × [0, Display.H-Agent.H].
type Bounds struct {
	Display Size `json:"display"`
	Agent   Size `json:"agent"`
}

// MaxX is the largest x an agent's top-left corner can take.
func (b Bounds) MaxX() int {
	if m := b.Display.W - b.Agent.W; m > 0 {
		return m
	}
	return 0
}

// MaxY is the largest y an agent's top-left corner can take.
func (b Bounds) MaxY() int {
	if m := b.Display.H - b.Agent.H; m > 0 {
		return m
	}
	return 0
}

// Clamp pulls p into bounds.
func (b Bounds) Clamp(p Point) Point {
	return Point{X: clamp(p.X, 0, b.MaxX()), Y: clamp(p.Y, 0, b.MaxY())}
}

// Contains reports whether p is a legal top-left position.
func (b Bounds) Contains(p Point) bool {
	return p.X >= 0 && p.X <= b.MaxX() && p.Y >= 0 && p.Y <= b.MaxY()
}

// Inset returns the range [lo, hi] for one axis after reserving margin on both
// sides. When the margin does not fit the full axis range is returned.
func Inset(limit, margin int) (lo, hi int) {
	if limit-2*margin < 0 {
		return 0, limit
	}
	return margin, limit - margin
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi int) int {
	return clamp(v, lo, hi)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
