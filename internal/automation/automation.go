// Package automation performs the pet's pranks on the host desktop: shaking
// the active window and dragging desktop icons around. Everything here is
// best-effort.
package automation

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/nidhogg/deskpet/internal/geom"
)

var (
	// ErrUnsupported means the host cannot perform the action at all.
	ErrUnsupported = errors.New("automation unsupported on this host")
	// ErrTargetNotFound means there was nothing to act on.
	ErrTargetNotFound = errors.New("automation target not found")
)

// Service performs desktop automation. Implementations block until the
// action is over and must restore anything they disturbed before returning.
type Service interface {
	Name() string
	ShakeEnvironment(ctx context.Context, d time.Duration) error
	DragIconNear(ctx context.Context, at, offset geom.Point) error
}

// Unsupported is the backend used when no automation tool is available.
type Unsupported struct{}

func (Unsupported) Name() string { return "none" }

func (Unsupported) ShakeEnvironment(context.Context, time.Duration) error {
	return ErrUnsupported
}

func (Unsupported) DragIconNear(context.Context, geom.Point, geom.Point) error {
	return ErrUnsupported
}

const (
	maxDragOffset = 150
	dragMargin    = 50
	dragFarMargin = 100
)

// RandomOffset draws a drag offset uniformly from [-150, 150] per axis and
// shortens it so the destination stays inside the display's safe area.
func RandomOffset(rng *rand.Rand, at geom.Point, display geom.Size) geom.Point {
	off := geom.Point{
		X: rng.Intn(2*maxDragOffset+1) - maxDragOffset,
		Y: rng.Intn(2*maxDragOffset+1) - maxDragOffset,
	}
	dest := Destination(at, off, display)
	return geom.Point{X: dest.X - at.X, Y: dest.Y - at.Y}
}

// Destination is where a drag from at by offset ends, clamped into
// [50, W-100] × [50, H-100].
func Destination(at, offset geom.Point, display geom.Size) geom.Point {
	dest := at.Add(offset)
	return geom.Point{
		X: geom.Clamp(dest.X, dragMargin, display.W-dragFarMargin),
		Y: geom.Clamp(dest.Y, dragMargin, display.H-dragFarMargin),
	}
}
