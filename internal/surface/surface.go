// Package surface is the display side of the pet: agent windows and their
// speech bubbles.
package surface

import (
	"image"
	"time"

	"github.com/nidhogg/deskpet/internal/geom"
)

// Style selects a bubble's color theme.
type Style string

const (
	StyleCalm         Style = "calm"
	StyleNaughty      Style = "naughty"
	StyleAnnouncement Style = "announcement"
)

// Surface creates on-screen handles for agents.
type Surface interface {
	CreateHandle(id string, size geom.Size) Handle
}

// Handle is one agent's window. Calls after Destroy are ignored.
type Handle interface {
	ID() string
	MoveTo(p geom.Point)
	SetFrame(img image.Image)
	ShowBubble(text string, d time.Duration, style Style) Bubble
	Destroy()
}

// Bubble is a speech bubble shown next to an agent. Calls after Close are
// ignored.
type Bubble interface {
	ID() string
	MoveTo(p geom.Point)
	SetOpacity(o float64)
	Close()
}
