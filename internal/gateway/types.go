package gateway

import (
	"context"

	"github.com/nidhogg/deskpet/internal/surface"
)

// Sink delivers surface events to one viewer or feed.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev surface.Event) error
	Close() error
}

// Filter decides whether a sink wants an event.
type Filter func(ev surface.Event) bool

// SkipChatter drops the high-rate move, frame and opacity events, keeping
// lifecycle and speech.
func SkipChatter(ev surface.Event) bool {
	switch ev.Type {
	case surface.EventAgentMoved, surface.EventAgentFrame, surface.EventBubbleOpacity, surface.EventBubbleMoved:
		return false
	}
	return true
}
