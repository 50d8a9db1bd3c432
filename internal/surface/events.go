package surface

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"time"

	"github.com/google/uuid"
	"github.com/nidhogg/deskpet/internal/geom"
)

// EventType names what happened on the surface.
type EventType string

const (
	EventAgentCreated   EventType = "agent.created"
	EventAgentMoved     EventType = "agent.moved"
	EventAgentFrame     EventType = "agent.frame"
	EventAgentDestroyed EventType = "agent.destroyed"
	EventBubbleShown    EventType = "bubble.shown"
	EventBubbleMoved    EventType = "bubble.moved"
	EventBubbleOpacity  EventType = "bubble.opacity"
	EventBubbleClosed   EventType = "bubble.closed"
)

// Event is one surface change, rendered by whatever viewer is listening.
type Event struct {
	Type     EventType     `json:"type"`
	Agent    string        `json:"agent"`
	Bubble   string        `json:"bubble,omitempty"`
	Position *geom.Point   `json:"position,omitempty"`
	Size     *geom.Size    `json:"size,omitempty"`
	Frame    string        `json:"frame,omitempty"` // PNG data URI
	Text     string        `json:"text,omitempty"`
	Style    Style         `json:"style,omitempty"`
	Opacity  float64       `json:"opacity,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Time     time.Time     `json:"time"`
}

// Emitter receives surface events. Emit must not block.
type Emitter interface {
	Emit(ev Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ev Event)

// Emit calls f(ev).
func (f EmitterFunc) Emit(ev Event) { f(ev) }

// Events is a Surface that describes every change as an Event. It is driven
// from the timeline and is not safe for concurrent use.
type Events struct {
	out    Emitter
	clock  func() time.Time
	frames map[image.Image]string
}

// NewEvents creates an event surface. clock stamps events; nil uses
// time.Now.
func NewEvents(out Emitter, clock func() time.Time) *Events {
	if clock == nil {
		clock = time.Now
	}
	return &Events{out: out, clock: clock, frames: make(map[image.Image]string)}
}

// CreateHandle announces a new agent window.
func (s *Events) CreateHandle(id string, size geom.Size) Handle {
	s.emit(Event{Type: EventAgentCreated, Agent: id, Size: &size})
	return &eventHandle{s: s, id: id}
}

func (s *Events) emit(ev Event) {
	ev.Time = s.clock()
	s.out.Emit(ev)
}

// dataURI encodes img as a PNG data URI. Sprite frames are reused across
// ticks, so encodings are cached per image.
func (s *Events) dataURI(img image.Image) string {
	if uri, ok := s.frames[img]; ok {
		return uri
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ""
	}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	s.frames[img] = uri
	return uri
}

type eventHandle struct {
	s         *Events
	id        string
	destroyed bool
}

func (h *eventHandle) ID() string { return h.id }

func (h *eventHandle) MoveTo(p geom.Point) {
	if h.destroyed {
		return
	}
	h.s.emit(Event{Type: EventAgentMoved, Agent: h.id, Position: &p})
}

func (h *eventHandle) SetFrame(img image.Image) {
	if h.destroyed || img == nil {
		return
	}
	h.s.emit(Event{Type: EventAgentFrame, Agent: h.id, Frame: h.s.dataURI(img)})
}

func (h *eventHandle) ShowBubble(text string, d time.Duration, style Style) Bubble {
	b := &eventBubble{s: h.s, agent: h.id, id: uuid.NewString()}
	if h.destroyed {
		b.closed = true
		return b
	}
	h.s.emit(Event{Type: EventBubbleShown, Agent: h.id, Bubble: b.id, Text: text, Style: style, Duration: d})
	return b
}

func (h *eventHandle) Destroy() {
	if h.destroyed {
		return
	}
	h.destroyed = true
	h.s.emit(Event{Type: EventAgentDestroyed, Agent: h.id})
}

type eventBubble struct {
	s      *Events
	agent  string
	id     string
	closed bool
}

func (b *eventBubble) ID() string { return b.id }

func (b *eventBubble) MoveTo(p geom.Point) {
	if b.closed {
		return
	}
	b.s.emit(Event{Type: EventBubbleMoved, Agent: b.agent, Bubble: b.id, Position: &p})
}

func (b *eventBubble) SetOpacity(o float64) {
	if b.closed {
		return
	}
	b.s.emit(Event{Type: EventBubbleOpacity, Agent: b.agent, Bubble: b.id, Opacity: o})
}

func (b *eventBubble) Close() {
	if b.closed {
		return
	}
	b.closed = true
	b.s.emit(Event{Type: EventBubbleClosed, Agent: b.agent, Bubble: b.id})
}
