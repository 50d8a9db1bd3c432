package surface

import (
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/nidhogg/deskpet/internal/geom"
)

type recorder struct{ events []Event }

func (r *recorder) Emit(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) types() []EventType {
	out := make([]EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func fixedClock() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

func TestHandleLifecycle(t *testing.T) {
	rec := &recorder{}
	s := NewEvents(rec, fixedClock)

	h := s.CreateHandle("pet", geom.Size{W: 100, H: 100})
	h.MoveTo(geom.Point{X: 10, Y: 20})
	b := h.ShowBubble("hi", 4*time.Second, StyleCalm)
	b.SetOpacity(0.5)
	b.Close()
	b.Close()
	h.Destroy()
	h.MoveTo(geom.Point{X: 1, Y: 1})
	h.Destroy()

	want := []EventType{
		EventAgentCreated, EventAgentMoved, EventBubbleShown,
		EventBubbleOpacity, EventBubbleClosed, EventAgentDestroyed,
	}
	got := rec.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
	if p := rec.events[1].Position; p == nil || *p != (geom.Point{X: 10, Y: 20}) {
		t.Errorf("move position = %v", p)
	}
	if rec.events[2].Bubble == "" || rec.events[2].Bubble != rec.events[4].Bubble {
		t.Error("bubble id not carried through")
	}
	if !rec.events[0].Time.Equal(fixedClock()) {
		t.Errorf("event time = %v", rec.events[0].Time)
	}
}

func TestBubbleOnDestroyedHandleIsInert(t *testing.T) {
	rec := &recorder{}
	s := NewEvents(rec, fixedClock)
	h := s.CreateHandle("clone-1", geom.Size{W: 150, H: 150})
	h.Destroy()

	b := h.ShowBubble("late", time.Second, StyleNaughty)
	b.SetOpacity(1)
	b.Close()
	if len(rec.events) != 2 {
		t.Fatalf("got %d events, want create+destroy only", len(rec.events))
	}
}

func TestFrameEncodingIsCached(t *testing.T) {
	rec := &recorder{}
	s := NewEvents(rec, fixedClock)
	h := s.CreateHandle("pet", geom.Size{W: 2, H: 2})

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	h.SetFrame(img)
	h.SetFrame(img)

	if len(s.frames) != 1 {
		t.Fatalf("cache holds %d frames, want 1", len(s.frames))
	}
	uri := rec.events[1].Frame
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Fatalf("frame = %q", uri)
	}
	if rec.events[2].Frame != uri {
		t.Error("second frame event not served from cache")
	}
}
