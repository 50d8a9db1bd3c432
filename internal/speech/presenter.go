// Package speech shows timed, fading speech bubbles next to agents.
package speech

import (
	"time"
	"unicode/utf8"

	"github.com/nidhogg/deskpet/internal/geom"
	"github.com/nidhogg/deskpet/internal/surface"
	"github.com/nidhogg/deskpet/internal/world"
	"go.uber.org/zap"
)

const (
	fadeSteps = 10
	fadeEvery = 30 * time.Millisecond

	// DefaultDuration is how long an ordinary line stays fully visible.
	DefaultDuration = 4 * time.Second
	// AnnouncementDuration is used for hourly chimes and mode switches.
	AnnouncementDuration = 6 * time.Second
	// CloneDuration is used for clone chatter.
	CloneDuration = 2 * time.Second
)

// Speaker is an agent a bubble can be attached to.
type Speaker struct {
	Handle   surface.Handle
	Position geom.Point
	Size     geom.Size
}

// Presenter schedules bubble fades on the timeline. Not safe for concurrent
// use.
type Presenter struct {
	sched   *world.Scheduler
	display geom.Size
	active  map[string]map[*Speech]struct{}
	logger  *zap.Logger
}

// NewPresenter creates a presenter for a display of the given size.
func NewPresenter(sched *world.Scheduler, display geom.Size, logger *zap.Logger) *Presenter {
	return &Presenter{
		sched:   sched,
		display: display,
		active:  make(map[string]map[*Speech]struct{}),
		logger:  logger,
	}
}

// Speech is one bubble being shown.
type Speech struct {
	p      *Presenter
	agent  string
	bubble surface.Bubble
	level  int
	fade   *world.Task
	hold   *world.Task
	done   bool
}

// Say shows text next to the speaker: it fades in, stays for d and fades
// out. d <= 0 uses DefaultDuration.
func (p *Presenter) Say(sp Speaker, text string, style surface.Style, d time.Duration) *Speech {
	if d <= 0 {
		d = DefaultDuration
	}
	agent := sp.Handle.ID()
	s := &Speech{p: p, agent: agent, bubble: sp.Handle.ShowBubble(text, d, style)}
	s.bubble.MoveTo(Place(sp.Position, sp.Size, EstimateSize(text), p.display))
	s.bubble.SetOpacity(0)

	if p.active[agent] == nil {
		p.active[agent] = make(map[*Speech]struct{})
	}
	p.active[agent][s] = struct{}{}

	s.fade = p.sched.Every("bubble-fade-in", fadeEvery, fadeEvery, s.fadeIn)
	s.hold = p.sched.After("bubble-hold", d, func(time.Time) { s.startFadeOut() })

	p.logger.Debug("speech shown",
		zap.String("agent", agent), zap.String("style", string(style)), zap.String("text", text))
	return s
}

// Dismiss closes every bubble the agent is showing.
func (p *Presenter) Dismiss(agent string) {
	for s := range p.active[agent] {
		s.Close()
	}
	delete(p.active, agent)
}

// Active returns how many bubbles the agent is showing.
func (p *Presenter) Active(agent string) int {
	return len(p.active[agent])
}

func (s *Speech) fadeIn(time.Time) {
	if s.level >= fadeSteps {
		s.fade.Cancel()
		return
	}
	s.level++
	s.bubble.SetOpacity(float64(s.level) / fadeSteps)
	if s.level >= fadeSteps {
		s.fade.Cancel()
	}
}

func (s *Speech) startFadeOut() {
	if s.done {
		return
	}
	s.fade.Cancel()
	s.fade = s.p.sched.Every("bubble-fade-out", fadeEvery, fadeEvery, s.fadeOut)
}

func (s *Speech) fadeOut(time.Time) {
	s.level--
	if s.level <= 0 {
		s.Close()
		return
	}
	s.bubble.SetOpacity(float64(s.level) / fadeSteps)
}

// Opacity is the bubble's current opacity in [0, 1].
func (s *Speech) Opacity() float64 { return float64(s.level) / fadeSteps }

// Done reports whether the bubble has been closed.
func (s *Speech) Done() bool { return s.done }

// Close removes the bubble immediately and stops its fades.
func (s *Speech) Close() {
	if s.done {
		return
	}
	s.done = true
	s.fade.Cancel()
	s.hold.Cancel()
	s.bubble.Close()
	if set := s.p.active[s.agent]; set != nil {
		delete(set, s)
		if len(set) == 0 {
			delete(s.p.active, s.agent)
		}
	}
}

// Place puts a bubble to the right of the agent, or to its left when it
// would run off the display, keeping it on screen.
func Place(agent geom.Point, agentSize, bubble, display geom.Size) geom.Point {
	x := agent.X + agentSize.W + 15
	y := agent.Y - 10
	if x+bubble.W > display.W {
		x = agent.X - bubble.W - 15
	}
	if y+bubble.H > display.H {
		y = display.H - bubble.H - 10
	}
	if x < 0 {
		x = 10
	}
	if y < 0 {
		y = 10
	}
	return geom.Point{X: x, Y: y}
}

const (
	wrapWidth  = 150
	charWidth  = 12
	lineHeight = 18
	padding    = 22
)

// EstimateSize approximates the rendered bubble size of text wrapped at
// 150px.
func EstimateSize(text string) geom.Size {
	lines := 0
	widest := 0
	for _, line := range splitLines(text) {
		w := utf8.RuneCountInString(line) * charWidth
		wrapped := (w + wrapWidth - 1) / wrapWidth
		if wrapped == 0 {
			wrapped = 1
		}
		lines += wrapped
		if w > widest {
			widest = w
		}
	}
	if widest > wrapWidth {
		widest = wrapWidth
	}
	return geom.Size{W: widest + padding, H: lines*lineHeight + padding}
}

func splitLines(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r == '\n' {
			out = append(out, text[start:i])
			start = i + 1
		}
	}
	return append(out, text[start:])
}
