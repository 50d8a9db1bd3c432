package sprite

import (
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/nidhogg/deskpet/internal/geom"
)

// PlaceholderID names the generated fallback set.
const PlaceholderID = "placeholder"

var placeholderColors = []color.RGBA{
	{R: 255, G: 182, B: 193, A: 255},
	{R: 255, G: 192, B: 203, A: 255},
	{R: 255, G: 160, B: 180, A: 255},
}

// Placeholder is the set shown when no sprite file could be loaded: three
// pink squares, half a second each.
type Placeholder struct {
	frames []Frame
}

// NewPlaceholder builds a placeholder of the given size.
func NewPlaceholder(size geom.Size) *Placeholder {
	p := &Placeholder{}
	for _, c := range placeholderColors {
		img := image.NewRGBA(image.Rect(0, 0, size.W, size.H))
		draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
		p.frames = append(p.frames, Frame{Image: img, Delay: 500 * time.Millisecond})
	}
	return p
}

func (p *Placeholder) ID() string { return PlaceholderID }
func (p *Placeholder) Len() int { return len(p.frames) }

func (p *Placeholder) Frame(i int) Frame {
	return p.frames[wrap(i, len(p.frames))]
}
