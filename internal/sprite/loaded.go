package sprite

import (
	"bufio"
	"errors"
	"image"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"time"
)

const staticDelay = 100 * time.Millisecond

// Loaded is a sprite set decoded from a file.
type Loaded struct {
	id     string
	frames []Frame
}

func (l *Loaded) ID() string { return l.id }
func (l *Loaded) Len() int { return len(l.frames) }

func (l *Loaded) Frame(i int) Frame {
	return l.frames[wrap(i, len(l.frames))]
}

// Load decodes an animated GIF or a static PNG/JPEG. Failures are returned
// as *AssetError.
func Load(path string) (*Loaded, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &AssetError{Path: path, Err: err}
	}
	defer f.Close()

	frames, err := decode(bufio.NewReader(f))
	if err != nil {
		return nil, &AssetError{Path: path, Err: err}
	}
	return &Loaded{id: filepath.Base(path), frames: frames}, nil
}

func decode(r *bufio.Reader) ([]Frame, error) {
	magic, err := r.Peek(3)
	if err != nil {
		return nil, err
	}
	if string(magic) == "GIF" {
		return decodeGIF(r)
	}
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return []Frame{{Image: img, Delay: staticDelay}}, nil
}

// decodeGIF flattens every GIF frame onto a full canvas so each Frame can
// be shown on its own.
func decodeGIF(r io.Reader) ([]Frame, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, err
	}
	if len(g.Image) == 0 {
		return nil, errors.New("gif has no frames")
	}
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	canvas := image.NewRGBA(bounds)

	frames := make([]Frame, 0, len(g.Image))
	for i, src := range g.Image {
		var saved *image.RGBA
		if disposal(g, i) == gif.DisposalPrevious {
			saved = copyRGBA(canvas)
		}
		draw.Draw(canvas, src.Bounds(), src, src.Bounds().Min, draw.Over)

		delay := staticDelay
		if i < len(g.Delay) && g.Delay[i] > 0 {
			delay = time.Duration(g.Delay[i]) * 10 * time.Millisecond
		}
		frames = append(frames, Frame{Image: copyRGBA(canvas), Delay: delay})

		switch disposal(g, i) {
		case gif.DisposalBackground:
			draw.Draw(canvas, src.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = saved
		}
	}
	return frames, nil
}

func disposal(g *gif.GIF, i int) byte {
	if i < len(g.Disposal) {
		return g.Disposal[i]
	}
	return 0
}

func copyRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
