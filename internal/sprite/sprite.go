// Package sprite loads the pet's animation sets and plays them on agents.
package sprite

import (
	"fmt"
	"image"
	"time"
)

// MinFrameDelay is the shortest time a frame stays up.
const MinFrameDelay = 50 * time.Millisecond

// Frame is one displayable image and how long it stays up.
type Frame struct {
	Image image.Image
	Delay time.Duration
}

// Set is an ordered animation. Frame wraps i into range.
type Set interface {
	ID() string
	Len() int
	Frame(i int) Frame
}

// AssetError reports a sprite file that could not be used.
type AssetError struct {
	Path string
	Err  error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("sprite %s: %v", e.Path, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

func wrap(i, n int) int {
	if n == 0 {
		return 0
	}
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

func clampDelay(d time.Duration) time.Duration {
	if d < MinFrameDelay {
		return MinFrameDelay
	}
	return d
}
