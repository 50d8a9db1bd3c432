package automation

import (
	"fmt"

	"github.com/nidhogg/deskpet/internal/geom"
)

// Icon is a desktop icon the pet can push around.
type Icon struct {
	Name     string     `json:"name"`
	Position geom.Point `json:"position"`
}

// Locator finds desktop icons.
type Locator interface {
	Icons(display geom.Size) []Icon
}

// GridLocator estimates icon positions from the usual desktop layout,
// column by column from the top-left corner.
type GridLocator struct {
	Start   geom.Point
	Spacing int
	Columns int
	Count   int
	Margin  int
}

// DefaultGrid matches a stock desktop: 8 icons, 4 per row, 120px apart.
func DefaultGrid() GridLocator {
	return GridLocator{
		Start:   geom.Point{X: 100, Y: 100},
		Spacing: 120,
		Columns: 4,
		Count:   8,
		Margin:  50,
	}
}

// Icons returns the grid positions that fit on the display.
func (g GridLocator) Icons(display geom.Size) []Icon {
	if g.Columns <= 0 {
		return nil
	}
	var icons []Icon
	for i := 0; i < g.Count; i++ {
		p := geom.Point{
			X: g.Start.X + (i%g.Columns)*g.Spacing,
			Y: g.Start.Y + (i/g.Columns)*g.Spacing,
		}
		if p.X < display.W-g.Margin && p.Y < display.H-g.Margin {
			icons = append(icons, Icon{Name: fmt.Sprintf("icon %d", i+1), Position: p})
		}
	}
	return icons
}
