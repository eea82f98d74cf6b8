package codec

import "github.com/starford/storyloom/internal/models"

const (
	gridOrigin  = 100
	gridSpacing = 300
	gridMaxY    = 600
)

// Grid hands out positions for nodes that were stored without one: down a
// column in steps of gridSpacing, moving one column right once the next row
// would pass gridMaxY. The zero value starts at (gridOrigin, gridOrigin).
type Grid struct {
	x, y    float64
	started bool
}

// Next returns the next free grid position.
func (g *Grid) Next() models.Position {
	if !g.started {
		g.x, g.y, g.started = gridOrigin, gridOrigin, true
	}
	pos := models.Position{X: g.x, Y: g.y}
	g.y += gridSpacing
	if g.y > gridMaxY {
		g.y = gridOrigin
		g.x += gridSpacing
	}
	return pos
}
