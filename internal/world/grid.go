package world

import (
	"errors"
	"fmt"

	"github.com/talgya/antcolony/internal/mathx"
)

var (
	// ErrOutOfBounds is returned for any coordinate outside the grid.
	ErrOutOfBounds = errors.New("coordinate out of bounds")
	// ErrInvalidConfig is returned for non-positive dimensions or bad generation parameters.
	ErrInvalidConfig = errors.New("invalid world config")
)

// Grid holds the complete cell state, indexed row-major.
type Grid struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	cells []Cell
}

// NewGrid creates a grid of default dirt cells.
func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: grid %dx%d", ErrInvalidConfig, width, height)
	}
	g := &Grid{
		Width:  width,
		Height: height,
		cells:  make([]Cell, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := &g.cells[y*width+x]
			c.X, c.Y = x, y
			c.Moisture = 0.5
			c.Temperature = 0.5
		}
	}
	return g, nil
}

// InBounds returns true if (x, y) lies on the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// CellAt returns the cell at (x, y). Out-of-range coordinates are an error, never clamped.
func (g *Grid) CellAt(x, y int) (*Cell, error) {
	if !g.InBounds(x, y) {
		return nil, fmt.Errorf("cell (%d, %d) on %dx%d grid: %w", x, y, g.Width, g.Height, ErrOutOfBounds)
	}
	return &g.cells[y*g.Width+x], nil
}

// Neighbors returns the in-bounds cells adjacent to (x, y): the four cardinal
// neighbours first, then the diagonals when requested.
func (g *Grid) Neighbors(x, y int, diagonals bool) []*Cell {
	result := make([]*Cell, 0, 8)
	for _, d := range cardinalOffsets {
		if nx, ny := x+d[0], y+d[1]; g.InBounds(nx, ny) {
			result = append(result, &g.cells[ny*g.Width+nx])
		}
	}
	if diagonals {
		for _, d := range diagonalOffsets {
			if nx, ny := x+d[0], y+d[1]; g.InBounds(nx, ny) {
				result = append(result, &g.cells[ny*g.Width+nx])
			}
		}
	}
	return result
}

// MarkNest flags every cell within a square radius of (x, y) as nest and clears its food.
// The centre must be in bounds; the square is clipped to the grid.
func (g *Grid) MarkNest(x, y, radius int) error {
	if !g.InBounds(x, y) {
		return fmt.Errorf("nest at (%d, %d): %w", x, y, ErrOutOfBounds)
	}
	if radius < 0 {
		return fmt.Errorf("%w: nest radius %d", ErrInvalidConfig, radius)
	}
	x0 := mathx.Clamp(x-radius, 0, g.Width-1)
	x1 := mathx.Clamp(x+radius, 0, g.Width-1)
	y0 := mathx.Clamp(y-radius, 0, g.Height-1)
	y1 := mathx.Clamp(y+radius, 0, g.Height-1)
	for cy := y0; cy <= y1; cy++ {
		for cx := x0; cx <= x1; cx++ {
			c := &g.cells[cy*g.Width+cx]
			c.IsNest = true
			c.Food = 0
		}
	}
	return nil
}

// Cells returns the backing cells in row-major order. Callers must not retain it across ticks.
func (g *Grid) Cells() []Cell {
	return g.cells
}

// TotalFood sums the food on every cell.
func (g *Grid) TotalFood() float64 {
	total := 0.0
	for i := range g.cells {
		total += g.cells[i].Food
	}
	return total
}

// FoodGrid returns a row-major copy of per-cell food for overlay rendering.
func (g *Grid) FoodGrid() []float64 {
	out := make([]float64, len(g.cells))
	for i := range g.cells {
		out[i] = g.cells[i].Food
	}
	return out
}

// SoilCounts returns a summary of soil type distribution.
func (g *Grid) SoilCounts() map[SoilType]int {
	counts := make(map[SoilType]int)
	for i := range g.cells {
		counts[g.cells[i].Soil]++
	}
	return counts
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d, food=%.1f)", g.Width, g.Height, g.TotalFood())
}

// RestoreFood overwrites per-cell food from a row-major snapshot taken by FoodGrid.
func (g *Grid) RestoreFood(food []float64) error {
	if len(food) != len(g.cells) {
		return fmt.Errorf("%w: food snapshot has %d cells, grid has %d", ErrInvalidConfig, len(food), len(g.cells))
	}
	for i, f := range food {
		if f < 0 {
			return fmt.Errorf("%w: negative food %.3f at index %d", ErrInvalidConfig, f, i)
		}
		g.cells[i].Food = f
	}
	return nil
}
