package world

import (
	"fmt"
	"math/rand"
)

// RegenConfig controls clustered food regrowth.
type RegenConfig struct {
	BaseRate   float64 // Chance per tick that a cell regrows with no food neighbours
	SpreadRate float64 // Added chance per neighbour that already holds food
	Cap        float64 // Maximum food per cell
	Unit       float64 // Food added per successful regrowth
}

// Validate rejects negative rates or caps.
func (rc RegenConfig) Validate() error {
	if rc.BaseRate < 0 || rc.SpreadRate < 0 || rc.Cap < 0 || rc.Unit < 0 {
		return fmt.Errorf("%w: regen %+v", ErrInvalidConfig, rc)
	}
	return nil
}

// RegenerateFood grows food with density-weighted spread: a cell next to n food-bearing
// cells regrows with probability BaseRate + SpreadRate*n, so patches grow outward
// instead of salting the map uniformly. Neighbour counts come from the state before
// this pass. Nest cells never grow food. Returns the total food added.
func (g *Grid) RegenerateFood(rc RegenConfig, rng *rand.Rand) float64 {
	if rc.BaseRate == 0 && rc.SpreadRate == 0 {
		return 0
	}

	counts := make([]uint8, len(g.cells))
	for i := range g.cells {
		c := &g.cells[i]
		for _, n := range g.Neighbors(c.X, c.Y, true) {
			if n.Food > 0 {
				counts[i]++
			}
		}
	}

	added := 0.0
	for i := range g.cells {
		c := &g.cells[i]
		if c.IsNest || c.Food >= rc.Cap {
			continue
		}
		p := rc.BaseRate + rc.SpreadRate*float64(counts[i])
		if rng.Float64() >= p {
			continue
		}
		grown := c.Food + rc.Unit
		if grown > rc.Cap {
			grown = rc.Cap
		}
		added += grown - c.Food
		c.Food = grown
	}
	return added
}
