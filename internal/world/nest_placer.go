// Nest placement — scores cells and picks well-separated nest sites.
package world

import (
	"math"
	"sort"

	"github.com/talgya/antcolony/internal/mathx"
)

// NestSite is a candidate nest location.
type NestSite struct {
	X, Y  int
	Score float64 // Desirability score
}

// PlaceNests returns up to count nest sites sorted by desirability, each at least
// minDist (Manhattan) from the others. Ties break on row-major position so the
// result is deterministic for a given grid.
func PlaceNests(g *Grid, count, minDist int) []NestSite {
	var candidates []NestSite
	for i := range g.cells {
		c := &g.cells[i]
		if s := nestScore(g, c); s > 0 {
			candidates = append(candidates, NestSite{X: c.X, Y: c.Y, Score: s})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	var sites []NestSite
	for _, c := range candidates {
		if len(sites) >= count {
			break
		}
		if tooClose(c, sites, minDist) {
			continue
		}
		sites = append(sites, c)
	}
	return sites
}

// nestScore prefers clay and dirt, moderate moisture, and room to forage away from the edge.
func nestScore(g *Grid, c *Cell) float64 {
	score := 0.0
	switch c.Soil {
	case SoilClay:
		score += 3.0
	case SoilDirt:
		score += 2.5
	case SoilSand:
		score += 1.0
	default:
		return 0
	}

	// Too wet floods, too dry crumbles.
	score -= math.Abs(c.Moisture-0.55) * 2

	// Distance from the nearest edge, saturating at a quarter of the short side.
	edge := min(c.X, c.Y, g.Width-1-c.X, g.Height-1-c.Y)
	reach := float64(min(g.Width, g.Height)) / 4
	score += math.Min(float64(edge)/reach, 1) * 2

	// Food nearby but not on the nest itself.
	if c.Food > 0 {
		score -= 1
	}
	for _, n := range g.Neighbors(c.X, c.Y, true) {
		if n.Food > 0 {
			score += 0.1
		}
	}
	return score
}

func tooClose(c NestSite, existing []NestSite, minDist int) bool {
	for _, s := range existing {
		if mathx.Manhattan(c.X, c.Y, s.X, s.Y) < minDist {
			return true
		}
	}
	return false
}
