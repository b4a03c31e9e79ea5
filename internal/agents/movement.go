package agents

import (
	"math"
	"sort"

	"github.com/talgya/antcolony/internal/mathx"
	"github.com/talgya/antcolony/internal/pheromone"
	"github.com/talgya/antcolony/internal/world"
)

// moveForaging follows trail some of the time, otherwise walks on its heading.
func (st *step) moveForaging() error {
	neighbors := st.s.Grid.Neighbors(st.a.X, st.a.Y, true)
	if len(neighbors) == 0 {
		return nil
	}

	if st.rng.Float64() < st.p.ForageFollowRate {
		best, err := st.strongestNeighbor(neighbors, pheromone.Trail)
		if err != nil {
			return err
		}
		if best != nil {
			st.a.stepTo(best)
			return nil
		}
	}
	return st.correlatedStep(neighbors)
}

// correlatedStep moves to the neighbour best aligned with a noisy copy of the
// heading, penalised by explored-ground territory.
func (st *step) correlatedStep(neighbors []*world.Cell) error {
	a := st.a
	noisy := a.Heading + st.rng.NormFloat64()*st.p.HeadingNoiseStd

	var best *world.Cell
	bestScore := math.Inf(-1)
	for _, c := range neighbors {
		angle := math.Atan2(float64(c.Y-a.Y), float64(c.X-a.X))
		territory, err := st.s.Field.Read(pheromone.Territory, c.X, c.Y)
		if err != nil {
			return err
		}
		score := math.Cos(angle-noisy) - territory
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if best != nil {
		a.stepTo(best)
	}
	return nil
}

// strongestNeighbor returns the neighbour with the highest concentration of ch,
// or nil if every neighbour reads zero.
func (st *step) strongestNeighbor(neighbors []*world.Cell, ch pheromone.Channel) (*world.Cell, error) {
	var best *world.Cell
	bestVal := 0.0
	for _, c := range neighbors {
		v, err := st.s.Field.Read(ch, c.X, c.Y)
		if err != nil {
			return nil, err
		}
		if v > bestVal {
			bestVal = v
			best = c
		}
	}
	return best, nil
}

// outboundNeighbor scores trail-bearing neighbours by concentration plus a bonus
// for stepping farther from the nest, so gatherers do not bounce between trail
// fragments near the entrance. Recruitment is used when no neighbour has trail.
func (st *step) outboundNeighbor(neighbors []*world.Cell) (*world.Cell, error) {
	a, p := st.a, st.p

	conc := make([]float64, len(neighbors))
	anyTrail := false
	for i, c := range neighbors {
		v, err := st.s.Field.Read(pheromone.Trail, c.X, c.Y)
		if err != nil {
			return nil, err
		}
		conc[i] = v
		if v > 0 {
			anyTrail = true
		}
	}
	if !anyTrail {
		for i, c := range neighbors {
			v, err := st.s.Field.Read(pheromone.Recruitment, c.X, c.Y)
			if err != nil {
				return nil, err
			}
			conc[i] = v
		}
	}

	here := mathx.Manhattan(a.X, a.Y, st.s.NestX, st.s.NestY)
	var best *world.Cell
	bestScore := math.Inf(-1)
	for i, c := range neighbors {
		if conc[i] <= 0 {
			continue
		}
		bonus := p.InboundBonus
		if mathx.Manhattan(c.X, c.Y, st.s.NestX, st.s.NestY) > here {
			bonus = p.OutboundBonus
		}
		if score := conc[i] + bonus; score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best, nil
}

// moveToward steps to one of the (up to) two neighbours closest to the target.
func (st *step) moveToward(tx, ty int) {
	neighbors := st.s.Grid.Neighbors(st.a.X, st.a.Y, true)
	if len(neighbors) == 0 {
		return
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return mathx.Manhattan(neighbors[i].X, neighbors[i].Y, tx, ty) <
			mathx.Manhattan(neighbors[j].X, neighbors[j].Y, tx, ty)
	})
	top := min(2, len(neighbors))
	st.a.stepTo(neighbors[st.rng.Intn(top)])
}

// stepTo moves onto c and points the heading along the step taken.
func (a *Agent) stepTo(c *world.Cell) {
	dx, dy := c.X-a.X, c.Y-a.Y
	if dx != 0 || dy != 0 {
		a.Heading = normalizeAngle(math.Atan2(float64(dy), float64(dx)))
	}
	a.X, a.Y = c.X, c.Y
}
