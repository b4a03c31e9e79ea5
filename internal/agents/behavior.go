// Agent behaviour — the per-tick task state machine.
// Agents coordinate only through what they read from and write to the shared
// pheromone field and the food on the grid.
package agents

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/talgya/antcolony/internal/mathx"
	"github.com/talgya/antcolony/internal/pheromone"
	"github.com/talgya/antcolony/internal/world"
)

// Terrain is the spatial grid as the agent sees it.
type Terrain interface {
	CellAt(x, y int) (*world.Cell, error)
	Neighbors(x, y int, diagonals bool) []*world.Cell
}

// Signals is the pheromone field as the agent sees it.
type Signals interface {
	Deposit(c pheromone.Channel, x, y int, amount float64) error
	Read(c pheromone.Channel, x, y int) (float64, error)
}

// minResponseThreshold keeps r/(r+threshold) defined for thresholds sampled at or below zero.
const minResponseThreshold = 0.01

// Surroundings bundles everything an agent consults during one update.
type Surroundings struct {
	Grid   Terrain
	Field  Signals
	NestX  int
	NestY  int
	Params Params
}

// step carries one agent's update through the task handlers.
type step struct {
	a   *Agent
	s   *Surroundings
	p   *Params
	rng *rand.Rand
}

// Update advances the agent by one tick and returns the food it delivered to the
// nest (0 unless it arrived home carrying). Grid or field bounds errors abort the update.
func (a *Agent) Update(s *Surroundings, rng *rand.Rand) (float64, error) {
	st := &step{a: a, s: s, p: &s.Params, rng: rng}
	a.Age++

	var delivered float64
	var err error
	switch a.Task {
	case TaskIdle:
		err = st.idle()
	case TaskForaging:
		err = st.forage()
	case TaskGathering:
		err = st.gather()
	case TaskCarryingFood:
		delivered, err = st.carry()
	}
	if err != nil {
		return 0, fmt.Errorf("agent %d %s: %w", a.ID, a.Task, err)
	}

	// Breadcrumbs: carriers reinforce faster than gatherers.
	if a.LayTrail {
		amount := 0.0
		switch a.Task {
		case TaskCarryingFood:
			amount = st.p.CarryTrailPerStep
		case TaskGathering:
			amount = st.p.GatherTrailPerStep
		}
		if amount > 0 {
			if err := s.Field.Deposit(pheromone.Trail, a.X, a.Y, amount); err != nil {
				return 0, fmt.Errorf("agent %d trail: %w", a.ID, err)
			}
		}
	}

	return delivered, nil
}

// idle waits for a food stimulus above threshold, or answers recruitment directly.
func (st *step) idle() error {
	a := st.a
	stimulus := st.rng.Float64()
	threshold := a.Threshold(StimulusFood)

	r, err := st.s.Field.Read(pheromone.Recruitment, a.X, a.Y)
	if err != nil {
		return err
	}
	if r > 0 && st.rng.Float64() < responseProbability(r, threshold) {
		st.startGathering()
		return nil
	}

	if stimulus > threshold {
		a.Task = TaskForaging
	}
	return nil
}

// forage picks up any food underfoot, advertising only rich sources. Otherwise
// the scout may answer recruitment, growing more eager the longer it searches,
// or marks the ground explored and walks on.
func (st *step) forage() error {
	a, p := st.a, st.p
	cell, err := st.s.Grid.CellAt(a.X, a.Y)
	if err != nil {
		return err
	}

	if cell.Food > 0 && !cell.IsNest {
		before := cell.Food
		st.pickUp(cell)
		a.Task = TaskCarryingFood
		a.SearchTicks = 0

		// Small finds are picked up silently so depleted sources are not advertised.
		if before >= p.MotherlodeThreshold {
			a.LayTrail = true
			return st.advertise(cell)
		}
		return nil
	}

	a.SearchTicks++
	r, err := st.s.Field.Read(pheromone.Recruitment, a.X, a.Y)
	if err != nil {
		return err
	}
	if r > 0 {
		urgency := 1 + float64(a.SearchTicks)/p.UrgencyTicks
		prob := mathx.Clamp(p.RecruitBaseRate*urgency*responseProbability(r, a.Threshold(StimulusFood)), 0, 1)
		if st.rng.Float64() < prob {
			a.SearchTicks = 0
			st.startGathering()
			return nil
		}
	}

	if err := st.s.Field.Deposit(pheromone.Territory, a.X, a.Y, p.TerritoryDeposit); err != nil {
		return err
	}
	return st.moveForaging()
}

// gather exploits a known source: it only bothers with rich sources or dense
// clusters, follows trail outward, and gives up after its patience runs out.
func (st *step) gather() error {
	a, p := st.a, st.p
	cell, err := st.s.Grid.CellAt(a.X, a.Y)
	if err != nil {
		return err
	}

	if cell.Food > 0 && !cell.IsNest {
		motherlode := cell.Food >= p.MotherlodeThreshold
		if motherlode || st.denseCluster(cell) {
			st.pickUp(cell)
			a.Task = TaskCarryingFood
			a.Patience = p.GatherPatience
			if motherlode {
				return st.advertise(cell)
			}
			return st.s.Field.Deposit(pheromone.Trail, cell.X, cell.Y, p.GatherTrailPerStep)
		}
	}

	a.Patience--
	if a.Patience <= 0 {
		// Abandon in place rather than walking back to the nest.
		a.Patience = 0
		a.Task = TaskForaging
		a.LayTrail = false
		a.SearchTicks = 0
		return nil
	}

	neighbors := st.s.Grid.Neighbors(a.X, a.Y, true)
	if len(neighbors) == 0 {
		return nil
	}
	if st.rng.Float64() < p.GatherFollowRate {
		best, err := st.outboundNeighbor(neighbors)
		if err != nil {
			return err
		}
		if best != nil {
			a.stepTo(best)
			return nil
		}
	}
	return st.correlatedStep(neighbors)
}

// carry heads home. At the nest it unloads, turns around to retrace the way to
// the source, and goes back to gathering if the source was worth a trail.
func (st *step) carry() (float64, error) {
	a := st.a
	cell, err := st.s.Grid.CellAt(a.X, a.Y)
	if err != nil {
		return 0, err
	}

	if cell.IsNest {
		delivered := a.CarryingFood
		a.CarryingFood = 0
		a.Heading = normalizeAngle(a.Heading + math.Pi)
		if a.LayTrail {
			a.Task = TaskGathering
			a.Patience = st.p.GatherPatience
		} else {
			a.Task = TaskForaging
		}
		return delivered, nil
	}

	st.moveToward(st.s.NestX, st.s.NestY)
	return 0, nil
}

func (st *step) startGathering() {
	st.a.Task = TaskGathering
	st.a.LayTrail = true
	st.a.Patience = st.p.GatherPatience
}

// pickUp moves up to one ration from the cell to the agent.
func (st *step) pickUp(cell *world.Cell) {
	take := math.Min(cell.Food, st.p.PickupRation)
	cell.Food -= take
	st.a.CarryingFood = take
}

// advertise drops a heavy trail and recruitment at a rich source.
func (st *step) advertise(cell *world.Cell) error {
	if err := st.s.Field.Deposit(pheromone.Trail, cell.X, cell.Y, st.p.TrailAtFood); err != nil {
		return err
	}
	return st.s.Field.Deposit(pheromone.Recruitment, cell.X, cell.Y, st.p.RecruitmentDeposit)
}

// denseCluster reports whether enough of the 3x3 block around cell holds food.
func (st *step) denseCluster(cell *world.Cell) bool {
	n := 0
	if cell.Food > 0 {
		n++
	}
	for _, c := range st.s.Grid.Neighbors(cell.X, cell.Y, true) {
		if c.Food > 0 {
			n++
		}
	}
	return n >= st.p.DenseClusterMinCells
}

// responseProbability is the saturating response s/(s+threshold).
func responseProbability(stimulus, threshold float64) float64 {
	threshold = math.Max(threshold, minResponseThreshold)
	return mathx.Clamp(stimulus/(stimulus+threshold), 0, 1)
}
