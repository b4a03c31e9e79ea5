package engine

import (
	"fmt"
	"maps"
	"math/rand"

	"github.com/talgya/antcolony/internal/agents"
	"github.com/talgya/antcolony/internal/colony"
	"github.com/talgya/antcolony/internal/environment"
	"github.com/talgya/antcolony/internal/pheromone"
	"github.com/talgya/antcolony/internal/world"
)

// SimStats tracks aggregate run statistics.
type SimStats struct {
	Tick         uint64  `json:"tick" db:"tick"`
	Colonies     int     `json:"colonies" db:"colonies"`
	Population   int     `json:"population" db:"population"`
	FoodStore    float64 `json:"food_store" db:"food_store"`
	BroodCount   int     `json:"brood_count" db:"brood_count"`
	Carrying     float64 `json:"carrying" db:"carrying"`
	FoodOnGrid   float64 `json:"food_on_grid" db:"food_on_grid"`
	Delivered    float64 `json:"delivered" db:"delivered"`
	Hatched      int     `json:"hatched" db:"hatched"`
	Deaths       int     `json:"deaths" db:"deaths"`
	MeanVitality float64 `json:"mean_vitality" db:"mean_vitality"`
	TrailTotal   float64 `json:"trail_total" db:"trail_total"`
}

// Status is the headline view served by the API.
type Status struct {
	RunID       string            `json:"run_id"`
	Tick        uint64            `json:"tick"`
	Time        string            `json:"time"`
	Environment environment.State `json:"environment"`
	Weather     string            `json:"weather"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Stats       SimStats          `json:"stats"`
}

// Stats computes the current aggregate statistics.
func (s *Simulation) Stats() SimStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats()
}

func (s *Simulation) stats() SimStats {
	st := SimStats{
		Tick:       s.Tick,
		Colonies:   len(s.Colonies),
		FoodOnGrid: s.Grid.TotalFood(),
		TrailTotal: s.Field.Total(pheromone.Trail),
	}
	var vitality float64
	for _, c := range s.Colonies {
		cs := c.Stats()
		st.Population += cs.Population
		st.FoodStore += cs.FoodStore
		st.BroodCount += cs.BroodCount
		st.Carrying += cs.Carrying
		st.Delivered += cs.Delivered
		st.Hatched += cs.Hatched
		st.Deaths += cs.Deaths
		vitality += cs.MeanVitality * float64(cs.Population)
	}
	if st.Population > 0 {
		st.MeanVitality = vitality / float64(st.Population)
	}
	return st
}

// Status returns the headline snapshot.
func (s *Simulation) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		RunID:       s.RunID,
		Tick:        s.Tick,
		Time:        SimTime(s.Tick, s.Config.DayLength),
		Environment: *s.Env,
		Weather:     s.Env.Describe(),
		Width:       s.Grid.Width,
		Height:      s.Grid.Height,
		Stats:       s.stats(),
	}
}

// ColonyStats returns a summary per colony.
func (s *Simulation) ColonyStats() []colony.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]colony.Stats, 0, len(s.Colonies))
	for _, c := range s.Colonies {
		out = append(out, c.Stats())
	}
	return out
}

// AgentSnapshots returns the live agents of one colony, or of every colony when id is 0.
func (s *Simulation) AgentSnapshots(id colony.ID) []agents.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []agents.Snapshot
	for _, c := range s.Colonies {
		if id != 0 && c.ID != id {
			continue
		}
		for _, a := range c.Agents {
			out = append(out, a.Snapshot())
		}
	}
	return out
}

// FieldLayer returns a copy of one channel's concentration grid, row-major.
func (s *Simulation) FieldLayer(ch pheromone.Channel) []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Field.Layer(ch)
}

// FoodGrid returns a copy of the food on every cell, row-major.
func (s *Simulation) FoodGrid() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Grid.FoodGrid()
}

// Checkpoint is a deep copy of everything needed to resume a run. Terrain is
// not included: it is regenerated from the seed.
type Checkpoint struct {
	RunID    string
	Tick     uint64
	NextID   agents.AgentID
	Env      environment.State
	Colonies []*colony.Colony
	Layers   map[pheromone.Channel][]float64
	Food     []float64
}

// Checkpoint copies the run state under the read lock.
func (s *Simulation) Checkpoint() *Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := &Checkpoint{
		RunID:  s.RunID,
		Tick:   s.Tick,
		NextID: s.Spawner.NextID(),
		Env:    *s.Env,
		Layers: make(map[pheromone.Channel][]float64, pheromone.NumChannels),
		Food:   s.Grid.FoodGrid(),
	}
	for _, ch := range pheromone.Channels {
		cp.Layers[ch] = s.Field.Layer(ch)
	}
	for _, c := range s.Colonies {
		cc := *c
		cc.Agents = make([]*agents.Agent, len(c.Agents))
		for i, a := range c.Agents {
			ac := *a
			ac.Thresholds = maps.Clone(a.Thresholds)
			cc.Agents[i] = &ac
		}
		cp.Colonies = append(cp.Colonies, &cc)
	}
	return cp
}

// Restore rebuilds a simulation from cfg and a checkpoint. The random source
// is reseeded from the seed and the checkpoint tick, so a resumed run is
// reproducible from the checkpoint but does not continue the original stream.
func Restore(cfg Config, cp *Checkpoint) (*Simulation, error) {
	s, err := NewSimulation(cfg)
	if err != nil {
		return nil, err
	}
	if cp.RunID != "" {
		s.RunID = cp.RunID
	}
	s.Tick = cp.Tick
	env := cp.Env
	if env.DayLength <= 0 {
		env.DayLength = cfg.DayLength
	}
	s.Env = &env
	s.rng = rand.New(rand.NewSource(cfg.Seed + int64(cp.Tick)))

	var maxID agents.AgentID
	for _, c := range cp.Colonies {
		if err := s.Grid.MarkNest(c.NestX, c.NestY, cfg.NestRadius); err != nil {
			return nil, fmt.Errorf("restore colony %d: %w", c.ID, err)
		}
		c.Attach(s.Spawner)
		for _, a := range c.Agents {
			if !s.Grid.InBounds(a.X, a.Y) {
				return nil, fmt.Errorf("restore agent %d at (%d, %d): %w", a.ID, a.X, a.Y, world.ErrOutOfBounds)
			}
			maxID = max(maxID, a.ID)
		}
		s.Colonies = append(s.Colonies, c)
	}
	s.Spawner.SetNextID(max(cp.NextID, maxID+1))

	if cp.Food != nil {
		if err := s.Grid.RestoreFood(cp.Food); err != nil {
			return nil, fmt.Errorf("restore food: %w", err)
		}
	}
	for ch, grid := range cp.Layers {
		if err := s.Field.Restore(ch, grid); err != nil {
			return nil, fmt.Errorf("restore %s: %w", ch, err)
		}
	}
	return s, nil
}
