// Package colony owns a population of ants with its food store and brood, and
// applies the population-level effects that close the loop between foraging
// success and colony growth: feeding, food pressure, aging, egg-laying, hatching
// and removal of the dead.
package colony

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/talgya/antcolony/internal/agents"
)

// InitialFoodStore is the food a newly founded colony starts with.
const InitialFoodStore = 100.0

// ID is a unique identifier for a colony.
type ID uint32

// Colony is the aggregate state of one nest.
type Colony struct {
	ID            ID      `json:"id"`
	NestX         int     `json:"nest_x"`
	NestY         int     `json:"nest_y"`
	FoodStore     float64 `json:"food_store"`
	BroodCount    int     `json:"brood_count"`
	BroodProgress int     `json:"brood_progress"` // Ticks of shared effort toward the next hatch
	Generation    int     `json:"generation"`

	Traits   Traits   `json:"traits"`
	Policies Policies `json:"policies"`

	Agents []*agents.Agent `json:"-"`

	// Lifetime counters for reporting.
	Delivered float64 `json:"delivered"`
	EggsLaid  int     `json:"eggs_laid"`
	Hatched   int     `json:"hatched"`
	Deaths    int     `json:"deaths"`

	ids *agents.Spawner
}

// New creates an empty colony at the nest with the starting food store. IDs are
// drawn from ids so agents stay unique across colonies; nil gives the colony its own.
func New(id ID, nestX, nestY int, traits Traits, policies Policies, ids *agents.Spawner) (*Colony, error) {
	if err := traits.Validate(); err != nil {
		return nil, fmt.Errorf("colony %d traits: %w", id, err)
	}
	if err := policies.Validate(); err != nil {
		return nil, fmt.Errorf("colony %d policies: %w", id, err)
	}
	if ids == nil {
		ids = agents.NewSpawner()
	}
	return &Colony{
		ID:        id,
		NestX:     nestX,
		NestY:     nestY,
		FoodStore: InitialFoodStore,
		Traits:    traits,
		Policies:  policies,
		ids:       ids,
	}, nil
}

// Attach sets the ID source used for new ants (used when restoring from DB).
func (c *Colony) Attach(ids *agents.Spawner) {
	c.ids = ids
}

// Spawn adds a new ant at the nest sampled from the colony traits.
func (c *Colony) Spawn(rng *rand.Rand) *agents.Agent {
	a := c.ids.Spawn(c.NestX, c.NestY, c.Traits.Genome(), rng)
	c.Agents = append(c.Agents, a)
	return a
}

// Deliver credits food brought home by a carrier.
func (c *Colony) Deliver(amount float64) {
	if amount <= 0 {
		return
	}
	c.FoodStore += amount
	c.Delivered += amount
}

// Population returns the number of ants in the live set.
func (c *Colony) Population() int {
	return len(c.Agents)
}

// ConsumeFood debits perAnt food for every ant, floored at zero, and returns
// what was actually eaten.
func (c *Colony) ConsumeFood(perAnt float64) float64 {
	want := float64(len(c.Agents)) * perAnt
	eaten := math.Min(want, c.FoodStore)
	c.FoodStore -= eaten
	return eaten
}

// ApplyFoodPressure damages every ant when food per ant falls below comfort.
// Damage grows linearly from 0 at comfort to maxDamage at an empty store.
// Returns the per-ant damage applied.
func (c *Colony) ApplyFoodPressure(comfort, maxDamage float64) float64 {
	if len(c.Agents) == 0 || comfort <= 0 {
		return 0
	}
	perAnt := c.FoodStore / float64(len(c.Agents))
	if perAnt >= comfort {
		return 0
	}
	damage := maxDamage * (1 - perAnt/comfort)
	for _, a := range c.Agents {
		a.Vitality = math.Max(0, a.Vitality-damage)
	}
	return damage
}

// ApplyAging kills ants at or past maxAge and returns how many it killed.
func (c *Colony) ApplyAging(maxAge int) int {
	killed := 0
	for _, a := range c.Agents {
		if a.Age >= maxAge && a.Vitality > 0 {
			a.Vitality = 0
			killed++
		}
	}
	return killed
}

// Egg-laying curve.
const (
	trickleFloor  = 0.5 // Food-per-ant ratio below which the queen stops laying
	trickleRate   = 0.1 // Share of the egg rate laid right at comfort
	maxEggSurplus = 3.0 // Cap on the surplus multiplier above comfort
)

// ExpectedEggs is the mean egg count for the current food-per-ant ratio.
func (c *Colony) ExpectedEggs(eggRate, comfort float64) float64 {
	if comfort <= 0 || eggRate <= 0 {
		return 0
	}
	pop := max(len(c.Agents), 1)
	ratio := (c.FoodStore / float64(pop)) / comfort
	switch {
	case ratio < trickleFloor:
		return 0
	case ratio < 1:
		return eggRate * trickleRate * (ratio - trickleFloor) / (1 - trickleFloor)
	default:
		return eggRate * math.Min(trickleRate+(ratio-1), maxEggSurplus)
	}
}

// LayEggs turns surplus food into brood. The fractional part of the expected
// count is settled by one uniform draw so the long-run mean is exact. Each egg
// costs one food unit and eggs are capped by the whole units in store.
func (c *Colony) LayEggs(eggRate, comfort float64, rng *rand.Rand) int {
	expected := c.ExpectedEggs(eggRate, comfort)
	if expected <= 0 {
		return 0
	}
	whole := math.Floor(expected)
	eggs := int(whole)
	if rng.Float64() < expected-whole {
		eggs++
	}
	eggs = min(eggs, int(math.Floor(c.FoodStore)))
	if eggs <= 0 {
		return 0
	}
	c.BroodCount += eggs
	c.FoodStore -= float64(eggs)
	c.EggsLaid += eggs
	return eggs
}

// DevelopBrood accumulates progress equal to the brood count and hatches one
// ant for every matureTicks of progress. Several can hatch in one tick.
func (c *Colony) DevelopBrood(matureTicks int, rng *rand.Rand) []*agents.Agent {
	if c.BroodCount <= 0 {
		return nil
	}
	matureTicks = max(matureTicks, 1)
	c.BroodProgress += c.BroodCount

	var hatched []*agents.Agent
	for c.BroodProgress >= matureTicks && c.BroodCount > 0 {
		c.BroodProgress -= matureTicks
		c.BroodCount--
		hatched = append(hatched, c.Spawn(rng))
	}
	c.Hatched += len(hatched)
	return hatched
}

// RemoveDead drops ants with no vitality left, preserving the order of the
// survivors, and returns the corpses.
func (c *Colony) RemoveDead() []*agents.Agent {
	var dead []*agents.Agent
	alive := c.Agents[:0]
	for _, a := range c.Agents {
		if a.Alive() {
			alive = append(alive, a)
		} else {
			dead = append(dead, a)
		}
	}
	for i := len(alive); i < len(c.Agents); i++ {
		c.Agents[i] = nil
	}
	c.Agents = alive
	c.Deaths += len(dead)
	return dead
}

// Stats is a point-in-time summary of a colony.
type Stats struct {
	ID           ID             `json:"id"`
	NestX        int            `json:"nest_x"`
	NestY        int            `json:"nest_y"`
	Population   int            `json:"population"`
	FoodStore    float64        `json:"food_store"`
	BroodCount   int            `json:"brood_count"`
	MeanVitality float64        `json:"mean_vitality"`
	Carrying     float64        `json:"carrying"`
	Tasks        map[string]int `json:"tasks"`
	Delivered    float64        `json:"delivered"`
	EggsLaid     int            `json:"eggs_laid"`
	Hatched      int            `json:"hatched"`
	Deaths       int            `json:"deaths"`
	Generation   int            `json:"generation"`
}

// Stats summarises the colony.
func (c *Colony) Stats() Stats {
	s := Stats{
		ID:         c.ID,
		NestX:      c.NestX,
		NestY:      c.NestY,
		Population: len(c.Agents),
		FoodStore:  c.FoodStore,
		BroodCount: c.BroodCount,
		Tasks:      make(map[string]int),
		Delivered:  c.Delivered,
		EggsLaid:   c.EggsLaid,
		Hatched:    c.Hatched,
		Deaths:     c.Deaths,
		Generation: c.Generation,
	}
	var vitality float64
	for _, a := range c.Agents {
		vitality += a.Vitality
		s.Carrying += a.CarryingFood
		s.Tasks[a.Task.String()]++
	}
	if len(c.Agents) > 0 {
		s.MeanVitality = vitality / float64(len(c.Agents))
	}
	return s
}
