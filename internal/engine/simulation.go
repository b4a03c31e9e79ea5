// Simulation ties together the world, signal field, environment and colonies
// and advances them in strictly sequential phases each tick.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/antcolony/internal/agents"
	"github.com/talgya/antcolony/internal/colony"
	"github.com/talgya/antcolony/internal/environment"
	"github.com/talgya/antcolony/internal/pheromone"
	"github.com/talgya/antcolony/internal/world"
)

// DeathSignal is the DEATH pheromone left at each corpse.
const DeathSignal = 2.0

// Simulation holds the complete run state. Step holds the write lock; the
// snapshot readers take the read lock so an HTTP server can observe a live run.
type Simulation struct {
	mu sync.RWMutex

	Config   Config
	RunID    string
	Grid     *world.Grid
	Field    *pheromone.Field
	Env      *environment.State
	Colonies []*colony.Colony
	Spawner  *agents.Spawner
	Events   []Event // Recent events, trimmed daily
	Tick     uint64  // Ticks completed

	rng         *rand.Rand
	eventsSaved int // Events already handed to DrainEvents
}

// Event is a notable occurrence in the run.
type Event struct {
	Tick        uint64         `json:"tick"`
	Description string         `json:"description"`
	Category    string         `json:"category"` // "death", "birth", "collapse", "intervention"
	Meta        map[string]any `json:"meta,omitempty"`
}

// NewSimulation validates cfg and builds the generated world, an empty field
// with the configured channel rates and the environment, all driven by one
// seeded source.
func NewSimulation(cfg Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	grid, err := world.Generate(cfg.Gen())
	if err != nil {
		return nil, fmt.Errorf("generate world: %w", err)
	}
	field, err := pheromone.New(cfg.Width, cfg.Height, cfg.ChannelRates)
	if err != nil {
		return nil, fmt.Errorf("create field: %w", err)
	}
	env, err := environment.New(cfg.DayLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	slog.Info("world generated", "grid", grid.String(), "seed", cfg.Seed)
	for soil, n := range grid.SoilCounts() {
		slog.Debug("soil", "type", world.SoilName(soil), "cells", n)
	}

	return &Simulation{
		Config:  cfg,
		RunID:   uuid.NewString(),
		Grid:    grid,
		Field:   field,
		Env:     env,
		Spawner: agents.NewSpawner(),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// AddColony founds a colony with its entrance at (x, y): marks the nest cells
// and spawns the initial population there.
func (s *Simulation) AddColony(x, y int, traits colony.Traits, policies colony.Policies) (*colony.Colony, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Grid.InBounds(x, y) {
		return nil, fmt.Errorf("nest (%d, %d): %w", x, y, world.ErrOutOfBounds)
	}
	c, err := colony.New(colony.ID(len(s.Colonies)+1), x, y, traits, policies, s.Spawner)
	if err != nil {
		return nil, err
	}
	if err := s.Grid.MarkNest(x, y, s.Config.NestRadius); err != nil {
		return nil, err
	}
	for i := 0; i < s.Config.InitialAnts; i++ {
		c.Spawn(s.rng)
	}
	s.Colonies = append(s.Colonies, c)

	slog.Info("colony founded", "colony", c.ID, "x", x, "y", y, "ants", c.Population())
	return c, nil
}

// FoundColonies places count nests on the best sites at least minDist apart
// and founds a colony with default traits at each.
func (s *Simulation) FoundColonies(count, minDist int) error {
	sites := world.PlaceNests(s.Grid, count, minDist)
	if len(sites) == 0 {
		return fmt.Errorf("%w: no nest site found", ErrInvalidConfig)
	}
	for _, site := range sites {
		if _, err := s.AddColony(site.X, site.Y, colony.DefaultTraits(), colony.DefaultPolicies()); err != nil {
			return fmt.Errorf("found colony at (%d, %d): %w", site.X, site.Y, err)
		}
	}
	return nil
}

// Step advances the run by one tick. A bounds error anywhere fails the whole tick.
func (s *Simulation) Step() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step()
}

// Run advances n ticks, stopping at the first error.
func (s *Simulation) Run(n int) error {
	for i := 0; i < n; i++ {
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) step() error {
	tick := s.Tick + 1

	// 1. Environment, including food regrowth.
	s.Env.Update(s.rng)
	s.Grid.RegenerateFood(s.Config.Regen(), s.rng)

	// 2. Signal field.
	s.Field.Update()

	// 3. Agents, colony order then population order. Every agent sees the
	// grid and field as left by the agents before it.
	for _, c := range s.Colonies {
		sur := &agents.Surroundings{
			Grid:   s.Grid,
			Field:  s.Field,
			NestX:  c.NestX,
			NestY:  c.NestY,
			Params: s.Config.Agent,
		}
		for _, a := range c.Agents {
			delivered, err := a.Update(sur, s.rng)
			if err != nil {
				return fmt.Errorf("tick %d colony %d: %w", tick, c.ID, err)
			}
			c.Deliver(delivered)
		}
	}

	// 4. Conflicts.
	s.resolveConflicts()

	// 5. Colony-level effects.
	for _, c := range s.Colonies {
		if err := s.processColony(c, tick); err != nil {
			return fmt.Errorf("tick %d colony %d: %w", tick, c.ID, err)
		}
	}

	s.Tick = tick
	return nil
}

// resolveConflicts is the hook for combat and disease between colonies.
func (s *Simulation) resolveConflicts() {}

// EmitEvent records an event.
func (s *Simulation) EmitEvent(e Event) {
	s.Events = append(s.Events, e)
}

// DrainEvents returns events recorded since the previous call.
func (s *Simulation) DrainEvents() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventsSaved >= len(s.Events) {
		return nil
	}
	out := make([]Event, len(s.Events)-s.eventsSaved)
	copy(out, s.Events[s.eventsSaved:])
	s.eventsSaved = len(s.Events)
	return out
}

// RecentEvents returns up to limit of the latest events, oldest first,
// optionally filtered by category.
func (s *Simulation) RecentEvents(limit int, category string) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for i := len(s.Events) - 1; i >= 0 && len(out) < limit; i-- {
		if category == "" || s.Events[i].Category == category {
			out = append(out, s.Events[i])
		}
	}
	slices.Reverse(out)
	return out
}

// trimEvents keeps the most recent 1000 events.
func (s *Simulation) trimEvents() {
	const keep = 1000
	if len(s.Events) <= keep {
		return
	}
	drop := len(s.Events) - keep
	s.Events = s.Events[drop:]
	s.eventsSaved = max(s.eventsSaved-drop, 0)
}
