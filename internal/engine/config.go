package engine

import (
	"errors"
	"fmt"

	"github.com/talgya/antcolony/internal/agents"
	"github.com/talgya/antcolony/internal/pheromone"
	"github.com/talgya/antcolony/internal/world"
)

// ErrInvalidConfig is returned when a simulation config fails validation.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Config holds every tunable of a run. All values are plain numbers so the
// core never depends on how they were loaded.
type Config struct {
	Seed   int64 `json:"seed"`
	Width  int   `json:"width"`
	Height int   `json:"height"`

	DayLength   int `json:"day_length"`   // Ticks per day/night cycle
	InitialAnts int `json:"initial_ants"` // Ants spawned per colony at founding
	NestRadius  int `json:"nest_radius"`  // Square radius of nest cells around the entrance

	// Ant lifecycle
	MaxAge              int     `json:"max_age"`
	ComfortFoodPerAnt   float64 `json:"comfort_food_per_ant"`
	MaxStarvationDamage float64 `json:"max_starvation_damage"`
	ConsumptionPerAnt   float64 `json:"consumption_per_ant"`

	// Food
	BaseRegenRate   float64 `json:"base_regen_rate"`
	SpreadRegenRate float64 `json:"spread_regen_rate"`
	FoodCap         float64 `json:"food_cap"`
	FoodPatchLevel  float64 `json:"food_patch_level"` // 1 disables initial food

	// Brood
	EggRate          float64 `json:"egg_rate"`
	BroodMatureTicks int     `json:"brood_mature_ticks"`

	Agent        agents.Params                         `json:"agent"`
	ChannelRates map[pheromone.Channel]pheromone.Rates `json:"channel_rates,omitempty"`
}

// DefaultConfig returns the tuned defaults for a 64x64 world.
func DefaultConfig() Config {
	return Config{
		Seed:        42,
		Width:       64,
		Height:      64,
		DayLength:   100,
		InitialAnts: 50,
		NestRadius:  1,

		MaxAge:              1000,
		ComfortFoodPerAnt:   1.0,
		MaxStarvationDamage: 0.04,
		ConsumptionPerAnt:   0.02,

		BaseRegenRate:   0.0005,
		SpreadRegenRate: 0.02,
		FoodCap:         5.0,
		FoodPatchLevel:  world.DefaultGenConfig().FoodPatchLevel,

		EggRate:          0.5,
		BroodMatureTicks: 40,

		Agent: agents.DefaultParams(),
	}
}

// Validate fails fast on anything that would later produce NaN, negative
// quantities or an empty colony.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: world %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.DayLength <= 0 || c.MaxAge <= 0 || c.BroodMatureTicks <= 0 {
		return fmt.Errorf("%w: day_length = %d, max_age = %d, brood_mature_ticks = %d",
			ErrInvalidConfig, c.DayLength, c.MaxAge, c.BroodMatureTicks)
	}
	if c.InitialAnts <= 0 {
		return fmt.Errorf("%w: initial_ants = %d", ErrInvalidConfig, c.InitialAnts)
	}
	if c.NestRadius < 0 {
		return fmt.Errorf("%w: nest_radius = %d", ErrInvalidConfig, c.NestRadius)
	}
	if c.ComfortFoodPerAnt <= 0 {
		return fmt.Errorf("%w: comfort_food_per_ant = %v", ErrInvalidConfig, c.ComfortFoodPerAnt)
	}
	nonNeg := []struct {
		name string
		v    float64
	}{
		{"max_starvation_damage", c.MaxStarvationDamage},
		{"consumption_per_ant", c.ConsumptionPerAnt},
		{"egg_rate", c.EggRate},
	}
	for _, f := range nonNeg {
		if f.v < 0 {
			return fmt.Errorf("%w: %s = %v", ErrInvalidConfig, f.name, f.v)
		}
	}
	if err := c.Regen().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for ch, r := range c.ChannelRates {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: channel %s: %w", ErrInvalidConfig, ch, err)
		}
	}
	return nil
}

// Gen returns the world generation parameters for this run.
func (c Config) Gen() world.GenConfig {
	g := world.DefaultGenConfig()
	g.Width = c.Width
	g.Height = c.Height
	g.Seed = c.Seed
	g.FoodCap = c.FoodCap
	g.FoodPatchLevel = c.FoodPatchLevel
	return g
}

// Regen returns the food regrowth parameters for this run.
func (c Config) Regen() world.RegenConfig {
	return world.RegenConfig{
		BaseRate:   c.BaseRegenRate,
		SpreadRate: c.SpreadRegenRate,
		Cap:        c.FoodCap,
		Unit:       1.0,
	}
}
