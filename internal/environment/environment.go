// Package environment provides the global day/night cycle and rain state.
// Updated first each tick; it only feeds a tick counter and time of day to
// the rest of the simulation.
package environment

import (
	"fmt"
	"math"
	"math/rand"
)

// Rain model.
const (
	showerChance = 0.01 // Per-tick chance a new shower starts
	showerMin    = 0.2
	showerMax    = 1.0
	rainDecay    = 0.05 // Intensity lost per tick once a shower is under way
)

// State holds environmental state that changes each tick.
type State struct {
	Tick          uint64  `json:"tick"`
	TimeOfDay     float64 `json:"time_of_day"` // 0 = midnight, 0.5 = noon
	RainIntensity float64 `json:"rain_intensity"`
	DayLength     int     `json:"day_length"` // Ticks per full day/night cycle
}

// New creates the environment at midnight of tick 0.
func New(dayLength int) (*State, error) {
	if dayLength <= 0 {
		return nil, fmt.Errorf("day length must be positive, got %d", dayLength)
	}
	return &State{DayLength: dayLength}, nil
}

// Update advances the clock and the rain by one tick.
func (s *State) Update(rng *rand.Rand) {
	s.Tick++
	s.TimeOfDay = float64(s.Tick%uint64(s.DayLength)) / float64(s.DayLength)

	if rng.Float64() < showerChance {
		s.RainIntensity = showerMin + rng.Float64()*(showerMax-showerMin)
	} else if s.RainIntensity > 0 {
		s.RainIntensity = math.Max(0, s.RainIntensity-rainDecay)
	}
}

// IsDaytime returns true between dawn and dusk.
func (s *State) IsDaytime() bool {
	return s.TimeOfDay >= 0.25 && s.TimeOfDay < 0.75
}

// Day returns the number of completed day/night cycles.
func (s *State) Day() uint64 {
	return s.Tick / uint64(s.DayLength)
}

// Phase names the quarter of the day.
func (s *State) Phase() string {
	switch {
	case s.TimeOfDay < 0.25:
		return "night"
	case s.TimeOfDay < 0.5:
		return "morning"
	case s.TimeOfDay < 0.75:
		return "afternoon"
	default:
		return "evening"
	}
}

// Describe returns a short human-readable summary for logs and the API.
func (s *State) Describe() string {
	var sky string
	switch {
	case s.RainIntensity > 0.6:
		sky = "heavy rain"
	case s.RainIntensity > 0.2:
		sky = "rain"
	case s.RainIntensity > 0:
		sky = "drizzle"
	case s.IsDaytime():
		sky = "clear"
	default:
		sky = "still"
	}
	return fmt.Sprintf("day %d %s, %s", s.Day()+1, s.Phase(), sky)
}
