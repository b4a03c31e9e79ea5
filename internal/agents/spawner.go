// Agent spawning — samples thresholds, vitality and heading from the colony genome.
package agents

import (
	"math"
	"math/rand"
)

// Genome is the per-stimulus threshold distribution an agent is sampled from.
type Genome struct {
	FoodMean     float64
	AlarmMean    float64
	BroodMean    float64
	WasteMean    float64
	ThresholdStd float64
}

// Spawner issues agent IDs. It holds no randomness of its own; callers thread
// the simulation's source through every spawn.
type Spawner struct {
	nextID AgentID
}

// NewSpawner creates a spawner whose first ID is 1.
func NewSpawner() *Spawner {
	return &Spawner{nextID: 1}
}

// SetNextID sets the next agent ID to be issued (used when restoring from DB).
func (s *Spawner) SetNextID(id AgentID) {
	s.nextID = id
}

// NextID returns the ID the next spawn will receive.
func (s *Spawner) NextID() AgentID {
	return s.nextID
}

// Spawn creates a foraging agent at (x, y) with thresholds drawn from g.
// New agents start foraging on a random heading so they scatter from the nest.
func (s *Spawner) Spawn(x, y int, g Genome, rng *rand.Rand) *Agent {
	id := s.nextID
	s.nextID++

	// Draw order is fixed: food, alarm, brood, waste, vitality, heading.
	thresholds := map[Stimulus]float64{
		StimulusFood:  g.FoodMean + rng.NormFloat64()*g.ThresholdStd,
		StimulusAlarm: g.AlarmMean + rng.NormFloat64()*g.ThresholdStd,
		StimulusBrood: g.BroodMean + rng.NormFloat64()*g.ThresholdStd,
		StimulusWaste: g.WasteMean + rng.NormFloat64()*g.ThresholdStd,
	}
	vitality := 0.8 + rng.Float64()*0.4
	heading := rng.Float64() * 2 * math.Pi

	return &Agent{
		ID:         id,
		X:          x,
		Y:          y,
		Heading:    heading,
		Task:       TaskForaging,
		Vitality:   vitality,
		Thresholds: thresholds,
	}
}
