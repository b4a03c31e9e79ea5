// Package agents provides the individual ant: its state, trait sampling and the
// per-tick task state machine that reads and writes the pheromone field.
package agents

import (
	"math"
)

// AgentID is a unique identifier for an agent.
type AgentID uint64

// Task is the behaviour an agent is currently performing.
type Task uint8

const (
	TaskIdle         Task = iota // Waiting at or near the nest
	TaskForaging                 // Scouting for food
	TaskGathering                // Exploiting a known source via trails
	TaskCarryingFood             // Returning food to the nest
	TaskBroodCare
	TaskPatrolling
	TaskFighting
	TaskWasteManagement
)

// String returns the task name used in logs and the API.
func (t Task) String() string {
	switch t {
	case TaskIdle:
		return "idle"
	case TaskForaging:
		return "foraging"
	case TaskGathering:
		return "gathering"
	case TaskCarryingFood:
		return "carrying_food"
	case TaskBroodCare:
		return "brood_care"
	case TaskPatrolling:
		return "patrolling"
	case TaskFighting:
		return "fighting"
	case TaskWasteManagement:
		return "waste_management"
	default:
		return "unknown"
	}
}

// Stimulus names a cue an agent holds a personal response threshold for.
type Stimulus string

const (
	StimulusFood  Stimulus = "food"
	StimulusAlarm Stimulus = "alarm"
	StimulusBrood Stimulus = "brood"
	StimulusWaste Stimulus = "waste"
)

// Agent is one ant. Thresholds and the starting heading are sampled at creation
// and never change.
type Agent struct {
	ID AgentID `json:"id"`

	// Location
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Heading float64 `json:"heading"` // Radians; 0 = east, pi/2 = south

	Task         Task    `json:"task"`
	Vitality     float64 `json:"vitality"` // Dead at 0
	Age          int     `json:"age"`      // Ticks since creation
	CarryingFood float64 `json:"carrying_food"`

	// Task memory that persists across ticks.
	LayTrail    bool `json:"lay_trail"`    // Mark the way home; gather again after delivery
	Patience    int  `json:"patience"`     // Gathering ticks left before giving up
	SearchTicks int  `json:"search_ticks"` // Consecutive fruitless foraging ticks

	Thresholds map[Stimulus]float64 `json:"thresholds"`
}

// Alive returns true while vitality is positive.
func (a *Agent) Alive() bool {
	return a.Vitality > 0
}

// Threshold returns the agent's threshold for a stimulus, or 0.5 if it has none.
func (a *Agent) Threshold(s Stimulus) float64 {
	if v, ok := a.Thresholds[s]; ok {
		return v
	}
	return 0.5
}

// Snapshot is the read-only view handed to renderers.
type Snapshot struct {
	ID       AgentID `json:"id"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Task     string  `json:"task"`
	Vitality float64 `json:"vitality"`
	Age      int     `json:"age"`
	Carrying float64 `json:"carrying"`
}

// Snapshot copies the externally visible state.
func (a *Agent) Snapshot() Snapshot {
	return Snapshot{
		ID:       a.ID,
		X:        a.X,
		Y:        a.Y,
		Task:     a.Task.String(),
		Vitality: a.Vitality,
		Age:      a.Age,
		Carrying: a.CarryingFood,
	}
}

// normalizeAngle wraps an angle into [0, 2*pi).
func normalizeAngle(theta float64) float64 {
	theta = math.Mod(theta, 2*math.Pi)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	return theta
}
