package agents

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned for out-of-range behaviour parameters.
var ErrInvalidConfig = errors.New("invalid agent config")

// Params holds every behavioural constant of the task state machine.
type Params struct {
	MotherlodeThreshold float64 // Food left at a source that counts as rich
	PickupRation        float64 // Most food one ant carries per trip

	ForageFollowRate float64 // Chance a scout follows trail instead of walking
	GatherFollowRate float64 // Chance a gatherer follows directional trail
	HeadingNoiseStd  float64 // Radians of Gaussian noise on the walk heading

	TerritoryDeposit   float64 // Explored-ground mark per scouting step
	TrailAtFood        float64 // Trail dropped at a rich source
	RecruitmentDeposit float64 // Recruitment dropped at a rich source
	CarryTrailPerStep  float64 // Trail per step while carrying home
	GatherTrailPerStep float64 // Trail per step while gathering, and at non-rich cluster pickups

	GatherPatience       int     // Fruitless gathering ticks tolerated
	RecruitBaseRate      float64 // Base chance a scout answers recruitment
	UrgencyTicks         float64 // Fruitless ticks that add one unit of urgency
	DenseClusterMinCells int     // Food cells in the 3x3 block that make a cluster

	OutboundBonus float64 // Directional score for stepping away from the nest
	InboundBonus  float64 // Directional score otherwise
}

// DefaultParams returns the tuned defaults.
func DefaultParams() Params {
	return Params{
		MotherlodeThreshold: 3.0,
		PickupRation:        3.0,

		ForageFollowRate: 0.40,
		GatherFollowRate: 0.75,
		HeadingNoiseStd:  0.5,

		TerritoryDeposit:   0.3,
		TrailAtFood:        5.0,
		RecruitmentDeposit: 3.0,
		CarryTrailPerStep:  2.0,
		GatherTrailPerStep: 1.0,

		GatherPatience:       60,
		RecruitBaseRate:      0.3,
		UrgencyTicks:         30,
		DenseClusterMinCells: 3,

		OutboundBonus: 1.0,
		InboundBonus:  -0.5,
	}
}

// Validate fails fast on values that would produce negative deposits or
// probabilities outside [0, 1].
func (p Params) Validate() error {
	nonNeg := map[string]float64{
		"motherlode_threshold": p.MotherlodeThreshold,
		"territory_deposit":    p.TerritoryDeposit,
		"trail_at_food":        p.TrailAtFood,
		"recruitment_deposit":  p.RecruitmentDeposit,
		"carry_trail":          p.CarryTrailPerStep,
		"gather_trail":         p.GatherTrailPerStep,
		"heading_noise":        p.HeadingNoiseStd,
	}
	for name, v := range nonNeg {
		if v < 0 {
			return fmt.Errorf("%w: %s = %v", ErrInvalidConfig, name, v)
		}
	}
	unit := map[string]float64{
		"forage_follow_rate": p.ForageFollowRate,
		"gather_follow_rate": p.GatherFollowRate,
		"recruit_base_rate":  p.RecruitBaseRate,
	}
	for name, v := range unit {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s = %v not in [0,1]", ErrInvalidConfig, name, v)
		}
	}
	if p.PickupRation <= 0 {
		return fmt.Errorf("%w: pickup_ration = %v", ErrInvalidConfig, p.PickupRation)
	}
	if p.GatherPatience <= 0 || p.UrgencyTicks <= 0 {
		return fmt.Errorf("%w: gather_patience = %d, urgency_ticks = %v", ErrInvalidConfig, p.GatherPatience, p.UrgencyTicks)
	}
	if p.DenseClusterMinCells < 1 || p.DenseClusterMinCells > 9 {
		return fmt.Errorf("%w: dense_cluster_min_cells = %d", ErrInvalidConfig, p.DenseClusterMinCells)
	}
	return nil
}
