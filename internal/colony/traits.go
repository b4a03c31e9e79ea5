package colony

import (
	"errors"
	"fmt"

	"github.com/talgya/antcolony/internal/agents"
)

// ErrInvalidConfig is returned for out-of-range traits, policies or colony parameters.
var ErrInvalidConfig = errors.New("invalid colony config")

// Traits is the heritable profile a colony samples its ants from. Lower
// threshold means make ants respond more readily to that stimulus.
type Traits struct {
	ForagingThresholdMean  float64 `json:"foraging_threshold_mean"`
	AlarmThresholdMean     float64 `json:"alarm_threshold_mean"`
	BroodCareThresholdMean float64 `json:"brood_care_threshold_mean"`
	WasteThresholdMean     float64 `json:"waste_threshold_mean"`
	ThresholdVariance      float64 `json:"threshold_variance"` // Spread of individual thresholds around the means

	Aggression        float64 `json:"aggression"`
	Exploration       float64 `json:"exploration"`
	DiseaseResistance float64 `json:"disease_resistance"`
}

// DefaultTraits returns a balanced profile.
func DefaultTraits() Traits {
	return Traits{
		ForagingThresholdMean:  0.5,
		AlarmThresholdMean:     0.5,
		BroodCareThresholdMean: 0.5,
		WasteThresholdMean:     0.5,
		ThresholdVariance:      0.15,
		Aggression:             0.3,
		Exploration:            0.5,
		DiseaseResistance:      0.5,
	}
}

// Validate rejects negative spread and unit-range traits outside [0, 1].
func (t Traits) Validate() error {
	if t.ThresholdVariance < 0 {
		return fmt.Errorf("%w: threshold_variance = %v", ErrInvalidConfig, t.ThresholdVariance)
	}
	return checkUnit(map[string]float64{
		"aggression":         t.Aggression,
		"exploration":        t.Exploration,
		"disease_resistance": t.DiseaseResistance,
	})
}

// Genome maps the traits onto the distribution agents are sampled from.
func (t Traits) Genome() agents.Genome {
	return agents.Genome{
		FoodMean:     t.ForagingThresholdMean,
		AlarmMean:    t.AlarmThresholdMean,
		BroodMean:    t.BroodCareThresholdMean,
		WasteMean:    t.WasteThresholdMean,
		ThresholdStd: t.ThresholdVariance,
	}
}

// Policies are colony-wide doctrine sliders, all in [0, 1]. They are stored
// and reported but do not yet steer behaviour.
type Policies struct {
	Aggression        float64 `json:"aggression"`
	Exploration       float64 `json:"exploration"`
	Sanitation        float64 `json:"sanitation"`
	ForagingRadius    float64 `json:"foraging_radius"`
	BroodPriority     float64 `json:"brood_priority"`
	CasteSoldierRatio float64 `json:"caste_soldier_ratio"`
}

// DefaultPolicies returns the neutral slider settings.
func DefaultPolicies() Policies {
	return Policies{
		Aggression:        0.3,
		Exploration:       0.5,
		Sanitation:        0.5,
		ForagingRadius:    0.5,
		BroodPriority:     0.5,
		CasteSoldierRatio: 0.2,
	}
}

// Validate rejects sliders outside [0, 1].
func (p Policies) Validate() error {
	return checkUnit(map[string]float64{
		"aggression":          p.Aggression,
		"exploration":         p.Exploration,
		"sanitation":          p.Sanitation,
		"foraging_radius":     p.ForagingRadius,
		"brood_priority":      p.BroodPriority,
		"caste_soldier_ratio": p.CasteSoldierRatio,
	})
}

func checkUnit(values map[string]float64) error {
	for name, v := range values {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s = %v not in [0,1]", ErrInvalidConfig, name, v)
		}
	}
	return nil
}
