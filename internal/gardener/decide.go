package gardener

import (
	"fmt"
	"log/slog"
)

// Rules bound what the steward may do in one cycle.
type Rules struct {
	Comfort      float64 // Food per worker considered comfortable
	MinLevel     Level   // Lowest level that gets provisioned
	MaxProvision float64 // Cap on a single provision
	Cooldown     int     // Cycles before the same colony is helped again
}

// DefaultRules returns the steward's standard guardrails.
func DefaultRules() Rules {
	return Rules{
		Comfort:      1.0,
		MinLevel:     Warning,
		MaxProvision: 500,
		Cooldown:     3,
	}
}

// Decision is the steward's chosen action for one cycle.
type Decision struct {
	Action       string        `json:"action"` // "none" or "provision"
	Rationale    string        `json:"rationale"`
	Intervention *Intervention `json:"intervention"`
}

// Intervention is the payload for POST /api/v1/intervention.
type Intervention struct {
	Type        string  `json:"type"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Colony      uint32  `json:"colony,omitempty"`
	Amount      float64 `json:"amount,omitempty"`
}

// Decide picks at most one colony to provision: the most urgent live colony
// at or above MinLevel that was not helped within the cooldown. The amount
// tops the store up to comfort and is capped by MaxProvision.
func Decide(h *Health, mem *CycleMemory, rules Rules) *Decision {
	for _, c := range h.Colonies {
		if c.Collapsed || c.Population == 0 || c.Level < rules.MinLevel {
			continue
		}
		if mem.RecentlyHelped(c.ID, rules.Cooldown) {
			slog.Debug("colony on cooldown", "colony", c.ID, "level", c.Level)
			continue
		}

		amount := rules.Comfort*float64(c.Population) - c.FoodStore
		amount = max(1, min(amount, rules.MaxProvision))
		return &Decision{
			Action: "provision",
			Rationale: fmt.Sprintf("colony %d is %s with %.2f food per worker",
				c.ID, c.Level, c.FoodPerAnt),
			Intervention: &Intervention{
				Type:   "provision",
				Colony: c.ID,
				Amount: amount,
			},
		}
	}

	return &Decision{
		Action:    "none",
		Rationale: fmt.Sprintf("no colony needs food (crisis %s)", h.CrisisLevel),
	}
}
