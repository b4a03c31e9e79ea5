// Colony lifecycle: feeding, food pressure, aging, egg-laying, hatching and
// corpse removal, applied once per tick after every agent has acted.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/antcolony/internal/colony"
	"github.com/talgya/antcolony/internal/pheromone"
)

// processColony applies the colony-level effects for one tick.
func (s *Simulation) processColony(c *colony.Colony, tick uint64) error {
	cfg := s.Config
	wasAlive := c.Population() > 0

	c.ConsumeFood(cfg.ConsumptionPerAnt)
	c.ApplyFoodPressure(cfg.ComfortFoodPerAnt, cfg.MaxStarvationDamage)
	old := c.ApplyAging(cfg.MaxAge)
	c.LayEggs(cfg.EggRate, cfg.ComfortFoodPerAnt, s.rng)

	hatched := c.DevelopBrood(cfg.BroodMatureTicks, s.rng)
	if len(hatched) > 0 {
		slog.Debug("brood hatched", "tick", tick, "colony", c.ID, "count", len(hatched))
		s.EmitEvent(Event{
			Tick:        tick,
			Description: fmt.Sprintf("%d ants hatched in colony %d", len(hatched), c.ID),
			Category:    "birth",
			Meta:        map[string]any{"colony": c.ID, "count": len(hatched)},
		})
	}

	dead := c.RemoveDead()
	for _, a := range dead {
		if err := s.Field.Deposit(pheromone.Death, a.X, a.Y, DeathSignal); err != nil {
			return fmt.Errorf("death signal for agent %d: %w", a.ID, err)
		}
	}
	if len(dead) > 0 {
		slog.Debug("ants died", "tick", tick, "colony", c.ID, "count", len(dead), "old_age", old)
		s.EmitEvent(Event{
			Tick:        tick,
			Description: fmt.Sprintf("%d ants of colony %d died", len(dead), c.ID),
			Category:    "death",
			Meta:        map[string]any{"colony": c.ID, "count": len(dead), "old_age": old},
		})
	}

	if wasAlive && c.Population() == 0 && c.BroodCount == 0 {
		slog.Info("colony collapsed", "tick", tick, "colony", c.ID, "food", fmt.Sprintf("%.2f", c.FoodStore))
		s.EmitEvent(Event{
			Tick:        tick,
			Description: fmt.Sprintf("Colony %d has died out", c.ID),
			Category:    "collapse",
			Meta:        map[string]any{"colony": c.ID},
		})
	}
	return nil
}
