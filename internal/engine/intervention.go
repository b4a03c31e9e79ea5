package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/antcolony/internal/colony"
	"github.com/talgya/antcolony/internal/pheromone"
)

// ErrColonyNotFound is returned when an intervention names an unknown colony.
var ErrColonyNotFound = errors.New("colony not found")

// ProvisionColony adds food directly to a colony's store.
func (s *Simulation) ProvisionColony(id colony.ID, amount float64) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("%w: provision amount %v", ErrInvalidConfig, amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findColony(id)
	if c == nil {
		return "", fmt.Errorf("%w: %d", ErrColonyNotFound, id)
	}
	c.FoodStore += amount

	desc := fmt.Sprintf("%.1f food provisioned to colony %d", amount, id)
	s.EmitEvent(Event{
		Tick:        s.Tick,
		Description: desc,
		Category:    "intervention",
		Meta:        map[string]any{"colony": id, "amount": amount},
	})
	slog.Info("provision intervention", "colony", id, "amount", amount)
	return desc, nil
}

// DropFood places food on a cell, clipped to the cell cap. Nest cells refuse food.
func (s *Simulation) DropFood(x, y int, amount float64) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("%w: food amount %v", ErrInvalidConfig, amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cell, err := s.Grid.CellAt(x, y)
	if err != nil {
		return "", err
	}
	if cell.IsNest {
		return "", fmt.Errorf("cell (%d, %d) is a nest", x, y)
	}
	cell.Food = min(cell.Food+amount, s.Config.FoodCap)

	desc := fmt.Sprintf("food dropped at (%d, %d), cell now holds %.1f", x, y, cell.Food)
	s.EmitEvent(Event{
		Tick:        s.Tick,
		Description: desc,
		Category:    "intervention",
		Meta:        map[string]any{"x": x, "y": y, "amount": amount},
	})
	slog.Info("food intervention", "x", x, "y", y, "amount", amount)
	return desc, nil
}

// MarkSignal deposits pheromone on a cell, e.g. an ALARM or TRAIL mark.
func (s *Simulation) MarkSignal(ch pheromone.Channel, x, y int, amount float64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Field.Deposit(ch, x, y, amount); err != nil {
		return "", err
	}
	desc := fmt.Sprintf("%.1f %s marked at (%d, %d)", amount, ch, x, y)
	s.EmitEvent(Event{
		Tick:        s.Tick,
		Description: desc,
		Category:    "intervention",
		Meta:        map[string]any{"channel": ch.String(), "x": x, "y": y, "amount": amount},
	})
	slog.Info("signal intervention", "channel", ch, "x", x, "y", y, "amount", amount)
	return desc, nil
}

// InjectEvent records an operator-supplied event at the current tick.
func (s *Simulation) InjectEvent(description, category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.EmitEvent(Event{Tick: s.Tick, Description: description, Category: category})
}

func (s *Simulation) findColony(id colony.ID) *colony.Colony {
	for _, c := range s.Colonies {
		if c.ID == id {
			return c
		}
	}
	return nil
}
