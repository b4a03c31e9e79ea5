package engine

import (
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
)

// DailyReport logs the end-of-day summary and trims the event log. It returns
// the statistics it reported so callers can persist them.
func (s *Simulation) DailyReport(tick uint64) SimStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats()
	counts := make(map[string]int)
	for _, e := range s.Events {
		if e.Tick+uint64(s.Config.DayLength) > tick {
			counts[e.Category]++
		}
	}

	slog.Info("daily report",
		"tick", humanize.Comma(int64(tick)),
		"time", SimTime(tick, s.Config.DayLength),
		"weather", s.Env.Describe(),
		"population", humanize.Comma(int64(st.Population)),
		"brood", st.BroodCount,
		"food_store", humanize.FormatFloat("#,###.##", st.FoodStore),
		"food_on_grid", humanize.FormatFloat("#,###.#", st.FoodOnGrid),
		"delivered", humanize.FormatFloat("#,###.#", st.Delivered),
		"mean_vitality", fmt.Sprintf("%.3f", st.MeanVitality),
		"events_birth", counts["birth"],
		"events_death", counts["death"],
	)
	for _, c := range s.Colonies {
		cs := c.Stats()
		slog.Info("colony report",
			"colony", cs.ID,
			"population", cs.Population,
			"food", humanize.FormatFloat("#,###.##", cs.FoodStore),
			"brood", cs.BroodCount,
			"foraging", cs.Tasks["foraging"],
			"gathering", cs.Tasks["gathering"],
			"carrying", cs.Tasks["carrying_food"],
		)
	}

	s.trimEvents()
	return st
}

// Summary is a one-line human-readable description of the run.
func (st SimStats) Summary() string {
	return fmt.Sprintf("tick %s: %s ants in %d colonies, %s food stored, %d brood, %s delivered, %s hatched, %s died",
		humanize.Comma(int64(st.Tick)),
		humanize.Comma(int64(st.Population)),
		st.Colonies,
		humanize.FormatFloat("#,###.#", st.FoodStore),
		st.BroodCount,
		humanize.FormatFloat("#,###.#", st.Delivered),
		humanize.Comma(int64(st.Hatched)),
		humanize.Comma(int64(st.Deaths)),
	)
}
