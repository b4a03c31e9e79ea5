// Command headless-report runs several seeded colony simulations without the
// HTTP API or a database and prints one summary line per run.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/talgya/antcolony/internal/engine"
)

func main() {
	runs := flag.Int("runs", 3, "number of runs")
	ticks := flag.Int("ticks", 2000, "ticks per run")
	seedBase := flag.Int64("seed-base", 42, "seed of the first run")
	seedStep := flag.Int64("seed-step", 1, "seed increment between runs")
	colonies := flag.Int("colonies", 2, "colonies per run")
	ants := flag.Int("ants", engine.DefaultConfig().InitialAnts, "initial workers per colony")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	failed := 0
	for i := 0; i < *runs; i++ {
		cfg := engine.DefaultConfig()
		cfg.Seed = *seedBase + int64(i)*(*seedStep)
		cfg.InitialAnts = *ants

		st, err := runOnce(cfg, *colonies, *ticks)
		if err != nil {
			fmt.Printf("seed %d: FAILED: %v\n", cfg.Seed, err)
			failed++
			continue
		}
		fmt.Printf("seed %d: %s\n", cfg.Seed, st.Summary())
	}
	if failed > 0 {
		fmt.Printf("%s of %s runs failed\n", humanize.Comma(int64(failed)), humanize.Comma(int64(*runs)))
		os.Exit(1)
	}
}

// runOnce steps a fresh world, calling the daily report on day boundaries
// the way the live engine does.
func runOnce(cfg engine.Config, colonies, ticks int) (engine.SimStats, error) {
	sim, err := engine.NewSimulation(cfg)
	if err != nil {
		return engine.SimStats{}, err
	}
	if err := sim.FoundColonies(colonies, max(cfg.Width, cfg.Height)/4); err != nil {
		return engine.SimStats{}, err
	}

	eng := engine.NewEngine(sim.Step, cfg.DayLength)
	eng.OnDay = func(tick uint64) { sim.DailyReport(tick) }
	for i := 0; i < ticks; i++ {
		if err := eng.Advance(); err != nil {
			return sim.Stats(), fmt.Errorf("tick %d: %w", sim.Tick+1, err)
		}
	}
	return sim.Stats(), nil
}
