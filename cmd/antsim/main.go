// Command antsim runs a persistent ant colony simulation behind the HTTP API.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/talgya/antcolony/internal/api"
	"github.com/talgya/antcolony/internal/engine"
	"github.com/talgya/antcolony/internal/persistence"
)

func main() {
	defaults := engine.DefaultConfig()
	seed := flag.Int64("seed", defaults.Seed, "world seed (ignored when resuming)")
	width := flag.Int("width", defaults.Width, "grid width")
	height := flag.Int("height", defaults.Height, "grid height")
	ants := flag.Int("ants", defaults.InitialAnts, "initial workers per colony")
	colonies := flag.Int("colonies", 2, "colonies founded in a fresh world")
	dbPath := flag.String("db", envOrDefault("ANTSIM_DB", "data/antsim.db"), "sqlite database path")
	port := flag.Int("port", envIntOrDefault("ANTSIM_PORT", 8080), "HTTP API port")
	speed := flag.Float64("speed", 1, "tick speed multiplier (0 = paused)")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	setupLogging(*debug)
	slog.Info("antsim: stigmergic colony simulation")

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		slog.Error("failed to create data dir", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", *dbPath)

	cfg := defaults
	cfg.Seed = *seed
	cfg.Width = *width
	cfg.Height = *height
	cfg.InitialAnts = *ants

	// ── Load or Generate World State ─────────────────────────────────
	sim, err := loadOrFound(db, cfg, *colonies)
	if err != nil {
		slog.Error("failed to start simulation", "error", err)
		os.Exit(1)
	}

	eng := engine.NewEngine(sim.Step, sim.Config.DayLength)
	eng.Tick = sim.Tick
	eng.SetSpeed(*speed)

	// Daily report, stats history and auto-save.
	eng.OnDay = func(tick uint64) {
		st := sim.DailyReport(tick)
		if err := db.RecordStats(sim.RunID, st); err != nil {
			slog.Error("stats record failed", "error", err)
		}
		if err := db.SaveWorldState(sim); err != nil {
			slog.Error("daily save failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("ANTSIM_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("ANTSIM_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		Sim:      sim,
		Eng:      eng,
		DB:       db,
		Port:     *port,
		AdminKey: adminKey,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	st := sim.Stats()
	fmt.Printf("\nColony run %s: %s ants in %d colonies on a %dx%d grid.\n",
		sim.RunID, humanize.Comma(int64(st.Population)), st.Colonies, sim.Config.Width, sim.Config.Height)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", *port)
	if sim.Tick > 0 {
		fmt.Printf("Resuming from tick %d (%s)\n", sim.Tick, engine.SimTime(sim.Tick, sim.Config.DayLength))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	runErr := eng.Run()
	if runErr != nil {
		slog.Error("simulation halted", "error", runErr)
	}

	// Final save on shutdown.
	slog.Info("final save...")
	if err := db.SaveWorldState(sim); err != nil {
		slog.Error("final save failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("Simulation stopped. Colony state saved.")
	if runErr != nil {
		os.Exit(1)
	}
}

// loadOrFound resumes the saved run if the database holds one, otherwise
// founds a fresh world and saves it.
func loadOrFound(db *persistence.DB, cfg engine.Config, colonies int) (*engine.Simulation, error) {
	cp, err := db.LoadCheckpoint()
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	if cp != nil {
		// Terrain is regenerated, so the saved seed wins over the flag.
		if seedStr, err := db.GetMeta("seed"); err == nil {
			if v, err := strconv.ParseInt(seedStr, 10, 64); err == nil {
				cfg.Seed = v
			}
		}
		sim, err := engine.Restore(cfg, cp)
		if err != nil {
			return nil, fmt.Errorf("restore tick %d: %w", cp.Tick, err)
		}
		slog.Info("colony state restored",
			"run", sim.RunID,
			"colonies", len(sim.Colonies),
			"tick", sim.Tick,
			"sim_time", engine.SimTime(sim.Tick, cfg.DayLength),
		)
		return sim, nil
	}

	slog.Info("no saved state found, founding new colonies...", "seed", cfg.Seed)
	sim, err := engine.NewSimulation(cfg)
	if err != nil {
		return nil, err
	}
	if err := sim.FoundColonies(colonies, max(cfg.Width, cfg.Height)/4); err != nil {
		return nil, err
	}
	if err := db.SaveWorldState(sim); err != nil {
		slog.Error("initial save failed", "error", err)
	}
	return sim, nil
}

// setupLogging uses the text handler on a terminal and JSON otherwise.
func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
