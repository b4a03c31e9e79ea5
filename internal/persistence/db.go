// Package persistence provides SQLite-based checkpoint storage for a run:
// colonies, agents, signal layers, food, events and daily statistics.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/antcolony/internal/agents"
	"github.com/talgya/antcolony/internal/colony"
	"github.com/talgya/antcolony/internal/engine"
	"github.com/talgya/antcolony/internal/environment"
	"github.com/talgya/antcolony/internal/pheromone"
)

// foodLayer is the layers-table name of the food grid.
const foodLayer = "food"

// DB wraps a SQLite connection for run state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS colonies (
		id INTEGER PRIMARY KEY,
		nest_x INTEGER NOT NULL,
		nest_y INTEGER NOT NULL,
		food_store REAL NOT NULL,
		brood_count INTEGER NOT NULL,
		brood_progress INTEGER NOT NULL,
		generation INTEGER NOT NULL,
		delivered REAL NOT NULL,
		eggs_laid INTEGER NOT NULL,
		hatched INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		traits_json TEXT NOT NULL,
		policies_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agents (
		id INTEGER PRIMARY KEY,
		colony_id INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		heading REAL NOT NULL,
		task INTEGER NOT NULL,
		vitality REAL NOT NULL,
		age INTEGER NOT NULL,
		carrying_food REAL NOT NULL,
		lay_trail INTEGER NOT NULL,
		patience INTEGER NOT NULL,
		search_ticks INTEGER NOT NULL,
		thresholds_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS layers (
		name TEXT PRIMARY KEY,
		cells INTEGER NOT NULL,
		data_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stats_history (
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		colonies INTEGER NOT NULL,
		population INTEGER NOT NULL,
		food_store REAL NOT NULL,
		brood_count INTEGER NOT NULL,
		carrying REAL NOT NULL,
		food_on_grid REAL NOT NULL,
		delivered REAL NOT NULL,
		hatched INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		mean_vitality REAL NOT NULL,
		trail_total REAL NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_agents_colony ON agents(colony_id, seq);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type colonyRow struct {
	ID            uint32  `db:"id"`
	NestX         int     `db:"nest_x"`
	NestY         int     `db:"nest_y"`
	FoodStore     float64 `db:"food_store"`
	BroodCount    int     `db:"brood_count"`
	BroodProgress int     `db:"brood_progress"`
	Generation    int     `db:"generation"`
	Delivered     float64 `db:"delivered"`
	EggsLaid      int     `db:"eggs_laid"`
	Hatched       int     `db:"hatched"`
	Deaths        int     `db:"deaths"`
	TraitsJSON    string  `db:"traits_json"`
	PoliciesJSON  string  `db:"policies_json"`
}

type agentRow struct {
	ID             uint64  `db:"id"`
	ColonyID       uint32  `db:"colony_id"`
	Seq            int     `db:"seq"`
	X              int     `db:"x"`
	Y              int     `db:"y"`
	Heading        float64 `db:"heading"`
	Task           uint8   `db:"task"`
	Vitality       float64 `db:"vitality"`
	Age            int     `db:"age"`
	CarryingFood   float64 `db:"carrying_food"`
	LayTrail       bool    `db:"lay_trail"`
	Patience       int     `db:"patience"`
	SearchTicks    int     `db:"search_ticks"`
	ThresholdsJSON string  `db:"thresholds_json"`
}

type layerRow struct {
	Name     string `db:"name"`
	Cells    int    `db:"cells"`
	DataJSON string `db:"data_json"`
}

// SaveCheckpoint writes a checkpoint in one transaction (full replace).
func (db *DB) SaveCheckpoint(cp *engine.Checkpoint, seed int64) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"colonies", "agents", "layers"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	agentStmt, err := tx.PrepareNamed(`INSERT INTO agents
		(id, colony_id, seq, x, y, heading, task, vitality, age, carrying_food,
		 lay_trail, patience, search_ticks, thresholds_json)
		VALUES (:id, :colony_id, :seq, :x, :y, :heading, :task, :vitality, :age, :carrying_food,
		 :lay_trail, :patience, :search_ticks, :thresholds_json)`)
	if err != nil {
		return err
	}
	defer agentStmt.Close()

	for _, c := range cp.Colonies {
		traitsJSON, _ := json.Marshal(c.Traits)
		policiesJSON, _ := json.Marshal(c.Policies)
		_, err := tx.NamedExec(`INSERT INTO colonies
			(id, nest_x, nest_y, food_store, brood_count, brood_progress, generation,
			 delivered, eggs_laid, hatched, deaths, traits_json, policies_json)
			VALUES (:id, :nest_x, :nest_y, :food_store, :brood_count, :brood_progress, :generation,
			 :delivered, :eggs_laid, :hatched, :deaths, :traits_json, :policies_json)`,
			colonyRow{
				ID: uint32(c.ID), NestX: c.NestX, NestY: c.NestY,
				FoodStore: c.FoodStore, BroodCount: c.BroodCount, BroodProgress: c.BroodProgress,
				Generation: c.Generation, Delivered: c.Delivered, EggsLaid: c.EggsLaid,
				Hatched: c.Hatched, Deaths: c.Deaths,
				TraitsJSON: string(traitsJSON), PoliciesJSON: string(policiesJSON),
			})
		if err != nil {
			return fmt.Errorf("insert colony %d: %w", c.ID, err)
		}

		for seq, a := range c.Agents {
			thresholdsJSON, _ := json.Marshal(a.Thresholds)
			_, err := agentStmt.Exec(agentRow{
				ID: uint64(a.ID), ColonyID: uint32(c.ID), Seq: seq,
				X: a.X, Y: a.Y, Heading: a.Heading, Task: uint8(a.Task),
				Vitality: a.Vitality, Age: a.Age, CarryingFood: a.CarryingFood,
				LayTrail: a.LayTrail, Patience: a.Patience, SearchTicks: a.SearchTicks,
				ThresholdsJSON: string(thresholdsJSON),
			})
			if err != nil {
				return fmt.Errorf("insert agent %d: %w", a.ID, err)
			}
		}
	}

	layers := map[string][]float64{foodLayer: cp.Food}
	for ch, grid := range cp.Layers {
		layers[ch.String()] = grid
	}
	for name, grid := range layers {
		data, err := json.Marshal(grid)
		if err != nil {
			return fmt.Errorf("encode layer %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO layers (name, cells, data_json) VALUES (?, ?, ?)",
			name, len(grid), string(data)); err != nil {
			return fmt.Errorf("insert layer %s: %w", name, err)
		}
	}

	envJSON, _ := json.Marshal(cp.Env)
	meta := map[string]string{
		"run_id":    cp.RunID,
		"seed":      strconv.FormatInt(seed, 10),
		"last_tick": strconv.FormatUint(cp.Tick, 10),
		"next_id":   strconv.FormatUint(uint64(cp.NextID), 10),
		"env_json":  string(envJSON),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	return tx.Commit()
}

// LoadCheckpoint reads the saved checkpoint. It returns nil and no error when
// the database has never been saved to.
func (db *DB) LoadCheckpoint() (*engine.Checkpoint, error) {
	lastTick, err := db.GetMeta("last_tick")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read last tick: %w", err)
	}

	cp := &engine.Checkpoint{Layers: make(map[pheromone.Channel][]float64)}
	if cp.Tick, err = strconv.ParseUint(lastTick, 10, 64); err != nil {
		return nil, fmt.Errorf("parse last tick %q: %w", lastTick, err)
	}
	if cp.RunID, err = db.GetMeta("run_id"); err != nil {
		return nil, fmt.Errorf("read run id: %w", err)
	}
	nextID, err := db.GetMeta("next_id")
	if err != nil {
		return nil, fmt.Errorf("read next id: %w", err)
	}
	n, err := strconv.ParseUint(nextID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse next id %q: %w", nextID, err)
	}
	cp.NextID = agents.AgentID(n)

	envJSON, err := db.GetMeta("env_json")
	if err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	var env environment.State
	if err := json.Unmarshal([]byte(envJSON), &env); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	cp.Env = env

	if cp.Colonies, err = db.loadColonies(); err != nil {
		return nil, err
	}

	var layers []layerRow
	if err := db.conn.Select(&layers, "SELECT name, cells, data_json FROM layers"); err != nil {
		return nil, fmt.Errorf("load layers: %w", err)
	}
	for _, l := range layers {
		var grid []float64
		if err := json.Unmarshal([]byte(l.DataJSON), &grid); err != nil {
			return nil, fmt.Errorf("decode layer %s: %w", l.Name, err)
		}
		if len(grid) != l.Cells {
			return nil, fmt.Errorf("layer %s has %d cells, header says %d", l.Name, len(grid), l.Cells)
		}
		if l.Name == foodLayer {
			cp.Food = grid
			continue
		}
		ch, err := pheromone.ParseChannel(l.Name)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", l.Name, err)
		}
		cp.Layers[ch] = grid
	}

	slog.Info("checkpoint loaded", "run_id", cp.RunID, "tick", cp.Tick, "colonies", len(cp.Colonies))
	return cp, nil
}

func (db *DB) loadColonies() ([]*colony.Colony, error) {
	var rows []colonyRow
	if err := db.conn.Select(&rows, "SELECT * FROM colonies ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load colonies: %w", err)
	}

	var out []*colony.Colony
	for _, r := range rows {
		c := &colony.Colony{
			ID: colony.ID(r.ID), NestX: r.NestX, NestY: r.NestY,
			FoodStore: r.FoodStore, BroodCount: r.BroodCount, BroodProgress: r.BroodProgress,
			Generation: r.Generation, Delivered: r.Delivered, EggsLaid: r.EggsLaid,
			Hatched: r.Hatched, Deaths: r.Deaths,
		}
		if err := json.Unmarshal([]byte(r.TraitsJSON), &c.Traits); err != nil {
			return nil, fmt.Errorf("decode colony %d traits: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.PoliciesJSON), &c.Policies); err != nil {
			return nil, fmt.Errorf("decode colony %d policies: %w", r.ID, err)
		}

		var agentRows []agentRow
		if err := db.conn.Select(&agentRows,
			"SELECT * FROM agents WHERE colony_id = ? ORDER BY seq", r.ID); err != nil {
			return nil, fmt.Errorf("load agents of colony %d: %w", r.ID, err)
		}
		for _, ar := range agentRows {
			a := &agents.Agent{
				ID: agents.AgentID(ar.ID), X: ar.X, Y: ar.Y, Heading: ar.Heading,
				Task: agents.Task(ar.Task), Vitality: ar.Vitality, Age: ar.Age,
				CarryingFood: ar.CarryingFood, LayTrail: ar.LayTrail,
				Patience: ar.Patience, SearchTicks: ar.SearchTicks,
			}
			if err := json.Unmarshal([]byte(ar.ThresholdsJSON), &a.Thresholds); err != nil {
				return nil, fmt.Errorf("decode agent %d thresholds: %w", ar.ID, err)
			}
			c.Agents = append(c.Agents, a)
		}
		out = append(out, c)
	}
	return out, nil
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (tick, description, category) VALUES (?, ?, ?)",
			e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// RecordStats stores one statistics row for the run.
func (db *DB) RecordStats(runID string, st engine.SimStats) error {
	_, err := db.conn.NamedExec(`INSERT OR REPLACE INTO stats_history
		(run_id, tick, colonies, population, food_store, brood_count, carrying,
		 food_on_grid, delivered, hatched, deaths, mean_vitality, trail_total)
		VALUES (:run_id, :tick, :colonies, :population, :food_store, :brood_count, :carrying,
		 :food_on_grid, :delivered, :hatched, :deaths, :mean_vitality, :trail_total)`,
		struct {
			RunID string `db:"run_id"`
			engine.SimStats
		}{runID, st},
	)
	return err
}

// LoadStatsHistory returns the run's statistics rows, oldest first, limited to
// the most recent limit rows.
func (db *DB) LoadStatsHistory(runID string, limit int) ([]engine.SimStats, error) {
	var rows []engine.SimStats
	err := db.conn.Select(&rows, `SELECT tick, colonies, population, food_store, brood_count,
		carrying, food_on_grid, delivered, hatched, deaths, mean_vitality, trail_total
		FROM (SELECT * FROM stats_history WHERE run_id = ? ORDER BY tick DESC LIMIT ?)
		ORDER BY tick ASC`, runID, limit)
	return rows, err
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// SaveWorldState checkpoints the simulation and appends its new events.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	cp := sim.Checkpoint()
	population := 0
	for _, c := range cp.Colonies {
		population += len(c.Agents)
	}
	slog.Info("saving world state", "tick", cp.Tick, "colonies", len(cp.Colonies), "agents", population)

	if err := db.SaveCheckpoint(cp, sim.Config.Seed); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	if err := db.SaveEvents(sim.DrainEvents()); err != nil {
		return fmt.Errorf("save events: %w", err)
	}

	slog.Info("world state saved")
	return nil
}
