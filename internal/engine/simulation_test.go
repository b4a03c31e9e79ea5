package engine

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/talgya/antcolony/internal/agents"
	"github.com/talgya/antcolony/internal/colony"
	"github.com/talgya/antcolony/internal/pheromone"
	"github.com/talgya/antcolony/internal/world"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 7
	cfg.Width = 20
	cfg.Height = 20
	cfg.InitialAnts = 10
	return cfg
}

func newTestSim(t *testing.T, cfg Config) *Simulation {
	t.Helper()
	s, err := NewSimulation(cfg)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	if _, err := s.AddColony(10, 10, colony.DefaultTraits(), colony.DefaultPolicies()); err != nil {
		t.Fatalf("AddColony: %v", err)
	}
	return s
}

func agentStates(s *Simulation) []agents.Agent {
	var out []agents.Agent
	for _, c := range s.Checkpoint().Colonies {
		for _, a := range c.Agents {
			out = append(out, *a)
		}
	}
	return out
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"zero ants", func(c *Config) { c.InitialAnts = 0 }},
		{"zero day length", func(c *Config) { c.DayLength = 0 }},
		{"zero comfort", func(c *Config) { c.ComfortFoodPerAnt = 0 }},
		{"negative egg rate", func(c *Config) { c.EggRate = -1 }},
		{"negative regen", func(c *Config) { c.BaseRegenRate = -0.1 }},
		{"bad agent params", func(c *Config) { c.Agent.PickupRation = 0 }},
		{"bad channel rate", func(c *Config) {
			c.ChannelRates = map[pheromone.Channel]pheromone.Rates{pheromone.Alarm: {Decay: 1.5}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mod(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
			if _, err := NewSimulation(cfg); err == nil {
				t.Error("NewSimulation accepted invalid config")
			}
		})
	}
}

func TestChannelOverridesApplied(t *testing.T) {
	cfg := smallConfig()
	cfg.ChannelRates = map[pheromone.Channel]pheromone.Rates{pheromone.Alarm: {Decay: 0.2, Spread: 0.3}}
	s, err := NewSimulation(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Field.RatesOf(pheromone.Alarm); got.Decay != 0.2 || got.Spread != 0.3 {
		t.Errorf("alarm rates = %+v", got)
	}
}

func TestAddColony(t *testing.T) {
	s := newTestSim(t, smallConfig())
	c := s.Colonies[0]
	if c.Population() != 10 || c.FoodStore != colony.InitialFoodStore {
		t.Errorf("population = %d food = %v", c.Population(), c.FoodStore)
	}
	cell, _ := s.Grid.CellAt(11, 11)
	if !cell.IsNest || cell.Food != 0 {
		t.Errorf("nest radius cell = %+v", cell)
	}
	if _, err := s.AddColony(99, 0, colony.DefaultTraits(), colony.DefaultPolicies()); !errors.Is(err, world.ErrOutOfBounds) {
		t.Errorf("err = %v, want ErrOutOfBounds", err)
	}
}

func TestFoundColonies(t *testing.T) {
	s, err := NewSimulation(smallConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.FoundColonies(2, 8); err != nil {
		t.Fatalf("FoundColonies: %v", err)
	}
	if len(s.Colonies) == 0 {
		t.Fatal("no colonies founded")
	}
	seen := map[agents.AgentID]bool{}
	for _, c := range s.Colonies {
		for _, a := range c.Agents {
			if seen[a.ID] {
				t.Fatalf("duplicate agent id %d", a.ID)
			}
			seen[a.ID] = true
		}
	}
}

func TestDeterminism(t *testing.T) {
	a := newTestSim(t, smallConfig())
	b := newTestSim(t, smallConfig())
	if err := a.Run(200); err != nil {
		t.Fatal(err)
	}
	if err := b.Run(200); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(agentStates(a), agentStates(b)) {
		t.Error("agent states differ between identical runs")
	}
	for _, ch := range pheromone.Channels {
		if !reflect.DeepEqual(a.FieldLayer(ch), b.FieldLayer(ch)) {
			t.Errorf("%s layer differs between identical runs", ch)
		}
	}
	if !reflect.DeepEqual(a.FoodGrid(), b.FoodGrid()) {
		t.Error("food grid differs between identical runs")
	}
	sa, sb := a.Stats(), b.Stats()
	if sa != sb {
		t.Errorf("stats differ: %+v vs %+v", sa, sb)
	}
}

func TestDeathLeavesSignal(t *testing.T) {
	cfg := smallConfig()
	cfg.MaxAge = 1
	s := newTestSim(t, cfg)

	if err := s.Step(); err != nil {
		t.Fatal(err)
	}
	c := s.Colonies[0]
	if c.Population() != 0 || c.Deaths != 10 {
		t.Fatalf("population = %d deaths = %d, want 0 and 10", c.Population(), c.Deaths)
	}
	if got := s.Field.Total(pheromone.Death); math.Abs(got-10*DeathSignal) > 1e-9 {
		t.Errorf("death total = %v, want %v", got, 10*DeathSignal)
	}

	events := s.DrainEvents()
	found := false
	for _, e := range events {
		if e.Category == "death" {
			found = true
		}
	}
	if !found {
		t.Errorf("no death event in %+v", events)
	}
	if again := s.DrainEvents(); again != nil {
		t.Errorf("second drain = %+v, want nil", again)
	}
}

func TestStarvation(t *testing.T) {
	cfg := smallConfig()
	cfg.FoodPatchLevel = 1
	cfg.BaseRegenRate = 0
	cfg.SpreadRegenRate = 0
	cfg.MaxStarvationDamage = 0.5
	s := newTestSim(t, cfg)
	s.Colonies[0].FoodStore = 0

	if err := s.Run(3); err != nil {
		t.Fatal(err)
	}
	if got := s.Colonies[0].Population(); got != 0 {
		t.Errorf("population = %d after starving, want 0", got)
	}
	if s.Colonies[0].FoodStore != 0 || s.Colonies[0].BroodCount != 0 {
		t.Errorf("food = %v brood = %d", s.Colonies[0].FoodStore, s.Colonies[0].BroodCount)
	}
}

func TestCheckpointRestore(t *testing.T) {
	cfg := smallConfig()
	s := newTestSim(t, cfg)
	if err := s.Run(60); err != nil {
		t.Fatal(err)
	}
	cp := s.Checkpoint()

	r, err := Restore(cfg, cp)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if r.RunID != s.RunID || r.Tick != s.Tick {
		t.Errorf("run id/tick = %s/%d, want %s/%d", r.RunID, r.Tick, s.RunID, s.Tick)
	}
	if !reflect.DeepEqual(agentStates(r), agentStates(s)) {
		t.Error("restored agents differ")
	}
	for _, ch := range pheromone.Channels {
		if !reflect.DeepEqual(r.FieldLayer(ch), s.FieldLayer(ch)) {
			t.Errorf("restored %s layer differs", ch)
		}
	}
	if !reflect.DeepEqual(r.FoodGrid(), s.FoodGrid()) {
		t.Error("restored food differs")
	}
	if r.Spawner.NextID() != s.Spawner.NextID() {
		t.Errorf("next id = %d, want %d", r.Spawner.NextID(), s.Spawner.NextID())
	}
	if err := r.Run(10); err != nil {
		t.Errorf("restored run: %v", err)
	}
}

func TestInterventions(t *testing.T) {
	s := newTestSim(t, smallConfig())

	if _, err := s.DropFood(10, 10, 2); err == nil {
		t.Error("DropFood on nest succeeded")
	}
	if _, err := s.DropFood(0, 0, 100); err != nil {
		t.Fatalf("DropFood: %v", err)
	}
	if cell, _ := s.Grid.CellAt(0, 0); cell.Food != s.Config.FoodCap {
		t.Errorf("food = %v, want capped at %v", cell.Food, s.Config.FoodCap)
	}
	if _, err := s.DropFood(-1, 0, 1); !errors.Is(err, world.ErrOutOfBounds) {
		t.Errorf("err = %v, want ErrOutOfBounds", err)
	}

	if _, err := s.ProvisionColony(1, 25); err != nil {
		t.Fatalf("ProvisionColony: %v", err)
	}
	if got := s.Colonies[0].FoodStore; got != colony.InitialFoodStore+25 {
		t.Errorf("food store = %v", got)
	}
	if _, err := s.ProvisionColony(9, 1); err == nil {
		t.Error("ProvisionColony accepted unknown colony")
	}

	if _, err := s.MarkSignal(pheromone.Alarm, 3, 3, 4); err != nil {
		t.Fatalf("MarkSignal: %v", err)
	}
	if got := s.Field.Total(pheromone.Alarm); got != 4 {
		t.Errorf("alarm total = %v, want 4", got)
	}
	if n := len(s.DrainEvents()); n != 3 {
		t.Errorf("events = %d, want 3", n)
	}
}

func TestStatusAndSnapshots(t *testing.T) {
	s := newTestSim(t, smallConfig())
	if err := s.Run(5); err != nil {
		t.Fatal(err)
	}
	st := s.Status()
	if st.Tick != 5 || st.Width != 20 || st.Stats.Colonies != 1 {
		t.Errorf("status = %+v", st)
	}
	if got := len(s.AgentSnapshots(1)); got != st.Stats.Population {
		t.Errorf("agent snapshots = %d, want %d", got, st.Stats.Population)
	}
	if got := len(s.AgentSnapshots(2)); got != 0 {
		t.Errorf("unknown colony snapshots = %d", got)
	}
	if got := len(s.FieldLayer(pheromone.Territory)); got != 400 {
		t.Errorf("layer cells = %d, want 400", got)
	}
	if got := s.DailyReport(5); got.Tick != 5 {
		t.Errorf("report tick = %d", got.Tick)
	}
}

func TestRecentEvents(t *testing.T) {
	s := newTestSim(t, smallConfig())
	for _, d := range []string{"one", "two", "three"} {
		s.InjectEvent(d, "note")
	}
	if _, err := s.ProvisionColony(1, 1); err != nil {
		t.Fatal(err)
	}

	got := s.RecentEvents(2, "note")
	if len(got) != 2 || got[0].Description != "two" || got[1].Description != "three" {
		t.Errorf("recent notes = %+v", got)
	}
	if got := s.RecentEvents(10, "intervention"); len(got) != 1 {
		t.Errorf("interventions = %d, want 1", len(got))
	}
	if got := s.RecentEvents(1, ""); len(got) != 1 || got[0].Category != "intervention" {
		t.Errorf("latest = %+v", got)
	}
	if _, err := s.ProvisionColony(5, 1); !errors.Is(err, ErrColonyNotFound) {
		t.Errorf("err = %v, want ErrColonyNotFound", err)
	}
}
