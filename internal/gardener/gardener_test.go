package gardener

import (
	"context"
	"math"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/talgya/antcolony/internal/api"
	"github.com/talgya/antcolony/internal/colony"
	"github.com/talgya/antcolony/internal/engine"
)

func TestTriageLevels(t *testing.T) {
	snap := &Snapshot{Colonies: []ColonyInfo{
		{ID: 1, Population: 10, FoodStore: 20}, // 2.0 per ant
		{ID: 2, Population: 10, FoodStore: 7},  // watch
		{ID: 3, Population: 10, FoodStore: 4},  // warning
		{ID: 4, Population: 10, FoodStore: 1},  // critical
		{ID: 5, Population: 0, FoodStore: 0},   // collapsed
		{ID: 6, Population: 0, BroodCount: 3},  // brood only
	}}
	h := Triage(snap, 1.0)

	want := map[uint32]Level{1: Healthy, 2: Watch, 3: Warning, 4: Critical, 5: Critical, 6: Critical}
	for _, c := range h.Colonies {
		if c.Level != want[c.ID] {
			t.Errorf("colony %d level = %s, want %s", c.ID, c.Level, want[c.ID])
		}
		if c.Collapsed != (c.ID == 5) {
			t.Errorf("colony %d collapsed = %v", c.ID, c.Collapsed)
		}
	}
	if h.CrisisLevel != Critical {
		t.Errorf("crisis = %s, want CRITICAL", h.CrisisLevel)
	}
	if h.Colonies[len(h.Colonies)-1].ID != 1 {
		t.Errorf("healthiest colony should sort last, got %+v", h.Colonies)
	}
}

func TestDeathBirthRatio(t *testing.T) {
	tests := []struct {
		name    string
		history []StatsRow
		want    float64
	}{
		{"no history", nil, 0},
		{"normal", []StatsRow{{Hatched: 10, Deaths: 5}, {Hatched: 14, Deaths: 11}}, 1.5},
		{"births stalled", []StatsRow{{Hatched: 10, Deaths: 5}, {Hatched: 10, Deaths: 8}}, math.Inf(1)},
		{"quiet", []StatsRow{{Hatched: 10}, {Hatched: 10}}, 1},
		{"restart skipped", []StatsRow{{Hatched: 4, Deaths: 2}, {Hatched: 8, Deaths: 4}, {Hatched: 1, Deaths: 0}}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deathBirthRatio(tt.history); got != tt.want {
				t.Errorf("ratio = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecide(t *testing.T) {
	h := &Health{Colonies: []ColonyHealth{
		{ID: 4, Population: 10, FoodStore: 1, FoodPerAnt: 0.1, Level: Critical},
		{ID: 3, Population: 10, FoodStore: 4, FoodPerAnt: 0.4, Level: Warning},
		{ID: 2, Population: 10, FoodStore: 7, FoodPerAnt: 0.7, Level: Watch},
	}}
	rules := DefaultRules()

	mem := &CycleMemory{}
	d := Decide(h, mem, rules)
	if d.Action != "provision" || d.Intervention.Colony != 4 || d.Intervention.Amount != 9 {
		t.Fatalf("decision = %+v %+v", d, d.Intervention)
	}

	// Colony 4 on cooldown moves help to colony 3.
	mem.Record(CycleRecord{Action: "provision", Colony: 4})
	if d := Decide(h, mem, rules); d.Intervention == nil || d.Intervention.Colony != 3 {
		t.Errorf("with cooldown = %+v", d)
	}

	// Cooldown expires after enough quiet cycles.
	for i := 0; i < rules.Cooldown; i++ {
		mem.Record(CycleRecord{Action: "none"})
	}
	if d := Decide(h, mem, rules); d.Intervention == nil || d.Intervention.Colony != 4 {
		t.Errorf("after cooldown = %+v", d)
	}

	rules.MaxProvision = 2
	if d := Decide(h, &CycleMemory{}, rules); d.Intervention.Amount != 2 {
		t.Errorf("capped amount = %v", d.Intervention.Amount)
	}

	calm := &Health{Colonies: []ColonyHealth{{ID: 2, Population: 10, Level: Watch}}}
	if d := Decide(calm, &CycleMemory{}, DefaultRules()); d.Action != "none" || d.Intervention != nil {
		t.Errorf("calm decision = %+v", d)
	}
}

func TestMemoryPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	if mem := LoadMemory(path); len(mem.Records) != 0 {
		t.Fatalf("missing file gave %d records", len(mem.Records))
	}

	mem := &CycleMemory{}
	for i := 0; i < maxRecords+5; i++ {
		mem.Record(CycleRecord{Tick: uint64(i), Action: "none"})
	}
	if len(mem.Records) != maxRecords || mem.Records[0].Tick != 5 {
		t.Fatalf("ring = %d records starting at %d", len(mem.Records), mem.Records[0].Tick)
	}
	if err := mem.Save(path); err != nil {
		t.Fatal(err)
	}
	if got := LoadMemory(path); len(got.Records) != maxRecords || got.Records[maxRecords-1].Tick != maxRecords+4 {
		t.Errorf("loaded %+v", got.Records)
	}
}

func TestStewardProvisionsStarvingColony(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.Width, cfg.Height = 20, 20
	cfg.InitialAnts = 10
	sim, err := engine.NewSimulation(cfg)
	if err != nil {
		t.Fatal(err)
	}
	c, err := sim.AddColony(10, 10, colony.DefaultTraits(), colony.DefaultPolicies())
	if err != nil {
		t.Fatal(err)
	}
	c.FoodStore = 1

	srv := httptest.NewServer((&api.Server{Sim: sim, AdminKey: "k"}).Handler())
	defer srv.Close()

	st := &Steward{
		Observer: NewObserver(srv.URL),
		Actor:    NewActor(srv.URL, "k"),
		Rules:    DefaultRules(),
		Memory:   &CycleMemory{},
	}
	d, err := st.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if d.Action != "provision" || d.Intervention.Colony != uint32(c.ID) {
		t.Fatalf("decision = %+v", d)
	}
	if got := sim.ColonyStats()[0].FoodStore; got != 10 {
		t.Errorf("food store = %v, want 10", got)
	}

	// Now comfortable: the next cycle does nothing.
	d, err = st.RunCycle(context.Background())
	if err != nil || d.Action != "none" {
		t.Errorf("second cycle = %+v, %v", d, err)
	}
	if len(st.Memory.Records) != 2 || st.Memory.Records[0].Colony != uint32(c.ID) {
		t.Errorf("memory = %+v", st.Memory.Records)
	}
}

func TestActorRejectsBadKey(t *testing.T) {
	cfg := engine.DefaultConfig()
	cfg.Width, cfg.Height = 16, 16
	sim, err := engine.NewSimulation(cfg)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer((&api.Server{Sim: sim, AdminKey: "k"}).Handler())
	defer srv.Close()

	a := NewActor(srv.URL, "wrong")
	if _, err := a.Act(context.Background(), &Intervention{Type: "provision", Colony: 1, Amount: 1}); err == nil {
		t.Error("Act succeeded with a bad key")
	}
}
