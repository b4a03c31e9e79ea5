package agents

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/talgya/antcolony/internal/mathx"
	"github.com/talgya/antcolony/internal/pheromone"
	"github.com/talgya/antcolony/internal/world"
)

const eps = 1e-9

type fixture struct {
	grid  *world.Grid
	field *pheromone.Field
	s     *Surroundings
}

// newFixture builds an empty 10x10 world with a single-cell nest.
func newFixture(t *testing.T, nestX, nestY int) *fixture {
	t.Helper()
	g, err := world.NewGrid(10, 10)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	if err := g.MarkNest(nestX, nestY, 0); err != nil {
		t.Fatalf("MarkNest: %v", err)
	}
	f, err := pheromone.New(10, 10, nil)
	if err != nil {
		t.Fatalf("pheromone.New: %v", err)
	}
	return &fixture{
		grid:  g,
		field: f,
		s:     &Surroundings{Grid: g, Field: f, NestX: nestX, NestY: nestY, Params: DefaultParams()},
	}
}

func (fx *fixture) setFood(t *testing.T, x, y int, food float64) {
	t.Helper()
	c, err := fx.grid.CellAt(x, y)
	if err != nil {
		t.Fatalf("CellAt(%d, %d): %v", x, y, err)
	}
	c.Food = food
}

func (fx *fixture) food(t *testing.T, x, y int) float64 {
	t.Helper()
	c, err := fx.grid.CellAt(x, y)
	if err != nil {
		t.Fatalf("CellAt(%d, %d): %v", x, y, err)
	}
	return c.Food
}

func (fx *fixture) read(t *testing.T, c pheromone.Channel, x, y int) float64 {
	t.Helper()
	v, err := fx.field.Read(c, x, y)
	if err != nil {
		t.Fatalf("Read(%s, %d, %d): %v", c, x, y, err)
	}
	return v
}

func (fx *fixture) update(t *testing.T, a *Agent, rng *rand.Rand) float64 {
	t.Helper()
	delivered, err := a.Update(fx.s, rng)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	return delivered
}

func newAgent(x, y int, task Task) *Agent {
	return &Agent{ID: 1, X: x, Y: y, Task: task, Vitality: 1, Thresholds: map[Stimulus]float64{StimulusFood: 0.5}}
}

func TestForagerFindsRichSource(t *testing.T) {
	fx := newFixture(t, 4, 4)
	fx.setFood(t, 3, 4, 5.0)
	a := newAgent(3, 4, TaskForaging)
	a.SearchTicks = 12

	if got := fx.update(t, a, rand.New(rand.NewSource(1))); got != 0 {
		t.Errorf("delivered = %v, want 0", got)
	}
	if a.Task != TaskCarryingFood {
		t.Errorf("task = %s, want carrying_food", a.Task)
	}
	if a.CarryingFood != 3.0 {
		t.Errorf("carrying = %v, want 3", a.CarryingFood)
	}
	if got := fx.food(t, 3, 4); math.Abs(got-2.0) > eps {
		t.Errorf("cell food = %v, want 2", got)
	}
	if !a.LayTrail || a.SearchTicks != 0 {
		t.Errorf("lay_trail = %v search_ticks = %d, want true 0", a.LayTrail, a.SearchTicks)
	}
	// Trail at the source plus the first carrying breadcrumb.
	if got := fx.read(t, pheromone.Trail, 3, 4); math.Abs(got-7.0) > eps {
		t.Errorf("trail = %v, want 7", got)
	}
	if got := fx.read(t, pheromone.Recruitment, 3, 4); got <= 0 {
		t.Errorf("recruitment = %v, want > 0", got)
	}
}

func TestCarrierDeliversAtNest(t *testing.T) {
	fx := newFixture(t, 4, 4)
	a := newAgent(4, 4, TaskCarryingFood)
	a.CarryingFood = 1.0
	a.Heading = 0.3

	if got := fx.update(t, a, rand.New(rand.NewSource(1))); got != 1.0 {
		t.Errorf("delivered = %v, want 1", got)
	}
	if a.Task != TaskForaging {
		t.Errorf("task = %s, want foraging", a.Task)
	}
	if a.CarryingFood != 0 {
		t.Errorf("carrying = %v, want 0", a.CarryingFood)
	}
	if want := 0.3 + math.Pi; math.Abs(a.Heading-want) > eps {
		t.Errorf("heading = %v, want %v", a.Heading, want)
	}
	if a.X != 4 || a.Y != 4 {
		t.Errorf("moved to (%d, %d) while delivering", a.X, a.Y)
	}
}

func TestCarrierWithTrailReturnsToGathering(t *testing.T) {
	fx := newFixture(t, 4, 4)
	a := newAgent(4, 4, TaskCarryingFood)
	a.CarryingFood = 3.0
	a.LayTrail = true
	a.Heading = 4.0

	fx.update(t, a, rand.New(rand.NewSource(1)))
	if a.Task != TaskGathering || a.Patience != DefaultParams().GatherPatience {
		t.Errorf("task = %s patience = %d, want gathering %d", a.Task, a.Patience, DefaultParams().GatherPatience)
	}
	if want := normalizeAngle(4.0 + math.Pi); math.Abs(a.Heading-want) > eps {
		t.Errorf("heading = %v, want %v", a.Heading, want)
	}
	// Gathering breadcrumb at the nest cell.
	if got := fx.read(t, pheromone.Trail, 4, 4); math.Abs(got-1.0) > eps {
		t.Errorf("trail = %v, want 1", got)
	}
}

func TestSmallFindLeavesNoTrail(t *testing.T) {
	fx := newFixture(t, 0, 0)
	fx.setFood(t, 5, 5, 1.0)
	a := newAgent(5, 5, TaskForaging)

	fx.update(t, a, rand.New(rand.NewSource(1)))
	if a.Task != TaskCarryingFood || a.CarryingFood != 1.0 {
		t.Fatalf("task = %s carrying = %v, want carrying_food 1", a.Task, a.CarryingFood)
	}
	if a.LayTrail {
		t.Error("lay_trail set for a small find")
	}
	if got := fx.field.Total(pheromone.Trail); got != 0 {
		t.Errorf("trail total = %v, want 0", got)
	}
	if got := fx.field.Total(pheromone.Recruitment); got != 0 {
		t.Errorf("recruitment total = %v, want 0", got)
	}
}

func TestMotherlodeLaw(t *testing.T) {
	tests := []struct {
		name      string
		food      float64
		wantTrail bool
	}{
		{"below threshold", 2.99, false},
		{"at threshold", 3.0, true},
		{"above threshold", 8.0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, 0, 0)
			fx.setFood(t, 5, 5, tt.food)
			a := newAgent(5, 5, TaskForaging)
			fx.update(t, a, rand.New(rand.NewSource(3)))

			gotTrail := fx.read(t, pheromone.Recruitment, 5, 5) > 0
			if gotTrail != tt.wantTrail || a.LayTrail != tt.wantTrail {
				t.Errorf("recruitment laid = %v lay_trail = %v, want %v", gotTrail, a.LayTrail, tt.wantTrail)
			}
		})
	}
}

func TestForagerIgnoresNestFood(t *testing.T) {
	fx := newFixture(t, 5, 5)
	fx.setFood(t, 5, 5, 4.0)
	a := newAgent(5, 5, TaskForaging)

	fx.update(t, a, rand.New(rand.NewSource(1)))
	if a.Task == TaskCarryingFood {
		t.Error("forager picked up food on the nest")
	}
	if got := fx.food(t, 5, 5); got != 4.0 {
		t.Errorf("nest food = %v, want 4", got)
	}
}

func TestForagerMarksTerritoryAndMoves(t *testing.T) {
	fx := newFixture(t, 0, 0)
	a := newAgent(5, 5, TaskForaging)

	fx.update(t, a, rand.New(rand.NewSource(7)))
	if got := fx.read(t, pheromone.Territory, 5, 5); math.Abs(got-0.3) > eps {
		t.Errorf("territory = %v, want 0.3", got)
	}
	if d := mathx.Manhattan(a.X, a.Y, 5, 5); d == 0 || d > 2 {
		t.Errorf("moved to (%d, %d), want one 8-neighbour step", a.X, a.Y)
	}
	if a.SearchTicks != 1 {
		t.Errorf("search_ticks = %d, want 1", a.SearchTicks)
	}
}

func TestForagerFollowsTrail(t *testing.T) {
	fx := newFixture(t, 9, 9)
	fx.s.Params.ForageFollowRate = 1
	if err := fx.field.Deposit(pheromone.Trail, 6, 5, 4.0); err != nil {
		t.Fatal(err)
	}
	if err := fx.field.Deposit(pheromone.Trail, 4, 4, 1.0); err != nil {
		t.Fatal(err)
	}
	a := newAgent(5, 5, TaskForaging)

	fx.update(t, a, rand.New(rand.NewSource(1)))
	if a.X != 6 || a.Y != 5 {
		t.Errorf("moved to (%d, %d), want (6, 5)", a.X, a.Y)
	}
	if math.Abs(a.Heading) > eps {
		t.Errorf("heading = %v, want 0 after stepping east", a.Heading)
	}
}

func TestForagerAnswersRecruitment(t *testing.T) {
	fx := newFixture(t, 0, 0)
	if err := fx.field.Deposit(pheromone.Recruitment, 5, 5, 20); err != nil {
		t.Fatal(err)
	}
	a := newAgent(5, 5, TaskForaging)
	a.Thresholds[StimulusFood] = 0.01
	a.SearchTicks = 100

	fx.update(t, a, rand.New(rand.NewSource(1)))
	if a.Task != TaskGathering {
		t.Fatalf("task = %s, want gathering", a.Task)
	}
	if !a.LayTrail || a.Patience != DefaultParams().GatherPatience || a.SearchTicks != 0 {
		t.Errorf("lay_trail = %v patience = %d search_ticks = %d", a.LayTrail, a.Patience, a.SearchTicks)
	}
	if a.X != 5 || a.Y != 5 {
		t.Errorf("moved to (%d, %d) on the switching tick", a.X, a.Y)
	}
}

func TestIdle(t *testing.T) {
	t.Run("recruitment pulls idle ants into gathering", func(t *testing.T) {
		recruited := 0
		for seed := int64(0); seed < 20; seed++ {
			fx := newFixture(t, 0, 0)
			if err := fx.field.Deposit(pheromone.Recruitment, 5, 5, 20); err != nil {
				t.Fatal(err)
			}
			a := newAgent(5, 5, TaskIdle)
			a.Thresholds[StimulusFood] = 0.01
			fx.update(t, a, rand.New(rand.NewSource(seed)))
			if a.Task == TaskGathering {
				recruited++
			}
		}
		if recruited < 15 {
			t.Errorf("recruited %d of 20, want nearly all", recruited)
		}
	})

	t.Run("high threshold stays idle", func(t *testing.T) {
		fx := newFixture(t, 0, 0)
		a := newAgent(5, 5, TaskIdle)
		a.Thresholds[StimulusFood] = 2.0
		rng := rand.New(rand.NewSource(1))
		for i := 0; i < 50; i++ {
			fx.update(t, a, rng)
		}
		if a.Task != TaskIdle {
			t.Errorf("task = %s, want idle", a.Task)
		}
	})

	t.Run("negative threshold forages", func(t *testing.T) {
		fx := newFixture(t, 0, 0)
		a := newAgent(5, 5, TaskIdle)
		a.Thresholds[StimulusFood] = -1
		fx.update(t, a, rand.New(rand.NewSource(1)))
		if a.Task != TaskForaging {
			t.Errorf("task = %s, want foraging", a.Task)
		}
	})
}

func TestGathererAtMotherlode(t *testing.T) {
	fx := newFixture(t, 0, 0)
	fx.setFood(t, 3, 3, 5.0)
	a := newAgent(3, 3, TaskGathering)
	a.LayTrail = true
	a.Patience = 10

	fx.update(t, a, rand.New(rand.NewSource(1)))
	if a.Task != TaskCarryingFood || a.CarryingFood != 3.0 {
		t.Fatalf("task = %s carrying = %v, want carrying_food 3", a.Task, a.CarryingFood)
	}
	if got := fx.read(t, pheromone.Recruitment, 3, 3); math.Abs(got-3.0) > eps {
		t.Errorf("recruitment = %v, want 3", got)
	}
}

func TestGathererIgnoresIsolatedCrumb(t *testing.T) {
	fx := newFixture(t, 0, 0)
	fx.setFood(t, 5, 5, 1.0)
	a := newAgent(5, 5, TaskGathering)
	a.LayTrail = true
	a.Patience = 10

	fx.update(t, a, rand.New(rand.NewSource(2)))
	if a.Task != TaskGathering || a.CarryingFood != 0 {
		t.Errorf("task = %s carrying = %v, want gathering 0", a.Task, a.CarryingFood)
	}
	if got := fx.food(t, 5, 5); got != 1.0 {
		t.Errorf("crumb = %v, want untouched", got)
	}
	if a.Patience != 9 {
		t.Errorf("patience = %d, want 9", a.Patience)
	}
	if got := fx.read(t, pheromone.Trail, a.X, a.Y); got > 1.0+eps {
		t.Errorf("gathering trail = %v, want <= 1", got)
	}
}

func TestGathererPicksFromCluster(t *testing.T) {
	fx := newFixture(t, 0, 0)
	for _, x := range []int{4, 5, 6} {
		fx.setFood(t, x, 5, 1.0)
	}
	a := newAgent(5, 5, TaskGathering)
	a.LayTrail = true
	a.Patience = 10

	fx.update(t, a, rand.New(rand.NewSource(1)))
	if a.Task != TaskCarryingFood || a.CarryingFood != 1.0 {
		t.Fatalf("task = %s carrying = %v, want carrying_food 1", a.Task, a.CarryingFood)
	}
	// Soft pickup mark plus the first carrying breadcrumb, and no recruitment.
	if got := fx.read(t, pheromone.Trail, 5, 5); math.Abs(got-3.0) > eps {
		t.Errorf("trail = %v, want 3", got)
	}
	if got := fx.field.Total(pheromone.Recruitment); got != 0 {
		t.Errorf("recruitment total = %v, want 0", got)
	}
}

func TestGathererPatienceExpires(t *testing.T) {
	fx := newFixture(t, 0, 0)
	a := newAgent(5, 5, TaskGathering)
	a.LayTrail = true
	a.Patience = 1

	fx.update(t, a, rand.New(rand.NewSource(1)))
	if a.Task != TaskForaging || a.LayTrail {
		t.Errorf("task = %s lay_trail = %v, want foraging false", a.Task, a.LayTrail)
	}
	if a.X != 5 || a.Y != 5 {
		t.Errorf("moved to (%d, %d) on abandonment", a.X, a.Y)
	}
}

func TestGathererPrefersOutboundTrail(t *testing.T) {
	fx := newFixture(t, 0, 0)
	fx.s.Params.GatherFollowRate = 1
	if err := fx.field.Deposit(pheromone.Trail, 6, 6, 1.0); err != nil {
		t.Fatal(err)
	}
	if err := fx.field.Deposit(pheromone.Trail, 4, 4, 1.2); err != nil {
		t.Fatal(err)
	}
	a := newAgent(5, 5, TaskGathering)
	a.LayTrail = true
	a.Patience = 10

	fx.update(t, a, rand.New(rand.NewSource(1)))
	if a.X != 6 || a.Y != 6 {
		t.Errorf("moved to (%d, %d), want outbound (6, 6)", a.X, a.Y)
	}
}

func TestGathererFallsBackToRecruitment(t *testing.T) {
	fx := newFixture(t, 0, 0)
	fx.s.Params.GatherFollowRate = 1
	if err := fx.field.Deposit(pheromone.Recruitment, 5, 6, 2.0); err != nil {
		t.Fatal(err)
	}
	a := newAgent(5, 5, TaskGathering)
	a.LayTrail = true
	a.Patience = 10

	fx.update(t, a, rand.New(rand.NewSource(1)))
	if a.X != 5 || a.Y != 6 {
		t.Errorf("moved to (%d, %d), want (5, 6)", a.X, a.Y)
	}
}

func TestCarrierHeadsHome(t *testing.T) {
	fx := newFixture(t, 0, 0)
	a := newAgent(5, 5, TaskCarryingFood)
	a.CarryingFood = 3.0
	a.LayTrail = true
	rng := rand.New(rand.NewSource(4))

	start := mathx.Manhattan(5, 5, 0, 0)
	fx.update(t, a, rng)
	if d := mathx.Manhattan(a.X, a.Y, 0, 0); d >= start {
		t.Errorf("distance to nest = %d, want < %d", d, start)
	}
	if got := fx.read(t, pheromone.Trail, a.X, a.Y); math.Abs(got-2.0) > eps {
		t.Errorf("carry trail = %v, want 2", got)
	}

	var delivered float64
	for i := 0; i < 40 && delivered == 0; i++ {
		delivered = fx.update(t, a, rng)
	}
	if delivered != 3.0 {
		t.Errorf("delivered = %v, want 3 within 40 ticks", delivered)
	}
}

func TestUpdateAgesAgent(t *testing.T) {
	fx := newFixture(t, 0, 0)
	a := newAgent(5, 5, TaskForaging)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 5; i++ {
		fx.update(t, a, rng)
	}
	if a.Age != 5 {
		t.Errorf("age = %d, want 5", a.Age)
	}
}

func TestUpdateOutOfBounds(t *testing.T) {
	fx := newFixture(t, 0, 0)
	a := newAgent(50, 50, TaskForaging)
	_, err := a.Update(fx.s, rand.New(rand.NewSource(1)))
	if !errors.Is(err, world.ErrOutOfBounds) {
		t.Errorf("err = %v, want ErrOutOfBounds", err)
	}
}

func TestSpawnDeterministic(t *testing.T) {
	g := Genome{FoodMean: 0.5, AlarmMean: 0.4, BroodMean: 0.3, WasteMean: 0.6, ThresholdStd: 0.1}
	s1, s2 := NewSpawner(), NewSpawner()
	r1, r2 := rand.New(rand.NewSource(9)), rand.New(rand.NewSource(9))

	for i := 0; i < 5; i++ {
		a, b := s1.Spawn(2, 3, g, r1), s2.Spawn(2, 3, g, r2)
		if a.ID != AgentID(i+1) {
			t.Errorf("id = %d, want %d", a.ID, i+1)
		}
		if a.Heading != b.Heading || a.Vitality != b.Vitality {
			t.Errorf("spawn %d differs: %+v vs %+v", i, a, b)
		}
		for _, st := range []Stimulus{StimulusFood, StimulusAlarm, StimulusBrood, StimulusWaste} {
			if a.Thresholds[st] != b.Thresholds[st] {
				t.Errorf("spawn %d threshold %s differs", i, st)
			}
		}
		if a.Task != TaskForaging || a.X != 2 || a.Y != 3 {
			t.Errorf("spawn %d = %+v", i, a)
		}
		if a.Vitality < 0.8 || a.Vitality >= 1.2 {
			t.Errorf("vitality = %v, want [0.8, 1.2)", a.Vitality)
		}
	}
	if s1.NextID() != 6 {
		t.Errorf("next id = %d, want 6", s1.NextID())
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	tests := []struct {
		name string
		mod  func(*Params)
	}{
		{"follow rate above one", func(p *Params) { p.ForageFollowRate = 1.5 }},
		{"negative deposit", func(p *Params) { p.TrailAtFood = -1 }},
		{"zero ration", func(p *Params) { p.PickupRation = 0 }},
		{"zero patience", func(p *Params) { p.GatherPatience = 0 }},
		{"cluster too large", func(p *Params) { p.DenseClusterMinCells = 10 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mod(&p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
