package gardener

import (
	"math"
	"sort"
)

// Level grades how urgently a colony needs help.
type Level int

const (
	Healthy Level = iota
	Watch
	Warning
	Critical
)

func (l Level) String() string {
	switch l {
	case Watch:
		return "WATCH"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "HEALTHY"
	}
}

// ColonyHealth is the triage result for one colony.
type ColonyHealth struct {
	ID         uint32
	Population int
	FoodStore  float64
	FoodPerAnt float64
	Level      Level
	Collapsed  bool // No workers and no brood; beyond help
}

// Health holds derived diagnostic signals computed from a Snapshot.
type Health struct {
	Colonies        []ColonyHealth // Most urgent first
	DeathBirthRatio float64        // From the last two history rows; 0 without history
	CrisisLevel     Level          // Worst live colony, raised by a bad death:birth ratio
}

// Triage grades each colony by stored food per worker against comfort, the
// per-ant store below which the colony starts starving.
func Triage(snap *Snapshot, comfort float64) *Health {
	h := &Health{}

	for _, c := range snap.Colonies {
		ch := ColonyHealth{ID: c.ID, Population: c.Population, FoodStore: c.FoodStore}
		if c.Population == 0 {
			ch.Collapsed = c.BroodCount == 0
			ch.Level = Critical
			h.Colonies = append(h.Colonies, ch)
			continue
		}
		ch.FoodPerAnt = c.FoodStore / float64(c.Population)
		switch {
		case ch.FoodPerAnt < 0.25*comfort:
			ch.Level = Critical
		case ch.FoodPerAnt < 0.5*comfort:
			ch.Level = Warning
		case ch.FoodPerAnt < comfort:
			ch.Level = Watch
		}
		if !ch.Collapsed && ch.Level > h.CrisisLevel {
			h.CrisisLevel = ch.Level
		}
		h.Colonies = append(h.Colonies, ch)
	}

	sort.SliceStable(h.Colonies, func(i, j int) bool {
		a, b := h.Colonies[i], h.Colonies[j]
		if a.Level != b.Level {
			return a.Level > b.Level
		}
		return a.FoodPerAnt < b.FoodPerAnt
	})

	h.DeathBirthRatio = deathBirthRatio(snap.History)
	if h.DeathBirthRatio > 2 && h.CrisisLevel < Watch {
		h.CrisisLevel = Watch
	}
	return h
}

// deathBirthRatio compares deaths and hatches between the newest pair of
// history rows. A restart resets the cumulative counters, so pairs where
// they went backwards are skipped.
func deathBirthRatio(history []StatsRow) float64 {
	for i := len(history) - 1; i > 0; i-- {
		newer, older := history[i], history[i-1]
		if newer.Hatched < older.Hatched || newer.Deaths < older.Deaths {
			continue
		}
		births := newer.Hatched - older.Hatched
		deaths := newer.Deaths - older.Deaths
		switch {
		case births > 0:
			return float64(deaths) / float64(births)
		case deaths > 0:
			return math.Inf(1)
		default:
			return 1
		}
	}
	return 0
}
