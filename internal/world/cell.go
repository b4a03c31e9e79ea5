// Package world provides the square cell grid the colonies live on.
// Cells hold terrain and food; pheromone concentrations live in the pheromone package.
package world

// SoilType affects nest placement desirability and initial food density.
type SoilType uint8

const (
	SoilDirt SoilType = iota // Default loam
	SoilSand                 // Dry, poor food
	SoilClay                 // Holds moisture, good nest walls
	SoilRock                 // Unsuitable for nests
)

// Cell is a single tile on the grid.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`

	Soil        SoilType `json:"soil"`
	Moisture    float64  `json:"moisture"`    // 0.0 (dry) to 1.0 (saturated)
	Temperature float64  `json:"temperature"` // 0.0 (cold) to 1.0 (hot)

	// Food available for pickup. Never negative.
	Food   float64 `json:"food"`
	IsNest bool    `json:"is_nest"`
}

// cardinalOffsets come first so neighbour order is stable: W, E, N, S.
var cardinalOffsets = [4][2]int{
	{-1, 0},
	{1, 0},
	{0, -1},
	{0, 1},
}

var diagonalOffsets = [4][2]int{
	{-1, -1},
	{-1, 1},
	{1, -1},
	{1, 1},
}

// SoilName returns a human-readable name for a soil type.
func SoilName(s SoilType) string {
	switch s {
	case SoilDirt:
		return "Dirt"
	case SoilSand:
		return "Sand"
	case SoilClay:
		return "Clay"
	case SoilRock:
		return "Rock"
	default:
		return "Unknown"
	}
}
