// World generation using layered simplex noise.
// Generates moisture, temperature and soil layers, then seeds clustered food patches.
package world

import (
	"fmt"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/antcolony/internal/mathx"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Width  int
	Height int
	Seed   int64

	FoodCap float64 // Maximum food a cell can hold
	// FoodPatchLevel is the normalized noise level above which a cell starts with food.
	// 1.0 disables initial food entirely.
	FoodPatchLevel float64
	RockLevel      float64 // Soil noise above this becomes rock
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:          64,
		Height:         64,
		Seed:           42,
		FoodCap:        5.0,
		FoodPatchLevel: 0.72,
		RockLevel:      0.85,
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:          16,
		Height:         16,
		Seed:           42,
		FoodCap:        5.0,
		FoodPatchLevel: 0.70,
		RockLevel:      0.90,
	}
}

// Validate checks generation parameters.
func (cfg GenConfig) Validate() error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: world %dx%d", ErrInvalidConfig, cfg.Width, cfg.Height)
	}
	if cfg.FoodCap < 0 {
		return fmt.Errorf("%w: food cap %.3f", ErrInvalidConfig, cfg.FoodCap)
	}
	return nil
}

// Generate creates a complete grid with soil, climate and initial food.
// The result is fully determined by cfg.Seed.
func Generate(cfg GenConfig) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g, err := NewGrid(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}

	// Independent layers from offset seeds.
	soilNoise := opensimplex.NewNormalized(cfg.Seed)
	moistNoise := opensimplex.NewNormalized(cfg.Seed + 1)
	tempNoise := opensimplex.NewNormalized(cfg.Seed + 2)
	foodNoise := opensimplex.NewNormalized(cfg.Seed + 3)

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			fx, fy := float64(x), float64(y)
			c := &g.cells[y*cfg.Width+x]

			soil := octaveNoise(soilNoise, fx, fy, 3, 0.07, 0.5)
			c.Moisture = octaveNoise(moistNoise, fx, fy, 3, 0.05, 0.5)
			c.Temperature = octaveNoise(tempNoise, fx, fy, 2, 0.03, 0.5)
			c.Soil = deriveSoil(soil, c.Moisture, cfg)

			// Food clumps where the high-frequency food layer peaks.
			f := octaveNoise(foodNoise, fx, fy, 2, 0.18, 0.5)
			if f > cfg.FoodPatchLevel && c.Soil != SoilRock && cfg.FoodPatchLevel < 1 {
				richness := (f - cfg.FoodPatchLevel) / (1 - cfg.FoodPatchLevel)
				c.Food = mathx.Clamp(1+richness*cfg.FoodCap, 0, cfg.FoodCap)
			}
		}
	}

	return g, nil
}

// deriveSoil determines soil type from noise and moisture.
func deriveSoil(soil, moisture float64, cfg GenConfig) SoilType {
	if soil > cfg.RockLevel {
		return SoilRock
	}
	if moisture < 0.3 {
		return SoilSand
	}
	if moisture > 0.65 {
		return SoilClay
	}
	return SoilDirt
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
