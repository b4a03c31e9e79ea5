// Package pheromone provides the multi-layer chemical signal field.
// Each channel is an independent concentration grid with its own decay and spread rates.
package pheromone

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrOutOfBounds is returned for deposits or reads outside the grid.
	ErrOutOfBounds = errors.New("coordinate out of bounds")
	// ErrInvalidConfig is returned for bad dimensions, rates or deposit amounts.
	ErrInvalidConfig = errors.New("invalid pheromone config")
)

// Channel identifies one chemical cue.
type Channel uint8

const (
	Trail       Channel = iota // Path to food; decays but never spreads
	Alarm                      // Danger nearby
	Territory                  // Explored ground; repels scouts
	Recruitment                // Pulls idle workers toward a rich source
	BroodCare                  // Brood needs tending
	Death                      // Corpse site
	Royal                      // Queen presence
)

// NumChannels is the total number of channels.
const NumChannels = 7

// Channels lists every channel in update order.
var Channels = [NumChannels]Channel{Trail, Alarm, Territory, Recruitment, BroodCare, Death, Royal}

// Default rates applied to every channel unless overridden.
const (
	DefaultDecayRate  = 0.05
	DefaultSpreadRate = 0.1
)

// String returns the channel's lowercase name.
func (c Channel) String() string {
	switch c {
	case Trail:
		return "trail"
	case Alarm:
		return "alarm"
	case Territory:
		return "territory"
	case Recruitment:
		return "recruitment"
	case BroodCare:
		return "brood_care"
	case Death:
		return "death"
	case Royal:
		return "royal"
	default:
		return fmt.Sprintf("channel(%d)", uint8(c))
	}
}

// ParseChannel maps a name produced by String back to its channel.
func ParseChannel(name string) (Channel, error) {
	for _, c := range Channels {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown channel %q", ErrInvalidConfig, name)
}

// Rates holds a channel's per-tick decay and spread fractions.
type Rates struct {
	Decay  float64 `json:"decay"`
	Spread float64 `json:"spread"`
}

// Validate checks both rates lie in [0, 1].
func (r Rates) Validate() error {
	if !inUnit(r.Decay) || !inUnit(r.Spread) {
		return fmt.Errorf("%w: rates decay=%v spread=%v must be in [0,1]", ErrInvalidConfig, r.Decay, r.Spread)
	}
	return nil
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1 && !math.IsNaN(v)
}

// Layer is one channel's concentration grid, row-major.
type Layer struct {
	Channel Channel
	Grid    []float64
	Rates   Rates
}

// Field holds every channel's layer for a world.
type Field struct {
	Width  int
	Height int

	layers [NumChannels]*Layer
	// scratch buffer reused by spread
	scratch []float64
}

// New creates a zeroed field. overrides replaces the default rates per channel.
func New(width, height int, overrides map[Channel]Rates) (*Field, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: field %dx%d", ErrInvalidConfig, width, height)
	}
	f := &Field{
		Width:   width,
		Height:  height,
		scratch: make([]float64, width*height),
	}
	for _, c := range Channels {
		f.layers[c] = &Layer{
			Channel: c,
			Grid:    make([]float64, width*height),
			Rates:   Rates{Decay: DefaultDecayRate, Spread: DefaultSpreadRate},
		}
	}
	for c, r := range overrides {
		if err := f.SetRates(c, r); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// SetRates replaces a channel's rates.
func (f *Field) SetRates(c Channel, r Rates) error {
	if int(c) >= NumChannels {
		return fmt.Errorf("%w: unknown channel %d", ErrInvalidConfig, c)
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("channel %s: %w", c, err)
	}
	f.layers[c].Rates = r
	return nil
}

// RatesOf returns a channel's current rates.
func (f *Field) RatesOf(c Channel) Rates {
	return f.layers[c].Rates
}

func (f *Field) index(x, y int) (int, error) {
	if x < 0 || x >= f.Width || y < 0 || y >= f.Height {
		return 0, fmt.Errorf("pheromone (%d, %d) on %dx%d field: %w", x, y, f.Width, f.Height, ErrOutOfBounds)
	}
	return y*f.Width + x, nil
}

// Deposit adds amount to a cell. There is no upper bound at this layer.
func (f *Field) Deposit(c Channel, x, y int, amount float64) error {
	if amount < 0 || math.IsNaN(amount) {
		return fmt.Errorf("%w: deposit %v of %s", ErrInvalidConfig, amount, c)
	}
	i, err := f.index(x, y)
	if err != nil {
		return err
	}
	f.layers[c].Grid[i] += amount
	return nil
}

// Read returns the concentration at a cell; zero if nothing was ever deposited.
func (f *Field) Read(c Channel, x, y int) (float64, error) {
	i, err := f.index(x, y)
	if err != nil {
		return 0, err
	}
	return f.layers[c].Grid[i], nil
}

// Layer returns a copy of a channel's grid for overlay rendering.
func (f *Field) Layer(c Channel) []float64 {
	out := make([]float64, len(f.layers[c].Grid))
	copy(out, f.layers[c].Grid)
	return out
}

// Restore overwrites a channel's grid from a snapshot taken by Layer.
func (f *Field) Restore(c Channel, grid []float64) error {
	if len(grid) != f.Width*f.Height {
		return fmt.Errorf("%w: %s snapshot has %d cells, field has %d", ErrInvalidConfig, c, len(grid), f.Width*f.Height)
	}
	for i, v := range grid {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: %s snapshot has %v at index %d", ErrInvalidConfig, c, v, i)
		}
	}
	copy(f.layers[c].Grid, grid)
	return nil
}

// Total returns the sum of a channel's concentrations.
func (f *Field) Total(c Channel) float64 {
	total := 0.0
	for _, v := range f.layers[c].Grid {
		total += v
	}
	return total
}
