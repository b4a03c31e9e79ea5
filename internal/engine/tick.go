// Package engine provides the tick-based simulation loop and the Simulation
// that sequences environment, signal field, agents and colonies each tick.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Engine drives a stepper forward in real time.
type Engine struct {
	Tick      uint64        // Current tick counter (monotonic, never resets)
	Speed     float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval  time.Duration // Base tick interval
	DayLength uint64        // Ticks between OnDay callbacks

	// Step advances the world by one tick. An error stops the loop.
	Step func() error

	// Callbacks run after a successful step.
	OnTick func(tick uint64) // Every tick
	OnDay  func(tick uint64) // Every DayLength ticks

	mu      sync.Mutex
	running bool
	err     error
}

// NewEngine creates an engine at tick 0 running at real-time speed.
func NewEngine(step func() error, dayLength int) *Engine {
	return &Engine{
		Speed:     1.0,
		Interval:  100 * time.Millisecond,
		DayLength: uint64(max(dayLength, 1)),
		Step:      step,
	}
}

// Run starts the loop. Blocks until Stop is called or a step fails, and
// returns the step error if there was one.
func (e *Engine) Run() error {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	slog.Info("simulation engine started", "tick", e.Tick, "speed", e.GetSpeed())

	for e.Running() {
		speed := e.GetSpeed()
		if speed <= 0 {
			// Paused.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		if err := e.Advance(); err != nil {
			e.mu.Lock()
			e.running = false
			e.err = err
			e.mu.Unlock()
			slog.Error("simulation step failed", "tick", e.Tick, "error", err)
			return err
		}

		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("simulation engine stopped", "tick", e.Tick)
	return nil
}

// Stop halts the loop after the current tick.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}

// Running reports whether the loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// SetSpeed changes the speed multiplier; 0 pauses.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	e.Speed = speed
	e.mu.Unlock()
}

// GetSpeed returns the current speed multiplier.
func (e *Engine) GetSpeed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Speed
}

// Advance runs one step and its callbacks outside the real-time loop.
func (e *Engine) Advance() error {
	if e.Step != nil {
		if err := e.Step(); err != nil {
			return err
		}
	}
	e.Tick++

	if e.OnTick != nil {
		e.OnTick(e.Tick)
	}
	// Every simulated day: report, stats row, checkpoint.
	if e.Tick%e.DayLength == 0 && e.OnDay != nil {
		e.OnDay(e.Tick)
	}
	return nil
}

// SimTime returns a human-readable time for a tick: day number and hour.
func SimTime(tick uint64, dayLength int) string {
	dl := uint64(max(dayLength, 1))
	day := tick/dl + 1
	hour := (tick % dl) * 24 / dl
	return fmt.Sprintf("Day %d, %02d:00", day, hour)
}
