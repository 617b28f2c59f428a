// Package engine provides the tick-based simulation loop, the event bus, and
// the systems that drain commands against the map and unit state each tick.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Hook is a callback that runs every Every ticks.
type Hook struct {
	Every uint64
	Fn    func(tick uint64)
}

// Engine drives the simulation forward.
type Engine struct {
	Tick     uint64        // Current tick counter (monotonic, never resets)
	Interval time.Duration // Base tick interval

	// OnTick runs every tick; Hooks run on their own cadence after it.
	OnTick func(tick uint64)
	Hooks  []Hook

	mu      sync.Mutex
	speed   float64 // Multiplier: 1.0 = real-time, 0 = paused
	running atomic.Bool
}

// NewEngine creates a simulation engine with default settings.
func NewEngine(interval time.Duration) *Engine {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Engine{
		Interval: interval,
		speed:    1.0,
	}
}

// SetSpeed changes the speed multiplier. Zero or less pauses the loop.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = speed
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// Running reports whether Run is looping.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run starts the simulation loop. Blocks until Stop() is called.
func (e *Engine) Run() {
	e.running.Store(true)
	slog.Info("simulation engine started", "tick", e.Tick, "speed", e.Speed(), "interval", e.Interval)

	for e.running.Load() {
		speed := e.Speed()
		if speed <= 0 {
			// Paused; check again shortly.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		e.Step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		} else {
			slog.Debug("tick overran interval", "tick", e.Tick, "elapsed", elapsed, "target", target)
		}
	}

	slog.Info("simulation engine stopped", "tick", e.Tick)
}

// Stop halts the simulation loop. Safe to call from another goroutine.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Step advances the simulation by one tick. Systems run to completion before
// it returns.
func (e *Engine) Step() {
	e.Tick++

	if e.OnTick != nil {
		e.OnTick(e.Tick)
	}
	for _, h := range e.Hooks {
		if h.Every > 0 && e.Tick%h.Every == 0 && h.Fn != nil {
			h.Fn(e.Tick)
		}
	}
}

// Advance runs n ticks back to back without sleeping.
func (e *Engine) Advance(n int) {
	for i := 0; i < n; i++ {
		e.Step()
	}
}

// SimTime returns a human-readable simulation time for a tick.
func SimTime(tick uint64, interval time.Duration) string {
	total := time.Duration(tick) * interval
	h := int(total.Hours())
	m := int(total.Minutes()) % 60
	s := total.Seconds() - float64(h*3600+m*60)
	return fmt.Sprintf("%d:%02d:%06.3f (tick %d)", h, m, s, tick)
}
