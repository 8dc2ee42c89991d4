package simulation

import (
	"fmt"
	"math"
	"time"

	"github.com/pthm-cable/windglobe/config"
)

// Clock turns wall-clock frames into simulated dt values.
//
// With the wallclock policy dt is the wall delta scaled by TimeScale and
// capped at MaxFrameDT, and the clock never stops. With the fixed policy
// every frame advances FixedDT; once MaxElapsed simulated seconds have
// passed the clock stops producing frames.
type Clock struct {
	cfg     config.ClockConfig
	elapsed float64
	paused  bool
}

// NewClock creates a clock for the given policy.
func NewClock(cfg config.ClockConfig) (*Clock, error) {
	switch cfg.Policy {
	case config.ClockWallclock:
		if !(cfg.TimeScale > 0) || math.IsInf(cfg.TimeScale, 0) {
			return nil, fmt.Errorf("clock: time_scale must be > 0, got %v", cfg.TimeScale)
		}
	case config.ClockFixed:
		if !(cfg.FixedDT > 0) || math.IsInf(cfg.FixedDT, 0) {
			return nil, fmt.Errorf("clock: fixed_dt must be > 0, got %v", cfg.FixedDT)
		}
	default:
		return nil, fmt.Errorf("clock: unknown policy %q", cfg.Policy)
	}
	return &Clock{cfg: cfg}, nil
}

// Next returns the dt for a frame that took wall time. ok is false when no
// pass should run: the clock is paused, frozen, or the frame is empty.
func (c *Clock) Next(wall time.Duration) (dt float64, ok bool) {
	if c.paused || c.Frozen() {
		return 0, false
	}

	switch c.cfg.Policy {
	case config.ClockFixed:
		dt = c.cfg.FixedDT
		if c.cfg.MaxElapsed > 0 && c.elapsed+dt > c.cfg.MaxElapsed {
			dt = c.cfg.MaxElapsed - c.elapsed
		}
	default:
		dt = wall.Seconds() * c.cfg.TimeScale
		if c.cfg.MaxFrameDT > 0 && dt > c.cfg.MaxFrameDT {
			dt = c.cfg.MaxFrameDT
		}
	}

	if !(dt > 0) {
		return 0, false
	}
	return dt, true
}

// Advance records that a pass of dt seconds was applied.
func (c *Clock) Advance(dt float64) {
	c.elapsed += dt
}

// Frozen reports whether a fixed clock has reached its ceiling.
func (c *Clock) Frozen() bool {
	return c.cfg.Policy == config.ClockFixed && c.cfg.MaxElapsed > 0 && c.elapsed >= c.cfg.MaxElapsed
}

// Elapsed returns the simulated seconds applied so far.
func (c *Clock) Elapsed() float64 { return c.elapsed }

// SetPaused pauses or resumes the clock.
func (c *Clock) SetPaused(p bool) { c.paused = p }

// Paused reports whether the clock is paused.
func (c *Clock) Paused() bool { return c.paused }

// Reset rewinds the simulated time to zero.
func (c *Clock) Reset() { c.elapsed = 0 }
