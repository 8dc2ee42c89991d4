package main

import (
	"context"
	"math"
	"sync"

	"github.com/pthm-cable/windglobe/config"
	"github.com/pthm-cable/windglobe/game"
	"github.com/pthm-cable/windglobe/telemetry"
)

// Targets describes the look the tuner aims for.
type Targets struct {
	LifeFrames float64 // mean frames between reseeds of one tracer
	StepPixels float64 // mean on-screen distance a tracer moves per frame
}

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	frames     int
	targets    Targets
	baseConfig *config.Config

	mu       sync.Mutex
	lastLook Look // look from the most recent Evaluate call
}

// Look is what a run measured, averaged over layers and windows.
type Look struct {
	LifeFrames float64
	StepPixels float64
}

// NewFitnessEvaluator creates a new evaluator. Runs use a fixed clock whose
// dt matches what the wallclock policy produces at the target frame rate.
func NewFitnessEvaluator(params *ParamVector, frames int, targets Targets, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		frames:     frames,
		targets:    targets,
		baseConfig: baseCfg,
	}
}

// LastLook returns the look measured by the most recent evaluation.
func (fe *FitnessEvaluator) LastLook() Look {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastLook
}

// Evaluate computes fitness for a parameter vector (lower = better): the
// squared log ratios of the measured look to the targets.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	look, ok := fe.runSimulation(cfg)
	fe.mu.Lock()
	fe.lastLook = look
	fe.mu.Unlock()
	if !ok {
		return math.Inf(1)
	}
	return computeFitness(look, fe.targets)
}

func computeFitness(look Look, targets Targets) float64 {
	if !(look.LifeFrames > 0) || !(look.StepPixels > 0) {
		return math.Inf(1)
	}
	life := math.Log(look.LifeFrames / targets.LifeFrames)
	step := math.Log(look.StepPixels / targets.StepPixels)
	return life*life + step*step
}

// runSimulation executes a single headless run and averages its stats
// windows, skipping the first one where every tracer reseeds at once.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config) (Look, bool) {
	var windows []telemetry.FrameStats
	g, err := game.NewGameWithOptions(game.Options{
		Config:   cfg,
		Headless: true,
		StatsCallback: func(s telemetry.FrameStats) {
			if s.WindowStart > 0 {
				windows = append(windows, s)
			}
		},
	})
	if err != nil {
		return Look{}, false
	}
	defer g.Unload()

	ctx := context.Background()
	for g.Frames() < uint64(fe.frames) {
		if err := g.UpdateHeadless(ctx); err != nil {
			return Look{}, false
		}
	}
	return measureLook(windows, cfg.Clock.FixedDT, float64(cfg.Screen.Width))
}

// measureLook averages stats windows into a Look. Step pixels assume the
// map spans the screen width.
func measureLook(windows []telemetry.FrameStats, dt, screenWidth float64) (Look, bool) {
	var rate, speed float64
	n := 0
	for _, w := range windows {
		if w.Cells == 0 {
			continue
		}
		rate += w.ReseedRate
		speed += w.SpeedMean
		n++
	}
	if n == 0 || rate == 0 {
		return Look{}, false
	}
	rate /= float64(n)
	speed /= float64(n)
	return Look{
		LifeFrames: 1 / rate,
		StepPixels: speed * dt * screenWidth,
	}, true
}

// copyConfig creates a copy of the base config with a fixed clock.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Layers = append([]config.LayerConfig(nil), fe.baseConfig.Layers...)
	cfg.Clock = fixedClock(fe.baseConfig)
	return &cfg
}

// fixedClock converts the base clock into a fixed one with the dt a
// wallclock run would see at the target frame rate.
func fixedClock(cfg *config.Config) config.ClockConfig {
	c := cfg.Clock
	if c.Policy == config.ClockWallclock {
		dt := c.TimeScale / float64(max(1, cfg.Screen.TargetFPS))
		if c.MaxFrameDT > 0 {
			dt = min(dt, c.MaxFrameDT)
		}
		c.FixedDT = dt
	}
	c.Policy = config.ClockFixed
	c.MaxElapsed = 0
	return c
}
