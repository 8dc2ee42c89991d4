// Package game hosts the wind layers: it drives them once per host frame,
// draws them in graphical mode and collects run telemetry.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/windglobe/camera"
	"github.com/pthm-cable/windglobe/config"
	"github.com/pthm-cable/windglobe/layers"
	"github.com/pthm-cable/windglobe/renderer"
	"github.com/pthm-cable/windglobe/telemetry"
)

// Gain slider bounds.
const (
	minWindGain = 0.0
	maxWindGain = 20.0
)

// Options configures a Game.
type Options struct {
	Config    *config.Config // nil = config.Cfg()
	Headless  bool
	OutputDir string // "" disables CSV output

	// HeadlessFrame is the wall time fed to the layer clocks per headless
	// update. 0 uses 1/target_fps.
	HeadlessFrame time.Duration

	// StatsCallback receives every flushed stats window.
	StatsCallback func(telemetry.FrameStats)
}

// Game owns the layer manager and, in graphical mode, the view.
type Game struct {
	cfg      *config.Config
	layers   *layers.Manager
	out      *telemetry.OutputManager
	perf     *telemetry.PerfCollector
	headless bool

	headlessFrame time.Duration
	frames        uint64
	perfWindow    uint64

	// View state
	camera     *camera.Camera
	flow       *renderer.FlowRenderer
	background *renderer.BackgroundRenderer

	screenWidth  float32
	screenHeight float32
	focus        int
	hidden       map[string]bool
	paused       bool
	windGain     float32
	showPanel    bool
}

// NewGameWithOptions creates the layers described by the config. In
// graphical mode the raylib window must already exist.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	out, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := out.WriteConfig(cfg); err != nil {
		out.Close()
		return nil, fmt.Errorf("writing config: %w", err)
	}

	mgr, err := layers.NewManager(cfg, out)
	if err != nil {
		out.Close()
		return nil, err
	}

	g := &Game{
		cfg:        cfg,
		layers:     mgr,
		out:        out,
		perf:       telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		headless:   opts.Headless,
		perfWindow: uint64(max(1, cfg.Telemetry.PerfCollectorWindow)),
		hidden:     make(map[string]bool),
		windGain:   float32(cfg.Wind.WindGain),
		showPanel:  true,
	}
	mgr.SetPerf(g.perf)
	if opts.StatsCallback != nil {
		mgr.OnStats(opts.StatsCallback)
	}

	g.headlessFrame = opts.HeadlessFrame
	if g.headlessFrame <= 0 {
		fps := max(1, cfg.Screen.TargetFPS)
		g.headlessFrame = time.Second / time.Duration(fps)
	}

	if !g.headless {
		g.initView()
	}
	return g, nil
}

func (g *Game) initView() {
	g.screenWidth = g.cfg.Derived.ScreenW32
	g.screenHeight = g.cfg.Derived.ScreenH32

	// Equirectangular map: twice as wide as tall
	g.camera = camera.New(g.screenWidth, g.screenHeight, g.screenWidth, g.screenWidth/2)
	g.flow = renderer.NewFlowRenderer(float32(g.cfg.Screen.PointSize))
	g.background = renderer.NewBackgroundRenderer()
}

// UpdateHeadless advances every layer by one frame of the fixed headless wall time.
func (g *Game) UpdateHeadless(ctx context.Context) error {
	g.perf.StartTick()
	err := g.advance(ctx, g.headlessFrame)
	g.perf.EndTick()
	g.afterFrame()
	return err
}

// Update handles input and advances every layer by the last frame's wall time.
// Draw closes the frame's perf sample.
func (g *Game) Update(ctx context.Context, frameTime float32) error {
	g.perf.StartTick()
	g.handleInput()
	return g.advance(ctx, time.Duration(float64(frameTime)*float64(time.Second)))
}

func (g *Game) advance(ctx context.Context, wall time.Duration) error {
	if err := g.layers.Update(ctx, wall); err != nil {
		return err
	}
	g.frames++
	return nil
}

// afterFrame logs perf once per perf window.
func (g *Game) afterFrame() {
	if g.frames > 0 && g.frames%g.perfWindow == 0 {
		g.logPerfStats()
	}
}

// Frozen reports whether every layer clock has reached its limit.
func (g *Game) Frozen() bool { return g.layers.Frozen() }

// Frames returns the number of host frames processed.
func (g *Game) Frames() uint64 { return g.frames }

// Layers returns the layer manager.
func (g *Game) Layers() *layers.Manager { return g.layers }

// Unload releases the layers, the renderers and the output files.
func (g *Game) Unload() {
	if g.flow != nil {
		g.flow.Unload()
	}
	if g.background != nil {
		g.background.Unload()
	}
	g.layers.Close()
	if err := g.out.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}
