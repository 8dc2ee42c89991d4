// Package layers runs one tracer simulation per pressure level. Each level is
// an entity in an ECS world carrying its identity, status counters and the
// runtime objects that drive it.
package layers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/windglobe/components"
	"github.com/pthm-cable/windglobe/config"
	"github.com/pthm-cable/windglobe/field"
	"github.com/pthm-cable/windglobe/simulation"
	"github.com/pthm-cable/windglobe/telemetry"
)

// Synthetic field kinds selectable with field.synthetic.
const (
	SyntheticTradeWinds = "trade_winds"
	SyntheticUniform    = "uniform"
)

// bookmarkHistory is the number of stats windows a layer's bookmarks compare against.
const bookmarkHistory = 10

// syntheticSlices is the number of slices in a generated trade-wind sequence.
const syntheticSlices = 24

// Runtime holds the objects that advance one layer.
type Runtime struct {
	Sim   *simulation.Simulation
	Seq   *field.Sequence
	Clock *simulation.Clock
	Stats *telemetry.Collector
	Marks *telemetry.BookmarkDetector
}

// Manager owns the ECS world of layers.
type Manager struct {
	world  *ecs.World
	mapper *ecs.Map3[components.Layer, components.LayerStatus, Runtime]
	filter *ecs.Filter3[components.Layer, components.LayerStatus, Runtime]

	names map[string]ecs.Entity
	order []string
	out   *telemetry.OutputManager

	perf    *telemetry.PerfCollector
	onStats func(telemetry.FrameStats)
}

// NewManager creates one layer per configured level. out may be nil.
func NewManager(cfg *config.Config, out *telemetry.OutputManager) (*Manager, error) {
	world := ecs.NewWorld()
	m := &Manager{
		world:  world,
		mapper: ecs.NewMap3[components.Layer, components.LayerStatus, Runtime](world),
		filter: ecs.NewFilter3[components.Layer, components.LayerStatus, Runtime](world),
		names:  make(map[string]ecs.Entity, len(cfg.Layers)),
		out:    out,
	}

	for _, lc := range cfg.Layers {
		if err := m.add(cfg, lc); err != nil {
			m.Close()
			return nil, fmt.Errorf("layer %s: %w", lc.Name, err)
		}
	}
	return m, nil
}

func (m *Manager) add(cfg *config.Config, lc config.LayerConfig) error {
	seq, err := LoadSequence(cfg, lc)
	if err != nil {
		return err
	}
	sim, err := simulation.New(cfg, seq.At(0))
	if err != nil {
		return err
	}
	clock, err := simulation.NewClock(cfg.Clock)
	if err != nil {
		sim.Close()
		return err
	}

	layer := components.Layer{Name: lc.Name, Level: lc.Level}
	status := components.LayerStatus{}
	rt := Runtime{
		Sim:   sim,
		Seq:   seq,
		Clock: clock,
		Stats: telemetry.NewCollector(lc.Name, cfg.Telemetry.StatsWindow),
		Marks: telemetry.NewBookmarkDetector(bookmarkHistory),
	}
	e := m.mapper.NewEntity(&layer, &status, &rt)
	m.names[lc.Name] = e
	m.order = append(m.order, lc.Name)

	w, h := sim.Size()
	fw, fh := seq.Size()
	slog.Info("layer ready",
		"layer", lc.Name,
		"level_hpa", lc.Level,
		"field", fmt.Sprintf("%dx%d", fw, fh),
		"grid", fmt.Sprintf("%dx%d", w, h),
		"slices", seq.Len(),
	)
	return nil
}

// SetPerf times the field, advect and telemetry phases of each update on p.
func (m *Manager) SetPerf(p *telemetry.PerfCollector) { m.perf = p }

// OnStats registers fn to receive every flushed stats window.
func (m *Manager) OnStats(fn func(telemetry.FrameStats)) { m.onStats = fn }

func (m *Manager) phase(name string) {
	if m.perf != nil {
		m.perf.StartPhase(name)
	}
}

// LoadSequence returns the wind sequence for a layer: the images in the
// layer's directory, or a synthetic field when none is configured.
func LoadSequence(cfg *config.Config, lc config.LayerConfig) (*field.Sequence, error) {
	rangeMPS := cfg.Field.RangeMPS
	if rangeMPS == 0 {
		rangeMPS = field.RangeForLevel(lc.Level)
	}

	dir := lc.Dir
	if dir == "" {
		dir = cfg.Field.Dir
	}
	if dir != "" {
		return field.LoadDir(dir, rangeMPS)
	}

	switch cfg.Field.Synthetic {
	case SyntheticUniform:
		f, err := field.Uniform(cfg.Field.Width, cfg.Field.Height, cfg.Field.UniformU, cfg.Field.UniformV, rangeMPS)
		if err != nil {
			return nil, err
		}
		return field.NewSequence([]*field.Field{f})
	case SyntheticTradeWinds, "":
		step := time.Duration(cfg.Field.SliceSecs * float64(time.Second))
		if step <= 0 {
			step = time.Hour
		}
		return field.TradeWindSequence(cfg.Field.Width, cfg.Field.Height, syntheticSlices, rangeMPS, step, time.Unix(0, 0).UTC())
	default:
		return nil, fmt.Errorf("unknown synthetic field %q", cfg.Field.Synthetic)
	}
}

// Update advances every layer by one host frame that took wall time.
// Per-layer failures are recorded on the layer; only context errors are returned.
func (m *Manager) Update(ctx context.Context, wall time.Duration) error {
	query := m.filter.Query()
	for query.Next() {
		layer, status, rt := query.Get()
		if err := m.updateLayer(ctx, layer, status, rt, wall); err != nil {
			query.Close()
			return err
		}
	}
	return nil
}

func (m *Manager) updateLayer(ctx context.Context, layer *components.Layer, status *components.LayerStatus, rt *Runtime, wall time.Duration) error {
	dt, ok := rt.Clock.Next(wall)
	if !ok {
		return nil
	}

	m.phase(telemetry.PhaseField)
	if err := rt.Sim.SetField(rt.Seq.At(rt.Clock.Elapsed())); err != nil {
		status.Skipped++
		status.LastError = err.Error()
		slog.Warn("field rejected", "layer", layer.Name, "error", err)
		return nil
	}

	frame := rt.Sim.Frame().Index
	if rt.Stats.WantsCapture(frame) {
		rt.Sim.Read(func(grid []components.TracerState, _, _ int) {
			rt.Stats.Capture(grid)
		})
	}

	m.phase(telemetry.PhaseAdvect)
	err := rt.Sim.Step(ctx, dt)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		status.Skipped++
		status.LastError = err.Error()
		if !errors.Is(err, simulation.ErrDiscarded) {
			slog.Warn("step failed", "layer", layer.Name, "dt", dt, "error", err)
		}
		return nil
	}

	if m.perf != nil {
		w, h := rt.Sim.Size()
		m.perf.AddCells(w * h)
	}

	m.phase(telemetry.PhaseTelemetry)
	rt.Clock.Advance(dt)
	status.Frames++
	status.SimTime = rt.Clock.Elapsed()
	rt.Stats.RecordFrame(rt.Sim.Reseeds())

	frame = rt.Sim.Frame().Index
	if rt.Stats.ShouldFlush(frame) {
		var stats telemetry.FrameStats
		epoch := rt.Sim.Epoch()
		rt.Sim.Read(func(grid []components.TracerState, _, _ int) {
			stats = rt.Stats.Flush(frame, epoch, status.SimTime, dt, grid)
		})
		stats.LogStats()
		for _, b := range rt.Marks.Check(stats) {
			b.LogBookmark()
			if err := m.out.WriteBookmark(b); err != nil {
				slog.Error("failed to write bookmark", "layer", layer.Name, "error", err)
			}
		}
		if m.onStats != nil {
			m.onStats(stats)
		}
		if err := m.out.WriteStats(stats); err != nil {
			slog.Error("failed to write stats", "layer", layer.Name, "error", err)
		}
	}
	return nil
}

// SetSequence swaps in a new field sequence for a layer. A sequence of a
// different resolution resets the layer.
func (m *Manager) SetSequence(name string, seq *field.Sequence) error {
	e, ok := m.names[name]
	if !ok {
		return fmt.Errorf("unknown layer %q", name)
	}
	_, status, rt := m.mapper.Get(e)

	epoch := rt.Sim.Epoch()
	if err := rt.Sim.SetField(seq.At(0)); err != nil {
		return fmt.Errorf("layer %s: %w", name, err)
	}
	rt.Seq = seq
	rt.Clock.Reset()
	if rt.Sim.Epoch() != epoch {
		status.Resets++
		rt.Stats.Reset(rt.Sim.Frame().Index)
		w, h := rt.Sim.Size()
		slog.Info("layer reset", "layer", name, "reason", "resolution change", "grid", fmt.Sprintf("%dx%d", w, h))
	}
	return nil
}

// Reset returns every tracer of a layer to its home cell.
func (m *Manager) Reset(name string) error {
	e, ok := m.names[name]
	if !ok {
		return fmt.Errorf("unknown layer %q", name)
	}
	_, status, rt := m.mapper.Get(e)
	if err := rt.Sim.Reset(); err != nil {
		return fmt.Errorf("layer %s: %w", name, err)
	}
	status.Resets++
	rt.Stats.Reset(rt.Sim.Frame().Index)
	return nil
}

// ResetAll resets every layer.
func (m *Manager) ResetAll() error {
	var errs []error
	for _, name := range m.order {
		if err := m.Reset(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetWindGain applies a wind multiplier to every layer.
func (m *Manager) SetWindGain(gain float64) error {
	var errs []error
	query := m.filter.Query()
	for query.Next() {
		_, _, rt := query.Get()
		if err := rt.Sim.SetWindGain(gain); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetPaused pauses or resumes every layer clock.
func (m *Manager) SetPaused(paused bool) {
	query := m.filter.Query()
	for query.Next() {
		_, _, rt := query.Get()
		rt.Clock.SetPaused(paused)
	}
}

// Names returns the layer names in configuration order.
func (m *Manager) Names() []string { return m.order }

// Simulation returns the simulation of a layer.
func (m *Manager) Simulation(name string) (*simulation.Simulation, bool) {
	e, ok := m.names[name]
	if !ok {
		return nil, false
	}
	_, _, rt := m.mapper.Get(e)
	return rt.Sim, true
}

// Status returns a copy of a layer's counters.
func (m *Manager) Status(name string) (components.LayerStatus, bool) {
	e, ok := m.names[name]
	if !ok {
		return components.LayerStatus{}, false
	}
	_, status, _ := m.mapper.Get(e)
	return *status, true
}

// Frozen reports whether every layer clock has stopped.
func (m *Manager) Frozen() bool {
	frozen := len(m.order) > 0
	query := m.filter.Query()
	for query.Next() {
		_, _, rt := query.Get()
		if !rt.Clock.Frozen() {
			frozen = false
		}
	}
	return frozen
}

// Close closes every simulation and removes the layer entities.
func (m *Manager) Close() {
	for _, name := range m.order {
		e := m.names[name]
		if !m.world.Alive(e) {
			continue
		}
		_, _, rt := m.mapper.Get(e)
		if rt.Sim != nil {
			rt.Sim.Close()
		}
		m.mapper.Remove(e)
	}
	m.names = map[string]ecs.Entity{}
	m.order = nil
}
