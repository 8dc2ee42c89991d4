package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/windglobe/components"
	"github.com/pthm-cable/windglobe/systems"
)

// polarLatitude is the latitude beyond which a tracer counts as polar.
const polarLatitude = 60.0

// FrameStats holds aggregated statistics for one layer over a window of frames.
type FrameStats struct {
	Layer       string  `csv:"layer"`
	WindowStart uint64  `csv:"-"`
	WindowEnd   uint64  `csv:"window_end"`
	Epoch       uint64  `csv:"epoch"`
	SimTimeSec  float64 `csv:"sim_time"`
	Cells       int     `csv:"cells"`

	// Reseeds during the window
	Reseeds    uint64  `csv:"reseeds"`
	ReseedRate float64 `csv:"reseed_rate"` // reseeds per cell per frame

	// Life fraction (consumed/budget) sampled at window end
	LifeMean float64 `csv:"life_mean"`
	LifeP10  float64 `csv:"life_p10"`
	LifeP50  float64 `csv:"life_p50"`
	LifeP90  float64 `csv:"life_p90"`

	// Tracer speed over the last frame, UV units per simulated second
	SpeedMean float64 `csv:"speed_mean"`
	SpeedMax  float64 `csv:"speed_max"`

	// Share of tracers poleward of 60°
	PolarFrac float64 `csv:"polar_frac"`
}

// Quantiles returns the mean and the 10th, 50th and 90th percentiles of values.
// Returns zeros for an empty slice.
func Quantiles(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, p10, p50, p90
}

// gridScratch holds per-layer buffers reused across flushes.
type gridScratch struct {
	life   []float64
	speeds []float64
}

// measureGrid fills the life and speed statistics of s from the current grid.
// prev is the grid one frame earlier (may be nil); tracers that reseeded in
// between are left out of the speed figures.
func (g *gridScratch) measureGrid(s *FrameStats, grid, prev []components.TracerState, dt float64) {
	g.life = g.life[:0]
	g.speeds = g.speeds[:0]
	polar := 0
	for i, st := range grid {
		g.life = append(g.life, st.LifeFraction())
		lat := systems.Latitude(st.Pos.V)
		if lat > polarLatitude || lat < -polarLatitude {
			polar++
		}
		if prev == nil || len(prev) != len(grid) || dt <= 0 {
			continue
		}
		p := prev[i]
		if p.LifeBudget != st.LifeBudget || st.LifeConsumed < p.LifeConsumed {
			continue
		}
		g.speeds = append(g.speeds, systems.UVDistance(p.Pos, st.Pos)/dt)
	}

	s.Cells = len(grid)
	s.LifeMean, s.LifeP10, s.LifeP50, s.LifeP90 = Quantiles(g.life)
	if len(grid) > 0 {
		s.PolarFrac = float64(polar) / float64(len(grid))
	}
	if len(g.speeds) > 0 {
		s.SpeedMean = floats.Sum(g.speeds) / float64(len(g.speeds))
		s.SpeedMax = floats.Max(g.speeds)
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s FrameStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("layer", s.Layer),
		slog.Uint64("window_start", s.WindowStart),
		slog.Uint64("window_end", s.WindowEnd),
		slog.Uint64("epoch", s.Epoch),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("cells", s.Cells),
		slog.Uint64("reseeds", s.Reseeds),
		slog.Float64("reseed_rate", s.ReseedRate),
		slog.Float64("life_mean", s.LifeMean),
		slog.Float64("life_p10", s.LifeP10),
		slog.Float64("life_p50", s.LifeP50),
		slog.Float64("life_p90", s.LifeP90),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_max", s.SpeedMax),
		slog.Float64("polar_frac", s.PolarFrac),
	)
}

// LogStats logs the headline figures using slog.
func (s FrameStats) LogStats() {
	slog.Info("stats",
		"layer", s.Layer,
		"window_end", s.WindowEnd,
		"sim_time", s.SimTimeSec,
		"reseed_rate", s.ReseedRate,
		"life_p50", s.LifeP50,
		"speed_mean", s.SpeedMean,
	)
}
