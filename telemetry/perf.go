package telemetry

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Phase names for one host frame.
const (
	PhaseField     = "field"
	PhaseAdvect    = "advect"
	PhaseTelemetry = "telemetry"
	PhaseRender    = "render"
)

var phaseNames = [...]string{PhaseField, PhaseAdvect, PhaseTelemetry, PhaseRender}

const noPhase = -1

func phaseIndex(name string) int {
	for i, p := range phaseNames {
		if p == name {
			return i
		}
	}
	return noPhase
}

// frameTiming is one host frame: its duration, the time spent in each phase
// and how many tracer cells were advanced.
type frameTiming struct {
	total  time.Duration
	phases [len(phaseNames)]time.Duration
	seen   [len(phaseNames)]bool
	cells  int
}

// PerfCollector times host frames over a rolling window.
type PerfCollector struct {
	ring   []frameTiming
	next   int
	filled int

	cur        frameTiming
	tickStart  time.Time
	phaseStart time.Time
	open       int

	// Graphics mode: gap between presented frames
	lastFrame time.Time
	frameGap  time.Duration
}

// NewPerfCollector creates a collector averaging over window frames
// (60 when window < 1).
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{
		ring: make([]frameTiming, window),
		open: noPhase,
	}
}

// StartTick begins timing a new frame.
func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.cur = frameTiming{}
	p.open = noPhase
}

// StartPhase closes the running phase and opens name. Names other than the
// Phase constants only close the running phase.
func (p *PerfCollector) StartPhase(name string) {
	now := time.Now()
	p.closePhase(now)
	p.open = phaseIndex(name)
	p.phaseStart = now
	if p.open != noPhase {
		p.cur.seen[p.open] = true
	}
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.open != noPhase {
		p.cur.phases[p.open] += now.Sub(p.phaseStart)
	}
}

// AddCells counts tracer cells advanced during the current frame.
func (p *PerfCollector) AddCells(n int) {
	p.cur.cells += n
}

// EndTick closes the frame and stores it in the window.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.open = noPhase
	p.cur.total = now.Sub(p.tickStart)

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	p.filled = min(p.filled+1, len(p.ring))
}

// RecordFrame marks a presented frame for FPS in graphics mode.
func (p *PerfCollector) RecordFrame() {
	now := time.Now()
	if !p.lastFrame.IsZero() {
		p.frameGap = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PerfStats summarizes the window.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	// Phases that ran at least once in the window
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	TicksPerSecond float64

	// Tracer cells advanced per second of advect time
	CellsPerSecond float64

	FrameDuration time.Duration
	FPS           float64
}

// Stats summarizes the frames currently in the window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		PhaseAvg:      make(map[string]time.Duration),
		PhasePct:      make(map[string]float64),
		FrameDuration: p.frameGap,
	}
	if p.frameGap > 0 {
		s.FPS = float64(time.Second) / float64(p.frameGap)
	}
	if p.filled == 0 {
		return s
	}

	window := p.ring[:p.filled]
	totals := make([]float64, len(window))
	var (
		phaseSum [len(phaseNames)]time.Duration
		seen     [len(phaseNames)]bool
		cells    int
	)
	for i, f := range window {
		totals[i] = float64(f.total)
		for j := range phaseNames {
			phaseSum[j] += f.phases[j]
			seen[j] = seen[j] || f.seen[j]
		}
		cells += f.cells
	}

	s.AvgTickDuration = time.Duration(stat.Mean(totals, nil))
	s.MinTickDuration = time.Duration(floats.Min(totals))
	s.MaxTickDuration = time.Duration(floats.Max(totals))
	if s.AvgTickDuration > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTickDuration)
	}

	n := time.Duration(len(window))
	for j, name := range phaseNames {
		if !seen[j] {
			continue
		}
		avg := phaseSum[j] / n
		s.PhaseAvg[name] = avg
		if s.AvgTickDuration > 0 {
			s.PhasePct[name] = float64(avg) / float64(s.AvgTickDuration) * 100
		}
	}

	if advect := phaseSum[phaseIndex(PhaseAdvect)]; advect > 0 {
		s.CellsPerSecond = float64(cells) / advect.Seconds()
	}
	return s
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
		slog.Float64("mcells_per_sec", s.CellsPerSecond/1e6),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Float64("fps", s.FPS))
	}
	for _, name := range phaseNames {
		if pct, ok := s.PhasePct[name]; ok {
			attrs = append(attrs, slog.Float64(name+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one row of perf.csv.
type PerfStatsCSV struct {
	WindowEnd    uint64  `csv:"window_end"`
	AvgTickUS    int64   `csv:"avg_tick_us"`
	MinTickUS    int64   `csv:"min_tick_us"`
	MaxTickUS    int64   `csv:"max_tick_us"`
	TicksPerSec  float64 `csv:"ticks_per_sec"`
	CellsPerSec  float64 `csv:"cells_per_sec"`
	FPS          float64 `csv:"fps"`
	FieldPct     float64 `csv:"field_pct"`
	AdvectPct    float64 `csv:"advect_pct"`
	TelemetryPct float64 `csv:"telemetry_pct"`
	RenderPct    float64 `csv:"render_pct"`
}

// ToCSV flattens the stats into a perf.csv row for the window ending at
// frame windowEnd.
func (s PerfStats) ToCSV(windowEnd uint64) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:    windowEnd,
		AvgTickUS:    s.AvgTickDuration.Microseconds(),
		MinTickUS:    s.MinTickDuration.Microseconds(),
		MaxTickUS:    s.MaxTickDuration.Microseconds(),
		TicksPerSec:  s.TicksPerSecond,
		CellsPerSec:  s.CellsPerSecond,
		FPS:          s.FPS,
		FieldPct:     s.PhasePct[PhaseField],
		AdvectPct:    s.PhasePct[PhaseAdvect],
		TelemetryPct: s.PhasePct[PhaseTelemetry],
		RenderPct:    s.PhasePct[PhaseRender],
	}
}
