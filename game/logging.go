package game

import (
	"log/slog"

	"github.com/pthm-cable/windglobe/telemetry"
)

// logPerfStats logs the perf window and appends it to perf.csv.
func (g *Game) logPerfStats() {
	stats := g.perf.Stats()
	slog.Info("perf", "frame", g.frames, "stats", stats)
	if err := g.out.WritePerf(stats, g.frames); err != nil {
		slog.Error("failed to write perf", "error", err)
	}
}

// logLayerStatus logs the counters of every layer.
func (g *Game) logLayerStatus() {
	for _, name := range g.layers.Names() {
		st, ok := g.layers.Status(name)
		if !ok {
			continue
		}
		attrs := []any{
			"layer", name,
			"frames", st.Frames,
			"skipped", st.Skipped,
			"resets", st.Resets,
			"sim_time", st.SimTime,
		}
		if st.LastError != "" {
			attrs = append(attrs, "last_error", st.LastError)
		}
		slog.Info("layer status", attrs...)
	}
}

// phaseShare returns the share of the frame spent in phase, for the HUD.
func phaseShare(stats telemetry.PerfStats, phase string) float64 {
	return stats.PhasePct[phase]
}
