package layers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pthm-cable/windglobe/config"
	"github.com/pthm-cable/windglobe/field"
	"github.com/pthm-cable/windglobe/telemetry"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Wind.Step = 2
	cfg.Field.Width = 32
	cfg.Field.Height = 16
	cfg.Clock.Policy = config.ClockFixed
	cfg.Clock.FixedDT = 600
	cfg.Clock.MaxElapsed = 0
	cfg.Parallel.Workers = 2
	cfg.Parallel.Threshold = 0
	cfg.Telemetry.StatsWindow = 5
	cfg.Layers = []config.LayerConfig{
		{Name: "850hpa", Level: 850},
		{Name: "250hpa", Level: 250},
	}
	return cfg
}

func newTestManager(t *testing.T, cfg *config.Config) *Manager {
	t.Helper()
	m, err := NewManager(cfg, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func TestLoadSequenceSynthetic(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name      string
		synthetic string
		wantLen   int
		wantErr   bool
	}{
		{"trade winds", SyntheticTradeWinds, syntheticSlices, false},
		{"default", "", syntheticSlices, false},
		{"uniform", SyntheticUniform, 1, false},
		{"unknown", "monsoon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg.Field.Synthetic = tt.synthetic
			seq, err := LoadSequence(cfg, cfg.Layers[0])
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if seq.Len() != tt.wantLen {
				t.Errorf("len = %d, want %d", seq.Len(), tt.wantLen)
			}
			if w, h := seq.Size(); w != 32 || h != 16 {
				t.Errorf("size = %dx%d, want 32x16", w, h)
			}
			if got, want := seq.Slice(0).Range, field.RangeForLevel(850); got != want {
				t.Errorf("range = %v, want %v", got, want)
			}
		})
	}
}

func TestManagerCreatesLayers(t *testing.T) {
	m := newTestManager(t, testConfig())

	names := m.Names()
	if len(names) != 2 || names[0] != "850hpa" || names[1] != "250hpa" {
		t.Fatalf("names = %v", names)
	}
	for _, name := range names {
		sim, ok := m.Simulation(name)
		if !ok {
			t.Fatalf("layer %s missing", name)
		}
		if w, h := sim.Size(); w != 16 || h != 8 {
			t.Errorf("%s grid = %dx%d, want 16x8", name, w, h)
		}
	}
	if _, ok := m.Simulation("100hpa"); ok {
		t.Error("unexpected layer 100hpa")
	}
}

func TestManagerUpdateAdvancesEveryLayer(t *testing.T) {
	m := newTestManager(t, testConfig())
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		if err := m.Update(ctx, 16*time.Millisecond); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range m.Names() {
		status, _ := m.Status(name)
		if status.Frames != 12 {
			t.Errorf("%s frames = %d, want 12", name, status.Frames)
		}
		if status.SimTime != 12*600 {
			t.Errorf("%s sim time = %v, want %v", name, status.SimTime, 12*600)
		}
		if status.Skipped != 0 || status.LastError != "" {
			t.Errorf("%s unexpected failures: %+v", name, status)
		}
		sim, _ := m.Simulation(name)
		if sim.Frame().Index != 12 {
			t.Errorf("%s frame index = %d, want 12", name, sim.Frame().Index)
		}
	}
}

func TestManagerPauseAndFreeze(t *testing.T) {
	cfg := testConfig()
	cfg.Clock.MaxElapsed = 1800
	m := newTestManager(t, cfg)
	ctx := context.Background()

	m.SetPaused(true)
	if err := m.Update(ctx, time.Second); err != nil {
		t.Fatal(err)
	}
	if status, _ := m.Status("850hpa"); status.Frames != 0 {
		t.Fatalf("paused layer advanced %d frames", status.Frames)
	}

	m.SetPaused(false)
	for i := 0; i < 10; i++ {
		if err := m.Update(ctx, time.Second); err != nil {
			t.Fatal(err)
		}
	}
	if status, _ := m.Status("850hpa"); status.Frames != 3 {
		t.Errorf("frames = %d, want 3 before freezing", status.Frames)
	}
	if !m.Frozen() {
		t.Error("expected every layer frozen")
	}
}

func TestManagerResolutionChangeResets(t *testing.T) {
	cfg := testConfig()
	m := newTestManager(t, cfg)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := m.Update(ctx, time.Second); err != nil {
			t.Fatal(err)
		}
	}

	sim, _ := m.Simulation("850hpa")
	epoch := sim.Epoch()

	seq, err := field.TradeWindSequence(64, 32, 4, 60, time.Hour, time.Unix(0, 0).UTC())
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SetSequence("850hpa", seq); err != nil {
		t.Fatal(err)
	}
	if sim.Epoch() == epoch {
		t.Error("epoch unchanged after resolution change")
	}
	if w, h := sim.Size(); w != 32 || h != 16 {
		t.Errorf("grid = %dx%d, want 32x16", w, h)
	}
	if status, _ := m.Status("850hpa"); status.Resets != 1 {
		t.Errorf("resets = %d, want 1", status.Resets)
	}

	// The other layer is untouched
	other, _ := m.Simulation("250hpa")
	if w, _ := other.Size(); w != 16 {
		t.Errorf("250hpa grid width = %d, want 16", w)
	}
}

func TestManagerSetSequenceRejectsStepMismatch(t *testing.T) {
	m := newTestManager(t, testConfig())
	f, _ := field.New(33, 16, 60)
	seq, err := field.NewSequence([]*field.Field{f})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.SetSequence("850hpa", seq); err == nil {
		t.Fatal("expected step mismatch")
	}
	if err := m.SetSequence("nope", seq); err == nil {
		t.Fatal("expected unknown layer error")
	}
}

func TestManagerWindGainAndReset(t *testing.T) {
	m := newTestManager(t, testConfig())
	if err := m.SetWindGain(2); err != nil {
		t.Fatal(err)
	}
	for _, name := range m.Names() {
		sim, _ := m.Simulation(name)
		if sim.WindGain() != 2 {
			t.Errorf("%s gain = %v, want 2", name, sim.WindGain())
		}
	}
	if err := m.ResetAll(); err != nil {
		t.Fatal(err)
	}
	if status, _ := m.Status("250hpa"); status.Resets != 1 {
		t.Errorf("resets = %d, want 1", status.Resets)
	}
}

func TestManagerCancelledUpdate(t *testing.T) {
	m := newTestManager(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Update(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNewManagerFailsOnBadLayer(t *testing.T) {
	cfg := testConfig()
	cfg.Field.Width = 31
	if _, err := NewManager(cfg, nil); err == nil {
		t.Fatal("expected error for a field not divisible by step")
	}
}

func TestManagerStatsHookAndPerf(t *testing.T) {
	m := newTestManager(t, testConfig())

	var windows []telemetry.FrameStats
	m.OnStats(func(s telemetry.FrameStats) { windows = append(windows, s) })
	perf := telemetry.NewPerfCollector(16)
	m.SetPerf(perf)

	for i := 0; i < 12; i++ {
		perf.StartTick()
		if err := m.Update(context.Background(), 16*time.Millisecond); err != nil {
			t.Fatal(err)
		}
		perf.EndTick()
	}

	// Two full windows of 5 frames per layer
	if len(windows) != 4 {
		t.Fatalf("got %d stats windows, want 4", len(windows))
	}
	for _, w := range windows {
		if w.Cells != 16*8 {
			t.Errorf("%s: cells = %d, want %d", w.Layer, w.Cells, 16*8)
		}
		if w.WindowEnd-w.WindowStart != 5 {
			t.Errorf("%s: window [%d, %d) is not 5 frames", w.Layer, w.WindowStart, w.WindowEnd)
		}
	}

	stats := perf.Stats()
	for _, phase := range []string{telemetry.PhaseField, telemetry.PhaseAdvect, telemetry.PhaseTelemetry} {
		if _, ok := stats.PhaseAvg[phase]; !ok {
			t.Errorf("phase %q not recorded", phase)
		}
	}
	if stats.CellsPerSecond <= 0 {
		t.Errorf("cells per second = %v, want > 0", stats.CellsPerSecond)
	}
}
