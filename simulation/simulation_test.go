package simulation

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/pthm-cable/windglobe/components"
	"github.com/pthm-cable/windglobe/config"
	"github.com/pthm-cable/windglobe/field"
	"github.com/pthm-cable/windglobe/systems"
)

func testConfig(step, workers, threshold int) *config.Config {
	cfg := config.Defaults()
	cfg.Wind.Step = step
	cfg.Parallel.Workers = workers
	cfg.Parallel.Threshold = threshold
	return cfg
}

func tradeWinds(t testing.TB, w, h int) *field.Field {
	t.Helper()
	f, err := field.TradeWinds(w, h, 80, 0)
	if err != nil {
		t.Fatalf("TradeWinds: %v", err)
	}
	return f
}

func newSim(t testing.TB, cfg *config.Config, f *field.Field) *Simulation {
	t.Helper()
	s, err := New(cfg, f)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func snapshot(t testing.TB, s *Simulation) []components.TracerState {
	t.Helper()
	grid, err := s.Snapshot(nil)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return grid
}

func checkGrid(t *testing.T, grid []components.TracerState, p systems.Params) {
	t.Helper()
	for i, st := range grid {
		if !st.Finite() {
			t.Fatalf("cell %d not finite: %+v", i, st)
		}
		if st.Pos.U < 0 || st.Pos.U >= 1 || st.Pos.V < 0 || st.Pos.V > 1 {
			t.Fatalf("cell %d out of range: %+v", i, st.Pos)
		}
		if st.LifeBudget <= 0 || st.LifeBudget < p.LifeMin || st.LifeBudget >= p.LifeMax {
			t.Fatalf("cell %d budget %v outside [%v,%v)", i, st.LifeBudget, p.LifeMin, p.LifeMax)
		}
		if st.LifeConsumed < 0 || st.LifeConsumed > st.LifeBudget {
			t.Fatalf("cell %d consumed %v outside [0,%v]", i, st.LifeConsumed, st.LifeBudget)
		}
	}
}

func TestNewRejectsStepMismatch(t *testing.T) {
	f, _ := field.New(10, 6, 80)
	_, err := New(testConfig(4, 1, 0), f)
	if !errors.Is(err, ErrStepMismatch) {
		t.Fatalf("err = %v, want ErrStepMismatch", err)
	}
}

func TestNewStartsBornDead(t *testing.T) {
	s := newSim(t, testConfig(2, 1, 0), tradeWinds(t, 16, 8))
	w, h := s.Size()
	if w != 8 || h != 4 {
		t.Fatalf("size = %dx%d, want 8x4", w, h)
	}
	for i, st := range snapshot(t, s) {
		home := systems.CellCenter(i%w, i/w, w, h)
		if st.Pos != home || st.LifeBudget != 0 || st.LifeConsumed != 0 {
			t.Errorf("cell %d = %+v, want born-dead at %v", i, st, home)
		}
	}
}

func TestStepRejectsInvalidDT(t *testing.T) {
	s := newSim(t, testConfig(2, 1, 0), tradeWinds(t, 16, 8))
	if err := s.Step(context.Background(), 60); err != nil {
		t.Fatal(err)
	}
	before := snapshot(t, s)

	tests := []struct {
		name string
		dt   float64
	}{
		{"zero", 0},
		{"negative", -1},
		{"nan", math.NaN()},
		{"inf", math.Inf(1)},
		{"neg_inf", math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Step(context.Background(), tt.dt)
			if !errors.Is(err, ErrInvalidDT) {
				t.Fatalf("err = %v, want ErrInvalidDT", err)
			}
			if s.Frame().Index != 1 {
				t.Errorf("frame index = %d, want 1", s.Frame().Index)
			}
			after := snapshot(t, s)
			for i := range before {
				if before[i] != after[i] {
					t.Fatalf("cell %d changed on rejected dt", i)
				}
			}
		})
	}
}

func TestFirstPassReseedsEveryCell(t *testing.T) {
	cfg := testConfig(2, 2, 0)
	s := newSim(t, cfg, tradeWinds(t, 32, 16))
	if err := s.Step(context.Background(), 600); err != nil {
		t.Fatal(err)
	}
	w, h := s.Size()
	if got := s.Reseeds(); got != uint64(w*h) {
		t.Errorf("reseeds = %d, want %d", got, w*h)
	}
	p := systems.ParamsFromConfig(cfg)
	grid := snapshot(t, s)
	checkGrid(t, grid, p)
	for i, st := range grid {
		if st.Pos != systems.CellCenter(i%w, i/w, w, h) || st.LifeConsumed != 0 {
			t.Fatalf("cell %d not freshly seeded: %+v", i, st)
		}
	}
}

func TestInvariantsHoldOverManyFrames(t *testing.T) {
	cfg := testConfig(2, 4, 0)
	s := newSim(t, cfg, tradeWinds(t, 64, 32))
	p := systems.ParamsFromConfig(cfg)

	prev := snapshot(t, s)
	for frame := 0; frame < 200; frame++ {
		if err := s.Step(context.Background(), 3600); err != nil {
			t.Fatalf("frame %d: %v", frame, err)
		}
		grid := snapshot(t, s)
		checkGrid(t, grid, p)

		// Within a lifetime consumed only grows; otherwise the cell was reseeded
		if frame > 0 {
			for i := range grid {
				if grid[i].LifeBudget == prev[i].LifeBudget && grid[i].LifeConsumed < prev[i].LifeConsumed && grid[i].LifeConsumed != 0 {
					t.Fatalf("frame %d cell %d: consumed fell %v -> %v", frame, i, prev[i].LifeConsumed, grid[i].LifeConsumed)
				}
			}
		}
		prev = grid
	}
}

func TestDeterministicAcrossWorkerCounts(t *testing.T) {
	f := tradeWinds(t, 64, 32)
	configs := []*config.Config{
		testConfig(2, 1, 1<<30), // serial
		testConfig(2, 1, 0),
		testConfig(2, 3, 0),
		testConfig(2, 8, 0),
	}

	var want []components.TracerState
	for ci, cfg := range configs {
		s := newSim(t, cfg, f)
		for i := 0; i < 50; i++ {
			if err := s.Step(context.Background(), 1800); err != nil {
				t.Fatal(err)
			}
		}
		got := snapshot(t, s)
		if ci == 0 {
			want = got
			continue
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("config %d cell %d = %+v, want %+v", ci, i, got[i], want[i])
			}
		}
	}
}

func TestPassRepeatsFromSameReadGrid(t *testing.T) {
	s := newSim(t, testConfig(2, 2, 0), tradeWinds(t, 16, 8))

	if err := s.Step(context.Background(), 600); err != nil {
		t.Fatal(err)
	}
	first := snapshot(t, s)

	// Same born-dead read grid later in the run
	for i := 0; i < 7; i++ {
		if err := s.Step(context.Background(), 600); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	if err := s.Step(context.Background(), 600); err != nil {
		t.Fatal(err)
	}
	second := snapshot(t, s)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cell %d = %+v after reset, want %+v", i, second[i], first[i])
		}
	}
}

func TestPassRepeatsAcrossSimulations(t *testing.T) {
	f := tradeWinds(t, 32, 16)
	a := newSim(t, testConfig(2, 1, 0), f)
	for i := 0; i < 40; i++ {
		if err := a.Step(context.Background(), 1800); err != nil {
			t.Fatal(err)
		}
	}

	// b reaches a's read grid with a different frame count
	b := newSim(t, testConfig(2, 3, 0), f)
	for i := 0; i < 40; i++ {
		if err := b.Step(context.Background(), 1800); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.Reset(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 40; i++ {
		if err := b.Step(context.Background(), 1800); err != nil {
			t.Fatal(err)
		}
	}
	if a.Frame().Index == b.Frame().Index {
		t.Fatal("frame counters should differ")
	}

	want, got := snapshot(t, a), snapshot(t, b)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cell %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSetFieldSameSizeKeepsState(t *testing.T) {
	s := newSim(t, testConfig(2, 1, 0), tradeWinds(t, 16, 8))
	for i := 0; i < 3; i++ {
		if err := s.Step(context.Background(), 600); err != nil {
			t.Fatal(err)
		}
	}
	epoch := s.Epoch()
	before := snapshot(t, s)

	calm, _ := field.New(16, 8, 80)
	if err := s.SetField(calm); err != nil {
		t.Fatal(err)
	}
	if s.Epoch() != epoch {
		t.Errorf("epoch changed on same-size field")
	}
	after := snapshot(t, s)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("cell %d changed on same-size field", i)
		}
	}
}

func TestSetFieldResizeResets(t *testing.T) {
	s := newSim(t, testConfig(2, 1, 0), tradeWinds(t, 16, 8))
	if err := s.Step(context.Background(), 600); err != nil {
		t.Fatal(err)
	}
	epoch := s.Epoch()

	if err := s.SetField(tradeWinds(t, 32, 16)); err != nil {
		t.Fatal(err)
	}
	if s.Epoch() != epoch+1 {
		t.Errorf("epoch = %d, want %d", s.Epoch(), epoch+1)
	}
	w, h := s.Size()
	if w != 16 || h != 8 {
		t.Fatalf("size = %dx%d, want 16x8", w, h)
	}
	for i, st := range snapshot(t, s) {
		if st.LifeBudget != 0 {
			t.Fatalf("cell %d not born-dead after resize: %+v", i, st)
		}
	}
}

func TestSetFieldRejectsStepMismatch(t *testing.T) {
	s := newSim(t, testConfig(4, 1, 0), tradeWinds(t, 16, 8))
	bad, _ := field.New(18, 8, 80)
	if err := s.SetField(bad); !errors.Is(err, ErrStepMismatch) {
		t.Fatalf("err = %v, want ErrStepMismatch", err)
	}
	if w, h := s.Size(); w != 4 || h != 2 {
		t.Errorf("size changed to %dx%d", w, h)
	}
}

func TestResetReturnsToBornDead(t *testing.T) {
	s := newSim(t, testConfig(2, 1, 0), tradeWinds(t, 16, 8))
	for i := 0; i < 5; i++ {
		if err := s.Step(context.Background(), 600); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	for i, st := range snapshot(t, s) {
		if st.LifeBudget != 0 || st.LifeConsumed != 0 {
			t.Fatalf("cell %d = %+v after reset", i, st)
		}
	}
}

func TestCancelledStepIsDiscarded(t *testing.T) {
	s := newSim(t, testConfig(2, 2, 0), tradeWinds(t, 32, 16))
	before := snapshot(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Step(ctx, 600); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if s.Frame().Index != 0 {
		t.Errorf("frame index = %d, want 0", s.Frame().Index)
	}
	after := snapshot(t, s)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("cell %d changed by cancelled pass", i)
		}
	}
}

func TestCloseDropsGrids(t *testing.T) {
	s, err := New(testConfig(2, 2, 0), tradeWinds(t, 16, 8))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Step(context.Background(), 600); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if err := s.Step(context.Background(), 600); !errors.Is(err, ErrClosed) {
		t.Errorf("Step after Close: %v", err)
	}
	if err := s.Read(func([]components.TracerState, int, int) {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Read after Close: %v", err)
	}
	if _, err := s.Snapshot(nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Snapshot after Close: %v", err)
	}
	if err := s.Reset(); !errors.Is(err, ErrClosed) {
		t.Errorf("Reset after Close: %v", err)
	}
	if err := s.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close: %v", err)
	}
}

func TestSnapshotRejectsWrongLength(t *testing.T) {
	s := newSim(t, testConfig(2, 1, 0), tradeWinds(t, 16, 8))
	if _, err := s.Snapshot(make([]components.TracerState, 3)); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestSetWindGain(t *testing.T) {
	s := newSim(t, testConfig(2, 1, 0), tradeWinds(t, 16, 8))
	if err := s.SetWindGain(2.5); err != nil {
		t.Fatal(err)
	}
	if s.WindGain() != 2.5 {
		t.Errorf("gain = %v, want 2.5", s.WindGain())
	}
	if err := s.SetWindGain(math.NaN()); err == nil {
		t.Error("expected error for NaN gain")
	}
}

func TestReadersSeeCompleteGrids(t *testing.T) {
	cfg := testConfig(2, 4, 0)
	s := newSim(t, cfg, tradeWinds(t, 64, 32))
	if err := s.Step(context.Background(), 600); err != nil {
		t.Fatal(err)
	}
	p := systems.ParamsFromConfig(cfg)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 4)
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				s.Read(func(grid []components.TracerState, w, h int) {
					for _, st := range grid {
						if st.LifeBudget < p.LifeMin || st.LifeConsumed > st.LifeBudget {
							select {
							case errs <- "reader saw a partially written grid":
							default:
							}
							return
						}
					}
				})
			}
		}()
	}

	for i := 0; i < 50; i++ {
		if err := s.Step(context.Background(), 1800); err != nil {
			t.Fatal(err)
		}
	}
	close(stop)
	wg.Wait()

	select {
	case msg := <-errs:
		t.Fatal(msg)
	default:
	}
}

func TestClockWallclock(t *testing.T) {
	c, err := NewClock(config.ClockConfig{Policy: config.ClockWallclock, TimeScale: 3600, MaxFrameDT: 600})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		wall   time.Duration
		wantDT float64
		wantOK bool
	}{
		{"scaled", 100 * time.Millisecond, 360, true},
		{"clamped", time.Second, 600, true},
		{"empty", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dt, ok := c.Next(tt.wall)
			if ok != tt.wantOK || math.Abs(dt-tt.wantDT) > 1e-9 {
				t.Errorf("Next(%v) = %v,%v want %v,%v", tt.wall, dt, ok, tt.wantDT, tt.wantOK)
			}
		})
	}

	c.SetPaused(true)
	if _, ok := c.Next(time.Second); ok {
		t.Error("paused clock produced a frame")
	}
}

func TestClockFixedFreezes(t *testing.T) {
	c, err := NewClock(config.ClockConfig{Policy: config.ClockFixed, FixedDT: 60, MaxElapsed: 150})
	if err != nil {
		t.Fatal(err)
	}

	var dts []float64
	for i := 0; i < 10; i++ {
		dt, ok := c.Next(time.Hour)
		if !ok {
			break
		}
		c.Advance(dt)
		dts = append(dts, dt)
	}
	want := []float64{60, 60, 30}
	if len(dts) != len(want) {
		t.Fatalf("dts = %v, want %v", dts, want)
	}
	for i := range want {
		if math.Abs(dts[i]-want[i]) > 1e-9 {
			t.Errorf("dt[%d] = %v, want %v", i, dts[i], want[i])
		}
	}
	if !c.Frozen() {
		t.Error("clock not frozen at ceiling")
	}
	c.Reset()
	if c.Frozen() || c.Elapsed() != 0 {
		t.Error("reset did not rewind the clock")
	}
}

func TestNewClockRejects(t *testing.T) {
	tests := []config.ClockConfig{
		{Policy: "sundial"},
		{Policy: config.ClockWallclock, TimeScale: 0},
		{Policy: config.ClockFixed, FixedDT: -1},
	}
	for _, cc := range tests {
		if _, err := NewClock(cc); err == nil {
			t.Errorf("NewClock(%+v) succeeded", cc)
		}
	}
}

func BenchmarkStep(b *testing.B) {
	cfg := testConfig(4, 0, 0)
	s := newSim(b, cfg, tradeWinds(b, 1440, 720))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Step(ctx, 600); err != nil {
			b.Fatal(err)
		}
	}
}
