// Package simulation owns the double-buffered tracer grid and runs the
// per-frame advection pass over it.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/pthm-cable/windglobe/components"
	"github.com/pthm-cable/windglobe/config"
	"github.com/pthm-cable/windglobe/field"
	"github.com/pthm-cable/windglobe/systems"
)

var (
	// ErrInvalidDT is returned by Step for dt <= 0, NaN or ±Inf.
	ErrInvalidDT = errors.New("simulation: dt must be a positive finite number")
	// ErrStepMismatch is returned when the field resolution is not a multiple of the step.
	ErrStepMismatch = errors.New("simulation: field resolution is not divisible by step")
	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("simulation: closed")
	// ErrDimensionMismatch is returned by Snapshot for a destination of the wrong length.
	ErrDimensionMismatch = errors.New("simulation: grid size mismatch")
	// ErrDiscarded is returned by Step when a reset landed while the pass was computing.
	ErrDiscarded = errors.New("simulation: pass discarded by reset")
)

// Frame describes one completed pass.
type Frame struct {
	DT    float64 // simulated seconds advanced
	Index uint64  // passes completed in this simulation
}

// Simulation holds two tracer grids. Each Step reads one and writes the
// other, then flips their roles. Readers always see the read grid of the
// last completed pass.
type Simulation struct {
	// stepMu serializes Step calls.
	stepMu sync.Mutex

	// mu guards everything below. A pass holds it shared while computing and
	// exclusively to swap; SetField, Reset and Close take it exclusively.
	mu     sync.RWMutex
	field  *field.Field
	params systems.Params
	step   int
	w, h   int
	grids  [2][]components.TracerState
	read   int
	frame  Frame
	epoch  uint64
	closed bool

	reseeds   uint64
	pool      *workerPool
	threshold int

	// Per-chunk reseed counts of the pass in flight
	chunkReseeds []int
}

// New creates a simulation over f with every cell in the born-dead state.
func New(cfg *config.Config, f *field.Field) (*Simulation, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("simulation: %w", err)
	}
	w, h, err := gridSize(f, cfg.Wind.Step)
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		field:     f,
		params:    systems.ParamsFromConfig(cfg),
		step:      cfg.Wind.Step,
		pool:      newWorkerPool(cfg.Parallel.Workers),
		threshold: cfg.Parallel.Threshold,
	}
	s.chunkReseeds = make([]int, s.pool.maxChunks())
	s.allocate(w, h)
	return s, nil
}

// gridSize derives the tracer grid from the field resolution.
func gridSize(f *field.Field, step int) (int, int, error) {
	if step < 1 {
		return 0, 0, fmt.Errorf("%w: step %d", ErrStepMismatch, step)
	}
	if f.W%step != 0 || f.H%step != 0 {
		return 0, 0, fmt.Errorf("%w: %dx%d with step %d", ErrStepMismatch, f.W, f.H, step)
	}
	return f.W / step, f.H / step, nil
}

// allocate (re)creates both grids in the born-dead state and starts a new epoch.
func (s *Simulation) allocate(w, h int) {
	n := w * h
	if s.w != w || s.h != h || len(s.grids[0]) != n {
		s.grids[0] = make([]components.TracerState, n)
		s.grids[1] = make([]components.TracerState, n)
	}
	s.w, s.h = w, h
	for i := range s.grids[0] {
		st := systems.BornDead(systems.Cell{X: i % w, Y: i / w, W: w, H: h})
		s.grids[0][i] = st
		s.grids[1][i] = st
	}
	s.read = 0
	s.epoch++
}

// Step advances every tracer by dt simulated seconds. The new state becomes
// visible only if the whole pass finishes. If ctx is cancelled the pass is
// dropped and ctx.Err() returned; a reset or close meanwhile drops it too.
func (s *Simulation) Step(ctx context.Context, dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidDT, dt)
	}

	s.stepMu.Lock()
	defer s.stepMu.Unlock()

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	epoch := s.epoch
	index := s.frame.Index + 1
	reseeds, err := s.pass(ctx, dt)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.epoch != epoch {
		return ErrDiscarded
	}
	s.read = 1 - s.read
	s.frame = Frame{DT: dt, Index: index}
	s.reseeds = uint64(reseeds)
	return nil
}

// pass computes the write grid from the read grid. Caller holds mu shared.
func (s *Simulation) pass(ctx context.Context, dt float64) (int, error) {
	src := s.grids[s.read]
	dst := s.grids[1-s.read]
	n := len(src)
	sampler := systems.FieldSampler{F: s.field}
	p := s.params
	w, h := s.w, s.h

	var cancelled atomic.Bool
	update := func(start, end, slot int) {
		if ctx.Err() != nil {
			cancelled.Store(true)
			return
		}
		count := 0
		for i := start; i < end; i++ {
			cur := src[i]
			cell := systems.Cell{X: i % w, Y: i / w, W: w, H: h}
			after := systems.Advance(cur.Pos, sampler, p.WindGain, dt)
			next, reseeded := systems.Age(cur, after, cell, p)
			if reseeded {
				count++
			}
			dst[i] = next
		}
		s.chunkReseeds[slot] = count
	}

	chunks := 1
	if n < s.threshold {
		update(0, n, 0)
	} else {
		chunks = s.pool.run(n, update)
	}

	if cancelled.Load() {
		return 0, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	total := 0
	for _, c := range s.chunkReseeds[:chunks] {
		total += c
	}
	return total, nil
}

// SetField replaces the wind field between passes. A field of the same size
// keeps the tracer state; any other size reallocates both grids.
func (s *Simulation) SetField(f *field.Field) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	w, h, err := gridSize(f, s.step)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	sameSize := f.SameSize(s.field)
	s.field = f
	if !sameSize {
		s.allocate(w, h)
	}
	return nil
}

// Reset returns every cell to the born-dead state and starts a new epoch.
func (s *Simulation) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.allocate(s.w, s.h)
	return nil
}

// SetWindGain changes the wind multiplier used from the next pass on.
func (s *Simulation) SetWindGain(gain float64) error {
	if math.IsNaN(gain) || math.IsInf(gain, 0) {
		return fmt.Errorf("simulation: wind gain must be finite, got %v", gain)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.params.WindGain = gain
	return nil
}

// WindGain returns the current wind multiplier.
func (s *Simulation) WindGain() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params.WindGain
}

// Read calls fn with the grid of the last completed pass. The grid must not
// be retained or modified after fn returns.
func (s *Simulation) Read(fn func(grid []components.TracerState, w, h int)) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	fn(s.grids[s.read], s.w, s.h)
	return nil
}

// Snapshot copies the grid of the last completed pass into dst, allocating
// when dst is nil. A non-nil dst must match the grid size.
func (s *Simulation) Snapshot(dst []components.TracerState) ([]components.TracerState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	src := s.grids[s.read]
	if dst == nil {
		dst = make([]components.TracerState, len(src))
	}
	if len(dst) != len(src) {
		return nil, fmt.Errorf("%w: dst has %d cells, grid has %d", ErrDimensionMismatch, len(dst), len(src))
	}
	copy(dst, src)
	return dst, nil
}

// Close drops both grids and stops the workers.
func (s *Simulation) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.grids = [2][]components.TracerState{}
	s.field = nil
	s.pool.stop()
	return nil
}

// Size returns the tracer grid dimensions.
func (s *Simulation) Size() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w, s.h
}

// Frame returns the last completed pass.
func (s *Simulation) Frame() Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}

// Epoch increments on every reset or resolution change.
func (s *Simulation) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Reseeds returns how many cells reseeded in the last completed pass.
func (s *Simulation) Reseeds() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reseeds
}

// Field returns the current wind field.
func (s *Simulation) Field() *field.Field {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.field
}
