package telemetry

import "github.com/pthm-cable/windglobe/components"

// Collector accumulates per-frame counts for one layer and produces
// FrameStats once per window.
type Collector struct {
	layer        string
	windowFrames uint64

	// Current window tracking
	windowStart uint64
	reseeds     uint64
	frames      uint64

	// Grid one frame before the flush, for speed estimates
	prev    []components.TracerState
	hasPrev bool
	scratch gridScratch
}

// NewCollector creates a collector that flushes every windowFrames frames.
func NewCollector(layer string, windowFrames int) *Collector {
	if windowFrames < 1 {
		windowFrames = 1
	}
	return &Collector{
		layer:        layer,
		windowFrames: uint64(windowFrames),
	}
}

// RecordFrame records one completed pass.
func (c *Collector) RecordFrame(reseeds uint64) {
	c.frames++
	c.reseeds += reseeds
}

// ShouldFlush returns true if the window ending at frame is complete.
func (c *Collector) ShouldFlush(frame uint64) bool {
	return frame-c.windowStart >= c.windowFrames
}

// WantsCapture reports whether the pass after frame will close the window.
// The caller then passes the current grid to Capture before stepping.
func (c *Collector) WantsCapture(frame uint64) bool {
	return frame+1-c.windowStart >= c.windowFrames
}

// Capture copies grid as the reference for the next flush.
func (c *Collector) Capture(grid []components.TracerState) {
	c.prev = append(c.prev[:0], grid...)
	c.hasPrev = true
}

// Flush produces FrameStats for the window ending at frame and resets
// counters for the next window. dt is the last frame's step in simulated seconds.
func (c *Collector) Flush(frame, epoch uint64, simTime, dt float64, grid []components.TracerState) FrameStats {
	s := FrameStats{
		Layer:       c.layer,
		WindowStart: c.windowStart,
		WindowEnd:   frame,
		Epoch:       epoch,
		SimTimeSec:  simTime,
		Reseeds:     c.reseeds,
	}

	var prev []components.TracerState
	if c.hasPrev {
		prev = c.prev
	}
	c.scratch.measureGrid(&s, grid, prev, dt)
	if c.frames > 0 && len(grid) > 0 {
		s.ReseedRate = float64(c.reseeds) / float64(c.frames) / float64(len(grid))
	}

	c.windowStart = frame
	c.reseeds = 0
	c.frames = 0
	c.hasPrev = false
	return s
}

// Reset restarts the window at frame, dropping counts and any captured grid.
func (c *Collector) Reset(frame uint64) {
	c.windowStart = frame
	c.reseeds = 0
	c.frames = 0
	c.hasPrev = false
}
