package components

// Layer identifies one simulated pressure level.
type Layer struct {
	Name  string
	Level int // hPa
}

// LayerStatus carries per-layer counters updated by the layer system.
type LayerStatus struct {
	Frames    uint64  // passes applied
	Skipped   uint64  // frames rejected before a pass started
	Resets    uint64  // full resets caused by resolution changes
	SimTime   float64 // simulated seconds advanced so far
	LastError string
}
