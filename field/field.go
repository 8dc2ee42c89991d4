// Package field holds wind vector fields: normalized two-channel grids as
// produced by the preprocessing pipeline, plus loaders and synthetic sources.
package field

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrDimensionMismatch is returned when grids that must agree in size do not.
	ErrDimensionMismatch = errors.New("field: dimension mismatch")
	// ErrEmpty is returned for zero-sized fields or sequences without slices.
	ErrEmpty = errors.New("field: empty")
)

// Per-level channel ranges used by the preprocessing step. A channel value of
// 1 encodes +range m/s and 0 encodes -range m/s.
var levelRanges = map[int]float64{
	850: 60,
	500: 80,
	250: 120,
}

// DefaultRangeMPS is used for levels without a fixed range.
const DefaultRangeMPS = 80.0

// RangeForLevel returns the encoding range in m/s for a pressure level in hPa.
func RangeForLevel(level int) float64 {
	if r, ok := levelRanges[level]; ok {
		return r
	}
	return DefaultRangeMPS
}

// Field is one time slice of a wind field.
// Row 0 is the northernmost row and column 0 is 180°W. U holds the eastward
// channel and V the northward channel, both normalized to [0,1].
type Field struct {
	W, H  int
	U, V  []float32
	Range float64 // m/s represented by channel value 1 (and -Range by 0)
	Time  time.Time
}

// New allocates a calm field (every channel at 0.5).
func New(w, h int, rangeMPS float64) (*Field, error) {
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmpty, w, h)
	}
	if !(rangeMPS > 0) || math.IsInf(rangeMPS, 0) {
		return nil, fmt.Errorf("field: range must be positive and finite, got %v", rangeMPS)
	}
	f := &Field{
		W:     w,
		H:     h,
		U:     make([]float32, w*h),
		V:     make([]float32, w*h),
		Range: rangeMPS,
	}
	for i := range f.U {
		f.U[i] = 0.5
		f.V[i] = 0.5
	}
	return f, nil
}

// Validate checks that the channel slices match the declared size.
func (f *Field) Validate() error {
	if f == nil || f.W < 1 || f.H < 1 {
		return ErrEmpty
	}
	if len(f.U) != f.W*f.H || len(f.V) != f.W*f.H {
		return fmt.Errorf("%w: %dx%d field with %d/%d samples", ErrDimensionMismatch, f.W, f.H, len(f.U), len(f.V))
	}
	if !(f.Range > 0) || math.IsInf(f.Range, 0) {
		return fmt.Errorf("field: range must be positive and finite, got %v", f.Range)
	}
	return nil
}

// SameSize reports whether two fields share dimensions.
func (f *Field) SameSize(o *Field) bool {
	return f.W == o.W && f.H == o.H
}

// Index returns the linear slice index for texel (x, y).
func (f *Field) Index(x, y int) int { return y*f.W + x }

// Encode maps a signed speed in m/s to a normalized channel value, clamped to [0,1].
func (f *Field) Encode(mps float64) float32 {
	c := 0.5 + mps/(2*f.Range)
	if c < 0 {
		c = 0
	} else if c > 1 {
		c = 1
	}
	return float32(c)
}

// SetWind stores an eastward and northward wind in m/s at texel (x, y).
func (f *Field) SetWind(x, y int, east, north float64) {
	i := f.Index(x, y)
	f.U[i] = f.Encode(east)
	f.V[i] = f.Encode(north)
}

// Clone returns a deep copy.
func (f *Field) Clone() *Field {
	c := *f
	c.U = append([]float32(nil), f.U...)
	c.V = append([]float32(nil), f.V...)
	return &c
}
