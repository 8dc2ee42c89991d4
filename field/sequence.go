package field

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/blas/blas32"
)

// Sequence is a time-ordered list of slices that can be sampled at any
// simulated time. Between two slices the channels are blended linearly.
type Sequence struct {
	slices []*Field
	loop   bool

	// Blended output alternates between two buffers so the field handed out by
	// the previous At call stays untouched until the one after.
	blend    [2]*Field
	blendIdx int
}

// NewSequence builds a looping sequence. All slices must share dimensions and
// be sorted by Time; slices with a zero Time are spaced one hour apart.
func NewSequence(slices []*Field) (*Sequence, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("%w: sequence without slices", ErrEmpty)
	}
	for i, f := range slices {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("slice %d: %w", i, err)
		}
		if !f.SameSize(slices[0]) {
			return nil, fmt.Errorf("%w: slice %d is %dx%d, slice 0 is %dx%d",
				ErrDimensionMismatch, i, f.W, f.H, slices[0].W, slices[0].H)
		}
		if f.Time.IsZero() {
			f.Time = time.Unix(0, 0).UTC().Add(time.Duration(i) * time.Hour)
		}
	}
	if !sort.SliceIsSorted(slices, func(i, j int) bool { return slices[i].Time.Before(slices[j].Time) }) {
		return nil, fmt.Errorf("field: sequence slices are not in time order")
	}

	s := &Sequence{slices: slices, loop: true}
	for i := range s.blend {
		s.blend[i] = slices[0].Clone()
	}
	return s, nil
}

// SetLoop controls whether sampling past the last slice wraps to the first.
// A non-looping sequence holds the last slice.
func (s *Sequence) SetLoop(loop bool) { s.loop = loop }

// Len returns the number of slices.
func (s *Sequence) Len() int { return len(s.slices) }

// Slice returns slice i.
func (s *Sequence) Slice(i int) *Field { return s.slices[i] }

// Size returns the shared slice dimensions.
func (s *Sequence) Size() (int, int) { return s.slices[0].W, s.slices[0].H }

// Span returns the time between the first and last slice.
func (s *Sequence) Span() time.Duration {
	return s.slices[len(s.slices)-1].Time.Sub(s.slices[0].Time)
}

// At returns the field at elapsed simulated seconds after the first slice.
// The returned field must not be modified; it stays valid until the next-but-one call.
func (s *Sequence) At(elapsed float64) *Field {
	if len(s.slices) == 1 {
		return s.slices[0]
	}

	span := s.Span().Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= span {
		if !s.loop {
			return s.slices[len(s.slices)-1]
		}
		elapsed = elapsedMod(elapsed, span)
	}

	t := s.slices[0].Time.Add(time.Duration(elapsed * float64(time.Second)))
	// First slice strictly after t; the bracket is [hi-1, hi]
	hi := sort.Search(len(s.slices), func(i int) bool { return s.slices[i].Time.After(t) })
	if hi == 0 {
		return s.slices[0]
	}
	if hi >= len(s.slices) {
		return s.slices[len(s.slices)-1]
	}
	a, b := s.slices[hi-1], s.slices[hi]
	gap := b.Time.Sub(a.Time).Seconds()
	alpha := float32(t.Sub(a.Time).Seconds() / gap)
	if alpha <= 0 {
		return a
	}

	out := s.blend[s.blendIdx]
	s.blendIdx ^= 1
	blendInto(out.U, a.U, b.U, alpha)
	blendInto(out.V, a.V, b.V, alpha)
	out.Range = a.Range
	out.Time = t
	return out
}

// blendInto computes dst = (1-alpha)*from + alpha*to.
func blendInto(dst, from, to []float32, alpha float32) {
	n := len(dst)
	vDst := blas32.Vector{N: n, Inc: 1, Data: dst}
	vFrom := blas32.Vector{N: n, Inc: 1, Data: from}
	vTo := blas32.Vector{N: n, Inc: 1, Data: to}

	blas32.Copy(vFrom, vDst)
	blas32.Scal(1-alpha, vDst)
	blas32.Axpy(alpha, vTo, vDst)
}

func elapsedMod(x, m float64) float64 {
	if m <= 0 {
		return 0
	}
	r := x - m*float64(int64(x/m))
	if r < 0 {
		r += m
	}
	return r
}
