// Package components defines the plain data types shared by the simulation,
// the layer registry and the renderers.
package components

import "math"

// UV is a normalized position on the equirectangular map.
// U is longitude (0 = 180°W, wraps at 1), V is latitude (0 = north pole, 1 = south pole).
type UV struct {
	U, V float64
}

// Wind is a decoded wind vector in meters per second.
// U is eastward. V follows the texture convention: positive V points toward
// increasing texture v, i.e. southward.
type Wind struct {
	U, V float64
}

// Scale returns the wind multiplied by k.
func (w Wind) Scale(k float64) Wind {
	return Wind{U: w.U * k, V: w.V * k}
}

// TracerState is the per-cell simulation state.
type TracerState struct {
	Pos          UV
	LifeBudget   float64 // normalized path length allowed before reseed
	LifeConsumed float64 // normalized path length travelled since the last reseed
}

// LifeFraction returns LifeConsumed/LifeBudget, or 1 for a born-dead cell.
func (s TracerState) LifeFraction() float64 {
	if s.LifeBudget <= 0 {
		return 1
	}
	return s.LifeConsumed / s.LifeBudget
}

// Finite reports whether every field of the state is a finite number.
func (s TracerState) Finite() bool {
	for _, x := range [...]float64{s.Pos.U, s.Pos.V, s.LifeBudget, s.LifeConsumed} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
