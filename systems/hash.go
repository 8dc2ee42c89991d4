package systems

import (
	"math"

	"github.com/pthm-cable/windglobe/components"
)

// hash2D mixes two integers and a seed into [0,1).
func hash2D(ix, iy int, seed uint32) float64 {
	x := uint32(ix)
	y := uint32(iy)
	h := x*374761393 + y*668265263 + seed*1442695041
	h = (h ^ (h >> 13)) * 1274126177
	h ^= (h >> 16)
	return float64(h&0x00FFFFFF) / float64(0x01000000)
}

// budgetSalt folds a life budget into a hash salt.
func budgetSalt(budget float64) uint32 {
	bits := math.Float64bits(budget)
	return uint32(bits) ^ uint32(bits>>32)
}

// hashCell mixes a position, its cell and a salt into [0,1).
func hashCell(p components.UV, c Cell, salt uint32) float64 {
	bits := math.Float64bits(p.U) ^ math.Float64bits(p.V)*0x9E3779B97F4A7C15
	seed := uint32(bits) ^ uint32(bits>>32) ^ salt*2654435761
	return hash2D(c.X, c.Y, seed)
}
