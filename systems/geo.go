// Package systems implements the per-tracer update: coordinate mapping, field
// sampling, midpoint integration and life accounting. Everything here is a pure
// function of its arguments so cells can be updated in parallel.
package systems

import (
	"math"

	"github.com/pthm-cable/windglobe/components"
)

// EarthRadius is the mean Earth radius in meters.
const EarthRadius = 6371000.0

// MetersPerDegreeLat is the length of one degree of latitude.
const MetersPerDegreeLat = math.Pi * EarthRadius / 180

// MinCosLat keeps the longitude scale away from zero near the poles.
const MinCosLat = 0.01

// Latitude returns the latitude in degrees for texture coordinate v
// (v=0 is +90°, v=1 is -90°).
func Latitude(v float64) float64 {
	return 90 - 180*v
}

// Longitude returns the longitude in degrees for texture coordinate u
// (u=0 is -180°).
func Longitude(u float64) float64 {
	return -180 + 360*u
}

// MetersPerDegreeLon returns the length of one degree of longitude at lat (degrees).
func MetersPerDegreeLon(lat float64) float64 {
	c := math.Cos(lat * math.Pi / 180)
	if c < MinCosLat {
		c = MinCosLat
	}
	return MetersPerDegreeLat * c
}

// Displacement converts a wind in m/s held for dt seconds at latitude lat into
// a UV offset. U spans 360° of longitude and V spans 180° of latitude.
func Displacement(w components.Wind, lat, dt float64) (du, dv float64) {
	du = w.U * dt / MetersPerDegreeLon(lat) / 360
	dv = w.V * dt / MetersPerDegreeLat / 180
	return du, dv
}

// WrapUV wraps U into [0,1) and clamps V into [0,1].
func WrapUV(p components.UV) components.UV {
	u := p.U - math.Floor(p.U)
	// Floor of a tiny negative number can land exactly on 1
	if u >= 1 {
		u = 0
	}
	v := p.V
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return components.UV{U: u, V: v}
}

// CellCenter returns the UV center of cell (x, y) in a w×h grid.
func CellCenter(x, y, w, h int) components.UV {
	return components.UV{
		U: (float64(x) + 0.5) / float64(w),
		V: (float64(y) + 0.5) / float64(h),
	}
}

// UVDistance returns the length of the shortest move from a to b, taking the
// longitude seam into account.
func UVDistance(a, b components.UV) float64 {
	du := b.U - a.U
	if du > 0.5 {
		du -= 1
	} else if du < -0.5 {
		du += 1
	}
	dv := b.V - a.V
	return math.Sqrt(du*du + dv*dv)
}
