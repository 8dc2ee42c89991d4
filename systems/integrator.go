package systems

import "github.com/pthm-cable/windglobe/components"

// Advance moves p through the wind field for dt seconds with the midpoint
// (RK2) method. gain scales the sampled wind.
func Advance(p components.UV, s Sampler, gain, dt float64) components.UV {
	// k1 = wind at current position
	w1 := s.Sample(p).Scale(gain)
	du1, dv1 := Displacement(w1, Latitude(p.V), dt*0.5)

	// Midpoint
	mid := WrapUV(components.UV{U: p.U + du1, V: p.V + dv1})

	// k2 = wind at midpoint, applied over the full step from p
	w2 := s.Sample(mid).Scale(gain)
	du2, dv2 := Displacement(w2, Latitude(mid.V), dt)

	return WrapUV(components.UV{U: p.U + du2, V: p.V + dv2})
}

// AdvanceEuler takes a single first-order step. It is kept for comparison in
// tests and benchmarks; the simulation always uses Advance.
func AdvanceEuler(p components.UV, s Sampler, gain, dt float64) components.UV {
	w := s.Sample(p).Scale(gain)
	du, dv := Displacement(w, Latitude(p.V), dt)
	return WrapUV(components.UV{U: p.U + du, V: p.V + dv})
}
