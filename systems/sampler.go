package systems

import (
	"math"

	"github.com/pthm-cable/windglobe/components"
	"github.com/pthm-cable/windglobe/field"
)

// Sampler returns the decoded wind at a UV position.
type Sampler interface {
	Sample(p components.UV) components.Wind
}

// FieldSampler samples a field bilinearly between texel centers.
// Longitude wraps, latitude clamps at the first and last rows.
type FieldSampler struct {
	F *field.Field
}

// Sample implements Sampler.
func (s FieldSampler) Sample(p components.UV) components.Wind {
	return SampleField(s.F, p)
}

// SampleField decodes the wind at p: channel c maps to (2c-1)*Range, and the
// V channel is negated so positive V points toward increasing texture v.
func SampleField(f *field.Field, p components.UV) components.Wind {
	fx := p.U*float64(f.W) - 0.5
	fy := p.V*float64(f.H) - 0.5

	x0f := math.Floor(fx)
	y0f := math.Floor(fy)
	tx := fx - x0f
	ty := fy - y0f

	x0 := modInt(int(x0f), f.W)
	x1 := x0 + 1
	if x1 >= f.W {
		x1 = 0
	}

	y0 := int(y0f)
	y1 := y0 + 1
	if y0 < 0 {
		y0, ty = 0, 0
	}
	if y1 > f.H-1 {
		y1 = f.H - 1
	}
	if y0 > f.H-1 {
		y0 = f.H - 1
	}

	i00 := y0*f.W + x0
	i10 := y0*f.W + x1
	i01 := y1*f.W + x0
	i11 := y1*f.W + x1

	cu := bilerp(f.U[i00], f.U[i10], f.U[i01], f.U[i11], tx, ty)
	cv := bilerp(f.V[i00], f.V[i10], f.V[i01], f.V[i11], tx, ty)

	return components.Wind{
		U: (2*cu - 1) * f.Range,
		V: -(2*cv - 1) * f.Range,
	}
}

func bilerp(c00, c10, c01, c11 float32, tx, ty float64) float64 {
	top := float64(c00) + (float64(c10)-float64(c00))*tx
	bottom := float64(c01) + (float64(c11)-float64(c01))*tx
	return top + (bottom-top)*ty
}

func modInt(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
