package systems

import (
	"math"

	"github.com/pthm-cable/windglobe/components"
	"github.com/pthm-cable/windglobe/config"
)

// lifeTolerance absorbs rounding in the running life sum so a tracer credited
// exactly its budget reseeds on that frame.
const lifeTolerance = 1e-9

// Params holds the per-pass constants of the tracer update.
type Params struct {
	WindGain float64
	LTarget  float64
	DistMin  float64
	LifeMin  float64
	LifeMax  float64
}

// ParamsFromConfig extracts tracer parameters from a loaded config.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		WindGain: cfg.Wind.WindGain,
		LTarget:  cfg.Wind.LTarget,
		DistMin:  cfg.Wind.DistMin,
		LifeMin:  cfg.Life.Min,
		LifeMax:  cfg.Life.Max,
	}
}

// Cell locates a tracer in the simulation grid.
type Cell struct {
	X, Y int
	W, H int
}

// Home returns the position a tracer restarts from.
func (c Cell) Home() components.UV {
	return CellCenter(c.X, c.Y, c.W, c.H)
}

// BornDead returns the bootstrap state of a cell: at home with no budget, so
// the first update reseeds it through the ordinary path.
func BornDead(c Cell) components.TracerState {
	return components.TracerState{Pos: c.Home()}
}

// Credit returns the life consumed by moving from before to after.
func Credit(before, after components.UV, p Params) float64 {
	d := UVDistance(before, after)
	if d < p.DistMin {
		d = p.DistMin
	}
	return d / p.LTarget
}

// Age charges the move from state.Pos to after against the tracer's life.
// It returns either the advanced state or, when the budget is used up, a
// freshly seeded one; never a mix of the two.
// The result depends only on its arguments.
func Age(state components.TracerState, after components.UV, c Cell, p Params) (components.TracerState, bool) {
	consumed := state.LifeConsumed + Credit(state.Pos, after, p)
	if consumed >= state.LifeBudget-lifeTolerance {
		return Reseed(c, state.LifeBudget, p), true
	}
	return components.TracerState{
		Pos:          after,
		LifeBudget:   state.LifeBudget,
		LifeConsumed: consumed,
	}, false
}

// Reseed returns the state of a tracer restarting at its home cell. The new
// budget is a hash of the home position and the cell, salted with the budget
// being retired so successive lives of a cell differ.
func Reseed(c Cell, retired float64, p Params) components.TracerState {
	home := c.Home()
	r := hashCell(home, c, budgetSalt(retired))
	return components.TracerState{
		Pos:          home,
		LifeBudget:   p.LifeMin + (p.LifeMax-p.LifeMin)*r,
		LifeConsumed: 0,
	}
}

// MaxFramesToReseed bounds how many frames a tracer with the given budget can
// live in a calm field.
func MaxFramesToReseed(budget float64, p Params) int {
	return int(math.Ceil(budget * p.LTarget / p.DistMin))
}
