package main

import (
	"math"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/windglobe/components"
)

func tracer(u, v, life float64) components.TracerState {
	return components.TracerState{Pos: components.UV{U: u, V: v}, LifeBudget: 1, LifeConsumed: life}
}

func TestDensityAccumulate(t *testing.T) {
	d := NewDensity(4, 2)
	d.Accumulate([]components.TracerState{
		tracer(0.1, 0.1, 0.5),
		tracer(0.1, 0.2, 0.5),
		tracer(0.9, 0.9, 0.5),
		tracer(0.9, 0.9, 1), // dead
		{Pos: components.UV{U: 0.5, V: 0.5}},
	}, 0)

	if got := d.Level(0, 0); math.Abs(got-1) > 1e-9 {
		t.Errorf("top-left level = %v, want 1", got)
	}
	if got := d.Level(3, 1); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("bottom-right level = %v, want 0.5", got)
	}
	if got := d.Level(2, 1); got != 0 {
		t.Errorf("born-dead tracer counted: %v", got)
	}
}

func TestDensityDecay(t *testing.T) {
	d := NewDensity(2, 1)
	d.Accumulate([]components.TracerState{tracer(0.1, 0.5, 0.5)}, 0)
	d.Accumulate([]components.TracerState{tracer(0.9, 0.5, 0.5)}, 0.5)

	if got := d.Level(0, 0); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("decayed level = %v, want 0.5", got)
	}
	if got := d.Level(1, 0); math.Abs(got-1) > 1e-9 {
		t.Errorf("fresh level = %v, want 1", got)
	}
}

func TestDensityEdgesClamp(t *testing.T) {
	d := NewDensity(3, 3)
	d.Accumulate([]components.TracerState{tracer(1, 1, 0.5), tracer(0, 0, 0.5)}, 0)
	if d.Level(2, 2) == 0 || d.Level(0, 0) == 0 {
		t.Error("tracers on the map edge should land in the edge cells")
	}
}

func TestDensityDraw(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	defer screen.Fini()
	screen.SetSize(4, 2)

	d := NewDensity(4, 3)
	d.Accumulate([]components.TracerState{tracer(0.1, 0.1, 0.5)}, 0)
	d.Draw(screen)

	r, _, style, _ := screen.GetContent(0, 0)
	if r != '▀' {
		t.Fatalf("rune = %q, want half block", r)
	}
	fg, bg, _ := style.Decompose()
	if fg != levelColor(1) {
		t.Errorf("foreground = %v, want peak color", fg)
	}
	if bg != levelColor(0) {
		t.Errorf("background = %v, want empty color", bg)
	}

	// The odd last raster row has no lower half
	_, _, style, _ = screen.GetContent(0, 1)
	if _, bg, _ := style.Decompose(); bg != tcell.ColorBlack {
		t.Errorf("last row background = %v, want black", bg)
	}
}
