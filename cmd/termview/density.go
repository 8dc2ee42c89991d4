package main

import (
	"math"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/windglobe/components"
)

// Density bins tracers into a cols x rows raster of the map.
type Density struct {
	Cols, Rows int
	Cells      []float64
	peak       float64
}

// NewDensity allocates a raster.
func NewDensity(cols, rows int) *Density {
	return &Density{Cols: cols, Rows: rows, Cells: make([]float64, cols*rows)}
}

// Resize reallocates the raster when the terminal size changes.
func (d *Density) Resize(cols, rows int) {
	if cols == d.Cols && rows == d.Rows {
		return
	}
	d.Cols, d.Rows = cols, rows
	d.Cells = make([]float64, cols*rows)
}

// Accumulate decays the raster and adds one frame of tracers. Each tracer
// counts with a weight that vanishes at birth and at death, so reseeds do
// not flash.
func (d *Density) Accumulate(grid []components.TracerState, decay float64) {
	if d.Cols == 0 || d.Rows == 0 {
		return
	}
	for i := range d.Cells {
		d.Cells[i] *= decay
	}
	for _, st := range grid {
		f := st.LifeFraction()
		if !(f > 0 && f < 1) {
			continue
		}
		x := int(st.Pos.U * float64(d.Cols))
		y := int(st.Pos.V * float64(d.Rows))
		x = min(max(x, 0), d.Cols-1)
		y = min(max(y, 0), d.Rows-1)
		d.Cells[y*d.Cols+x] += math.Sin(math.Pi * f)
	}

	d.peak = 0
	for _, c := range d.Cells {
		d.peak = max(d.peak, c)
	}
}

// Level returns the cell at (x, y) normalized to the current peak.
func (d *Density) Level(x, y int) float64 {
	if d.peak <= 0 {
		return 0
	}
	return d.Cells[y*d.Cols+x] / d.peak
}

// levelColor maps a normalized density to a night-sky ramp.
func levelColor(t float64) tcell.Color {
	t = math.Sqrt(min(max(t, 0), 1))
	return tcell.NewRGBColor(int32(8+200*t), int32(12+220*t), int32(30+225*t))
}

// Draw paints the raster with half blocks: each terminal cell shows two
// raster rows, the top one as foreground and the bottom one as background.
func (d *Density) Draw(screen tcell.Screen) {
	for row := 0; row*2 < d.Rows; row++ {
		for x := 0; x < d.Cols; x++ {
			top := levelColor(d.Level(x, row*2))
			bottom := tcell.ColorBlack
			if row*2+1 < d.Rows {
				bottom = levelColor(d.Level(x, row*2+1))
			}
			style := tcell.StyleDefault.Foreground(top).Background(bottom)
			screen.SetContent(x, row, '▀', nil, style)
		}
	}
}
