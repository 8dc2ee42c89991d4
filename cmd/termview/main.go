// Terminal wind viewer - renders tracer density of one layer with tcell.
//
// Usage: go run ./cmd/termview -layer 250hpa
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/windglobe/components"
	"github.com/pthm-cable/windglobe/config"
	"github.com/pthm-cable/windglobe/layers"
	"github.com/pthm-cable/windglobe/simulation"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	layerName := flag.String("layer", "", "Layer to show (empty = first configured)")
	fps := flag.Int("fps", 20, "Terminal refresh rate")
	decay := flag.Float64("decay", 0.6, "Density persistence per frame, 0..1")
	logPath := flag.String("log", "", "Write JSON logs to this file (default: discard)")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// The terminal owns stdout, so logs go to a file or nowhere
	logOut := os.DevNull
	if *logPath != "" {
		logOut = *logPath
	}
	lf, err := os.OpenFile(logOut, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log: %v\n", err)
		os.Exit(1)
	}
	defer lf.Close()
	slog.SetDefault(slog.New(slog.NewJSONHandler(lf, nil)))

	m, err := layers.NewManager(cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create layers: %v\n", err)
		os.Exit(1)
	}
	defer m.Close()

	name := *layerName
	if name == "" {
		name = m.Names()[0]
	}
	sim, ok := m.Simulation(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown layer %q\n", name)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	v := &viewer{
		screen: screen,
		layers: m,
		sim:    sim,
		name:   name,
		decay:  *decay,
		gain:   cfg.Wind.WindGain,
	}
	v.run(time.Second / time.Duration(max(1, *fps)))
}

type viewer struct {
	screen  tcell.Screen
	layers  *layers.Manager
	sim     *simulation.Simulation
	name    string
	density *Density
	grid    []components.TracerState
	decay   float64
	gain    float64
	paused  bool
}

func (v *viewer) run(frame time.Duration) {
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	ctx := context.Background()
	last := time.Now()
	for {
		select {
		case ev := <-events:
			if !v.handleEvent(ev) {
				return
			}

		case now := <-ticker.C:
			wall := now.Sub(last)
			last = now
			if err := v.layers.Update(ctx, wall); err != nil {
				return
			}
			v.draw()
		}
	}
}

func (v *viewer) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case ' ':
				v.paused = !v.paused
				v.layers.SetPaused(v.paused)
			case 'r':
				if err := v.layers.ResetAll(); err != nil {
					slog.Warn("reset failed", "error", err)
				}
			case '+', '=':
				v.setGain(v.gain + 1)
			case '-':
				v.setGain(v.gain - 1)
			}
		}
	case *tcell.EventResize:
		v.screen.Sync()
	}
	return true
}

func (v *viewer) setGain(gain float64) {
	gain = max(gain, 0)
	if err := v.layers.SetWindGain(gain); err != nil {
		slog.Warn("wind gain rejected", "gain", gain, "error", err)
		return
	}
	v.gain = gain
}

func (v *viewer) draw() {
	cols, rows := v.screen.Size()
	rows-- // status line
	if cols <= 0 || rows <= 0 {
		return
	}
	if v.density == nil {
		v.density = NewDensity(cols, rows*2)
	}
	v.density.Resize(cols, rows*2)

	w, h := v.sim.Size()
	if len(v.grid) != w*h {
		v.grid = nil
	}
	grid, err := v.sim.Snapshot(v.grid)
	if err != nil {
		slog.Warn("snapshot failed", "layer", v.name, "error", err)
		return
	}
	v.grid = grid

	v.density.Accumulate(v.grid, v.decay)
	v.density.Draw(v.screen)
	v.drawStatus(rows)
	v.screen.Show()
}

func (v *viewer) drawStatus(row int) {
	st, _ := v.layers.Status(v.name)
	simTime := time.Duration(st.SimTime * float64(time.Second)).Round(time.Minute)
	text := fmt.Sprintf(" %s  t=%s  gain=%.0fx  resets=%d  [space] pause [r] reset [+/-] gain [q] quit",
		v.name, simTime, v.gain, st.Resets)
	if v.paused {
		text += "  PAUSED"
	}
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	cols, _ := v.screen.Size()
	runes := []rune(text)
	for x := 0; x < cols; x++ {
		r := ' '
		if x < len(runes) {
			r = runes[x]
		}
		v.screen.SetContent(x, row, r, nil, style)
	}
}
