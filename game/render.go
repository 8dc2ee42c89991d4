package game

import (
	"fmt"
	"log/slog"
	"time"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/windglobe/components"
	"github.com/pthm-cable/windglobe/renderer"
	"github.com/pthm-cable/windglobe/telemetry"
)

const (
	panelX     = float32(10)
	panelY     = float32(10)
	panelWidth = float32(240)
)

// Draw renders the frame and closes the perf sample opened by Update.
func (g *Game) Draw() {
	g.perf.StartPhase(telemetry.PhaseRender)

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	names := g.layers.Names()
	if len(names) > 0 {
		if sim, ok := g.layers.Simulation(names[g.focus%len(names)]); ok {
			g.background.Draw(sim.Field(), g.camera)
		}
	}

	for i, name := range names {
		if g.hidden[name] {
			continue
		}
		sim, ok := g.layers.Simulation(name)
		if !ok {
			continue
		}
		tint := renderer.LayerColor(i)
		err := sim.Read(func(grid []components.TracerState, _, _ int) {
			g.flow.Draw(grid, g.camera, tint)
		})
		if err != nil {
			slog.Debug("layer not drawn", "layer", name, "error", err)
		}
	}

	g.drawHUD()
	if g.showPanel {
		g.drawPanel()
	}

	rl.EndDrawing()

	g.perf.EndTick()
	g.perf.RecordFrame()
	g.afterFrame()
}

// drawHUD draws frame rate, perf breakdown and per-layer counters.
func (g *Game) drawHUD() {
	x := int32(g.screenWidth) - 260
	y := int32(10)

	stats := g.perf.Stats()
	rl.DrawText(fmt.Sprintf("FPS %d  frame %d", rl.GetFPS(), g.frames), x, y, 16, rl.RayWhite)
	y += 20
	rl.DrawText(fmt.Sprintf("advect %.0f%%  render %.0f%%  %.1f Mcell/s",
		phaseShare(stats, telemetry.PhaseAdvect), phaseShare(stats, telemetry.PhaseRender), stats.CellsPerSecond/1e6), x, y, 14, rl.LightGray)
	y += 22

	for i, name := range g.layers.Names() {
		st, ok := g.layers.Status(name)
		if !ok {
			continue
		}
		color := renderer.LayerColor(i)
		if g.hidden[name] {
			color = rl.DarkGray
		}
		simTime := time.Duration(st.SimTime * float64(time.Second)).Round(time.Minute)
		rl.DrawText(fmt.Sprintf("%s  %s  resets %d", name, simTime, st.Resets), x, y, 14, color)
		y += 18
	}

	if g.paused {
		rl.DrawText("PAUSED", int32(g.screenWidth)/2-40, 10, 20, rl.Yellow)
	}
}

// drawPanel draws the raygui controls.
func (g *Game) drawPanel() {
	names := g.layers.Names()
	height := float32(150 + 26*len(names))
	rl.DrawRectangleRec(rl.Rectangle{X: panelX, Y: panelY, Width: panelWidth, Height: height}, rl.Fade(rl.Black, 0.6))

	x := panelX + 10
	y := panelY + 10
	rl.DrawText("Wind", int32(x), int32(y), 18, rl.RayWhite)
	y += 26

	rl.DrawText(fmt.Sprintf("Gain %.1fx", g.windGain), int32(x), int32(y), 14, rl.LightGray)
	y += 18
	gain := gui.SliderBar(
		rl.Rectangle{X: x, Y: y, Width: panelWidth - 60, Height: 18},
		"", fmt.Sprintf("%.0f", maxWindGain),
		g.windGain, minWindGain, maxWindGain,
	)
	if gain != g.windGain {
		g.setWindGain(gain)
	}
	y += 30

	if gui.Button(rl.Rectangle{X: x, Y: y, Width: 105, Height: 26}, toggleText(g.paused, "Resume", "Pause")) {
		g.setPaused(!g.paused)
	}
	if gui.Button(rl.Rectangle{X: x + 115, Y: y, Width: 105, Height: 26}, "Reset") {
		g.resetLayers()
	}
	y += 36

	rl.DrawText("Layers", int32(x), int32(y), 14, rl.LightGray)
	y += 20
	for i, name := range names {
		label := toggleText(g.hidden[name], "[ ] ", "[x] ") + name
		if i == g.focus%len(names) {
			label += " *"
		}
		if gui.Button(rl.Rectangle{X: x, Y: y, Width: panelWidth - 20, Height: 22}, label) {
			g.toggleLayer(name)
		}
		y += 26
	}
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
