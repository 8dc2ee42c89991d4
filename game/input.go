package game

import (
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// panStep is the keyboard pan in screen pixels per frame; Pan divides by zoom.
const panStep = float32(8)

// keyBinding runs action when key is pressed.
type keyBinding struct {
	key    int32
	action func(g *Game)
}

var keyBindings = []keyBinding{
	{rl.KeyF11, func(*Game) { rl.ToggleFullscreen() }},
	{rl.KeySpace, func(g *Game) { g.setPaused(!g.paused) }},
	{rl.KeyR, (*Game).resetLayers},
	{rl.KeyTab, func(g *Game) { g.showPanel = !g.showPanel }},
	{rl.KeyRightBracket, func(g *Game) { g.cycleFocus(1) }},
	{rl.KeyLeftBracket, func(g *Game) { g.cycleFocus(-1) }},
	{rl.KeyEqual, func(g *Game) { g.setWindGain(g.windGain + 1) }},
	{rl.KeyMinus, func(g *Game) { g.setWindGain(g.windGain - 1) }},
	{rl.KeyHome, func(g *Game) { g.camera.Reset() }},
}

// panKeys maps held arrow keys to a pan direction.
var panKeys = []struct {
	key    int32
	dx, dy float32
}{
	{rl.KeyRight, 1, 0},
	{rl.KeyLeft, -1, 0},
	{rl.KeyDown, 0, 1},
	{rl.KeyUp, 0, -1},
}

// handleInput processes keyboard and mouse input.
func (g *Game) handleInput() {
	g.handleResize()

	for _, b := range keyBindings {
		if rl.IsKeyPressed(b.key) {
			b.action(g)
		}
	}

	// 1-9 toggle layer visibility
	names := g.layers.Names()
	for i := 0; i < min(len(names), 9); i++ {
		if rl.IsKeyPressed(rl.KeyOne + int32(i)) {
			g.toggleLayer(names[i])
		}
	}

	g.handleCameraInput()
}

// handleResize keeps the camera viewport in step with the window.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth, g.screenHeight = w, h
	g.camera.Resize(w, h)
}

// handleCameraInput pans with the arrows or a right-button drag and zooms
// with the wheel.
func (g *Game) handleCameraInput() {
	var dx, dy float32
	for _, p := range panKeys {
		if rl.IsKeyDown(p.key) {
			dx += p.dx * panStep
			dy += p.dy * panStep
		}
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		dx -= d.X
		dy -= d.Y
	}
	if dx != 0 || dy != 0 {
		g.camera.Pan(dx, dy)
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		g.camera.ZoomBy(1 + wheel*0.1)
	}
}

// cycleFocus moves the background layer by delta, wrapping around.
func (g *Game) cycleFocus(delta int) {
	n := len(g.layers.Names())
	if n == 0 {
		return
	}
	g.focus = ((g.focus+delta)%n + n) % n
}

func (g *Game) toggleLayer(name string) {
	g.hidden[name] = !g.hidden[name]
	slog.Info("layer visibility", "layer", name, "visible", !g.hidden[name])
}

func (g *Game) setPaused(paused bool) {
	g.paused = paused
	g.layers.SetPaused(paused)
	slog.Info("pause", "paused", paused)
}

func (g *Game) setWindGain(gain float32) {
	gain = min(max(gain, minWindGain), maxWindGain)
	if gain == g.windGain {
		return
	}
	if err := g.layers.SetWindGain(float64(gain)); err != nil {
		slog.Warn("wind gain rejected", "gain", gain, "error", err)
		return
	}
	g.windGain = gain
}

func (g *Game) resetLayers() {
	if err := g.layers.ResetAll(); err != nil {
		slog.Warn("reset failed", "error", err)
		return
	}
	slog.Info("layers reset")
	g.logLayerStatus()
}
