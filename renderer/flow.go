// Package renderer draws the wind layers with raylib.
package renderer

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/windglobe/camera"
	"github.com/pthm-cable/windglobe/components"
)

// layerColors tints each layer; layers beyond the palette reuse it.
var layerColors = []rl.Color{
	{R: 120, G: 200, B: 255, A: 255}, // low level
	{R: 255, G: 255, B: 255, A: 255},
	{R: 255, G: 190, B: 110, A: 255}, // jet level
}

// LayerColor returns the base tint of layer i.
func LayerColor(i int) rl.Color {
	if i < 0 {
		i = 0
	}
	return layerColors[i%len(layerColors)]
}

// FlowRenderer renders wind tracers as points with additive blending.
type FlowRenderer struct {
	pointSize float32
}

// NewFlowRenderer creates a new tracer renderer.
func NewFlowRenderer(pointSize float32) *FlowRenderer {
	if pointSize <= 0 {
		pointSize = 1
	}
	return &FlowRenderer{pointSize: pointSize}
}

// LifeAlpha returns the opacity of a tracer at the given life fraction.
// Tracers fade in over the first 20% of life and out over the last 30%.
func LifeAlpha(lifeRatio float64) float32 {
	if lifeRatio < 0 || lifeRatio > 1 || math.IsNaN(lifeRatio) {
		return 0
	}
	// Quadratic fade in
	fadeIn := math.Min(lifeRatio*5, 1)
	fadeIn *= fadeIn

	fadeOut := math.Min((1-lifeRatio)/0.3, 1)
	return float32(fadeIn * fadeOut)
}

// Draw renders one layer's grid through the camera.
func (r *FlowRenderer) Draw(grid []components.TracerState, cam *camera.Camera, tint rl.Color) {
	rl.BeginBlendMode(rl.BlendAdditive)

	size := r.pointSize * max(1, cam.Zoom*0.5)
	half := size / 2
	for i := range grid {
		st := &grid[i]

		alpha := LifeAlpha(st.LifeFraction()) * 200
		if alpha < 2 {
			continue
		}

		wx := float32(st.Pos.U) * cam.MapW
		wy := float32(st.Pos.V) * cam.MapH
		if !cam.IsVisible(wx, wy, size) {
			continue
		}

		color := tint
		color.A = uint8(alpha)

		sx, sy := cam.WorldToScreen(wx, wy)
		rl.DrawRectangleV(rl.Vector2{X: sx - half, Y: sy - half}, rl.Vector2{X: size, Y: size}, color)

		// Second copy across the seam
		if gx, ok := cam.GhostX(wx, size); ok {
			rl.DrawRectangleV(rl.Vector2{X: gx - half, Y: sy - half}, rl.Vector2{X: size, Y: size}, color)
		}
	}

	rl.EndBlendMode()
}

// Unload frees resources.
func (r *FlowRenderer) Unload() {
	// Nothing to unload in direct rendering mode
}
