// Synthetic wind field preview - interactive speed map with sliders.
//
// Usage: go run ./cmd/fieldpreview
package main

import (
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"os"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/windglobe/field"
	"github.com/pthm-cable/windglobe/renderer"
	"github.com/pthm-cable/windglobe/systems"
)

const (
	windowWidth  = 1100
	windowHeight = 560
	previewW     = 720
	previewH     = 360
	panelX       = float32(previewW + 30)
	panelWidth   = windowWidth - previewW - 50
)

// previewParams holds the synthetic field settings.
type previewParams struct {
	Phase    float32 // meander phase, radians
	RangeMPS float32
	Width    int32
	Arrows   bool
}

func main() {
	if err := run(); err != nil {
		slog.Error("field preview failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	rl.InitWindow(windowWidth, windowHeight, "Wind Field Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	params := previewParams{
		RangeMPS: float32(field.DefaultRangeMPS),
		Width:    360,
		Arrows:   true,
	}

	var (
		f         *field.Field
		texture   rl.Texture2D
		pixels    []color.RGBA
		texW      int32
		animating bool
	)
	needsRegen := true

	for !rl.WindowShouldClose() {
		if animating {
			params.Phase = float32(math.Mod(float64(params.Phase+rl.GetFrameTime()), 2*math.Pi))
			needsRegen = true
		}

		if needsRegen {
			next, err := generate(params)
			if err != nil {
				if texW != 0 {
					rl.UnloadTexture(texture)
				}
				return err
			}
			f = next
			if texW != params.Width {
				if texW != 0 {
					rl.UnloadTexture(texture)
				}
				img := rl.GenImageColor(int(params.Width), int(params.Width/2), rl.Black)
				texture = rl.LoadTextureFromImage(img)
				rl.UnloadImage(img)
				rl.SetTextureFilter(texture, rl.FilterBilinear)
				pixels = make([]color.RGBA, f.W*f.H)
				texW = params.Width
			}
			renderer.FillSpeedPixels(f, pixels)
			rl.UpdateTexture(texture, pixels)
			needsRegen = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		src := rl.NewRectangle(0, 0, float32(f.W), float32(f.H))
		dst := rl.NewRectangle(15, 15, previewW, previewH)
		rl.DrawTexturePro(texture, src, dst, rl.Vector2{}, 0, rl.White)
		if params.Arrows {
			drawArrows(f, dst)
		}

		statsY := int32(previewH + 30)
		minS, maxS := speedRange(f)
		rl.DrawText(fmt.Sprintf("Speed min %.1f  max %.1f m/s  (range ±%.0f)", minS, maxS, params.RangeMPS), 15, statsY, 16, rl.DarkGray)
		rl.DrawText(fmt.Sprintf("Field %dx%d  phase %.2f rad", f.W, f.H, params.Phase), 15, statsY+20, 16, rl.DarkGray)

		// Control panel
		y := float32(10)
		rl.DrawText("Synthetic Trade Winds", int32(panelX), int32(y), 20, rl.DarkGray)
		y += 35

		rl.DrawText("Meander phase", int32(panelX), int32(y), 14, rl.Gray)
		y += 18
		newPhase := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: y, Width: float32(panelWidth - 80), Height: 20},
			"0", "2pi",
			params.Phase, 0, 2*math.Pi,
		)
		if newPhase != params.Phase {
			params.Phase = newPhase
			needsRegen = true
		}
		y += 35

		rl.DrawText("Channel range (m/s)", int32(panelX), int32(y), 14, rl.Gray)
		y += 18
		newRange := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: y, Width: float32(panelWidth - 80), Height: 20},
			"20", "150",
			params.RangeMPS, 20, 150,
		)
		rl.DrawText(fmt.Sprintf("%.0f", params.RangeMPS), int32(panelX+float32(panelWidth-70)), int32(y+2), 16, rl.DarkGray)
		if newRange != params.RangeMPS {
			params.RangeMPS = newRange
			needsRegen = true
		}
		y += 35

		rl.DrawText("Resolution (columns)", int32(panelX), int32(y), 14, rl.Gray)
		y += 18
		newWidth := int32(gui.SliderBar(
			rl.Rectangle{X: panelX, Y: y, Width: float32(panelWidth - 80), Height: 20},
			"36", "720",
			float32(params.Width), 36, 720,
		))
		newWidth -= newWidth % 2
		rl.DrawText(fmt.Sprintf("%d", params.Width), int32(panelX+float32(panelWidth-70)), int32(y+2), 16, rl.DarkGray)
		if newWidth != params.Width {
			params.Width = newWidth
			needsRegen = true
		}
		y += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: y, Width: 120, Height: 30}, toggleText(animating, "Stop", "Animate")) {
			animating = !animating
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: y, Width: 120, Height: 30}, toggleText(params.Arrows, "Hide arrows", "Show arrows")) {
			params.Arrows = !params.Arrows
		}

		rl.EndDrawing()
	}

	if texW != 0 {
		rl.UnloadTexture(texture)
	}
	return nil
}

// generate builds the trade-wind field for the current settings.
func generate(params previewParams) (*field.Field, error) {
	w, h := int(params.Width), int(params.Width/2)
	f, err := field.TradeWinds(w, h, float64(params.RangeMPS), float64(params.Phase))
	if err != nil {
		return nil, fmt.Errorf("generating %dx%d field: %w", w, h, err)
	}
	return f, nil
}

// drawArrows draws the decoded wind direction on a coarse lattice.
func drawArrows(f *field.Field, dst rl.Rectangle) {
	const cols, rows = 24, 12
	sampler := systems.FieldSampler{F: f}
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			uv := systems.CellCenter(i, j, cols, rows)
			w := sampler.Sample(uv)
			speed := math.Hypot(w.U, w.V)
			if speed < 1e-6 {
				continue
			}
			length := float32(8 + 10*min(speed/f.Range, 1))
			x := dst.X + float32(uv.U)*dst.Width
			y := dst.Y + float32(uv.V)*dst.Height
			// Wind.V grows southward, like screen y
			dx := float32(w.U/speed) * length
			dy := float32(w.V/speed) * length
			rl.DrawLineV(rl.Vector2{X: x, Y: y}, rl.Vector2{X: x + dx, Y: y + dy}, rl.Fade(rl.White, 0.8))
			rl.DrawCircleV(rl.Vector2{X: x + dx, Y: y + dy}, 1.5, rl.White)
		}
	}
}

func speedRange(f *field.Field) (lo, hi float64) {
	lo = math.Inf(1)
	for i := range f.U {
		u := (2*float64(f.U[i]) - 1) * f.Range
		v := (2*float64(f.V[i]) - 1) * f.Range
		s := math.Hypot(u, v)
		lo = min(lo, s)
		hi = max(hi, s)
	}
	return lo, hi
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
