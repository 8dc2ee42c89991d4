package renderer

import (
	"image/color"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/windglobe/camera"
	"github.com/pthm-cable/windglobe/field"
)

// BackgroundRenderer draws the wind speed of the active field as a dim
// heat map under the tracers.
type BackgroundRenderer struct {
	texture     rl.Texture2D
	pixels      []color.RGBA
	texW, texH  int
	initialized bool

	// Last field uploaded, to skip redundant uploads
	last     *field.Field
	lastTime int64
}

// NewBackgroundRenderer creates a new background renderer.
func NewBackgroundRenderer() *BackgroundRenderer {
	return &BackgroundRenderer{}
}

// SpeedColor maps a wind speed to a dark blue-to-teal ramp. Speeds at or
// beyond rangeMPS saturate.
func SpeedColor(speed, rangeMPS float64) color.RGBA {
	t := 0.0
	if rangeMPS > 0 {
		t = math.Min(math.Max(speed/rangeMPS, 0), 1)
	}
	t = math.Sqrt(t)
	return color.RGBA{
		R: uint8(10 + 30*t),
		G: uint8(14 + 110*t),
		B: uint8(30 + 100*t),
		A: 255,
	}
}

// FillSpeedPixels writes one pixel per field texel into dst, which must hold W*H entries.
func FillSpeedPixels(f *field.Field, dst []color.RGBA) {
	for i := range dst {
		u := (2*float64(f.U[i]) - 1) * f.Range
		v := (2*float64(f.V[i]) - 1) * f.Range
		dst[i] = SpeedColor(math.Hypot(u, v), f.Range)
	}
}

// Init creates the texture for a field size (must be called after the raylib window is created).
func (b *BackgroundRenderer) Init(w, h int) {
	if b.initialized && w == b.texW && h == b.texH {
		return
	}
	b.Unload()

	img := rl.GenImageColor(w, h, rl.Black)
	b.texture = rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	rl.SetTextureFilter(b.texture, rl.FilterBilinear)

	b.pixels = make([]color.RGBA, w*h)
	b.texW, b.texH = w, h
	b.last = nil
	b.initialized = true
}

// Draw uploads f if it changed and draws it through the camera, repeating
// across the longitude seam.
func (b *BackgroundRenderer) Draw(f *field.Field, cam *camera.Camera) {
	if f == nil {
		return
	}
	b.Init(f.W, f.H)

	if f != b.last || f.Time.UnixNano() != b.lastTime {
		FillSpeedPixels(f, b.pixels)
		rl.UpdateTexture(b.texture, b.pixels)
		b.last = f
		b.lastTime = f.Time.UnixNano()
	}

	src := rl.NewRectangle(0, 0, float32(b.texW), float32(b.texH))
	sx, sy := cam.WorldToScreen(0, 0)
	w := cam.MapW * cam.Zoom
	h := cam.MapH * cam.Zoom
	for k := -1; k <= 1; k++ {
		dst := rl.NewRectangle(sx+float32(k)*w, sy, w, h)
		rl.DrawTexturePro(b.texture, src, dst, rl.Vector2{}, 0, rl.White)
	}
}

// Unload frees resources.
func (b *BackgroundRenderer) Unload() {
	if b.initialized {
		rl.UnloadTexture(b.texture)
		b.initialized = false
	}
}
