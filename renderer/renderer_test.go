package renderer

import (
	"image/color"
	"math"
	"testing"

	"github.com/pthm-cable/windglobe/field"
)

func TestLifeAlpha(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  float32
	}{
		{"born", 0, 0},
		{"fading in", 0.1, 0.25},
		{"full", 0.5, 1},
		{"fading out", 0.85, 0.5},
		{"dead", 1, 0},
		{"out of range", 1.5, 0},
		{"nan", math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LifeAlpha(tt.ratio); math.Abs(float64(got-tt.want)) > 1e-5 {
				t.Errorf("LifeAlpha(%v) = %v, want %v", tt.ratio, got, tt.want)
			}
		})
	}
}

func TestSpeedColorRamp(t *testing.T) {
	calm := SpeedColor(0, 80)
	jet := SpeedColor(80, 80)
	beyond := SpeedColor(200, 80)

	if calm.G >= jet.G || calm.B >= jet.B {
		t.Errorf("ramp not increasing: calm %v, jet %v", calm, jet)
	}
	if beyond != jet {
		t.Errorf("speeds beyond range should saturate: %v vs %v", beyond, jet)
	}
	if SpeedColor(10, 0) != calm {
		t.Error("zero range should map everything to the calm color")
	}
}

func TestFillSpeedPixels(t *testing.T) {
	f, _ := field.New(2, 1, 80)
	f.SetWind(1, 0, 80, 0)

	px := make([]color.RGBA, 2)
	FillSpeedPixels(f, px)
	if px[0] != SpeedColor(0, 80) {
		t.Errorf("calm texel = %v", px[0])
	}
	if px[1] != SpeedColor(80, 80) {
		t.Errorf("fast texel = %v", px[1])
	}
}

func TestLayerColorWraps(t *testing.T) {
	if LayerColor(len(layerColors)) != LayerColor(0) {
		t.Error("palette should repeat")
	}
	if LayerColor(-1) != LayerColor(0) {
		t.Error("negative index should use the first color")
	}
}
