package camera

import (
	"math"
	"testing"
)

func TestNew(t *testing.T) {
	cam := New(1440, 720, 1440, 720)

	if cam.X != 720 || cam.Y != 360 {
		t.Errorf("expected camera at (720, 360), got (%f, %f)", cam.X, cam.Y)
	}
	if cam.Zoom != 1.0 {
		t.Errorf("expected zoom 1.0, got %f", cam.Zoom)
	}
}

func TestNewRaisesZoomForSmallMap(t *testing.T) {
	cam := New(1440, 720, 720, 360)
	if cam.Zoom != 2 || cam.MinZoom != 2 {
		t.Errorf("zoom = %v, min = %v, want 2", cam.Zoom, cam.MinZoom)
	}
}

func TestUVRoundtrip(t *testing.T) {
	cam := New(1440, 720, 1440, 720)
	cam.SetZoom(2)

	testCases := []struct{ sx, sy float32 }{
		{720, 360},
		{100, 100},
		{1400, 700},
	}
	for _, tc := range testCases {
		u, v := cam.ScreenToUV(tc.sx, tc.sy)
		if u < 0 || u >= 1 || v < 0 || v > 1 {
			t.Fatalf("ScreenToUV(%v,%v) = (%v,%v) outside the map", tc.sx, tc.sy, u, v)
		}
		sx, sy := cam.UVToScreen(u, v)
		if math.Abs(float64(sx-tc.sx)) > 0.05 || math.Abs(float64(sy-tc.sy)) > 0.05 {
			t.Errorf("roundtrip failed: (%f,%f) -> (%f,%f) -> (%f,%f)", tc.sx, tc.sy, u, v, sx, sy)
		}
	}
}

func TestLongitudeWraps(t *testing.T) {
	cam := New(1440, 720, 1440, 720)
	cam.SetZoom(4)
	cam.X = 20 // Near the date line

	// A point just west of the seam is closer going left
	sx, _ := cam.WorldToScreen(1430, 360)
	if sx >= 720 {
		t.Errorf("expected point left of center, got x=%f", sx)
	}
	if !cam.IsVisible(1430, 360, 1) {
		t.Error("point across the seam should be visible")
	}
}

func TestLatitudeClamps(t *testing.T) {
	cam := New(1440, 720, 1440, 720)
	cam.SetZoom(2)

	cam.Pan(0, -10000)
	_, minY, _, _ := cam.VisibleWorldBounds()
	if minY < 0 {
		t.Errorf("view extends past the north pole: minY = %v", minY)
	}

	cam.Pan(0, 10000)
	_, _, _, maxY := cam.VisibleWorldBounds()
	if maxY > 720 {
		t.Errorf("view extends past the south pole: maxY = %v", maxY)
	}
}

func TestPanWrapsX(t *testing.T) {
	cam := New(1440, 720, 1440, 720)
	cam.Pan(1000, 0)
	cam.Pan(1000, 0)
	if cam.X < 0 || cam.X >= 1440 {
		t.Errorf("camera X = %v outside the map", cam.X)
	}
	if math.Abs(float64(cam.X-(720+2000-1440))) > 0.01 {
		t.Errorf("camera X = %v, want %v", cam.X, 720+2000-1440)
	}
}

func TestGhostX(t *testing.T) {
	cam := New(1440, 720, 1440, 720)

	// At zoom 1 the view spans the whole map, so a point at the right edge
	// also shows up at the left edge
	gx, ok := cam.GhostX(1439, 2)
	if !ok {
		t.Fatal("expected a ghost near the seam")
	}
	if gx > 2 {
		t.Errorf("ghost x = %v, want near the left edge", gx)
	}

	if _, ok := cam.GhostX(720, 2); ok {
		t.Error("unexpected ghost at the map center")
	}
}

func TestZoomClamp(t *testing.T) {
	cam := New(1440, 720, 1440, 720)
	cam.SetZoom(100)
	if cam.Zoom != cam.MaxZoom {
		t.Errorf("zoom = %v, want max %v", cam.Zoom, cam.MaxZoom)
	}
	cam.ZoomBy(0.0001)
	if cam.Zoom != cam.MinZoom {
		t.Errorf("zoom = %v, want min %v", cam.Zoom, cam.MinZoom)
	}
	cam.Reset()
	if cam.Zoom != 1 || cam.X != 720 || cam.Y != 360 {
		t.Errorf("reset camera = %+v", cam)
	}
}

func TestResize(t *testing.T) {
	cam := New(1440, 720, 1440, 720)
	cam.Resize(2880, 1440)
	if cam.MinZoom != 2 || cam.Zoom != 2 {
		t.Errorf("after resize zoom = %v min = %v, want 2", cam.Zoom, cam.MinZoom)
	}
}
