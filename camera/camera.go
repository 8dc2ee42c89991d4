// Package camera provides a 2D camera over the equirectangular wind map.
package camera

import "math"

// Camera controls the viewport into the map.
// Longitude wraps around; latitude is clamped so the view never leaves the poles.
type Camera struct {
	// Position is the camera center in map pixels
	X, Y float32

	// Zoom level (1.0 = 1:1, 2.0 = 2x magnification)
	Zoom float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// Map dimensions; X wraps at MapW, Y is bounded by MapH
	MapW, MapH float32

	// Zoom constraints
	MinZoom, MaxZoom float32
}

// New creates a camera centered on the map with the smallest zoom that still
// fills the viewport vertically.
func New(viewportW, viewportH, mapW, mapH float32) *Camera {
	c := &Camera{
		X:         mapW / 2,
		Y:         mapH / 2,
		ViewportW: viewportW,
		ViewportH: viewportH,
		MapW:      mapW,
		MapH:      mapH,
		MaxZoom:   8.0,
	}
	c.MinZoom = minZoom(viewportW, viewportH, mapW, mapH)
	c.Zoom = max(1.0, c.MinZoom)
	return c
}

// At zoom Z the visible area is viewport/Z; it must not exceed the map height,
// nor show the same longitude twice.
func minZoom(viewportW, viewportH, mapW, mapH float32) float32 {
	return max(viewportW/mapW, viewportH/mapH)
}

// UVToScreen converts a map UV position to screen coordinates.
func (c *Camera) UVToScreen(u, v float64) (sx, sy float32) {
	return c.WorldToScreen(float32(u)*c.MapW, float32(v)*c.MapH)
}

// ScreenToUV converts screen coordinates to a map UV position.
func (c *Camera) ScreenToUV(sx, sy float32) (u, v float64) {
	wx, wy := c.ScreenToWorld(sx, sy)
	return float64(wx / c.MapW), float64(wy / c.MapH)
}

// WorldToScreen converts map pixels to screen coordinates, taking the
// shortest way around the longitude seam.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	dx := wrapDelta(wx, c.X, c.MapW)
	dy := wy - c.Y

	sx = c.ViewportW/2 + dx*c.Zoom
	sy = c.ViewportH/2 + dy*c.Zoom
	return sx, sy
}

// ScreenToWorld converts screen coordinates to map pixels.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	dx := (sx - c.ViewportW/2) / c.Zoom
	dy := (sy - c.ViewportH/2) / c.Zoom

	wx = mod(c.X+dx, c.MapW)
	wy = clamp(c.Y+dy, 0, c.MapH)
	return wx, wy
}

// IsVisible returns true if a circle at (wx, wy) with given radius
// could be visible on screen (conservative check for culling).
func (c *Camera) IsVisible(wx, wy, radius float32) bool {
	dx := wrapDelta(wx, c.X, c.MapW)
	dy := wy - c.Y

	halfW := c.ViewportW/(2*c.Zoom) + radius
	halfH := c.ViewportH/(2*c.Zoom) + radius
	return absf(dx) <= halfW && absf(dy) <= halfH
}

// GhostX returns the screen x of the second copy of a point near the left or
// right edge of the view, so tracers crossing the seam are drawn on both sides.
func (c *Camera) GhostX(wx, radius float32) (float32, bool) {
	halfW := c.ViewportW / (2 * c.Zoom)
	dx := wrapDelta(wx, c.X, c.MapW)

	if dx > halfW-radius && dx < halfW+radius {
		return c.ViewportW/2 + (dx-c.MapW)*c.Zoom, true
	}
	if dx < -halfW+radius && dx > -halfW-radius {
		return c.ViewportW/2 + (dx+c.MapW)*c.Zoom, true
	}
	return 0, false
}

// Resize updates viewport dimensions and recalculates zoom constraints.
func (c *Camera) Resize(viewportW, viewportH float32) {
	if viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.ViewportW = viewportW
	c.ViewportH = viewportH
	c.MinZoom = minZoom(viewportW, viewportH, c.MapW, c.MapH)
	if c.Zoom < c.MinZoom {
		c.Zoom = c.MinZoom
	}
	c.clampY()
}

// Pan moves the camera by the given delta in screen pixels.
func (c *Camera) Pan(dx, dy float32) {
	c.X = mod(c.X+dx/c.Zoom, c.MapW)
	c.Y += dy / c.Zoom
	c.clampY()
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
	c.clampY()
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Reset returns the camera to the default position and zoom.
func (c *Camera) Reset() {
	c.X = c.MapW / 2
	c.Y = c.MapH / 2
	c.Zoom = max(1.0, c.MinZoom)
}

// VisibleWorldBounds returns the map-pixel bounds of the visible area.
// minX may be > maxX when the view straddles the seam.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float32) {
	halfW := c.ViewportW / (2 * c.Zoom)
	halfH := c.ViewportH / (2 * c.Zoom)

	minX = mod(c.X-halfW, c.MapW)
	maxX = mod(c.X+halfW, c.MapW)
	minY = c.Y - halfH
	maxY = c.Y + halfH
	return
}

// clampY keeps the visible band within the poles.
func (c *Camera) clampY() {
	halfH := c.ViewportH / (2 * c.Zoom)
	if 2*halfH >= c.MapH {
		c.Y = c.MapH / 2
		return
	}
	c.Y = clamp(c.Y, halfH, c.MapH-halfH)
}

// wrapDelta computes the shortest signed distance from 'from' to 'to'
// around a seam at size.
func wrapDelta(to, from, size float32) float32 {
	d := to - from
	if d > size/2 {
		d -= size
	} else if d < -size/2 {
		d += size
	}
	return d
}

// mod computes the positive modulo (Go's % can return negative).
func mod(x, m float32) float32 {
	r := float32(math.Mod(float64(x), float64(m)))
	if r < 0 {
		r += m
	}
	return r
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
