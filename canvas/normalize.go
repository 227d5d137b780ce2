/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package canvas

import "math"

// Space is a two-dimensional drawing surface size, in pixels for a device
// viewport or in virtual units for the shared canvas.
type Space struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// VirtualSpace is the fixed logical canvas every device maps into.
var VirtualSpace = Space{Width: 1000, Height: 1000}

// precision is the number of decimal places kept in virtual coordinates.
const precision = 100

// Measured reports whether the viewport has a usable layout.
func (s Space) Measured() bool {
	return s.Width > 1 && s.Height > 1
}

// Contains reports whether (x, y) lies within [0, Width] x [0, Height].
func (s Space) Contains(x, y float64) bool {
	return x >= 0 && x <= s.Width && y >= 0 && y <= s.Height
}

// Clamp pulls (x, y) into the space's bounds.
func (s Space) Clamp(x, y float64) (float64, float64) {
	return math.Max(0, math.Min(x, s.Width)), math.Max(0, math.Min(y, s.Height))
}

// Normalize maps a path from viewport pixels into virtual canvas units.
// Each axis is scaled independently and the result is rounded to two
// decimals. An unmeasured viewport leaves coordinates unscaled.
func Normalize(local Path, viewport Space) Path {
	if !viewport.Measured() {
		return scale(local, 1, 1, true)
	}

	return scale(local, VirtualSpace.Width/viewport.Width, VirtualSpace.Height/viewport.Height, true)
}

// ToLocal maps a virtual path into viewport pixels. An unmeasured
// viewport returns the path unscaled; scaling resumes once layout is known.
func ToLocal(virtual Path, viewport Space) Path {
	if !viewport.Measured() {
		return scale(virtual, 1, 1, false)
	}

	return scale(virtual, viewport.Width/VirtualSpace.Width, viewport.Height/VirtualSpace.Height, false)
}

// NormalizePoint maps a single viewport point into virtual units.
func NormalizePoint(x, y float64, viewport Space) (float64, float64) {
	if !viewport.Measured() {
		return x, y
	}

	return x * VirtualSpace.Width / viewport.Width, y * VirtualSpace.Height / viewport.Height
}

func scale(p Path, sx, sy float64, quantize bool) Path {
	if len(p) == 0 {
		return Path{}
	}

	q := func(v float64) float64 { return v }
	if quantize {
		q = round
	}

	out := make(Path, 0, len(p))
	for _, c := range p {
		if !c.valid() {
			continue
		}

		c.X = q(c.X * sx)
		c.Y = q(c.Y * sy)
		if c.Op == OpQuad {
			c.CX = q(c.CX * sx)
			c.CY = q(c.CY * sy)
		}
		out = append(out, c)
	}

	return out
}

func round(v float64) float64 {
	return math.Round(v*precision) / precision
}
