/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package canvas

import (
	"math"

	"github.com/gogpu/gg"
)

// flattenTolerance is the maximum deviation, in pixels, when curves are
// reduced to segments for hit testing.
const flattenTolerance = 0.25

// Shape converts the path into a gg vector path.
func (p Path) Shape() *gg.Path {
	out := gg.NewPath()

	for _, c := range p {
		switch c.Op {
		case OpMove:
			out.MoveTo(c.X, c.Y)
		case OpLine:
			out.LineTo(c.X, c.Y)
		case OpQuad:
			out.QuadraticTo(c.CX, c.CY, c.X, c.Y)
		}
	}

	return out
}

// RenderWidth is the width a stroke is painted with; erasers are drawn
// twice as wide as their nominal width.
func (s *Stroke) RenderWidth() float64 {
	if s.IsEraser {
		return s.Width * 2
	}

	return s.Width
}

// Hit reports whether (x, y) falls on the stroke: inside the area its
// outline encloses, or within half its painted width of the outline.
func (s *Stroke) Hit(x, y float64) bool {
	if len(s.Path) == 0 {
		return false
	}

	shape := s.Path.Shape()
	pt := gg.Pt(x, y)

	closed := shape.Clone()
	closed.Close()
	if closed.Contains(pt) {
		return true
	}

	pts := shape.Flatten(flattenTolerance)
	reach := s.RenderWidth() / 2

	if len(pts) == 1 {
		return math.Hypot(x-pts[0].X, y-pts[0].Y) <= reach
	}

	for i := 1; i < len(pts); i++ {
		if segmentDistance(pt, pts[i-1], pts[i]) <= reach {
			return true
		}
	}

	return false
}

func segmentDistance(p, a, b gg.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}

	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))

	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

// Sample returns the color of the topmost stroke under (x, y), testing
// strokes from the most recently committed down.
func Sample(strokes []*Stroke, x, y float64) (string, bool) {
	for i := len(strokes) - 1; i >= 0; i-- {
		if strokes[i].Hit(x, y) {
			return strokes[i].Color, true
		}
	}

	return "", false
}
