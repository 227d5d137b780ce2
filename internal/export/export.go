/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package export renders a room's committed strokes to image formats.
package export

import (
	"fmt"
	"image/png"
	"io"

	"github.com/gogpu/gg"

	"github.com/Seednode/scrawl/canvas"
)

// Background is the canvas color; erasers paint with it.
const Background = "#FFFFFF"

func strokeColor(s *canvas.Stroke) gg.RGBA {
	if s.IsEraser {
		return gg.Hex(Background)
	}

	return gg.Hex(s.Color)
}

// PNG paints strokes, in render order, onto a size x size image.
func PNG(w io.Writer, strokes []*canvas.Stroke, size int) error {
	if size < 1 {
		return fmt.Errorf("invalid snapshot size: %d", size)
	}

	view := canvas.Space{Width: float64(size), Height: float64(size)}

	dc := gg.NewContext(size, size)
	defer dc.Close()

	dc.ClearWithColor(gg.Hex(Background))
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	for _, s := range strokes {
		local := s.Local(view)
		if len(local.Path) == 0 {
			continue
		}

		dc.SetColor(strokeColor(s).Color())
		dc.SetLineWidth(local.RenderWidth())

		for _, c := range local.Path {
			switch c.Op {
			case canvas.OpMove:
				dc.MoveTo(c.X, c.Y)
			case canvas.OpLine:
				dc.LineTo(c.X, c.Y)
			case canvas.OpQuad:
				dc.QuadraticTo(c.CX, c.CY, c.X, c.Y)
			}
		}

		if len(local.Path) == 1 {
			dc.LineTo(local.Path[0].X, local.Path[0].Y)
		}

		if err := dc.Stroke(); err != nil {
			return fmt.Errorf("painting stroke: %w", err)
		}
	}

	if err := png.Encode(w, dc.Image()); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}

	return nil
}
