/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/Seednode/scrawl/canvas"
)

// PDF writes a single-page document with strokes drawn at virtual canvas
// scale, one point per virtual unit.
func PDF(w io.Writer, title string, strokes []*canvas.Stroke) error {
	p := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size: gofpdf.SizeType{
			Wd: canvas.VirtualSpace.Width,
			Ht: canvas.VirtualSpace.Height,
		},
	})
	p.SetTitle(title, true)
	p.SetCreator("scrawl", true)
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	p.AddPage()
	p.SetLineCapStyle("round")
	p.SetLineJoinStyle("round")

	for _, s := range strokes {
		if len(s.Path) == 0 {
			continue
		}

		c := strokeColor(s)
		p.SetDrawColor(int(c.R*255), int(c.G*255), int(c.B*255))
		p.SetLineWidth(s.RenderWidth())

		var x, y float64
		for _, cmd := range s.Path {
			switch cmd.Op {
			case canvas.OpMove:
				if len(s.Path) == 1 {
					p.Line(cmd.X, cmd.Y, cmd.X, cmd.Y)
				}
			case canvas.OpLine:
				p.Line(x, y, cmd.X, cmd.Y)
			case canvas.OpQuad:
				p.Curve(x, y, cmd.CX, cmd.CY, cmd.X, cmd.Y, "D")
			}
			x, y = cmd.X, cmd.Y
		}
	}

	if err := p.Output(w); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}

	return nil
}
