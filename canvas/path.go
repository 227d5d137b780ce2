/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package canvas

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Op identifies a path command.
type Op string

const (
	OpMove Op = "M"
	OpLine Op = "L"
	OpQuad Op = "Q"
)

// Command is a single typed path command. CX and CY hold the control
// point and are only meaningful for OpQuad.
type Command struct {
	Op Op      `json:"op"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	CX float64 `json:"cx,omitempty"`
	CY float64 `json:"cy,omitempty"`
}

func (c Command) valid() bool {
	switch c.Op {
	case OpMove, OpLine:
		return finite(c.X) && finite(c.Y)
	case OpQuad:
		return finite(c.X) && finite(c.Y) && finite(c.CX) && finite(c.CY)
	default:
		return false
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Path is an ordered sequence of path commands.
type Path []Command

// MoveTo appends a move command.
func (p *Path) MoveTo(x, y float64) {
	*p = append(*p, Command{Op: OpMove, X: x, Y: y})
}

// LineTo appends a line command.
func (p *Path) LineTo(x, y float64) {
	*p = append(*p, Command{Op: OpLine, X: x, Y: y})
}

// QuadTo appends a quadratic curve through control point (cx, cy).
func (p *Path) QuadTo(cx, cy, x, y float64) {
	*p = append(*p, Command{Op: OpQuad, X: x, Y: y, CX: cx, CY: cy})
}

// Clone returns an independent copy of the path.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}

	out := make(Path, len(p))
	copy(out, p)

	return out
}

// Sanitize drops commands with unknown ops or non-finite coordinates, and
// any drawing commands that precede the first move.
func (p Path) Sanitize() Path {
	out := make(Path, 0, len(p))

	for _, c := range p {
		if !c.valid() {
			continue
		}
		if len(out) == 0 && c.Op != OpMove {
			continue
		}
		out = append(out, c)
	}

	return out
}

// String renders the path in SVG path syntax.
func (p Path) String() string {
	var b strings.Builder

	for i, c := range p {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(string(c.Op))
		b.WriteByte(' ')
		if c.Op == OpQuad {
			b.WriteString(formatFloat(c.CX))
			b.WriteByte(' ')
			b.WriteString(formatFloat(c.CY))
			b.WriteByte(' ')
		}
		b.WriteString(formatFloat(c.X))
		b.WriteByte(' ')
		b.WriteString(formatFloat(c.Y))
	}

	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseSVG reads the M, L and Q subset of SVG path syntax. Tokens that do
// not form a complete command are skipped rather than reported.
func ParseSVG(s string) Path {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\n' || r == '\t' || r == '\r'
	})

	var tokens []string
	for _, f := range fields {
		tokens = append(tokens, splitOps(f)...)
	}

	var p Path

	for i := 0; i < len(tokens); {
		op := Op(strings.ToUpper(tokens[i]))
		i++

		var n int
		switch op {
		case OpMove, OpLine:
			n = 2
		case OpQuad:
			n = 4
		default:
			continue
		}

		args, ok := numbers(tokens, i, n)
		if !ok {
			continue
		}
		i += n

		switch op {
		case OpMove:
			p.MoveTo(args[0], args[1])
		case OpLine:
			p.LineTo(args[0], args[1])
		case OpQuad:
			p.QuadTo(args[0], args[1], args[2], args[3])
		}
	}

	return p.Sanitize()
}

// splitOps separates command letters glued to numbers, as in "M10".
func splitOps(f string) []string {
	var out []string

	start := 0
	for i, r := range f {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z' && r != 'e') {
			if i > start {
				out = append(out, f[start:i])
			}
			out = append(out, string(r))
			start = i + 1
		}
	}
	if start < len(f) {
		out = append(out, f[start:])
	}

	return out
}

func numbers(tokens []string, at, n int) ([]float64, bool) {
	if at+n > len(tokens) {
		return nil, false
	}

	out := make([]float64, n)
	for j := 0; j < n; j++ {
		v, err := strconv.ParseFloat(tokens[at+j], 64)
		if err != nil || !finite(v) {
			return nil, false
		}
		out[j] = v
	}

	return out, true
}

// UnmarshalJSON accepts either an array of commands or an SVG path string.
// Malformed entries are dropped.
func (p *Path) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = ParseSVG(s)
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*p = nil
		return nil
	}

	out := make(Path, 0, len(raw))
	for _, r := range raw {
		var c Command
		if err := json.Unmarshal(r, &c); err != nil {
			continue
		}
		out = append(out, c)
	}

	*p = out.Sanitize()

	return nil
}
