/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package canvas

import "math"

// MaxJump is the largest per-axis distance, in viewport pixels, accepted
// between consecutive samples. Larger jumps are treated as input glitches.
const MaxJump = 80

// State is the phase of a single pen gesture.
type State int

const (
	Idle State = iota
	Tracing
	Committed
	Discarded
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Tracing:
		return "tracing"
	case Committed:
		return "committed"
	case Discarded:
		return "discarded"
	}

	return "unknown"
}

type point struct{ x, y float64 }

// Tracer turns pointer samples into a smoothed path in viewport pixels.
// Only one gesture is traced at a time.
type Tracer struct {
	state    State
	viewport Space
	path     Path
	last     point
	prev     *point
}

func (t *Tracer) State() State { return t.state }

// Path returns a copy of the path traced so far.
func (t *Tracer) Path() Path { return t.path.Clone() }

// Begin starts a gesture at the clamped position. It returns false if a
// gesture is already being traced.
func (t *Tracer) Begin(x, y float64, viewport Space) bool {
	if t.state == Tracing {
		return false
	}

	if viewport.Measured() {
		x, y = viewport.Clamp(x, y)
	}

	t.state = Tracing
	t.viewport = viewport
	t.path = Path{{Op: OpMove, X: x, Y: y}}
	t.last = point{x, y}
	t.prev = nil

	return true
}

// Move extends the gesture. The first accepted sample is joined with a
// line; later samples add a quadratic curve through the previous sample
// ending at the midpoint. Samples that jump further than MaxJump on either
// axis are ignored without ending the gesture.
func (t *Tracer) Move(x, y float64) bool {
	if t.state != Tracing {
		return false
	}

	if t.viewport.Measured() {
		x, y = t.viewport.Clamp(x, y)
	}

	if math.Abs(x-t.last.x) > MaxJump || math.Abs(y-t.last.y) > MaxJump {
		return false
	}
	t.last = point{x, y}

	if t.prev != nil {
		t.path.QuadTo(t.prev.x, t.prev.y, (t.prev.x+x)/2, (t.prev.y+y)/2)
	} else {
		t.path.LineTo(x, y)
	}
	t.prev = &point{x, y}

	return true
}

// End finishes the gesture and returns its path.
func (t *Tracer) End() (Path, bool) {
	if t.state != Tracing {
		return nil, false
	}

	p := t.path
	t.reset(Committed)

	return p, true
}

// Cancel abandons the gesture.
func (t *Tracer) Cancel() bool {
	if t.state != Tracing {
		return false
	}

	t.reset(Discarded)

	return true
}

func (t *Tracer) reset(s State) {
	t.state = s
	t.path = nil
	t.prev = nil
}
