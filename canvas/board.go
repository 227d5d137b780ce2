/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package canvas

import (
	"sync"

	"github.com/google/uuid"
)

// Emitter carries a board's local actions to the room. Strokes passed to
// it are already in virtual canvas coordinates. The room is expected to
// echo commits, undos and clears back, carrying the stroke ID or change
// id, before the board treats them as part of the log.
type Emitter interface {
	CommitStroke(s *Stroke)
	LiveTrace(s *Stroke)
	Undo(changeID string)
	Clear(changeID string)
}

// Brush is the styling applied to new strokes.
type Brush struct {
	Color    string
	Width    float64
	IsEraser bool
}

// Frame is everything needed to paint the board once, in viewport pixels,
// bottom to top: committed strokes, remote live traces, then the local
// in-progress stroke.
type Frame struct {
	Strokes []*Stroke
	Ghosts  []*Stroke
	Current *Stroke
}

// Board is one client's replica of a room's canvas. Committed strokes and
// live traces are kept in virtual coordinates and mapped to the viewport
// only when a frame is built. While an emitter is set, the board's own
// edits are provisional until the room echoes them, so every replica ends
// up in the room's order. Board is safe for concurrent use.
type Board struct {
	mu sync.Mutex

	author     string
	viewport   Space
	brush      Brush
	eyedropper bool

	history History
	ghosts  Ghosts
	tracer  Tracer

	emit Emitter
}

// NewBoard returns an empty board drawing as author. A nil emitter keeps
// the board offline.
func NewBoard(author string, emit Emitter) *Board {
	b := &Board{
		author: author,
		brush:  Brush{Color: "#000000", Width: 5},
		emit:   emit,
	}
	b.history.Track(emit != nil)

	return b
}

func (b *Board) Author() string {
	return b.author
}

// SetEmitter replaces the board's outbound channel.
func (b *Board) SetEmitter(e Emitter) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.emit = e
	b.history.Track(e != nil)
}

func (b *Board) emitter() Emitter {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.emit
}

// SetViewport records the measured size of the drawing surface.
func (b *Board) SetViewport(v Space) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.viewport = v
}

func (b *Board) SetBrush(br Brush) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.brush = br
}

func (b *Board) Brush() Brush {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.brush
}

// ToggleEyedropper switches color sampling mode and returns the new state.
func (b *Board) ToggleEyedropper() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.eyedropper = !b.eyedropper

	return b.eyedropper
}

func (b *Board) Eyedropper() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.eyedropper
}

// PointerDown starts a stroke at (x, y) in viewport pixels. In eyedropper
// mode it instead samples the topmost stroke's color, leaves eyedropper
// mode and reports the sampled color; the brush is not changed.
func (b *Board) PointerDown(x, y float64) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.eyedropper {
		if b.tracer.State() == Tracing {
			return "", false
		}

		strokes := b.history.view()
		local := make([]*Stroke, 0, len(strokes))
		for _, s := range strokes {
			local = append(local, s.Local(b.viewport))
		}

		color, ok := Sample(local, x, y)
		if ok {
			b.eyedropper = false
		}

		return color, ok
	}

	b.tracer.Begin(x, y, b.viewport)

	return "", false
}

// PointerMove extends the current stroke and broadcasts it as a live trace.
func (b *Board) PointerMove(x, y float64) {
	b.mu.Lock()
	if b.eyedropper || !b.tracer.Move(x, y) {
		b.mu.Unlock()
		return
	}

	trace := b.strokeLocked(b.tracer.path)
	emit := b.emit
	b.mu.Unlock()

	if emit != nil {
		emit.LiveTrace(trace)
	}
}

// PointerUp commits the current stroke.
func (b *Board) PointerUp() (*Stroke, bool) {
	b.mu.Lock()
	if b.eyedropper {
		b.mu.Unlock()
		return nil, false
	}

	p, ok := b.tracer.End()
	if !ok {
		b.mu.Unlock()
		return nil, false
	}

	s := b.strokeLocked(p)
	s.ID = uuid.NewString()
	b.history.Commit(s)
	emit := b.emit
	b.mu.Unlock()

	if emit != nil {
		emit.CommitStroke(s)
	}

	return s, true
}

// Cancel discards the stroke being traced without committing it.
func (b *Board) Cancel() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.tracer.Cancel()
}

func (b *Board) strokeLocked(local Path) *Stroke {
	return &Stroke{
		Path:     Normalize(local, b.viewport),
		Color:    b.brush.Color,
		Width:    b.brush.Width,
		AuthorID: b.author,
		IsEraser: b.brush.IsEraser,
	}
}

// Undo removes the most recent stroke from the board and the room.
func (b *Board) Undo() bool {
	id := uuid.NewString()

	b.mu.Lock()
	_, ok := b.history.Undo(id)
	emit := b.emit
	b.mu.Unlock()

	if ok && emit != nil {
		emit.Undo(id)
	}

	return ok
}

// Redo restores the most recently undone stroke and sends it to the room
// as a fresh commit.
func (b *Board) Redo() bool {
	b.mu.Lock()
	s, ok := b.history.Redo()
	emit := b.emit
	b.mu.Unlock()

	if ok && emit != nil {
		emit.CommitStroke(s)
	}

	return ok
}

// Clear wipes the board and the room. It cannot be undone.
func (b *Board) Clear() {
	id := uuid.NewString()

	b.mu.Lock()
	b.history.Clear(id)
	b.ghosts.Reset()
	emit := b.emit
	b.mu.Unlock()

	if emit != nil {
		emit.Clear(id)
	}
}

// ApplyStroke appends a stroke the room committed, whether a peer's or the
// echo of this board's own, and drops the author's live trace.
func (b *Board) ApplyStroke(s *Stroke) {
	if s == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.ghosts.Drop(s.AuthorID)
	if s.Validate() != nil {
		return
	}
	b.history.Append(s)
}

// ApplyTrace records a peer's in-progress stroke. Traces from this board's
// own author are ignored.
func (b *Board) ApplyTrace(s *Stroke) {
	if s == nil || s.AuthorID == b.author {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.ghosts.Set(s.AuthorID, s)
}

// ApplyUndo removes the room's most recent stroke after author's undo.
// changeID matches the echo of this board's own undo.
func (b *Board) ApplyUndo(author, changeID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ghosts.Drop(author)
	b.history.DropLast(changeID)
}

// ApplyClear wipes the log after a room-wide clear.
func (b *Board) ApplyClear(changeID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.history.Wipe(changeID)
	b.ghosts.Reset()
}

// Load replaces the committed log with the room's authoritative copy.
func (b *Board) Load(strokes []*Stroke) {
	valid := make([]*Stroke, 0, len(strokes))
	for _, s := range strokes {
		if s != nil && s.Validate() == nil {
			valid = append(valid, s)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.history.Load(valid)
}

// Strokes returns the log as shown, in virtual coordinates, with this
// board's unconfirmed edits applied.
func (b *Board) Strokes() []*Stroke {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.history.Strokes()
}

// Confirmed returns the log in the room's order, without unconfirmed edits.
func (b *Board) Confirmed() []*Stroke {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.history.Confirmed()
}

// Pending reports how many local edits the room has not echoed yet.
func (b *Board) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.history.Pending()
}

// Counts reports the committed and redoable stroke counts.
func (b *Board) Counts() (history, redo int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.history.Len(), b.history.RedoLen()
}

// Ghost returns author's live trace, if one is pending.
func (b *Board) Ghost(author string) (*Stroke, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.ghosts.Get(author)
}

// Frame maps the board into viewport pixels for painting.
func (b *Board) Frame() Frame {
	b.mu.Lock()
	defer b.mu.Unlock()

	strokes := b.history.view()
	f := Frame{
		Strokes: make([]*Stroke, 0, len(strokes)),
		Ghosts:  make([]*Stroke, 0, b.ghosts.Len()),
	}

	for _, s := range strokes {
		f.Strokes = append(f.Strokes, s.Local(b.viewport))
	}

	for _, a := range b.ghosts.Authors() {
		g, _ := b.ghosts.Get(a)
		f.Ghosts = append(f.Ghosts, g.Local(b.viewport))
	}

	if b.tracer.State() == Tracing {
		f.Current = &Stroke{
			Path:     b.tracer.Path(),
			Color:    b.brush.Color,
			Width:    b.brush.Width,
			AuthorID: b.author,
			IsEraser: b.brush.IsEraser,
		}
	}

	return f
}
