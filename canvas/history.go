/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package canvas

import "golang.org/x/exp/slices"

type changeKind int

const (
	commitChange changeKind = iota
	undoChange
	clearChange
)

// change is a local edit the room has not yet echoed back.
type change struct {
	kind   changeKind
	id     string
	stroke *Stroke
}

func (c change) apply(log []*Stroke) []*Stroke {
	switch c.kind {
	case commitChange:
		return append(log, c.stroke)
	case undoChange:
		if len(log) > 0 {
			return log[:len(log)-1]
		}
		return log
	default:
		return nil
	}
}

// History is a client's replica of the committed stroke log together with
// its redo stack. It is not safe for concurrent use.
//
// While tracked, local edits are provisional: they are shown on top of the
// log in the room's order but only enter the log when the room echoes them
// back. Untracked histories apply local edits directly.
type History struct {
	log     []*Stroke
	pending []change
	redo    []*Stroke
	tracked bool
}

// Track switches between provisional and direct local edits. Untracking
// folds any unconfirmed edits into the log.
func (h *History) Track(on bool) {
	if !on && len(h.pending) > 0 {
		h.log = h.view()
		h.pending = nil
	}
	h.tracked = on
}

func (h *History) local(c change) {
	if h.tracked {
		h.pending = append(h.pending, c)
		return
	}
	h.log = c.apply(h.log)
}

// settle drops the pending edit id and every edit queued before it. Edits
// travel to the room in order, so any earlier edit that has not come back
// was dropped there. It reports whether id was one of ours.
func (h *History) settle(id string) bool {
	if id == "" {
		return false
	}

	for i, c := range h.pending {
		if c.id == id {
			h.pending = slices.Delete(h.pending, 0, i+1)
			return true
		}
	}

	return false
}

func (h *History) view() []*Stroke {
	if len(h.pending) == 0 {
		return h.log
	}

	out := slices.Clone(h.log)
	for _, c := range h.pending {
		out = c.apply(out)
	}

	return out
}

// Commit records a locally drawn stroke, identified by its ID. A new
// commit invalidates any pending redo.
func (h *History) Commit(s *Stroke) {
	h.local(change{kind: commitChange, id: s.ID, stroke: s})
	h.redo = h.redo[:0]
}

// Undo moves the most recent stroke onto the redo stack. id names the
// edit for the room's echo.
func (h *History) Undo(id string) (*Stroke, bool) {
	v := h.view()
	if len(v) == 0 {
		return nil, false
	}

	s := v[len(v)-1]
	h.local(change{kind: undoChange, id: id})
	h.redo = append(h.redo, s)

	return s, true
}

// Redo re-commits the most recently undone stroke under its original ID.
func (h *History) Redo() (*Stroke, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}

	s := h.redo[len(h.redo)-1]
	h.redo[len(h.redo)-1] = nil
	h.redo = h.redo[:len(h.redo)-1]
	h.local(change{kind: commitChange, id: s.ID, stroke: s})

	return s, true
}

// Clear empties the log and the redo stack. Clearing cannot be undone.
func (h *History) Clear(id string) {
	h.local(change{kind: clearChange, id: id})
	h.redo = nil
}

// Append adds a stroke the room committed without touching redo.
func (h *History) Append(s *Stroke) {
	h.settle(s.ID)
	h.log = append(h.log, s)
}

// DropLast removes the room's most recent stroke after an undo. id is
// the undo's edit id, if any.
func (h *History) DropLast(id string) (*Stroke, bool) {
	h.settle(id)

	if len(h.log) == 0 {
		return nil, false
	}

	s := h.log[len(h.log)-1]
	h.log[len(h.log)-1] = nil
	h.log = h.log[:len(h.log)-1]

	return s, true
}

// Wipe empties the log after the room was cleared. A peer's clear also
// empties redo; the echo of our own clear leaves redo built up since.
func (h *History) Wipe(id string) {
	if !h.settle(id) {
		h.redo = nil
	}
	h.log = nil
}

// Load replaces the log with an authoritative copy. Edits not yet echoed
// were sent after the copy was taken and stay pending on top of it.
func (h *History) Load(strokes []*Stroke) {
	h.log = slices.Clone(strokes)
}

// Strokes returns the log in render order, provisional edits included.
func (h *History) Strokes() []*Stroke {
	return slices.Clone(h.view())
}

// Confirmed returns the log as the room ordered it.
func (h *History) Confirmed() []*Stroke {
	return slices.Clone(h.log)
}

func (h *History) Len() int     { return len(h.view()) }
func (h *History) RedoLen() int { return len(h.redo) }
func (h *History) Pending() int { return len(h.pending) }
