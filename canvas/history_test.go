/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package canvas

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStroke(color string) *Stroke {
	return &Stroke{
		ID:    "stroke-" + color,
		Path:  ParseSVG("M 0 0 L 10 10"),
		Color: color,
		Width: 3,
	}
}

func colors(strokes []*Stroke) []string {
	out := make([]string, 0, len(strokes))
	for _, s := range strokes {
		out = append(out, s.Color)
	}

	return out
}

func TestHistoryUndoRedo(t *testing.T) {
	var h History

	for i := 0; i < 3; i++ {
		h.Commit(testStroke(fmt.Sprintf("#00000%d", i)))
	}
	require.Equal(t, 3, h.Len())

	s, ok := h.Undo("u1")
	require.True(t, ok)
	assert.Equal(t, "#000002", s.Color)
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, 1, h.RedoLen())

	s, ok = h.Redo()
	require.True(t, ok)
	assert.Equal(t, "#000002", s.Color)
	assert.Equal(t, "stroke-#000002", s.ID, "redo keeps the stroke's identity")
	assert.Equal(t, 3, h.Len())
	assert.Equal(t, 0, h.RedoLen())

	_, ok = h.Redo()
	assert.False(t, ok)
	assert.Zero(t, h.Pending(), "untracked edits apply directly")
}

func TestHistoryCommitInvalidatesRedo(t *testing.T) {
	var h History

	h.Commit(testStroke("#111111"))
	h.Commit(testStroke("#222222"))
	h.Undo("u1")
	require.Equal(t, 1, h.RedoLen())

	h.Append(testStroke("#333333"))
	assert.Equal(t, 1, h.RedoLen(), "remote strokes keep redo")

	h.Commit(testStroke("#444444"))
	assert.Equal(t, 0, h.RedoLen())
	assert.Equal(t, 3, h.Len())
}

func TestHistoryClear(t *testing.T) {
	var h History

	h.Commit(testStroke("#111111"))
	h.Commit(testStroke("#222222"))
	h.Undo("u1")

	h.Clear("c1")

	assert.Equal(t, 0, h.Len())
	assert.Equal(t, 0, h.RedoLen())

	_, ok := h.Undo("u2")
	assert.False(t, ok)
	_, ok = h.Redo()
	assert.False(t, ok)
}

func TestHistoryLoad(t *testing.T) {
	var h History

	in := []*Stroke{testStroke("#aaaaaa"), testStroke("#bbbbbb")}
	h.Load(in)
	in[0] = nil

	out := h.Strokes()
	require.Len(t, out, 2)
	assert.Equal(t, "#aaaaaa", out[0].Color)

	out[1] = nil
	assert.NotNil(t, h.Strokes()[1])
}

func TestHistoryDropLast(t *testing.T) {
	var h History

	_, ok := h.DropLast("")
	assert.False(t, ok)

	h.Commit(testStroke("#111111"))
	s, ok := h.DropLast("")
	require.True(t, ok)
	assert.Equal(t, "#111111", s.Color)
	assert.Equal(t, 0, h.RedoLen())
}

func TestHistoryTrackedEditsWaitForTheRoom(t *testing.T) {
	var h History
	h.Track(true)

	mine := testStroke("#111111")
	h.Commit(mine)

	assert.Equal(t, []string{"#111111"}, colors(h.Strokes()))
	assert.Empty(t, h.Confirmed())
	assert.Equal(t, 1, h.Pending())

	peer := testStroke("#222222")
	h.Append(peer)
	assert.Equal(t, []string{"#222222", "#111111"}, colors(h.Strokes()), "provisional edits sit on top")

	h.Append(mine)
	assert.Zero(t, h.Pending())
	assert.Equal(t, []string{"#222222", "#111111"}, colors(h.Confirmed()))
	assert.Equal(t, colors(h.Confirmed()), colors(h.Strokes()))
}

func TestHistoryTrackedUndoAndClear(t *testing.T) {
	var h History
	h.Track(true)

	h.Load([]*Stroke{testStroke("#111111"), testStroke("#222222")})

	_, ok := h.Undo("u1")
	require.True(t, ok)
	assert.Equal(t, []string{"#111111"}, colors(h.Strokes()))
	assert.Len(t, h.Confirmed(), 2)

	h.DropLast("u1")
	assert.Zero(t, h.Pending())
	assert.Equal(t, []string{"#111111"}, colors(h.Confirmed()))

	h.Clear("c1")
	after := testStroke("#333333")
	h.Commit(after)
	assert.Equal(t, []string{"#333333"}, colors(h.Strokes()))

	h.Wipe("c1")
	assert.Equal(t, []string{"#333333"}, colors(h.Strokes()), "the clear's echo keeps later strokes")

	h.Append(after)
	assert.Zero(t, h.Pending())
	assert.Equal(t, []string{"#333333"}, colors(h.Confirmed()))
}

func TestHistoryDroppedEditsAreDiscarded(t *testing.T) {
	var h History
	h.Track(true)

	lost := testStroke("#111111")
	kept := testStroke("#222222")
	h.Commit(lost)
	h.Commit(kept)

	h.Append(kept)

	assert.Zero(t, h.Pending())
	assert.Equal(t, []string{"#222222"}, colors(h.Strokes()))
}

func TestHistoryPeerClearEmptiesRedo(t *testing.T) {
	var h History
	h.Track(true)

	s := testStroke("#111111")
	h.Commit(s)
	h.Append(s)
	h.Undo("u1")
	h.DropLast("u1")
	require.Equal(t, 1, h.RedoLen())

	h.Wipe("someone-else")
	assert.Zero(t, h.RedoLen())
}

func TestHistoryUntrackFoldsPending(t *testing.T) {
	var h History
	h.Track(true)

	h.Commit(testStroke("#111111"))
	h.Track(false)

	assert.Zero(t, h.Pending())
	assert.Equal(t, []string{"#111111"}, colors(h.Confirmed()))
}
