/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/scrawl/canvas"
	"github.com/Seednode/scrawl/protocol"
)

type fakeSub struct {
	id string

	mu     sync.Mutex
	events []protocol.Envelope
	full   bool
}

func newSub(id string) *fakeSub {
	return &fakeSub{id: id}
}

func (s *fakeSub) ID() string {
	return s.id
}

func (s *fakeSub) Deliver(env protocol.Envelope) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.full {
		return false
	}
	s.events = append(s.events, env)

	return true
}

// named returns the received events called event, in order.
func (s *fakeSub) named(event string) []protocol.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []protocol.Envelope
	for _, e := range s.events {
		if e.Event == event {
			out = append(out, e)
		}
	}

	return out
}

func (s *fakeSub) reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}

func stroke(color string) canvas.Stroke {
	return canvas.Stroke{
		Path:  canvas.ParseSVG("M 0 0 L 10 10"),
		Color: color,
		Width: 4,
	}
}

func TestJoinCreatesRoom(t *testing.T) {
	reg := NewRegistry()
	a := newSub("conn-a")

	assert.False(t, reg.Exists("12345"))

	snap := reg.Join("12345", a, "ana-1")

	assert.True(t, reg.Exists("12345"))
	assert.Empty(t, snap.Strokes)
	assert.NotNil(t, snap.Strokes)
	assert.Empty(t, snap.Messages)
	assert.Equal(t, []string{"ana-1"}, snap.Users)

	require.Len(t, a.events, 3)
	assert.Equal(t, protocol.LoadCanvas, a.events[0].Event)
	assert.Equal(t, protocol.LoadMessages, a.events[1].Event)
	assert.Equal(t, protocol.RoomUsers, a.events[2].Event)
	assert.JSONEq(t, `[]`, string(a.events[0].Data))
	assert.JSONEq(t, `["ana-1"]`, string(a.events[2].Data))

	assert.Equal(t, []string{"12345"}, reg.Rooms())
}

func TestJoinExistingRoom(t *testing.T) {
	reg := NewRegistry()
	a, b := newSub("conn-a"), newSub("conn-b")

	reg.Join("room", a, "ana-1")
	_, ok := reg.Commit("room", "conn-a", stroke("#ff0000"))
	require.True(t, ok)
	_, ok = reg.SendMessage("room", "conn-a", protocol.ChatMessage{Text: "hi"})
	require.True(t, ok)

	snap := reg.Join("room", b, "bo-2")

	require.Len(t, snap.Strokes, 1)
	assert.Equal(t, "ana-1", snap.Strokes[0].AuthorID)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "hi", snap.Messages[0].Text)
	assert.Equal(t, []string{"ana-1", "bo-2"}, snap.Users)

	joined := a.named(protocol.UserJoined)
	require.Len(t, joined, 1)
	var p protocol.Presence
	require.NoError(t, joined[0].Decode(&p))
	assert.Equal(t, "bo-2", p.UserID)

	assert.Empty(t, b.named(protocol.UserJoined), "joiner is not told about itself")
}

func TestCommitAndUndo(t *testing.T) {
	reg := NewRegistry()
	a, b := newSub("conn-a"), newSub("conn-b")

	reg.Join("room", a, "ana-1")
	reg.Join("room", b, "bo-2")

	for i := 0; i < 5; i++ {
		_, ok := reg.Commit("room", "conn-a", stroke(fmt.Sprintf("#00000%d", i)))
		require.True(t, ok)
	}

	assert.Len(t, b.named(protocol.DrawStroke), 5)
	assert.Len(t, a.named(protocol.DrawStroke), 5, "the sender's echo confirms each stroke")

	require.True(t, reg.Undo("room", "conn-b", "undo-1"), "anyone can undo the latest stroke")

	strokes, ok := reg.Canvas("room")
	require.True(t, ok)
	require.Len(t, strokes, 4)
	assert.Equal(t, "#000003", strokes[3].Color)

	undos := a.named(protocol.UndoStroke)
	require.Len(t, undos, 1)
	var u protocol.Undo
	require.NoError(t, undos[0].Decode(&u))
	assert.Equal(t, "bo-2", u.UserID)
	assert.Equal(t, "undo-1", u.ChangeID)

	echo := b.named(protocol.UndoStroke)
	require.Len(t, echo, 1)
	require.NoError(t, echo[0].Decode(&u))
	assert.Equal(t, "undo-1", u.ChangeID)
}

func TestEchoesFollowLogOrder(t *testing.T) {
	reg := NewRegistry()
	a, b := newSub("conn-a"), newSub("conn-b")

	reg.Join("room", a, "ana-1")
	reg.Join("room", b, "bo-2")

	sa, sb := stroke("#aa0000"), stroke("#bb0000")
	sa.ID, sb.ID = "stroke-a", "stroke-b"

	reg.Commit("room", "conn-a", sa)
	reg.Commit("room", "conn-b", sb)

	ids := func(sub *fakeSub) []string {
		var out []string
		for _, env := range sub.named(protocol.DrawStroke) {
			var s canvas.Stroke
			require.NoError(t, env.Decode(&s))
			out = append(out, s.ID)
		}
		return out
	}

	assert.Equal(t, []string{"stroke-a", "stroke-b"}, ids(a))
	assert.Equal(t, ids(a), ids(b), "every member sees one order")
}

func TestUndoOnEmptyLog(t *testing.T) {
	reg := NewRegistry()
	a, b := newSub("conn-a"), newSub("conn-b")

	reg.Join("room", a, "ana-1")
	reg.Join("room", b, "bo-2")

	assert.False(t, reg.Undo("room", "conn-a", ""))
	assert.Len(t, b.named(protocol.UndoStroke), 1, "undo is relayed even with nothing to pop")
}

func TestCommitStampsAuthor(t *testing.T) {
	reg := NewRegistry()
	a, b := newSub("conn-a"), newSub("conn-b")

	reg.Join("room", a, "ana-1")
	reg.Join("room", b, "bo-2")

	s := stroke("#ff0000")
	s.AuthorID = "mallory-9"

	committed, ok := reg.Commit("room", "conn-a", s)
	require.True(t, ok)
	assert.Equal(t, "ana-1", committed.AuthorID)

	got := b.named(protocol.DrawStroke)
	require.Len(t, got, 1)
	var relayed canvas.Stroke
	require.NoError(t, got[0].Decode(&relayed))
	assert.Equal(t, "ana-1", relayed.AuthorID)
	assert.Equal(t, s.Path, relayed.Path)
}

func TestCommitRejectsInvalidStrokes(t *testing.T) {
	reg := NewRegistry()
	a := newSub("conn-a")
	reg.Join("room", a, "ana-1")

	tests := []struct {
		name   string
		stroke canvas.Stroke
	}{
		{"empty path", canvas.Stroke{Color: "#000000", Width: 1}},
		{"zero width", canvas.Stroke{Path: canvas.ParseSVG("M 0 0"), Color: "#000000"}},
		{"no color", canvas.Stroke{Path: canvas.ParseSVG("M 0 0"), Width: 1}},
		{"only drawing commands", canvas.Stroke{Path: canvas.Path{{Op: canvas.OpLine, X: 1, Y: 1}}, Color: "#000000", Width: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := reg.Commit("room", "conn-a", tt.stroke)
			assert.False(t, ok)
		})
	}

	strokes, _ := reg.Canvas("room")
	assert.Empty(t, strokes)
}

func TestNonMembersAreIgnored(t *testing.T) {
	reg := NewRegistry()
	a := newSub("conn-a")
	reg.Join("room", a, "ana-1")
	a.reset()

	_, ok := reg.Commit("room", "conn-x", stroke("#ff0000"))
	assert.False(t, ok)
	assert.False(t, reg.Undo("room", "conn-x", ""))
	assert.False(t, reg.Clear("room", "conn-x", ""))
	assert.False(t, reg.Relay("room", "conn-x", protocol.ReferenceOpacity, protocol.Reference{Opacity: 0.5}))
	assert.False(t, reg.LiveTrace("room", "conn-x", stroke("#ff0000")))
	_, ok = reg.SendMessage("room", "conn-x", protocol.ChatMessage{Text: "hi"})
	assert.False(t, ok)

	_, ok = reg.Commit("nowhere", "conn-a", stroke("#ff0000"))
	assert.False(t, ok)

	assert.Empty(t, a.events)
}

func TestClearReachesEveryone(t *testing.T) {
	reg := NewRegistry()
	a, b := newSub("conn-a"), newSub("conn-b")

	reg.Join("room", a, "ana-1")
	reg.Join("room", b, "bo-2")
	reg.Commit("room", "conn-a", stroke("#ff0000"))

	require.True(t, reg.Clear("room", "conn-a", "clear-1"))

	strokes, _ := reg.Canvas("room")
	assert.Empty(t, strokes)
	assert.Len(t, a.named(protocol.ClearCanvas), 1)
	clears := b.named(protocol.ClearCanvas)
	require.Len(t, clears, 1)

	var c protocol.Clear
	require.NoError(t, clears[0].Decode(&c))
	assert.Equal(t, protocol.Clear{UserID: "ana-1", ChangeID: "clear-1"}, c)

	assert.False(t, reg.Undo("room", "conn-a", ""), "cleared strokes cannot be undone")
}

func TestRelayReachesOthersOnly(t *testing.T) {
	reg := NewRegistry()
	a, b := newSub("conn-a"), newSub("conn-b")

	reg.Join("room", a, "ana-1")
	reg.Join("room", b, "bo-2")

	ref := protocol.Reference{ImageData: "data:image/png;base64,AAAA", Opacity: 0.4}
	require.True(t, reg.Relay("room", "conn-a", protocol.ReferenceImage, ref))

	got := b.named(protocol.ReferenceImage)
	require.Len(t, got, 1)
	var relayed protocol.Reference
	require.NoError(t, got[0].Decode(&relayed))
	assert.Equal(t, ref, relayed)

	assert.Empty(t, a.named(protocol.ReferenceImage))
	assert.Equal(t, Stats{Rooms: 1, Members: 2}, reg.Stats(), "relays are not stored")
}

func TestLiveTraceIsNotRecorded(t *testing.T) {
	reg := NewRegistry()
	a, b := newSub("conn-a"), newSub("conn-b")

	reg.Join("room", a, "ana-1")
	reg.Join("room", b, "bo-2")

	require.True(t, reg.LiveTrace("room", "conn-a", stroke("#ff0000")))

	traces := b.named(protocol.DrawingMove)
	require.Len(t, traces, 1)
	var s canvas.Stroke
	require.NoError(t, traces[0].Decode(&s))
	assert.Equal(t, "ana-1", s.AuthorID)

	strokes, _ := reg.Canvas("room")
	assert.Empty(t, strokes)
}

func TestChat(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	reg := NewRegistry(WithClock(func() time.Time { return now }))
	a, b := newSub("conn-a"), newSub("conn-b")

	reg.Join("room", a, "ana-1")
	reg.Join("room", b, "bo-2")

	t.Run("stamps author and time", func(t *testing.T) {
		msg, ok := reg.SendMessage("room", "conn-a", protocol.ChatMessage{RoomID: "room", Text: "hello", UserID: "someone-else"})
		require.True(t, ok)
		assert.Equal(t, "ana-1", msg.UserID)
		assert.Equal(t, now.UnixMilli(), msg.Timestamp)
		assert.Empty(t, msg.RoomID)

		got := b.named(protocol.ReceiveMsg)
		require.Len(t, got, 1)
		assert.Empty(t, a.named(protocol.ReceiveMsg))
	})

	t.Run("keeps client timestamp", func(t *testing.T) {
		msg, ok := reg.SendMessage("room", "conn-a", protocol.ChatMessage{Text: "again", Timestamp: 42})
		require.True(t, ok)
		assert.Equal(t, int64(42), msg.Timestamp)
	})

	t.Run("drops empty text", func(t *testing.T) {
		_, ok := reg.SendMessage("room", "conn-a", protocol.ChatMessage{})
		assert.False(t, ok)
	})

	t.Run("retains the newest hundred", func(t *testing.T) {
		for i := 0; i < 150; i++ {
			_, ok := reg.SendMessage("room", "conn-b", protocol.ChatMessage{Text: fmt.Sprintf("msg %d", i)})
			require.True(t, ok)
		}

		msgs, ok := reg.Messages("room")
		require.True(t, ok)
		require.Len(t, msgs, ChatLimit)
		assert.Equal(t, "msg 50", msgs[0].Text)
		assert.Equal(t, "msg 149", msgs[ChatLimit-1].Text)
	})
}

func TestLeaveDeletesEmptyRoom(t *testing.T) {
	reg := NewRegistry()
	a, b := newSub("conn-a"), newSub("conn-b")

	reg.Join("room", a, "ana-1")
	reg.Join("room", b, "bo-2")
	reg.Commit("room", "conn-a", stroke("#ff0000"))

	reg.Leave("room", "conn-b")

	left := a.named(protocol.UserLeft)
	require.Len(t, left, 1)
	var p protocol.Presence
	require.NoError(t, left[0].Decode(&p))
	assert.Equal(t, "bo-2", p.UserID)

	users, _ := reg.Users("room")
	assert.Equal(t, []string{"ana-1"}, users)

	reg.Leave("room", "conn-a")
	assert.False(t, reg.Exists("room"))
	assert.Empty(t, reg.Rooms())

	_, ok := reg.Canvas("room")
	assert.False(t, ok)

	snap := reg.Join("room", b, "bo-2")
	assert.Empty(t, snap.Strokes, "a recreated room starts blank")

	reg.Leave("missing", "conn-a")
}

func TestReconnectReplacesStaleMember(t *testing.T) {
	reg := NewRegistry()
	a, stale, fresh := newSub("conn-a"), newSub("conn-old"), newSub("conn-new")

	reg.Join("room", a, "ana-1")
	reg.Join("room", stale, "Bo-1111")
	a.reset()

	snap := reg.Join("room", fresh, "bo-2222")

	assert.Equal(t, []string{"ana-1", "bo-2222"}, snap.Users)
	assert.Empty(t, a.named(protocol.UserLeft), "the stale member leaves silently")
	assert.Len(t, a.named(protocol.UserJoined), 1)

	stale.reset()
	reg.Commit("room", "conn-a", stroke("#ff0000"))
	assert.Empty(t, stale.events, "the stale connection is detached")
	assert.Len(t, fresh.named(protocol.DrawStroke), 1)

	reg.Leave("room", "conn-old")
	assert.Empty(t, a.named(protocol.UserLeft))
	assert.True(t, reg.Exists("room"))
}

func TestRejoinSameConnection(t *testing.T) {
	reg := NewRegistry()
	a := newSub("conn-a")

	reg.Join("room", a, "ana-1")
	snap := reg.Join("room", a, "ana-1")

	assert.Equal(t, []string{"ana-1"}, snap.Users)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	var logged []string
	reg := NewRegistry(WithLogger(func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	}))
	a, b := newSub("conn-a"), newSub("conn-b")

	reg.Join("room", a, "ana-1")
	reg.Join("room", b, "bo-2")
	b.full = true

	_, ok := reg.Commit("room", "conn-a", stroke("#ff0000"))
	assert.True(t, ok)
	assert.Contains(t, logged, "ROOMS: Connection conn-b in room missed draw-stroke")
}

func TestConcurrentCommits(t *testing.T) {
	reg := NewRegistry()

	const writers, each = 8, 50

	watcher := newSub("watcher")
	reg.Join("room", watcher, "watcher-0")

	for i := 0; i < writers; i++ {
		reg.Join("room", newSub(fmt.Sprintf("conn-%d", i)), fmt.Sprintf("user%d-x", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < each; j++ {
				reg.Commit("room", fmt.Sprintf("conn-%d", i), stroke("#000000"))
				if j%10 == 0 {
					reg.LiveTrace("room", fmt.Sprintf("conn-%d", i), stroke("#000000"))
				}
			}
		}(i)
	}
	wg.Wait()

	strokes, ok := reg.Canvas("room")
	require.True(t, ok)
	assert.Len(t, strokes, writers*each)
	assert.Len(t, watcher.named(protocol.DrawStroke), writers*each)

	stats := reg.Stats()
	assert.Equal(t, Stats{Rooms: 1, Members: writers + 1, Strokes: writers * each}, stats)
}

func TestConcurrentJoinLeave(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("conn-%d", i)
			reg.Join("room", newSub(id), fmt.Sprintf("user%d", i))
			reg.Commit("room", id, stroke("#000000"))
			reg.Leave("room", id)
		}(i)
	}
	wg.Wait()

	assert.False(t, reg.Exists("room"))
	assert.Equal(t, Stats{}, reg.Stats())
}
