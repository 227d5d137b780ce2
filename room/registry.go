/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"sort"
	"sync"
	"time"

	"github.com/Seednode/scrawl/canvas"
	"github.com/Seednode/scrawl/protocol"
)

// Registry owns every live room. It starts empty; a room is created by
// its first join and removed when its last member leaves. Operations on a
// room that does not exist, or from a connection that is not a member,
// are dropped silently.
//
// Lock order is Registry.mu, then Room.mu.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	logf func(format string, args ...any)
	now  func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger routes registry diagnostics to logf.
func WithLogger(logf func(format string, args ...any)) Option {
	return func(r *Registry) {
		r.logf = logf
	}
}

// WithClock overrides the clock used to stamp chat messages.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		rooms: make(map[string]*Room),
		logf:  func(string, ...any) {},
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// lookup returns the room with its lock held, or nil.
func (reg *Registry) lookup(roomID string) *Room {
	reg.mu.Lock()
	r := reg.rooms[roomID]
	reg.mu.Unlock()

	if r == nil {
		return nil
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}

	return r
}

func (reg *Registry) broadcast(r *Room, event string, data any, skip string) {
	env, err := protocol.New(event, data)
	if err != nil {
		reg.logf("ROOMS: Dropping %s in %s: %v", event, r.id, err)
		return
	}

	for _, id := range r.broadcastLocked(env, skip) {
		reg.logf("ROOMS: Connection %s in %s missed %s", id, r.id, event)
	}
}

// Join adds sub to roomID as userID, creating the room if needed, and
// returns the room's current strokes, chat and roster. The same state is
// queued to sub as load-canvas, load-messages and room-users ahead of any
// later room event. A member whose
// display-name key matches userID is taken to be a stale connection of
// the same participant: its slot is handed to sub and it stops receiving
// room events, without a leave notification.
func (reg *Registry) Join(roomID string, sub Subscriber, userID string) Snapshot {
	reg.mu.Lock()
	r := reg.rooms[roomID]
	if r == nil {
		r = newRoom(roomID)
		reg.rooms[roomID] = r
		reg.logf("ROOMS: Created %s", roomID)
	}
	r.mu.Lock()
	reg.mu.Unlock()
	defer r.mu.Unlock()

	m := Member{ConnID: sub.ID(), UserID: userID}

	for _, stale := range r.roster.SameName(m.Name(), m.ConnID) {
		r.roster.Remove(stale.ConnID)
		delete(r.subs, stale.ConnID)
		reg.logf("ROOMS: %q replaced stale connection %s in %s", userID, stale.ConnID, roomID)
	}

	r.roster.Add(m)
	r.subs[m.ConnID] = sub

	reg.logf("ROOMS: %q joined %s (%d connected)", userID, roomID, r.roster.Len())

	reg.broadcast(r, protocol.UserJoined, protocol.Presence{UserID: userID}, m.ConnID)

	snap := Snapshot{
		Strokes:  r.strokesLocked(),
		Messages: r.chat.Messages(),
		Users:    r.roster.Users(),
	}
	reg.greet(r.id, sub, snap)

	return snap
}

func (reg *Registry) greet(roomID string, sub Subscriber, snap Snapshot) {
	for _, e := range []struct {
		event string
		data  any
	}{
		{protocol.LoadCanvas, snap.Strokes},
		{protocol.LoadMessages, snap.Messages},
		{protocol.RoomUsers, snap.Users},
	} {
		env, err := protocol.New(e.event, e.data)
		if err != nil {
			reg.logf("ROOMS: Dropping %s in %s: %v", e.event, roomID, err)
			continue
		}
		if !sub.Deliver(env) {
			reg.logf("ROOMS: Connection %s in %s missed %s", sub.ID(), roomID, e.event)
		}
	}
}

// Leave removes connID from roomID and tells the remaining members. The
// room is deleted once nobody is left in it.
func (reg *Registry) Leave(roomID, connID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	r := reg.rooms[roomID]
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.roster.Remove(connID)
	delete(r.subs, connID)
	if ok {
		reg.logf("ROOMS: %q left %s (%d connected)", m.UserID, roomID, r.roster.Len())
		reg.broadcast(r, protocol.UserLeft, protocol.Presence{UserID: m.UserID}, connID)
	}

	if r.roster.Len() == 0 {
		r.closed = true
		delete(reg.rooms, roomID)
		reg.logf("ROOMS: Deleted %s (empty)", roomID)
	}
}

// Canvas returns the room's committed strokes in render order.
func (reg *Registry) Canvas(roomID string) ([]*canvas.Stroke, bool) {
	r := reg.lookup(roomID)
	if r == nil {
		return nil, false
	}
	defer r.mu.Unlock()

	return r.strokesLocked(), true
}

// Messages returns the room's retained chat.
func (reg *Registry) Messages(roomID string) ([]protocol.ChatMessage, bool) {
	r := reg.lookup(roomID)
	if r == nil {
		return nil, false
	}
	defer r.mu.Unlock()

	return r.chat.Messages(), true
}

// Users returns the room's roster in join order.
func (reg *Registry) Users(roomID string) ([]string, bool) {
	r := reg.lookup(roomID)
	if r == nil {
		return nil, false
	}
	defer r.mu.Unlock()

	return r.roster.Users(), true
}

// Exists reports whether roomID has at least one connected member.
func (reg *Registry) Exists(roomID string) bool {
	r := reg.lookup(roomID)
	if r == nil {
		return false
	}
	defer r.mu.Unlock()

	return r.roster.Len() > 0
}

// member returns the room and sender with the room lock held.
func (reg *Registry) member(roomID, connID, event string) (*Room, Member) {
	r := reg.lookup(roomID)
	if r == nil {
		reg.logf("ROOMS: Dropping %s for unknown room %s", event, roomID)
		return nil, Member{}
	}

	m, ok := r.roster.Get(connID)
	if !ok {
		r.mu.Unlock()
		reg.logf("ROOMS: Dropping %s from non-member %s of %s", event, connID, roomID)
		return nil, Member{}
	}

	return r, m
}

// Commit appends s to the room's log, attributed to the sender, and sends
// it to every member. The sender's copy is its confirmation of where the
// stroke landed in the log. Invalid strokes are dropped.
func (reg *Registry) Commit(roomID, connID string, s canvas.Stroke) (*canvas.Stroke, bool) {
	s.Path = s.Path.Sanitize()
	if err := s.Validate(); err != nil {
		reg.logf("ROOMS: Dropping stroke from %s in %s: %v", connID, roomID, err)
		return nil, false
	}

	r, m := reg.member(roomID, connID, protocol.DrawStroke)
	if r == nil {
		return nil, false
	}
	defer r.mu.Unlock()

	committed := s.WithAuthor(m.UserID)
	r.strokes = append(r.strokes, committed)

	reg.broadcast(r, protocol.DrawStroke, protocol.Stroke{Stroke: *committed}, "")

	return committed, true
}

// LiveTrace relays an in-progress stroke to the other members without
// recording it.
func (reg *Registry) LiveTrace(roomID, connID string, s canvas.Stroke) bool {
	s.Path = s.Path.Sanitize()
	if s.Validate() != nil {
		return false
	}

	r, m := reg.member(roomID, connID, protocol.DrawingMove)
	if r == nil {
		return false
	}
	defer r.mu.Unlock()

	s.AuthorID = m.UserID
	reg.broadcast(r, protocol.DrawingMove, protocol.Stroke{Stroke: s}, connID)

	return true
}

// Undo removes the most recent stroke, whoever drew it, and tells every
// member, echoing changeID. It reports whether a stroke was removed.
func (reg *Registry) Undo(roomID, connID, changeID string) bool {
	r, m := reg.member(roomID, connID, protocol.UndoStroke)
	if r == nil {
		return false
	}
	defer r.mu.Unlock()

	popped := false
	if n := len(r.strokes); n > 0 {
		r.strokes[n-1] = nil
		r.strokes = r.strokes[:n-1]
		popped = true
	}

	reg.broadcast(r, protocol.UndoStroke, protocol.Undo{UserID: m.UserID, ChangeID: changeID}, "")

	return popped
}

// Clear empties the room's log and tells every member, sender included,
// echoing changeID.
func (reg *Registry) Clear(roomID, connID, changeID string) bool {
	r, m := reg.member(roomID, connID, protocol.ClearCanvas)
	if r == nil {
		return false
	}
	defer r.mu.Unlock()

	r.strokes = nil
	reg.logf("ROOMS: %q cleared %s", m.UserID, roomID)

	reg.broadcast(r, protocol.ClearCanvas, protocol.Clear{UserID: m.UserID, ChangeID: changeID}, "")

	return true
}

// Relay passes data to the other members as event without storing it.
func (reg *Registry) Relay(roomID, connID, event string, data any) bool {
	r, _ := reg.member(roomID, connID, event)
	if r == nil {
		return false
	}
	defer r.mu.Unlock()

	reg.broadcast(r, event, data, connID)

	return true
}

// SendMessage appends a chat message, attributed to the sender, and
// relays it to the other members.
func (reg *Registry) SendMessage(roomID, connID string, msg protocol.ChatMessage) (protocol.ChatMessage, bool) {
	if msg.Text == "" {
		return protocol.ChatMessage{}, false
	}

	r, m := reg.member(roomID, connID, protocol.SendMessage)
	if r == nil {
		return protocol.ChatMessage{}, false
	}
	defer r.mu.Unlock()

	msg.RoomID = ""
	msg.UserID = m.UserID
	if msg.Timestamp == 0 {
		msg.Timestamp = reg.now().UnixMilli()
	}

	r.chat.Append(msg)

	reg.broadcast(r, protocol.ReceiveMsg, msg, connID)

	return msg, true
}

// Stats summarizes the registry.
type Stats struct {
	Rooms   int `json:"rooms"`
	Members int `json:"members"`
	Strokes int `json:"strokes"`
}

func (reg *Registry) Stats() Stats {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var s Stats
	for _, r := range reg.rooms {
		r.mu.Lock()
		s.Rooms++
		s.Members += r.roster.Len()
		s.Strokes += len(r.strokes)
		r.mu.Unlock()
	}

	return s
}

// Rooms lists the ids of live rooms.
func (reg *Registry) Rooms() []string {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	out := make([]string, 0, len(reg.rooms))
	for id := range reg.rooms {
		out = append(out, id)
	}
	sort.Strings(out)

	return out
}
