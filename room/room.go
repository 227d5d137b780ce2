/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package room implements the authoritative, in-memory room sessions.
package room

import (
	"sync"

	"golang.org/x/exp/slices"

	"github.com/Seednode/scrawl/canvas"
	"github.com/Seednode/scrawl/protocol"
)

// Subscriber is one connection's inbound event stream. Deliver must not
// block; it reports false when the event could not be queued.
type Subscriber interface {
	ID() string
	Deliver(env protocol.Envelope) bool
}

// Snapshot is the state handed to a joining member.
type Snapshot struct {
	Strokes  []*canvas.Stroke
	Messages []protocol.ChatMessage
	Users    []string
}

// Room is one shared canvas. Every mutation and the fan-out of its event
// happen under mu, so members observe events in log order.
type Room struct {
	id string

	mu      sync.Mutex
	strokes []*canvas.Stroke
	roster  Roster
	chat    Chat
	subs    map[string]Subscriber
	closed  bool
}

func newRoom(id string) *Room {
	return &Room{
		id:   id,
		subs: make(map[string]Subscriber),
	}
}

func (r *Room) ID() string {
	return r.id
}

func (r *Room) strokesLocked() []*canvas.Stroke {
	out := slices.Clone(r.strokes)
	if out == nil {
		out = []*canvas.Stroke{}
	}

	return out
}

// broadcastLocked sends env to every subscriber except skip.
func (r *Room) broadcastLocked(env protocol.Envelope, skip string) []string {
	var dropped []string

	for id, sub := range r.subs {
		if id == skip {
			continue
		}
		if !sub.Deliver(env) {
			dropped = append(dropped, id)
		}
	}

	return dropped
}
