/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package client

import (
	"sync"

	"golang.org/x/exp/slices"

	"github.com/Seednode/scrawl/protocol"
	"github.com/Seednode/scrawl/room"
)

// Presence mirrors a room's roster on the client, keeping one entry per
// display name so a participant who reconnects replaces their old entry.
type Presence struct {
	mu    sync.Mutex
	users []string

	// OnJoin and OnLeave, if set, are called for other participants.
	OnJoin  func(userID string)
	OnLeave func(userID string)

	self string
}

// NewPresence returns a roster that treats self as the local participant.
func NewPresence(self string) *Presence {
	return &Presence{self: self}
}

// Reset replaces the roster, collapsing entries that share a name.
func (p *Presence) Reset(users []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.users = p.users[:0]
	for _, u := range users {
		p.upsertLocked(u)
	}
}

func (p *Presence) upsertLocked(userID string) {
	key := room.NameKey(userID)
	for i, u := range p.users {
		if room.NameKey(u) == key {
			p.users[i] = userID
			return
		}
	}

	p.users = append(p.users, userID)
}

// Joined records a participant's arrival.
func (p *Presence) Joined(userID string) {
	p.mu.Lock()
	p.upsertLocked(userID)
	p.mu.Unlock()

	if p.OnJoin != nil && room.NameKey(userID) != room.NameKey(p.self) {
		p.OnJoin(userID)
	}
}

// Left records a participant's departure.
func (p *Presence) Left(userID string) {
	key := room.NameKey(userID)

	p.mu.Lock()
	p.users = slices.DeleteFunc(p.users, func(u string) bool {
		return room.NameKey(u) == key
	})
	p.mu.Unlock()

	if p.OnLeave != nil && key != room.NameKey(p.self) {
		p.OnLeave(userID)
	}
}

// Users returns the roster in arrival order.
func (p *Presence) Users() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.users)
}

// Track keeps p current with the session's presence events until the
// returned scope is closed.
func (s *Session) Track(p *Presence) *Scope {
	sc := s.NewScope()

	sc.On(protocol.RoomUsers, func(env protocol.Envelope) {
		var users []string
		if env.Decode(&users) == nil {
			p.Reset(users)
		}
	})
	sc.On(protocol.UserJoined, func(env protocol.Envelope) {
		var pr protocol.Presence
		if env.Decode(&pr) == nil {
			p.Joined(pr.UserID)
		}
	})
	sc.On(protocol.UserLeft, func(env protocol.Envelope) {
		var pr protocol.Presence
		if env.Decode(&pr) == nil {
			p.Left(pr.UserID)
		}
	})

	return sc
}
