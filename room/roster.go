/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import "strings"

// Member is one connection present in a room.
type Member struct {
	ConnID string // opaque, assigned by the server per connection
	UserID string // identity supplied by the client
}

// Name returns the display-name key used to recognize a reconnecting
// participant: the user id up to its first '-', lower-cased.
func (m Member) Name() string {
	return NameKey(m.UserID)
}

// NameKey derives the display-name key of a user id such as "alice-k3f9".
func NameKey(userID string) string {
	name, _, _ := strings.Cut(userID, "-")

	return strings.ToLower(strings.TrimSpace(name))
}

// Roster is the ordered set of members in a room, in join order.
type Roster struct {
	members []Member
}

// Add appends m, replacing any existing entry for the same connection.
func (r *Roster) Add(m Member) {
	for i := range r.members {
		if r.members[i].ConnID == m.ConnID {
			r.members[i] = m
			return
		}
	}

	r.members = append(r.members, m)
}

// Remove deletes the member with the given connection id.
func (r *Roster) Remove(connID string) (Member, bool) {
	for i, m := range r.members {
		if m.ConnID == connID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return m, true
		}
	}

	return Member{}, false
}

func (r *Roster) Get(connID string) (Member, bool) {
	for _, m := range r.members {
		if m.ConnID == connID {
			return m, true
		}
	}

	return Member{}, false
}

// SameName returns the members, other than connID, sharing name's key.
func (r *Roster) SameName(name, connID string) []Member {
	var out []Member

	for _, m := range r.members {
		if m.ConnID != connID && m.Name() == name {
			out = append(out, m)
		}
	}

	return out
}

// Users lists member user ids in join order.
func (r *Roster) Users() []string {
	out := make([]string, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m.UserID)
	}

	return out
}

func (r *Roster) Len() int {
	return len(r.members)
}
