/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package room

import (
	"golang.org/x/exp/slices"

	"github.com/Seednode/scrawl/protocol"
)

// ChatLimit is the number of chat messages a room retains.
const ChatLimit = 100

// Chat is a bounded, ordered chat buffer. Once full, each new message
// evicts the oldest one.
type Chat struct {
	msgs []protocol.ChatMessage
}

// Append adds m, evicting the oldest message if the buffer is full.
func (c *Chat) Append(m protocol.ChatMessage) {
	if len(c.msgs) >= ChatLimit {
		n := copy(c.msgs, c.msgs[len(c.msgs)-ChatLimit+1:])
		c.msgs = c.msgs[:n]
	}

	c.msgs = append(c.msgs, m)
}

// Messages returns the retained messages, oldest first.
func (c *Chat) Messages() []protocol.ChatMessage {
	out := slices.Clone(c.msgs)
	if out == nil {
		out = []protocol.ChatMessage{}
	}

	return out
}

func (c *Chat) Len() int {
	return len(c.msgs)
}
