/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package canvas

import "sort"

// Ghosts holds the live, uncommitted trace of each remote author. There is
// at most one trace per author; a newer trace replaces the older one.
type Ghosts struct {
	traces map[string]*Stroke
}

// Set records author's in-progress stroke.
func (g *Ghosts) Set(author string, s *Stroke) {
	if author == "" || s == nil {
		return
	}
	if g.traces == nil {
		g.traces = make(map[string]*Stroke)
	}

	g.traces[author] = s
}

// Drop removes author's trace, if any.
func (g *Ghosts) Drop(author string) {
	delete(g.traces, author)
}

// Reset removes every trace.
func (g *Ghosts) Reset() {
	clear(g.traces)
}

// Get returns author's current trace.
func (g *Ghosts) Get(author string) (*Stroke, bool) {
	s, ok := g.traces[author]

	return s, ok
}

func (g *Ghosts) Len() int {
	return len(g.traces)
}

// Authors lists authors with a live trace, sorted for stable rendering.
func (g *Ghosts) Authors() []string {
	out := make([]string, 0, len(g.traces))
	for a := range g.traces {
		out = append(out, a)
	}
	sort.Strings(out)

	return out
}
