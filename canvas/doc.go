/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package canvas holds the drawing model shared by every client of a room.
//
// Strokes travel and are stored in a fixed virtual coordinate space
// (VirtualSpace). Each device maps its own pixels into that space with
// Normalize before sending and back out with ToLocal before painting, so a
// stroke drawn on a phone overlays the same region of a tablet's canvas.
// The axes scale independently, trading a little aspect distortion for
// coordinates that always stay inside the virtual bounds.
//
// A Board is one client's replica: the committed log with its redo stack,
// the live traces of other authors, and a Tracer that turns raw pointer
// samples into smoothed paths.
package canvas
