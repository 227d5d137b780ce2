/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package canvas

import "errors"

var (
	ErrEmptyPath    = errors.New("stroke path is empty")
	ErrInvalidWidth = errors.New("stroke width must be positive")
	ErrMissingColor = errors.New("stroke color is missing")
)

// Stroke is one committed pen gesture, in virtual canvas coordinates.
// A committed Stroke is shared by reference and must not be modified.
// ID is chosen by the drawing client so it can recognize the room's echo.
type Stroke struct {
	ID       string  `json:"id,omitempty"`
	Path     Path    `json:"path"`
	Color    string  `json:"color"`
	Width    float64 `json:"strokeWidth"`
	AuthorID string  `json:"userId,omitempty"`
	IsEraser bool    `json:"isEraser"`
}

// Validate reports why a stroke cannot be committed.
func (s *Stroke) Validate() error {
	switch {
	case len(s.Path) == 0:
		return ErrEmptyPath
	case !(s.Width > 0) || !finite(s.Width):
		return ErrInvalidWidth
	case s.Color == "":
		return ErrMissingColor
	}

	return nil
}

// WithAuthor returns a copy of the stroke attributed to author.
func (s Stroke) WithAuthor(author string) *Stroke {
	s.Path = s.Path.Clone()
	s.AuthorID = author

	return &s
}

// Local returns a copy of the stroke mapped into viewport pixels.
func (s *Stroke) Local(viewport Space) *Stroke {
	out := *s
	out.Path = ToLocal(s.Path, viewport)

	return &out
}
