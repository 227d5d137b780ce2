/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package protocol defines the events exchanged between clients and the room server.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Seednode/scrawl/canvas"
)

// Event names. Events are sent both ways unless noted.
const (
	JoinRoom     = "join-room"  // client → server
	GetCanvas    = "get-canvas" // client → server
	DrawStroke   = "draw-stroke"
	DrawingMove  = "drawing-move"
	UndoStroke   = "undo-stroke"
	ClearCanvas  = "clear-canvas"
	SendMessage  = "send-message"    // client → server
	ReceiveMsg   = "receive-message" // server → client
	CheckRoom    = "check-room"
	LoadCanvas   = "load-canvas"   // server → client
	LoadMessages = "load-messages" // server → client
	RoomUsers    = "room-users"    // server → client
	UserJoined   = "user-joined"   // server → client
	UserLeft     = "user-left"     // server → client

	ReferenceImage   = "reference-image-update"
	ReferenceOpacity = "reference-opacity-update"
)

var ErrNoData = errors.New("event has no data")

// Envelope is the frame every event travels in. ID correlates a
// request with its response and is zero for fire-and-forget events.
type Envelope struct {
	Event string          `json:"event"`
	ID    uint64          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// New builds an envelope carrying data.
func New(event string, data any) (Envelope, error) {
	env := Envelope{Event: event}
	if data == nil {
		return env, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s: %w", event, err)
	}
	env.Data = raw

	return env, nil
}

// Decode unmarshals the envelope's data into v.
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return ErrNoData
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", e.Event, err)
	}

	return nil
}

// RoomID extracts the room an event addresses. Data may be an object with
// a roomId field or, as older clients send it, a bare string.
func (e Envelope) RoomID() string {
	var r Room
	if err := json.Unmarshal(e.Data, &r); err == nil {
		return r.RoomID
	}

	var s string
	if err := json.Unmarshal(e.Data, &s); err == nil {
		return s
	}

	return ""
}

// Join is sent by a client entering a room.
type Join struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

// Room addresses a room without further data: get-canvas and check-room
// requests.
type Room struct {
	RoomID string `json:"roomId"`
}

// Stroke carries a committed stroke or a live trace.
type Stroke struct {
	RoomID string `json:"roomId,omitempty"`
	canvas.Stroke
}

// Undo carries an undo request, or its rebroadcast with the undoer's id.
// ChangeID is chosen by the sender and echoed back unchanged.
type Undo struct {
	RoomID   string `json:"roomId,omitempty"`
	UserID   string `json:"userId,omitempty"`
	ChangeID string `json:"changeId,omitempty"`
}

// Clear carries a clear request or its rebroadcast, like Undo.
type Clear struct {
	RoomID   string `json:"roomId,omitempty"`
	UserID   string `json:"userId,omitempty"`
	ChangeID string `json:"changeId,omitempty"`
}

// ChatMessage is one entry of a room's chat.
type ChatMessage struct {
	RoomID    string `json:"roomId,omitempty"`
	Text      string `json:"message"`
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

// Exists answers check-room.
type Exists struct {
	Exists bool `json:"exists"`
}

// Presence announces a member joining or leaving.
type Presence struct {
	UserID string `json:"userId"`
}

// Reference is a backdrop image shared with the room for tracing over. It
// is relayed to the other members and never stored.
type Reference struct {
	RoomID    string  `json:"roomId,omitempty"`
	ImageData string  `json:"imageData,omitempty"`
	Opacity   float64 `json:"opacity"`
}
