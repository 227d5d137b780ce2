/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package client

import (
	"context"
	"time"

	"github.com/Seednode/scrawl/canvas"
	"github.com/Seednode/scrawl/protocol"
)

// RoomState is what the server hands a client that joins a room.
type RoomState struct {
	Strokes  []*canvas.Stroke
	Messages []protocol.ChatMessage
	Users    []string
}

// CheckRoom asks whether roomID currently has anyone in it. Without a
// deadline on ctx, DefaultCheckTimeout applies; a missed deadline yields
// ErrUnreachable.
func (s *Session) CheckRoom(ctx context.Context, roomID string) (bool, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCheckTimeout)
		defer cancel()
	}

	reply, err := s.Request(ctx, protocol.CheckRoom, protocol.Room{RoomID: roomID})
	if err != nil {
		return false, err
	}

	var res protocol.Exists
	if err := reply.Decode(&res); err != nil {
		return false, err
	}

	return res.Exists, nil
}

// offer hands v to whoever waits on ch, keeping only the first value.
func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

// Join enters roomID as userID and waits for the room's strokes, chat
// and roster.
func (s *Session) Join(ctx context.Context, roomID, userID string) (RoomState, error) {
	var (
		strokes  = make(chan []*canvas.Stroke, 1)
		messages = make(chan []protocol.ChatMessage, 1)
		users    = make(chan []string, 1)
	)

	sc := s.NewScope()
	defer sc.Close()

	sc.On(protocol.LoadCanvas, func(env protocol.Envelope) {
		var v []*canvas.Stroke
		if env.Decode(&v) == nil {
			offer(strokes, v)
		}
	})
	sc.On(protocol.LoadMessages, func(env protocol.Envelope) {
		var v []protocol.ChatMessage
		if env.Decode(&v) == nil {
			offer(messages, v)
		}
	})
	sc.On(protocol.RoomUsers, func(env protocol.Envelope) {
		var v []string
		if env.Decode(&v) == nil {
			offer(users, v)
		}
	})

	if err := s.Emit(protocol.JoinRoom, protocol.Join{RoomID: roomID, UserID: userID}); err != nil {
		return RoomState{}, err
	}

	var (
		state            RoomState
		gotS, gotM, gotU bool
	)

	for !(gotS && gotM && gotU) {
		select {
		case state.Strokes = <-strokes:
			gotS, strokes = true, nil
		case state.Messages = <-messages:
			gotM, messages = true, nil
		case state.Users = <-users:
			gotU, users = true, nil
		case <-s.done:
			return RoomState{}, ErrUnreachable
		case <-ctx.Done():
			return RoomState{}, ErrUnreachable
		}
	}

	return state, nil
}

// JoinExisting joins roomID only if it already has members, reporting
// ErrRoomNotFound otherwise.
func (s *Session) JoinExisting(ctx context.Context, roomID, userID string) (RoomState, error) {
	ok, err := s.CheckRoom(ctx, roomID)
	if err != nil {
		return RoomState{}, err
	}
	if !ok {
		return RoomState{}, ErrRoomNotFound
	}

	return s.Join(ctx, roomID, userID)
}

// GetCanvas fetches the room's authoritative stroke log. The server does
// not answer for unknown rooms, so the call then ends with ctx.
func (s *Session) GetCanvas(ctx context.Context, roomID string) ([]*canvas.Stroke, error) {
	got := make(chan []*canvas.Stroke, 1)

	sc := s.NewScope()
	defer sc.Close()

	sc.On(protocol.LoadCanvas, func(env protocol.Envelope) {
		var strokes []*canvas.Stroke
		_ = env.Decode(&strokes)
		offer(got, strokes)
	})

	if err := s.Emit(protocol.GetCanvas, protocol.Room{RoomID: roomID}); err != nil {
		return nil, err
	}

	select {
	case strokes := <-got:
		return strokes, nil
	case <-s.done:
		return nil, ErrUnreachable
	case <-ctx.Done():
		return nil, ErrUnreachable
	}
}

// Commit sends a finished stroke.
func (s *Session) Commit(roomID string, st *canvas.Stroke) error {
	return s.Emit(protocol.DrawStroke, protocol.Stroke{RoomID: roomID, Stroke: *st})
}

// Trace sends an in-progress stroke for live preview.
func (s *Session) Trace(roomID string, st *canvas.Stroke) error {
	return s.Emit(protocol.DrawingMove, protocol.Stroke{RoomID: roomID, Stroke: *st})
}

// Undo asks the room to drop its latest stroke. changeID comes back in
// the room's rebroadcast.
func (s *Session) Undo(roomID, changeID string) error {
	return s.Emit(protocol.UndoStroke, protocol.Undo{RoomID: roomID, ChangeID: changeID})
}

func (s *Session) Clear(roomID, changeID string) error {
	return s.Emit(protocol.ClearCanvas, protocol.Clear{RoomID: roomID, ChangeID: changeID})
}

// ShareReference shows imageData, usually a data URI, behind the other
// members' canvases at the given opacity.
func (s *Session) ShareReference(roomID, imageData string, opacity float64) error {
	return s.Emit(protocol.ReferenceImage, protocol.Reference{RoomID: roomID, ImageData: imageData, Opacity: opacity})
}

func (s *Session) SetReferenceOpacity(roomID string, opacity float64) error {
	return s.Emit(protocol.ReferenceOpacity, protocol.Reference{RoomID: roomID, Opacity: opacity})
}

// SendMessage posts text to the room's chat.
func (s *Session) SendMessage(roomID, userID, text string) (protocol.ChatMessage, error) {
	msg := protocol.ChatMessage{
		RoomID:    roomID,
		Text:      text,
		UserID:    userID,
		Timestamp: time.Now().UnixMilli(),
	}

	return msg, s.Emit(protocol.SendMessage, msg)
}

// roomEmitter sends a board's local actions to one room.
type roomEmitter struct {
	s      *Session
	roomID string
}

func (e roomEmitter) CommitStroke(st *canvas.Stroke) { _ = e.s.Commit(e.roomID, st) }
func (e roomEmitter) LiveTrace(st *canvas.Stroke)    { _ = e.s.Trace(e.roomID, st) }
func (e roomEmitter) Undo(id string)                 { _ = e.s.Undo(e.roomID, id) }
func (e roomEmitter) Clear(id string)                { _ = e.s.Clear(e.roomID, id) }

// Attach keeps board in step with roomID: the board's local actions are
// sent to the room and the room's events are applied to the board. The
// returned scope detaches the board when closed.
func (s *Session) Attach(roomID string, board *canvas.Board) *Scope {
	sc := s.NewScope()

	sc.On(protocol.DrawStroke, func(env protocol.Envelope) {
		var st canvas.Stroke
		if env.Decode(&st) == nil {
			board.ApplyStroke(&st)
		}
	})
	sc.On(protocol.DrawingMove, func(env protocol.Envelope) {
		var st canvas.Stroke
		if env.Decode(&st) == nil {
			board.ApplyTrace(&st)
		}
	})
	sc.On(protocol.UndoStroke, func(env protocol.Envelope) {
		var u protocol.Undo
		_ = env.Decode(&u)
		board.ApplyUndo(u.UserID, u.ChangeID)
	})
	sc.On(protocol.ClearCanvas, func(env protocol.Envelope) {
		var c protocol.Clear
		_ = env.Decode(&c)
		board.ApplyClear(c.ChangeID)
	})
	sc.On(protocol.LoadCanvas, func(env protocol.Envelope) {
		var strokes []*canvas.Stroke
		if env.Decode(&strokes) == nil {
			board.Load(strokes)
		}
	})

	board.SetEmitter(roomEmitter{s: s, roomID: roomID})
	sc.Defer(func() { board.SetEmitter(nil) })

	return sc
}
