/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package client connects to a scrawl server and keeps a local board in
// step with a room.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Seednode/scrawl/protocol"
)

// DefaultCheckTimeout bounds a check-room exchange when the caller's
// context has no deadline of its own.
const DefaultCheckTimeout = 2 * time.Second

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

var (
	ErrClosed       = errors.New("session closed")
	ErrRoomNotFound = errors.New("room not found")
	ErrUnreachable  = errors.New("server unreachable")
)

// Handler receives one inbound event.
type Handler func(env protocol.Envelope)

// Session is one WebSocket connection to a scrawl server. Events are sent
// fire-and-forget; inbound events are dispatched to subscribed handlers
// on the session's read goroutine, in arrival order.
type Session struct {
	conn *websocket.Conn
	send chan protocol.Envelope

	done      chan struct{}
	closeOnce sync.Once
	err       atomic.Value

	mu       sync.Mutex
	handlers map[string]map[uint64]Handler
	pending  map[uint64]chan protocol.Envelope
	nextID   uint64
}

// Dial connects to the WebSocket endpoint at url, e.g.
// "ws://localhost:8080/ws". Failing to connect is reported as
// ErrUnreachable.
func Dial(ctx context.Context, url string) (*Session, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	s := &Session{
		conn:     conn,
		send:     make(chan protocol.Envelope, sendBuffer),
		done:     make(chan struct{}),
		handlers: make(map[string]map[uint64]Handler),
		pending:  make(map[uint64]chan protocol.Envelope),
	}

	go s.readLoop()
	go s.writeLoop()

	return s, nil
}

// Done is closed once the session has ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the reason the session ended, if it has.
func (s *Session) Err() error {
	if err, ok := s.err.Load().(error); ok {
		return err
	}

	return nil
}

// Close ends the session.
func (s *Session) Close() error {
	s.shutdown(ErrClosed)

	return nil
}

func (s *Session) shutdown(reason error) {
	s.closeOnce.Do(func() {
		s.err.Store(reason)
		close(s.done)

		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = s.conn.Close()
	})
}

func (s *Session) readLoop() {
	for {
		var env protocol.Envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Code == websocket.CloseNormalClosure {
				s.shutdown(ErrClosed)
			} else {
				s.shutdown(fmt.Errorf("%w: %v", ErrUnreachable, err))
			}
			return
		}

		s.dispatch(env)
	}
}

func (s *Session) dispatch(env protocol.Envelope) {
	s.mu.Lock()
	if env.ID != 0 {
		if ch, ok := s.pending[env.ID]; ok {
			delete(s.pending, env.ID)
			s.mu.Unlock()
			ch <- env
			return
		}
	}

	hs := make([]Handler, 0, len(s.handlers[env.Event]))
	for _, h := range s.handlers[env.Event] {
		hs = append(hs, h)
	}
	s.mu.Unlock()

	for _, h := range hs {
		h(env)
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case env := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(env); err != nil {
				s.shutdown(fmt.Errorf("%w: %v", ErrUnreachable, err))
				return
			}
		}
	}
}

func (s *Session) enqueue(env protocol.Envelope) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	select {
	case s.send <- env:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// Emit sends event with data without waiting for any reply.
func (s *Session) Emit(event string, data any) error {
	env, err := protocol.New(event, data)
	if err != nil {
		return err
	}

	return s.enqueue(env)
}

// Request sends event and waits for the reply carrying the same id. If
// no reply arrives before ctx ends, the server is reported unreachable.
func (s *Session) Request(ctx context.Context, event string, data any) (protocol.Envelope, error) {
	env, err := protocol.New(event, data)
	if err != nil {
		return protocol.Envelope{}, err
	}

	reply := make(chan protocol.Envelope, 1)

	s.mu.Lock()
	s.nextID++
	env.ID = s.nextID
	s.pending[env.ID] = reply
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, env.ID)
		s.mu.Unlock()
	}()

	if err := s.enqueue(env); err != nil {
		return protocol.Envelope{}, err
	}

	select {
	case r := <-reply:
		return r, nil
	case <-s.done:
		return protocol.Envelope{}, ErrUnreachable
	case <-ctx.Done():
		return protocol.Envelope{}, fmt.Errorf("%w: %v", ErrUnreachable, ctx.Err())
	}
}

// Subscribe registers h for event. The returned function removes it and
// is safe to call more than once.
func (s *Session) Subscribe(event string, h Handler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID

	if s.handlers[event] == nil {
		s.handlers[event] = make(map[uint64]Handler)
	}
	s.handlers[event][id] = h

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.handlers[event], id)
	}
}

// Scope groups subscriptions so they can be released together when the
// view or component that owns them goes away.
type Scope struct {
	s *Session

	mu      sync.Mutex
	cancels []func()
	onClose []func()
	closed  bool
}

// NewScope returns an empty scope on the session.
func (s *Session) NewScope() *Scope {
	return &Scope{s: s}
}

// On subscribes h for event for the lifetime of the scope. Subscribing
// on a closed scope does nothing.
func (sc *Scope) On(event string, h Handler) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.closed {
		return
	}

	sc.cancels = append(sc.cancels, sc.s.Subscribe(event, h))
}

// Defer runs fn when the scope closes.
func (sc *Scope) Defer(fn func()) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.onClose = append(sc.onClose, fn)
}

// Close releases every subscription in the scope.
func (sc *Scope) Close() {
	sc.mu.Lock()
	if sc.closed {
		sc.mu.Unlock()
		return
	}
	sc.closed = true
	cancels, onClose := sc.cancels, sc.onClose
	sc.cancels, sc.onClose = nil, nil
	sc.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	for _, fn := range onClose {
		fn()
	}
}

// NewUserID derives a per-session user id from a display name.
func NewUserID(name string) string {
	return name + "-" + uuid.NewString()[:8]
}
