// Scrawl room server
//
// Every room is a shared canvas with a chat log and a roster. Clients speak
// the event protocol over a single WebSocket at /ws and address rooms by id
// in each event, so one connection can move between rooms.
//
// Features:
// - Rooms are created by their first join and deleted when the last member leaves
// - New rooms get random 5-digit ids via crypto/rand, with server-side collision check
// - Members reconnecting under the same display name replace their stale connection
// - Strokes, undos and clears are echoed to their sender, so every replica settles on the room's order
// - Reference images and their opacity are relayed to the room but never stored
// - Strokes and chat messages can be rate limited per connection through Redis
// - Dead connections are detected with ping/pong and dropped
// - Slow consumers are disconnected instead of stalling a room
// - In-browser QR button to share a room, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/scrawl/internal/ratelimit"
	"github.com/Seednode/scrawl/protocol"
	"github.com/Seednode/scrawl/room"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 256
	roomIDMax  = 100000
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one WebSocket connection. It is the room.Subscriber for every
// room it joins.
type Client struct {
	id     string
	remote string
	conn   *websocket.Conn
	send   chan protocol.Envelope
	done   chan struct{}
	once   sync.Once

	// roomID is only touched by readPump.
	roomID string
}

func newClient(conn *websocket.Conn, remote string) *Client {
	return &Client{
		id:     uuid.NewString(),
		remote: remote,
		conn:   conn,
		send:   make(chan protocol.Envelope, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Deliver queues env without blocking. A client whose queue is full is
// disconnected.
func (c *Client) Deliver(env protocol.Envelope) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- env:
		return true
	default:
		c.kick()
		return false
	}
}

func (c *Client) kick() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *Client) reply(event string, id uint64, data any) {
	env, err := protocol.New(event, data)
	if err != nil {
		errorf("%v", err)
		return
	}
	env.ID = id

	c.Deliver(env)
}

func (c *Client) readPump(ctx context.Context, cfg *Config, rm *RoomManager) {
	defer func() {
		if c.roomID != "" {
			rm.rooms.Leave(c.roomID, c.id)
		}
		c.kick()
	}()

	c.conn.SetReadLimit(cfg.maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.pongTimeout))
	})

	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				logf(cfg, "WS: Ignoring malformed frame from %s: %v", c.remote, err)
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logf(cfg, "WS: Connection %s from %s closed: %v", c.id, c.remote, err)
			}
			return
		}

		rm.handle(ctx, cfg, c, env)
	}
}

func (c *Client) writePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case env := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				c.kick()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.kick()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// RoomManager connects WebSocket clients to the room registry.
type RoomManager struct {
	rooms   *room.Registry
	limiter *ratelimit.Limiter

	mu      sync.Mutex
	clients map[*Client]struct{}
}

func newRoomManager(rooms *room.Registry, limiter *ratelimit.Limiter) *RoomManager {
	return &RoomManager{
		rooms:   rooms,
		limiter: limiter,
		clients: make(map[*Client]struct{}),
	}
}

func (rm *RoomManager) track(c *Client) {
	rm.mu.Lock()
	rm.clients[c] = struct{}{}
	rm.mu.Unlock()
}

func (rm *RoomManager) untrack(c *Client) {
	rm.mu.Lock()
	delete(rm.clients, c)
	rm.mu.Unlock()
}

// closeAll disconnects every client (used on shutdown).
func (rm *RoomManager) closeAll() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for c := range rm.clients {
		c.kick()
	}
}

// newRoomID generates a crypto-random 5-digit room ID and ensures it
// doesn't collide with a live room.
func (rm *RoomManager) newRoomID() string {
	for {
		n, err := rand.Int(rand.Reader, big.NewInt(roomIDMax))
		if err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		id := fmt.Sprintf("%05d", n.Int64())
		if !rm.rooms.Exists(id) {
			return id
		}
	}
}

// allow applies the rate limit to event from c. Limiter failures let the
// event through.
func (rm *RoomManager) allow(ctx context.Context, cfg *Config, c *Client, event string) bool {
	err := rm.limiter.Allow(ctx, c.id)
	if errors.Is(err, ratelimit.ErrRateLimited) {
		logf(cfg, "WS: Dropping %s from %s: %v", event, c.remote, err)
		return false
	}

	return true
}

func roomOr(id, fallback string) string {
	if id != "" {
		return id
	}

	return fallback
}

func (rm *RoomManager) handle(ctx context.Context, cfg *Config, c *Client, env protocol.Envelope) {
	switch env.Event {
	case protocol.JoinRoom:
		var j protocol.Join
		if err := env.Decode(&j); err != nil || j.RoomID == "" {
			logf(cfg, "WS: Ignoring join from %s without room", c.remote)
			return
		}
		if j.UserID == "" {
			j.UserID = c.id
		}

		if c.roomID != "" && c.roomID != j.RoomID {
			rm.rooms.Leave(c.roomID, c.id)
		}
		c.roomID = j.RoomID

		rm.rooms.Join(j.RoomID, c, j.UserID)
	case protocol.GetCanvas:
		strokes, ok := rm.rooms.Canvas(roomOr(env.RoomID(), c.roomID))
		if !ok {
			return
		}

		c.reply(protocol.LoadCanvas, env.ID, strokes)
	case protocol.DrawStroke:
		var s protocol.Stroke
		if err := env.Decode(&s); err != nil {
			logf(cfg, "WS: Ignoring stroke from %s: %v", c.remote, err)
			return
		}
		if !rm.allow(ctx, cfg, c, env.Event) {
			return
		}

		rm.rooms.Commit(roomOr(s.RoomID, c.roomID), c.id, s.Stroke)
	case protocol.DrawingMove:
		var s protocol.Stroke
		if err := env.Decode(&s); err != nil {
			return
		}

		rm.rooms.LiveTrace(roomOr(s.RoomID, c.roomID), c.id, s.Stroke)
	case protocol.UndoStroke:
		var u protocol.Undo
		_ = env.Decode(&u)

		rm.rooms.Undo(roomOr(env.RoomID(), c.roomID), c.id, u.ChangeID)
	case protocol.ClearCanvas:
		var cl protocol.Clear
		_ = env.Decode(&cl)

		rm.rooms.Clear(roomOr(env.RoomID(), c.roomID), c.id, cl.ChangeID)
	case protocol.ReferenceImage, protocol.ReferenceOpacity:
		var ref protocol.Reference
		if err := env.Decode(&ref); err != nil {
			logf(cfg, "WS: Ignoring %s from %s: %v", env.Event, c.remote, err)
			return
		}

		roomID := roomOr(ref.RoomID, c.roomID)
		ref.RoomID = ""
		if env.Event == protocol.ReferenceOpacity {
			ref.ImageData = ""
		}

		rm.rooms.Relay(roomID, c.id, env.Event, ref)
	case protocol.SendMessage:
		var msg protocol.ChatMessage
		if err := env.Decode(&msg); err != nil {
			logf(cfg, "WS: Ignoring message from %s: %v", c.remote, err)
			return
		}
		if !rm.allow(ctx, cfg, c, env.Event) {
			return
		}

		rm.rooms.SendMessage(roomOr(msg.RoomID, c.roomID), c.id, msg)
	case protocol.CheckRoom:
		c.reply(protocol.CheckRoom, env.ID, protocol.Exists{Exists: rm.rooms.Exists(env.RoomID())})
	default:
		logf(cfg, "WS: Ignoring unknown event %q from %s", env.Event, c.remote)
	}
}

func serveWS(cfg *Config, rm *RoomManager) httprouter.Handle {
	pingPeriod := cfg.pongTimeout * 9 / 10

	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "WS: Upgrade for %s failed: %v", realIP(r), err)
			return
		}

		c := newClient(conn, realIP(r))

		rm.track(c)
		defer rm.untrack(c)

		logf(cfg, "WS: Connection %s opened from %s", c.id, c.remote)

		go c.writePump(pingPeriod)
		c.readPump(r.Context(), cfg, rm)

		logf(cfg, "WS: Connection %s from %s closed", c.id, c.remote)
	}
}

// roomURL is the shareable address of roomID, as seen by the requester.
func roomURL(cfg *Config, r *http.Request, roomID string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	return scheme + "://" + r.Host + cfg.prefix + "/room/" + roomID
}

// QR handler: generates a PNG QR code for the room URL using go-qrcode.
func qrHandler(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		roomID := ps.ByName("roomid")

		const qrSize = 320
		png, err := qrcode.Encode(roomURL(cfg, r, roomID), qrcode.Medium, qrSize)
		if err != nil {
			writeError(cfg, w, http.StatusInternalServerError, "qr generation failed")
			errs <- err

			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)

		written, err := w.Write(png)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: QR code for room %s (%s) to %s in %s",
			roomID,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// redirectNewRoom handles GET /room by generating a new random room ID
// and redirecting to /room/:roomid.
func redirectNewRoom(cfg *Config, path string, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		roomID := rm.newRoomID()
		logf(cfg, "ROOMS: Assigned new room %s to %s", roomID, realIP(r))
		http.Redirect(w, r, cfg.prefix+path+"/"+roomID, http.StatusTemporaryRedirect)
	}
}

type roomInfo struct {
	RoomID   string   `json:"roomId"`
	Exists   bool     `json:"exists"`
	Users    []string `json:"users"`
	Strokes  int      `json:"strokes"`
	Messages int      `json:"messages"`
	URL      string   `json:"url"`
}

func serveRoomInfo(cfg *Config, rm *RoomManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")

		info := roomInfo{
			RoomID: roomID,
			Users:  []string{},
			URL:    roomURL(cfg, r, roomID),
		}

		if users, ok := rm.rooms.Users(roomID); ok {
			info.Users = users
			info.Exists = len(users) > 0
		}
		if strokes, ok := rm.rooms.Canvas(roomID); ok {
			info.Strokes = len(strokes)
		}
		if msgs, ok := rm.rooms.Messages(roomID); ok {
			info.Messages = len(msgs)
		}

		if err := writeJSON(cfg, w, info); err != nil {
			errs <- err
		}
	}
}

func serveExists(cfg *Config, rm *RoomManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		err := writeJSON(cfg, w, protocol.Exists{Exists: rm.rooms.Exists(ps.ByName("roomid"))})
		if err != nil {
			errs <- err
		}
	}
}

// registerRooms sets up routes so that:
//   - /ws                     → WebSocket carrying every room's events
//   - $path                   → redirects to a new random room (5-digit ID)
//   - $path/:roomid           → room summary
//   - $path/:roomid/exists    → whether anyone is in the room
//   - $path/:roomid/qr        → PNG QR code for the room URL
//   - $path/:roomid/snapshot.png and export.pdf → rendered canvas
func registerRooms(cfg *Config, path string, mux *httprouter.Router, rm *RoomManager, errs chan<- error) {
	mux.GET(cfg.prefix+"/ws", serveWS(cfg, rm))

	mux.GET(cfg.prefix+path, redirectNewRoom(cfg, path, rm))

	mux.GET(cfg.prefix+path+"/:roomid", serveRoomInfo(cfg, rm, errs))

	mux.GET(cfg.prefix+path+"/:roomid/exists", serveExists(cfg, rm, errs))

	mux.GET(cfg.prefix+path+"/:roomid/qr", qrHandler(cfg, errs))

	mux.GET(cfg.prefix+path+"/:roomid/snapshot.png", serveSnapshot(cfg, rm.rooms, errs))

	mux.GET(cfg.prefix+path+"/:roomid/export.pdf", serveExport(cfg, rm.rooms, errs))
}
