package chat

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn wraps a websocket connection with a write lock: gorilla permits only
// one concurrent writer, and sends race with identify/typing/read frames.
type Conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

func (c *Conn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *Conn) writeClose(code int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""))
}

func (c *Conn) Close() error {
	return c.ws.Close()
}

// StateListener observes connection-state changes for one room.
type StateListener func(ConnectionState)

// Registry owns every per-room handle: the live socket, the connection
// state, and the state listeners. Lifetimes are bounded by explicit
// Connect/Cleanup calls; nothing here is package-level state.
type Registry struct {
	mu          sync.Mutex
	conns       map[int64]*Conn
	states      map[int64]*ConnectionState
	listeners   map[int64]map[int64]StateListener
	nextSub     int64
	maxAttempts int
}

func NewRegistry(maxReconnectAttempts int) *Registry {
	return &Registry{
		conns:       make(map[int64]*Conn),
		states:      make(map[int64]*ConnectionState),
		listeners:   make(map[int64]map[int64]StateListener),
		maxAttempts: maxReconnectAttempts,
	}
}

// State returns a copy of the room's connection state.
func (r *Registry) State(roomID int64) ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.stateLocked(roomID)
}

func (r *Registry) stateLocked(roomID int64) *ConnectionState {
	st, ok := r.states[roomID]
	if !ok {
		st = &ConnectionState{
			Status:               StatusDisconnected,
			MaxReconnectAttempts: r.maxAttempts,
		}
		r.states[roomID] = st
	}
	return st
}

// UpdateState mutates the room's state through fn and fans the new value out
// to listeners. Listeners run outside the lock.
func (r *Registry) UpdateState(roomID int64, fn func(*ConnectionState)) ConnectionState {
	r.mu.Lock()
	st := r.stateLocked(roomID)
	fn(st)
	snapshot := *st
	subs := make([]StateListener, 0, len(r.listeners[roomID]))
	for _, l := range r.listeners[roomID] {
		subs = append(subs, l)
	}
	r.mu.Unlock()

	for _, l := range subs {
		l(snapshot)
	}
	return snapshot
}

// SetConn installs the room's live socket, returning any previous one so
// the caller can close it. At most one live socket per room.
func (r *Registry) SetConn(roomID int64, ws *websocket.Conn) (conn *Conn, old *Conn) {
	conn = newConn(ws)
	r.mu.Lock()
	old = r.conns[roomID]
	r.conns[roomID] = conn
	r.mu.Unlock()
	return conn, old
}

// Conn returns the room's live socket, or nil.
func (r *Registry) Conn(roomID int64) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[roomID]
}

// TakeConn removes and returns the room's socket.
func (r *Registry) TakeConn(roomID int64) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn := r.conns[roomID]
	delete(r.conns, roomID)
	return conn
}

// Owns reports whether conn is still the room's registered socket. A read
// pump checks this before reacting to a closure so a superseded or cleaned
// up socket cannot trigger a stale reconnect.
func (r *Registry) Owns(roomID int64, conn *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[roomID] == conn
}

// AddStateListener subscribes to the room's connection state. Fires
// immediately with the current state; the returned func unsubscribes.
func (r *Registry) AddStateListener(roomID int64, listener StateListener) func() {
	r.mu.Lock()
	if r.listeners[roomID] == nil {
		r.listeners[roomID] = make(map[int64]StateListener)
	}
	id := r.nextSub
	r.nextSub++
	r.listeners[roomID][id] = listener
	current := *r.stateLocked(roomID)
	r.mu.Unlock()

	listener(current)

	return func() {
		r.mu.Lock()
		delete(r.listeners[roomID], id)
		r.mu.Unlock()
	}
}

// RemoveRoom drops the room's listeners and state record. The socket, if
// any, must already have been taken.
func (r *Registry) RemoveRoom(roomID int64) {
	r.mu.Lock()
	delete(r.states, roomID)
	delete(r.listeners, roomID)
	delete(r.conns, roomID)
	r.mu.Unlock()
}
