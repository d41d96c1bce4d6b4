package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chatlink/internal/apperr"
	"chatlink/internal/auth"
	"chatlink/internal/config"
	"chatlink/internal/notify"
	"chatlink/internal/queue"
	"chatlink/internal/types"
)

// Handler receives normalized inbound events for one room.
type Handler func(Event)

// Sender is the HTTP fallback for message sends. *api.Client satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, content string, roomID int64, moderatorID *int64) (*types.ChatMessage, error)
}

// Notifier announces inbound messages from other senders. *notify.Service
// satisfies it.
type Notifier interface {
	NotifyNewMessage(senderName, content string, roomID int64)
}

// SendOutcome records which path a send took. Queued reads as success to
// the caller even though the send itself has not happened yet.
type SendOutcome string

const (
	SentWebSocket SendOutcome = "websocket"
	SentHTTP      SendOutcome = "http"
	SentQueued    SendOutcome = "queued"
)

// Transport owns the websocket lifecycle for every room: connect, identify,
// join, normalize inbound frames, and route sends through the
// socket → HTTP → queue fallback chain.
type Transport struct {
	cfg       *config.Config
	registry  *Registry
	reconnect *ReconnectManager
	queue     *queue.Service
	sender    Sender
	notifier  Notifier
	toasts    notify.Toaster
	tokens    auth.TokenSource

	// dial is swapped out by tests.
	dial func(url string) (*websocket.Conn, error)

	handlers struct {
		mu sync.Mutex
		m  map[int64]Handler
	}
}

func NewTransport(
	cfg *config.Config,
	registry *Registry,
	reconnect *ReconnectManager,
	q *queue.Service,
	sender Sender,
	notifier Notifier,
	toasts notify.Toaster,
	tokens auth.TokenSource,
) *Transport {
	t := &Transport{
		cfg:       cfg,
		registry:  registry,
		reconnect: reconnect,
		queue:     q,
		sender:    sender,
		notifier:  notifier,
		toasts:    toasts,
		tokens:    tokens,
		dial: func(url string) (*websocket.Conn, error) {
			ws, _, err := websocket.DefaultDialer.Dial(url, nil)
			return ws, err
		},
	}
	t.handlers.m = make(map[int64]Handler)
	return t
}

// Connect opens the room's socket, replacing any existing one, and starts
// the read pump. On success the outbound queue is drained and the room is
// marked read. A dial failure schedules a reconnect and returns a
// connection-kind error.
func (t *Transport) Connect(roomID int64, handler Handler) error {
	const op = "chat.Connect"

	if roomID <= 0 {
		return apperr.New(apperr.Validation, op, fmt.Sprintf("invalid chat room id %d", roomID))
	}

	token, err := t.tokens.Token()
	if err != nil {
		return err
	}
	ident, err := auth.IdentityFromToken(token)
	if err != nil {
		return err
	}

	t.handlers.mu.Lock()
	t.handlers.m[roomID] = handler
	t.handlers.mu.Unlock()

	// At most one live socket per room.
	if old := t.registry.TakeConn(roomID); old != nil {
		log.Printf("[TRANSPORT] Replacing existing socket for room %d", roomID)
		old.writeClose(websocket.CloseNormalClosure)
		old.Close()
	}

	t.registry.UpdateState(roomID, func(s *ConnectionState) {
		s.Status = StatusConnecting
	})

	url := fmt.Sprintf("%s/api/chat/ws/%d/%d", t.cfg.WSBaseURL, roomID, ident.UserID)
	log.Printf("[TRANSPORT] Connecting to %s", url)

	ws, err := t.dial(url)
	if err != nil {
		log.Printf("[TRANSPORT] Dial failed for room %d: %v", roomID, err)
		t.reconnect.Schedule(roomID, t.redial(roomID))
		return apperr.Wrap(apperr.Connection, op, err)
	}

	conn, old := t.registry.SetConn(roomID, ws)
	if old != nil {
		// A competing Connect won the slot while this dial was in flight.
		log.Printf("[TRANSPORT] Closing socket superseded during dial for room %d", roomID)
		old.writeClose(websocket.CloseNormalClosure)
		old.Close()
	}
	t.registry.UpdateState(roomID, func(s *ConnectionState) {
		s.Status = StatusConnected
		s.ReconnectAttempts = 0
		s.LastConnected = time.Now()
	})
	log.Printf("[TRANSPORT] ✅ Connected to room %d as user %d (%s)", roomID, ident.UserID, ident.Role)

	if err := conn.WriteJSON(identifyFrame(roomID, ident.UserID, ident.Role)); err != nil {
		log.Printf("[TRANSPORT] Failed to send identify frame for room %d: %v", roomID, err)
	}
	if err := conn.WriteJSON(joinFrame(roomID)); err != nil {
		log.Printf("[TRANSPORT] Failed to send join frame for room %d: %v", roomID, err)
	}

	go t.queue.Drain(context.Background(), roomID, t.sendDirect)
	t.queue.AutoRetry(roomID, t.sendDirect)
	t.MarkRead(roomID)

	go t.readPump(roomID, conn, handler, ident)
	return nil
}

func (t *Transport) redial(roomID int64) func() {
	return func() {
		t.handlers.mu.Lock()
		handler := t.handlers.m[roomID]
		t.handlers.mu.Unlock()

		if handler == nil {
			// Cleaned up while the timer was pending.
			return
		}
		if err := t.Connect(roomID, handler); err != nil {
			log.Printf("[TRANSPORT] Reconnect attempt for room %d failed: %v", roomID, err)
		}
	}
}

func (t *Transport) readPump(roomID int64, conn *Conn, handler Handler, ident auth.Identity) {
	defer conn.Close()

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			t.handleClosure(roomID, conn, err)
			return
		}

		events, derr := decodeFrames(data)
		if derr != nil {
			log.Printf("[TRANSPORT] Dropping undecodable frame for room %d: %v", roomID, derr)
			continue
		}

		for _, event := range events {
			if nm, ok := event.(NewMessage); ok && nm.Message.SenderID != ident.UserID {
				// Fire the notification without blocking delivery.
				go t.notifier.NotifyNewMessage(senderName(nm.Message), nm.Message.Content, roomID)
			}
			handler(event)
		}
	}
}

func (t *Transport) handleClosure(roomID int64, conn *Conn, err error) {
	if !t.registry.Owns(roomID, conn) {
		// Superseded by a newer socket, or torn down by Cleanup.
		return
	}
	t.registry.TakeConn(roomID)

	if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		log.Printf("[TRANSPORT] Room %d closed normally", roomID)
		t.registry.UpdateState(roomID, func(s *ConnectionState) {
			s.Status = StatusDisconnected
		})
		return
	}

	log.Printf("[TRANSPORT] Unexpected close for room %d: %v", roomID, err)
	t.reconnect.Schedule(roomID, t.redial(roomID))
}

// SendMessage delivers a message by the first available path, in strict
// order: live socket, HTTP, local queue. The socket path is fire-and-forget;
// the server echo arrives later as an inbound frame and is deduplicated
// against any optimistic local copy.
func (t *Transport) SendMessage(ctx context.Context, content string, roomID int64, moderatorID *int64) (SendOutcome, error) {
	const op = "chat.SendMessage"

	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperr.New(apperr.Validation, op, "message content must not be empty")
	}
	if roomID <= 0 {
		return "", apperr.New(apperr.Validation, op, fmt.Sprintf("invalid chat room id %d", roomID))
	}

	if conn := t.registry.Conn(roomID); conn != nil {
		if err := conn.WriteJSON(createFrame(content, roomID, types.TypeText, moderatorID)); err == nil {
			return SentWebSocket, nil
		} else {
			log.Printf("[TRANSPORT] Socket send failed for room %d, trying HTTP: %v", roomID, err)
		}
	}

	_, err := t.sender.SendMessage(ctx, content, roomID, moderatorID)
	if err == nil {
		return SentHTTP, nil
	}
	if apperr.Is(err, apperr.Authentication) || apperr.Is(err, apperr.Validation) {
		// Terminal failures are never queued.
		return "", err
	}
	log.Printf("[TRANSPORT] HTTP send failed for room %d, queuing: %v", roomID, err)

	t.queue.Enqueue(ctx, content, roomID, types.TypeText, moderatorID)
	return SentQueued, nil
}

// sendDirect is the retry path used by queue drains: socket then HTTP,
// never back into the queue.
func (t *Transport) sendDirect(ctx context.Context, content string, roomID int64, moderatorID *int64) error {
	if conn := t.registry.Conn(roomID); conn != nil {
		if err := conn.WriteJSON(createFrame(content, roomID, types.TypeText, moderatorID)); err == nil {
			return nil
		}
	}
	_, err := t.sender.SendMessage(ctx, content, roomID, moderatorID)
	return err
}

// SendTyping reports the local user's typing state over the room's socket.
func (t *Transport) SendTyping(roomID int64, isTyping bool) bool {
	conn := t.registry.Conn(roomID)
	if conn == nil {
		return false
	}
	return conn.WriteJSON(typingFrame(roomID, isTyping)) == nil
}

// MarkRead tells the backend the room's messages have been read.
func (t *Transport) MarkRead(roomID int64) bool {
	conn := t.registry.Conn(roomID)
	if conn == nil {
		return false
	}
	return conn.WriteJSON(readFrame(roomID)) == nil
}

// Cleanup tears a room down: normal-close the socket, cancel the reconnect
// timer and retry sweep, and drop every listener registration. After this
// the room is inert until a fresh Connect.
func (t *Transport) Cleanup(roomID int64) {
	log.Printf("[TRANSPORT] Cleaning up room %d", roomID)

	t.reconnect.Cancel(roomID)
	t.queue.StopRetry(roomID)

	t.handlers.mu.Lock()
	delete(t.handlers.m, roomID)
	t.handlers.mu.Unlock()

	if conn := t.registry.TakeConn(roomID); conn != nil {
		conn.writeClose(websocket.CloseNormalClosure)
		conn.Close()
	}

	t.registry.UpdateState(roomID, func(s *ConnectionState) {
		s.Status = StatusDisconnected
		s.ReconnectAttempts = 0
	})
	t.registry.RemoveRoom(roomID)
}

func senderName(m types.ChatMessage) string {
	if m.SenderName != "" {
		return m.SenderName
	}
	return fmt.Sprintf("User %d", m.SenderID)
}
