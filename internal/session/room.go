package session

import (
	"fmt"
	"sync"
	"time"

	"chatlink/internal/chat"
	"chatlink/internal/types"
)

// dedupWindow is how close two timestamps must be for equal-content
// messages to count as the same message. It exists to reconcile an
// optimistic local echo with the server-confirmed copy.
const dedupWindow = time.Second

// Room is the per-room view state a front-end renders: the ordered message
// list and the set of users currently typing. It consumes normalized
// transport events.
type Room struct {
	mu       sync.Mutex
	roomID   int64
	messages []types.ChatMessage
	typing   *TypingTracker
}

func NewRoom(roomID int64, typing *TypingTracker) *Room {
	if typing == nil {
		typing = NewTypingTracker(DefaultTypingIdle, nil)
	}
	return &Room{roomID: roomID, typing: typing}
}

// Apply folds one transport event into the room state.
func (r *Room) Apply(event chat.Event) {
	switch e := event.(type) {
	case chat.NewMessage:
		r.Add(e.Message)
	case chat.MessageDeleted:
		r.Remove(e.MessageID)
	case chat.MessageUpdated:
		r.Update(e.MessageID, e.Content, e.UpdatedAt)
	case chat.Typing:
		r.typing.Set(e.UserID, e.IsTyping)
	}
}

// Add appends a message unless it duplicates one already present: same id,
// or same content created within the dedup window.
func (r *Room) Add(message types.ChatMessage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.messages {
		if existing.ID == message.ID {
			return false
		}
		if existing.Content == message.Content && within(existing.CreatedAt, message.CreatedAt, dedupWindow) {
			return false
		}
	}

	r.messages = append(r.messages, message)
	return true
}

// AddOptimistic inserts a locally rendered copy of an outbound message
// before the server confirms it. The server echo deduplicates against it.
func (r *Room) AddOptimistic(content string, senderID int64) types.ChatMessage {
	message := types.ChatMessage{
		ID:         types.ID(fmt.Sprintf("temp_%d", time.Now().UnixNano())),
		Content:    content,
		SenderID:   senderID,
		SenderName: "You",
		ChatRoomID: r.roomID,
		Type:       types.TypeText,
		Status:     types.StatusSending,
		CreatedAt:  time.Now(),
	}
	r.Add(message)
	return message
}

// Update rewrites a message's content in place.
func (r *Room) Update(messageID types.ID, content string, updatedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.messages {
		if r.messages[i].ID == messageID {
			r.messages[i].Content = content
			if !updatedAt.IsZero() {
				at := updatedAt
				r.messages[i].UpdatedAt = &at
			}
			return
		}
	}
}

// Remove deletes a message by id. Also how optimistic copies are withdrawn.
func (r *Room) Remove(messageID types.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range r.messages {
		if m.ID == messageID {
			r.messages = append(r.messages[:i], r.messages[i+1:]...)
			return
		}
	}
}

// SetMessages replaces the list wholesale, e.g. after a history load.
func (r *Room) SetMessages(messages []types.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append([]types.ChatMessage(nil), messages...)
}

// Messages returns a copy of the message list in arrival order.
func (r *Room) Messages() []types.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]types.ChatMessage(nil), r.messages...)
}

// TypingUsers returns who is typing right now.
func (r *Room) TypingUsers() []string {
	return r.typing.Users()
}

func within(a, b time.Time, window time.Duration) bool {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return d < window
}
