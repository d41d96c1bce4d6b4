package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"chatlink/internal/types"
)

const DefaultMaxRetries = 3

// QueuedMessage is an outbound message that could not be sent immediately.
// It lives in the per-room queue and is persisted so it survives a restart.
type QueuedMessage struct {
	ID          string            `json:"id"`
	Content     string            `json:"content"`
	ChatRoomID  int64             `json:"chat_room_id"`
	Type        types.MessageType `json:"type"`
	ModeratorID *int64            `json:"moderator_id,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	RetryCount  int               `json:"retry_count"`
	MaxRetries  int               `json:"max_retries"`
}

func NewQueuedMessage(content string, roomID int64, msgType types.MessageType, moderatorID *int64) QueuedMessage {
	return QueuedMessage{
		ID:          fmt.Sprintf("queue_%s", uuid.NewString()),
		Content:     content,
		ChatRoomID:  roomID,
		Type:        msgType,
		ModeratorID: moderatorID,
		Timestamp:   time.Now(),
		RetryCount:  0,
		MaxRetries:  DefaultMaxRetries,
	}
}

// Exhausted reports whether the message has used up its retry budget and
// must be discarded instead of resent.
func (m QueuedMessage) Exhausted() bool {
	return m.RetryCount >= m.MaxRetries
}
