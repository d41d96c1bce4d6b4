package types

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	TypeText  MessageType = "TEXT"
	TypeImage MessageType = "IMAGE"
	TypeFile  MessageType = "FILE"
	TypeAudio MessageType = "AUDIO"
	TypeVideo MessageType = "VIDEO"
)

type MessageStatus string

const (
	StatusSending   MessageStatus = "SENDING"
	StatusSent      MessageStatus = "SENT"
	StatusDelivered MessageStatus = "DELIVERED"
	StatusRead      MessageStatus = "READ"
)

// ID is a message identifier. The backend is inconsistent about whether ids
// arrive as JSON strings or numbers, so both decode into the same type.
type ID string

func (v *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = ID(s)
		return nil
	}
	*v = ID(string(b))
	return nil
}

func (v ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(v))
}

func (v ID) String() string {
	return string(v)
}

// ChatMessage is the normalized message unit exchanged with the backend,
// inbound and outbound.
type ChatMessage struct {
	ID         ID            `json:"id"`
	Content    string        `json:"content"`
	SenderID   int64         `json:"sender_id"`
	SenderName string        `json:"sender_name,omitempty"`
	ReceiverID int64         `json:"receiver_id,omitempty"`
	ChatRoomID int64         `json:"chat_room_id"`
	Type       MessageType   `json:"message_type"`
	Status     MessageStatus `json:"status,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  *time.Time    `json:"updated_at,omitempty"`
	Flagged    bool          `json:"flagged,omitempty"`
	FileURL    string        `json:"file_url,omitempty"`
	FileName   string        `json:"file_name,omitempty"`
}
