package types

import "time"

type RoomUser struct {
	ID       int64  `json:"id"`
	UUID     string `json:"uuid,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

type RoomModel struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	ImageURL    string `json:"image_url,omitempty"`
	Description string `json:"description,omitempty"`
}

type ChatRoom struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"user_id"`
	ModelID     int64        `json:"doll_id"`
	ModeratorID int64        `json:"moderator_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	User        *RoomUser    `json:"user,omitempty"`
	Model       *RoomModel   `json:"doll,omitempty"`
	LastMessage *ChatMessage `json:"last_message,omitempty"`
	UnreadCount int          `json:"unread_count,omitempty"`
}

// UnreadSnapshot is the backend's unread-count report. Per-room keys arrive
// as strings because room ids are JSON object keys.
type UnreadSnapshot struct {
	TotalUnread       int            `json:"total_unread"`
	UnreadPerRoom     map[string]int `json:"unread_per_room"`
	RemainingMessages int            `json:"remaining_messages"`
	ReceivedMessage   string         `json:"received_message,omitempty"`
}
