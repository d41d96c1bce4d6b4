package chat

import (
	"encoding/json"
	"time"

	"chatlink/internal/types"
)

// Outbound frame actions.
const (
	actionIdentify = "identify"
	actionJoin     = "join"
	actionCreate   = "create"
	actionRead     = "read"
	actionTyping   = "typing"
)

type outboundFrame struct {
	Action      string            `json:"action"`
	ChatRoomID  int64             `json:"chat_room_id,omitempty"`
	UserID      int64             `json:"user_id,omitempty"`
	Role        string            `json:"role,omitempty"`
	Message     string            `json:"message,omitempty"`
	Type        types.MessageType `json:"type,omitempty"`
	ModeratorID *int64            `json:"moderator_id,omitempty"`
	IsTyping    *bool             `json:"is_typing,omitempty"`
}

func identifyFrame(roomID int64, userID int64, role string) outboundFrame {
	return outboundFrame{Action: actionIdentify, ChatRoomID: roomID, UserID: userID, Role: role}
}

func joinFrame(roomID int64) outboundFrame {
	return outboundFrame{Action: actionJoin, ChatRoomID: roomID}
}

func createFrame(content string, roomID int64, msgType types.MessageType, moderatorID *int64) outboundFrame {
	return outboundFrame{Action: actionCreate, ChatRoomID: roomID, Message: content, Type: msgType, ModeratorID: moderatorID}
}

func readFrame(roomID int64) outboundFrame {
	return outboundFrame{Action: actionRead, ChatRoomID: roomID}
}

func typingFrame(roomID int64, isTyping bool) outboundFrame {
	return outboundFrame{Action: actionTyping, ChatRoomID: roomID, IsTyping: &isTyping}
}

// Event is a normalized inbound event. The raw frame's action/type
// discriminators are decoded once, here at the transport boundary, so
// downstream code can type-switch exhaustively instead of comparing strings.
type Event interface {
	isEvent()
}

type NewMessage struct {
	Message types.ChatMessage
}

type MessageDeleted struct {
	MessageID types.ID
}

type MessageUpdated struct {
	MessageID types.ID
	Content   string
	UpdatedAt time.Time
}

type Typing struct {
	RoomID   int64
	UserID   string
	IsTyping bool
}

// Raw carries any inbound shape the normalizer does not recognize, passed
// through to the subscriber unchanged.
type Raw struct {
	Data json.RawMessage
}

func (NewMessage) isEvent()     {}
func (MessageDeleted) isEvent() {}
func (MessageUpdated) isEvent() {}
func (Typing) isEvent()         {}
func (Raw) isEvent()            {}

type inboundFrame struct {
	Action     string               `json:"action"`
	Type       string               `json:"type"`
	Message    *types.ChatMessage   `json:"message"`
	Messages   []types.ChatMessage  `json:"messages"`
	MessageID  types.ID             `json:"message_id"`
	Content    string               `json:"content"`
	UpdatedAt  *time.Time           `json:"updated_at"`
	UserID     string               `json:"user_id"`
	IsTyping   bool                 `json:"is_typing"`
	ChatRoomID int64                `json:"chat_room_id"`
}

// decodeFrames normalizes one wire frame into events. A history frame
// expands into one NewMessage per historical message, preserving order.
func decodeFrames(data []byte) ([]Event, error) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, err
	}

	switch {
	case frame.Action == actionCreate && frame.Message != nil:
		return []Event{NewMessage{Message: *frame.Message}}, nil

	case frame.Action == "delete":
		return []Event{MessageDeleted{MessageID: frame.MessageID}}, nil

	case frame.Action == "update":
		updated := MessageUpdated{MessageID: frame.MessageID, Content: frame.Content}
		if frame.Message != nil {
			updated.MessageID = frame.Message.ID
			updated.Content = frame.Message.Content
			if frame.Message.UpdatedAt != nil {
				updated.UpdatedAt = *frame.Message.UpdatedAt
			}
		}
		if frame.UpdatedAt != nil {
			updated.UpdatedAt = *frame.UpdatedAt
		}
		return []Event{updated}, nil

	case frame.Type == "history":
		events := make([]Event, 0, len(frame.Messages))
		for _, m := range frame.Messages {
			events = append(events, NewMessage{Message: m})
		}
		return events, nil

	case frame.Type == actionTyping || frame.Action == actionTyping:
		return []Event{Typing{RoomID: frame.ChatRoomID, UserID: frame.UserID, IsTyping: frame.IsTyping}}, nil

	default:
		return []Event{Raw{Data: append(json.RawMessage(nil), data...)}}, nil
	}
}
