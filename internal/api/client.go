package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"chatlink/internal/apperr"
	"chatlink/internal/auth"
	"chatlink/internal/config"
	"chatlink/internal/types"
)

// Client talks to the backend REST API. The websocket transport uses it as
// the HTTP fallback for sends; everything else here is plain room/message
// CRUD the surrounding application needs.
type Client struct {
	baseURL string
	http    *http.Client
	uploads *http.Client
	tokens  auth.TokenSource
}

func New(cfg *config.Config, tokens auth.TokenSource) *Client {
	return &Client{
		baseURL: cfg.APIBaseURL,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		uploads: &http.Client{Timeout: cfg.UploadTimeout},
		tokens:  tokens,
	}
}

func (c *Client) do(ctx context.Context, client *http.Client, method, path string, body io.Reader, contentType string, out any) error {
	op := "api." + method + " " + path

	token, err := c.tokens.Token()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return apperr.Wrap(apperr.Validation, op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := client.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.Connection, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return apperr.New(apperr.Authentication, op, fmt.Sprintf("backend rejected credentials (status %d)", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return apperr.New(apperr.Server, op, fmt.Sprintf("status %d: %s", resp.StatusCode, snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.Server, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return apperr.Wrap(apperr.Validation, "api."+method+" "+path, err)
		}
		body = bytes.NewReader(raw)
	}
	return c.do(ctx, c.http, method, path, body, "application/json", out)
}

func (c *Client) CreateRoom(ctx context.Context, modelID string) (*types.ChatRoom, error) {
	var room types.ChatRoom
	payload := map[string]string{"doll_id": modelID}
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat/rooms/", payload, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) UserRooms(ctx context.Context, skip, limit int) ([]types.ChatRoom, error) {
	var rooms []types.ChatRoom
	path := fmt.Sprintf("/api/chat/user/rooms/?skip=%d&limit=%d", skip, limit)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *Client) ModeratorRooms(ctx context.Context, skip, limit int) ([]types.ChatRoom, error) {
	var rooms []types.ChatRoom
	path := fmt.Sprintf("/api/chat/moderator/rooms/?skip=%d&limit=%d", skip, limit)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *Client) Room(ctx context.Context, roomID int64) (*types.ChatRoom, error) {
	var room types.ChatRoom
	path := fmt.Sprintf("/api/chat/rooms/%d", roomID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (c *Client) Messages(ctx context.Context, roomID int64, skip, limit int) ([]types.ChatMessage, error) {
	var messages []types.ChatMessage
	path := fmt.Sprintf("/api/chat/rooms/%d/messages?skip=%d&limit=%d", roomID, skip, limit)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

type sendMessageRequest struct {
	Content     string            `json:"content"`
	ChatRoomID  int64             `json:"chat_room_id"`
	ModeratorID *int64            `json:"moderator_id,omitempty"`
	MessageType types.MessageType `json:"message_type"`
}

// SendMessage is the synchronous HTTP fallback used when the room's socket
// is unavailable.
func (c *Client) SendMessage(ctx context.Context, content string, roomID int64, moderatorID *int64) (*types.ChatMessage, error) {
	var message types.ChatMessage
	payload := sendMessageRequest{
		Content:     content,
		ChatRoomID:  roomID,
		ModeratorID: moderatorID,
		MessageType: types.TypeText,
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat/messages/", payload, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// UploadFile sends an image or document as a multipart upload. Uploads get
// the longer timeout.
func (c *Client) UploadFile(ctx context.Context, roomID int64, filename string, file io.Reader) (*types.ChatMessage, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "api.UploadFile", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, apperr.Wrap(apperr.Validation, "api.UploadFile", err)
	}
	if err := w.WriteField("chat_room_id", fmt.Sprintf("%d", roomID)); err != nil {
		return nil, apperr.Wrap(apperr.Validation, "api.UploadFile", err)
	}
	if err := w.Close(); err != nil {
		return nil, apperr.Wrap(apperr.Validation, "api.UploadFile", err)
	}

	var message types.ChatMessage
	err = c.do(ctx, c.uploads, http.MethodPost, "/api/chat/messages/upload", &buf, w.FormDataContentType(), &message)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageID types.ID) error {
	path := fmt.Sprintf("/api/chat/messages/%s", messageID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) FlagMessage(ctx context.Context, messageID types.ID, flagged bool) (*types.ChatMessage, error) {
	var message types.ChatMessage
	path := fmt.Sprintf("/api/chat/messages/%s/flag", messageID)
	payload := map[string]bool{"flagged": flagged}
	if err := c.doJSON(ctx, http.MethodPut, path, payload, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

func (c *Client) UpdateMessageStatus(ctx context.Context, messageID types.ID, status types.MessageStatus) error {
	path := fmt.Sprintf("/api/chat/messages/%s/status", messageID)
	payload := map[string]types.MessageStatus{"status": status}
	return c.doJSON(ctx, http.MethodPut, path, payload, nil)
}

func (c *Client) UnreadCount(ctx context.Context) (*types.UnreadSnapshot, error) {
	var snapshot types.UnreadSnapshot
	if err := c.doJSON(ctx, http.MethodGet, "/api/chat/unread-count", nil, &snapshot); err != nil {
		return nil, err
	}
	if snapshot.UnreadPerRoom == nil {
		snapshot.UnreadPerRoom = map[string]int{}
	}
	return &snapshot, nil
}

// FileURL resolves an uploaded file's name to its download URL.
func (c *Client) FileURL(filename string) string {
	return c.baseURL + "/api/chat/files/" + filename
}
