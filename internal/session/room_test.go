package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatlink/internal/chat"
	"chatlink/internal/types"
)

func message(id types.ID, content string, createdAt time.Time) types.ChatMessage {
	return types.ChatMessage{
		ID:         id,
		Content:    content,
		SenderID:   9,
		ChatRoomID: 7,
		Type:       types.TypeText,
		CreatedAt:  createdAt,
	}
}

func TestAddRejectsDuplicateID(t *testing.T) {
	room := NewRoom(7, nil)
	now := time.Now()

	require.True(t, room.Add(message("1", "hello", now)))
	require.False(t, room.Add(message("1", "hello", now)))
	require.Len(t, room.Messages(), 1)
}

func TestAddRejectsSameContentInsideWindow(t *testing.T) {
	room := NewRoom(7, nil)
	now := time.Now()

	require.True(t, room.Add(message("temp_1", "hello", now)))
	require.False(t, room.Add(message("41", "hello", now.Add(300*time.Millisecond))))
	require.Len(t, room.Messages(), 1)
}

func TestAddAllowsSameContentOutsideWindow(t *testing.T) {
	room := NewRoom(7, nil)
	now := time.Now()

	require.True(t, room.Add(message("1", "ok", now)))
	require.True(t, room.Add(message("2", "ok", now.Add(2*time.Second))))
	require.Len(t, room.Messages(), 2)
}

func TestOptimisticEchoIsDeduplicated(t *testing.T) {
	room := NewRoom(7, nil)

	local := room.AddOptimistic("on my way", 42)
	require.Equal(t, types.StatusSending, local.Status)
	require.Equal(t, "You", local.SenderName)

	// The server echo carries a real id but the same content, moments later.
	echo := message("55", "on my way", time.Now())
	echo.SenderID = 42
	require.False(t, room.Add(echo))
	require.Len(t, room.Messages(), 1)
}

func TestApplyFoldsTransportEvents(t *testing.T) {
	room := NewRoom(7, nil)
	now := time.Now()

	room.Apply(chat.NewMessage{Message: message("1", "original", now)})
	room.Apply(chat.NewMessage{Message: message("2", "staying", now.Add(5 * time.Second))})

	updatedAt := now.Add(time.Minute)
	room.Apply(chat.MessageUpdated{MessageID: "1", Content: "edited", UpdatedAt: updatedAt})

	messages := room.Messages()
	require.Equal(t, "edited", messages[0].Content)
	require.NotNil(t, messages[0].UpdatedAt)
	require.Equal(t, updatedAt, *messages[0].UpdatedAt)

	room.Apply(chat.MessageDeleted{MessageID: "2"})
	messages = room.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, types.ID("1"), messages[0].ID)

	room.Apply(chat.Typing{RoomID: 7, UserID: "33", IsTyping: true})
	require.Equal(t, []string{"33"}, room.TypingUsers())
	room.Apply(chat.Typing{RoomID: 7, UserID: "33", IsTyping: false})
	require.Empty(t, room.TypingUsers())
}

func TestSetMessagesReplacesWholesale(t *testing.T) {
	room := NewRoom(7, nil)
	room.Add(message("1", "old", time.Now()))

	room.SetMessages([]types.ChatMessage{
		message("10", "a", time.Now()),
		message("11", "b", time.Now().Add(10 * time.Second)),
	})

	messages := room.Messages()
	require.Len(t, messages, 2)
	require.Equal(t, types.ID("10"), messages[0].ID)
}

type typingRecorder struct {
	mu     sync.Mutex
	states []bool
	done   chan struct{}
}

func newTypingRecorder() *typingRecorder {
	return &typingRecorder{done: make(chan struct{}, 8)}
}

func (r *typingRecorder) send(isTyping bool) {
	r.mu.Lock()
	r.states = append(r.states, isTyping)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *typingRecorder) recorded() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.states...)
}

func (r *typingRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("no typing signal sent")
	}
}

func TestTouchSendsTypingOnceThenStopAfterIdle(t *testing.T) {
	recorder := newTypingRecorder()
	tracker := NewTypingTracker(50*time.Millisecond, recorder.send)

	tracker.Touch()
	recorder.wait(t)
	tracker.Touch()
	tracker.Touch()

	// Only the stop signal follows once the keystrokes go quiet.
	recorder.wait(t)
	require.Equal(t, []bool{true, false}, recorder.recorded())
}

func TestTouchExtendsIdleDeadline(t *testing.T) {
	recorder := newTypingRecorder()
	tracker := NewTypingTracker(100*time.Millisecond, recorder.send)

	tracker.Touch()
	recorder.wait(t)

	for i := 0; i < 3; i++ {
		time.Sleep(60 * time.Millisecond)
		tracker.Touch()
	}
	require.Equal(t, []bool{true}, recorder.recorded())

	recorder.wait(t)
	require.Equal(t, []bool{true, false}, recorder.recorded())
}

func TestStopSendsStopSignalWhileTyping(t *testing.T) {
	recorder := newTypingRecorder()
	tracker := NewTypingTracker(time.Hour, recorder.send)

	tracker.Touch()
	recorder.wait(t)

	tracker.Stop()
	recorder.wait(t)
	require.Equal(t, []bool{true, false}, recorder.recorded())

	// A second Stop with nothing in flight is silent.
	tracker.Stop()
	require.Equal(t, []bool{true, false}, recorder.recorded())
}

func TestRemoteTypingUsers(t *testing.T) {
	tracker := NewTypingTracker(time.Hour, nil)

	tracker.Set("9", true)
	tracker.Set("12", true)
	tracker.Set("", true)
	require.ElementsMatch(t, []string{"9", "12"}, tracker.Users())

	tracker.Set("9", false)
	require.Equal(t, []string{"12"}, tracker.Users())
}
