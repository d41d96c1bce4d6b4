package session

import (
	"sync"
	"time"
)

// DefaultTypingIdle is how long after the last keystroke the local user is
// still reported as typing, independent of server confirmation.
const DefaultTypingIdle = 3 * time.Second

// TypingTracker maintains the set of users typing in a room. Remote users
// enter and leave on typing events; the local user is debounced: Touch on
// every keystroke, and a quiet period sends the stop signal.
type TypingTracker struct {
	mu         sync.Mutex
	users      map[string]struct{}
	selfTyping bool
	timer      *time.Timer
	idle       time.Duration
	send       func(isTyping bool)
}

func NewTypingTracker(idle time.Duration, send func(isTyping bool)) *TypingTracker {
	if send == nil {
		send = func(bool) {}
	}
	return &TypingTracker{
		users: make(map[string]struct{}),
		idle:  idle,
		send:  send,
	}
}

// Set records a remote user's typing state from an inbound event.
func (t *TypingTracker) Set(userID string, typing bool) {
	if userID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if typing {
		t.users[userID] = struct{}{}
	} else {
		delete(t.users, userID)
	}
}

// Touch marks local typing activity. The first keystroke sends the typing
// indicator; each one pushes the silence deadline out.
func (t *TypingTracker) Touch() {
	t.mu.Lock()
	if !t.selfTyping {
		t.selfTyping = true
		go t.send(true)
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.idle, t.expire)
	t.mu.Unlock()
}

func (t *TypingTracker) expire() {
	t.mu.Lock()
	wasTyping := t.selfTyping
	t.selfTyping = false
	t.timer = nil
	t.mu.Unlock()

	if wasTyping {
		t.send(false)
	}
}

// Stop cancels the debounce timer and, if the local user was mid-typing,
// sends the stop signal immediately. Called on room teardown.
func (t *TypingTracker) Stop() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	wasTyping := t.selfTyping
	t.selfTyping = false
	t.mu.Unlock()

	if wasTyping {
		t.send(false)
	}
}

// Users returns the users currently typing.
func (t *TypingTracker) Users() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	users := make([]string, 0, len(t.users))
	for id := range t.users {
		users = append(users, id)
	}
	return users
}
