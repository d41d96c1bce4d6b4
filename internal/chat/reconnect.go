package chat

import (
	"log"
	"sync"
	"time"

	"chatlink/internal/notify"
)

const maxBackoff = 30 * time.Second

// Backoff returns the delay before reconnect attempt n (zero-based):
// 1s, 2s, 4s, ... capped at 30s.
func Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := time.Second << uint(attempt)
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

// ReconnectManager schedules reconnects after abnormal closures, with
// exponential backoff and a hard attempt ceiling. One pending timer per
// room at most.
type ReconnectManager struct {
	mu       sync.Mutex
	timers   map[int64]*time.Timer
	registry *Registry
	toasts   notify.Toaster

	// after is swapped out by tests to avoid real sleeps.
	after func(d time.Duration, fn func()) *time.Timer
}

func NewReconnectManager(registry *Registry, toasts notify.Toaster) *ReconnectManager {
	return &ReconnectManager{
		timers:   make(map[int64]*time.Timer),
		registry: registry,
		toasts:   toasts,
		after:    time.AfterFunc,
	}
}

// Schedule queues a reconnect for the room. If the attempt budget is spent
// it transitions straight to StatusError and tells the user instead.
func (m *ReconnectManager) Schedule(roomID int64, dial func()) {
	m.Cancel(roomID)

	st := m.registry.State(roomID)
	if st.ReconnectAttempts >= st.MaxReconnectAttempts {
		log.Printf("[RECONNECT] Room %d exhausted %d reconnect attempts, giving up", roomID, st.MaxReconnectAttempts)
		m.registry.UpdateState(roomID, func(s *ConnectionState) {
			s.Status = StatusError
		})
		m.toasts.Error("Failed to reconnect", "Please refresh the page.")
		return
	}

	delay := Backoff(st.ReconnectAttempts)
	next := m.registry.UpdateState(roomID, func(s *ConnectionState) {
		s.Status = StatusReconnecting
		s.ReconnectAttempts++
	})
	log.Printf("[RECONNECT] Room %d reconnecting in %s (attempt %d/%d)",
		roomID, delay, next.ReconnectAttempts, next.MaxReconnectAttempts)

	timer := m.after(delay, dial)

	m.mu.Lock()
	m.timers[roomID] = timer
	m.mu.Unlock()
}

// Cancel clears any pending reconnect for the room so a stale timer cannot
// fire after intentional teardown.
func (m *ReconnectManager) Cancel(roomID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if timer, ok := m.timers[roomID]; ok {
		timer.Stop()
		delete(m.timers, roomID)
	}
}
