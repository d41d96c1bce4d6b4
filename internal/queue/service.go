package queue

import (
	"context"
	"fmt"
	"log"
	"sync"

	"chatlink/internal/models"
	"chatlink/internal/notify"
	"chatlink/internal/store"
	"chatlink/internal/types"
)

// SendFunc attempts one real send of a queued message. It must not queue on
// failure; the service owns the retry bookkeeping.
type SendFunc func(ctx context.Context, content string, roomID int64, moderatorID *int64) error

// Listener observes the pending queue for one room.
type Listener func(pending []models.QueuedMessage)

// Service is the durable outbound message queue: per-room FIFO, bounded
// retries, write-through persistence so queued messages survive a restart.
type Service struct {
	mu        sync.Mutex
	queues    map[int64][]models.QueuedMessage
	draining  map[int64]bool
	listeners map[int64]map[int64]Listener
	nextSub   int64
	dropped   int

	repo   store.QueueRepo
	toasts notify.Toaster
	sweeps *sweeper
}

func New(repo store.QueueRepo, toasts notify.Toaster, sweepSpec string) *Service {
	s := &Service{
		queues:    make(map[int64][]models.QueuedMessage),
		draining:  make(map[int64]bool),
		listeners: make(map[int64]map[int64]Listener),
		repo:      repo,
		toasts:    toasts,
		sweeps:    newSweeper(sweepSpec),
	}

	// Missing or corrupt storage degrades to an empty queue, never a
	// startup failure.
	loaded, err := repo.LoadAll(context.Background())
	if err != nil {
		log.Printf("[QUEUE] Could not restore persisted queue, starting empty: %v", err)
		return s
	}

	total := 0
	for roomID, messages := range loaded {
		s.queues[roomID] = messages
		total += len(messages)
	}
	if total > 0 {
		log.Printf("[QUEUE] Restored %d queued messages across %d rooms", total, len(loaded))
	}

	return s
}

// Enqueue appends a message that failed to send, persists the room's queue,
// and tells the user it will go out later. Queuing reads as success to the
// caller; the send itself has not happened.
func (s *Service) Enqueue(ctx context.Context, content string, roomID int64, msgType types.MessageType, moderatorID *int64) string {
	message := models.NewQueuedMessage(content, roomID, msgType, moderatorID)

	s.mu.Lock()
	s.queues[roomID] = append(s.queues[roomID], message)
	s.persistRoomLocked(ctx, roomID)
	s.mu.Unlock()

	log.Printf("[QUEUE] Message queued for room %d: %s", roomID, message.ID)
	s.toasts.Info("Message will be sent when connection is restored", "")
	s.notifyListeners(roomID)

	return message.ID
}

// Pending returns a copy of the room's queued messages in enqueue order.
func (s *Service) Pending(roomID int64) []models.QueuedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.QueuedMessage(nil), s.queues[roomID]...)
}

// Remove deletes one queued message by id.
func (s *Service) Remove(ctx context.Context, roomID int64, messageID string) bool {
	s.mu.Lock()
	removed := false
	pending := s.queues[roomID]
	for i, m := range pending {
		if m.ID == messageID {
			s.queues[roomID] = append(pending[:i], pending[i+1:]...)
			removed = true
			break
		}
	}
	if removed {
		s.persistRoomLocked(ctx, roomID)
	}
	s.mu.Unlock()

	if removed {
		s.notifyListeners(roomID)
	}
	return removed
}

// Drain attempts every queued message for the room once, in order. Messages
// that exhausted their retry budget are dropped without another attempt;
// failures stay queued with their retry count bumped. Single-flight per room.
func (s *Service) Drain(ctx context.Context, roomID int64, send SendFunc) {
	s.mu.Lock()
	if s.draining[roomID] {
		s.mu.Unlock()
		log.Printf("[QUEUE] Already draining room %d", roomID)
		return
	}
	pending := append([]models.QueuedMessage(nil), s.queues[roomID]...)
	if len(pending) == 0 {
		s.mu.Unlock()
		return
	}
	s.draining[roomID] = true
	s.mu.Unlock()

	log.Printf("[QUEUE] Draining %d queued messages for room %d", len(pending), roomID)

	sent := make(map[string]bool)
	failed := make(map[string]bool)
	dropped := 0

	for _, message := range pending {
		if message.Exhausted() {
			log.Printf("[QUEUE] ⚠️  Message %s exceeded retry limit, discarding", message.ID)
			sent[message.ID] = true
			dropped++
			continue
		}

		if err := send(ctx, message.Content, message.ChatRoomID, message.ModeratorID); err != nil {
			log.Printf("[QUEUE] Failed to send queued message %s: %v", message.ID, err)
			failed[message.ID] = true
			continue
		}
		sent[message.ID] = true
	}

	s.mu.Lock()
	remaining := s.queues[roomID][:0]
	for _, m := range s.queues[roomID] {
		if sent[m.ID] {
			continue
		}
		if failed[m.ID] {
			m.RetryCount++
		}
		remaining = append(remaining, m)
	}
	s.queues[roomID] = remaining
	s.dropped += dropped
	s.persistRoomLocked(ctx, roomID)
	s.draining[roomID] = false
	s.mu.Unlock()

	s.notifyListeners(roomID)

	delivered := len(sent) - dropped
	if delivered > 0 {
		s.toasts.Success(fmt.Sprintf("Sent %d queued message(s)", delivered), "")
	}
	if len(failed) > 0 {
		log.Printf("[QUEUE] %d messages failed and will be retried", len(failed))
	}
}

// AutoRetry installs the periodic sweep that drains the room whenever its
// queue is non-empty. Replaces any existing sweep for the room.
func (s *Service) AutoRetry(roomID int64, send SendFunc) {
	s.sweeps.start(roomID, func() {
		if len(s.Pending(roomID)) == 0 {
			return
		}
		s.Drain(context.Background(), roomID, send)
	})
}

// StopRetry cancels the room's periodic sweep.
func (s *Service) StopRetry(roomID int64) {
	s.sweeps.stop(roomID)
}

// AddListener subscribes to the room's pending queue. The listener fires
// immediately with the current contents; the returned func unsubscribes.
func (s *Service) AddListener(roomID int64, listener Listener) func() {
	s.mu.Lock()
	if s.listeners[roomID] == nil {
		s.listeners[roomID] = make(map[int64]Listener)
	}
	id := s.nextSub
	s.nextSub++
	s.listeners[roomID][id] = listener
	current := append([]models.QueuedMessage(nil), s.queues[roomID]...)
	s.mu.Unlock()

	listener(current)

	return func() {
		s.mu.Lock()
		delete(s.listeners[roomID], id)
		s.mu.Unlock()
	}
}

// Stats reports totals across all rooms plus how many messages were dropped
// after exhausting retries.
func (s *Service) Stats() (totalMessages, totalRooms, dropped int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pending := range s.queues {
		if len(pending) > 0 {
			totalRooms++
			totalMessages += len(pending)
		}
	}
	return totalMessages, totalRooms, s.dropped
}

// ClearAll wipes every queue, sweep, and listener. Used on logout.
func (s *Service) ClearAll(ctx context.Context) {
	s.sweeps.stopAll()

	s.mu.Lock()
	s.queues = make(map[int64][]models.QueuedMessage)
	s.draining = make(map[int64]bool)
	s.listeners = make(map[int64]map[int64]Listener)
	s.mu.Unlock()

	if err := s.repo.Clear(ctx); err != nil {
		log.Printf("[QUEUE] Failed to clear persisted queue: %v", err)
	}
}

func (s *Service) persistRoomLocked(ctx context.Context, roomID int64) {
	snapshot := append([]models.QueuedMessage(nil), s.queues[roomID]...)
	if err := s.repo.SaveRoom(ctx, roomID, snapshot); err != nil {
		log.Printf("[QUEUE] Failed to persist queue for room %d: %v", roomID, err)
	}
}

func (s *Service) notifyListeners(roomID int64) {
	s.mu.Lock()
	subs := make([]Listener, 0, len(s.listeners[roomID]))
	for _, l := range s.listeners[roomID] {
		subs = append(subs, l)
	}
	pending := append([]models.QueuedMessage(nil), s.queues[roomID]...)
	s.mu.Unlock()

	for _, l := range subs {
		l(pending)
	}
}
