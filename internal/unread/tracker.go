package unread

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"chatlink/internal/types"
)

const defaultMinInterval = 2 * time.Second

// CountFetcher fetches the current unread snapshot. *api.Client satisfies it.
type CountFetcher interface {
	UnreadCount(ctx context.Context) (*types.UnreadSnapshot, error)
}

// Notifier surfaces an unread-count increase. *notify.Service satisfies it.
type Notifier interface {
	NotifyUnreadIncrease(total int, perRoom map[int64]int, message string)
}

// Tracker polls unread counts and fires a notification only when the total
// actually rose. The very first fetch after construction never notifies, so
// a page load with existing unread messages stays quiet.
type Tracker struct {
	fetcher  CountFetcher
	notifier Notifier

	mu          sync.Mutex
	fetching    bool
	initialized bool
	lastFetch   time.Time
	prev        types.UnreadSnapshot
	minInterval time.Duration

	// now is swapped out by tests.
	now func() time.Time
}

func NewTracker(fetcher CountFetcher, notifier Notifier) *Tracker {
	return &Tracker{
		fetcher:     fetcher,
		notifier:    notifier,
		prev:        types.UnreadSnapshot{UnreadPerRoom: map[string]int{}, RemainingMessages: -1},
		minInterval: defaultMinInterval,
		now:         time.Now,
	}
}

// Snapshot returns the last stored unread snapshot.
func (t *Tracker) Snapshot() types.UnreadSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prev
}

// Refresh fetches a fresh snapshot, diffs it against the previous one, and
// notifies on a strict increase. Rapid callers are coalesced: a refresh
// already in flight, or one inside the throttle window, returns the stored
// snapshot without another network call.
func (t *Tracker) Refresh(ctx context.Context) (types.UnreadSnapshot, error) {
	t.mu.Lock()
	if t.fetching || (t.initialized && t.now().Sub(t.lastFetch) < t.minInterval) {
		snapshot := t.prev
		t.mu.Unlock()
		return snapshot, nil
	}
	t.fetching = true
	t.mu.Unlock()

	snapshot, err := t.fetcher.UnreadCount(ctx)

	t.mu.Lock()
	t.fetching = false
	if err != nil {
		prev := t.prev
		t.mu.Unlock()
		log.Printf("[UNREAD] Failed to fetch unread counts: %v", err)
		return prev, err
	}

	t.lastFetch = t.now()
	previous := t.prev
	shouldNotify := t.initialized && previous.TotalUnread > 0 && snapshot.TotalUnread > previous.TotalUnread

	var deltas map[int64]int
	var message string
	if shouldNotify {
		deltas = roomDeltas(previous.UnreadPerRoom, snapshot.UnreadPerRoom)
		message = snapshot.ReceivedMessage
		if message == "" {
			message = defaultMessage(snapshot.TotalUnread - previous.TotalUnread)
		}
	}

	// The new snapshot becomes the comparison basis either way.
	t.prev = *snapshot
	t.initialized = true
	t.mu.Unlock()

	if shouldNotify {
		log.Printf("[UNREAD] 🔔 Unread count rose %d → %d", previous.TotalUnread, snapshot.TotalUnread)
		t.notifier.NotifyUnreadIncrease(snapshot.TotalUnread, deltas, message)
	}

	return *snapshot, nil
}

// roomDeltas returns the per-room increase for every room whose count rose.
func roomDeltas(previous, current map[string]int) map[int64]int {
	deltas := make(map[int64]int)
	for key, count := range current {
		roomID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		if prev := previous[key]; count > prev {
			deltas[roomID] = count - prev
		}
	}
	return deltas
}

func defaultMessage(count int) string {
	if count == 1 {
		return "You have 1 new message"
	}
	return fmt.Sprintf("You have %d new messages", count)
}
