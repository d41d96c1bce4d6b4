package queue

import (
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// sweeper owns the per-room retry schedules. One cron instance carries all
// rooms; entries are added and removed as rooms come and go.
type sweeper struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[int64]cron.EntryID
	spec    string
}

func newSweeper(spec string) *sweeper {
	c := cron.New()
	c.Start()
	return &sweeper{
		cron:    c,
		entries: make(map[int64]cron.EntryID),
		spec:    spec,
	}
}

func (s *sweeper) start(roomID int64, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[roomID]; ok {
		s.cron.Remove(id)
	}

	id, err := s.cron.AddFunc(s.spec, fn)
	if err != nil {
		log.Printf("[QUEUE] Error scheduling retry sweep for room %d: %v", roomID, err)
		return
	}
	s.entries[roomID] = id
}

func (s *sweeper) stop(roomID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[roomID]; ok {
		s.cron.Remove(id)
		delete(s.entries, roomID)
	}
}

func (s *sweeper) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for roomID, id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, roomID)
	}
}
