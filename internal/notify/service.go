package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// Prefs is the persisted slice of user preferences the service cares about.
// store.SQLitePrefsRepo satisfies it.
type Prefs interface {
	SoundEnabled(ctx context.Context) (bool, error)
	SetSoundEnabled(ctx context.Context, enabled bool) error
	NotificationsEnabled(ctx context.Context) (bool, error)
	SetNotificationsEnabled(ctx context.Context, enabled bool) error
}

// Service presents notifications to the user: system notification, tone,
// and in-app toast. It is a constructed dependency, not a singleton, so
// tests can substitute fakes.
type Service struct {
	mu           sync.Mutex
	desktop      Desktop
	prefs        Prefs
	toasts       Toaster
	enabled      bool
	soundEnabled bool
}

func New(desktop Desktop, prefs Prefs, toasts Toaster) *Service {
	s := &Service{
		desktop:      desktop,
		prefs:        prefs,
		toasts:       toasts,
		soundEnabled: true,
	}

	ctx := context.Background()

	if enabled, err := prefs.NotificationsEnabled(ctx); err == nil {
		s.enabled = enabled && desktop.Supported()
	} else {
		log.Printf("[NOTIFY] Could not read notification preference: %v", err)
	}

	if sound, err := prefs.SoundEnabled(ctx); err == nil {
		s.soundEnabled = sound
	} else {
		log.Printf("[NOTIFY] Could not read sound preference: %v", err)
	}

	return s
}

// RequestPermission asks the host for notification permission. On success a
// confirmatory notification is shown; on denial the service stays disabled
// and the user is told why.
func (s *Service) RequestPermission() bool {
	if !s.desktop.Supported() {
		s.toasts.Error("This environment does not support notifications", "")
		return false
	}

	// Nothing is persisted until the confirmatory notification actually
	// shows; a failed grant must leave the service disabled across restarts.
	if err := s.desktop.Show("Notifications enabled!", "You will now receive important updates.", "permission"); err != nil {
		s.mu.Lock()
		s.enabled = false
		s.mu.Unlock()
		if err := s.prefs.SetNotificationsEnabled(context.Background(), false); err != nil {
			log.Printf("[NOTIFY] Failed to persist notification preference: %v", err)
		}
		s.toasts.Error("Failed to show notifications", "You can enable them in your settings.")
		return false
	}

	s.mu.Lock()
	s.enabled = true
	s.mu.Unlock()

	if err := s.prefs.SetNotificationsEnabled(context.Background(), true); err != nil {
		log.Printf("[NOTIFY] Failed to persist notification preference: %v", err)
	}

	s.toasts.Success("Notification permissions granted!", "")
	return true
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *Service) SoundEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.soundEnabled
}

func (s *Service) SetSoundEnabled(enabled bool) {
	s.mu.Lock()
	s.soundEnabled = enabled
	s.mu.Unlock()

	if err := s.prefs.SetSoundEnabled(context.Background(), enabled); err != nil {
		log.Printf("[NOTIFY] Failed to persist sound preference: %v", err)
	}
}

func (s *Service) playSound() {
	if s.SoundEnabled() {
		s.desktop.Beep()
	}
}

// NotifyNewMessage announces an inbound message from another sender. A no-op
// unless permission was granted. The tag keeps repeated notifications for
// one room from stacking.
func (s *Service) NotifyNewMessage(senderName, content string, roomID int64) {
	if !s.Enabled() {
		return
	}

	s.playSound()

	body := truncate(content, 50)
	tag := fmt.Sprintf("chat-%d", roomID)
	if err := s.desktop.Show(fmt.Sprintf("New message from %s", senderName), body, tag); err != nil {
		log.Printf("[NOTIFY] Failed to show message notification: %v", err)
	}
}

// NotifyUnreadIncrease surfaces an unread-count jump. The toast fires
// regardless of system-notification permission; that is the path that still
// works when the user denied OS-level notifications.
func (s *Service) NotifyUnreadIncrease(total int, perRoom map[int64]int, message string) {
	s.playSound()

	s.toasts.Info(message, fmt.Sprintf("%d unread total", total))

	if !s.Enabled() {
		return
	}
	if err := s.desktop.Show("New messages", message, "unread-messages"); err != nil {
		log.Printf("[NOTIFY] Failed to show unread notification: %v", err)
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
