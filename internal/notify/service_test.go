package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDesktop struct {
	supported bool
	showErr   error
	shown     []string
	tags      []string
	beeps     int
}

func (d *fakeDesktop) Supported() bool { return d.supported }

func (d *fakeDesktop) Show(title, body, tag string) error {
	if d.showErr != nil {
		return d.showErr
	}
	d.shown = append(d.shown, title+": "+body)
	d.tags = append(d.tags, tag)
	return nil
}

func (d *fakeDesktop) Beep() { d.beeps++ }

type fakePrefs struct {
	sound         bool
	notifications bool
}

func (p *fakePrefs) SoundEnabled(ctx context.Context) (bool, error) { return p.sound, nil }
func (p *fakePrefs) SetSoundEnabled(ctx context.Context, enabled bool) error {
	p.sound = enabled
	return nil
}
func (p *fakePrefs) NotificationsEnabled(ctx context.Context) (bool, error) {
	return p.notifications, nil
}
func (p *fakePrefs) SetNotificationsEnabled(ctx context.Context, enabled bool) error {
	p.notifications = enabled
	return nil
}

type fakeToaster struct {
	infos, successes, errors []string
}

func (f *fakeToaster) Info(msg, description string) { f.infos = append(f.infos, msg) }
func (f *fakeToaster) Success(msg, description string) {
	f.successes = append(f.successes, msg)
}
func (f *fakeToaster) Error(msg, description string) { f.errors = append(f.errors, msg) }

func TestNewMessageSilentWithoutPermission(t *testing.T) {
	desktop := &fakeDesktop{supported: true}
	service := New(desktop, &fakePrefs{sound: true}, &fakeToaster{})

	service.NotifyNewMessage("Mira", "hello", 7)

	require.Empty(t, desktop.shown)
	require.Zero(t, desktop.beeps)
}

func TestRequestPermissionEnablesAndPersists(t *testing.T) {
	desktop := &fakeDesktop{supported: true}
	prefs := &fakePrefs{sound: true}
	toasts := &fakeToaster{}
	service := New(desktop, prefs, toasts)

	require.True(t, service.RequestPermission())
	require.True(t, service.Enabled())
	require.True(t, prefs.notifications)
	require.Len(t, toasts.successes, 1)
	require.Len(t, desktop.shown, 1)

	service.NotifyNewMessage("Mira", "hello", 7)
	require.Len(t, desktop.shown, 2)
	require.Equal(t, "chat-7", desktop.tags[1])
	require.Equal(t, 1, desktop.beeps)
}

func TestRequestPermissionUnsupportedHost(t *testing.T) {
	desktop := &fakeDesktop{supported: false}
	toasts := &fakeToaster{}
	service := New(desktop, &fakePrefs{sound: true}, toasts)

	require.False(t, service.RequestPermission())
	require.False(t, service.Enabled())
	require.Len(t, toasts.errors, 1)
}

func TestRequestPermissionShowFailureDisables(t *testing.T) {
	desktop := &fakeDesktop{supported: true, showErr: errors.New("display gone")}
	prefs := &fakePrefs{sound: true}
	toasts := &fakeToaster{}
	service := New(desktop, prefs, toasts)

	require.False(t, service.RequestPermission())
	require.False(t, service.Enabled())
	require.False(t, prefs.notifications)
	require.Len(t, toasts.errors, 1)

	// A failed grant must stay failed across a restart: a fresh service
	// over the same preferences comes up disabled even on a healthy host.
	restarted := New(&fakeDesktop{supported: true}, prefs, &fakeToaster{})
	require.False(t, restarted.Enabled())
}

func TestRequestPermissionFailureAfterPriorGrantDisablesPersistently(t *testing.T) {
	prefs := &fakePrefs{sound: true, notifications: true}
	desktop := &fakeDesktop{supported: true, showErr: errors.New("display gone")}
	service := New(desktop, prefs, &fakeToaster{})

	require.False(t, service.RequestPermission())
	require.False(t, prefs.notifications)
}

func TestPersistedPermissionSurvivesRestart(t *testing.T) {
	desktop := &fakeDesktop{supported: true}
	prefs := &fakePrefs{sound: true, notifications: true}

	service := New(desktop, prefs, &fakeToaster{})
	require.True(t, service.Enabled())
}

func TestSoundPreferenceGatesBeep(t *testing.T) {
	desktop := &fakeDesktop{supported: true}
	prefs := &fakePrefs{sound: true, notifications: true}
	service := New(desktop, prefs, &fakeToaster{})

	service.NotifyNewMessage("Mira", "one", 7)
	require.Equal(t, 1, desktop.beeps)

	service.SetSoundEnabled(false)
	require.False(t, prefs.sound)

	service.NotifyNewMessage("Mira", "two", 7)
	require.Equal(t, 1, desktop.beeps)
	require.Len(t, desktop.shown, 2)
}

func TestUnreadIncreaseToastsEvenWithoutPermission(t *testing.T) {
	desktop := &fakeDesktop{supported: true}
	toasts := &fakeToaster{}
	service := New(desktop, &fakePrefs{sound: false}, toasts)

	service.NotifyUnreadIncrease(5, map[int64]int{7: 2}, "You have 2 new messages")

	require.Equal(t, []string{"You have 2 new messages"}, toasts.infos)
	require.Empty(t, desktop.shown)
}

func TestNewMessageBodyIsTruncated(t *testing.T) {
	desktop := &fakeDesktop{supported: true}
	service := New(desktop, &fakePrefs{sound: false, notifications: true}, &fakeToaster{})

	long := ""
	for i := 0; i < 30; i++ {
		long += "abc"
	}
	service.NotifyNewMessage("Mira", long, 7)

	require.Len(t, desktop.shown, 1)
	require.Contains(t, desktop.shown[0], "...")
	require.LessOrEqual(t, len(desktop.shown[0]), len("New message from Mira: ")+53)
}
