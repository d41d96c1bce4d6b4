package notify

import (
	"fmt"
	"os"
)

// Desktop abstracts the host notification surface so the service can be
// tested without one, and so a GUI build can swap in a real implementation.
type Desktop interface {
	// Supported reports whether the host can show notifications at all.
	Supported() bool
	// Show displays a notification. Notifications sharing a tag replace
	// each other instead of stacking.
	Show(title, body, tag string) error
	// Beep plays the short notification tone.
	Beep()
}

// TerminalDesktop renders notifications to stderr and uses the terminal
// bell as the tone.
type TerminalDesktop struct{}

func (TerminalDesktop) Supported() bool {
	return true
}

func (TerminalDesktop) Show(title, body, tag string) error {
	_, err := fmt.Fprintf(os.Stderr, "🔔 %s: %s\n", title, body)
	return err
}

func (TerminalDesktop) Beep() {
	fmt.Fprint(os.Stderr, "\a")
}
