package notify

import "log"

// Toaster is the in-app, low-severity user-facing surface. It works even
// when system notifications are denied.
type Toaster interface {
	Info(msg, description string)
	Success(msg, description string)
	Error(msg, description string)
}

// LogToaster renders toasts as log lines, which is all a terminal front-end
// needs.
type LogToaster struct{}

func (LogToaster) Info(msg, description string) {
	log.Printf("[TOAST] ℹ️  %s%s", msg, detail(description))
}

func (LogToaster) Success(msg, description string) {
	log.Printf("[TOAST] ✅ %s%s", msg, detail(description))
}

func (LogToaster) Error(msg, description string) {
	log.Printf("[TOAST] ❌ %s%s", msg, detail(description))
}

func detail(description string) string {
	if description == "" {
		return ""
	}
	return " (" + description + ")"
}
