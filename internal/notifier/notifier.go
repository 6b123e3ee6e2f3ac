// Package notifier
package notifier

// Notifier interface for sending notifications (e.g., Telegram).
type Notifier interface {
	Send(msg string) error
}

// Noop discards every message; used when no notifier is configured.
type Noop struct{}

func (Noop) Send(msg string) error { return nil }
