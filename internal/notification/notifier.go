// Package notification provides one-way alert delivery to external channels
// (Telegram, webhooks) for trading events.
//
// Delivery is fire-and-forget: a failed send is logged and discarded, never
// surfaced to the trading loop. Use Post from callers.
package notification

import (
	"context"
	"log"
)

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers a message. Returns error if delivery fails.
	Send(ctx context.Context, text string) error
}

// Post sends text through n, swallowing any delivery error. A nil notifier
// is a no-op, so callers never need to guard.
func Post(ctx context.Context, n Notifier, text string) {
	if n == nil {
		return
	}
	if err := n.Send(ctx, text); err != nil {
		log.Printf("[notify] delivery failed (discarded): %v", err)
	}
}

// LogNotifier is a simple notifier that logs messages (useful for development
// and as the default when no channel is configured).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, text string) error {
	log.Printf("[notify] %s", text)
	return nil
}

// Multi fans a message out to several backends. Each backend's failure is
// independent; the first error is returned for logging purposes only.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, text string) error {
	var first error
	for _, n := range m {
		if err := n.Send(ctx, text); err != nil && first == nil {
			first = err
		}
	}
	return first
}
