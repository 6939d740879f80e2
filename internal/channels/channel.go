// Package channels provides the transport abstraction between the messaging
// network and the processing pipeline. A channel reads raw events from its
// network and publishes them to the message bus; outbound messages flow back
// through Send.
package channels

import (
	"context"

	"github.com/bamit99/whatsapp-bot/internal/bus"
)

// Channel is the interface every transport implementation satisfies.
type Channel interface {
	// Name returns the channel identifier (e.g. "whatsapp").
	Name() string

	// Start begins listening for events. Non-blocking after setup.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop(ctx context.Context) error

	// Send delivers an outbound message. A connectivity failure is
	// returned, not retried; callers log and move on.
	Send(ctx context.Context, msg bus.OutboundMessage) error

	// IsConnected reports whether the channel currently has a live
	// transport connection.
	IsConnected() bool
}

// Truncate shortens a string to maxLen, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
