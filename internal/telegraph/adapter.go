// Package telegraph announces board events (WIP rejections, full columns,
// deleted field definitions, ordering repairs) to chat platforms.
package telegraph

import "context"

// Sender is the interface that platform-specific implementations must satisfy.
type Sender interface {
	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg OutboundMessage) error
}

// OutboundMessage represents a message to be sent to the chat platform.
type OutboundMessage struct {
	ChannelID string           // target channel (empty for the sender's default)
	Text      string           // message text (platform-native formatting)
	Events    []FormattedEvent // structured event attachments
}

// FormattedEvent represents a board event formatted for display in chat.
type FormattedEvent struct {
	Title    string  // event headline (e.g. "Column Review is full")
	Body     string  // detail text
	Severity string  // "info", "warning", "error", "success"
	Color    string  // sidebar color hint (e.g. "#36a64f" for success)
	Fields   []Field // key-value metadata pairs
}

// Field is a key-value pair displayed in an event attachment.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}
