package connector

import "context"

// Sender delivers outbound text to an external messaging platform.
type Sender interface {
	// Name returns the connector type (e.g., "telegram", "slack").
	Name() string
	// Send delivers an outbound message to the external platform.
	Send(ctx context.Context, msg OutboundMessage) error
}

// Connector is a Sender that can also receive messages by itself (long polling).
type Connector interface {
	Sender
	// Start begins listening for inbound messages. Blocks until context is cancelled.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the connector.
	Stop() error
}

// OutboundMessage is a message sent from the desk to an external platform.
type OutboundMessage struct {
	ChatID  string // Platform-specific chat identifier; "" means the sender's default channel
	Content string // Telegram-style HTML subset (<b>, <i>, <code>, <pre>); user text escaped
}

// InboundMessage is one decoded text message received from an external platform.
type InboundMessage struct {
	Channel     string // Connector name (e.g., "telegram", "webhook:crm")
	SenderID    string // Platform-specific sender identifier
	ChatID      string // Platform-specific chat identifier
	Username    string // Optional sender handle, without "@"
	DisplayName string // Optional sender display name
	Content     string // Message text
}

// InboundHandler processes messages received from external platforms.
type InboundHandler func(ctx context.Context, msg InboundMessage) error

// Responder processes one inbound message and returns the reply text for
// transports that answer in-band instead of through a Sender.
type Responder func(ctx context.Context, msg InboundMessage) (string, error)
