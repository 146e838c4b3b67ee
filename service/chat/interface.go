//go:generate go run go.uber.org/mock/mockgen -source=interface.go -destination=../../mocks/mock_chat.go -package=mocks
package chat

import (
	"context"
	"time"

	"DreamsChat/module/chat/model"
	"DreamsChat/service/events"
)

// TokenResolver maps a session token to its user. Any miss or lookup error
// must be reported as an error; callers treat every error as "invalid token".
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

// MembershipOracle answers whether a user may take part in a conversation.
type MembershipOracle interface {
	IsMember(ctx context.Context, userID, conversationID int64) (bool, error)
}

// MessageStore is the durable message log.
type MessageStore interface {
	// Append persists one message and returns its id.
	Append(ctx context.Context, conversationID, senderID int64, content string) (int64, error)
	// Recent returns at most limit messages of the conversation, oldest first.
	Recent(ctx context.Context, conversationID int64, limit int) ([]model.Message, error)
}

// EventPublisher forwards chat events to the message bus. Publish must not block.
type EventPublisher interface {
	Publish(ev events.Event)
}

// Presence records which connections are live on this node.
type Presence interface {
	Online(ctx context.Context, userID int64, connID string, ttl time.Duration) error
	Offline(ctx context.Context, userID int64, connID string) error
}
