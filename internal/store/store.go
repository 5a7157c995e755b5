// ABOUTME: Store interface and data types for hearth conversation persistence
// ABOUTME: Defines Role, Message, Conversation and the Store interface

package store

import (
	"context"
	"errors"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a conversation log.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is an ordered message log, oldest first. Index 0 is the
// system prompt for any conversation produced by this package.
type Conversation []Message

// Clone returns an independent copy of the conversation.
func (c Conversation) Clone() Conversation {
	if c == nil {
		return nil
	}
	out := make(Conversation, len(c))
	copy(out, c)
	return out
}

// WithoutSystem returns the conversation with system messages removed.
// Used wherever the log is shown to a person rather than a model.
func (c Conversation) WithoutSystem() Conversation {
	out := make(Conversation, 0, len(c))
	for _, m := range c {
		if m.Role == RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Append returns a new conversation with msgs added. The receiver is not
// modified.
func (c Conversation) Append(msgs ...Message) Conversation {
	out := make(Conversation, len(c), len(c)+len(msgs))
	copy(out, c)
	return append(out, msgs...)
}

var (
	// ErrNotFound marks a client with no stored conversation. The file
	// store resolves it internally by seeding; callers of Store never
	// see it.
	ErrNotFound = errors.New("conversation not found")

	// ErrClosed is returned for operations on a closed store.
	ErrClosed = errors.New("store is closed")
)

// Store persists per-client conversation logs. Client IDs are opaque
// strings; implementations sanitize them as needed. All methods are safe
// for concurrent use.
type Store interface {
	// Load returns the client's conversation, creating and persisting a
	// seeded one if none exists yet.
	Load(ctx context.Context, clientID string) (Conversation, error)

	// Append durably adds msgs to the client's conversation in a single
	// write and returns the updated log; either every message lands or
	// none do. The client is seeded first if needed.
	Append(ctx context.Context, clientID string, msgs ...Message) (Conversation, error)

	// Read returns the client's conversation without creating one. A
	// client never seen before gets the seeded default back with nothing
	// written.
	Read(ctx context.Context, clientID string) (Conversation, error)

	// List returns the IDs of all clients with a stored conversation.
	List(ctx context.Context) ([]string, error)

	// Close releases resources. The store must not be used afterwards.
	Close() error
}
