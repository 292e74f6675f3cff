package conversation

import (
	"context"
	"time"
)

// Message is one durable chat message inside a session.
type Message struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	UserID    string            `json:"user_id"`
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Log persists the durable conversation record. This is the system of
// record for chat history; the vector memory index is derived from it.
type Log interface {
	// Append stores a message and returns it with ID and CreatedAt filled.
	Append(ctx context.Context, msg Message) (Message, error)

	// RecentMessages returns up to limit messages for a session in
	// chronological order, most recent window last.
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]Message, error)

	Close() error
}
