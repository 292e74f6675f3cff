package memory

import (
	"context"
	"fmt"
	"time"
)

// Role identifies who produced a remembered utterance.
type Role string

const (
	RoleUser Role = "user"
	RoleAI   Role = "ai"
)

// Entry is one embedded, timestamped utterance scoped to a user and session.
// Entries are immutable once written: the store never mutates them, it only
// deletes them on expiry.
type Entry struct {
	// ID is the deterministic key derived from user, session and message ids.
	ID string

	// Text is the original utterance content.
	Text string

	// Vector is the fixed-length embedding of Text.
	Vector []float32

	UserID    string
	SessionID string
	Role      Role
	CreatedAt time.Time

	// Extra carries open key-value metadata, e.g. the classified intent.
	Extra map[string]string
}

// Scope restricts which entries a query considers. Either field may be
// empty; an empty field skips that index.
type Scope struct {
	UserID    string
	SessionID string
}

// Hit is one scored query result. Lower distance means more similar.
type Hit struct {
	Entry    Entry
	Distance float64
}

// Stats reports aggregate entry counts for one user. Total is the sum of
// the two index counts, not deduplicated.
type Stats struct {
	UserEntries    int `json:"user_memory_count"`
	SessionEntries int `json:"session_memory_count"`
	Total          int `json:"total_memory_count"`
}

// EntryID builds the deterministic entry key from its owning identifiers.
// The same triple always yields the same id, across process restarts.
func EntryID(userID, sessionID, messageID string) string {
	return fmt.Sprintf("user_%s_session_%s_msg_%s", userID, sessionID, messageID)
}

// Embedder converts text to a fixed-length vector.
// Implementations: hash.Embedder (deterministic placeholder), the ONNX
// embedder (real local model, behind the onnx build tag).
//
// The placeholder embedder is symmetric, so a single Embed method covers
// both documents and queries. If an asymmetric production model is ever
// plugged in, the document/query split belongs here, not in Store or the
// workflow.
type Embedder interface {
	// Embed converts a single text to its embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Store is the vector storage backend. It owns a per-user and a per-session
// index of entries and must be safe for concurrent readers and writers.
type Store interface {
	// Insert stores the entry under both indexes. The entry is visible to
	// queries as soon as Insert returns.
	Insert(ctx context.Context, entry Entry) error

	// Query runs a nearest-neighbor scan restricted to the scope, merging
	// per-user and per-session results by ascending distance, deduplicating
	// by exact text and truncating to limit.
	Query(ctx context.Context, scope Scope, vector []float32, limit int) ([]Hit, error)

	// ExpireOlderThan deletes entries created before now minus the given
	// age from both indexes and returns the total number of deletions.
	ExpireOlderThan(ctx context.Context, age time.Duration) (int, error)

	// Stats returns aggregate counts for one user.
	Stats(ctx context.Context, userID string) (Stats, error)

	// Close flushes and releases resources.
	Close() error
}
