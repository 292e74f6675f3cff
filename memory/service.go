package memory

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cartmind/cartmind-go/conversation"
)

// Config holds Service configuration.
type Config struct {
	// ExpiryDays is the default age for expiry sweeps.
	// Default: 30.
	ExpiryDays int

	// DefaultLimit caps retrieval results when the caller passes no limit.
	// Default: 5.
	DefaultLimit int
}

// DefaultConfig returns the defaults used by the workflow.
var DefaultConfig = &Config{
	ExpiryDays:   30,
	DefaultLimit: 5,
}

// Service orchestrates the memory subsystem: it embeds text, writes entries
// to the vector store, retrieves scoped neighbors and reads recent history
// from the durable conversation log.
//
// Service methods return errors; callers are the degradation boundary. The
// workflow folds failures into the turn's failure note, the HTTP layer
// degrades to empty payloads. Memory failures never end a conversation.
type Service struct {
	store    Store
	embedder Embedder
	log      conversation.Log
	config   *Config
}

// NewService creates a Service. A nil config applies defaults.
func NewService(store Store, embedder Embedder, convLog conversation.Log, config *Config) *Service {
	if config == nil {
		config = DefaultConfig
	}
	if config.ExpiryDays <= 0 {
		config.ExpiryDays = DefaultConfig.ExpiryDays
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = DefaultConfig.DefaultLimit
	}
	return &Service{
		store:    store,
		embedder: embedder,
		log:      convLog,
		config:   config,
	}
}

// RememberParams describes one utterance to store.
type RememberParams struct {
	UserID    string
	SessionID string
	MessageID string
	Text      string
	Role      Role
	Extra     map[string]string

	// Vector may be pre-computed; when nil the service embeds Text.
	Vector []float32
}

// Remember embeds and stores one utterance under both indexes, returning
// the deterministic entry id.
func (s *Service) Remember(ctx context.Context, p RememberParams) (string, error) {
	vector := p.Vector
	if vector == nil {
		var err error
		vector, err = s.embedder.Embed(ctx, p.Text)
		if err != nil {
			return "", fmt.Errorf("embed entry: %w", err)
		}
	}

	entry := Entry{
		ID:        EntryID(p.UserID, p.SessionID, p.MessageID),
		Text:      p.Text,
		Vector:    vector,
		UserID:    p.UserID,
		SessionID: p.SessionID,
		Role:      p.Role,
		CreatedAt: time.Now().UTC(),
		Extra:     p.Extra,
	}

	if err := s.store.Insert(ctx, entry); err != nil {
		return "", fmt.Errorf("store entry: %w", err)
	}

	log.Printf("[MEMORY] Remembered %s entry for user=%s session=%s", p.Role, p.UserID, p.SessionID)
	return entry.ID, nil
}

// Search embeds the query text and returns the closest entries in scope,
// sorted ascending by distance.
func (s *Service) Search(ctx context.Context, scope Scope, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.store.Query(ctx, scope, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}

	log.Printf("[MEMORY] Retrieved %d entries for query: %q", len(hits), truncateLog(query, 50))
	return hits, nil
}

// Recent returns up to count recent messages for the session from the
// durable conversation log, oldest first. The workflow treats this as part
// of the memory context even though it is not vector-indexed.
func (s *Service) Recent(ctx context.Context, sessionID string, count int) ([]conversation.Message, error) {
	return s.log.RecentMessages(ctx, sessionID, count)
}

// Expire deletes entries older than the given number of days from both
// indexes. Days <= 0 falls back to the configured default.
func (s *Service) Expire(ctx context.Context, days int) (int, error) {
	if days < 0 {
		days = s.config.ExpiryDays
	}
	deleted, err := s.store.ExpireOlderThan(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		return 0, fmt.Errorf("expire entries: %w", err)
	}
	log.Printf("[MEMORY] Expired %d entries older than %d days", deleted, days)
	return deleted, nil
}

// Stats returns the user's aggregate entry counts.
func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	return s.store.Stats(ctx, userID)
}

// Close releases the store.
func (s *Service) Close() error {
	return s.store.Close()
}

// truncateLog truncates text for logging.
func truncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
