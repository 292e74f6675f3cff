// Package chromem implements the vector memory store on chromem-go, a pure
// Go embedded vector database.
package chromem

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/cartmind/cartmind-go/memory"
)

const (
	userCollection    = "user_memory"
	sessionCollection = "session_memory"

	// sessionIDPrefix distinguishes the session-index copy of an entry.
	sessionIDPrefix = "session_"
)

// Config configures the store.
type Config struct {
	// Dir is the persistence directory. Empty means in-memory only.
	Dir string

	// Compress enables gzip compression of persisted documents.
	Compress bool
}

// Store keeps every entry in two chromem collections: one queried by user
// scope, one by session scope. A side ledger carries the ages and owners
// chromem cannot enumerate.
type Store struct {
	db       *chromem.DB
	users    *chromem.Collection
	sessions *chromem.Collection
	ledger   *ledger
}

// New opens (or creates) the store. With a persistence directory the
// collections and ledger survive process restarts.
func New(cfg Config) (*Store, error) {
	var db *chromem.DB
	if cfg.Dir == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(cfg.Dir, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db: %w", err)
		}
	}

	// Embeddings are always supplied by the caller, so no embedding func.
	users, err := db.GetOrCreateCollection(userCollection, map[string]string{"description": "User conversation memory"}, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s collection: %w", userCollection, err)
	}
	sessions, err := db.GetOrCreateCollection(sessionCollection, map[string]string{"description": "Session-specific memory"}, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s collection: %w", sessionCollection, err)
	}

	led, err := newLedger(cfg.Dir)
	if err != nil {
		return nil, err
	}

	return &Store{db: db, users: users, sessions: sessions, ledger: led}, nil
}

// Insert stores the entry under both indexes.
func (s *Store) Insert(ctx context.Context, entry memory.Entry) error {
	if entry.ID == "" {
		return fmt.Errorf("insert: entry id is empty")
	}
	if len(entry.Vector) == 0 {
		return fmt.Errorf("insert: entry vector is empty")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	meta := entryMetadata(entry)

	if err := s.users.AddDocument(ctx, chromem.Document{
		ID:        entry.ID,
		Content:   entry.Text,
		Embedding: entry.Vector,
		Metadata:  meta,
	}); err != nil {
		return fmt.Errorf("add to %s: %w", userCollection, err)
	}

	if err := s.sessions.AddDocument(ctx, chromem.Document{
		ID:        sessionIDPrefix + entry.ID,
		Content:   entry.Text,
		Embedding: entry.Vector,
		Metadata:  meta,
	}); err != nil {
		return fmt.Errorf("add to %s: %w", sessionCollection, err)
	}

	if err := s.ledger.add(ledgerRow{
		ID:        entry.ID,
		UserID:    entry.UserID,
		SessionID: entry.SessionID,
		CreatedAt: entry.CreatedAt,
	}); err != nil {
		return err
	}

	log.Printf("[CHROMEM] Stored entry id=%s user=%s session=%s", entry.ID, entry.UserID, entry.SessionID)
	return nil
}

// Query merges user-scope and session-scope neighbors by ascending
// distance, deduplicates by exact text keeping the closest occurrence, and
// truncates to limit.
func (s *Store) Query(ctx context.Context, scope memory.Scope, vector []float32, limit int) ([]memory.Hit, error) {
	if limit <= 0 {
		limit = 5
	}

	var hits []memory.Hit

	if scope.UserID != "" {
		results, err := s.queryCollection(ctx, s.users, vector, limit, map[string]string{"user_id": scope.UserID})
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", userCollection, err)
		}
		hits = append(hits, toHits(results)...)
	}

	if scope.SessionID != "" {
		results, err := s.queryCollection(ctx, s.sessions, vector, limit, map[string]string{"session_id": scope.SessionID})
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", sessionCollection, err)
		}
		hits = append(hits, toHits(results)...)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	seen := make(map[string]struct{}, len(hits))
	unique := hits[:0]
	for _, h := range hits {
		if _, dup := seen[h.Entry.Text]; dup {
			continue
		}
		seen[h.Entry.Text] = struct{}{}
		unique = append(unique, h)
		if len(unique) >= limit {
			break
		}
	}

	return unique, nil
}

// queryCollection runs one scoped nearest-neighbor query. chromem requires
// nResults <= collection size, and the size can shift under concurrent
// expiry, so the limit is clamped and then backed off on races.
func (s *Store) queryCollection(ctx context.Context, col *chromem.Collection, vector []float32, limit int, where map[string]string) ([]chromem.Result, error) {
	n := limit
	if count := col.Count(); count < n {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	for ; n >= 1; n-- {
		results, err := col.QueryEmbedding(ctx, vector, n, where, nil)
		if err == nil {
			return results, nil
		}
		if !isInsufficientDocsError(err) {
			return nil, err
		}
	}
	return nil, nil
}

// ExpireOlderThan removes entries older than the given age from both
// indexes and returns the total deletion count across both.
func (s *Store) ExpireOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-age)
	rows := s.ledger.olderThan(cutoff)
	if len(rows) == 0 {
		return 0, nil
	}

	userIDs := make([]string, 0, len(rows))
	sessionIDs := make([]string, 0, len(rows))
	for _, r := range rows {
		userIDs = append(userIDs, r.ID)
		sessionIDs = append(sessionIDs, sessionIDPrefix+r.ID)
	}

	deleted := 0
	if err := s.users.Delete(ctx, nil, nil, userIDs...); err != nil {
		return deleted, fmt.Errorf("delete from %s: %w", userCollection, err)
	}
	deleted += len(userIDs)

	if err := s.sessions.Delete(ctx, nil, nil, sessionIDs...); err != nil {
		return deleted, fmt.Errorf("delete from %s: %w", sessionCollection, err)
	}
	deleted += len(sessionIDs)

	if err := s.ledger.remove(userIDs); err != nil {
		return deleted, err
	}

	log.Printf("[CHROMEM] Expired %d documents older than %s", deleted, age)
	return deleted, nil
}

// Stats returns aggregate counts scoped to the user. Total is the plain sum
// of both index counts.
func (s *Store) Stats(_ context.Context, userID string) (memory.Stats, error) {
	n := s.ledger.countForUser(userID)
	return memory.Stats{
		UserEntries:    n,
		SessionEntries: n,
		Total:          2 * n,
	}, nil
}

// Close flushes the ledger. chromem persists documents on every mutation,
// so there is nothing further to release.
func (s *Store) Close() error {
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	return s.ledger.persistLocked()
}

func entryMetadata(entry memory.Entry) map[string]string {
	meta := map[string]string{
		"user_id":    entry.UserID,
		"session_id": entry.SessionID,
		"role":       string(entry.Role),
		"created_at": entry.CreatedAt.Format(time.RFC3339Nano),
	}
	for k, v := range entry.Extra {
		meta[k] = v
	}
	return meta
}

func toHits(results []chromem.Result) []memory.Hit {
	hits := make([]memory.Hit, 0, len(results))
	for _, res := range results {
		hits = append(hits, memory.Hit{
			Entry: resultToEntry(res),
			// chromem reports cosine similarity, higher is better.
			Distance: 1 - float64(res.Similarity),
		})
	}
	return hits
}

func resultToEntry(res chromem.Result) memory.Entry {
	createdAt, _ := time.Parse(time.RFC3339Nano, res.Metadata["created_at"])

	extra := make(map[string]string)
	for k, v := range res.Metadata {
		switch k {
		case "user_id", "session_id", "role", "created_at":
		default:
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		extra = nil
	}

	return memory.Entry{
		ID:        strings.TrimPrefix(res.ID, sessionIDPrefix),
		Text:      res.Content,
		Vector:    res.Embedding,
		UserID:    res.Metadata["user_id"],
		SessionID: res.Metadata["session_id"],
		Role:      memory.Role(res.Metadata["role"]),
		CreatedAt: createdAt,
		Extra:     extra,
	}
}

// isInsufficientDocsError reports whether a query failed only because the
// collection shrank below the requested result count.
func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
