package chromem

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cartmind/cartmind-go/memory"
	"github.com/cartmind/cartmind-go/memory/embedder/hash"
)

func newTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	store, err := New(Config{Dir: dir})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func insertText(t *testing.T, store *Store, userID, sessionID, messageID, text string, createdAt time.Time) memory.Entry {
	t.Helper()
	vec, err := hash.New().Embed(context.Background(), text)
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	entry := memory.Entry{
		ID:        memory.EntryID(userID, sessionID, messageID),
		Text:      text,
		Vector:    vec,
		UserID:    userID,
		SessionID: sessionID,
		Role:      memory.RoleUser,
		CreatedAt: createdAt,
	}
	if err := store.Insert(context.Background(), entry); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	return entry
}

func TestStore_RoundTrip(t *testing.T) {
	store := newTestStore(t, "")
	ctx := context.Background()
	now := time.Now().UTC()

	insertText(t, store, "u1", "s1", "m1", "I ordered a blue kettle", now)
	insertText(t, store, "u1", "s1", "m2", "what is the weather like", now)

	vec, _ := hash.New().Embed(ctx, "I ordered a blue kettle")
	hits, err := store.Query(ctx, memory.Scope{UserID: "u1", SessionID: "s1"}, vec, 5)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected hits")
	}
	if hits[0].Entry.Text != "I ordered a blue kettle" {
		t.Errorf("expected exact text first, got %q", hits[0].Entry.Text)
	}
	if hits[0].Distance > 1e-5 {
		t.Errorf("expected near-zero distance for exact text, got %v", hits[0].Distance)
	}
}

func TestStore_QueryDedupAndOrdering(t *testing.T) {
	store := newTestStore(t, "")
	ctx := context.Background()
	now := time.Now().UTC()

	// Same text stored in both scopes under distinct ids.
	insertText(t, store, "u1", "s1", "m1", "order #55 was delivered", now)
	insertText(t, store, "u1", "s2", "m2", "order #55 was delivered", now)
	insertText(t, store, "u1", "s1", "m3", "I like green tea", now)

	vec, _ := hash.New().Embed(ctx, "order #55 was delivered")
	hits, err := store.Query(ctx, memory.Scope{UserID: "u1", SessionID: "s1"}, vec, 10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, h := range hits {
		if seen[h.Entry.Text] {
			t.Errorf("duplicate text in results: %q", h.Entry.Text)
		}
		seen[h.Entry.Text] = true
	}

	for i := 1; i < len(hits); i++ {
		if hits[i].Distance < hits[i-1].Distance {
			t.Errorf("results not sorted by distance at %d: %v < %v", i, hits[i].Distance, hits[i-1].Distance)
		}
	}
}

func TestStore_QueryLimit(t *testing.T) {
	store := newTestStore(t, "")
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 8; i++ {
		insertText(t, store, "u1", "s1", fmt.Sprintf("m%d", i), fmt.Sprintf("message number %d", i), now)
	}

	vec, _ := hash.New().Embed(ctx, "message number 3")
	hits, err := store.Query(ctx, memory.Scope{UserID: "u1", SessionID: "s1"}, vec, 3)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(hits) > 3 {
		t.Errorf("expected at most 3 hits, got %d", len(hits))
	}
}

func TestStore_QueryEmpty(t *testing.T) {
	store := newTestStore(t, "")
	ctx := context.Background()

	vec, _ := hash.New().Embed(ctx, "anything")
	hits, err := store.Query(ctx, memory.Scope{UserID: "nobody", SessionID: "nowhere"}, vec, 5)
	if err != nil {
		t.Fatalf("query on empty store failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %d", len(hits))
	}
}

func TestStore_ScopeIsolation(t *testing.T) {
	store := newTestStore(t, "")
	ctx := context.Background()
	now := time.Now().UTC()

	insertText(t, store, "u1", "s1", "m1", "alpha message", now)
	insertText(t, store, "u2", "s2", "m2", "beta message", now)

	vec, _ := hash.New().Embed(ctx, "alpha message")
	hits, err := store.Query(ctx, memory.Scope{UserID: "u1", SessionID: "s1"}, vec, 10)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	for _, h := range hits {
		if h.Entry.UserID != "u1" {
			t.Errorf("leaked entry from user %q", h.Entry.UserID)
		}
	}
}

func TestStore_ExpireOlderThan(t *testing.T) {
	store := newTestStore(t, "")
	ctx := context.Background()
	now := time.Now().UTC()

	insertText(t, store, "u1", "s1", "m1", "old message", now.Add(-40*24*time.Hour))
	insertText(t, store, "u1", "s1", "m2", "fresh message", now)

	// A huge age deletes nothing.
	deleted, err := store.ExpireOlderThan(ctx, 365*24*time.Hour)
	if err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 deletions, got %d", deleted)
	}

	// Thirty days removes the old entry from both indexes.
	deleted, err = store.ExpireOlderThan(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deletions (both indexes), got %d", deleted)
	}

	// Age zero sweeps everything written so far.
	deleted, err = store.ExpireOlderThan(ctx, 0)
	if err != nil {
		t.Fatalf("expire failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deletions, got %d", deleted)
	}

	stats, err := store.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Total != 0 {
		t.Errorf("expected empty store, got %+v", stats)
	}
}

func TestStore_Stats(t *testing.T) {
	store := newTestStore(t, "")
	ctx := context.Background()
	now := time.Now().UTC()

	insertText(t, store, "u1", "s1", "m1", "first", now)
	insertText(t, store, "u1", "s1", "m2", "second", now)
	insertText(t, store, "u2", "s2", "m3", "third", now)

	stats, err := store.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.UserEntries != 2 || stats.SessionEntries != 2 || stats.Total != 4 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestStore_ConcurrentInserts(t *testing.T) {
	store := newTestStore(t, "")
	ctx := context.Background()
	now := time.Now().UTC()
	embedder := hash.New()

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			text := fmt.Sprintf("concurrent message %d", i)
			vec, _ := embedder.Embed(ctx, text)
			err := store.Insert(ctx, memory.Entry{
				ID:        memory.EntryID("u1", "s1", fmt.Sprintf("m%d", i)),
				Text:      text,
				Vector:    vec,
				UserID:    "u1",
				SessionID: "s1",
				Role:      memory.RoleUser,
				CreatedAt: now,
			})
			if err != nil {
				t.Errorf("concurrent insert %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	vec, _ := embedder.Embed(ctx, "concurrent message 0")
	hits, err := store.Query(ctx, memory.Scope{UserID: "u1", SessionID: "s1"}, vec, n)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(hits) != n {
		t.Errorf("expected %d distinct entries, got %d", n, len(hits))
	}
	texts := make(map[string]bool)
	for _, h := range hits {
		if texts[h.Entry.Text] {
			t.Errorf("duplicate entry %q", h.Entry.Text)
		}
		texts[h.Entry.Text] = true
	}
}

func TestStore_PersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	now := time.Now().UTC()

	store := newTestStore(t, dir)
	insertText(t, store, "u1", "s1", "m1", "durable message", now)
	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened := newTestStore(t, dir)
	defer reopened.Close()

	vec, _ := hash.New().Embed(ctx, "durable message")
	hits, err := reopened.Query(ctx, memory.Scope{UserID: "u1", SessionID: "s1"}, vec, 5)
	if err != nil {
		t.Fatalf("query after reopen failed: %v", err)
	}
	if len(hits) == 0 || hits[0].Entry.Text != "durable message" {
		t.Fatalf("expected durable entry after reopen, got %+v", hits)
	}

	stats, err := reopened.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats after reopen failed: %v", err)
	}
	if stats.UserEntries != 1 {
		t.Errorf("expected ledger to survive reopen, got %+v", stats)
	}
}
