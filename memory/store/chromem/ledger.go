package chromem

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ledgerRow records one logical entry's identity and age. chromem-go has no
// range filters and no metadata enumeration, so expiry sweeps and per-user
// counts need this side catalog.
type ledgerRow struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ledger is the side catalog of stored entries. With an empty path it lives
// purely in memory; otherwise every mutation is flushed to a JSON file next
// to the chromem persistence directory.
type ledger struct {
	mu   sync.RWMutex
	path string
	rows map[string]ledgerRow
}

func newLedger(dir string) (*ledger, error) {
	l := &ledger{rows: make(map[string]ledgerRow)}
	if dir == "" {
		return l, nil
	}

	l.path = filepath.Join(dir, "ledger.json")
	raw, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var rows []ledgerRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	for _, r := range rows {
		l.rows[r.ID] = r
	}
	return l, nil
}

func (l *ledger) add(row ledgerRow) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows[row.ID] = row
	return l.persistLocked()
}

func (l *ledger) remove(ids []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		delete(l.rows, id)
	}
	return l.persistLocked()
}

// olderThan returns the rows created strictly before the cutoff.
func (l *ledger) olderThan(cutoff time.Time) []ledgerRow {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []ledgerRow
	for _, r := range l.rows {
		if r.CreatedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func (l *ledger) countForUser(userID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, r := range l.rows {
		if r.UserID == userID {
			n++
		}
	}
	return n
}

// persistLocked flushes the catalog via a temp file rename so readers never
// observe a torn write. Caller holds the write lock.
func (l *ledger) persistLocked() error {
	if l.path == "" {
		return nil
	}

	rows := make([]ledgerRow, 0, len(l.rows))
	for _, r := range l.rows {
		rows = append(rows, r)
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
