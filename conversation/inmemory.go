package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryLog is a simple in-process conversation log for local/dev use.
type InMemoryLog struct {
	mu       sync.RWMutex
	messages map[string][]Message
}

func NewInMemoryLog() *InMemoryLog {
	return &InMemoryLog{messages: make(map[string][]Message)}
}

func (l *InMemoryLog) Append(_ context.Context, msg Message) (Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	l.messages[msg.SessionID] = append(l.messages[msg.SessionID], msg)
	return msg, nil
}

func (l *InMemoryLog) RecentMessages(_ context.Context, sessionID string, limit int) ([]Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	arr := l.messages[sessionID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]Message, 0, limit)
	for i := len(arr) - limit; i < len(arr); i++ {
		out = append(out, arr[i])
	}
	return out, nil
}

func (l *InMemoryLog) Close() error { return nil }
