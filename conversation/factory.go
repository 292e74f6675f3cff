package conversation

import (
	"context"
	"strings"
)

// NewLog creates a postgres-backed log when configured, otherwise in-memory.
func NewLog(ctx context.Context, databaseURL string) (Log, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryLog(), nil
	}
	return NewPostgresLog(ctx, databaseURL)
}
