// Package completion abstracts the language model used to phrase replies.
//
// The conversation workflow never talks to a model vendor directly. It asks
// a Client for text and falls back to templated responses when the client
// fails or returns nothing, so a missing API key or a provider outage
// degrades the phrasing of a reply, not the reply itself.
package completion

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the completion backend cannot serve requests,
// for example because no API key was configured. Callers should treat it
// as a signal to use their fallback path rather than retry.
var ErrUnavailable = errors.New("completion: backend unavailable")

// Client generates a single text completion for a prompt.
type Client interface {
	// Generate returns the model's text for the prompt. An empty string
	// with a nil error is valid and means the model produced no text.
	Generate(ctx context.Context, prompt string, maxTokens int64, temperature float64) (string, error)
}

// Disabled is a Client that always reports ErrUnavailable. It is the
// stand-in used when no API key is configured.
type Disabled struct{}

func (Disabled) Generate(ctx context.Context, prompt string, maxTokens int64, temperature float64) (string, error) {
	return "", ErrUnavailable
}
