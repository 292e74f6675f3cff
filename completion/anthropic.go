package completion

import (
	"context"
	"fmt"
	"log"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultModel is used when the caller does not pick a model explicitly.
const DefaultModel = string(anthropic.ModelClaude3_5HaikuLatest)

// AnthropicClient implements Client on top of the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient builds a client for the given API key and model.
// An empty model selects DefaultModel.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	if model == "" {
		model = DefaultModel
	}
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Generate sends a single-turn message request and concatenates the text
// blocks of the response.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string, maxTokens int64, temperature float64) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic message request: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	log.Printf("[COMPLETION] Generated %d chars (model=%s, in=%d out=%d tokens)",
		len(text), c.model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return text, nil
}
