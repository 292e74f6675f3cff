package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

const assistantInstruction = "Respond as a helpful e-commerce assistant with memory and personalization. Reference past conversations when relevant."

// buildPrompt assembles the single completion prompt: the user message, the
// live context as JSON, up to 3 top-ranked memory entries and up to 5 recent
// history messages.
func buildPrompt(state *TurnState) string {
	var parts []string
	parts = append(parts, "User: "+state.UserMessage)

	if state.Live != nil {
		if encoded, err := json.Marshal(state.Live); err == nil {
			parts = append(parts, "Current Context: "+string(encoded))
		}
	}

	if len(state.Memory) > 0 {
		var b strings.Builder
		b.WriteString("Relevant Past Conversations:\n")
		for i, hit := range state.Memory {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "%d. %s\n", i+1, hit.Entry.Text)
		}
		parts = append(parts, b.String())
	}

	if len(state.History) > 0 {
		var b strings.Builder
		b.WriteString("Recent Conversation History:\n")
		history := state.History
		if len(history) > 5 {
			history = history[len(history)-5:]
		}
		for _, msg := range history {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
		parts = append(parts, b.String())
	}

	parts = append(parts, assistantInstruction)
	return strings.Join(parts, "\n\n")
}

// fallbackResponse produces the deterministic templated reply used whenever
// the completion backend fails or returns nothing.
func fallbackResponse(state *TurnState) string {
	switch state.Intent {
	case IntentMemoryRecall:
		if len(state.Memory) == 0 {
			return "I don't have specific memories of our previous conversations, but I'm here to help!"
		}
		var b strings.Builder
		b.WriteString("Based on our previous conversations, ")
		for i, hit := range state.Memory {
			if i >= 2 {
				break
			}
			fmt.Fprintf(&b, "I remember %s. ", hit.Entry.Text)
		}
		b.WriteString("How can I help you today?")
		return b.String()

	case IntentOrderStatus:
		if state.Live != nil && state.Live.Order != nil {
			order := state.Live.Order
			created := "Unknown"
			if order.CreatedAt != nil {
				created = order.CreatedAt.Format("2006-01-02")
			}
			return fmt.Sprintf("Your order #%d is currently %s. Created on %s.", order.OrderID, order.Status, created)
		}
		return "I couldn't find that order. Please check your order number and try again."

	case IntentProductInfo:
		if state.Live != nil && state.Live.Product != nil {
			p := state.Live.Product
			return fmt.Sprintf("The product '%s' by %s is priced at $%.2f.", p.Name, p.Brand, p.RetailPrice)
		}
		return "I couldn't find that product. Please check the product ID and try again."

	default:
		return "I'm here to help with your e-commerce questions! You can ask about order status, product information, or reference our previous conversations."
	}
}

// generateResponse calls the completion backend and falls back to the
// templated reply on any failure or empty result. The turn always ends up
// with a non-empty response.
func (e *Engine) generateResponse(ctx context.Context, state *TurnState) {
	cctx, cancel := context.WithTimeout(ctx, e.completionTimeout)
	defer cancel()

	text, err := e.completion.Generate(cctx, buildPrompt(state), e.maxTokens, e.temperature)
	if err == nil && strings.TrimSpace(text) != "" {
		state.Response = text
		return
	}

	if err != nil {
		state.noteFailure(fmt.Sprintf("completion error: %v", err))
		log.Printf("[WORKFLOW] Completion failed, using fallback: %v", err)
	} else {
		state.noteFailure("completion returned empty text")
	}
	if e.metrics != nil {
		e.metrics.CompletionFallbacks.Inc()
	}
	state.Response = fallbackResponse(state)
}
