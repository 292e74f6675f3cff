package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cartmind/cartmind-go/completion"
	"github.com/cartmind/cartmind-go/conversation"
	"github.com/cartmind/cartmind-go/lookup"
	"github.com/cartmind/cartmind-go/memory"
	"github.com/cartmind/cartmind-go/memory/embedder/hash"
	chromemstore "github.com/cartmind/cartmind-go/memory/store/chromem"
)

type stubCompletion struct {
	text string
	err  error
}

func (s *stubCompletion) Generate(ctx context.Context, prompt string, maxTokens int64, temperature float64) (string, error) {
	return s.text, s.err
}

type testEnv struct {
	engine  *Engine
	mem     *memory.Service
	orders  *lookup.InMemoryLookup
	convLog *conversation.InMemoryLog
}

func newTestEnv(t *testing.T, client completion.Client) *testEnv {
	t.Helper()

	store, err := chromemstore.New(chromemstore.Config{})
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	convLog := conversation.NewInMemoryLog()
	mem := memory.NewService(store, hash.New(), convLog, nil)
	t.Cleanup(func() { mem.Close() })

	lookups := lookup.NewInMemoryLookup()
	return &testEnv{
		engine:  NewEngine(mem, lookups, lookups, client),
		mem:     mem,
		orders:  lookups,
		convLog: convLog,
	}
}

func TestClassifyIntent(t *testing.T) {
	cases := []struct {
		message string
		want    Intent
	}{
		{"What is the status of order #102?", IntentOrderStatus},
		{"Can you track my order please", IntentOrderStatus},
		{"Tell me about product 42", IntentProductInfo},
		{"Is this item in stock?", IntentProductInfo},
		{"Can you remind me what I ordered before?", IntentMemoryRecall},
		{"What did we talk about last time?", IntentMemoryRecall},
		{"Remind me about my order", IntentMemoryRecall},
		{"Hello there", IntentGeneral},
	}
	for _, tc := range cases {
		if got := ClassifyIntent(tc.message); got != tc.want {
			t.Errorf("ClassifyIntent(%q) = %q, want %q", tc.message, got, tc.want)
		}
	}
}

func TestExtractID(t *testing.T) {
	if id, ok := extractID(orderIDPattern, "status of order #102 please", nil); !ok || id != 102 {
		t.Errorf("expected 102, got %d ok=%v", id, ok)
	}
	if id, ok := extractID(orderIDPattern, "status of order 7", nil); !ok || id != 7 {
		t.Errorf("expected 7, got %d ok=%v", id, ok)
	}
	if _, ok := extractID(orderIDPattern, "where is my package", nil); ok {
		t.Error("expected no match")
	}

	// Falls back to ranked memory when the message has no id.
	hits := []memory.Hit{
		{Entry: memory.Entry{Text: "I like turtles"}},
		{Entry: memory.Entry{Text: "I placed order #55 yesterday"}},
	}
	if id, ok := extractID(orderIDPattern, "what is the status of my order?", hits); !ok || id != 55 {
		t.Errorf("expected 55 from memory, got %d ok=%v", id, ok)
	}
}

func TestRun_OrderNotFoundFallback(t *testing.T) {
	env := newTestEnv(t, &stubCompletion{err: completion.ErrUnavailable})

	state := env.engine.Run(context.Background(), "u1", "s1", "What is the status of order #102?")

	if state.Stage != StageDone {
		t.Errorf("expected Done, got %v", state.Stage)
	}
	if state.Intent != IntentOrderStatus {
		t.Errorf("expected order_status, got %q", state.Intent)
	}
	if state.Live == nil || state.Live.NotFound == "" {
		t.Fatalf("expected not-found context, got %+v", state.Live)
	}
	want := "I couldn't find that order. Please check your order number and try again."
	if state.Response != want {
		t.Errorf("unexpected response: %q", state.Response)
	}
}

func TestRun_OrderFoundFallbackTemplate(t *testing.T) {
	env := newTestEnv(t, &stubCompletion{err: completion.ErrUnavailable})
	created := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	env.orders.SeedOrder(lookup.OrderStatus{OrderID: 7, Status: "shipped", CreatedAt: &created})

	state := env.engine.Run(context.Background(), "u1", "s1", "track my order 7")

	if state.Live == nil || state.Live.Order == nil {
		t.Fatalf("expected resolved order, got %+v", state.Live)
	}
	want := "Your order #7 is currently shipped. Created on 2026-03-14."
	if state.Response != want {
		t.Errorf("unexpected response: %q", state.Response)
	}
}

func TestRun_MemoryRecall(t *testing.T) {
	env := newTestEnv(t, &stubCompletion{err: completion.ErrUnavailable})
	ctx := context.Background()

	// Two earlier turns, one of them mentioning the order.
	seed := []string{
		"I placed order #55 for a blue kettle",
		"The weather is nice today",
	}
	for i, text := range seed {
		if _, err := env.mem.Remember(ctx, memory.RememberParams{
			UserID:    "u1",
			SessionID: "s1",
			MessageID: string(rune('a' + i)),
			Text:      text,
			Role:      memory.RoleUser,
		}); err != nil {
			t.Fatalf("seeding memory: %v", err)
		}
	}

	state := env.engine.Run(ctx, "u1", "s1", "Can you remind me what I ordered before?")

	if state.Intent != IntentMemoryRecall {
		t.Fatalf("expected memory_recall, got %q", state.Intent)
	}
	if len(state.Memory) == 0 {
		t.Fatal("expected retrieved memory")
	}
	if !strings.Contains(state.Response, "Based on our previous conversations") {
		t.Errorf("expected recall fallback, got %q", state.Response)
	}
	found := false
	for _, hit := range state.Memory {
		if strings.Contains(hit.Entry.Text, "order #55") {
			found = true
		}
	}
	if !found {
		t.Error("expected the order #55 entry among retrieved memory")
	}
}

func TestRun_MemoryRecallEmpty(t *testing.T) {
	env := newTestEnv(t, &stubCompletion{err: completion.ErrUnavailable})

	state := env.engine.Run(context.Background(), "u1", "s1", "Do you remember me?")

	want := "I don't have specific memories of our previous conversations, but I'm here to help!"
	if state.Response != want {
		t.Errorf("unexpected response: %q", state.Response)
	}
}

func TestRun_CompletionFailureStillResponds(t *testing.T) {
	env := newTestEnv(t, &stubCompletion{err: errors.New("model exploded")})

	state := env.engine.Run(context.Background(), "u1", "s1", "Hello!")

	if state.Stage != StageDone {
		t.Errorf("expected Done, got %v", state.Stage)
	}
	if state.Response == "" {
		t.Error("expected non-empty response")
	}
	if state.FailureNote == "" {
		t.Error("expected failure note")
	}
}

func TestRun_CompletionSuccess(t *testing.T) {
	env := newTestEnv(t, &stubCompletion{text: "Happy to help with that."})

	state := env.engine.Run(context.Background(), "u1", "s1", "Hello!")

	if state.Response != "Happy to help with that." {
		t.Errorf("unexpected response: %q", state.Response)
	}
	if state.FailureNote != "" {
		t.Errorf("unexpected failure note: %q", state.FailureNote)
	}
}

func TestRun_EmptyCompletionFallsBack(t *testing.T) {
	env := newTestEnv(t, &stubCompletion{text: "   "})

	state := env.engine.Run(context.Background(), "u1", "s1", "Hello!")

	if !strings.Contains(state.Response, "I'm here to help with your e-commerce questions!") {
		t.Errorf("expected general fallback, got %q", state.Response)
	}
}

func TestRun_WritesBackBothMessages(t *testing.T) {
	env := newTestEnv(t, &stubCompletion{text: "Sure thing."})
	ctx := context.Background()

	env.engine.Run(ctx, "u1", "s1", "Hello!")

	stats, err := env.mem.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.UserEntries != 2 {
		t.Errorf("expected 2 stored entries (user + ai), got %d", stats.UserEntries)
	}
}

func TestRun_ProductInfoFallbackTemplate(t *testing.T) {
	env := newTestEnv(t, &stubCompletion{err: completion.ErrUnavailable})
	env.orders.SeedProduct(lookup.ProductInfo{ID: 42, Name: "Blue Kettle", Brand: "Acme", RetailPrice: 29.99})

	state := env.engine.Run(context.Background(), "u1", "s1", "Tell me about product #42")

	want := "The product 'Blue Kettle' by Acme is priced at $29.99."
	if state.Response != want {
		t.Errorf("unexpected response: %q", state.Response)
	}
}

func TestBuildPrompt(t *testing.T) {
	state := &TurnState{
		UserMessage: "where is my order?",
		Intent:      IntentOrderStatus,
		Live:        &LiveContext{NotFound: "Order 9 not found."},
		Memory: []memory.Hit{
			{Entry: memory.Entry{Text: "first"}},
			{Entry: memory.Entry{Text: "second"}},
			{Entry: memory.Entry{Text: "third"}},
			{Entry: memory.Entry{Text: "fourth"}},
		},
		History: []conversation.Message{
			{Role: "user", Content: "hi"},
			{Role: "ai", Content: "hello"},
		},
	}

	prompt := buildPrompt(state)

	if !strings.Contains(prompt, "User: where is my order?") {
		t.Error("prompt missing user message")
	}
	if !strings.Contains(prompt, "Order 9 not found.") {
		t.Error("prompt missing live context")
	}
	if strings.Contains(prompt, "fourth") {
		t.Error("prompt should cap memory at 3 entries")
	}
	if !strings.Contains(prompt, "user: hi") || !strings.Contains(prompt, "ai: hello") {
		t.Error("prompt missing history")
	}
}
