// Package workflow runs the per-message conversation pipeline: classify
// intent, retrieve memory, assemble live context, generate a response and
// write the exchange back to memory.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cartmind/cartmind-go/completion"
	"github.com/cartmind/cartmind-go/lookup"
	"github.com/cartmind/cartmind-go/memory"
	"github.com/cartmind/cartmind-go/observability"
)

const (
	defaultLookupTimeout     = 3 * time.Second
	defaultCompletionTimeout = 20 * time.Second
	defaultMemoryLimit       = 5
	defaultHistoryCount      = 10
	defaultMaxTokens         = 512
	defaultTemperature       = 0.3
)

// Engine sequences the conversation pipeline. It is stateless across
// invocations; every Run call threads its own TurnState, so concurrent
// turns never share mutable state.
type Engine struct {
	memory     *memory.Service
	orders     lookup.OrderLookup
	products   lookup.ProductLookup
	completion completion.Client
	metrics    *observability.Metrics

	lookupTimeout     time.Duration
	completionTimeout time.Duration
	memoryLimit       int
	historyCount      int
	maxTokens         int64
	temperature       float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches Prometheus instruments to the pipeline.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLookupTimeout bounds each live data lookup.
func WithLookupTimeout(d time.Duration) Option {
	return func(e *Engine) { e.lookupTimeout = d }
}

// WithCompletionTimeout bounds the completion call.
func WithCompletionTimeout(d time.Duration) Option {
	return func(e *Engine) { e.completionTimeout = d }
}

// WithMemoryLimit caps retrieved memory entries per turn.
func WithMemoryLimit(n int) Option {
	return func(e *Engine) { e.memoryLimit = n }
}

// WithCompletionBudget sets the token budget and sampling temperature.
func WithCompletionBudget(maxTokens int64, temperature float64) Option {
	return func(e *Engine) {
		e.maxTokens = maxTokens
		e.temperature = temperature
	}
}

// NewEngine creates an engine over the given collaborators.
func NewEngine(mem *memory.Service, orders lookup.OrderLookup, products lookup.ProductLookup, client completion.Client, opts ...Option) *Engine {
	e := &Engine{
		memory:            mem,
		orders:            orders,
		products:          products,
		completion:        client,
		lookupTimeout:     defaultLookupTimeout,
		completionTimeout: defaultCompletionTimeout,
		memoryLimit:       defaultMemoryLimit,
		historyCount:      defaultHistoryCount,
		maxTokens:         defaultMaxTokens,
		temperature:       defaultTemperature,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run processes one incoming message through every stage, in order, exactly
// once. It always returns a terminal state with a non-empty response; stage
// failures degrade into FailureNote instead of aborting the turn.
func (e *Engine) Run(ctx context.Context, userID, sessionID, userMessage string) *TurnState {
	state := &TurnState{
		UserID:      userID,
		SessionID:   sessionID,
		UserMessage: userMessage,
		Stage:       StageStart,
	}

	e.runStage(state, StageIntentParsed, func() {
		state.Intent = ClassifyIntent(state.UserMessage)
	})

	e.runStage(state, StageMemoryRetrieved, func() {
		e.retrieveMemory(ctx, state)
	})

	e.runStage(state, StageContextAssembled, func() {
		e.assembleContext(ctx, state)
	})

	e.runStage(state, StageResponseGenerated, func() {
		e.generateResponse(ctx, state)
	})

	e.runStage(state, StageMemoryStored, func() {
		e.storeTurn(ctx, state)
	})

	state.Stage = StageDone
	if e.metrics != nil {
		e.metrics.TurnsTotal.WithLabelValues(string(state.Intent)).Inc()
	}
	log.Printf("[WORKFLOW] Turn done for user=%s session=%s intent=%s", userID, sessionID, state.Intent)
	return state
}

// runStage executes one stage body and advances the state marker. Stage
// bodies never return errors; they record failures on the state themselves.
func (e *Engine) runStage(state *TurnState, stage Stage, body func()) {
	start := time.Now()
	body()
	state.Stage = stage
	if e.metrics != nil {
		e.metrics.ObserveStage(stage.String(), time.Since(start))
	}
}

// retrieveMemory loads scoped vector memory and recent conversation history.
// Failures degrade to empty context and a failure note.
func (e *Engine) retrieveMemory(ctx context.Context, state *TurnState) {
	scope := memory.Scope{UserID: state.UserID, SessionID: state.SessionID}
	hits, err := e.memory.Search(ctx, scope, state.UserMessage, e.memoryLimit)
	if err != nil {
		state.noteFailure(fmt.Sprintf("memory retrieval error: %v", err))
		log.Printf("[WORKFLOW] Memory retrieval failed: %v", err)
		hits = nil
	}
	state.Memory = hits

	history, err := e.memory.Recent(ctx, state.SessionID, e.historyCount)
	if err != nil {
		state.noteFailure(fmt.Sprintf("history retrieval error: %v", err))
		log.Printf("[WORKFLOW] History retrieval failed: %v", err)
		history = nil
	}
	state.History = history
}

// storeTurn writes the user message and the response back to memory. This
// stage is best-effort: failures are logged and noted, never propagated.
func (e *Engine) storeTurn(ctx context.Context, state *TurnState) {
	userExtra := map[string]string{"intent": string(state.Intent)}
	if _, err := e.memory.Remember(ctx, memory.RememberParams{
		UserID:    state.UserID,
		SessionID: state.SessionID,
		MessageID: uuid.NewString(),
		Text:      state.UserMessage,
		Role:      memory.RoleUser,
		Extra:     userExtra,
	}); err != nil {
		state.noteFailure(fmt.Sprintf("memory store error: %v", err))
		log.Printf("[WORKFLOW] Storing user message failed: %v", err)
	}

	if state.Response == "" {
		return
	}
	aiExtra := map[string]string{"intent": string(state.Intent)}
	if state.Live != nil {
		if encoded, err := json.Marshal(state.Live); err == nil {
			aiExtra["context"] = string(encoded)
		}
	}
	if _, err := e.memory.Remember(ctx, memory.RememberParams{
		UserID:    state.UserID,
		SessionID: state.SessionID,
		MessageID: uuid.NewString(),
		Text:      state.Response,
		Role:      memory.RoleAI,
		Extra:     aiExtra,
	}); err != nil {
		state.noteFailure(fmt.Sprintf("memory store error: %v", err))
		log.Printf("[WORKFLOW] Storing response failed: %v", err)
	}
}
