package workflow

import (
	"github.com/cartmind/cartmind-go/conversation"
	"github.com/cartmind/cartmind-go/lookup"
	"github.com/cartmind/cartmind-go/memory"
)

// Intent is the coarse category of a user message that drives routing.
type Intent string

const (
	IntentMemoryRecall Intent = "memory_recall"
	IntentOrderStatus  Intent = "order_status"
	IntentProductInfo  Intent = "product_info"
	IntentGeneral      Intent = "general"
)

// Stage tracks how far a turn has progressed through the pipeline.
// Stages advance strictly in declaration order and never revisit.
type Stage int

const (
	StageStart Stage = iota
	StageIntentParsed
	StageMemoryRetrieved
	StageContextAssembled
	StageResponseGenerated
	StageMemoryStored
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageIntentParsed:
		return "intent_parsed"
	case StageMemoryRetrieved:
		return "memory_retrieved"
	case StageContextAssembled:
		return "context_assembled"
	case StageResponseGenerated:
		return "response_generated"
	case StageMemoryStored:
		return "memory_stored"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// LiveContext holds the domain facts resolved for one turn. At most one of
// Order and Product is set; NotFound carries the reason when resolution
// failed. A nil LiveContext means the intent needed no live lookup.
type LiveContext struct {
	Order    *lookup.OrderStatus `json:"order,omitempty"`
	Product  *lookup.ProductInfo `json:"product,omitempty"`
	NotFound string              `json:"error,omitempty"`
}

// TurnState is the record threaded through the pipeline for one incoming
// message. Fields are populated as stages run: Intent after intent parsing,
// Memory and History after retrieval, Live after context assembly, Response
// after generation. FailureNote collects non-fatal stage diagnostics.
type TurnState struct {
	UserID      string
	SessionID   string
	UserMessage string

	Stage    Stage
	Intent   Intent
	Live     *LiveContext
	Memory   []memory.Hit
	History  []conversation.Message
	Response string

	// FailureNote is diagnostic only. A non-empty note means some stage
	// degraded (empty memory, fallback response) but the turn completed.
	FailureNote string
}

func (s *TurnState) noteFailure(note string) {
	if s.FailureNote == "" {
		s.FailureNote = note
		return
	}
	s.FailureNote += "; " + note
}
