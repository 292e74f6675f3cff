package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/cartmind/cartmind-go/lookup"
	"github.com/cartmind/cartmind-go/memory"
)

var (
	orderIDPattern   = regexp.MustCompile(`order[\s#]*(\d+)`)
	productIDPattern = regexp.MustCompile(`product[\s#]*(\d+)`)
)

// extractID finds the first numeric identifier matching pattern, checking
// the current message first and then the retrieved memory entries in ranked
// order.
func extractID(pattern *regexp.Regexp, message string, hits []memory.Hit) (int64, bool) {
	if m := pattern.FindStringSubmatch(strings.ToLower(message)); m != nil {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil {
			return id, true
		}
	}
	for _, hit := range hits {
		if m := pattern.FindStringSubmatch(strings.ToLower(hit.Entry.Text)); m != nil {
			id, err := strconv.ParseInt(m[1], 10, 64)
			if err == nil {
				return id, true
			}
		}
	}
	return 0, false
}

// assembleContext resolves live domain facts for the turn's intent. Lookup
// failures and missing identifiers both produce a structured NotFound
// context, never an error.
func (e *Engine) assembleContext(ctx context.Context, state *TurnState) {
	switch state.Intent {
	case IntentOrderStatus:
		orderID, ok := extractID(orderIDPattern, state.UserMessage, state.Memory)
		if !ok {
			state.Live = &LiveContext{NotFound: "No order ID found in message or memory."}
			return
		}
		lctx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
		defer cancel()
		order, err := e.orders.ByID(lctx, orderID)
		if err != nil {
			if !errors.Is(err, lookup.ErrNotFound) {
				log.Printf("[WORKFLOW] Order lookup failed for %d: %v", orderID, err)
			}
			state.Live = &LiveContext{NotFound: fmt.Sprintf("Order %d not found.", orderID)}
			return
		}
		state.Live = &LiveContext{Order: order}

	case IntentProductInfo:
		productID, ok := extractID(productIDPattern, state.UserMessage, state.Memory)
		if !ok {
			state.Live = &LiveContext{NotFound: "No product ID found in message or memory."}
			return
		}
		lctx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
		defer cancel()
		products, err := e.products.ByIDs(lctx, []int64{productID})
		if err != nil || len(products) == 0 {
			if err != nil {
				log.Printf("[WORKFLOW] Product lookup failed for %d: %v", productID, err)
			}
			state.Live = &LiveContext{NotFound: "Product not found."}
			return
		}
		state.Live = &LiveContext{Product: &products[0]}

	case IntentMemoryRecall:
		// Recall turns answer from retrieved memory and history; there is
		// no live lookup to perform.
		state.Live = nil

	default:
		state.Live = nil
	}
}
