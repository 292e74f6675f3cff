package workflow

import "strings"

// Phrases that signal the user is asking about past conversation rather
// than live data. Checked before the domain rules so that "remind me about
// my order" routes to recall instead of an order lookup.
var recallPhrases = []string{"remember", "before", "last time", "previously", "earlier"}

// ClassifyIntent maps a user message to an intent. It is pure and total:
// every message classifies, unknown ones as IntentGeneral.
func ClassifyIntent(message string) Intent {
	msg := strings.ToLower(message)

	for _, phrase := range recallPhrases {
		if strings.Contains(msg, phrase) {
			return IntentMemoryRecall
		}
	}
	if strings.Contains(msg, "order") && (strings.Contains(msg, "status") || strings.Contains(msg, "track")) {
		return IntentOrderStatus
	}
	if strings.Contains(msg, "product") || strings.Contains(msg, "item") {
		return IntentProductInfo
	}
	return IntentGeneral
}
