// Package memory provides the semantic memory subsystem for the assistant.
//
// Every user and assistant utterance is embedded and indexed twice: once
// under the owning user and once under the owning session. Retrieval merges
// both indexes by similarity, deduplicates by text and truncates to the
// requested limit.
//
// Architecture:
//   - Store: vector storage backend (chromem-go, embedded and persistent)
//   - Embedder: text-to-vector conversion (hash placeholder or ONNX model)
//   - Service: orchestrates embedding, insertion, retrieval, expiry, stats
//
// The default embedder is a deterministic hash expansion, a documented
// placeholder for a real embedding model. It gives stable ids, exact-text
// round-trips and practical deduplication, but its notion of similarity is
// not semantic. Swap in a real model through the Embedder interface without
// touching Store or the workflow.
//
// Failures inside this subsystem are recoverable by design: callers degrade
// to empty memory context and keep the conversation turn alive.
package memory
