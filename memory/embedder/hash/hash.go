// Package hash provides a deterministic, model-free embedder.
//
// It is a documented placeholder for a real embedding model: stable enough
// for ids, round-trips and deduplication, but its similarity is not
// semantic. Production deployments substitute a real model through the
// memory.Embedder interface.
package hash

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// Dimensions is the fixed system-wide vector length.
const Dimensions = 128

// Embedder maps text to a fixed 128-dim vector by expanding a SHA-256
// digest in counter mode. Pure and total: it never fails, and the same
// text yields the same vector across process restarts.
type Embedder struct {
	dimensions int
}

func New() *Embedder {
	return &Embedder{dimensions: Dimensions}
}

// Embed converts text to its embedding vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimensions)

	// Chain digests until enough bytes exist: block 0 hashes the text,
	// each following block hashes its predecessor. 4 bytes per component,
	// normalized into [0, 1).
	block := sha256.Sum256([]byte(text))
	i := 0
	for i < e.dimensions {
		for off := 0; off+4 <= len(block) && i < e.dimensions; off += 4 {
			v := binary.BigEndian.Uint32(block[off : off+4])
			vec[i] = float32(float64(v) / (1 << 32))
			i++
		}
		block = sha256.Sum256(block[:])
	}

	return normalize(vec), nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// normalize converts the vector to unit length so cosine similarity is a
// plain dot product downstream.
func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}

	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
