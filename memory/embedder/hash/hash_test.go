package hash

import (
	"context"
	"strings"
	"testing"
)

func TestEmbedder_Deterministic(t *testing.T) {
	e := New()
	ctx := context.Background()

	a, err := e.Embed(ctx, "what is the status of order #102?")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	b, err := e.Embed(ctx, "what is the status of order #102?")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("component %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestEmbedder_FixedLength(t *testing.T) {
	e := New()
	ctx := context.Background()

	inputs := []string{
		"",
		"x",
		"short text",
		strings.Repeat("a very long message about products and orders ", 200),
	}
	for _, in := range inputs {
		vec, err := e.Embed(ctx, in)
		if err != nil {
			t.Fatalf("Embed(%q...) failed: %v", in[:min(len(in), 20)], err)
		}
		if len(vec) != Dimensions {
			t.Errorf("expected %d dimensions, got %d for input length %d", Dimensions, len(vec), len(in))
		}
	}
}

func TestEmbedder_DistinctTextsDiffer(t *testing.T) {
	e := New()
	ctx := context.Background()

	a, _ := e.Embed(ctx, "order #55 shipped")
	b, _ := e.Embed(ctx, "order #56 shipped")

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("distinct texts produced identical vectors")
	}
}

func TestEmbedder_UnitNorm(t *testing.T) {
	e := New()
	ctx := context.Background()

	vec, _ := e.Embed(ctx, "normalize me")
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm < 0.999 || norm > 1.001 {
		t.Errorf("expected unit norm, got %v", norm)
	}
}
