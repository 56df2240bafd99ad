package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
)

// HashEmbedder is a deterministic in-process embedder for tests. It hashes
// each lowercased word into a bucket of the vector, so texts sharing words
// land near each other under cosine distance and identical texts embed
// identically. No network, no API key.
//
// The zero value is not usable; construct with NewHashEmbedder.
type HashEmbedder struct {
	dim int

	// Knobs for failure injection. Set before use; not safe to change
	// while embeds are in flight.
	Err         error // returned verbatim by Embed when non-nil
	ReturnEmpty bool  // Embed returns an empty slice
	ReturnDim   int   // when > 0, Embed returns a vector of this length instead

	mu    sync.Mutex
	calls []string
}

// NewHashEmbedder creates a HashEmbedder producing vectors of the given
// dimension.
func NewHashEmbedder(dim int) *HashEmbedder {
	return &HashEmbedder{dim: dim}
}

// Embed returns a deterministic unit vector for text.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, text)
	e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}
	if e.ReturnEmpty {
		return []float32{}, nil
	}

	dim := e.dim
	if e.ReturnDim > 0 {
		dim = e.ReturnDim
	}

	vec := make([]float32, dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[int(h.Sum32())%dim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := 1 / math.Sqrt(norm)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) * inv)
		}
	} else {
		// Blank input still needs a valid unit vector for pgvector.
		vec[0] = 1
	}
	return vec, nil
}

// Dimension reports the configured vector dimension.
func (e *HashEmbedder) Dimension() int { return e.dim }

// Calls returns a copy of every text passed to Embed, in order.
func (e *HashEmbedder) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}
