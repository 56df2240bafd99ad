// Package embed wraps the Gemini embedding API behind a small client with
// hard dimension guarantees.
//
// Every call is checked: the model must return exactly one vector of the
// configured dimension, otherwise the call fails with ErrEmbedding. Callers
// can therefore assume any vector handed out by this package is valid for
// the pgvector column it will be stored in.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"google.golang.org/genai"
)

// Sentinel errors. Match with errors.Is.
var (
	// ErrEmbedding wraps failures of the external embedding call,
	// including empty results and dimension mismatches.
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimensionMismatch reports vectors of unequal length passed to
	// CosineSimilarity.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Embedder is the consumer-facing interface. Production code uses Client;
// tests substitute deterministic stubs.
type Embedder interface {
	// Embed returns the embedding vector for text. The returned slice
	// always has exactly Dimension() elements.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the fixed vector dimension.
	Dimension() int
}

// Client embeds text via google.golang.org/genai.
type Client struct {
	models    *genai.Models
	model     string
	dimension int
	logger    *slog.Logger
}

// NewClient creates an embedding client for the given model and dimension.
func NewClient(client *genai.Client, model string, dimension int, logger *slog.Logger) (*Client, error) {
	if client == nil {
		return nil, errors.New("genai client is required")
	}
	if model == "" {
		return nil, errors.New("embedder model is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		models:    client.Models,
		model:     model,
		dimension: dimension,
		logger:    logger,
	}, nil
}

// Dimension returns the configured vector dimension.
func (c *Client) Dimension() int { return c.dimension }

// Embed generates the embedding for text. The dimension invariant is
// verified on every call, not just at startup: a model rollout that changes
// output dimensionality must fail loudly here rather than corrupt the index.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	dim := int32(c.dimension) //nolint:gosec // validated positive and small in NewClient

	resp, err := c.models.EmbedContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{OutputDimensionality: &dim},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: model returned no vectors", ErrEmbedding)
	}
	vec := resp.Embeddings[0].Values
	if len(vec) != c.dimension {
		return nil, fmt.Errorf("%w: got dimension %d, want %d", ErrEmbedding, len(vec), c.dimension)
	}

	c.logger.Debug("embedded text", "model", c.model, "text_length", len(text))
	return vec, nil
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Zero-magnitude input yields 0 rather than NaN.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
