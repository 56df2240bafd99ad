package knowledge

import (
	"time"

	"github.com/google/uuid"
)

// Metadata is the closed set of attributes stored with every chunk.
// Source is the logical document name; FileName is kept separately for
// legacy callers that labelled hits by file name instead.
type Metadata struct {
	Source      string    `json:"source"`
	FileName    string    `json:"fileName"`
	ChunkIndex  int       `json:"chunkIndex"`
	TotalChunks int       `json:"totalChunks"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Chunk is one immutable indexed text segment. Chunks are created during
// ingestion and only ever removed in bulk by source.
type Chunk struct {
	ID       uuid.UUID `json:"id"`
	TenantID string    `json:"tenantId"`
	Content  string    `json:"content"`
	Metadata Metadata  `json:"metadata"`
}

// SearchResult is a transient search hit. Similarity is in [0, 1] with 1
// meaning identical direction.
type SearchResult struct {
	Chunk
	Similarity float64 `json:"similarityScore"`
}

// SourceInfo aggregates the chunks of one source document.
type SourceInfo struct {
	Source        string    `json:"source"`
	FileName      string    `json:"fileName"`
	ChunkCount    int       `json:"chunkCount"`
	FirstUploaded time.Time `json:"firstUploaded"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// SearchOption configures Store.Search via functional options.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK     int
	tenantID string
	timeout  time.Duration
}

// DefaultTopK is the default number of search results.
const DefaultTopK = 5

// MaxTopK caps the number of search results per query.
const MaxTopK = 10

const defaultSearchTimeout = 10 * time.Second

// WithTopK sets the maximum number of results. Values outside [1, MaxTopK]
// are clamped.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		switch {
		case k < 1:
			c.topK = DefaultTopK
		case k > MaxTopK:
			c.topK = MaxTopK
		default:
			c.topK = k
		}
	}
}

// WithTenant restricts results to one tenant. Without it the search spans
// all tenants; every user-facing caller must pass it.
func WithTenant(tenantID string) SearchOption {
	return func(c *searchConfig) {
		c.tenantID = tenantID
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    DefaultTopK,
		timeout: defaultSearchTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
