// Package interfaces defines the contracts between the pipeline stages and
// their pluggable implementations. Pipelines depend on these, never on a
// concrete index or provider.
package interfaces

import (
	"context"

	"docqa/internal/rag/schema"
)

// Splitter splits raw document text into an ordered sequence of chunk texts.
// Implementations must be pure: identical input and configuration yield an
// identical sequence.
type Splitter interface {
	Split(text string) []string
}

// EmbeddingModel turns text into fixed-length vectors, one per input,
// order-preserving.
type EmbeddingModel interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex stores chunk vectors and answers nearest-neighbor queries.
// Query scores are cosine similarities, higher is better. Delete removes
// every vector matching the filter and is a no-op success for absent scopes.
type VectorIndex interface {
	Add(ctx context.Context, chunks []*schema.Chunk) error
	Query(ctx context.Context, vector []float32, topK int, filter schema.Filter) ([]schema.VectorHit, error)
	Delete(ctx context.Context, filter schema.Filter) error
	Stats(ctx context.Context) (schema.IndexStats, error)
}

// KeywordIndex stores chunk text and answers lexical relevance queries with
// highlighting. Same delete and empty-result contract as VectorIndex.
type KeywordIndex interface {
	Add(ctx context.Context, chunks []*schema.Chunk) error
	Query(ctx context.Context, text string, topK int, filter schema.Filter) ([]schema.KeywordHit, error)
	Delete(ctx context.Context, filter schema.Filter) error
	Stats(ctx context.Context) (schema.IndexStats, error)
}

// LLM is a generation provider invoked with a system and a user prompt.
type LLM interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// Name identifies the provider and model for answer metadata.
	Name() (provider, model string)
}
