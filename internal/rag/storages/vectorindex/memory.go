package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
)

// MemoryIndex is a thread-safe, brute-force cosine-similarity vector index.
// It backs tests and the standalone mode that runs without a Milvus server.
type MemoryIndex struct {
	mu     sync.RWMutex
	chunks map[string]*schema.Chunk
}

// NewMemoryIndex creates an empty in-memory vector index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{chunks: make(map[string]*schema.Chunk)}
}

// Add stores the chunks' vectors. Chunks are copied by reference; callers
// must not mutate them afterwards.
func (s *MemoryIndex) Add(ctx context.Context, chunks []*schema.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunk := range chunks {
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

// Query scores every stored vector in scope against the query vector and
// returns the topK best, highest similarity first. topK is clamped to the
// number of vectors in scope; an empty scope yields an empty result.
func (s *MemoryIndex) Query(ctx context.Context, vector []float32, topK int, filter schema.Filter) ([]schema.VectorHit, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []schema.VectorHit
	for _, chunk := range s.chunks {
		if !filter.Matches(chunk.DocumentID) {
			continue
		}
		hits = append(hits, schema.VectorHit{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			ChunkIndex: chunk.Index,
			Text:       chunk.Text,
			Score:      cosineSimilarity(vector, chunk.Embedding),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		// Deterministic order for equal scores.
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits, nil
}

// Delete removes every vector matching the filter; absent scopes are a no-op.
func (s *MemoryIndex) Delete(ctx context.Context, filter schema.Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, chunk := range s.chunks {
		if filter.Matches(chunk.DocumentID) {
			delete(s.chunks, id)
		}
	}
	return nil
}

// Stats reports the number of stored vectors.
func (s *MemoryIndex) Stats(ctx context.Context) (schema.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return schema.IndexStats{
		Name:   "vector:memory",
		Count:  int64(len(s.chunks)),
		Status: "healthy",
	}, nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ interfaces.VectorIndex = (*MemoryIndex)(nil)
