package vectorindex

import (
	"context"
	"testing"

	"docqa/internal/rag/schema"
)

func chunk(id, docID string, idx int, embedding []float32) *schema.Chunk {
	return &schema.Chunk{ID: id, DocumentID: docID, Index: idx, Text: "text " + id, Embedding: embedding}
}

func TestMemoryIndexQueryRanksBySimilarity(t *testing.T) {
	idx := NewMemoryIndex()
	err := idx.Add(context.Background(), []*schema.Chunk{
		chunk("aligned", "1", 0, []float32{1, 0}),
		chunk("orthogonal", "1", 1, []float32{0, 1}),
		chunk("opposite", "1", 2, []float32{-1, 0}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hits, err := idx.Query(context.Background(), []float32{1, 0}, 3, schema.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(hits))
	}
	if hits[0].ChunkID != "aligned" {
		t.Errorf("best hit = %s, want aligned", hits[0].ChunkID)
	}
	if hits[2].ChunkID != "opposite" {
		t.Errorf("worst hit = %s, want opposite", hits[2].ChunkID)
	}
	if hits[0].Score < 0.99 {
		t.Errorf("identical direction scored %f, want ~1", hits[0].Score)
	}
}

func TestMemoryIndexQueryClampsTopK(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Add(context.Background(), []*schema.Chunk{
		chunk("a", "1", 0, []float32{1, 0}),
		chunk("b", "1", 1, []float32{0.5, 0.5}),
	})

	hits, err := idx.Query(context.Background(), []float32{1, 0}, 50, schema.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("topK beyond the stored count must clamp, got %d hits", len(hits))
	}

	hits, _ = idx.Query(context.Background(), []float32{1, 0}, 0, schema.Filter{})
	if len(hits) != 0 {
		t.Fatalf("non-positive topK must yield nothing, got %d", len(hits))
	}
}

func TestMemoryIndexFilterScopesQueries(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Add(context.Background(), []*schema.Chunk{
		chunk("a", "1", 0, []float32{1, 0}),
		chunk("b", "2", 0, []float32{1, 0}),
	})

	hits, err := idx.Query(context.Background(), []float32{1, 0}, 10, schema.Filter{DocumentIDs: []string{"2"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].DocumentID != "2" {
		t.Fatalf("filter not applied: %+v", hits)
	}
}

func TestMemoryIndexDelete(t *testing.T) {
	idx := NewMemoryIndex()
	idx.Add(context.Background(), []*schema.Chunk{
		chunk("a", "1", 0, []float32{1, 0}),
		chunk("b", "2", 0, []float32{1, 0}),
	})

	if err := idx.Delete(context.Background(), schema.Filter{DocumentIDs: []string{"1"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats, _ := idx.Stats(context.Background())
	if stats.Count != 1 {
		t.Fatalf("count after delete = %d, want 1", stats.Count)
	}

	// Deleting an absent scope is a no-op success.
	if err := idx.Delete(context.Background(), schema.Filter{DocumentIDs: []string{"missing"}}); err != nil {
		t.Fatalf("absent scope must not error: %v", err)
	}
	stats, _ = idx.Stats(context.Background())
	if stats.Count != 1 {
		t.Fatalf("count changed on absent-scope delete: %d", stats.Count)
	}
}

func TestMemoryIndexEmptyQuery(t *testing.T) {
	idx := NewMemoryIndex()
	hits, err := idx.Query(context.Background(), []float32{1, 0}, 5, schema.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("empty index must yield no hits, got %d", len(hits))
	}
}
