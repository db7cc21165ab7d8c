package keywordindex

import (
	"context"
	"testing"

	"docqa/internal/rag/schema"
	"docqa/pkg/logger"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex("", logger.New("test"))
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func chunk(id, docID string, idx int, text string) *schema.Chunk {
	return &schema.Chunk{ID: id, DocumentID: docID, Index: idx, Text: text}
}

func TestBleveQueryFindsRelevantChunks(t *testing.T) {
	idx := newTestIndex(t)
	err := idx.Add(context.Background(), []*schema.Chunk{
		chunk("a", "1", 0, "the solar panel converts sunlight into electricity"),
		chunk("b", "1", 1, "wind turbines generate power from moving air"),
		chunk("c", "2", 0, "a recipe for sourdough bread and pastry"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	hits, err := idx.Query(context.Background(), "solar electricity", 10, schema.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected at least one hit")
	}
	if hits[0].ChunkID != "a" {
		t.Fatalf("best hit = %s, want a", hits[0].ChunkID)
	}
	if hits[0].Score <= 0 {
		t.Errorf("hit score = %f, want positive", hits[0].Score)
	}
	if hits[0].DocumentID != "1" || hits[0].ChunkIndex != 0 || hits[0].Text == "" {
		t.Errorf("hit fields not populated: %+v", hits[0])
	}
}

func TestBleveQueryHighlightsMatches(t *testing.T) {
	idx := newTestIndex(t)
	idx.Add(context.Background(), []*schema.Chunk{
		chunk("a", "1", 0, "the quarterly revenue grew by twelve percent"),
	})

	hits, err := idx.Query(context.Background(), "revenue", 5, schema.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if len(hits[0].Highlights) == 0 {
		t.Errorf("expected highlight fragments for the matched term")
	}
}

func TestBleveQueryToleratesTypos(t *testing.T) {
	idx := newTestIndex(t)
	idx.Add(context.Background(), []*schema.Chunk{
		chunk("a", "1", 0, "kubernetes orchestrates containers across nodes"),
	})

	hits, err := idx.Query(context.Background(), "kubernetes", 5, schema.Filter{})
	if err != nil || len(hits) != 1 {
		t.Fatalf("exact term should match: hits=%d err=%v", len(hits), err)
	}

	hits, err = idx.Query(context.Background(), "kubernets", 5, schema.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("single-edit typo should still match, got %d hits", len(hits))
	}
}

func TestBleveFilterScopesQueries(t *testing.T) {
	idx := newTestIndex(t)
	idx.Add(context.Background(), []*schema.Chunk{
		chunk("a", "1", 0, "shared term appears here"),
		chunk("b", "2", 0, "shared term appears there"),
	})

	hits, err := idx.Query(context.Background(), "shared term", 10, schema.Filter{DocumentIDs: []string{"2"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 1 || hits[0].DocumentID != "2" {
		t.Fatalf("filter not applied: %+v", hits)
	}
}

func TestBleveDeleteByDocument(t *testing.T) {
	idx := newTestIndex(t)
	idx.Add(context.Background(), []*schema.Chunk{
		chunk("a", "1", 0, "first document first chunk"),
		chunk("b", "1", 1, "first document second chunk"),
		chunk("c", "2", 0, "second document only chunk"),
	})

	if err := idx.Delete(context.Background(), schema.Filter{DocumentIDs: []string{"1"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stats, err := idx.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Count != 1 {
		t.Fatalf("count after delete = %d, want 1", stats.Count)
	}

	// Deleting the same scope again is a no-op success.
	if err := idx.Delete(context.Background(), schema.Filter{DocumentIDs: []string{"1"}}); err != nil {
		t.Fatalf("idempotent delete failed: %v", err)
	}

	// The whole-index delete without a filter is refused.
	if err := idx.Delete(context.Background(), schema.Filter{}); err == nil {
		t.Fatal("unfiltered delete must be refused")
	}
}

func TestBleveQueryEmptyIndex(t *testing.T) {
	idx := newTestIndex(t)
	hits, err := idx.Query(context.Background(), "anything at all", 5, schema.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("empty index must yield no hits, got %d", len(hits))
	}
}
