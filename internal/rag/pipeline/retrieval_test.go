package pipeline

import (
	"context"
	"testing"

	"docqa/internal/rag/errs"
	"docqa/internal/rag/schema"
	"docqa/pkg/logger"
)

type fakeEmbedder struct {
	calls  int
	vector []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vector, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

type fakeVectorIndex struct {
	queries  int
	lastTopK int
	hits     []schema.VectorHit
	err      error
}

func (f *fakeVectorIndex) Add(ctx context.Context, chunks []*schema.Chunk) error { return nil }
func (f *fakeVectorIndex) Delete(ctx context.Context, filter schema.Filter) error {
	return nil
}
func (f *fakeVectorIndex) Stats(ctx context.Context) (schema.IndexStats, error) {
	return schema.IndexStats{}, nil
}
func (f *fakeVectorIndex) Query(ctx context.Context, vector []float32, topK int, filter schema.Filter) ([]schema.VectorHit, error) {
	f.queries++
	f.lastTopK = topK
	return f.hits, f.err
}

type fakeKeywordIndex struct {
	queries  int
	lastTopK int
	hits     []schema.KeywordHit
	err      error
}

func (f *fakeKeywordIndex) Add(ctx context.Context, chunks []*schema.Chunk) error { return nil }
func (f *fakeKeywordIndex) Delete(ctx context.Context, filter schema.Filter) error {
	return nil
}
func (f *fakeKeywordIndex) Stats(ctx context.Context) (schema.IndexStats, error) {
	return schema.IndexStats{}, nil
}
func (f *fakeKeywordIndex) Query(ctx context.Context, text string, topK int, filter schema.Filter) ([]schema.KeywordHit, error) {
	f.queries++
	f.lastTopK = topK
	return f.hits, f.err
}

func newTestRetriever(e *fakeEmbedder, v *fakeVectorIndex, k *fakeKeywordIndex) *HybridRetriever {
	return NewHybridRetriever(e, v, k, DefaultFusionWeights, logger.New("test"))
}

func TestRetrieveKeywordModeSkipsEmbedder(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	vector := &fakeVectorIndex{}
	keyword := &fakeKeywordIndex{hits: []schema.KeywordHit{kh("a", 0, 2.0)}}
	r := newTestRetriever(embedder, vector, keyword)

	passages, err := r.Retrieve(context.Background(), "question", 5, schema.Filter{}, schema.ModeKeyword)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embedder.calls != 0 {
		t.Fatalf("keyword-only retrieval must not call the embedder, got %d calls", embedder.calls)
	}
	if vector.queries != 0 {
		t.Fatalf("keyword-only retrieval must not query the vector index")
	}
	if keyword.queries != 1 {
		t.Fatalf("keyword index queried %d times, want 1", keyword.queries)
	}
	if len(passages) != 1 || passages[0].ChunkID != "a" {
		t.Fatalf("unexpected passages: %+v", passages)
	}
}

func TestRetrieveVectorModeSkipsKeywordIndex(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	vector := &fakeVectorIndex{hits: []schema.VectorHit{vh("a", 0, 0.9)}}
	keyword := &fakeKeywordIndex{}
	r := newTestRetriever(embedder, vector, keyword)

	passages, err := r.Retrieve(context.Background(), "question", 5, schema.Filter{}, schema.ModeVector)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if keyword.queries != 0 {
		t.Fatalf("vector-only retrieval must not query the keyword index")
	}
	if embedder.calls != 1 || vector.queries != 1 {
		t.Fatalf("embedder calls = %d, vector queries = %d, want 1 and 1", embedder.calls, vector.queries)
	}
	if len(passages) != 1 {
		t.Fatalf("expected 1 passage, got %d", len(passages))
	}
}

func TestRetrieveHybridWidensCandidates(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	vector := &fakeVectorIndex{}
	keyword := &fakeKeywordIndex{}
	r := newTestRetriever(embedder, vector, keyword)

	if _, err := r.Retrieve(context.Background(), "question", 5, schema.Filter{}, schema.ModeHybrid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vector.lastTopK != 10 || keyword.lastTopK != 10 {
		t.Fatalf("candidate widths = %d/%d, want 10/10", vector.lastTopK, keyword.lastTopK)
	}
}

func TestRetrieveDefaultsToHybrid(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	vector := &fakeVectorIndex{}
	keyword := &fakeKeywordIndex{}
	r := newTestRetriever(embedder, vector, keyword)

	if _, err := r.Retrieve(context.Background(), "question", 3, schema.Filter{}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vector.queries != 1 || keyword.queries != 1 {
		t.Fatalf("empty mode must behave as hybrid, queries = %d/%d", vector.queries, keyword.queries)
	}
}

func TestRetrieveValidation(t *testing.T) {
	r := newTestRetriever(&fakeEmbedder{}, &fakeVectorIndex{}, &fakeKeywordIndex{})

	if _, err := r.Retrieve(context.Background(), "  ", 5, schema.Filter{}, schema.ModeHybrid); !errs.IsValidation(err) {
		t.Errorf("blank question: got %v, want validation error", err)
	}
	if _, err := r.Retrieve(context.Background(), "q", 5, schema.Filter{}, "semantic"); !errs.IsValidation(err) {
		t.Errorf("unknown mode: got %v, want validation error", err)
	}
	if _, err := r.Retrieve(context.Background(), "q", 0, schema.Filter{}, schema.ModeHybrid); !errs.IsValidation(err) {
		t.Errorf("non-positive topK: got %v, want validation error", err)
	}
}

func TestRetrieveEmptyIndexes(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	r := newTestRetriever(embedder, &fakeVectorIndex{}, &fakeKeywordIndex{})

	passages, err := r.Retrieve(context.Background(), "anything", 5, schema.Filter{}, schema.ModeHybrid)
	if err != nil {
		t.Fatalf("empty indexes must not error: %v", err)
	}
	if len(passages) != 0 {
		t.Fatalf("expected no passages, got %d", len(passages))
	}
}
