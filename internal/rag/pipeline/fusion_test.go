package pipeline

import (
	"math"
	"testing"

	"docqa/internal/rag/schema"
)

func vh(id string, idx int, score float64) schema.VectorHit {
	return schema.VectorHit{ChunkID: id, DocumentID: "1", ChunkIndex: idx, Text: "text " + id, Score: score}
}

func kh(id string, idx int, score float64) schema.KeywordHit {
	return schema.KeywordHit{ChunkID: id, DocumentID: "1", ChunkIndex: idx, Text: "text " + id, Score: score}
}

func TestFuseMergesByChunkID(t *testing.T) {
	vector := []schema.VectorHit{vh("a", 0, 0.9), vh("b", 1, 0.5)}
	keyword := []schema.KeywordHit{kh("b", 1, 4.0), kh("c", 2, 2.0)}

	passages := Fuse(vector, keyword, DefaultFusionWeights, 10)
	if len(passages) != 3 {
		t.Fatalf("expected 3 distinct passages, got %d", len(passages))
	}
	seen := map[string]schema.Passage{}
	for _, p := range passages {
		if _, dup := seen[p.ChunkID]; dup {
			t.Fatalf("chunk %s appears twice", p.ChunkID)
		}
		seen[p.ChunkID] = p
	}
	if seen["b"].Origin != schema.OriginBoth {
		t.Errorf("chunk b origin = %s, want both", seen["b"].Origin)
	}
	if seen["a"].Origin != schema.OriginVector || seen["c"].Origin != schema.OriginKeyword {
		t.Errorf("single-side origins wrong: a=%s c=%s", seen["a"].Origin, seen["c"].Origin)
	}
}

func TestFuseScoring(t *testing.T) {
	vector := []schema.VectorHit{vh("both", 0, 0.8)}
	keyword := []schema.KeywordHit{kh("both", 0, 2.0), kh("kwonly", 1, 1.0)}

	passages := Fuse(vector, keyword, FusionWeights{Vector: 0.5, Keyword: 0.5}, 10)

	byID := map[string]schema.Passage{}
	for _, p := range passages {
		byID[p.ChunkID] = p
	}

	// Keyword scores normalize against the set max (2.0).
	both := byID["both"]
	if want := 0.5*0.8 + 0.5*1.0; math.Abs(both.Score-want) > 1e-9 {
		t.Errorf("both-sides score = %f, want %f", both.Score, want)
	}
	// A one-sided chunk is scored on its present side only.
	kwonly := byID["kwonly"]
	if want := 0.5 * 0.5; math.Abs(kwonly.Score-want) > 1e-9 {
		t.Errorf("keyword-only score = %f, want %f", kwonly.Score, want)
	}
	if kwonly.VectorScore != 0 {
		t.Errorf("keyword-only chunk must carry no vector score")
	}
}

func TestFuseClampsVectorScores(t *testing.T) {
	vector := []schema.VectorHit{vh("hot", 0, 1.7), vh("cold", 1, -0.3)}
	passages := Fuse(vector, nil, DefaultFusionWeights, 10)
	for _, p := range passages {
		if p.VectorScore < 0 || p.VectorScore > 1 {
			t.Errorf("vector score %f for %s outside [0,1]", p.VectorScore, p.ChunkID)
		}
	}
}

func TestFuseTieBreaking(t *testing.T) {
	// Equal fused scores: higher vector score wins, then lower ordinal.
	vector := []schema.VectorHit{vh("v", 5, 0.6)}
	keyword := []schema.KeywordHit{kh("k", 1, 3.0)}
	// v: 0.5*0.6 = 0.3; k: 0.5*1.0 = 0.5 → k first.
	passages := Fuse(vector, keyword, DefaultFusionWeights, 10)
	if passages[0].ChunkID != "k" {
		t.Fatalf("expected k ranked first, got %s", passages[0].ChunkID)
	}

	// Exact tie on fused and vector score resolves by chunk ordinal.
	keyword = []schema.KeywordHit{kh("late", 9, 2.0), kh("early", 2, 2.0)}
	passages = Fuse(nil, keyword, DefaultFusionWeights, 10)
	if passages[0].ChunkID != "early" {
		t.Fatalf("tie must break toward the lower ordinal, got %s first", passages[0].ChunkID)
	}
}

func TestFuseTruncatesToTopK(t *testing.T) {
	keyword := []schema.KeywordHit{kh("a", 0, 5), kh("b", 1, 4), kh("c", 2, 3), kh("d", 3, 2)}
	passages := Fuse(nil, keyword, DefaultFusionWeights, 2)
	if len(passages) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(passages))
	}
	if passages[0].ChunkID != "a" || passages[1].ChunkID != "b" {
		t.Fatalf("truncation must keep the best passages, got %s, %s", passages[0].ChunkID, passages[1].ChunkID)
	}
}

func TestFuseEmptyInputs(t *testing.T) {
	if got := Fuse(nil, nil, DefaultFusionWeights, 5); len(got) != 0 {
		t.Fatalf("no hits must fuse to no passages, got %d", len(got))
	}
}

func TestFuseDeterministic(t *testing.T) {
	vector := []schema.VectorHit{vh("a", 0, 0.7), vh("b", 1, 0.7), vh("c", 2, 0.7)}
	keyword := []schema.KeywordHit{kh("b", 1, 1.0), kh("d", 3, 1.0)}
	first := Fuse(vector, keyword, DefaultFusionWeights, 10)
	for i := 0; i < 20; i++ {
		again := Fuse(vector, keyword, DefaultFusionWeights, 10)
		for j := range first {
			if first[j].ChunkID != again[j].ChunkID {
				t.Fatalf("ranking not deterministic at position %d", j)
			}
		}
	}
}
