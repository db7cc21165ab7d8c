package pipeline

import (
	"sort"

	"docqa/internal/rag/schema"
)

// FusionWeights controls the relative contribution of the two indexes to a
// hybrid passage score.
type FusionWeights struct {
	Vector  float64
	Keyword float64
}

// DefaultFusionWeights weighs both indexes equally.
var DefaultFusionWeights = FusionWeights{Vector: 0.5, Keyword: 0.5}

// Fuse merges vector and keyword hits into one ranked passage list.
//
// Vector scores are cosine similarities clamped to [0,1]. Keyword scores are
// relevance values with no fixed scale, so they are normalized by the maximum
// score in this result set before weighting. A chunk found by only one index
// is scored on that side alone rather than being penalized with a zero on the
// other. Ties break toward the higher vector score, then the lower chunk
// ordinal, so the ranking is deterministic for a fixed input.
func Fuse(vectorHits []schema.VectorHit, keywordHits []schema.KeywordHit, weights FusionWeights, topK int) []schema.Passage {
	maxKeyword := 0.0
	for _, hit := range keywordHits {
		if hit.Score > maxKeyword {
			maxKeyword = hit.Score
		}
	}

	merged := make(map[string]*schema.Passage, len(vectorHits)+len(keywordHits))

	for _, hit := range vectorHits {
		merged[hit.ChunkID] = &schema.Passage{
			ChunkID:     hit.ChunkID,
			DocumentID:  hit.DocumentID,
			ChunkIndex:  hit.ChunkIndex,
			Text:        hit.Text,
			VectorScore: clamp01(hit.Score),
			Origin:      schema.OriginVector,
		}
	}

	for _, hit := range keywordHits {
		normalized := 0.0
		if maxKeyword > 0 {
			normalized = hit.Score / maxKeyword
		}
		if passage, ok := merged[hit.ChunkID]; ok {
			passage.KeywordScore = normalized
			passage.Highlights = hit.Highlights
			passage.Origin = schema.OriginBoth
			continue
		}
		merged[hit.ChunkID] = &schema.Passage{
			ChunkID:      hit.ChunkID,
			DocumentID:   hit.DocumentID,
			ChunkIndex:   hit.ChunkIndex,
			Text:         hit.Text,
			KeywordScore: normalized,
			Highlights:   hit.Highlights,
			Origin:       schema.OriginKeyword,
		}
	}

	passages := make([]schema.Passage, 0, len(merged))
	for _, passage := range merged {
		switch passage.Origin {
		case schema.OriginBoth:
			passage.Score = weights.Vector*passage.VectorScore + weights.Keyword*passage.KeywordScore
		case schema.OriginVector:
			passage.Score = weights.Vector * passage.VectorScore
		case schema.OriginKeyword:
			passage.Score = weights.Keyword * passage.KeywordScore
		}
		passages = append(passages, *passage)
	}

	sort.Slice(passages, func(i, j int) bool {
		if passages[i].Score != passages[j].Score {
			return passages[i].Score > passages[j].Score
		}
		if passages[i].VectorScore != passages[j].VectorScore {
			return passages[i].VectorScore > passages[j].VectorScore
		}
		if passages[i].ChunkIndex != passages[j].ChunkIndex {
			return passages[i].ChunkIndex < passages[j].ChunkIndex
		}
		return passages[i].ChunkID < passages[j].ChunkID
	})

	if topK > 0 && len(passages) > topK {
		passages = passages[:topK]
	}
	return passages
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
