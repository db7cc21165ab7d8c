package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"docqa/internal/rag/errs"
	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
	"docqa/pkg/logger"
)

// candidateFactor widens per-index candidate sets beyond topK so fusion has
// enough overlap to rank across both spaces.
const candidateFactor = 2

// HybridRetriever answers retrieval requests against the vector index, the
// keyword index, or both fused. The two index queries of a hybrid request run
// concurrently; either index failing fails the request.
type HybridRetriever struct {
	embedder     interfaces.EmbeddingModel
	vectorIndex  interfaces.VectorIndex
	keywordIndex interfaces.KeywordIndex
	weights      FusionWeights
	log          *logger.Logger
}

// NewHybridRetriever creates a new HybridRetriever.
func NewHybridRetriever(
	embedder interfaces.EmbeddingModel,
	vectorIndex interfaces.VectorIndex,
	keywordIndex interfaces.KeywordIndex,
	weights FusionWeights,
	log *logger.Logger,
) *HybridRetriever {
	if weights.Vector <= 0 && weights.Keyword <= 0 {
		weights = DefaultFusionWeights
	}
	return &HybridRetriever{
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		weights:      weights,
		log:          log,
	}
}

// Retrieve returns the topK passages most relevant to the question. A
// keyword-only request never touches the embedding provider. An empty result
// is a valid outcome, not an error.
func (r *HybridRetriever) Retrieve(ctx context.Context, question string, topK int, filter schema.Filter, mode schema.SearchMode) ([]schema.Passage, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &errs.ValidationError{Reason: "question must not be empty"}
	}
	if mode == "" {
		mode = schema.ModeHybrid
	}
	if !mode.Valid() {
		return nil, &errs.ValidationError{Reason: fmt.Sprintf("unknown search mode %q", mode)}
	}
	if topK <= 0 {
		return nil, &errs.ValidationError{Reason: "topK must be positive"}
	}

	candidates := topK * candidateFactor

	var (
		vectorHits  []schema.VectorHit
		keywordHits []schema.KeywordHit
	)
	eg, gCtx := errgroup.WithContext(ctx)

	if mode == schema.ModeVector || mode == schema.ModeHybrid {
		eg.Go(func() error {
			vector, err := r.embedder.Embed(gCtx, question)
			if err != nil {
				return fmt.Errorf("embed question: %w", err)
			}
			hits, err := r.vectorIndex.Query(gCtx, vector, candidates, filter)
			if err != nil {
				return fmt.Errorf("vector query: %w", err)
			}
			vectorHits = hits
			return nil
		})
	}
	if mode == schema.ModeKeyword || mode == schema.ModeHybrid {
		eg.Go(func() error {
			hits, err := r.keywordIndex.Query(gCtx, question, candidates, filter)
			if err != nil {
				return fmt.Errorf("keyword query: %w", err)
			}
			keywordHits = hits
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	passages := Fuse(vectorHits, keywordHits, r.weights, topK)
	r.log.WithPayload(map[string]interface{}{
		"mode":     string(mode),
		"vector":   len(vectorHits),
		"keyword":  len(keywordHits),
		"passages": len(passages),
	}).Debug("retrieval finished")
	return passages, nil
}
