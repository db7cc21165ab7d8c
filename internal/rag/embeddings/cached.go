package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"docqa/internal/rag/interfaces"
	"docqa/pkg/logger"
)

// CachedEmbedder is a read-through redis cache in front of an embedding
// model. Identical texts embed to identical vectors, so query embeddings can
// be served from the cache without changing results. Cache failures never
// fail a request; they fall through to the provider.
type CachedEmbedder struct {
	inner interfaces.EmbeddingModel
	rdb   *redis.Client
	model string
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedEmbedder wraps inner with a redis cache. The model name is part of
// the cache key so switching models never serves stale vectors.
func NewCachedEmbedder(inner interfaces.EmbeddingModel, rdb *redis.Client, model string, ttl time.Duration, log *logger.Logger) *CachedEmbedder {
	return &CachedEmbedder{
		inner: inner,
		rdb:   rdb,
		model: model,
		ttl:   ttl,
		log:   log,
	}
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + c.model + ":" + hex.EncodeToString(sum[:])
}

// Embed generates or recalls the embedding vector for a single text.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch serves cached vectors where possible and embeds only the misses,
// preserving input order.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	missIdx := make([]int, 0, len(texts))

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.key(text)
	}

	cached, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.log.WithError(err).Warn("embedding cache read failed, falling back to provider")
		cached = make([]interface{}, len(texts))
	}
	for i, raw := range cached {
		s, ok := raw.(string)
		if !ok {
			missIdx = append(missIdx, i)
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(s), &vec); err != nil {
			missIdx = append(missIdx, i)
			continue
		}
		vectors[i] = vec
	}

	if len(missIdx) == 0 {
		return vectors, nil
	}

	missTexts := make([]string, len(missIdx))
	for i, idx := range missIdx {
		missTexts[i] = texts[idx]
	}
	fresh, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	pipe := c.rdb.Pipeline()
	for i, idx := range missIdx {
		vectors[idx] = fresh[i]
		if encoded, err := json.Marshal(fresh[i]); err == nil {
			pipe.Set(ctx, keys[idx], encoded, c.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.WithError(err).Warn("embedding cache write failed")
	}

	return vectors, nil
}

var _ interfaces.EmbeddingModel = (*CachedEmbedder)(nil)
