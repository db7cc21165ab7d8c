package embeddings

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"docqa/internal/rag/errs"
	"docqa/internal/rag/interfaces"
	"docqa/pkg/logger"
)

const (
	// maxAttempts bounds the retry loop around each provider call.
	maxAttempts = 3
	// baseBackoff is the delay before the first retry; it doubles per attempt.
	baseBackoff = 500 * time.Millisecond
	// maxConcurrentBatches caps how many provider calls one EmbedBatch fans
	// out at a time.
	maxConcurrentBatches = 4
)

// BatchedEmbedder wraps a provider with batching, a per-call timeout, and a
// bounded exponential-backoff retry for transient failures. Batches of one
// EmbedBatch call run concurrently; the output order matches the input order.
type BatchedEmbedder struct {
	provider  interfaces.EmbeddingModel
	batchSize int
	timeout   time.Duration
	log       *logger.Logger
}

// NewBatchedEmbedder creates a BatchedEmbedder around a provider.
func NewBatchedEmbedder(provider interfaces.EmbeddingModel, batchSize int, timeout time.Duration, log *logger.Logger) *BatchedEmbedder {
	if batchSize <= 0 {
		batchSize = 64
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BatchedEmbedder{
		provider:  provider,
		batchSize: batchSize,
		timeout:   timeout,
		log:       log,
	}
}

// Embed generates the embedding vector for a single text.
func (b *BatchedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := b.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates one vector per input text. Inputs are cut into
// provider-sized batches that are embedded concurrently; a transient failure
// is retried up to maxAttempts times before it fails the whole call.
func (b *BatchedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentBatches)

	for start := 0; start < len(texts); start += b.batchSize {
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		offset, batch := start, texts[start:end]

		eg.Go(func() error {
			batchVectors, err := b.embedWithRetry(gCtx, batch)
			if err != nil {
				return err
			}
			copy(vectors[offset:], batchVectors)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// embedWithRetry performs one provider call per attempt under the configured
// timeout. Only transient errors are retried; after the last attempt the
// transient error is surfaced as-is so the caller can map it to a failed run.
func (b *BatchedEmbedder) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := baseBackoff << (attempt - 1)
			b.log.WithPayload(map[string]interface{}{
				"attempt": attempt + 1,
				"delay":   delay.String(),
			}).Warn("retrying embedding batch after transient failure")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, b.timeout)
		vectors, err := b.provider.EmbedBatch(callCtx, texts)
		cancel()
		if err == nil {
			if len(vectors) != len(texts) {
				return nil, fmt.Errorf("embed: got %d vectors for %d texts", len(vectors), len(texts))
			}
			return vectors, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errs.IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

var _ interfaces.EmbeddingModel = (*BatchedEmbedder)(nil)
