package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docqa/internal/rag/errs"
	"docqa/internal/rag/extract"
	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
	"docqa/internal/store"
	"docqa/pkg/logger"
)

// rollbackTimeout bounds the index purge that follows a failed run, which
// must proceed even when the run's own context is already cancelled.
const rollbackTimeout = 30 * time.Second

// DocumentRecords is the slice of the record store the ingestion pipeline
// drives the status state machine through.
type DocumentRecords interface {
	GetByID(ctx context.Context, id uint) (*store.Document, error)
	GetCompletedByHash(ctx context.Context, hash string, excludeID uint) (*store.Document, error)
	TryMarkProcessing(ctx context.Context, id uint, reingest bool) (bool, error)
	MarkCompleted(ctx context.Context, id uint, chunkCount int) error
	MarkFailed(ctx context.Context, id uint, message string) error
}

// Outcome reports how one ingestion run ended.
type Outcome struct {
	Status       store.ProcessingStatus `json:"status"`
	ChunkCount   int                    `json:"chunk_count"`
	DuplicateOf  uint                   `json:"duplicate_of,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
}

// IngestionPipeline orchestrates one document's dedupe, chunking, embedding
// and dual-index write, and owns the document's processing-status state
// machine. Ingestion is all-or-nothing from the indexes' perspective: a
// failed run leaves no partial chunk set behind.
type IngestionPipeline struct {
	splitter     interfaces.Splitter
	embedder     interfaces.EmbeddingModel
	vectorIndex  interfaces.VectorIndex
	keywordIndex interfaces.KeywordIndex
	records      DocumentRecords
	log          *logger.Logger

	mu       sync.Mutex
	inflight map[uint]struct{}
}

// NewIngestionPipeline creates a new IngestionPipeline.
func NewIngestionPipeline(
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	vectorIndex interfaces.VectorIndex,
	keywordIndex interfaces.KeywordIndex,
	records DocumentRecords,
	log *logger.Logger,
) *IngestionPipeline {
	return &IngestionPipeline{
		splitter:     splitter,
		embedder:     embedder,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		records:      records,
		log:          log,
		inflight:     make(map[uint]struct{}),
	}
}

// ContentHash computes the deterministic digest used for duplicate detection.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Run ingests one document. The document must already be registered; its
// status transitions pending→processing→completed|failed. A second run for a
// document already processing is rejected as a conflict, never queued.
func (p *IngestionPipeline) Run(ctx context.Context, documentID uint, content []byte, reingest bool) (*Outcome, error) {
	if err := p.claim(documentID); err != nil {
		return nil, err
	}
	defer p.release(documentID)

	doc, err := p.records.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	// Identical content that already completed elsewhere is not reprocessed.
	hash := ContentHash(content)
	existing, err := p.records.GetCompletedByHash(ctx, hash, documentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		p.log.WithPayload(map[string]interface{}{
			"document_id": documentID,
			"existing_id": existing.ID,
		}).Info("content already ingested, returning duplicate outcome")
		return &Outcome{
			Status:      existing.ProcessingStatus,
			ChunkCount:  existing.ChunkCount,
			DuplicateOf: existing.ID,
		}, nil
	}

	claimed, err := p.records.TryMarkProcessing(ctx, documentID, reingest)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, &errs.ConflictError{DocumentID: doc.Key()}
	}

	outcome, err := p.process(ctx, doc, content)
	if err != nil {
		// An operator cancellation already failed the record with its own
		// message; re-marking would overwrite it with the abort text.
		if current, getErr := p.records.GetByID(ctx, documentID); getErr == nil && current.ProcessingStatus == store.StatusFailed {
			return &Outcome{Status: store.StatusFailed, ErrorMessage: current.ErrorMessage}, err
		}
		message := err.Error()
		if markErr := p.records.MarkFailed(ctx, documentID, message); markErr != nil {
			p.log.WithError(markErr).Error("failed to record ingestion failure")
		}
		return &Outcome{Status: store.StatusFailed, ErrorMessage: message}, err
	}
	return outcome, nil
}

// process runs the chunk→embed→dual-index stages for a claimed document.
func (p *IngestionPipeline) process(ctx context.Context, doc *store.Document, content []byte) (*Outcome, error) {
	text, err := extract.Text(doc.OriginalName, content)
	if err != nil {
		return nil, err
	}

	pieces := p.splitter.Split(text)
	if len(pieces) == 0 {
		return nil, errs.Permanent("split", fmt.Errorf("document %s produced no chunks", doc.Key()))
	}

	chunks := make([]*schema.Chunk, len(pieces))
	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &schema.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.Key(),
			Index:      i,
			Text:       piece,
			Metadata: map[string]interface{}{
				schema.MetadataKeyDocumentID: doc.Key(),
				schema.MetadataKeyChunkIndex: i,
				schema.MetadataKeySourceName: doc.OriginalName,
			},
		}
		texts[i] = piece
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i, chunk := range chunks {
		chunk.Embedding = vectors[i]
	}

	// An operator may have forced the document to failed while we were
	// embedding; a cancelled run must not write chunks.
	current, err := p.records.GetByID(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	if current.ProcessingStatus != store.StatusProcessing {
		return nil, errs.Permanent("ingest", fmt.Errorf("run cancelled, document %s is %s", doc.Key(), current.ProcessingStatus))
	}

	// Supersede any previous chunk set before the new one goes in, so a
	// re-ingestion never leaves both generations in the indexes.
	filter := schema.Filter{DocumentIDs: []string{doc.Key()}}
	if err := p.purgeIndexes(ctx, filter); err != nil {
		return nil, err
	}

	eg, gCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := p.vectorIndex.Add(gCtx, chunks); err != nil {
			return fmt.Errorf("vector index write failed: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		if err := p.keywordIndex.Add(gCtx, chunks); err != nil {
			return fmt.Errorf("keyword index write failed: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		p.rollback(filter)
		return nil, err
	}

	if err := p.records.MarkCompleted(ctx, doc.ID, len(chunks)); err != nil {
		p.rollback(filter)
		return nil, err
	}

	p.log.WithPayload(map[string]interface{}{
		"document_id": doc.ID,
		"chunks":      len(chunks),
	}).Info("document ingested")
	return &Outcome{Status: store.StatusCompleted, ChunkCount: len(chunks)}, nil
}

// purgeIndexes removes the document's chunk set from both indexes.
func (p *IngestionPipeline) purgeIndexes(ctx context.Context, filter schema.Filter) error {
	if err := p.vectorIndex.Delete(ctx, filter); err != nil {
		return fmt.Errorf("vector index purge failed: %w", err)
	}
	if err := p.keywordIndex.Delete(ctx, filter); err != nil {
		return fmt.Errorf("keyword index purge failed: %w", err)
	}
	return nil
}

// rollback clears the partial writes of a failed run. It runs detached from
// the run's context and never masks the original error.
func (p *IngestionPipeline) rollback(filter schema.Filter) {
	ctx, cancel := context.WithTimeout(context.Background(), rollbackTimeout)
	defer cancel()
	if err := p.purgeIndexes(ctx, filter); err != nil {
		p.log.WithError(err).Error("failed to roll back partial index writes")
	}
}

// claim enforces at-most-one in-flight run per document within this process.
func (p *IngestionPipeline) claim(documentID uint) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[documentID]; busy {
		return &errs.ConflictError{DocumentID: fmt.Sprintf("%d", documentID)}
	}
	p.inflight[documentID] = struct{}{}
	return nil
}

func (p *IngestionPipeline) release(documentID uint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, documentID)
}
