// Package service implements the application operations behind the HTTP API:
// document lifecycle management and question answering over chats.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"docqa/internal/config"
	"docqa/internal/rag/errs"
	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/pipeline"
	"docqa/internal/rag/schema"
	"docqa/internal/store"
	"docqa/internal/worker"
	"docqa/pkg/logger"
)

// DocumentRecords is the slice of the record store the document service
// drives.
type DocumentRecords interface {
	Create(ctx context.Context, doc *store.Document) error
	GetByID(ctx context.Context, id uint) (*store.Document, error)
	GetByHash(ctx context.Context, hash string) (*store.Document, error)
	List(ctx context.Context, offset, limit int) ([]*store.Document, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uint) error
	MarkFailed(ctx context.Context, id uint, message string) error
}

// ContentStore holds raw uploaded bytes between acceptance and ingestion.
type ContentStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
	Remove(ctx context.Context, key string) error
}

// UploadResult reports how an upload was accepted.
type UploadResult struct {
	Document  *store.Document `json:"document"`
	Duplicate bool            `json:"duplicate"`
}

// StatsResult is the diagnostic snapshot behind the stats endpoint.
type StatsResult struct {
	Documents    int64             `json:"documents"`
	VectorIndex  schema.IndexStats `json:"vector_index"`
	KeywordIndex schema.IndexStats `json:"keyword_index"`
}

// DocumentService manages the document lifecycle: validated upload, queued
// ingestion, deletion with full index purge, re-ingestion and cancellation.
type DocumentService struct {
	docs         DocumentRecords
	content      ContentStore
	queue        worker.Queue
	vectorIndex  interfaces.VectorIndex
	keywordIndex interfaces.KeywordIndex
	cfg          *config.IngestionConfig
	embedModel   string
	log          *logger.Logger
}

// NewDocumentService creates a DocumentService. embedModel is recorded on
// each document so a later model change is visible per document.
func NewDocumentService(
	docs DocumentRecords,
	content ContentStore,
	queue worker.Queue,
	vectorIndex interfaces.VectorIndex,
	keywordIndex interfaces.KeywordIndex,
	cfg *config.IngestionConfig,
	embedModel string,
	log *logger.Logger,
) *DocumentService {
	return &DocumentService{
		docs:         docs,
		content:      content,
		queue:        queue,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		cfg:          cfg,
		embedModel:   embedModel,
		log:          log,
	}
}

// Upload validates and accepts a document. Identical content resolves to the
// existing record instead of creating a second one; otherwise the raw bytes
// go to the content store and an ingestion job is queued. The document is
// visible immediately with status pending.
func (s *DocumentService) Upload(ctx context.Context, filename string, content []byte) (*UploadResult, error) {
	if err := s.validateUpload(filename, content); err != nil {
		return nil, err
	}

	hash := pipeline.ContentHash(content)
	existing, err := s.docs.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.log.WithPayload(map[string]interface{}{
			"existing_id": existing.ID,
			"filename":    filename,
		}).Info("duplicate upload resolved to existing document")
		return &UploadResult{Document: existing, Duplicate: true}, nil
	}

	mediaType := mimetype.Detect(content).String()
	objectKey := fmt.Sprintf("uploads/%s%s", uuid.New().String(), strings.ToLower(filepath.Ext(filename)))

	doc := &store.Document{
		ContentHash:      hash,
		OriginalName:     filename,
		StoragePath:      objectKey,
		FileSize:         int64(len(content)),
		MediaType:        mediaType,
		ProcessingStatus: store.StatusPending,
		EmbeddingModel:   s.embedModel,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}

	if err := s.content.Put(ctx, objectKey, content, mediaType); err != nil {
		if markErr := s.docs.MarkFailed(ctx, doc.ID, "failed to store raw content: "+err.Error()); markErr != nil {
			s.log.WithError(markErr).Error("failed to record upload failure")
		}
		return nil, err
	}

	if err := s.queue.Enqueue(ctx, worker.Job{DocumentID: doc.ID, ObjectKey: objectKey}); err != nil {
		if markErr := s.docs.MarkFailed(ctx, doc.ID, "failed to queue ingestion: "+err.Error()); markErr != nil {
			s.log.WithError(markErr).Error("failed to record enqueue failure")
		}
		return nil, err
	}

	return &UploadResult{Document: doc}, nil
}

func (s *DocumentService) validateUpload(filename string, content []byte) error {
	if strings.TrimSpace(filename) == "" {
		return &errs.ValidationError{Reason: "filename must not be empty"}
	}
	if len(content) == 0 {
		return &errs.ValidationError{Reason: "file is empty"}
	}
	if int64(len(content)) > s.cfg.MaxFileSize {
		return &errs.ValidationError{Reason: fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSize)}
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range s.cfg.AllowedTypes {
		if ext == allowed {
			return nil
		}
	}
	return &errs.ValidationError{Reason: fmt.Sprintf("unsupported file type %q, allowed: %s", ext, strings.Join(s.cfg.AllowedTypes, ", "))}
}

// Get returns one document record.
func (s *DocumentService) Get(ctx context.Context, id uint) (*store.Document, error) {
	return s.docs.GetByID(ctx, id)
}

// List returns document records, newest first.
func (s *DocumentService) List(ctx context.Context, offset, limit int) ([]*store.Document, error) {
	return s.docs.List(ctx, offset, limit)
}

// Delete removes a document everywhere: both indexes, the content store and
// the record. Index purges run first so a crash mid-delete can only leave an
// already-purged record behind, never orphaned chunks.
func (s *DocumentService) Delete(ctx context.Context, id uint) error {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}

	filter := schema.Filter{DocumentIDs: []string{doc.Key()}}
	if err := s.vectorIndex.Delete(ctx, filter); err != nil {
		return fmt.Errorf("vector index purge failed: %w", err)
	}
	if err := s.keywordIndex.Delete(ctx, filter); err != nil {
		return fmt.Errorf("keyword index purge failed: %w", err)
	}

	if doc.StoragePath != "" {
		if err := s.content.Remove(ctx, doc.StoragePath); err != nil {
			s.log.WithError(err).Warn("failed to remove raw content during delete")
		}
	}

	return s.docs.Delete(ctx, id)
}

// Reingest queues a fresh ingestion run for an existing document using the
// newly supplied content. Only the explicit re-ingestion path may take a
// completed document back to processing.
func (s *DocumentService) Reingest(ctx context.Context, id uint, filename string, content []byte) (*store.Document, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.ProcessingStatus == store.StatusProcessing {
		return nil, &errs.ConflictError{DocumentID: doc.Key()}
	}
	if filename == "" {
		filename = doc.OriginalName
	}
	if err := s.validateUpload(filename, content); err != nil {
		return nil, err
	}

	// Content that already belongs to a different document would break hash
	// uniqueness; point the caller at the existing record instead.
	other, err := s.docs.GetByHash(ctx, pipeline.ContentHash(content))
	if err != nil {
		return nil, err
	}
	if other != nil && other.ID != doc.ID {
		return nil, &errs.DuplicateError{ExistingID: other.Key()}
	}

	mediaType := mimetype.Detect(content).String()
	objectKey := fmt.Sprintf("uploads/%s%s", uuid.New().String(), strings.ToLower(filepath.Ext(filename)))
	if err := s.content.Put(ctx, objectKey, content, mediaType); err != nil {
		return nil, err
	}

	if err := s.queue.Enqueue(ctx, worker.Job{DocumentID: doc.ID, ObjectKey: objectKey, Reingest: true}); err != nil {
		return nil, err
	}
	return doc, nil
}

// Cancel force-fails a processing document. The in-flight run notices the
// status change before it writes chunks and aborts.
func (s *DocumentService) Cancel(ctx context.Context, id uint) (*store.Document, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.ProcessingStatus != store.StatusProcessing {
		return nil, &errs.ValidationError{Reason: fmt.Sprintf("document %s is %s, only processing documents can be cancelled", doc.Key(), doc.ProcessingStatus)}
	}
	if err := s.docs.MarkFailed(ctx, id, "cancelled by operator"); err != nil {
		return nil, err
	}
	return s.docs.GetByID(ctx, id)
}

// Stats returns a diagnostic snapshot of the record store and both indexes.
// A failing index reports its error in Status instead of failing the call.
func (s *DocumentService) Stats(ctx context.Context) (*StatsResult, error) {
	result := &StatsResult{}
	count, err := s.docs.Count(ctx)
	if err != nil {
		return nil, err
	}
	result.Documents = count

	result.VectorIndex, err = s.vectorIndex.Stats(ctx)
	if err != nil {
		result.VectorIndex = schema.IndexStats{Name: "vector", Status: err.Error()}
	}
	result.KeywordIndex, err = s.keywordIndex.Stats(ctx)
	if err != nil {
		result.KeywordIndex = schema.IndexStats{Name: "keyword", Status: err.Error()}
	}
	return result, nil
}
