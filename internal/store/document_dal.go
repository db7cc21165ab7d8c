package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	"docqa/internal/rag/errs"
)

// DocumentDAL provides data access methods for document records.
type DocumentDAL struct {
	db *gorm.DB
}

// NewDocumentDAL creates a new DocumentDAL.
func NewDocumentDAL(db *gorm.DB) *DocumentDAL {
	return &DocumentDAL{db: db}
}

// Create inserts a new document record.
func (dal *DocumentDAL) Create(ctx context.Context, doc *Document) error {
	return dal.db.WithContext(ctx).Create(doc).Error
}

// GetByID fetches a document by its identifier.
func (dal *DocumentDAL) GetByID(ctx context.Context, id uint) (*Document, error) {
	var doc Document
	err := dal.db.WithContext(ctx).First(&doc, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &errs.NotFoundError{Kind: "document", ID: strconv.FormatUint(uint64(id), 10)}
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetByHash fetches the document with the given content hash, or nil when no
// such document exists.
func (dal *DocumentDAL) GetByHash(ctx context.Context, hash string) (*Document, error) {
	var doc Document
	err := dal.db.WithContext(ctx).Where("content_hash = ?", hash).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetCompletedByHash fetches a completed document sharing the hash, excluding
// the given id. Used by the dedupe check inside an ingestion run.
func (dal *DocumentDAL) GetCompletedByHash(ctx context.Context, hash string, excludeID uint) (*Document, error) {
	var doc Document
	err := dal.db.WithContext(ctx).
		Where("content_hash = ? AND processing_status = ? AND id <> ?", hash, StatusCompleted, excludeID).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns documents ordered by creation time, newest first.
func (dal *DocumentDAL) List(ctx context.Context, offset, limit int) ([]*Document, error) {
	if limit <= 0 {
		limit = 100
	}
	var docs []*Document
	err := dal.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&docs).Error
	return docs, err
}

// Count returns the total number of document records.
func (dal *DocumentDAL) Count(ctx context.Context) (int64, error) {
	var count int64
	err := dal.db.WithContext(ctx).Model(&Document{}).Count(&count).Error
	return count, err
}

// Delete removes a document record.
func (dal *DocumentDAL) Delete(ctx context.Context, id uint) error {
	result := dal.db.WithContext(ctx).Delete(&Document{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &errs.NotFoundError{Kind: "document", ID: strconv.FormatUint(uint64(id), 10)}
	}
	return nil
}

// TryMarkProcessing atomically claims a document for ingestion: the update
// succeeds only when the current status legally admits a new run. It reports
// false when another run holds the document or the transition is illegal.
func (dal *DocumentDAL) TryMarkProcessing(ctx context.Context, id uint, reingest bool) (bool, error) {
	from := []ProcessingStatus{StatusPending, StatusFailed}
	if reingest {
		from = append(from, StatusCompleted)
	}
	result := dal.db.WithContext(ctx).Model(&Document{}).
		Where("id = ? AND processing_status IN ?", id, from).
		Updates(map[string]interface{}{
			"processing_status": StatusProcessing,
			"error_message":     "",
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkCompleted finishes a successful run: status, chunk count and the
// processed timestamp change together.
func (dal *DocumentDAL) MarkCompleted(ctx context.Context, id uint, chunkCount int) error {
	now := time.Now().UTC()
	return dal.db.WithContext(ctx).Model(&Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processing_status": StatusCompleted,
			"chunk_count":       chunkCount,
			"error_message":     "",
			"processed_at":      &now,
		}).Error
}

// MarkFailed records a failed run with its error message.
func (dal *DocumentDAL) MarkFailed(ctx context.Context, id uint, message string) error {
	if len(message) > 2000 {
		message = message[:2000]
	}
	return dal.db.WithContext(ctx).Model(&Document{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processing_status": StatusFailed,
			"error_message":     message,
		}).Error
}
