// Package keywordindex implements the lexical half of hybrid retrieval on top
// of an embedded bleve index: term-frequency scoring, fuzzy matching, and
// highlight fragments, filterable by document.
package keywordindex

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
	"docqa/pkg/logger"
)

const (
	fieldText       = "text"
	fieldDocumentID = "document_id"
	fieldChunkIndex = "chunk_index"

	// fuzziness tolerates minor misspellings in query terms.
	fuzziness = 1
	// deleteBatchSize bounds one round of a delete-by-filter sweep.
	deleteBatchSize = 1000
)

// BleveIndex is a keyword index backed by bleve, either in-memory or on disk.
type BleveIndex struct {
	index bleve.Index
	log   *logger.Logger
}

// indexedChunk is the shape of one chunk inside the bleve index.
type indexedChunk struct {
	Text       string `json:"text"`
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
}

// NewBleveIndex opens (or creates) the keyword index at path. An empty path
// yields a memory-only index.
func NewBleveIndex(path string, log *logger.Logger) (*BleveIndex, error) {
	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(buildMapping())
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, buildMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open keyword index: %w", err)
	}
	return &BleveIndex{index: idx, log: log}, nil
}

func buildMapping() mapping.IndexMapping {
	textField := bleve.NewTextFieldMapping()

	// The document id must match exactly, never be tokenized.
	docIDField := bleve.NewTextFieldMapping()
	docIDField.Analyzer = keyword.Name

	chunkDoc := bleve.NewDocumentMapping()
	chunkDoc.AddFieldMappingsAt(fieldText, textField)
	chunkDoc.AddFieldMappingsAt(fieldDocumentID, docIDField)
	chunkDoc.AddFieldMappingsAt(fieldChunkIndex, bleve.NewNumericFieldMapping())

	im := bleve.NewIndexMapping()
	im.DefaultMapping = chunkDoc
	return im
}

// Add indexes the chunks' text in one batch.
func (s *BleveIndex) Add(ctx context.Context, chunks []*schema.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	batch := s.index.NewBatch()
	for _, chunk := range chunks {
		doc := indexedChunk{
			Text:       chunk.Text,
			DocumentID: chunk.DocumentID,
			ChunkIndex: chunk.Index,
		}
		if err := batch.Index(chunk.ID, doc); err != nil {
			return fmt.Errorf("failed to stage chunk %s for indexing: %w", chunk.ID, err)
		}
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index chunks: %w", err)
	}
	return nil
}

// Query runs a fuzzy match against the stored text and returns the topK most
// relevant chunks with highlight fragments. No match yields an empty result.
func (s *BleveIndex) Query(ctx context.Context, text string, topK int, filter schema.Filter) ([]schema.KeywordHit, error) {
	if topK <= 0 {
		return nil, nil
	}

	match := bleve.NewMatchQuery(text)
	match.SetField(fieldText)
	match.SetFuzziness(fuzziness)

	req := bleve.NewSearchRequestOptions(s.scopedQuery(match, filter), topK, 0, false)
	req.Fields = []string{fieldText, fieldDocumentID, fieldChunkIndex}
	req.Highlight = bleve.NewHighlight()

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	hits := make([]schema.KeywordHit, 0, len(res.Hits))
	for _, match := range res.Hits {
		hit := schema.KeywordHit{
			ChunkID: match.ID,
			Score:   match.Score,
		}
		if v, ok := match.Fields[fieldText].(string); ok {
			hit.Text = v
		}
		if v, ok := match.Fields[fieldDocumentID].(string); ok {
			hit.DocumentID = v
		}
		if v, ok := match.Fields[fieldChunkIndex].(float64); ok {
			hit.ChunkIndex = int(v)
		}
		// Absent fragments are fine; the hit simply carries no highlights.
		hit.Highlights = match.Fragments[fieldText]
		hits = append(hits, hit)
	}
	return hits, nil
}

// Delete removes every chunk matching the filter. It sweeps in bounded
// batches and is idempotent: deleting an absent scope succeeds immediately.
func (s *BleveIndex) Delete(ctx context.Context, filter schema.Filter) error {
	if filter.Empty() {
		return fmt.Errorf("refusing to delete the whole keyword index without a filter")
	}

	for {
		req := bleve.NewSearchRequestOptions(s.scopedQuery(bleve.NewMatchAllQuery(), filter), deleteBatchSize, 0, false)
		res, err := s.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("keyword delete lookup failed: %w", err)
		}
		if len(res.Hits) == 0 {
			return nil
		}

		batch := s.index.NewBatch()
		for _, hit := range res.Hits {
			batch.Delete(hit.ID)
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("keyword delete failed: %w", err)
		}
	}
}

// Stats reports the number of indexed chunks.
func (s *BleveIndex) Stats(ctx context.Context) (schema.IndexStats, error) {
	stats := schema.IndexStats{Name: "keyword:bleve"}
	count, err := s.index.DocCount()
	if err != nil {
		stats.Status = "error: " + err.Error()
		return stats, err
	}
	stats.Count = int64(count)
	stats.Status = "healthy"
	return stats, nil
}

// Close releases the underlying index.
func (s *BleveIndex) Close() error {
	return s.index.Close()
}

// scopedQuery combines the base query with the document filter.
func (s *BleveIndex) scopedQuery(base query.Query, filter schema.Filter) query.Query {
	if filter.Empty() {
		return base
	}
	scope := bleve.NewDisjunctionQuery()
	for _, id := range filter.DocumentIDs {
		tq := bleve.NewTermQuery(id)
		tq.SetField(fieldDocumentID)
		scope.AddQuery(tq)
	}
	return bleve.NewConjunctionQuery(base, scope)
}

var _ interfaces.KeywordIndex = (*BleveIndex)(nil)
