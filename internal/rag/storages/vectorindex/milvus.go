package vectorindex

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
	"docqa/pkg/logger"
)

const (
	// Milvus collection fields. FieldDocumentID carries the metadata used for
	// all filtering and bulk deletes.
	FieldID         = "id"
	FieldDocumentID = "document_id"
	FieldChunkIndex = "chunk_index"
	FieldText       = "text"
	FieldEmbedding  = "embedding"
)

// searchEf is the HNSW search-scope parameter used for every query.
const searchEf = 64

// MilvusIndex stores chunk vectors in a Milvus collection and answers
// nearest-neighbor queries with cosine similarity.
type MilvusIndex struct {
	client     client.Client
	collection string
	log        *logger.Logger
}

// NewMilvusIndex creates a vector index backed by an existing Milvus
// collection. The collection schema is managed by the database layer.
func NewMilvusIndex(c client.Client, collection string, log *logger.Logger) (*MilvusIndex, error) {
	if c == nil {
		return nil, fmt.Errorf("milvus client is not initialized")
	}
	return &MilvusIndex{
		client:     c,
		collection: collection,
		log:        log,
	}, nil
}

// Add inserts the chunks' vectors along with the metadata needed for
// filtering and result assembly.
func (s *MilvusIndex) Add(ctx context.Context, chunks []*schema.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	documentIDs := make([]string, len(chunks))
	chunkIndexes := make([]int64, len(chunks))
	texts := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))

	dim := 0
	for i, chunk := range chunks {
		ids[i] = chunk.ID
		documentIDs[i] = chunk.DocumentID
		chunkIndexes[i] = int64(chunk.Index)
		texts[i] = chunk.Text
		embeddings[i] = chunk.Embedding
		if len(chunk.Embedding) > dim {
			dim = len(chunk.Embedding)
		}
	}

	_, err := s.client.Insert(ctx, s.collection, "",
		entity.NewColumnVarChar(FieldID, ids),
		entity.NewColumnVarChar(FieldDocumentID, documentIDs),
		entity.NewColumnInt64(FieldChunkIndex, chunkIndexes),
		entity.NewColumnVarChar(FieldText, texts),
		entity.NewColumnFloatVector(FieldEmbedding, dim, embeddings),
	)
	if err != nil {
		return fmt.Errorf("failed to insert vectors into milvus: %w", err)
	}

	s.log.WithPayload(map[string]interface{}{
		"collection": s.collection,
		"chunks":     len(chunks),
	}).Info("inserted chunk vectors into milvus")
	return nil
}

// Query runs a cosine-similarity search, optionally restricted to a document
// scope. An empty scope yields an empty result, never an error.
func (s *MilvusIndex) Query(ctx context.Context, vector []float32, topK int, filter schema.Filter) ([]schema.VectorHit, error) {
	if topK <= 0 {
		return nil, nil
	}

	if err := s.client.LoadCollection(ctx, s.collection, false); err != nil {
		return nil, fmt.Errorf("failed to load milvus collection %q: %w", s.collection, err)
	}

	sp, _ := entity.NewIndexHNSWSearchParam(searchEf)
	results, err := s.client.Search(
		ctx, s.collection, nil, buildFilterExpr(filter),
		[]string{FieldID, FieldDocumentID, FieldChunkIndex, FieldText},
		[]entity.Vector{entity.FloatVector(vector)},
		FieldEmbedding, entity.COSINE, topK, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search failed: %w", err)
	}

	var hits []schema.VectorHit
	for _, res := range results {
		idCol, _ := findColumn(res.Fields, FieldID).(*entity.ColumnVarChar)
		docCol, _ := findColumn(res.Fields, FieldDocumentID).(*entity.ColumnVarChar)
		idxCol, _ := findColumn(res.Fields, FieldChunkIndex).(*entity.ColumnInt64)
		textCol, _ := findColumn(res.Fields, FieldText).(*entity.ColumnVarChar)
		if idCol == nil {
			s.log.Warn("milvus search result is missing the id column, skipping")
			continue
		}

		for i := 0; i < res.ResultCount; i++ {
			hit := schema.VectorHit{
				ChunkID: idCol.Data()[i],
				Score:   float64(res.Scores[i]),
			}
			if docCol != nil {
				hit.DocumentID = docCol.Data()[i]
			}
			if idxCol != nil {
				hit.ChunkIndex = int(idxCol.Data()[i])
			}
			if textCol != nil {
				hit.Text = textCol.Data()[i]
			}
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

// Delete removes every vector whose document id matches the filter. Deleting
// an absent scope is a no-op success.
func (s *MilvusIndex) Delete(ctx context.Context, filter schema.Filter) error {
	expr := buildFilterExpr(filter)
	if expr == "" {
		return fmt.Errorf("refusing to delete the whole collection without a filter")
	}
	if err := s.client.Delete(ctx, s.collection, "", expr); err != nil {
		return fmt.Errorf("milvus delete failed: %w", err)
	}
	return nil
}

// Stats reports the number of stored vectors.
func (s *MilvusIndex) Stats(ctx context.Context) (schema.IndexStats, error) {
	stats := schema.IndexStats{Name: "vector:" + s.collection}
	raw, err := s.client.GetCollectionStatistics(ctx, s.collection)
	if err != nil {
		stats.Status = "error: " + err.Error()
		return stats, err
	}
	if rowCount, ok := raw["row_count"]; ok {
		stats.Count, _ = strconv.ParseInt(rowCount, 10, 64)
	}
	stats.Status = "healthy"
	return stats, nil
}

// buildFilterExpr renders a document filter as a Milvus boolean expression.
func buildFilterExpr(filter schema.Filter) string {
	if filter.Empty() {
		return ""
	}
	quoted := make([]string, len(filter.DocumentIDs))
	for i, id := range filter.DocumentIDs {
		quoted[i] = strconv.Quote(id)
	}
	return fmt.Sprintf("%s in [%s]", FieldDocumentID, strings.Join(quoted, ", "))
}

func findColumn(fields []entity.Column, name string) entity.Column {
	for _, field := range fields {
		if field.Name() == name {
			return field
		}
	}
	return nil
}

var _ interfaces.VectorIndex = (*MilvusIndex)(nil)
