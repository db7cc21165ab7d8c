package database

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"docqa/internal/config"
)

const (
	milvusIDMaxLength   = 64
	milvusTextMaxLength = 65535
	hnswM               = 8
	hnswEfConstruction  = 96
)

// OpenMilvus connects to Milvus and verifies connectivity.
func OpenMilvus(ctx context.Context, cfg *config.MilvusConfig) (client.Client, error) {
	c, err := client.NewClient(ctx, client.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus: %w", err)
	}
	if err := PingMilvus(ctx, c); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// EnsureChunkCollection creates the chunk collection with its HNSW cosine
// index if it does not exist yet, then loads it. The schema mirrors the chunk
// fields both indexes agree on: id, document_id, chunk_index and text, plus
// the embedding vector.
func EnsureChunkCollection(ctx context.Context, c client.Client, cfg *config.MilvusConfig) error {
	exists, err := c.HasCollection(ctx, cfg.Collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %q: %w", cfg.Collection, err)
	}

	if !exists {
		schema := entity.NewSchema().
			WithName(cfg.Collection).
			WithDescription("document chunks with embeddings").
			WithField(entity.NewField().WithName("id").
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(milvusIDMaxLength).
				WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName("document_id").
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(milvusIDMaxLength)).
			WithField(entity.NewField().WithName("chunk_index").
				WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName("text").
				WithDataType(entity.FieldTypeVarChar).WithMaxLength(milvusTextMaxLength)).
			WithField(entity.NewField().WithName("embedding").
				WithDataType(entity.FieldTypeFloatVector).WithDim(int64(cfg.Dim)))

		if err := c.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection %q: %w", cfg.Collection, err)
		}

		idx, err := entity.NewIndexHNSW(entity.COSINE, hnswM, hnswEfConstruction)
		if err != nil {
			return fmt.Errorf("failed to build HNSW index: %w", err)
		}
		if err := c.CreateIndex(ctx, cfg.Collection, "embedding", idx, false); err != nil {
			return fmt.Errorf("failed to create index on %q: %w", cfg.Collection, err)
		}
	}

	if err := c.LoadCollection(ctx, cfg.Collection, false); err != nil {
		return fmt.Errorf("failed to load collection %q: %w", cfg.Collection, err)
	}
	return nil
}

// PingMilvus checks connectivity by listing collections.
func PingMilvus(ctx context.Context, c client.Client) error {
	if _, err := c.ListCollections(ctx); err != nil {
		return fmt.Errorf("Milvus health check failed: %w", err)
	}
	return nil
}
