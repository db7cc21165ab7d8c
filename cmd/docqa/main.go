package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"docqa/internal/api"
	"docqa/internal/config"
	"docqa/internal/contentstore"
	"docqa/internal/database"
	"docqa/internal/rag/embeddings"
	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/llms"
	"docqa/internal/rag/pipeline"
	"docqa/internal/rag/splitters"
	"docqa/internal/rag/storages/keywordindex"
	"docqa/internal/rag/storages/vectorindex"
	"docqa/internal/service"
	"docqa/internal/store"
	"docqa/internal/worker"
	"docqa/pkg/logger"
)

func main() {
	logger.Init(logrus.InfoLevel)
	appLogger := logger.New("DocQA")
	appLogger.Info("Starting document Q&A service...")

	configPath := os.Getenv("DOCQA_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Record store.
	db, err := database.OpenMySQL(ctx, &cfg.MySQL)
	if err != nil {
		log.Fatalf("Failed to connect to MySQL: %v", err)
	}
	defer database.CloseMySQL(db)
	if err := db.AutoMigrate(&store.Document{}, &store.Chat{}, &store.Message{}); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}
	documentDAL := store.NewDocumentDAL(db)
	chatDAL := store.NewChatDAL(db)

	// Vector index.
	milvusClient, err := database.OpenMilvus(ctx, &cfg.Milvus)
	if err != nil {
		log.Fatalf("Failed to connect to Milvus: %v", err)
	}
	defer milvusClient.Close()
	if err := database.EnsureChunkCollection(ctx, milvusClient, &cfg.Milvus); err != nil {
		log.Fatalf("Failed to prepare Milvus collection: %v", err)
	}
	vectorIdx, err := vectorindex.NewMilvusIndex(milvusClient, cfg.Milvus.Collection, logger.New("MilvusIndex"))
	if err != nil {
		log.Fatalf("Failed to create vector index: %v", err)
	}

	// Keyword index.
	keywordIdx, err := keywordindex.NewBleveIndex(cfg.KeywordIndex.Path, logger.New("BleveIndex"))
	if err != nil {
		log.Fatalf("Failed to open keyword index: %v", err)
	}
	defer keywordIdx.Close()

	// Content store for raw uploads.
	minioClient, err := database.OpenMinIO(ctx, &cfg.MinIO)
	if err != nil {
		log.Fatalf("Failed to connect to MinIO: %v", err)
	}
	if err := database.EnsureBucket(ctx, minioClient, cfg.MinIO.Bucket); err != nil {
		log.Fatalf("Failed to prepare MinIO bucket: %v", err)
	}
	content := contentstore.NewStore(minioClient, cfg.MinIO.Bucket)

	// Embedding provider, wrapped with batching/retry and a Redis cache.
	embedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create embedding provider: %v", err)
	}

	// Generation provider.
	llm, err := buildLLM(cfg)
	if err != nil {
		log.Fatalf("Failed to create generation provider: %v", err)
	}

	// Pipelines.
	splitter := splitters.NewCharacterSplitter(cfg.Ingestion.ChunkSize, cfg.Ingestion.ChunkOverlap)
	ingestPipeline := pipeline.NewIngestionPipeline(
		splitter, embedder, vectorIdx, keywordIdx, documentDAL, logger.New("Ingestion"))
	retriever := pipeline.NewHybridRetriever(
		embedder, vectorIdx, keywordIdx,
		pipeline.FusionWeights{Vector: cfg.Retrieval.VectorWeight, Keyword: cfg.Retrieval.KeywordWeight},
		logger.New("Retrieval"))
	answerer := pipeline.NewAnswerPipeline(llm, logger.New("Answer"))

	// Ingestion queue and worker pool.
	queue, err := buildQueue(cfg)
	if err != nil {
		log.Fatalf("Failed to create ingestion queue: %v", err)
	}
	defer queue.Close()

	pool := worker.NewPool(queue, content, ingestPipeline, documentDAL, cfg.Ingestion.Workers, logger.New("Worker"))
	pool.Start(ctx)

	// Services and HTTP API.
	documentService := service.NewDocumentService(
		documentDAL, content, queue, vectorIdx, keywordIdx,
		&cfg.Ingestion, cfg.Embedding.Model, logger.New("DocumentService"))
	chatService := service.NewChatService(
		chatDAL, retriever, answerer, cfg.Retrieval.TopK, logger.New("ChatService"))

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	api.RegisterRoutes(router, api.NewAPI(documentService, chatService, logger.New("API")))

	server := &http.Server{Addr: cfg.Server.Address, Handler: router}
	go func() {
		appLogger.Info(fmt.Sprintf("HTTP server listening at %s", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("HTTP server shutdown failed")
	}

	queue.Close()
	pool.Wait()
	appLogger.Info("Service stopped")
}

// buildEmbedder assembles the embedding stack: provider, batching with retry,
// and a Redis-backed cache in front of everything.
func buildEmbedder(ctx context.Context, cfg *config.AppConfig) (interfaces.EmbeddingModel, error) {
	var provider interfaces.EmbeddingModel
	var err error
	switch cfg.Embedding.Provider {
	case "openai":
		provider, err = embeddings.NewOpenAIModel(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.BaseURL)
	case "ollama":
		provider, err = embeddings.NewOllamaModel(cfg.Embedding.Model, cfg.Embedding.BaseURL)
	default:
		err = fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
	if err != nil {
		return nil, err
	}

	batched := embeddings.NewBatchedEmbedder(
		provider,
		cfg.Embedding.BatchSize,
		time.Duration(cfg.Embedding.Timeout)*time.Second,
		logger.New("Embedding"))

	if cfg.Redis.Address == "" {
		return batched, nil
	}
	rdb, err := database.OpenRedis(ctx, &cfg.Redis)
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(cfg.Redis.CacheTTL) * time.Second
	return embeddings.NewCachedEmbedder(batched, rdb, cfg.Embedding.Model, ttl, logger.New("EmbeddingCache")), nil
}

func buildLLM(cfg *config.AppConfig) (interfaces.LLM, error) {
	timeout := time.Duration(cfg.LLM.Timeout) * time.Second
	switch cfg.LLM.Provider {
	case "openai":
		return llms.NewOpenAI(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL, timeout)
	case "ollama":
		return llms.NewOllama(cfg.LLM.Model, cfg.LLM.BaseURL, timeout)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

func buildQueue(cfg *config.AppConfig) (worker.Queue, error) {
	if cfg.Kafka.Enabled {
		return worker.NewKafkaQueue(&cfg.Kafka)
	}
	return worker.NewMemoryQueue(cfg.Ingestion.QueueSize), nil
}
