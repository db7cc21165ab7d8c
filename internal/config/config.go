package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"` // Listen address, e.g. ":8080"
}

// MySQLConfig holds the connection settings for the document/chat record store.
type MySQLConfig struct {
	Address         string `yaml:"address"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	MaxOpenConns    int    `yaml:"maxOpenConns"`
	MaxIdleConns    int    `yaml:"maxIdleConns"`
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // seconds
}

// RedisConfig holds the connection settings for the embedding cache.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	CacheTTL int    `yaml:"cacheTTL"` // seconds; 0 means no expiry
}

// MilvusConfig holds the connection and collection settings for the vector index.
type MilvusConfig struct {
	Address    string `yaml:"address"`
	Collection string `yaml:"collection"`
	Dim        int    `yaml:"dim"` // embedding dimension of the collection
}

// KeywordIndexConfig holds the settings for the lexical index.
type KeywordIndexConfig struct {
	Path string `yaml:"path"` // on-disk index path; empty means in-memory
}

// MinIOConfig holds the connection settings for the raw-content store.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Secure    bool   `yaml:"secure"`
}

// KafkaConfig holds the settings for the distributed ingestion queue.
// When disabled, ingestion jobs go through an in-process queue instead.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"groupID"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "openai" or "ollama"
	Model     string `yaml:"model"`
	APIKey    string `yaml:"apiKey"`
	BaseURL   string `yaml:"baseURL"`
	BatchSize int    `yaml:"batchSize"` // max texts per provider call
	Timeout   int    `yaml:"timeout"`   // seconds per provider call
}

// LLMConfig selects and configures the generation provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // "openai" or "ollama"
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
	BaseURL  string `yaml:"baseURL"`
	Timeout  int    `yaml:"timeout"` // seconds per provider call
}

// IngestionConfig tunes the document ingestion pipeline.
type IngestionConfig struct {
	ChunkSize    int      `yaml:"chunkSize"`    // max characters per chunk
	ChunkOverlap int      `yaml:"chunkOverlap"` // characters shared between consecutive chunks
	Workers      int      `yaml:"workers"`      // size of the ingestion worker pool
	QueueSize    int      `yaml:"queueSize"`    // in-process queue buffer
	MaxFileSize  int64    `yaml:"maxFileSize"`  // bytes
	AllowedTypes []string `yaml:"allowedTypes"` // file extensions, e.g. ".pdf"
}

// RetrievalConfig tunes the hybrid retriever. Weights apply to the fused
// score; they do not have to sum to one.
type RetrievalConfig struct {
	TopK          int     `yaml:"topK"`
	VectorWeight  float64 `yaml:"vectorWeight"`
	KeywordWeight float64 `yaml:"keywordWeight"`
}

// AppConfig is the root configuration of the service.
type AppConfig struct {
	Server       ServerConfig       `yaml:"server"`
	MySQL        MySQLConfig        `yaml:"mysql"`
	Redis        RedisConfig        `yaml:"redis"`
	Milvus       MilvusConfig       `yaml:"milvus"`
	KeywordIndex KeywordIndexConfig `yaml:"keywordIndex"`
	MinIO        MinIOConfig        `yaml:"minio"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	LLM          LLMConfig          `yaml:"llm"`
	Ingestion    IngestionConfig    `yaml:"ingestion"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
}

// LoadConfig reads and parses the YAML configuration file at path, applying
// defaults for everything tunable that was left unset.
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Ingestion.ChunkSize <= 0 {
		c.Ingestion.ChunkSize = 1000
	}
	if c.Ingestion.ChunkOverlap < 0 || c.Ingestion.ChunkOverlap >= c.Ingestion.ChunkSize {
		c.Ingestion.ChunkOverlap = 200
	}
	if c.Ingestion.Workers <= 0 {
		c.Ingestion.Workers = 4
	}
	if c.Ingestion.QueueSize <= 0 {
		c.Ingestion.QueueSize = 128
	}
	if c.Ingestion.MaxFileSize <= 0 {
		c.Ingestion.MaxFileSize = 10 << 20 // 10MB
	}
	if len(c.Ingestion.AllowedTypes) == 0 {
		c.Ingestion.AllowedTypes = []string{".pdf", ".docx", ".txt", ".md", ".xlsx"}
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 64
	}
	if c.Embedding.Timeout <= 0 {
		c.Embedding.Timeout = 30
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 60
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 5
	}
	if c.Retrieval.VectorWeight <= 0 && c.Retrieval.KeywordWeight <= 0 {
		c.Retrieval.VectorWeight = 0.5
		c.Retrieval.KeywordWeight = 0.5
	}
	if c.Milvus.Dim <= 0 {
		c.Milvus.Dim = 1536
	}
}
