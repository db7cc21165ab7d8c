package embeddings

import (
	"context"
	"errors"
	"fmt"
	"net"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"docqa/internal/rag/errs"
	"docqa/internal/rag/interfaces"
)

// OpenAIModel is an embedding client for the OpenAI API.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel creates an OpenAI embedding client. A missing API key is a
// configuration error and fails here, before any request is made.
func NewOpenAIModel(apiKey, model, baseURL string) (*OpenAIModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai embedding: API key is required")
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIModel{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

// Embed generates the embedding vector for a single text.
func (m *OpenAIModel) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates one embedding vector per input text, order-preserving.
// Retryable provider failures are surfaced as transient errors.
func (m *OpenAIModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := m.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(m.model),
	})
	if err != nil {
		return nil, classifyProviderError("embed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embedding: got %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// classifyProviderError sorts an OpenAI client error into the taxonomy:
// timeouts, rate limits and server-side failures are transient, everything
// else (bad request, invalid credentials at call time) is returned as-is.
func classifyProviderError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Transient(op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errs.Transient(op, err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return errs.Transient(op, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ interfaces.EmbeddingModel = (*OpenAIModel)(nil)
