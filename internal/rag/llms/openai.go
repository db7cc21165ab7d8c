// Package llms provides the generation providers behind the answer pipeline.
// One implementation per backend; the backend is chosen by configuration at
// construction time.
package llms

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"docqa/internal/rag/errs"
	"docqa/internal/rag/interfaces"
)

// answerTemperature keeps generation close to the supplied context.
const answerTemperature = 0.1

// defaultCompleteTimeout bounds a provider call when no timeout is configured.
const defaultCompleteTimeout = 60 * time.Second

// OpenAI is a generation client for the OpenAI chat-completion API.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAI creates an OpenAI generation client. A missing API key fails
// here, before any request is made.
func NewOpenAI(apiKey, model, baseURL string, timeout time.Duration) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai llm: API key is required")
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if timeout <= 0 {
		timeout = defaultCompleteTimeout
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		timeout: timeout,
	}, nil
}

// Complete generates a completion for the given system and user prompts. The
// call is bounded by the configured timeout; running into it is a transient
// failure.
func (o *OpenAI) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	temperature := float32(answerTemperature)
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: &temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai llm: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Name identifies the provider and model for answer metadata.
func (o *OpenAI) Name() (string, string) { return "openai", o.model }

// classifyOpenAIError marks retryable failures (timeouts, rate limits,
// server-side errors) as transient so callers can distinguish them from
// permanent ones.
func classifyOpenAIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Transient("complete", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errs.Transient("complete", err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return errs.Transient("complete", err)
		}
	}
	return fmt.Errorf("complete: %w", err)
}

var _ interfaces.LLM = (*OpenAI)(nil)
