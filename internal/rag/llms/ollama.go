package llms

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"

	"docqa/internal/rag/errs"
	"docqa/internal/rag/interfaces"
)

// Ollama is a generation client for a local or remote Ollama server.
type Ollama struct {
	client  *ollama.Client
	model   string
	timeout time.Duration
}

// NewOllama creates an Ollama generation client. baseURL defaults to the
// standard local endpoint when empty.
func NewOllama(model, baseURL string, timeout time.Duration) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama llm: invalid base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultCompleteTimeout
	}
	return &Ollama{
		client:  ollama.NewClient(parsedURL, http.DefaultClient),
		model:   model,
		timeout: timeout,
	}, nil
}

// Complete generates a completion for the given system and user prompts. The
// call is bounded by the configured timeout; running into it is a transient
// failure.
func (o *Ollama) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	stream := false
	var sb strings.Builder
	err := o.client.Generate(ctx, &ollama.GenerateRequest{
		Model:  o.model,
		System: systemPrompt,
		Prompt: userPrompt,
		Stream: &stream,
	}, func(resp ollama.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", errs.Transient("complete", err)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", errs.Transient("complete", err)
		}
		return "", fmt.Errorf("complete: %w", err)
	}
	return sb.String(), nil
}

// Name identifies the provider and model for answer metadata.
func (o *Ollama) Name() (string, string) { return "ollama", o.model }

var _ interfaces.LLM = (*Ollama)(nil)
