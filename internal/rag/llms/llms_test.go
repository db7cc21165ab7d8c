package llms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"docqa/internal/rag/errs"
)

func TestNewOpenAIRequiresAPIKey(t *testing.T) {
	if _, err := NewOpenAI("", "gpt-4o-mini", "", time.Second); err == nil {
		t.Fatal("expected an error for a missing API key")
	}
}

func TestOpenAICompleteReturnsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "cmpl-1",
			"object": "chat.completion",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": "a grounded answer"},
					"finish_reason": "stop",
				},
			},
		})
	}))
	defer srv.Close()

	llm, err := NewOpenAI("test-key", "gpt-4o-mini", srv.URL, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := llm.Complete(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a grounded answer" {
		t.Fatalf("completion = %q", got)
	}
}

func TestOpenAICompleteTimesOut(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	llm, err := NewOpenAI("test-key", "gpt-4o-mini", srv.URL, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = llm.Complete(context.Background(), "system prompt", "user prompt")
	if err == nil {
		t.Fatal("expected the call to time out")
	}
	if !errs.IsTransient(err) {
		t.Fatalf("timeout must classify as transient, got %v", err)
	}
}

func TestOllamaCompleteTimesOut(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	llm, err := NewOllama("llama3", srv.URL, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = llm.Complete(context.Background(), "system prompt", "user prompt")
	if err == nil {
		t.Fatal("expected the call to time out")
	}
	if !errs.IsTransient(err) {
		t.Fatalf("timeout must classify as transient, got %v", err)
	}
}

func TestNewLLMDefaultsTimeout(t *testing.T) {
	o, err := NewOpenAI("test-key", "gpt-4o-mini", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.timeout != defaultCompleteTimeout {
		t.Fatalf("openai timeout = %v, want %v", o.timeout, defaultCompleteTimeout)
	}
	ol, err := NewOllama("llama3", "", -1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ol.timeout != defaultCompleteTimeout {
		t.Fatalf("ollama timeout = %v, want %v", ol.timeout, defaultCompleteTimeout)
	}
}
