package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"docqa/internal/rag/errs"
	"docqa/internal/rag/schema"
	"docqa/pkg/logger"
)

type fakeLLM struct {
	calls    int
	response string
	err      error

	lastSystem string
	lastUser   string
}

func (f *fakeLLM) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.lastSystem = systemPrompt
	f.lastUser = userPrompt
	return f.response, f.err
}

func (f *fakeLLM) Name() (string, string) { return "fake", "fake-model" }

func passage(id string, idx int, text string, score float64) schema.Passage {
	return schema.Passage{ChunkID: id, DocumentID: "1", ChunkIndex: idx, Text: text, Score: score}
}

func TestGenerateEmptyPassagesSkipsProvider(t *testing.T) {
	llm := &fakeLLM{response: "should never be used"}
	p := NewAnswerPipeline(llm, logger.New("test"))

	result, err := p.Generate(context.Background(), "what is this?", nil, schema.ModeHybrid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if llm.calls != 0 {
		t.Fatalf("provider was called %d times for an empty context", llm.calls)
	}
	if result.Text != NoInformationAnswer {
		t.Fatalf("answer = %q, want the fixed no-information answer", result.Text)
	}
	if len(result.Sources) != 0 {
		t.Fatalf("expected no sources, got %d", len(result.Sources))
	}
	if result.Metadata.ChunksUsed != 0 {
		t.Fatalf("chunks used = %d, want 0", result.Metadata.ChunksUsed)
	}
	if result.Metadata.Provider != "fake" || result.Metadata.Model != "fake-model" {
		t.Fatalf("metadata must still identify the provider: %+v", result.Metadata)
	}
}

func TestGeneratePromptNumbersContextBlocks(t *testing.T) {
	llm := &fakeLLM{response: "the answer"}
	p := NewAnswerPipeline(llm, logger.New("test"))

	passages := []schema.Passage{
		passage("a", 0, "first passage", 0.9),
		passage("b", 1, "second passage", 0.8),
	}
	result, err := p.Generate(context.Background(), "why?", passages, schema.ModeHybrid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "the answer" {
		t.Fatalf("answer = %q", result.Text)
	}

	if !strings.Contains(llm.lastUser, "Context 1: first passage") {
		t.Errorf("prompt missing numbered first context block:\n%s", llm.lastUser)
	}
	if !strings.Contains(llm.lastUser, "Context 2: second passage") {
		t.Errorf("prompt missing numbered second context block:\n%s", llm.lastUser)
	}
	if strings.Index(llm.lastUser, "Context 1:") > strings.Index(llm.lastUser, "Context 2:") {
		t.Errorf("context blocks out of ranked order")
	}
	if !strings.Contains(llm.lastUser, "Question: why?") {
		t.Errorf("prompt missing the question:\n%s", llm.lastUser)
	}
	if llm.lastSystem == "" {
		t.Errorf("system prompt must not be empty")
	}
}

func TestGenerateSourcesAlignWithPassages(t *testing.T) {
	llm := &fakeLLM{response: "ok"}
	p := NewAnswerPipeline(llm, logger.New("test"))

	long := strings.Repeat("x", 500)
	passages := []schema.Passage{
		passage("a", 0, long, 0.9),
		passage("b", 1, "short", 0.4),
	}
	result, err := p.Generate(context.Background(), "q", passages, schema.ModeVector)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(result.Sources))
	}
	if result.Sources[0].ChunkID != "a" || result.Sources[1].ChunkID != "b" {
		t.Fatalf("sources out of passage order")
	}
	if result.Sources[0].Score != 0.9 {
		t.Errorf("source must carry the fused score, got %f", result.Sources[0].Score)
	}
	if n := len([]rune(result.Sources[0].Preview)); n > 153 {
		t.Errorf("source preview too long: %d runes", n)
	}
	if !strings.HasSuffix(result.Sources[0].Preview, "...") {
		t.Errorf("truncated preview must end with an ellipsis")
	}
	if result.Sources[1].Preview != "short" {
		t.Errorf("short text must not be truncated, got %q", result.Sources[1].Preview)
	}
	if len(result.ContextPreview) != 2 {
		t.Fatalf("expected 2 context previews, got %d", len(result.ContextPreview))
	}
	if n := len([]rune(result.ContextPreview[0])); n > 203 {
		t.Errorf("context preview too long: %d runes", n)
	}
	if result.Metadata.ChunksUsed != 2 || result.Metadata.Mode != schema.ModeVector {
		t.Errorf("metadata wrong: %+v", result.Metadata)
	}
}

func TestGenerateProviderFailure(t *testing.T) {
	llm := &fakeLLM{err: fmt.Errorf("model overloaded")}
	p := NewAnswerPipeline(llm, logger.New("test"))

	_, err := p.Generate(context.Background(), "q", []schema.Passage{passage("a", 0, "text", 1)}, schema.ModeHybrid)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errs.IsGeneration(err) {
		t.Fatalf("error %v is not a generation error", err)
	}
	var genErr *errs.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("cannot unwrap generation error")
	}
}
