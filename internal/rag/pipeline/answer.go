package pipeline

import (
	"context"
	"fmt"
	"strings"

	"docqa/internal/rag/errs"
	"docqa/internal/rag/interfaces"
	"docqa/internal/rag/schema"
	"docqa/pkg/logger"
)

// NoInformationAnswer is returned verbatim when retrieval yields nothing. The
// generation provider is never called in that case.
const NoInformationAnswer = "No relevant information to answer your question."

const answerSystemPrompt = "You are a helpful assistant that answers questions based on the provided context. " +
	"Only use information from the context to answer. " +
	"If the context does not contain enough information to answer the question, say so clearly."

const (
	sourcePreviewLen  = 150
	contextPreviewLen = 200
)

// AnswerPipeline turns a question and its retrieved passages into a grounded
// answer with per-source attribution.
type AnswerPipeline struct {
	llm interfaces.LLM
	log *logger.Logger
}

// NewAnswerPipeline creates a new AnswerPipeline.
func NewAnswerPipeline(llm interfaces.LLM, log *logger.Logger) *AnswerPipeline {
	return &AnswerPipeline{llm: llm, log: log}
}

// Generate produces an answer from the passages. Passages enter the prompt in
// their ranked order, and the returned sources line up one-to-one with the
// numbered context blocks the model saw.
func (p *AnswerPipeline) Generate(ctx context.Context, question string, passages []schema.Passage, mode schema.SearchMode) (*schema.AnswerResult, error) {
	provider, model := p.llm.Name()
	result := &schema.AnswerResult{
		Sources:        []schema.Source{},
		ContextPreview: []string{},
		Metadata: schema.AnswerMetadata{
			Provider:   provider,
			Model:      model,
			ChunksUsed: len(passages),
			Mode:       mode,
		},
	}

	if len(passages) == 0 {
		result.Text = NoInformationAnswer
		return result, nil
	}

	var prompt strings.Builder
	prompt.WriteString("Context:\n")
	for i, passage := range passages {
		fmt.Fprintf(&prompt, "Context %d: %s\n\n", i+1, passage.Text)
	}
	fmt.Fprintf(&prompt, "Question: %s\n\nAnswer:", question)

	answer, err := p.llm.Complete(ctx, answerSystemPrompt, prompt.String())
	if err != nil {
		return nil, &errs.GenerationError{Err: err}
	}

	result.Text = strings.TrimSpace(answer)
	for _, passage := range passages {
		result.Sources = append(result.Sources, schema.Source{
			ChunkID:    passage.ChunkID,
			DocumentID: passage.DocumentID,
			Score:      passage.Score,
			Preview:    truncateRunes(passage.Text, sourcePreviewLen),
		})
		result.ContextPreview = append(result.ContextPreview, truncateRunes(passage.Text, contextPreviewLen))
	}

	p.log.WithPayload(map[string]interface{}{
		"provider": provider,
		"model":    model,
		"chunks":   len(passages),
	}).Debug("answer generated")
	return result, nil
}

// truncateRunes shortens s to at most n runes, marking the cut with an
// ellipsis.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
