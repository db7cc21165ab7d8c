package service

import (
	"context"
	"encoding/json"
	"strings"

	"gorm.io/datatypes"

	"docqa/internal/rag/errs"
	"docqa/internal/rag/schema"
	"docqa/internal/store"
	"docqa/pkg/logger"
)

// Retriever is the retrieval stage the chat service asks for passages.
type Retriever interface {
	Retrieve(ctx context.Context, question string, topK int, filter schema.Filter, mode schema.SearchMode) ([]schema.Passage, error)
}

// Answerer is the generation stage turning passages into a grounded answer.
type Answerer interface {
	Generate(ctx context.Context, question string, passages []schema.Passage, mode schema.SearchMode) (*schema.AnswerResult, error)
}

// AskRequest is one question against the corpus within a chat.
type AskRequest struct {
	Question    string            `json:"question"`
	TopK        int               `json:"top_k"`
	Mode        schema.SearchMode `json:"mode"`
	DocumentIDs []string          `json:"document_ids"`
}

// AskResult is the stored answer turn, including the generated answer and
// its attribution.
type AskResult struct {
	Answer  *schema.AnswerResult `json:"answer"`
	Message *store.Message       `json:"message"`
}

// ChatService runs conversations: each question is retrieved against and
// answered from the document corpus, and both turns are persisted.
type ChatService struct {
	chats       *store.ChatDAL
	retriever   Retriever
	answerer    Answerer
	defaultTopK int
	log         *logger.Logger
}

// NewChatService creates a ChatService.
func NewChatService(chats *store.ChatDAL, retriever Retriever, answerer Answerer, defaultTopK int, log *logger.Logger) *ChatService {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &ChatService{
		chats:       chats,
		retriever:   retriever,
		answerer:    answerer,
		defaultTopK: defaultTopK,
		log:         log,
	}
}

// CreateChat starts a new conversation.
func (s *ChatService) CreateChat(ctx context.Context, title string) (*store.Chat, error) {
	if strings.TrimSpace(title) == "" {
		title = "New chat"
	}
	chat := &store.Chat{Title: title}
	if err := s.chats.CreateChat(ctx, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// ListChats returns conversations ordered by recency.
func (s *ChatService) ListChats(ctx context.Context, offset, limit int) ([]*store.Chat, error) {
	return s.chats.ListChats(ctx, offset, limit)
}

// ListMessages returns a chat's history in chronological order.
func (s *ChatService) ListMessages(ctx context.Context, chatID uint, offset, limit int) ([]*store.Message, error) {
	if _, err := s.chats.GetChat(ctx, chatID); err != nil {
		return nil, err
	}
	return s.chats.ListMessages(ctx, chatID, offset, limit)
}

// Ask answers a question within a chat. The question is persisted before
// generation starts; a generation failure is persisted as an error-flagged
// assistant message so the turn survives in the history, and the caller
// still receives a readable result.
func (s *ChatService) Ask(ctx context.Context, chatID uint, req AskRequest) (*AskResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, &errs.ValidationError{Reason: "question must not be empty"}
	}
	mode := req.Mode
	if mode == "" {
		mode = schema.ModeHybrid
	}
	if !mode.Valid() {
		return nil, &errs.ValidationError{Reason: "unknown search mode " + string(mode)}
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}

	if _, err := s.chats.GetChat(ctx, chatID); err != nil {
		return nil, err
	}

	userMsg := &store.Message{ChatID: chatID, Role: store.RoleUser, Content: question}
	if err := s.chats.AddMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	passages, err := s.retriever.Retrieve(ctx, question, topK, schema.Filter{DocumentIDs: req.DocumentIDs}, mode)
	if err != nil {
		return s.persistFailure(ctx, chatID, mode, err)
	}

	answer, err := s.answerer.Generate(ctx, question, passages, mode)
	if err != nil {
		return s.persistFailure(ctx, chatID, mode, err)
	}

	assistantMsg := &store.Message{
		ChatID:  chatID,
		Role:    store.RoleAssistant,
		Content: answer.Text,
	}
	if assistantMsg.Sources, err = marshalJSON(answer.Sources); err != nil {
		return nil, err
	}
	if assistantMsg.Metadata, err = marshalJSON(answer.Metadata); err != nil {
		return nil, err
	}
	if err := s.chats.AddMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}

	return &AskResult{Answer: answer, Message: assistantMsg}, nil
}

// persistFailure records a failed answer turn. The original error is kept in
// the message content so the history explains itself; the chat flow itself
// did not fail.
func (s *ChatService) persistFailure(ctx context.Context, chatID uint, mode schema.SearchMode, cause error) (*AskResult, error) {
	s.log.WithError(cause).Error("failed to answer question")

	content := "Sorry, I could not generate an answer: " + cause.Error()
	msg := &store.Message{
		ChatID:  chatID,
		Role:    store.RoleAssistant,
		Content: content,
		IsError: true,
	}
	metadata, err := marshalJSON(schema.AnswerMetadata{Mode: mode})
	if err == nil {
		msg.Metadata = metadata
	}
	if err := s.chats.AddMessage(ctx, msg); err != nil {
		return nil, err
	}

	return &AskResult{
		Answer: &schema.AnswerResult{
			Text:           content,
			Sources:        []schema.Source{},
			ContextPreview: []string{},
			Metadata:       schema.AnswerMetadata{Mode: mode},
		},
		Message: msg,
	}, nil
}

func marshalJSON(v interface{}) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
