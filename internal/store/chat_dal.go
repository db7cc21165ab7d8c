package store

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"

	"docqa/internal/rag/errs"
)

// ChatDAL provides data access methods for chats and their messages.
type ChatDAL struct {
	db *gorm.DB
}

// NewChatDAL creates a new ChatDAL.
func NewChatDAL(db *gorm.DB) *ChatDAL {
	return &ChatDAL{db: db}
}

// CreateChat inserts a new chat.
func (dal *ChatDAL) CreateChat(ctx context.Context, chat *Chat) error {
	return dal.db.WithContext(ctx).Create(chat).Error
}

// GetChat fetches a chat by id, without its messages.
func (dal *ChatDAL) GetChat(ctx context.Context, id uint) (*Chat, error) {
	var chat Chat
	err := dal.db.WithContext(ctx).First(&chat, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &errs.NotFoundError{Kind: "chat", ID: strconv.FormatUint(uint64(id), 10)}
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListChats returns chats ordered by recency.
func (dal *ChatDAL) ListChats(ctx context.Context, offset, limit int) ([]*Chat, error) {
	if limit <= 0 {
		limit = 100
	}
	var chats []*Chat
	err := dal.db.WithContext(ctx).
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&chats).Error
	return chats, err
}

// AddMessage appends a message to a chat and touches the chat's updated
// timestamp.
func (dal *ChatDAL) AddMessage(ctx context.Context, msg *Message) error {
	return dal.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&Chat{}).Where("id = ?", msg.ChatID).
			Update("updated_at", tx.NowFunc()).Error
	})
}

// ListMessages returns a chat's messages in chronological order.
func (dal *ChatDAL) ListMessages(ctx context.Context, chatID uint, offset, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 100
	}
	var messages []*Message
	err := dal.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Offset(offset).Limit(limit).
		Find(&messages).Error
	return messages, err
}
