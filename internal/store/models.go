// Package store holds the relational records (documents, chats, messages)
// and their data access layers. It is plain CRUD; all pipeline logic lives
// above it.
package store

import (
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// ProcessingStatus is the lifecycle state of a document's ingestion.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// CanStartIngestion reports whether an ingestion run may begin from the given
// status. Completed documents only re-enter processing on an explicit
// re-ingestion; a document already processing never admits a second run.
func CanStartIngestion(status ProcessingStatus, reingest bool) bool {
	switch status {
	case StatusPending, StatusFailed:
		return true
	case StatusCompleted:
		return reingest
	default:
		return false
	}
}

// Document is one uploaded source file.
type Document struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// ContentHash is the sha256 digest of the raw bytes. Unique across all
	// documents: re-uploading identical content resolves to the existing row.
	ContentHash string `gorm:"uniqueIndex;not null;size:64" json:"content_hash"`

	OriginalName string `gorm:"not null;size:512" json:"original_name"`
	// StoragePath is the object key of the raw bytes in the content store.
	StoragePath string `gorm:"size:512" json:"-"`
	FileSize    int64  `gorm:"not null" json:"file_size"`
	MediaType   string `gorm:"size:128" json:"media_type"`

	ProcessingStatus ProcessingStatus `gorm:"type:varchar(20);default:'pending';not null;index" json:"processing_status"`
	ErrorMessage     string           `gorm:"size:2048" json:"error_message,omitempty"`
	ChunkCount       int              `gorm:"default:0" json:"chunk_count"`
	EmbeddingModel   string           `gorm:"size:128" json:"embedding_model,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// Key renders the document id the way both indexes store it in chunk
// metadata.
func (d *Document) Key() string {
	return strconv.FormatUint(uint64(d.ID), 10)
}

// Chat is one conversation over the document corpus.
type Chat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:512" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []Message `gorm:"constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// MessageRole distinguishes who produced a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one turn in a chat. Assistant messages carry the ranked source
// list and generation metadata exactly as the answer pipeline produced them.
type Message struct {
	ID      uint        `gorm:"primaryKey" json:"id"`
	ChatID  uint        `gorm:"index;not null" json:"chat_id"`
	Role    MessageRole `gorm:"type:varchar(16);not null" json:"role"`
	Content string      `gorm:"type:text;not null" json:"content"`

	Sources  datatypes.JSON `json:"sources,omitempty"`
	Metadata datatypes.JSON `json:"metadata,omitempty"`
	// IsError flags an answer that failed to generate; Content then holds a
	// user-readable explanation instead of an answer.
	IsError bool `gorm:"default:false" json:"is_error"`

	CreatedAt time.Time `json:"created_at"`
}
