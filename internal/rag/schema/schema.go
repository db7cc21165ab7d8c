package schema

const (
	// MetadataKeyDocumentID is the key holding the owning document's identifier.
	// Every chunk carries it; both indexes filter and bulk-delete on it.
	MetadataKeyDocumentID = "document_id"
	// MetadataKeyChunkIndex is the key for the chunk's ordinal position within its document.
	MetadataKeyChunkIndex = "chunk_index"
	// MetadataKeySourceName is the key for the original file name the chunk came from.
	MetadataKeySourceName = "source_name"
)

// Chunk is the central data structure of the pipeline: one bounded passage of
// a document, the unit of embedding, indexing and retrieval. Chunks are
// immutable once written; reprocessing a document produces a fresh chunk set
// with fresh identifiers.
type Chunk struct {
	// ID is the globally unique identifier of this chunk. Never reused.
	ID string

	// DocumentID identifies the owning document.
	DocumentID string

	// Index is the chunk's ordinal position within the document.
	Index int

	// Text is the passage content.
	Text string

	// Embedding is the vector representation of Text.
	Embedding []float32

	// Metadata holds arbitrary data about the chunk (document id, chunk
	// index, source span). Stored alongside the chunk in both indexes.
	Metadata map[string]interface{}
}

// SearchMode selects which index (or both) a retrieval request consults.
type SearchMode string

const (
	ModeVector  SearchMode = "vector"
	ModeKeyword SearchMode = "keyword"
	ModeHybrid  SearchMode = "hybrid"
)

// Valid reports whether m is one of the supported modes.
func (m SearchMode) Valid() bool {
	switch m {
	case ModeVector, ModeKeyword, ModeHybrid:
		return true
	}
	return false
}

// PassageOrigin records which index produced a retrieved passage.
type PassageOrigin string

const (
	OriginVector  PassageOrigin = "vector"
	OriginKeyword PassageOrigin = "keyword"
	OriginBoth    PassageOrigin = "both"
)

// Filter restricts index operations to a set of documents. A zero Filter
// matches everything.
type Filter struct {
	DocumentIDs []string
}

// Empty reports whether the filter matches all documents.
func (f Filter) Empty() bool { return len(f.DocumentIDs) == 0 }

// Matches reports whether a chunk with the given document id passes the filter.
func (f Filter) Matches(documentID string) bool {
	if f.Empty() {
		return true
	}
	for _, id := range f.DocumentIDs {
		if id == documentID {
			return true
		}
	}
	return false
}

// VectorHit is one nearest-neighbor result from the vector index.
// Score is a cosine similarity where higher is better; callers clamp it to
// [0,1] before combining it with scores from other spaces.
type VectorHit struct {
	ChunkID    string
	DocumentID string
	ChunkIndex int
	Text       string
	Score      float64
}

// KeywordHit is one lexical result from the keyword index. Score is the
// index's relevance score (unbounded, higher is better). Highlights locate
// the matched terms in the stored text; it may be empty.
type KeywordHit struct {
	ChunkID    string
	DocumentID string
	ChunkIndex int
	Text       string
	Score      float64
	Highlights []string
}

// Passage is the fused retrieval result handed to the answer pipeline.
// It only lives for the duration of one question.
type Passage struct {
	ChunkID    string
	DocumentID string
	ChunkIndex int
	Text       string

	// Score is the fused relevance score used for the final ranking.
	Score float64
	// VectorScore and KeywordScore are the per-index normalized scores that
	// went into Score. Zero when the passage did not appear in that index.
	VectorScore  float64
	KeywordScore float64

	Origin     PassageOrigin
	Highlights []string
}

// Source is one attributed source of a generated answer, derived from the
// passage that was placed into the prompt at the same position.
type Source struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Score      float64 `json:"score"`
	Preview    string  `json:"preview"`
}

// AnswerMetadata records how an answer was produced.
type AnswerMetadata struct {
	Provider   string     `json:"provider"`
	Model      string     `json:"model"`
	ChunksUsed int        `json:"chunks_used"`
	Mode       SearchMode `json:"mode"`
}

// AnswerResult is the outcome of answering one question.
type AnswerResult struct {
	Text           string         `json:"answer"`
	Sources        []Source       `json:"sources"`
	ContextPreview []string       `json:"context_preview"`
	Metadata       AnswerMetadata `json:"metadata"`
}

// IndexStats is a diagnostic snapshot of one index.
type IndexStats struct {
	Name   string `json:"name"`
	Count  int64  `json:"count"`
	Status string `json:"status"`
}
