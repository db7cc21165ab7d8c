package splitters

import (
	"strings"

	"docqa/internal/rag/interfaces"
)

// separators is the boundary hierarchy, largest unit first. A chunk ends at
// the last occurrence of the highest-ranked separator that still fits.
var separators = []string{"\n\n", "\n", ". ", " "}

// CharacterSplitter splits text into overlapping windows of at most ChunkSize
// characters, preferring paragraph, sentence and word boundaries over hard
// cuts. Consecutive chunks share ChunkOverlap characters of context.
type CharacterSplitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewCharacterSplitter creates a CharacterSplitter. Overlap must be smaller
// than the chunk size; out-of-range values fall back to size/5.
func NewCharacterSplitter(chunkSize, chunkOverlap int) *CharacterSplitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &CharacterSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	}
}

// Split splits text into ordered chunk texts. It is deterministic, never
// yields an empty chunk, and yields exactly one chunk when the whole text
// fits in ChunkSize.
func (s *CharacterSplitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.ChunkSize {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = s.snapToBoundary(runes, start, end)
		}

		chunk := string(runes[start:end])
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(runes) {
			break
		}
		next := end - s.ChunkOverlap
		if next <= start {
			// Overlap would stall the window; move forward without it.
			next = end
		}
		start = next
	}
	return chunks
}

// snapToBoundary moves end backwards onto the best separator found in the
// second half of the window, so chunks break between paragraphs, sentences or
// words rather than mid-word. When no separator exists there, the hard cut at
// end stands.
func (s *CharacterSplitter) snapToBoundary(runes []rune, start, end int) int {
	window := string(runes[start:end])
	floor := len(window) / 2
	for _, sep := range separators {
		if idx := strings.LastIndex(window, sep); idx >= floor {
			boundary := idx + len(sep)
			// LastIndex works on bytes; convert back to a rune offset.
			return start + len([]rune(window[:boundary]))
		}
	}
	return end
}

var _ interfaces.Splitter = (*CharacterSplitter)(nil)
