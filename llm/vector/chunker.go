package vector

import (
	"errors"
	"fmt"
	"strings"

	"routeqa/llm"

	"github.com/google/uuid"
)

// ErrInvalidChunking is returned when the window parameters can never advance.
var ErrInvalidChunking = errors.New("invalid chunking parameters")

// ChunkConfig configures how documents are split into word windows
type ChunkConfig struct {
	ChunkSize    int // Window size in words
	ChunkOverlap int // Words shared by consecutive windows
}

// DefaultChunkConfig returns the default chunk configuration
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:    400,
		ChunkOverlap: 50,
	}
}

// Validate checks that 0 <= overlap < size.
func (c ChunkConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// Split cuts text into windows of chunkSize words, each starting chunkSize-overlap
// words after the previous one. Every chunk gets a fresh UUID.
func Split(text string, chunkSize, overlap int) ([]llm.Chunk, error) {
	return ChunkConfig{ChunkSize: chunkSize, ChunkOverlap: overlap}.Split(text)
}

// Split applies the configured window to text.
func (c ChunkConfig) Split(text string) ([]llm.Chunk, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []llm.Chunk{}, nil
	}

	step := c.ChunkSize - c.ChunkOverlap
	chunks := make([]llm.Chunk, 0, len(words)/step+1)

	for start := 0; start < len(words); start += step {
		end := start + c.ChunkSize
		if end > len(words) {
			end = len(words)
		}

		content := normalizeWhitespace(strings.Join(words[start:end], " "))
		if content == "" {
			continue
		}

		chunks = append(chunks, llm.Chunk{
			ID:   uuid.NewString(),
			Text: content,
			Metadata: map[string]any{
				llm.PayloadChunkIndex: len(chunks),
			},
		})
	}

	return chunks, nil
}

// normalizeWhitespace collapses whitespace runs to a single space and trims
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
