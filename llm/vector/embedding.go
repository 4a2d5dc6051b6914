package vector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/embedding"
)

// ErrEmbedding wraps every failure of the embedding capability.
var ErrEmbedding = errors.New("embedding failed")

// EmbeddingConfig describes the model behind an EmbeddingService.
type EmbeddingConfig struct {
	Model     string        // Identifier stored with every vector
	Dimension int           // Expected vector length
	Timeout   time.Duration // Bound for a single embedding call
}

// EmbeddingService wraps an embedding model for vector generation
type EmbeddingService struct {
	embedder embedding.Embedder
	cfg      EmbeddingConfig
}

// NewEmbeddingService creates a new embedding service
func NewEmbeddingService(embedder embedding.Embedder, cfg EmbeddingConfig) *EmbeddingService {
	if cfg.Dimension <= 0 {
		cfg.Dimension = 384
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &EmbeddingService{
		embedder: embedder,
		cfg:      cfg,
	}
}

// Embed generates an embedding vector for a single text
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates one vector per text, in input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	vectors, err := s.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbedding, len(vectors), len(texts))
	}

	// Convert float64 to float32
	result := make([][]float32, len(vectors))
	for i, vec := range vectors {
		if len(vec) != s.cfg.Dimension {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, expected %d", ErrEmbedding, i, len(vec), s.cfg.Dimension)
		}
		result[i] = make([]float32, len(vec))
		for j, v := range vec {
			result[i][j] = float32(v)
		}
	}

	return result, nil
}

// Dimension returns the embedding dimension
func (s *EmbeddingService) Dimension() int {
	return s.cfg.Dimension
}

// Model returns the identifier of the embedding model.
func (s *EmbeddingService) Model() string {
	return s.cfg.Model
}

// LazyEmbedder defers construction of the underlying embedder until the first
// call, then shares it. A failed construction is retried on the next call.
type LazyEmbedder struct {
	factory func(ctx context.Context) (embedding.Embedder, error)

	mu       sync.Mutex
	embedder embedding.Embedder
}

// NewLazyEmbedder wraps factory in an initialise-on-success guard.
func NewLazyEmbedder(factory func(ctx context.Context) (embedding.Embedder, error)) *LazyEmbedder {
	return &LazyEmbedder{factory: factory}
}

func (l *LazyEmbedder) get(ctx context.Context) (embedding.Embedder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.embedder != nil {
		return l.embedder, nil
	}
	e, err := l.factory(context.WithoutCancel(ctx))
	if err != nil {
		return nil, fmt.Errorf("initialize embedder: %w", err)
	}
	l.embedder = e
	return e, nil
}

// EmbedStrings implements embedding.Embedder.
func (l *LazyEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	e, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return e.EmbedStrings(ctx, texts, opts...)
}
