package vector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"routeqa/llm"
)

// ErrIndexUnavailable wraps connectivity and server-side failures of a vector index.
var ErrIndexUnavailable = errors.New("vector index unavailable")

// Metric is the similarity function of a collection.
type Metric string

const MetricCosine Metric = "cosine"

// Index defines the named-collection operations the retrieval pipeline needs
type Index interface {
	// Exists reports whether the collection exists
	Exists(ctx context.Context, collection string) (bool, error)

	// Create creates the collection with a fixed vector dimension and metric
	Create(ctx context.Context, collection string, dim int, metric Metric) error

	// Upsert inserts or overwrites items by ID
	Upsert(ctx context.Context, collection string, items []llm.EmbeddedItem) error

	// Search returns up to limit hits ordered by descending score
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]llm.SearchHit, error)

	// Close closes any connections or resources
	Close() error
}

// LazyIndex opens the configured backend on first use and shares it afterwards.
// A failed open is not kept; the next call tries again.
type LazyIndex struct {
	open func(ctx context.Context) (Index, error)

	mu     sync.Mutex
	index  Index
	closed bool
}

// NewLazyIndex wraps open in an initialise-on-success guard.
func NewLazyIndex(open func(ctx context.Context) (Index, error)) *LazyIndex {
	return &LazyIndex{open: open}
}

func (l *LazyIndex) get(ctx context.Context) (Index, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, fmt.Errorf("%w: index closed", ErrIndexUnavailable)
	}
	if l.index != nil {
		return l.index, nil
	}
	// the handle outlives this request
	idx, err := l.open(context.WithoutCancel(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, err)
	}
	l.index = idx
	return idx, nil
}

func (l *LazyIndex) Exists(ctx context.Context, collection string) (bool, error) {
	idx, err := l.get(ctx)
	if err != nil {
		return false, err
	}
	return idx.Exists(ctx, collection)
}

func (l *LazyIndex) Create(ctx context.Context, collection string, dim int, metric Metric) error {
	idx, err := l.get(ctx)
	if err != nil {
		return err
	}
	return idx.Create(ctx, collection, dim, metric)
}

func (l *LazyIndex) Upsert(ctx context.Context, collection string, items []llm.EmbeddedItem) error {
	idx, err := l.get(ctx)
	if err != nil {
		return err
	}
	return idx.Upsert(ctx, collection, items)
}

func (l *LazyIndex) Search(ctx context.Context, collection string, vector []float32, limit int) ([]llm.SearchHit, error) {
	idx, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return idx.Search(ctx, collection, vector, limit)
}

// Close closes the backend if it was ever opened. Later calls fail.
func (l *LazyIndex) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.index == nil {
		return nil
	}
	err := l.index.Close()
	l.index = nil
	return err
}
