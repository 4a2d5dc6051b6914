package vector

import (
	"context"
	"errors"
	"sync"
	"testing"

	"routeqa/llm"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCollection = "test_collection"

func newTestRetriever(t *testing.T) (*Retriever, *MemoryIndex, *HashEmbedder) {
	t.Helper()
	hash := NewHashEmbedder(64)
	svc := NewEmbeddingService(hash, EmbeddingConfig{Model: "hash-64", Dimension: 64})
	idx := NewMemoryIndex()
	return NewRetriever(idx, svc, testCollection, nil), idx, hash
}

func TestEnsureIngestedCreatesCollection(t *testing.T) {
	ctx := context.Background()
	r, idx, _ := newTestRetriever(t)

	chunks, err := Split("the quick brown fox jumps over the lazy dog", 4, 1)
	require.NoError(t, err)

	require.NoError(t, r.EnsureIngested(ctx, "doc-1", chunks))

	exists, err := idx.Exists(ctx, testCollection)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, len(chunks), idx.Len(testCollection))

	// same ids again: no duplicates
	require.NoError(t, r.EnsureIngested(ctx, "doc-1", chunks))
	assert.Equal(t, len(chunks), idx.Len(testCollection))
}

func TestQueryOrdersByScore(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRetriever(t)

	chunks := []llm.Chunk{
		{ID: "a", Text: "paris is the capital of france"},
		{ID: "b", Text: "bananas are yellow fruit"},
		{ID: "c", Text: "the capital city has many museums"},
	}
	require.NoError(t, r.EnsureIngested(ctx, "doc", chunks))

	hits, err := r.Query(ctx, "what is the capital of france", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	assert.Equal(t, "doc", hits[0].Payload[llm.PayloadDocumentID])
	assert.Equal(t, "hash-64", hits[0].Payload[llm.PayloadEmbeddingModel])
}

func TestQueryRejectsInvalidTopKBeforeAnyCall(t *testing.T) {
	r, _, hash := newTestRetriever(t)

	_, err := r.Query(context.Background(), "anything", 0)
	assert.ErrorIs(t, err, ErrInvalidTopK)
	assert.Zero(t, hash.Calls())
}

func TestUpsertOverwritesByID(t *testing.T) {
	ctx := context.Background()
	r, idx, _ := newTestRetriever(t)

	require.NoError(t, r.EnsureIngested(ctx, "doc", []llm.Chunk{{ID: "same", Text: "old text about cats"}}))
	require.NoError(t, r.EnsureIngested(ctx, "doc", []llm.Chunk{{ID: "same", Text: "new text about dogs"}}))

	assert.Equal(t, 1, idx.Len(testCollection))

	hits, err := r.Query(ctx, "cats", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new text about dogs", hits[0].Text())
}

func TestPayloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRetriever(t)

	original := "Exact  text, with   odd spacing & symbols: ü ✓"
	require.NoError(t, r.EnsureIngested(ctx, "doc", []llm.Chunk{{ID: "x", Text: original}}))

	hits, err := r.Query(ctx, original, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "x", hits[0].ID)
	assert.Equal(t, original, hits[0].Text())
}

type failingEmbedder struct{}

func (failingEmbedder) EmbedStrings(context.Context, []string, ...embedding.Option) ([][]float64, error) {
	return nil, errors.New("model offline")
}

func TestEmbeddingFailureSurfaces(t *testing.T) {
	svc := NewEmbeddingService(failingEmbedder{}, EmbeddingConfig{Model: "x", Dimension: 8})
	r := NewRetriever(NewMemoryIndex(), svc, testCollection, nil)

	err := r.EnsureIngested(context.Background(), "doc", []llm.Chunk{{ID: "1", Text: "hello"}})
	assert.ErrorIs(t, err, ErrEmbedding)

	_, err = r.Query(context.Background(), "hello", 3)
	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestEmbeddingDimensionMismatch(t *testing.T) {
	svc := NewEmbeddingService(NewHashEmbedder(16), EmbeddingConfig{Model: "x", Dimension: 32})
	_, err := svc.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmbedding)
}

func TestLazyEmbedderInitialisesOnce(t *testing.T) {
	var mu sync.Mutex
	builds := 0
	lazy := NewLazyEmbedder(func(context.Context) (embedding.Embedder, error) {
		mu.Lock()
		builds++
		mu.Unlock()
		return NewHashEmbedder(8), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := lazy.EmbedStrings(context.Background(), []string{"x"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, builds)
}

func TestLazyIndexRetriesAfterInitError(t *testing.T) {
	opens := 0
	lazy := NewLazyIndex(func(ctx context.Context) (Index, error) {
		opens++
		if opens == 1 {
			return nil, errors.New("connection refused")
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return NewMemoryIndex(), nil
	})

	_, err := lazy.Exists(context.Background(), "c")
	assert.ErrorIs(t, err, ErrIndexUnavailable)

	// a cancelled request still opens a usable handle
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	exists, err := lazy.Exists(cancelled, "c")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, lazy.Create(context.Background(), "c", 4, MetricCosine))
	exists, err = lazy.Exists(context.Background(), "c")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, 2, opens)

	require.NoError(t, lazy.Close())
	_, err = lazy.Exists(context.Background(), "c")
	assert.ErrorIs(t, err, ErrIndexUnavailable)
	assert.Equal(t, 2, opens)
}

func TestLazyEmbedderRetriesAfterInitError(t *testing.T) {
	builds := 0
	lazy := NewLazyEmbedder(func(ctx context.Context) (embedding.Embedder, error) {
		builds++
		if builds == 1 {
			return nil, errors.New("dns timeout")
		}
		return NewHashEmbedder(8), ctx.Err()
	})

	_, err := lazy.EmbedStrings(context.Background(), []string{"x"})
	assert.ErrorContains(t, err, "dns timeout")

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	vecs, err := lazy.EmbedStrings(cancelled, []string{"x"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, 2, builds)
}
