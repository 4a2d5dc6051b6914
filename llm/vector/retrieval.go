package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"routeqa/llm"
	"routeqa/logging"

	"go.uber.org/zap"
)

// ErrInvalidTopK is returned by Query for a non-positive result count.
var ErrInvalidTopK = errors.New("top_k must be positive")

// Embedder is the embedding capability the retriever depends on.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Model() string
}

// Retriever ingests chunks into one collection and answers similarity queries against it.
type Retriever struct {
	index      Index
	embedder   Embedder
	collection string
	logger     *zap.Logger
}

// NewRetriever creates a retriever bound to collection.
func NewRetriever(index Index, embedder Embedder, collection string, logger *zap.Logger) *Retriever {
	return &Retriever{
		index:      index,
		embedder:   embedder,
		collection: collection,
		logger:     logging.OrNop(logger),
	}
}

// Collection returns the collection name.
func (r *Retriever) Collection() string {
	return r.collection
}

// EnsureIngested makes sure every chunk is embedded and stored under its ID.
// Re-ingesting an ID overwrites the previous vector and payload.
func (r *Retriever) EnsureIngested(ctx context.Context, documentID string, chunks []llm.Chunk) error {
	if err := r.ensureCollection(ctx); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	items := make([]llm.EmbeddedItem, len(chunks))
	for i, c := range chunks {
		payload := make(map[string]any, len(c.Metadata)+3)
		for k, v := range c.Metadata {
			payload[k] = v
		}
		payload[llm.PayloadText] = c.Text
		payload[llm.PayloadDocumentID] = documentID
		payload[llm.PayloadEmbeddingModel] = r.embedder.Model()

		items[i] = llm.EmbeddedItem{ID: c.ID, Vector: vectors[i], Payload: payload}
	}

	if err := r.index.Upsert(ctx, r.collection, items); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}

	r.logger.Debug("chunks ingested",
		zap.String("collection", r.collection),
		zap.String("document", documentID),
		zap.Int("chunks", len(items)))
	return nil
}

func (r *Retriever) ensureCollection(ctx context.Context) error {
	exists, err := r.index.Exists(ctx, r.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return nil
	}

	if err := r.index.Create(ctx, r.collection, r.embedder.Dimension(), MetricCosine); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	r.logger.Info("collection created",
		zap.String("collection", r.collection),
		zap.Int("dimension", r.embedder.Dimension()))
	return nil
}

// Query embeds text with the ingestion model and returns up to topK hits by descending score.
func (r *Retriever) Query(ctx context.Context, text string, topK int) ([]llm.SearchHit, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidTopK, topK)
	}

	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.index.Search(ctx, r.collection, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	r.checkModel(hits)
	return hits, nil
}

// checkModel warns when stored vectors came from a different embedding model,
// which silently degrades relevance.
func (r *Retriever) checkModel(hits []llm.SearchHit) {
	current := r.embedder.Model()
	for _, h := range hits {
		stored, ok := h.Payload[llm.PayloadEmbeddingModel].(string)
		if ok && stored != current {
			r.logger.Warn("embedding model mismatch between ingestion and query",
				zap.String("collection", r.collection),
				zap.String("stored_model", stored),
				zap.String("query_model", current))
			return
		}
	}
}
