package agent

import (
	"context"
	"fmt"

	"routeqa/config"
	"routeqa/llm/flow"
	"routeqa/llm/parser"
	"routeqa/llm/providers"
	"routeqa/llm/rag"
	"routeqa/llm/router"
	"routeqa/llm/vector"
	"routeqa/llm/weather"
	"routeqa/logging"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"go.uber.org/zap"
)

// Components is the wired application graph shared by every driver.
type Components struct {
	Flow      *flow.Flow
	RAG       *rag.Handler
	Retriever *vector.Retriever
	Index     vector.Index
}

// Close releases the vector index connection.
func (c *Components) Close() error {
	if c.Index == nil {
		return nil
	}
	return c.Index.Close()
}

// Build wires every capability from cfg. External clients are created on
// first use, so a weather question never needs embedding credentials.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	logger = logging.OrNop(logger)

	chat := providers.NewLazyChatModel(func(ctx context.Context) (model.BaseChatModel, error) {
		return providers.NewChatModel(ctx, cfg.LLM)
	}, cfg.LLM.Timeout)

	embedder := vector.NewLazyEmbedder(func(ctx context.Context) (embedding.Embedder, error) {
		return providers.NewEmbedder(ctx, cfg.Embedding)
	})
	embeddings := vector.NewEmbeddingService(embedder, vector.EmbeddingConfig{
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   cfg.Embedding.Timeout,
	})

	index := vector.NewLazyIndex(func(ctx context.Context) (vector.Index, error) {
		return OpenIndex(ctx, cfg.Vector)
	})
	retriever := vector.NewRetriever(index, embeddings, cfg.Vector.Collection, logger.Named("retrieval"))

	ragHandler := rag.NewHandler(parser.DefaultRegistry(), retriever, chat, rag.NewChunkCache(), rag.Config{
		Chunking: vector.ChunkConfig{ChunkSize: cfg.RAG.ChunkSize, ChunkOverlap: cfg.RAG.ChunkOverlap},
		TopK:     cfg.RAG.TopK,
	}, logger.Named("rag"))

	weatherOpts := []weather.Option{
		weather.WithUnits(cfg.Weather.Units),
		weather.WithLogger(logger.Named("weather")),
	}
	if cfg.Weather.Summarize {
		weatherOpts = append(weatherOpts, weather.WithSummarizer(chat))
	}
	weatherHandler := weather.NewHandler(weather.NewClient(cfg.Weather), weatherOpts...)

	classifier, err := router.New(cfg.Classifier.Mode, chat, logger.Named("router"))
	if err != nil {
		return nil, err
	}

	f, err := flow.New(ctx, classifier, weatherHandler, ragHandler,
		flow.WithTopK(cfg.RAG.TopK),
		flow.WithLogger(logger.Named("flow")))
	if err != nil {
		return nil, err
	}

	return &Components{
		Flow:      f,
		RAG:       ragHandler,
		Retriever: retriever,
		Index:     index,
	}, nil
}

// OpenIndex connects to the configured vector index backend.
func OpenIndex(ctx context.Context, cfg config.VectorConfig) (vector.Index, error) {
	switch cfg.Backend {
	case "", "qdrant":
		return vector.NewQdrantIndex(vector.QdrantConfig{
			URL:     cfg.QdrantURL,
			APIKey:  cfg.QdrantKey,
			Timeout: cfg.Timeout,
		}), nil
	case "redis":
		return vector.NewRedisIndex(ctx, vector.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
	case "memory":
		return vector.NewMemoryIndex(), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Backend)
	}
}
