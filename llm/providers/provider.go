package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"routeqa/config"
	"routeqa/llm/vector"

	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoEmbedding "github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrMissingAPIKey is returned when a provider is selected without credentials.
var ErrMissingAPIKey = errors.New("API key is required")

// NewChatModel creates the chat model selected by cfg.Provider.
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (model.ToolCallingChatModel, error) {
	switch cfg.Provider {
	case "", "gemini":
		return NewGeminiModel(ctx, cfg)
	case "openai":
		return newOpenAIModel(ctx, cfg)
	case "qwen":
		return newQwenModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// newOpenAIModel creates an OpenAI-compatible chat model.
func newOpenAIModel(ctx context.Context, cfg config.LLMConfig) (model.ToolCallingChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: %w (OPENAI_API_KEY)", ErrMissingAPIKey)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	return openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   modelName,
		Timeout: cfg.Timeout,
	})
}

// newQwenModel creates a DashScope Qwen chat model.
func newQwenModel(ctx context.Context, cfg config.LLMConfig) (model.ToolCallingChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("qwen: %w (QWEN_API_KEY)", ErrMissingAPIKey)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "qwen-turbo"
	}

	return qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: baseURL,
		Model:   modelName,
		Timeout: cfg.Timeout,
	})
}

// NewEmbedder creates the embedding model selected by cfg.Provider.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (einoEmbedding.Embedder, error) {
	switch cfg.Provider {
	case "hash":
		return vector.NewHashEmbedder(cfg.Dimension), nil
	case "", "openai":
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding: %w (EMBEDDING_API_KEY)", ErrMissingAPIKey)
	}

	return openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
}

// LazyChatModel builds its model on the first Generate and reuses it.
// Sessions that never reach the LLM never need its credentials.
type LazyChatModel struct {
	factory func(ctx context.Context) (model.BaseChatModel, error)
	timeout time.Duration

	mu    sync.Mutex
	model model.BaseChatModel
}

// NewLazyChatModel wraps factory; every Generate call is bounded by timeout when positive.
func NewLazyChatModel(factory func(ctx context.Context) (model.BaseChatModel, error), timeout time.Duration) *LazyChatModel {
	return &LazyChatModel{factory: factory, timeout: timeout}
}

// get builds the model once it succeeds; failures are retried on the next call.
func (l *LazyChatModel) get(ctx context.Context) (model.BaseChatModel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.model != nil {
		return l.model, nil
	}
	m, err := l.factory(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	l.model = m
	return m, nil
}

// Generate implements model.BaseChatModel.
func (l *LazyChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return m.Generate(ctx, input, opts...)
}

// Stream implements model.BaseChatModel. The timeout is not applied because the
// reader outlives this call.
func (l *LazyChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return m.Stream(ctx, input, opts...)
}
