package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"routeqa/llm"
	"routeqa/llm/vector"
	"routeqa/logging"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 4

var (
	// ErrNoDocument is returned when a document question arrives without a document.
	ErrNoDocument = errors.New("no document provided")
	// ErrFailed wraps every other failure of Handle.
	ErrFailed = errors.New("rag failed")
)

// NoDocumentMessage is shown to the user for ErrNoDocument.
const NoDocumentMessage = "Please provide a document (upload a PDF) to use RAG."

// Message renders an error returned by Handle for the user.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNoDocument):
		return NoDocumentMessage
	case errors.Is(err, ErrFailed):
		return "RAG failed: " + strings.TrimPrefix(err.Error(), ErrFailed.Error()+": ")
	default:
		return err.Error()
	}
}

const contextSeparator = "\n\n---\n\n"

const answerPrompt = "Use the context to answer the question concisely.\n\nCONTEXT:\n{context}\n\nQUESTION: {question}"

// TextLoader extracts the plain text of a document.
type TextLoader interface {
	LoadText(ctx context.Context, path string) (string, error)
}

// Retriever stores chunks and finds the ones closest to a question.
type Retriever interface {
	EnsureIngested(ctx context.Context, documentID string, chunks []llm.Chunk) error
	Query(ctx context.Context, text string, topK int) ([]llm.SearchHit, error)
}

// Result is a grounded answer with the chunks it was built from.
type Result struct {
	Answer     string          `json:"answer"`
	Sources    []llm.SearchHit `json:"sources"`
	Evaluation Evaluation      `json:"evaluation"`
}

// Config holds the chunking and retrieval settings of a Handler.
type Config struct {
	Chunking vector.ChunkConfig
	TopK     int
}

// Handler answers questions from a user supplied document.
type Handler struct {
	loader    TextLoader
	retriever Retriever
	model     model.BaseChatModel
	cache     *ChunkCache
	cfg       Config
	template  prompt.ChatTemplate
	logger    *zap.Logger

	// collapses concurrent loads of the same file version
	loading singleflight.Group
}

// NewHandler wires a RAG handler. A nil cache gets a private one.
func NewHandler(loader TextLoader, retriever Retriever, chatModel model.BaseChatModel, cache *ChunkCache, cfg Config, logger *zap.Logger) *Handler {
	if cache == nil {
		cache = NewChunkCache()
	}
	if cfg.Chunking == (vector.ChunkConfig{}) {
		cfg.Chunking = vector.DefaultChunkConfig()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &Handler{
		loader:    loader,
		retriever: retriever,
		model:     chatModel,
		cache:     cache,
		cfg:       cfg,
		template:  prompt.FromMessages(schema.FString, schema.UserMessage(answerPrompt)),
		logger:    logging.OrNop(logger),
	}
}

// TopK returns the configured retrieval size.
func (h *Handler) TopK() int {
	return h.cfg.TopK
}

// Handle answers question from the document at documentRef using the topK
// closest chunks; zero means the configured default and a negative topK
// fails before the document is touched. Use Message to show errors to the
// user. Chunks already upserted stay in the index when a later step fails.
func (h *Handler) Handle(ctx context.Context, documentRef, question string, topK int) (*Result, error) {
	if strings.TrimSpace(documentRef) == "" {
		return nil, ErrNoDocument
	}
	if topK < 0 {
		return nil, fmt.Errorf("%w: %w, got %d", ErrFailed, vector.ErrInvalidTopK, topK)
	}
	if topK == 0 {
		topK = h.cfg.TopK
	}
	res, err := h.answer(ctx, documentRef, question, topK)
	if err != nil {
		h.logger.Warn("rag failed", zap.String("document", documentRef), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFailed, err)
	}
	return res, nil
}

func (h *Handler) answer(ctx context.Context, documentRef, question string, topK int) (*Result, error) {
	if _, err := h.Ingest(ctx, documentRef); err != nil {
		return nil, err
	}

	hits, err := h.retriever.Query(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(hits))
	for i, hit := range hits {
		texts[i] = hit.Text()
	}
	msgs, err := h.template.Format(ctx, map[string]any{
		"context":  strings.Join(texts, contextSeparator),
		"question": question,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	out, err := h.model.Generate(ctx, msgs)
	if err != nil {
		return nil, fmt.Errorf("llm call failed: %w", err)
	}

	return &Result{
		Answer:     out.Content,
		Sources:    hits,
		Evaluation: Evaluate(question, out.Content, hits),
	}, nil
}

// Ingest chunks the document (once per file version) and makes sure every
// chunk is in the index. It returns the number of chunks.
func (h *Handler) Ingest(ctx context.Context, documentRef string) (int, error) {
	chunks, err := h.chunks(ctx, documentRef)
	if err != nil {
		return 0, err
	}
	if err := h.retriever.EnsureIngested(ctx, documentRef, chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func (h *Handler) chunks(ctx context.Context, documentRef string) ([]llm.Chunk, error) {
	key, err := DocumentKey(documentRef)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	if chunks, ok := h.cache.Get(key); ok {
		return chunks, nil
	}

	v, err, _ := h.loading.Do(key, func() (any, error) {
		if chunks, ok := h.cache.Get(key); ok {
			return chunks, nil
		}
		text, err := h.loader.LoadText(ctx, documentRef)
		if err != nil {
			return nil, err
		}
		chunks, err := h.cfg.Chunking.Split(text)
		if err != nil {
			return nil, err
		}
		h.cache.Put(key, chunks)
		h.logger.Info("document chunked",
			zap.String("document", documentRef),
			zap.Int("chunks", len(chunks)))
		return chunks, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]llm.Chunk), nil
}
