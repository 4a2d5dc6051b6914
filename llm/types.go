package llm

// Payload keys shared by every vector index backend.
const (
	PayloadText           = "text"
	PayloadDocumentID     = "document_id"
	PayloadEmbeddingModel = "embedding_model"
	PayloadChunkIndex     = "chunk_index"
)

// Chunk is one word window of a document, produced by the chunker.
type Chunk struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// EmbeddedItem is a chunk after embedding, ready to be upserted into an index.
type EmbeddedItem struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// SearchHit is a single nearest-neighbour result. Higher scores are more relevant.
type SearchHit struct {
	ID      string         `json:"id"`
	Score   float32        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// Text returns the stored chunk text of the hit.
func (h SearchHit) Text() string {
	if s, ok := h.Payload[PayloadText].(string); ok {
		return s
	}
	return ""
}

// Intent is the routing decision for a question.
type Intent string

const (
	IntentWeather Intent = "weather"
	IntentRAG     Intent = "rag"
)

// Classification is an intent plus the extracted location for weather questions.
type Classification struct {
	Intent   Intent `json:"intent"`
	Location string `json:"location,omitempty"`
}
