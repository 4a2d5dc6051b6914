package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"routeqa/llm"
)

// MemoryIndex is an in-process Index with brute-force cosine search.
// It keeps insertion order so equal scores come back in a stable order.
type MemoryIndex struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	dim   int
	order []string
	items map[string]llm.EmbeddedItem
}

// NewMemoryIndex creates an empty in-memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		collections: make(map[string]*memoryCollection),
	}
}

func (m *MemoryIndex) Exists(_ context.Context, collection string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[collection]
	return ok, nil
}

func (m *MemoryIndex) Create(_ context.Context, collection string, dim int, metric Metric) error {
	if metric != MetricCosine {
		return fmt.Errorf("unsupported metric %q", metric)
	}
	if dim <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dim)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection]; ok {
		return nil
	}
	m.collections[collection] = &memoryCollection{
		dim:   dim,
		items: make(map[string]llm.EmbeddedItem),
	}
	return nil
}

func (m *MemoryIndex) Upsert(_ context.Context, collection string, items []llm.EmbeddedItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.collections[collection]
	if !ok {
		return fmt.Errorf("collection %q not found", collection)
	}

	for _, item := range items {
		if len(item.Vector) != c.dim {
			return fmt.Errorf("item %s has dimension %d, collection expects %d", item.ID, len(item.Vector), c.dim)
		}
		if _, exists := c.items[item.ID]; !exists {
			c.order = append(c.order, item.ID)
		}
		c.items[item.ID] = llm.EmbeddedItem{
			ID:      item.ID,
			Vector:  append([]float32(nil), item.Vector...),
			Payload: copyPayload(item.Payload),
		}
	}
	return nil
}

func (m *MemoryIndex) Search(_ context.Context, collection string, vector []float32, limit int) ([]llm.SearchHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %q not found", collection)
	}
	if len(vector) != c.dim {
		return nil, fmt.Errorf("query has dimension %d, collection expects %d", len(vector), c.dim)
	}

	hits := make([]llm.SearchHit, 0, len(c.order))
	for _, id := range c.order {
		item := c.items[id]
		hits = append(hits, llm.SearchHit{
			ID:      id,
			Score:   cosineSimilarity(vector, item.Vector),
			Payload: copyPayload(item.Payload),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Len returns the number of items stored in collection.
func (m *MemoryIndex) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.collections[collection]; ok {
		return len(c.items)
	}
	return 0
}

func (m *MemoryIndex) Close() error {
	return nil
}

// cosineSimilarity returns 0 when either vector has zero norm.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func copyPayload(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
