package vector

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync/atomic"

	"github.com/cloudwego/eino/components/embedding"
)

// HashEmbedder is a deterministic embedder that hashes lower-cased words into
// a fixed number of buckets. Texts sharing words get similar vectors, which is
// enough for offline runs and tests. It needs no network access.
type HashEmbedder struct {
	dimensions int
	calls      atomic.Int64
}

// NewHashEmbedder returns an embedder that produces vectors of the given dimensions.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// EmbedStrings implements embedding.Embedder.
func (e *HashEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	e.calls.Add(1)
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = e.embed(text)
	}
	return out, nil
}

// Calls returns how many times EmbedStrings has been invoked.
func (e *HashEmbedder) Calls() int64 {
	return e.calls.Load()
}

func (e *HashEmbedder) embed(text string) []float64 {
	vec := make([]float64, e.dimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()[]")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%uint32(e.dimensions)] += 1
	}

	// Normalize to unit length for cosine similarity
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum > 0 {
		norm := 1 / math.Sqrt(sum)
		for i := range vec {
			vec[i] *= norm
		}
	}
	return vec
}
